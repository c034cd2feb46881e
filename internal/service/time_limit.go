package service

import (
	"time"

	"course_core_backend/internal/model"
)

// ExpiresAt 返回截止时间；nil 或非正数表示不限时，此时 ok 为 false
func ExpiresAt(startedAt time.Time, timeLimitMinutes *int) (deadline time.Time, ok bool) {
	if timeLimitMinutes == nil || *timeLimitMinutes <= 0 {
		return time.Time{}, false
	}
	return startedAt.Add(time.Duration(*timeLimitMinutes) * time.Minute), true
}

// RemainingSeconds 剩余秒数，最小为 0；无时间限制时 limited 为 false
func RemainingSeconds(startedAt time.Time, timeLimitMinutes *int, now time.Time) (remaining int, limited bool) {
	if timeLimitMinutes == nil || *timeLimitMinutes <= 0 {
		return 0, false
	}
	// 已用时间向下取整到秒
	elapsed := int(now.Sub(startedAt) / time.Second)
	left := *timeLimitMinutes*60 - elapsed
	if left < 0 {
		left = 0
	}
	return left, true
}

// IsActive 尝试未提交且剩余时间大于 0 时仍可作答
func IsActive(a *model.EvaluationAttempt, now time.Time) bool {
	if a.State.IsTerminal() || a.SubmittedAt != nil {
		return false
	}
	remaining, limited := RemainingSeconds(a.StartedAt, a.TimeLimit, now)
	return !limited || remaining > 0
}
