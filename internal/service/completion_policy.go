package service

import (
	"time"

	"course_core_backend/internal/model"
)

// EnrollmentUpdate 需要写回报名记录的内容
type EnrollmentUpdate struct {
	Progress      int
	CompletedAt   *time.Time
	JustCompleted bool
}

// ApplyCompletion 根据最新课程进度决定报名状态：completed_at 首次达到 100 时写入，之后不再清除
func ApplyCompletion(current *model.Enrollment, percentage int, now time.Time) EnrollmentUpdate {
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 100 {
		percentage = 100
	}

	update := EnrollmentUpdate{Progress: percentage}
	if current != nil && current.CompletedAt != nil {
		completed := *current.CompletedAt
		update.CompletedAt = &completed
		return update
	}
	if percentage >= 100 {
		at := now
		update.CompletedAt = &at
		update.JustCompleted = true
	}
	return update
}
