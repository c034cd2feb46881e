package util

import "errors"

var (
	ErrPermissionDenied   = errors.New("permission denied")
	ErrEvaluationNotFound = errors.New("evaluation not found")
	ErrContentNotFound    = errors.New("content not found")
	ErrCourseNotFound     = errors.New("course not found")
	ErrAttemptNotFound    = errors.New("attempt not found")
	ErrNotEnrolled        = errors.New("user is not enrolled in the course")
	ErrInvalidQuestion    = errors.New("evaluation has a misconfigured question")

	// 测评尝试生命周期
	ErrAttemptLimitExceeded   = errors.New("maximum attempts reached")
	ErrAttemptAlreadyActive   = errors.New("attempt already in progress")
	ErrAttemptAlreadyTerminal = errors.New("attempt already submitted or expired")
	ErrAttemptStillActive     = errors.New("attempt has not expired yet")
	ErrExpiredAttempt         = errors.New("attempt time limit exceeded")
	ErrNotOwner               = errors.New("attempt belongs to another user")
	ErrUnknownQuestion        = errors.New("question does not belong to this evaluation")
	ErrInvalidSelection       = errors.New("invalid answer selection")
)
