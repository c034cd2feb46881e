package model

import "time"

type Enrollment struct {
	BaseModel

	UserID      uint       `gorm:"not null;uniqueIndex:idx_enrollment_user_course,priority:1" json:"userId"`
	CourseID    uint       `gorm:"not null;uniqueIndex:idx_enrollment_user_course,priority:2" json:"courseId"`
	Progress    int        `gorm:"not null;default:0" json:"progress"`
	EnrolledAt  time.Time  `gorm:"not null" json:"enrolledAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
