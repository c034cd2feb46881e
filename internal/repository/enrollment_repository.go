package repository

import (
	"context"
	"errors"
	"time"

	"course_core_backend/internal/model"
	"course_core_backend/internal/util"

	"gorm.io/gorm"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) Create(ctx context.Context, e *model.Enrollment) error {
	return r.DB.WithContext(ctx).Create(e).Error
}

func (r *EnrollmentRepository) FindByUserAndCourse(ctx context.Context, userID, courseID uint) (*model.Enrollment, error) {
	var e model.Enrollment
	err := r.DB.WithContext(ctx).Where("user_id = ? AND course_id = ?", userID, courseID).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrNotEnrolled
		}
		return nil, err
	}
	return &e, nil
}

// SetEnrollmentProgress 写入进度百分比；completed_at 一旦写入不再改变
func (r *EnrollmentRepository) SetEnrollmentProgress(ctx context.Context, userID, courseID uint, pct int, completedAt *time.Time) error {
	updates := map[string]interface{}{"progress": pct}
	if completedAt != nil {
		updates["completed_at"] = gorm.Expr("COALESCE(completed_at, ?)", *completedAt)
	}
	return r.DB.WithContext(ctx).Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Updates(updates).Error
}
