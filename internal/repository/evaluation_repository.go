package repository

import (
	"context"
	"errors"

	"course_core_backend/internal/model"
	"course_core_backend/internal/util"

	"gorm.io/gorm"
)

type EvaluationRepository struct {
	DB *gorm.DB
}

func NewEvaluationRepository(db *gorm.DB) *EvaluationRepository {
	return &EvaluationRepository{DB: db}
}

func (r *EvaluationRepository) FindByID(ctx context.Context, id uint) (*model.Evaluation, error) {
	var e model.Evaluation
	if err := r.DB.WithContext(ctx).First(&e, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrEvaluationNotFound
		}
		return nil, err
	}
	return &e, nil
}

// FindWithQuestions 加载测评、题目和选项，均按 order 排序
func (r *EvaluationRepository) FindWithQuestions(ctx context.Context, id uint) (*model.Evaluation, error) {
	var e model.Evaluation
	err := r.DB.WithContext(ctx).
		Preload("Questions", byPosition).
		Preload("Questions.Answers", byPosition).
		First(&e, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrEvaluationNotFound
		}
		return nil, err
	}
	return &e, nil
}

// Locate 返回测评（含题目）及其所属模块
func (r *EvaluationRepository) Locate(ctx context.Context, id uint) (*model.Evaluation, *model.Module, error) {
	e, err := r.FindWithQuestions(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	var m model.Module
	if err := r.DB.WithContext(ctx).First(&m, e.ModuleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, util.ErrEvaluationNotFound
		}
		return nil, nil, err
	}
	return e, &m, nil
}
