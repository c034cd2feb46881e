package repository

import (
	"context"
	"errors"
	"time"

	"course_core_backend/internal/model"
	"course_core_backend/internal/util"

	"gorm.io/gorm"
)

type EvaluationAttemptRepository struct {
	DB *gorm.DB
}

func NewEvaluationAttemptRepository(db *gorm.DB) *EvaluationAttemptRepository {
	return &EvaluationAttemptRepository{DB: db}
}

// WithTx 绑定到已开启的事务
func (r *EvaluationAttemptRepository) WithTx(tx *gorm.DB) *EvaluationAttemptRepository {
	return &EvaluationAttemptRepository{DB: tx}
}

func (r *EvaluationAttemptRepository) Create(ctx context.Context, attempt *model.EvaluationAttempt) error {
	return r.DB.WithContext(ctx).Create(attempt).Error
}

func (r *EvaluationAttemptRepository) FindByID(ctx context.Context, id uint) (*model.EvaluationAttempt, error) {
	var a model.EvaluationAttempt
	if err := r.DB.WithContext(ctx).First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	return &a, nil
}

// FindInProgress 返回用户在该测评下未结束的尝试，没有时返回 gorm.ErrRecordNotFound
func (r *EvaluationAttemptRepository) FindInProgress(ctx context.Context, userID, evaluationID uint) (*model.EvaluationAttempt, error) {
	var a model.EvaluationAttempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND evaluation_id = ? AND state = ?", userID, evaluationID, model.AttemptStateInProgress).
		Order("started_at DESC").
		First(&a).Error
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *EvaluationAttemptRepository) ListByUserAndEvaluation(ctx context.Context, userID, evaluationID uint) ([]model.EvaluationAttempt, error) {
	var attempts []model.EvaluationAttempt
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND evaluation_id = ?", userID, evaluationID).
		Order("started_at DESC, id DESC").
		Find(&attempts).Error
	return attempts, err
}

func (r *EvaluationAttemptRepository) CountTerminal(ctx context.Context, userID, evaluationID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.EvaluationAttempt{}).
		Where("user_id = ? AND evaluation_id = ? AND state IN ?", userID, evaluationID,
			[]model.AttemptState{model.AttemptStateSubmitted, model.AttemptStateExpired}).
		Count(&count).Error
	return count, err
}

// SaveAnswers 保存暂存答案，只更新进行中的尝试
func (r *EvaluationAttemptRepository) SaveAnswers(ctx context.Context, id uint, answers []model.AttemptAnswer) error {
	res := r.DB.WithContext(ctx).Model(&model.EvaluationAttempt{}).
		Where("id = ? AND state = ?", id, model.AttemptStateInProgress).
		Update("answers", model.AttemptAnswers(answers))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrAttemptAlreadyTerminal
	}
	return nil
}

// AttemptOutcome 终态写入字段
type AttemptOutcome struct {
	State       model.AttemptState
	SubmittedAt time.Time
	Score       int
	Passed      bool
	Answers     []model.AttemptAnswer
}

// Finalize 将进行中的尝试置为终态，只有一个调用方能成功，其余返回 ErrAttemptAlreadyTerminal
func (r *EvaluationAttemptRepository) Finalize(ctx context.Context, id uint, out AttemptOutcome) error {
	res := r.DB.WithContext(ctx).Model(&model.EvaluationAttempt{}).
		Where("id = ? AND state = ?", id, model.AttemptStateInProgress).
		Updates(map[string]interface{}{
			"state":        out.State,
			"submitted_at": out.SubmittedAt,
			"score":        out.Score,
			"passed":       out.Passed,
			"answers":      model.AttemptAnswers(out.Answers),
			"active_key":   nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrAttemptAlreadyTerminal
	}
	return nil
}

// ListOpenTimed 返回所有限时且进行中的尝试
func (r *EvaluationAttemptRepository) ListOpenTimed(ctx context.Context) ([]model.EvaluationAttempt, error) {
	var attempts []model.EvaluationAttempt
	err := r.DB.WithContext(ctx).
		Where("state = ? AND time_limit IS NOT NULL AND time_limit > 0", model.AttemptStateInProgress).
		Order("started_at ASC").
		Find(&attempts).Error
	return attempts, err
}

// PassedEvaluationIDs 返回用户在该课程中至少通过一次的测评
func (r *EvaluationAttemptRepository) PassedEvaluationIDs(ctx context.Context, userID, courseID uint) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.EvaluationAttempt{}).
		Distinct().
		Where("user_id = ? AND course_id = ? AND passed = ? AND state IN ?", userID, courseID, true,
			[]model.AttemptState{model.AttemptStateSubmitted, model.AttemptStateExpired}).
		Pluck("evaluation_id", &ids).Error
	return ids, err
}
