package repository

import (
	"context"
	"time"

	"course_core_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserProgressRepository struct {
	DB *gorm.DB
}

func NewUserProgressRepository(db *gorm.DB) *UserProgressRepository {
	return &UserProgressRepository{DB: db}
}

func (r *UserProgressRepository) WithTx(tx *gorm.DB) *UserProgressRepository {
	return &UserProgressRepository{DB: tx}
}

var progressConflictColumns = []clause.Column{{Name: "user_id"}, {Name: "item_type"}, {Name: "item_id"}}

// MarkContentComplete 标记内容完成，重复标记保留首次完成时间并累加次数
func (r *UserProgressRepository) MarkContentComplete(ctx context.Context, userID, courseID, moduleID, contentID uint, at time.Time) error {
	row := &model.UserProgress{
		UserID:      userID,
		ItemType:    model.ProgressItemContent,
		ItemID:      contentID,
		CourseID:    courseID,
		ModuleID:    moduleID,
		CompletedAt: &at,
		Attempts:    1,
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: progressConflictColumns,
		DoUpdates: clause.Assignments(map[string]interface{}{
			"completed_at": gorm.Expr("COALESCE(user_progress.completed_at, ?)", at),
			"attempts":     gorm.Expr("user_progress.attempts + 1"),
			"updated_at":   at,
		}),
	}).Create(row).Error
}

// MarkContentIncomplete 清除完成时间；没有记录本身就表示未完成
func (r *UserProgressRepository) MarkContentIncomplete(ctx context.Context, userID, contentID uint) error {
	return r.DB.WithContext(ctx).Model(&model.UserProgress{}).
		Where("user_id = ? AND item_type = ? AND item_id = ?", userID, model.ProgressItemContent, contentID).
		Update("completed_at", nil).Error
}

// EvaluationResult 单次测评尝试的终态结果
type EvaluationResult struct {
	UserID       uint
	CourseID     uint
	ModuleID     uint
	EvaluationID uint
	Score        int
	Passed       bool
	At           time.Time
}

// RecordEvaluationResult 累加尝试次数，保留最高分，首次通过时记录完成时间
func (r *UserProgressRepository) RecordEvaluationResult(ctx context.Context, res EvaluationResult) error {
	score := res.Score
	row := &model.UserProgress{
		UserID:   res.UserID,
		ItemType: model.ProgressItemEvaluation,
		ItemID:   res.EvaluationID,
		CourseID: res.CourseID,
		ModuleID: res.ModuleID,
		Score:    &score,
		Attempts: 1,
	}
	updates := map[string]interface{}{
		"attempts":   gorm.Expr("user_progress.attempts + 1"),
		"score":      gorm.Expr("CASE WHEN user_progress.score IS NULL OR user_progress.score < ? THEN ? ELSE user_progress.score END", score, score),
		"updated_at": res.At,
	}
	if res.Passed {
		at := res.At
		row.CompletedAt = &at
		updates["completed_at"] = gorm.Expr("COALESCE(user_progress.completed_at, ?)", at)
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   progressConflictColumns,
		DoUpdates: clause.Assignments(updates),
	}).Create(row).Error
}

func (r *UserProgressRepository) FindItem(ctx context.Context, userID uint, itemType model.ProgressItemType, itemID uint) (*model.UserProgress, error) {
	var p model.UserProgress
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND item_type = ? AND item_id = ?", userID, itemType, itemID).
		First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *UserProgressRepository) ListByUserAndCourse(ctx context.Context, userID, courseID uint) ([]model.UserProgress, error) {
	var rows []model.UserProgress
	err := r.DB.WithContext(ctx).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("item_type ASC, item_id ASC").
		Find(&rows).Error
	return rows, err
}

// GetUserFacts 从进度记录读取已完成内容，从终态尝试读取已通过测评
func (r *UserProgressRepository) GetUserFacts(ctx context.Context, userID, courseID uint) (*model.UserFacts, error) {
	facts := model.NewUserFacts()

	var contentIDs []uint
	err := r.DB.WithContext(ctx).Model(&model.UserProgress{}).
		Where("user_id = ? AND course_id = ? AND item_type = ? AND completed_at IS NOT NULL",
			userID, courseID, model.ProgressItemContent).
		Pluck("item_id", &contentIDs).Error
	if err != nil {
		return nil, err
	}
	for _, id := range contentIDs {
		facts.CompletedContents[id] = true
	}

	passed, err := NewEvaluationAttemptRepository(r.DB).PassedEvaluationIDs(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	for _, id := range passed {
		facts.PassedEvaluations[id] = true
	}
	return facts, nil
}
