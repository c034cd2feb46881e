package model

import "time"

type ProgressItemType string

const (
	ProgressItemContent    ProgressItemType = "content"
	ProgressItemEvaluation ProgressItemType = "evaluation"
)

// UserProgress 记录用户对单个内容或测评的完成情况，首次相关事件时创建
type UserProgress struct {
	BaseModel

	UserID      uint             `gorm:"not null;uniqueIndex:idx_progress_user_item,priority:1" json:"userId"`
	ItemType    ProgressItemType `gorm:"size:20;not null;uniqueIndex:idx_progress_user_item,priority:2" json:"itemType"`
	ItemID      uint             `gorm:"not null;uniqueIndex:idx_progress_user_item,priority:3" json:"itemId"`
	CourseID    uint             `gorm:"index;not null" json:"courseId"`
	ModuleID    uint             `gorm:"index;not null" json:"moduleId"`
	CompletedAt *time.Time       `json:"completedAt,omitempty"`
	Score       *int             `json:"score,omitempty"`
	Attempts    int              `gorm:"not null;default:0" json:"attempts"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}
