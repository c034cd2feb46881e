package model

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type AttemptState string

const (
	// AttemptStateNotStarted is never stored; it describes a user with no attempts.
	AttemptStateNotStarted AttemptState = "not_started"
	AttemptStateInProgress AttemptState = "in_progress"
	AttemptStateSubmitted  AttemptState = "submitted"
	AttemptStateExpired    AttemptState = "expired"
)

func (s AttemptState) IsTerminal() bool {
	return s == AttemptStateSubmitted || s == AttemptStateExpired
}

// AttemptQuestion is the frozen grading key of one question, captured when
// the attempt starts so later edits to the evaluation do not regrade it.
type AttemptQuestion struct {
	QuestionID uint         `json:"questionId"`
	Type       QuestionType `json:"type"`
	Points     int          `json:"points"`
	OptionIDs  []uint       `json:"optionIds"`
	CorrectIDs []uint       `json:"correctIds"`
}

// AttemptAnswer 单题作答记录，提交前仅保存 SelectedIDs
type AttemptAnswer struct {
	QuestionID  uint   `json:"questionId"`
	SelectedIDs []uint `json:"selectedIds"`
	IsCorrect   bool   `json:"isCorrect"`
	Points      int    `json:"points"`
}

type EvaluationAttempt struct {
	BaseModel

	UserID       uint         `gorm:"not null;index:idx_attempt_user_eval,priority:1" json:"userId"`
	EvaluationID uint         `gorm:"not null;index:idx_attempt_user_eval,priority:2" json:"evaluationId"`
	CourseID     uint         `gorm:"index;not null" json:"courseId"`
	ModuleID     uint         `gorm:"not null" json:"moduleId"`
	State        AttemptState `gorm:"size:20;not null;index" json:"state"`
	StartedAt    time.Time    `gorm:"not null" json:"startedAt"`
	SubmittedAt  *time.Time   `json:"submittedAt,omitempty"`

	Score        int  `gorm:"not null;default:0" json:"score"`
	TotalPoints  int  `gorm:"not null;default:0" json:"totalPoints"`
	PassingScore int  `gorm:"not null;default:0" json:"passingScore"`
	TimeLimit    *int `json:"timeLimit,omitempty"`
	Passed       bool `gorm:"not null;default:false" json:"passed"`

	Questions datatypes.JSONSlice[AttemptQuestion] `json:"questions"`
	Answers   datatypes.JSONSlice[AttemptAnswer]   `json:"answers"`

	// ActiveKey is set only while the attempt is in progress; the unique
	// index allows a single open attempt per (user, evaluation).
	ActiveKey *string `gorm:"size:64;uniqueIndex" json:"-"`
}

func (EvaluationAttempt) TableName() string {
	return "evaluation_attempts"
}

func ActiveAttemptKey(userID, evaluationID uint) string {
	return fmt.Sprintf("%d:%d", userID, evaluationID)
}

// Selections returns the stored answer ids keyed by question.
func (a *EvaluationAttempt) Selections() map[uint][]uint {
	out := make(map[uint][]uint, len(a.Answers))
	for _, ans := range a.Answers {
		out[ans.QuestionID] = ans.SelectedIDs
	}
	return out
}

// AttemptAnswers converts answers into the JSON column type; nil becomes an
// empty list.
func AttemptAnswers(answers []AttemptAnswer) datatypes.JSONSlice[AttemptAnswer] {
	if answers == nil {
		answers = []AttemptAnswer{}
	}
	return datatypes.JSONSlice[AttemptAnswer](answers)
}
