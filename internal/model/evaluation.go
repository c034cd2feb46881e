package model

type QuestionType string

const (
	QuestionTypeSingle   QuestionType = "single_choice"
	QuestionTypeMultiple QuestionType = "multiple_choice"
)

// Evaluation is a graded quiz or exam attached to a module.
// MaxAttempts and TimeLimit are optional; nil means unlimited.
type Evaluation struct {
	BaseModel

	ModuleID      uint   `gorm:"index;not null" json:"moduleId"`
	Title         string `gorm:"size:255;not null" json:"title"`
	Order         int    `gorm:"default:0" json:"order"`
	QuestionCount int    `gorm:"default:0" json:"questionCount"`
	PassingScore  int    `gorm:"not null;default:0" json:"passingScore"`
	MaxAttempts   *int   `json:"maxAttempts,omitempty"`
	TimeLimit     *int   `json:"timeLimit,omitempty"` // minutes

	Questions []Question `gorm:"foreignKey:EvaluationID" json:"questions,omitempty"`
}

func (Evaluation) TableName() string {
	return "evaluations"
}

type Question struct {
	BaseModel

	EvaluationID uint         `gorm:"index;not null" json:"evaluationId"`
	Text         string       `gorm:"type:text;not null" json:"text"`
	Type         QuestionType `gorm:"size:50;not null" json:"type"`
	Points       int          `gorm:"not null;default:1" json:"points"`
	Order        int          `gorm:"default:0" json:"order"`

	Answers []Answer `gorm:"foreignKey:QuestionID" json:"answers,omitempty"`
}

func (Question) TableName() string {
	return "questions"
}

type Answer struct {
	BaseModel

	QuestionID uint   `gorm:"index;not null" json:"questionId"`
	Text       string `gorm:"type:text;not null" json:"text"`
	IsCorrect  bool   `gorm:"not null;default:false" json:"isCorrect"`
	Order      int    `gorm:"default:0" json:"order"`
}

func (Answer) TableName() string {
	return "answers"
}
