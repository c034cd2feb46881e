package testutil

import (
	"testing"
	"time"

	"course_core_backend/internal/model"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func IntPtr(v int) *int { return &v }

func Course(t *testing.T, db *gorm.DB) *model.Course {
	t.Helper()
	c := &model.Course{Title: "Go in practice"}
	require.NoError(t, db.Create(c).Error)
	return c
}

func Module(t *testing.T, db *gorm.DB, courseID uint, order int) *model.Module {
	t.Helper()
	m := &model.Module{CourseID: courseID, Title: "module", Order: order}
	require.NoError(t, db.Create(m).Error)
	return m
}

func Content(t *testing.T, db *gorm.DB, moduleID uint, order int) *model.Content {
	t.Helper()
	c := &model.Content{ModuleID: moduleID, Title: "lesson", Order: order}
	require.NoError(t, db.Create(c).Error)
	return c
}

// Evaluation creates an evaluation without questions.
func Evaluation(t *testing.T, db *gorm.DB, moduleID uint, passingScore int, maxAttempts, timeLimit *int) *model.Evaluation {
	t.Helper()
	e := &model.Evaluation{
		ModuleID:     moduleID,
		Title:        "quiz",
		PassingScore: passingScore,
		MaxAttempts:  maxAttempts,
		TimeLimit:    timeLimit,
	}
	require.NoError(t, db.Create(e).Error)
	return e
}

// SingleChoice adds a question with three options, the second one correct.
func SingleChoice(t *testing.T, db *gorm.DB, evaluationID uint, points, order int) *model.Question {
	t.Helper()
	return question(t, db, evaluationID, model.QuestionTypeSingle, points, order, []bool{false, true, false})
}

// MultipleChoice adds a question with four options, the first and third correct.
func MultipleChoice(t *testing.T, db *gorm.DB, evaluationID uint, points, order int) *model.Question {
	t.Helper()
	return question(t, db, evaluationID, model.QuestionTypeMultiple, points, order, []bool{true, false, true, false})
}

func question(t *testing.T, db *gorm.DB, evaluationID uint, qt model.QuestionType, points, order int, correct []bool) *model.Question {
	q := &model.Question{EvaluationID: evaluationID, Text: "q", Type: qt, Points: points, Order: order}
	for i, ok := range correct {
		q.Answers = append(q.Answers, model.Answer{Text: "a", IsCorrect: ok, Order: i})
	}
	require.NoError(t, db.Create(q).Error)
	return q
}

// CorrectIDs returns the ids of the correct options of q.
func CorrectIDs(q *model.Question) []uint {
	var ids []uint
	for _, a := range q.Answers {
		if a.IsCorrect {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// WrongID returns the id of the first incorrect option of q.
func WrongID(q *model.Question) uint {
	for _, a := range q.Answers {
		if !a.IsCorrect {
			return a.ID
		}
	}
	return 0
}

func Enroll(t *testing.T, db *gorm.DB, userID, courseID uint) *model.Enrollment {
	t.Helper()
	e := &model.Enrollment{UserID: userID, CourseID: courseID, EnrolledAt: time.Now()}
	require.NoError(t, db.Create(e).Error)
	return e
}
