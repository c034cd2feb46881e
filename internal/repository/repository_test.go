package repository

import (
	"context"
	"testing"
	"time"

	"course_core_backend/internal/model"
	"course_core_backend/internal/testutil"
	"course_core_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCourseRepository_GetModuleTree(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewCourseRepository(db)
	ctx := context.Background()

	course := testutil.Course(t, db)
	m2 := testutil.Module(t, db, course.ID, 2)
	m1 := testutil.Module(t, db, course.ID, 1)
	c1 := testutil.Content(t, db, m1.ID, 1)
	gone := testutil.Content(t, db, m1.ID, 2)
	e1 := testutil.Evaluation(t, db, m1.ID, 0, nil, nil)
	require.NoError(t, db.Delete(gone).Error)

	tree, err := repo.GetModuleTree(ctx, course.ID)
	require.NoError(t, err)

	require.Len(t, tree.Modules, 2)
	assert.Equal(t, m1.ID, tree.Modules[0].ModuleID)
	assert.Equal(t, m2.ID, tree.Modules[1].ModuleID)
	assert.Empty(t, tree.Modules[1].Items)

	items := tree.Modules[0].Items
	require.Len(t, items, 3)
	assert.Equal(t, model.ItemRef{Type: model.ProgressItemContent, ID: c1.ID}, items[0])
	assert.Equal(t, model.ItemRef{Type: model.ProgressItemContent, ID: gone.ID, Deleted: true}, items[1])
	assert.Equal(t, model.ItemRef{Type: model.ProgressItemEvaluation, ID: e1.ID}, items[2])

	_, err = repo.GetModuleTree(ctx, 999)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestEvaluationRepository_FindWithQuestionsOrdered(t *testing.T) {
	db := testutil.NewDB(t)
	course := testutil.Course(t, db)
	module := testutil.Module(t, db, course.ID, 1)
	eval := testutil.Evaluation(t, db, module.ID, 1, nil, nil)
	second := testutil.SingleChoice(t, db, eval.ID, 1, 2)
	first := testutil.MultipleChoice(t, db, eval.ID, 1, 1)

	got, m, err := NewEvaluationRepository(db).Locate(context.Background(), eval.ID)
	require.NoError(t, err)
	assert.Equal(t, module.ID, m.ID)
	require.Len(t, got.Questions, 2)
	assert.Equal(t, first.ID, got.Questions[0].ID)
	assert.Equal(t, second.ID, got.Questions[1].ID)
	assert.Len(t, got.Questions[0].Answers, 4)

	_, err = NewEvaluationRepository(db).FindByID(context.Background(), 12345)
	assert.ErrorIs(t, err, util.ErrEvaluationNotFound)
}

func TestEvaluationAttemptRepository_FinalizeClaimsOnce(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewEvaluationAttemptRepository(db)
	ctx := context.Background()

	key := model.ActiveAttemptKey(1, 2)
	attempt := &model.EvaluationAttempt{
		UserID: 1, EvaluationID: 2, CourseID: 3, ModuleID: 4,
		State:     model.AttemptStateInProgress,
		StartedAt: time.Now(),
		ActiveKey: &key,
	}
	require.NoError(t, repo.Create(ctx, attempt))

	dup := &model.EvaluationAttempt{
		UserID: 1, EvaluationID: 2, CourseID: 3, ModuleID: 4,
		State:     model.AttemptStateInProgress,
		StartedAt: time.Now(),
		ActiveKey: &key,
	}
	assert.ErrorIs(t, repo.Create(ctx, dup), gorm.ErrDuplicatedKey)

	out := AttemptOutcome{State: model.AttemptStateSubmitted, SubmittedAt: time.Now(), Score: 3, Passed: true}
	require.NoError(t, repo.Finalize(ctx, attempt.ID, out))
	assert.ErrorIs(t, repo.Finalize(ctx, attempt.ID, out), util.ErrAttemptAlreadyTerminal)
	assert.ErrorIs(t, repo.SaveAnswers(ctx, attempt.ID, nil), util.ErrAttemptAlreadyTerminal)

	stored, err := repo.FindByID(ctx, attempt.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ActiveKey)
	assert.Equal(t, model.AttemptStateSubmitted, stored.State)

	// the active key is free again
	next := &model.EvaluationAttempt{
		UserID: 1, EvaluationID: 2, CourseID: 3, ModuleID: 4,
		State:     model.AttemptStateInProgress,
		StartedAt: time.Now(),
		ActiveKey: &key,
	}
	require.NoError(t, repo.Create(ctx, next))

	count, err := repo.CountTerminal(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUserProgressRepository_RecordEvaluationResult(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserProgressRepository(db)
	ctx := context.Background()
	t0 := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)

	base := EvaluationResult{UserID: 1, CourseID: 2, ModuleID: 3, EvaluationID: 4}

	r := base
	r.Score, r.At = 4, t0
	require.NoError(t, repo.RecordEvaluationResult(ctx, r))

	row, err := repo.FindItem(ctx, 1, model.ProgressItemEvaluation, 4)
	require.NoError(t, err)
	assert.Equal(t, 1, row.Attempts)
	assert.Equal(t, 4, *row.Score)
	assert.Nil(t, row.CompletedAt)

	r = base
	r.Score, r.Passed, r.At = 9, true, t0.Add(time.Hour)
	require.NoError(t, repo.RecordEvaluationResult(ctx, r))

	r = base
	r.Score, r.Passed, r.At = 7, true, t0.Add(2*time.Hour)
	require.NoError(t, repo.RecordEvaluationResult(ctx, r))

	row, err = repo.FindItem(ctx, 1, model.ProgressItemEvaluation, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, row.Attempts)
	assert.Equal(t, 9, *row.Score)
	require.NotNil(t, row.CompletedAt)
	assert.True(t, row.CompletedAt.Equal(t0.Add(time.Hour)))
}

func TestUserProgressRepository_GetUserFacts(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserProgressRepository(db)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, repo.MarkContentComplete(ctx, 1, 10, 100, 1000, now))
	require.NoError(t, repo.MarkContentComplete(ctx, 1, 10, 100, 1001, now))
	require.NoError(t, repo.MarkContentIncomplete(ctx, 1, 1001))
	// another course
	require.NoError(t, repo.MarkContentComplete(ctx, 1, 11, 101, 1002, now))

	attempts := []model.EvaluationAttempt{
		{UserID: 1, EvaluationID: 50, CourseID: 10, State: model.AttemptStateSubmitted, Passed: true, StartedAt: now},
		{UserID: 1, EvaluationID: 51, CourseID: 10, State: model.AttemptStateExpired, Passed: false, StartedAt: now},
		{UserID: 2, EvaluationID: 52, CourseID: 10, State: model.AttemptStateSubmitted, Passed: true, StartedAt: now},
	}
	require.NoError(t, db.Create(&attempts).Error)

	facts, err := repo.GetUserFacts(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, map[uint]bool{1000: true}, facts.CompletedContents)
	assert.Equal(t, map[uint]bool{50: true}, facts.PassedEvaluations)
}

func TestEnrollmentRepository_CompletionLatch(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewEnrollmentRepository(db)
	ctx := context.Background()
	testutil.Enroll(t, db, 1, 2)

	first := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.SetEnrollmentProgress(ctx, 1, 2, 100, &first))
	later := first.Add(time.Hour)
	require.NoError(t, repo.SetEnrollmentProgress(ctx, 1, 2, 80, &later))
	require.NoError(t, repo.SetEnrollmentProgress(ctx, 1, 2, 70, nil))

	e, err := repo.FindByUserAndCourse(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 70, e.Progress)
	require.NotNil(t, e.CompletedAt)
	assert.True(t, e.CompletedAt.Equal(first))

	_, err = repo.FindByUserAndCourse(ctx, 9, 2)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)
}
