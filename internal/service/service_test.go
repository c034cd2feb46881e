package service

import (
	"sync"
	"testing"
	"time"

	"course_core_backend/internal/model"
	"course_core_backend/internal/repository"
	"course_core_backend/internal/testutil"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	db       *gorm.DB
	clock    *fakeClock
	attempts *AttemptService
	progress *ProgressService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)

	courseRepo := repository.NewCourseRepository(db)
	progressRepo := repository.NewUserProgressRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)

	progress := NewProgressService(courseRepo, progressRepo, enrollmentRepo, progressRepo, repository.NewProgressCache(nil, 0))
	attempts := NewAttemptService(
		db,
		repository.NewEvaluationRepository(db),
		repository.NewEvaluationAttemptRepository(db),
		progressRepo,
		enrollmentRepo,
		progress,
	)

	clock := &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	progress.now = clock.Now
	attempts.now = clock.Now

	return &testEnv{db: db, clock: clock, attempts: attempts, progress: progress}
}

// quizFixture is one course with one module holding a lesson and a quiz of
// a 5 point single choice and a 5 point multiple choice question.
type quizFixture struct {
	course  *model.Course
	module  *model.Module
	lesson  *model.Content
	eval    *model.Evaluation
	single  *model.Question
	multi   *model.Question
	student uint
}

func (e *testEnv) quiz(t *testing.T, passing int, maxAttempts, timeLimit *int) *quizFixture {
	t.Helper()
	f := &quizFixture{student: 42}
	f.course = testutil.Course(t, e.db)
	f.module = testutil.Module(t, e.db, f.course.ID, 1)
	f.lesson = testutil.Content(t, e.db, f.module.ID, 1)
	f.eval = testutil.Evaluation(t, e.db, f.module.ID, passing, maxAttempts, timeLimit)
	f.single = testutil.SingleChoice(t, e.db, f.eval.ID, 5, 1)
	f.multi = testutil.MultipleChoice(t, e.db, f.eval.ID, 5, 2)
	testutil.Enroll(t, e.db, f.student, f.course.ID)
	return f
}

func (f *quizFixture) allCorrect() []SubmittedAnswer {
	return []SubmittedAnswer{
		{QuestionID: f.single.ID, SelectedIDs: testutil.CorrectIDs(f.single)},
		{QuestionID: f.multi.ID, SelectedIDs: testutil.CorrectIDs(f.multi)},
	}
}

func (f *quizFixture) halfCorrect() []SubmittedAnswer {
	return []SubmittedAnswer{
		{QuestionID: f.single.ID, SelectedIDs: testutil.CorrectIDs(f.single)},
		{QuestionID: f.multi.ID, SelectedIDs: []uint{testutil.CorrectIDs(f.multi)[0]}},
	}
}

func (e *testEnv) enrollment(t *testing.T, userID, courseID uint) *model.Enrollment {
	t.Helper()
	var en model.Enrollment
	require.NoError(t, e.db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&en).Error)
	return &en
}
