package service

import (
	"context"
	"testing"
	"time"

	"course_core_backend/internal/model"
	"course_core_backend/internal/testutil"
	"course_core_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkContentComplete_RequiresEnrollment(t *testing.T) {
	env := newTestEnv(t)
	course := testutil.Course(t, env.db)
	module := testutil.Module(t, env.db, course.ID, 1)
	lesson := testutil.Content(t, env.db, module.ID, 1)

	_, err := env.progress.MarkContentComplete(context.Background(), 5, lesson.ID)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)

	_, err = env.progress.MarkContentComplete(context.Background(), 5, 9999)
	assert.ErrorIs(t, err, util.ErrContentNotFound)
}

func TestMarkContent_CompletionLatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const user = uint(11)

	course := testutil.Course(t, env.db)
	module := testutil.Module(t, env.db, course.ID, 1)
	var lessons []*model.Content
	for i := 0; i < 10; i++ {
		lessons = append(lessons, testutil.Content(t, env.db, module.ID, i))
	}
	testutil.Enroll(t, env.db, user, course.ID)

	for i, l := range lessons {
		summary, err := env.progress.MarkContentComplete(ctx, user, l.ID)
		require.NoError(t, err)
		assert.Equal(t, (i+1)*10, summary.Percentage)
	}

	completedAt := env.clock.Now()
	enrollment := env.enrollment(t, user, course.ID)
	assert.Equal(t, 100, enrollment.Progress)
	require.NotNil(t, enrollment.CompletedAt)
	assert.True(t, enrollment.CompletedAt.Equal(completedAt))

	env.clock.Advance(24 * time.Hour)
	summary, err := env.progress.MarkContentIncomplete(ctx, user, lessons[3].ID)
	require.NoError(t, err)
	assert.Equal(t, 90, summary.Percentage)
	assert.False(t, summary.IsCompleted)

	enrollment = env.enrollment(t, user, course.ID)
	assert.Equal(t, 90, enrollment.Progress)
	require.NotNil(t, enrollment.CompletedAt)
	assert.True(t, enrollment.CompletedAt.Equal(completedAt))

	// reaching 100 again keeps the first completion time
	_, err = env.progress.MarkContentComplete(ctx, user, lessons[3].ID)
	require.NoError(t, err)
	enrollment = env.enrollment(t, user, course.ID)
	assert.True(t, enrollment.CompletedAt.Equal(completedAt))
}

func TestMarkContentComplete_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const user = uint(3)

	course := testutil.Course(t, env.db)
	module := testutil.Module(t, env.db, course.ID, 1)
	lesson := testutil.Content(t, env.db, module.ID, 1)
	testutil.Content(t, env.db, module.ID, 2)
	testutil.Enroll(t, env.db, user, course.ID)

	first := env.clock.Now()
	_, err := env.progress.MarkContentComplete(ctx, user, lesson.ID)
	require.NoError(t, err)
	env.clock.Advance(time.Hour)
	summary, err := env.progress.MarkContentComplete(ctx, user, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, summary.Percentage)

	row, err := env.progress.ProgressRepo.FindItem(ctx, user, model.ProgressItemContent, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, row.Attempts)
	require.NotNil(t, row.CompletedAt)
	assert.True(t, row.CompletedAt.Equal(first))
}

func TestMarkContentIncomplete_WithoutPriorRecord(t *testing.T) {
	env := newTestEnv(t)
	course := testutil.Course(t, env.db)
	module := testutil.Module(t, env.db, course.ID, 1)
	lesson := testutil.Content(t, env.db, module.ID, 1)
	testutil.Enroll(t, env.db, 8, course.ID)

	summary, err := env.progress.MarkContentIncomplete(context.Background(), 8, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Percentage)
}

func TestGetCourseProgress_ModulesAndDeletedItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const user = uint(21)

	course := testutil.Course(t, env.db)
	m1 := testutil.Module(t, env.db, course.ID, 1)
	m2 := testutil.Module(t, env.db, course.ID, 2)
	c1 := testutil.Content(t, env.db, m1.ID, 1)
	c2 := testutil.Content(t, env.db, m1.ID, 2)
	c3 := testutil.Content(t, env.db, m2.ID, 1)
	testutil.Content(t, env.db, m2.ID, 2)
	testutil.Enroll(t, env.db, user, course.ID)

	for _, c := range []*model.Content{c1, c2, c3} {
		_, err := env.progress.MarkContentComplete(ctx, user, c.ID)
		require.NoError(t, err)
	}

	summary, err := env.progress.GetCourseProgress(ctx, user, course.ID)
	require.NoError(t, err)
	require.Len(t, summary.Modules, 2)
	assert.Equal(t, 100, summary.Modules[0].Percentage)
	assert.Equal(t, model.ModuleStatusCompleted, summary.Modules[0].Status)
	assert.Equal(t, 50, summary.Modules[1].Percentage)
	assert.Equal(t, model.ModuleStatusAvailable, summary.Modules[1].Status)
	assert.Equal(t, 75, summary.Percentage)

	// a completed item that is later removed from the catalog no longer counts
	require.NoError(t, env.db.Delete(c3).Error)
	summary, err = env.progress.RecomputeCourseProgress(ctx, user, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Modules[1].Percentage)
	assert.Equal(t, 1, summary.Modules[1].TotalItems)
	assert.Equal(t, 50, summary.Percentage)
}

func TestGetCourseProgress_NotEnrolled(t *testing.T) {
	env := newTestEnv(t)
	course := testutil.Course(t, env.db)

	_, err := env.progress.GetCourseProgress(context.Background(), 1, course.ID)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)
}

func TestRecomputeCourseProgress_EmptyCourse(t *testing.T) {
	env := newTestEnv(t)
	course := testutil.Course(t, env.db)
	testutil.Enroll(t, env.db, 2, course.ID)

	summary, err := env.progress.RecomputeCourseProgress(context.Background(), 2, course.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, summary.Percentage)
	assert.NotNil(t, env.enrollment(t, 2, course.ID).CompletedAt)
}
