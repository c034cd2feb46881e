package service

import (
	"testing"
	"time"

	"course_core_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyCompletion_Latch(t *testing.T) {
	t1 := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	t2 := t1.Add(48 * time.Hour)

	enrollment := &model.Enrollment{}

	update := ApplyCompletion(enrollment, 60, t1)
	assert.Equal(t, 60, update.Progress)
	assert.Nil(t, update.CompletedAt)
	assert.False(t, update.JustCompleted)

	update = ApplyCompletion(enrollment, 100, t1)
	require.NotNil(t, update.CompletedAt)
	assert.Equal(t, t1, *update.CompletedAt)
	assert.True(t, update.JustCompleted)

	enrollment.CompletedAt = update.CompletedAt
	enrollment.Progress = update.Progress

	update = ApplyCompletion(enrollment, 90, t2)
	assert.Equal(t, 90, update.Progress)
	require.NotNil(t, update.CompletedAt)
	assert.Equal(t, t1, *update.CompletedAt)
	assert.False(t, update.JustCompleted)
}

func TestApplyCompletion_ClampsPercentage(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 0, ApplyCompletion(nil, -5, now).Progress)

	update := ApplyCompletion(nil, 130, now)
	assert.Equal(t, 100, update.Progress)
	assert.True(t, update.JustCompleted)
}
