package service

import (
	"testing"

	"course_core_backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func content(id uint) model.ItemRef {
	return model.ItemRef{Type: model.ProgressItemContent, ID: id}
}

func evaluation(id uint) model.ItemRef {
	return model.ItemRef{Type: model.ProgressItemEvaluation, ID: id}
}

func facts(contents []uint, evaluations []uint) *model.UserFacts {
	f := model.NewUserFacts()
	for _, id := range contents {
		f.CompletedContents[id] = true
	}
	for _, id := range evaluations {
		f.PassedEvaluations[id] = true
	}
	return f
}

func TestAggregateModule_MixedItems(t *testing.T) {
	node := model.ModuleNode{ModuleID: 1, Items: []model.ItemRef{
		content(1), content(2), evaluation(1), evaluation(2),
	}}

	detail := AggregateModule(node, facts([]uint{1}, []uint{1}))

	assert.Equal(t, 4, detail.TotalItems)
	assert.Equal(t, 2, detail.CompletedItems)
	assert.Equal(t, 50, detail.Percentage)
}

func TestAggregateModule_EmptyModuleIsComplete(t *testing.T) {
	detail := AggregateModule(model.ModuleNode{ModuleID: 3}, nil)
	assert.Equal(t, 100, detail.Percentage)
	assert.Equal(t, 0, detail.TotalItems)
}

func TestAggregateModule_SkipsDeletedItems(t *testing.T) {
	node := model.ModuleNode{ModuleID: 1, Items: []model.ItemRef{
		content(1),
		{Type: model.ProgressItemContent, ID: 2, Deleted: true},
		{Type: model.ProgressItemContent, ID: 0},
		evaluation(5),
	}}

	detail := AggregateModule(node, facts([]uint{1, 2}, nil))

	assert.Equal(t, 2, detail.TotalItems)
	assert.Equal(t, 1, detail.CompletedItems)
	assert.Equal(t, 50, detail.Percentage)
}

func TestAggregateModule_Rounding(t *testing.T) {
	node := model.ModuleNode{Items: []model.ItemRef{content(1), content(2), content(3)}}

	assert.Equal(t, 33, AggregateModule(node, facts([]uint{1}, nil)).Percentage)
	assert.Equal(t, 67, AggregateModule(node, facts([]uint{1, 2}, nil)).Percentage)
}

func TestCoursePercentage(t *testing.T) {
	assert.Equal(t, 75, CoursePercentage([]int{50, 100}))
	assert.Equal(t, 100, CoursePercentage(nil))
	assert.Equal(t, 34, CoursePercentage([]int{33, 33, 35}))
	assert.Equal(t, 17, CoursePercentage([]int{0, 33}))
}

func TestAggregate_ModuleStatus(t *testing.T) {
	tree := &model.CourseTree{CourseID: 9, Modules: []model.ModuleNode{
		{ModuleID: 1, Items: []model.ItemRef{content(1)}},
		{ModuleID: 2, Items: []model.ItemRef{content(2), content(3)}},
		{ModuleID: 3, Items: []model.ItemRef{evaluation(1)}},
	}}

	summary := Aggregate(tree, facts([]uint{1, 2}, nil))

	require.Len(t, summary.Modules, 3)
	assert.Equal(t, model.ModuleStatusCompleted, summary.Modules[0].Status)
	assert.Equal(t, model.ModuleStatusAvailable, summary.Modules[1].Status)
	assert.Equal(t, model.ModuleStatusLocked, summary.Modules[2].Status)
	// (100 + 50 + 0) / 3
	assert.Equal(t, 50, summary.Percentage)
	assert.False(t, summary.IsCompleted)
}

func TestAggregate_EmptyCourse(t *testing.T) {
	summary := Aggregate(&model.CourseTree{CourseID: 1}, model.NewUserFacts())
	assert.Equal(t, 100, summary.Percentage)
	assert.True(t, summary.IsCompleted)
}

func TestAggregate_IsDeterministic(t *testing.T) {
	tree := &model.CourseTree{Modules: []model.ModuleNode{
		{ModuleID: 1, Items: []model.ItemRef{content(1), evaluation(1)}},
		{ModuleID: 2, Items: []model.ItemRef{content(2)}},
	}}
	f := facts([]uint{2}, []uint{1})
	assert.Equal(t, Aggregate(tree, f), Aggregate(tree, f))
}
