package service

import (
	"math"

	"course_core_backend/internal/model"
)

// ItemCompleted 判断单个条目是否完成，缺少记录视为未完成
func ItemCompleted(item model.ItemRef, facts *model.UserFacts) bool {
	if facts == nil {
		return false
	}
	switch item.Type {
	case model.ProgressItemContent:
		return facts.CompletedContents[item.ID]
	case model.ProgressItemEvaluation:
		return facts.PassedEvaluations[item.ID]
	}
	return false
}

// countable 过滤已删除或 ID 无效的条目
func countable(item model.ItemRef) bool {
	if item.ID == 0 || item.Deleted {
		return false
	}
	return item.Type == model.ProgressItemContent || item.Type == model.ProgressItemEvaluation
}

// AggregateModule 计算单个模块的完成情况；没有条目的模块视为 100%
func AggregateModule(node model.ModuleNode, facts *model.UserFacts) model.ModuleProgressDetail {
	detail := model.ModuleProgressDetail{
		ModuleID: node.ModuleID,
		Title:    node.Title,
	}
	seen := make(map[model.ItemRef]bool, len(node.Items))
	for _, item := range node.Items {
		if !countable(item) {
			continue
		}
		key := model.ItemRef{Type: item.Type, ID: item.ID}
		if seen[key] {
			continue
		}
		seen[key] = true
		detail.TotalItems++
		if ItemCompleted(item, facts) {
			detail.CompletedItems++
		}
	}
	detail.Percentage = percentOf(detail.CompletedItems, detail.TotalItems)
	return detail
}

// CoursePercentage 各模块百分比的平均值（四舍五入）；没有模块时为 100
func CoursePercentage(modulePercentages []int) int {
	if len(modulePercentages) == 0 {
		return 100
	}
	sum := 0
	for _, p := range modulePercentages {
		sum += p
	}
	return roundHalfUp(float64(sum) / float64(len(modulePercentages)))
}

// Aggregate 汇总课程进度；模块按顺序解锁，第一个始终可学，之后的需前一个完成
func Aggregate(tree *model.CourseTree, facts *model.UserFacts) *model.CourseProgressSummary {
	summary := &model.CourseProgressSummary{
		CourseID: tree.CourseID,
		Modules:  make([]model.ModuleProgressDetail, 0, len(tree.Modules)),
	}
	percentages := make([]int, 0, len(tree.Modules))
	previousDone := true
	for _, node := range tree.Modules {
		detail := AggregateModule(node, facts)
		switch {
		case detail.Percentage >= 100:
			detail.Status = model.ModuleStatusCompleted
		case previousDone:
			detail.Status = model.ModuleStatusAvailable
		default:
			detail.Status = model.ModuleStatusLocked
		}
		previousDone = detail.Percentage >= 100
		percentages = append(percentages, detail.Percentage)
		summary.Modules = append(summary.Modules, detail)
	}
	summary.Percentage = CoursePercentage(percentages)
	summary.IsCompleted = summary.Percentage >= 100
	return summary
}

func percentOf(completed, total int) int {
	if total == 0 {
		return 100
	}
	return roundHalfUp(float64(completed) * 100 / float64(total))
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
