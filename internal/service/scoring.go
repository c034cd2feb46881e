package service

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"course_core_backend/internal/model"
	"course_core_backend/internal/util"
)

// GradeResult 评分结果，Answers 与题目快照一一对应
type GradeResult struct {
	Answers     []model.AttemptAnswer `json:"answers"`
	Score       int                   `json:"score"`
	TotalPoints int                   `json:"totalPoints"`
	Passed      bool                  `json:"passed"`
}

// ValidateQuestion 校验题目可评分：分值为正，单选恰有一个正确答案，多选至少一个
func ValidateQuestion(q model.Question) error {
	if q.Points <= 0 {
		return fmt.Errorf("%w: question %d has non-positive points", util.ErrInvalidQuestion, q.ID)
	}
	correct := 0
	for _, a := range q.Answers {
		if a.IsCorrect {
			correct++
		}
	}
	switch q.Type {
	case model.QuestionTypeSingle:
		if correct != 1 {
			return fmt.Errorf("%w: single choice question %d has %d correct answers", util.ErrInvalidQuestion, q.ID, correct)
		}
	case model.QuestionTypeMultiple:
		if correct < 1 {
			return fmt.Errorf("%w: multiple choice question %d has no correct answer", util.ErrInvalidQuestion, q.ID)
		}
	default:
		return fmt.Errorf("%w: question %d has unknown type %q", util.ErrInvalidQuestion, q.ID, q.Type)
	}
	return nil
}

// SnapshotQuestions 冻结本次尝试的题目与评分依据，返回快照及其总分。
// count > 0 且小于题目数时随机抽取 count 道题，抽中的题目仍按 order 排列；
// 题目不足 count 道时返回 ErrInvalidQuestion
func SnapshotQuestions(questions []model.Question, count int) ([]model.AttemptQuestion, int, error) {
	if count > 0 && len(questions) < count {
		return nil, 0, fmt.Errorf("%w: evaluation needs %d questions, has %d", util.ErrInvalidQuestion, count, len(questions))
	}
	for _, q := range questions {
		if err := ValidateQuestion(q); err != nil {
			return nil, 0, err
		}
	}

	ordered := make([]model.Question, len(questions))
	copy(ordered, questions)
	if count > 0 && count < len(ordered) {
		// Fisher-Yates 洗牌后取前 count 道
		rand.Shuffle(len(ordered), func(i, j int) {
			ordered[i], ordered[j] = ordered[j], ordered[i]
		})
		ordered = ordered[:count]
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Order != ordered[j].Order {
			return ordered[i].Order < ordered[j].Order
		}
		return ordered[i].ID < ordered[j].ID
	})

	snapshot := make([]model.AttemptQuestion, 0, len(ordered))
	total := 0
	for _, q := range ordered {
		aq := model.AttemptQuestion{
			QuestionID: q.ID,
			Type:       q.Type,
			Points:     q.Points,
			OptionIDs:  make([]uint, 0, len(q.Answers)),
			CorrectIDs: []uint{},
		}
		for _, a := range q.Answers {
			aq.OptionIDs = append(aq.OptionIDs, a.ID)
			if a.IsCorrect {
				aq.CorrectIDs = append(aq.CorrectIDs, a.ID)
			}
		}
		snapshot = append(snapshot, aq)
		total += q.Points
	}
	return snapshot, total, nil
}

// ValidateSelections 拒绝快照外的题目，以及为 0、重复或不属于该题的选项
func ValidateSelections(questions []model.AttemptQuestion, selections map[uint][]uint) error {
	index := make(map[uint]model.AttemptQuestion, len(questions))
	for _, q := range questions {
		index[q.QuestionID] = q
	}
	for qid, selected := range selections {
		q, ok := index[qid]
		if !ok {
			return fmt.Errorf("%w: %d", util.ErrUnknownQuestion, qid)
		}
		options := make(map[uint]bool, len(q.OptionIDs))
		for _, id := range q.OptionIDs {
			options[id] = true
		}
		seen := make(map[uint]bool, len(selected))
		for _, id := range selected {
			if id == 0 || seen[id] || !options[id] {
				return fmt.Errorf("%w: answer %d for question %d", util.ErrInvalidSelection, id, qid)
			}
			seen[id] = true
		}
	}
	return nil
}

// Grade 按冻结的题目快照评分；totalPoints 使用开始时记录的值，不重新计算。
// 每道题都会出现在结果中，未作答记为错误
func Grade(questions []model.AttemptQuestion, selections map[uint][]uint, passingScore, totalPoints int) (*GradeResult, error) {
	if err := ValidateSelections(questions, selections); err != nil {
		return nil, err
	}

	result := &GradeResult{
		Answers:     make([]model.AttemptAnswer, 0, len(questions)),
		TotalPoints: totalPoints,
	}
	for _, q := range questions {
		selected := selections[q.QuestionID]
		if selected == nil {
			selected = []uint{}
		}
		correct := isCorrect(q, selected)
		points := 0
		if correct {
			points = q.Points
		}
		result.Score += points
		result.Answers = append(result.Answers, model.AttemptAnswer{
			QuestionID:  q.QuestionID,
			SelectedIDs: selected,
			IsCorrect:   correct,
			Points:      points,
		})
	}
	result.Passed = result.Score >= passingScore
	return result, nil
}

func isCorrect(q model.AttemptQuestion, selected []uint) bool {
	if len(selected) == 0 {
		return false
	}
	switch q.Type {
	case model.QuestionTypeSingle:
		return len(selected) == 1 && len(q.CorrectIDs) == 1 && selected[0] == q.CorrectIDs[0]
	case model.QuestionTypeMultiple:
		return sameSet(selected, q.CorrectIDs)
	}
	return false
}

func sameSet(a, b []uint) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[uint]bool, len(a))
	for _, id := range a {
		set[id] = true
	}
	for _, id := range b {
		if !set[id] {
			return false
		}
	}
	return len(set) == len(b)
}
