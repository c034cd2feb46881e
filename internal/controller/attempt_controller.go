package controller

import (
	"time"

	"course_core_backend/internal/model"
	"course_core_backend/internal/service"
	"course_core_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	AttemptService *service.AttemptService
	now            func() time.Time
}

func NewAttemptController(attemptService *service.AttemptService) *AttemptController {
	return &AttemptController{AttemptService: attemptService, now: time.Now}
}

// AttemptQuestionView 题目快照视图，不含正确答案
type AttemptQuestionView struct {
	QuestionID uint               `json:"questionId"`
	Type       model.QuestionType `json:"type"`
	Points     int                `json:"points"`
	OptionIDs  []uint             `json:"optionIds"`
}

// AttemptView 学员看到的尝试视图，正确与否仅在终态后返回
type AttemptView struct {
	ID               uint                  `json:"id"`
	EvaluationID     uint                  `json:"evaluationId"`
	State            model.AttemptState    `json:"state"`
	StartedAt        time.Time             `json:"startedAt"`
	SubmittedAt      *time.Time            `json:"submittedAt,omitempty"`
	ExpiresAt        *time.Time            `json:"expiresAt,omitempty"`
	RemainingSeconds *int                  `json:"remainingSeconds,omitempty"`
	Score            *int                  `json:"score,omitempty"`
	TotalPoints      int                   `json:"totalPoints"`
	PassingScore     int                   `json:"passingScore"`
	Passed           *bool                 `json:"passed,omitempty"`
	Questions        []AttemptQuestionView `json:"questions"`
	Answers          []model.AttemptAnswer `json:"answers"`
}

func newAttemptView(a *model.EvaluationAttempt, now time.Time) *AttemptView {
	if a == nil {
		return nil
	}
	v := &AttemptView{
		ID:           a.ID,
		EvaluationID: a.EvaluationID,
		State:        a.State,
		StartedAt:    a.StartedAt,
		SubmittedAt:  a.SubmittedAt,
		TotalPoints:  a.TotalPoints,
		PassingScore: a.PassingScore,
		Questions:    make([]AttemptQuestionView, 0, len(a.Questions)),
		Answers:      make([]model.AttemptAnswer, 0, len(a.Answers)),
	}
	for _, q := range a.Questions {
		v.Questions = append(v.Questions, AttemptQuestionView{
			QuestionID: q.QuestionID,
			Type:       q.Type,
			Points:     q.Points,
			OptionIDs:  q.OptionIDs,
		})
	}

	terminal := a.State.IsTerminal()
	for _, ans := range a.Answers {
		if !terminal {
			ans = model.AttemptAnswer{QuestionID: ans.QuestionID, SelectedIDs: ans.SelectedIDs}
		}
		v.Answers = append(v.Answers, ans)
	}
	if terminal {
		score, passed := a.Score, a.Passed
		v.Score = &score
		v.Passed = &passed
	}

	if deadline, ok := service.ExpiresAt(a.StartedAt, a.TimeLimit); ok {
		v.ExpiresAt = &deadline
		if !terminal {
			left, _ := service.RemainingSeconds(a.StartedAt, a.TimeLimit, now)
			v.RemainingSeconds = &left
		}
	}
	return v
}

type answersRequest struct {
	Answers []service.SubmittedAnswer `json:"answers" binding:"dive"`
}

// bindAnswers 空请求体视为没有答案
func bindAnswers(ctx *gin.Context) (answersRequest, bool) {
	var req answersRequest
	if ctx.Request.ContentLength == 0 {
		return req, true
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return req, false
	}
	return req, true
}

// StartAttempt 开始测评
func (c *AttemptController) StartAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	evalID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	attempt, err := c.AttemptService.StartAttempt(ctx.Request.Context(), user.UserID, evalID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, newAttemptView(attempt, c.now()))
}

// ListAttempts 测评尝试列表
func (c *AttemptController) ListAttempts(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	evalID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	history, err := c.AttemptService.ListAttempts(ctx.Request.Context(), user.UserID, evalID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	now := c.now()
	views := make([]*AttemptView, 0, len(history.Attempts))
	for i := range history.Attempts {
		views = append(views, newAttemptView(&history.Attempts[i], now))
	}
	util.Success(ctx, gin.H{
		"attempts":     views,
		"latest":       newAttemptView(history.Latest, now),
		"best":         newAttemptView(history.Best, now),
		"attemptsUsed": history.AttemptsUsed,
		"maxAttempts":  history.MaxAttempts,
	})
}

// CanAttempt 是否可以开始测评
func (c *AttemptController) CanAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	evalID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	elig, err := c.AttemptService.CanAttempt(ctx.Request.Context(), user.UserID, evalID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, elig)
}

// GetAttempt 获取测评尝试
func (c *AttemptController) GetAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	attemptID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	attempt, err := c.AttemptService.GetAttempt(ctx.Request.Context(), attemptID, user.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, newAttemptView(attempt, c.now()))
}

// SaveAnswers 暂存答案
func (c *AttemptController) SaveAnswers(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	attemptID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	req, ok := bindAnswers(ctx)
	if !ok {
		return
	}

	attempt, err := c.AttemptService.SaveAnswers(ctx.Request.Context(), attemptID, user.UserID, req.Answers)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, newAttemptView(attempt, c.now()))
}

// SubmitAttempt 提交测评
func (c *AttemptController) SubmitAttempt(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	attemptID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	req, ok := bindAnswers(ctx)
	if !ok {
		return
	}

	attempt, err := c.AttemptService.SubmitAttempt(ctx.Request.Context(), attemptID, user.UserID, req.Answers)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, newAttemptView(attempt, c.now()))
}

// ExpireAttempt 强制收尾超时尝试
func (c *AttemptController) ExpireAttempt(ctx *gin.Context) {
	attemptID, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	attempt, err := c.AttemptService.ExpireAttempt(ctx.Request.Context(), attemptID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, newAttemptView(attempt, c.now()))
}

// FinalizeExpired 批量收尾超时尝试
func (c *AttemptController) FinalizeExpired(ctx *gin.Context) {
	n, err := c.AttemptService.FinalizeExpiredAttempts(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"finalized": n})
}
