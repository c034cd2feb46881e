package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"course_core_backend/internal/model"
	"course_core_backend/internal/repository"
	"course_core_backend/internal/util"
	"course_core_backend/pkg/logger"
	"course_core_backend/pkg/monitoring"
	"course_core_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ProgressRecomputer 尝试进入终态后触发课程进度重算
type ProgressRecomputer interface {
	RecomputeCourseProgress(ctx context.Context, userID, courseID uint) (*model.CourseProgressSummary, error)
}

type AttemptService struct {
	DB             *gorm.DB
	EvaluationRepo *repository.EvaluationRepository
	AttemptRepo    *repository.EvaluationAttemptRepository
	ProgressRepo   *repository.UserProgressRepository
	Enrollments    EnrollmentWriter
	Progress       ProgressRecomputer
	now            func() time.Time
}

func NewAttemptService(
	db *gorm.DB,
	evaluationRepo *repository.EvaluationRepository,
	attemptRepo *repository.EvaluationAttemptRepository,
	progressRepo *repository.UserProgressRepository,
	enrollments EnrollmentWriter,
	progress ProgressRecomputer,
) *AttemptService {
	return &AttemptService{
		DB:             db,
		EvaluationRepo: evaluationRepo,
		AttemptRepo:    attemptRepo,
		ProgressRepo:   progressRepo,
		Enrollments:    enrollments,
		Progress:       progress,
		now:            time.Now,
	}
}

// SubmittedAnswer 提交或暂存的单题答案
type SubmittedAnswer struct {
	QuestionID  uint   `json:"questionId" binding:"required"`
	SelectedIDs []uint `json:"selectedIds"`
}

// Eligibility 能否开始新的尝试
type Eligibility struct {
	CanAttempt        bool   `json:"canAttempt"`
	Reason            string `json:"reason,omitempty"`
	AttemptsUsed      int    `json:"attemptsUsed"`
	MaxAttempts       *int   `json:"maxAttempts,omitempty"`
	RemainingAttempts *int   `json:"remainingAttempts,omitempty"`
	ActiveAttemptID   *uint  `json:"activeAttemptId,omitempty"`
}

// AttemptHistory 用户在某测评下的全部尝试
type AttemptHistory struct {
	Attempts     []model.EvaluationAttempt `json:"attempts"`
	Latest       *model.EvaluationAttempt  `json:"latest,omitempty"`
	Best         *model.EvaluationAttempt  `json:"best,omitempty"`
	AttemptsUsed int                       `json:"attemptsUsed"`
	MaxAttempts  *int                      `json:"maxAttempts,omitempty"`
}

// StartAttempt 开始新的尝试，先收尾已超时的旧尝试；
// 同一用户同一测评只能有一个进行中的尝试，并发开始由 active_key 唯一索引裁决
func (s *AttemptService) StartAttempt(ctx context.Context, userID, evaluationID uint) (*model.EvaluationAttempt, error) {
	ctx, span := tracing.Tracer.Start(ctx, "AttemptService.StartAttempt", trace.WithAttributes(
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("evaluation.id", int64(evaluationID)),
	))
	defer span.End()

	attempt, err := s.startAttempt(ctx, userID, evaluationID)
	if err != nil {
		s.reject(span, "start", err)
		return nil, err
	}

	monitoring.AttemptsStarted.Inc()
	logger.Log.Info("attempt started",
		zap.Uint("attempt_id", attempt.ID),
		zap.Uint("user_id", userID),
		zap.Uint("evaluation_id", evaluationID),
	)
	return attempt, nil
}

func (s *AttemptService) startAttempt(ctx context.Context, userID, evaluationID uint) (*model.EvaluationAttempt, error) {
	eval, module, err := s.EvaluationRepo.Locate(ctx, evaluationID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Enrollments.FindByUserAndCourse(ctx, userID, module.CourseID); err != nil {
		return nil, err
	}

	questions, total, err := SnapshotQuestions(eval.Questions, eval.QuestionCount)
	if err != nil {
		return nil, err
	}

	if err := s.expireStale(ctx, userID, evaluationID); err != nil {
		return nil, err
	}

	key := model.ActiveAttemptKey(userID, evaluationID)
	attempt := &model.EvaluationAttempt{
		UserID:       userID,
		EvaluationID: evaluationID,
		CourseID:     module.CourseID,
		ModuleID:     module.ID,
		State:        model.AttemptStateInProgress,
		StartedAt:    s.now(),
		TotalPoints:  total,
		PassingScore: eval.PassingScore,
		TimeLimit:    normalizeLimit(eval.TimeLimit),
		Questions:    questions,
		Answers:      model.AttemptAnswers(nil),
		ActiveKey:    &key,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.AttemptRepo.WithTx(tx)

		_, err := repo.FindInProgress(ctx, userID, evaluationID)
		if err == nil {
			return util.ErrAttemptAlreadyActive
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		used, err := repo.CountTerminal(ctx, userID, evaluationID)
		if err != nil {
			return err
		}
		if limitReached(eval.MaxAttempts, used) {
			return util.ErrAttemptLimitExceeded
		}

		if err := repo.Create(ctx, attempt); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return util.ErrAttemptAlreadyActive
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

// SaveAnswers 暂存答案，覆盖同一题目之前的选择
func (s *AttemptService) SaveAnswers(ctx context.Context, attemptID, userID uint, answers []SubmittedAnswer) (*model.EvaluationAttempt, error) {
	ctx, span := tracing.Tracer.Start(ctx, "AttemptService.SaveAnswers", trace.WithAttributes(
		attribute.Int64("attempt.id", int64(attemptID)),
	))
	defer span.End()

	attempt, err := s.openAttemptForWrite(ctx, attemptID, userID)
	if err != nil {
		s.reject(span, "save", err)
		return nil, err
	}

	selections, err := mergeSelections(attempt.Questions, attempt.Selections(), answers)
	if err != nil {
		s.reject(span, "save", err)
		return nil, err
	}
	drafts := draftAnswers(attempt.Questions, selections)
	if err := s.AttemptRepo.SaveAnswers(ctx, attempt.ID, drafts); err != nil {
		s.reject(span, "save", err)
		return nil, err
	}
	attempt.Answers = model.AttemptAnswers(drafts)
	return attempt, nil
}

// SubmitAttempt 评分并结束尝试；超时提交会被拒绝，
// 但尝试仍按已暂存的答案自动提交为 expired
func (s *AttemptService) SubmitAttempt(ctx context.Context, attemptID, userID uint, answers []SubmittedAnswer) (*model.EvaluationAttempt, error) {
	ctx, span := tracing.Tracer.Start(ctx, "AttemptService.SubmitAttempt", trace.WithAttributes(
		attribute.Int64("attempt.id", int64(attemptID)),
		attribute.Int64("user.id", int64(userID)),
	))
	defer span.End()

	attempt, err := s.openAttemptForWrite(ctx, attemptID, userID)
	if err != nil {
		s.reject(span, "submit", err)
		return nil, err
	}

	selections, err := mergeSelections(attempt.Questions, attempt.Selections(), answers)
	if err != nil {
		s.reject(span, "submit", err)
		return nil, err
	}

	done, err := s.finalize(ctx, attempt, selections, model.AttemptStateSubmitted, s.now())
	if err != nil {
		s.reject(span, "submit", err)
		return nil, err
	}
	return done, nil
}

// ExpireAttempt 超时自动提交，每个尝试只会成功一次，之后返回 ErrAttemptAlreadyTerminal
func (s *AttemptService) ExpireAttempt(ctx context.Context, attemptID uint) (*model.EvaluationAttempt, error) {
	ctx, span := tracing.Tracer.Start(ctx, "AttemptService.ExpireAttempt", trace.WithAttributes(
		attribute.Int64("attempt.id", int64(attemptID)),
	))
	defer span.End()

	attempt, err := s.AttemptRepo.FindByID(ctx, attemptID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	if attempt.State.IsTerminal() {
		s.reject(span, "expire", util.ErrAttemptAlreadyTerminal)
		return nil, util.ErrAttemptAlreadyTerminal
	}
	done, err := s.expire(ctx, attempt)
	if err != nil {
		s.reject(span, "expire", err)
		return nil, err
	}
	return done, nil
}

// FinalizeExpiredAttempts 批量收尾已超时的尝试，返回收尾数量
func (s *AttemptService) FinalizeExpiredAttempts(ctx context.Context) (int, error) {
	attempts, err := s.AttemptRepo.ListOpenTimed(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	finalized := 0
	for i := range attempts {
		a := &attempts[i]
		if IsActive(a, now) {
			continue
		}
		if _, err := s.expire(ctx, a); err != nil {
			if errors.Is(err, util.ErrAttemptAlreadyTerminal) {
				continue
			}
			logger.Log.Error("failed to finalize expired attempt", zap.Uint("attempt_id", a.ID), zap.Error(err))
			continue
		}
		finalized++
	}
	return finalized, nil
}

// CanAttempt 查询是否可以开始新的尝试及原因
func (s *AttemptService) CanAttempt(ctx context.Context, userID, evaluationID uint) (*Eligibility, error) {
	eval, err := s.EvaluationRepo.FindByID(ctx, evaluationID)
	if err != nil {
		return nil, err
	}

	used, err := s.AttemptRepo.CountTerminal(ctx, userID, evaluationID)
	if err != nil {
		return nil, err
	}

	active, err := s.AttemptRepo.FindInProgress(ctx, userID, evaluationID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if active != nil && !IsActive(active, s.now()) {
		// 已超时但尚未收尾，按终态计数
		used++
		active = nil
	}

	limit := normalizeLimit(eval.MaxAttempts)
	elig := &Eligibility{
		AttemptsUsed:      int(used),
		MaxAttempts:       limit,
		RemainingAttempts: remainingAttempts(limit, used),
	}
	switch {
	case active != nil:
		id := active.ID
		elig.Reason = util.ErrAttemptAlreadyActive.Error()
		elig.ActiveAttemptID = &id
	case limitReached(limit, used):
		elig.Reason = util.ErrAttemptLimitExceeded.Error()
	default:
		elig.CanAttempt = true
	}
	return elig, nil
}

// GetAttempt 获取本人的尝试，已超时的先收尾
func (s *AttemptService) GetAttempt(ctx context.Context, attemptID, userID uint) (*model.EvaluationAttempt, error) {
	attempt, err := s.AttemptRepo.FindByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, util.ErrNotOwner
	}
	if attempt.State == model.AttemptStateInProgress && !IsActive(attempt, s.now()) {
		done, err := s.expire(ctx, attempt)
		if err == nil {
			return done, nil
		}
		if !errors.Is(err, util.ErrAttemptAlreadyTerminal) {
			return nil, err
		}
		return s.AttemptRepo.FindByID(ctx, attemptID)
	}
	return attempt, nil
}

// ListAttempts 返回尝试列表以及最新和最佳尝试
func (s *AttemptService) ListAttempts(ctx context.Context, userID, evaluationID uint) (*AttemptHistory, error) {
	eval, err := s.EvaluationRepo.FindByID(ctx, evaluationID)
	if err != nil {
		return nil, err
	}
	if err := s.expireStale(ctx, userID, evaluationID); err != nil {
		return nil, err
	}

	attempts, err := s.AttemptRepo.ListByUserAndEvaluation(ctx, userID, evaluationID)
	if err != nil {
		return nil, err
	}

	history := &AttemptHistory{
		Attempts:    attempts,
		Latest:      SelectLatest(attempts),
		Best:        SelectBest(attempts),
		MaxAttempts: normalizeLimit(eval.MaxAttempts),
	}
	for _, a := range attempts {
		if a.State.IsTerminal() {
			history.AttemptsUsed++
		}
	}
	return history, nil
}

// SelectLatest 开始时间最晚的尝试
func SelectLatest(attempts []model.EvaluationAttempt) *model.EvaluationAttempt {
	var latest *model.EvaluationAttempt
	for i := range attempts {
		a := &attempts[i]
		if latest == nil || a.StartedAt.After(latest.StartedAt) ||
			(a.StartedAt.Equal(latest.StartedAt) && a.ID > latest.ID) {
			latest = a
		}
	}
	return latest
}

// SelectBest 已提交尝试中得分最高的一个，同分取最早提交的
func SelectBest(attempts []model.EvaluationAttempt) *model.EvaluationAttempt {
	candidates := make([]*model.EvaluationAttempt, 0, len(attempts))
	for i := range attempts {
		if attempts[i].SubmittedAt != nil {
			candidates = append(candidates, &attempts[i])
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if !a.SubmittedAt.Equal(*b.SubmittedAt) {
			return a.SubmittedAt.Before(*b.SubmittedAt)
		}
		return a.ID < b.ID
	})
	return candidates[0]
}

// openAttemptForWrite 加载仍可作答的尝试；已过截止时间的先自动提交，再返回 ErrExpiredAttempt
func (s *AttemptService) openAttemptForWrite(ctx context.Context, attemptID, userID uint) (*model.EvaluationAttempt, error) {
	attempt, err := s.AttemptRepo.FindByID(ctx, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.UserID != userID {
		return nil, util.ErrNotOwner
	}
	if attempt.State.IsTerminal() {
		return nil, util.ErrAttemptAlreadyTerminal
	}
	if !IsActive(attempt, s.now()) {
		if _, err := s.expire(ctx, attempt); err != nil && !errors.Is(err, util.ErrAttemptAlreadyTerminal) {
			logger.Log.Warn("auto-submit of expired attempt failed", zap.Uint("attempt_id", attempt.ID), zap.Error(err))
		}
		return nil, util.ErrExpiredAttempt
	}
	return attempt, nil
}

// expireStale 用户在该测评下的进行中尝试已超时则收尾
func (s *AttemptService) expireStale(ctx context.Context, userID, evaluationID uint) error {
	open, err := s.AttemptRepo.FindInProgress(ctx, userID, evaluationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if IsActive(open, s.now()) {
		return nil
	}
	if _, err := s.expire(ctx, open); err != nil && !errors.Is(err, util.ErrAttemptAlreadyTerminal) {
		return err
	}
	return nil
}

func (s *AttemptService) expire(ctx context.Context, attempt *model.EvaluationAttempt) (*model.EvaluationAttempt, error) {
	deadline, limited := ExpiresAt(attempt.StartedAt, attempt.TimeLimit)
	if !limited || IsActive(attempt, s.now()) {
		return nil, util.ErrAttemptStillActive
	}
	return s.finalize(ctx, attempt, attempt.Selections(), model.AttemptStateExpired, deadline)
}

// finalize 评分，并在同一事务中抢占终态和写入测评进度
func (s *AttemptService) finalize(ctx context.Context, attempt *model.EvaluationAttempt, selections map[uint][]uint, state model.AttemptState, at time.Time) (*model.EvaluationAttempt, error) {
	result, err := Grade(attempt.Questions, selections, attempt.PassingScore, attempt.TotalPoints)
	if err != nil {
		return nil, err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.AttemptRepo.WithTx(tx).Finalize(ctx, attempt.ID, repository.AttemptOutcome{
			State:       state,
			SubmittedAt: at,
			Score:       result.Score,
			Passed:      result.Passed,
			Answers:     result.Answers,
		}); err != nil {
			return err
		}
		return s.ProgressRepo.WithTx(tx).RecordEvaluationResult(ctx, repository.EvaluationResult{
			UserID:       attempt.UserID,
			CourseID:     attempt.CourseID,
			ModuleID:     attempt.ModuleID,
			EvaluationID: attempt.EvaluationID,
			Score:        result.Score,
			Passed:       result.Passed,
			At:           at,
		})
	})
	if err != nil {
		return nil, err
	}

	submittedAt := at
	attempt.State = state
	attempt.SubmittedAt = &submittedAt
	attempt.Score = result.Score
	attempt.Passed = result.Passed
	attempt.Answers = model.AttemptAnswers(result.Answers)
	attempt.ActiveKey = nil

	monitoring.AttemptsFinalized.WithLabelValues(string(state), strconv.FormatBool(result.Passed)).Inc()
	logger.Log.Info("attempt "+string(state),
		zap.Uint("attempt_id", attempt.ID),
		zap.Uint("user_id", attempt.UserID),
		zap.Int("score", result.Score),
		zap.Int("total_points", result.TotalPoints),
		zap.Bool("passed", result.Passed),
	)

	if s.Progress != nil {
		if _, err := s.Progress.RecomputeCourseProgress(ctx, attempt.UserID, attempt.CourseID); err != nil {
			logger.Log.Warn("failed to recompute course progress",
				zap.Uint("user_id", attempt.UserID),
				zap.Uint("course_id", attempt.CourseID),
				zap.Error(err),
			)
		}
	}
	return attempt, nil
}

func (s *AttemptService) reject(span trace.Span, operation string, err error) {
	tracing.RecordError(span, err)
	monitoring.AttemptRejections.WithLabelValues(operation, rejectionReason(err)).Inc()
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, util.ErrAttemptLimitExceeded):
		return "limit_exceeded"
	case errors.Is(err, util.ErrAttemptAlreadyActive):
		return "already_active"
	case errors.Is(err, util.ErrAttemptAlreadyTerminal):
		return "already_terminal"
	case errors.Is(err, util.ErrAttemptStillActive):
		return "still_active"
	case errors.Is(err, util.ErrExpiredAttempt):
		return "expired"
	case errors.Is(err, util.ErrNotOwner):
		return "not_owner"
	case errors.Is(err, util.ErrUnknownQuestion):
		return "unknown_question"
	case errors.Is(err, util.ErrInvalidSelection):
		return "invalid_selection"
	default:
		return "other"
	}
}

// mergeSelections 校验提交的答案并覆盖到暂存答案上，同一请求中每题只能出现一次
func mergeSelections(questions []model.AttemptQuestion, saved map[uint][]uint, answers []SubmittedAnswer) (map[uint][]uint, error) {
	incoming := make(map[uint][]uint, len(answers))
	for _, a := range answers {
		if _, dup := incoming[a.QuestionID]; dup {
			return nil, util.ErrInvalidSelection
		}
		selected := a.SelectedIDs
		if selected == nil {
			selected = []uint{}
		}
		incoming[a.QuestionID] = selected
	}
	if err := ValidateSelections(questions, incoming); err != nil {
		return nil, err
	}

	merged := make(map[uint][]uint, len(saved)+len(incoming))
	for qid, ids := range saved {
		merged[qid] = ids
	}
	for qid, ids := range incoming {
		merged[qid] = ids
	}
	return merged, nil
}

// draftAnswers 按快照顺序生成已作答题目的暂存记录
func draftAnswers(questions []model.AttemptQuestion, selections map[uint][]uint) []model.AttemptAnswer {
	drafts := make([]model.AttemptAnswer, 0, len(selections))
	for _, q := range questions {
		ids, ok := selections[q.QuestionID]
		if !ok {
			continue
		}
		drafts = append(drafts, model.AttemptAnswer{QuestionID: q.QuestionID, SelectedIDs: ids})
	}
	return drafts
}

// normalizeLimit 非正数视为不限制，返回 nil
func normalizeLimit(v *int) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	n := *v
	return &n
}

func limitReached(limit *int, used int64) bool {
	limit = normalizeLimit(limit)
	return limit != nil && used >= int64(*limit)
}

func remainingAttempts(limit *int, used int64) *int {
	if limit == nil {
		return nil
	}
	left := *limit - int(used)
	if left < 0 {
		left = 0
	}
	return &left
}
