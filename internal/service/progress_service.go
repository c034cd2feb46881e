package service

import (
	"context"
	"time"

	"course_core_backend/internal/model"
	"course_core_backend/internal/repository"
	"course_core_backend/pkg/logger"
	"course_core_backend/pkg/monitoring"
	"course_core_backend/pkg/tracing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// CatalogReader 读取课程目录结构
type CatalogReader interface {
	GetModuleTree(ctx context.Context, courseID uint) (*model.CourseTree, error)
	LocateContent(ctx context.Context, contentID uint) (*model.Content, *model.Module, error)
}

// FactsReader 读取用户的原始完成记录
type FactsReader interface {
	GetUserFacts(ctx context.Context, userID, courseID uint) (*model.UserFacts, error)
}

// EnrollmentWriter 写回报名进度
type EnrollmentWriter interface {
	FindByUserAndCourse(ctx context.Context, userID, courseID uint) (*model.Enrollment, error)
	SetEnrollmentProgress(ctx context.Context, userID, courseID uint, pct int, completedAt *time.Time) error
}

type ProgressService struct {
	Catalog      CatalogReader
	Facts        FactsReader
	Enrollments  EnrollmentWriter
	ProgressRepo *repository.UserProgressRepository
	Cache        *repository.ProgressCache
	now          func() time.Time
}

func NewProgressService(
	catalog CatalogReader,
	facts FactsReader,
	enrollments EnrollmentWriter,
	progressRepo *repository.UserProgressRepository,
	cache *repository.ProgressCache,
) *ProgressService {
	return &ProgressService{
		Catalog:      catalog,
		Facts:        facts,
		Enrollments:  enrollments,
		ProgressRepo: progressRepo,
		Cache:        cache,
		now:          time.Now,
	}
}

// MarkContentComplete 标记内容完成并重新计算课程进度
func (s *ProgressService) MarkContentComplete(ctx context.Context, userID, contentID uint) (*model.CourseProgressSummary, error) {
	return s.toggleContent(ctx, userID, contentID, true)
}

// MarkContentIncomplete 取消内容完成标记并重新计算课程进度
func (s *ProgressService) MarkContentIncomplete(ctx context.Context, userID, contentID uint) (*model.CourseProgressSummary, error) {
	return s.toggleContent(ctx, userID, contentID, false)
}

func (s *ProgressService) toggleContent(ctx context.Context, userID, contentID uint, completed bool) (*model.CourseProgressSummary, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ProgressService.toggleContent", trace.WithAttributes(
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("content.id", int64(contentID)),
		attribute.Bool("completed", completed),
	))
	defer span.End()

	content, module, err := s.Catalog.LocateContent(ctx, contentID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	if _, err := s.Enrollments.FindByUserAndCourse(ctx, userID, module.CourseID); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	if completed {
		err = s.ProgressRepo.MarkContentComplete(ctx, userID, module.CourseID, module.ID, content.ID, s.now())
	} else {
		err = s.ProgressRepo.MarkContentIncomplete(ctx, userID, content.ID)
	}
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	if err := s.Cache.Invalidate(ctx, userID, module.CourseID); err != nil {
		logger.Log.Warn("failed to invalidate course progress cache", zap.Uint("course_id", module.CourseID), zap.Error(err))
	}

	return s.RecomputeCourseProgress(ctx, userID, module.CourseID)
}

// RecomputeCourseProgress 由原始记录重算课程进度，写回报名记录并刷新缓存；
// 相同输入多次执行结果一致
func (s *ProgressService) RecomputeCourseProgress(ctx context.Context, userID, courseID uint) (*model.CourseProgressSummary, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ProgressService.RecomputeCourseProgress", trace.WithAttributes(
		attribute.Int64("user.id", int64(userID)),
		attribute.Int64("course.id", int64(courseID)),
	))
	defer span.End()

	summary, err := s.compute(ctx, userID, courseID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	monitoring.ProgressRecomputations.Inc()

	enrollment, err := s.Enrollments.FindByUserAndCourse(ctx, userID, courseID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	update := ApplyCompletion(enrollment, summary.Percentage, s.now())
	if err := s.Enrollments.SetEnrollmentProgress(ctx, userID, courseID, update.Progress, update.CompletedAt); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	if update.JustCompleted {
		monitoring.EnrollmentsCompleted.Inc()
		logger.Log.Info("enrollment completed",
			zap.Uint("user_id", userID),
			zap.Uint("course_id", courseID),
		)
	}

	if err := s.Cache.Set(ctx, userID, summary); err != nil {
		logger.Log.Warn("failed to cache course progress", zap.Uint("course_id", courseID), zap.Error(err))
	}
	span.SetAttributes(attribute.Int("progress.percentage", summary.Percentage))
	return summary, nil
}

// GetCourseProgress 优先读取缓存，未命中时实时计算，不写报名记录
func (s *ProgressService) GetCourseProgress(ctx context.Context, userID, courseID uint) (*model.CourseProgressSummary, error) {
	ctx, span := tracing.Tracer.Start(ctx, "ProgressService.GetCourseProgress")
	defer span.End()

	if _, err := s.Enrollments.FindByUserAndCourse(ctx, userID, courseID); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	cached, ok, err := s.Cache.Get(ctx, userID, courseID)
	if err != nil {
		logger.Log.Warn("failed to read course progress cache", zap.Uint("course_id", courseID), zap.Error(err))
	}
	if ok {
		monitoring.ProgressCacheLookups.WithLabelValues("hit").Inc()
		return cached, nil
	}
	monitoring.ProgressCacheLookups.WithLabelValues("miss").Inc()

	summary, err := s.compute(ctx, userID, courseID)
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}
	if err := s.Cache.Set(ctx, userID, summary); err != nil {
		logger.Log.Warn("failed to cache course progress", zap.Uint("course_id", courseID), zap.Error(err))
	}
	return summary, nil
}

func (s *ProgressService) compute(ctx context.Context, userID, courseID uint) (*model.CourseProgressSummary, error) {
	tree, err := s.Catalog.GetModuleTree(ctx, courseID)
	if err != nil {
		return nil, err
	}
	facts, err := s.Facts.GetUserFacts(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	return Aggregate(tree, facts), nil
}
