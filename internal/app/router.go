package app

import (
	"course_core_backend/internal/config"
	"course_core_backend/internal/middleware"
	"course_core_backend/internal/util"
	"course_core_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
	}

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerStudentRoutes(authGroup, c)
	}

	// 3. 管理接口
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(util.RoleTeacher))
	{
		admin.POST("/attempts/:id/expire", c.attempt.ExpireAttempt)
		admin.POST("/attempts/finalize-expired", c.attempt.FinalizeExpired)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	// 测评
	rg.POST("/evaluations/:id/attempts", c.attempt.StartAttempt)
	rg.GET("/evaluations/:id/attempts", c.attempt.ListAttempts)
	rg.GET("/evaluations/:id/eligibility", c.attempt.CanAttempt)
	rg.GET("/attempts/:id", c.attempt.GetAttempt)
	rg.PUT("/attempts/:id/answers", c.attempt.SaveAnswers)
	rg.POST("/attempts/:id/submit", c.attempt.SubmitAttempt)

	// 学习进度
	rg.POST("/contents/:id/complete", c.progress.MarkComplete)
	rg.DELETE("/contents/:id/complete", c.progress.MarkIncomplete)
	rg.GET("/courses/:id/progress", c.progress.GetCourseProgress)
}
