package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"course_core_backend/internal/config"
	"course_core_backend/internal/controller"
	"course_core_backend/internal/middleware"
	"course_core_backend/internal/repository"
	"course_core_backend/internal/service"
	"course_core_backend/pkg/configwatcher"
	"course_core_backend/pkg/database"
	"course_core_backend/pkg/logger"
	"course_core_backend/pkg/monitoring"
	"course_core_backend/pkg/security"
	"course_core_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config          *config.Config
	ConfigDir       string
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	course       *repository.CourseRepository
	evaluation   *repository.EvaluationRepository
	attempt      *repository.EvaluationAttemptRepository
	userProgress *repository.UserProgressRepository
	enrollment   *repository.EnrollmentRepository
	cache        *repository.ProgressCache
}

type services struct {
	progress *service.ProgressService
	attempt  *service.AttemptService
}

type controllers struct {
	attempt  *controller.AttemptController
	progress *controller.ProgressController
	health   *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *repositories {
	return &repositories{
		course:       repository.NewCourseRepository(db),
		evaluation:   repository.NewEvaluationRepository(db),
		attempt:      repository.NewEvaluationAttemptRepository(db),
		userProgress: repository.NewUserProgressRepository(db),
		enrollment:   repository.NewEnrollmentRepository(db),
		cache:        repository.NewProgressCache(rdb, cfg.Progress.CacheTTL()),
	}
}

func (a *App) initServices(repos *repositories, db *gorm.DB) *services {
	s := &services{}

	s.progress = service.NewProgressService(
		repos.course,
		repos.userProgress,
		repos.enrollment,
		repos.userProgress,
		repos.cache,
	)
	s.attempt = service.NewAttemptService(
		db,
		repos.evaluation,
		repos.attempt,
		repos.userProgress,
		repos.enrollment,
		s.progress,
	)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		attempt:  controller.NewAttemptController(s.attempt),
		progress: controller.NewProgressController(s.progress),
		health:   controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(middleware.RequestID())
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	if cfg.RateLimit.MaxRequests > 0 {
		router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, window))
	}

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// initRedis 缓存为可选组件，连接失败时降级为实时计算
func initRedis(cfg *config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Warn("Redis unavailable, progress cache disabled", zap.Error(err))
		return nil
	}
	return rdb
}

func NewApp(cfg *config.Config, configDir string) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	gin.SetMode(cfg.Server.Mode)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	// release 模式默认不自动迁移，需要显式 -migrate
	if cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	rdb := initRedis(cfg)

	app := &App{
		Config:    cfg,
		ConfigDir: configDir,
		DB:        db,
		Redis:     rdb,
	}
	if cfg.MigrateOnly {
		return app
	}

	repos := app.initRepositories(db, rdb, cfg)
	services := app.initServices(repos, db)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("course-core", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	app.RegisterConfigCallback(func(newCfg *config.Config) {
		logger.SetLevel(newCfg.Log.Level)
	})

	return app
}

// FinalizeExpiredAttempts runs one sweep over timed-out attempts.
func (a *App) FinalizeExpiredAttempts(ctx context.Context) (int, error) {
	return a.services.attempt.FinalizeExpiredAttempts(ctx)
}

func (a *App) applyConfig(newCfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(newCfg)
	}
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	go func() {
		if err := configwatcher.WatchConfig(watchCtx, a.ConfigDir, a.applyConfig); err != nil {
			logger.Log.Warn("Config hot reload disabled", zap.Error(err))
		}
	}()

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close(ctx)
	logger.Log.Info("Server exiting")
}

// Close releases the tracer, Redis and database handles.
func (a *App) Close(ctx context.Context) {
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}
