package main

import (
	"context"
	"flag"
	"log"
	"time"

	"course_core_backend/internal/app"
	"course_core_backend/internal/config"
	"course_core_backend/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const configDir = "configs"

func main() {
	// 命令行参数
	migrateOnly := flag.Bool("migrate-only", false, "只执行数据库迁移，完成后退出")
	migrate := flag.Bool("migrate", false, "启动时强制执行数据库迁移（即使是 release 模式）")
	finalizeExpired := flag.Bool("finalize-expired", false, "结算所有已超时的测评尝试后退出")
	flag.Parse()

	// .env 可选，不存在时只使用环境变量
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 设置迁移标志
	cfg.ForceMigrate = *migrate || *migrateOnly
	cfg.MigrateOnly = *migrateOnly

	application := app.NewApp(cfg, configDir)
	defer logger.Log.Sync()

	// 迁移完成后直接退出
	if *migrateOnly {
		log.Println("数据库迁移完成，退出程序")
		application.Close(context.Background())
		return
	}

	if *finalizeExpired {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		n, err := application.FinalizeExpiredAttempts(ctx)
		if err != nil {
			logger.Log.Error("Failed to finalize expired attempts", zap.Error(err))
		} else {
			logger.Log.Info("Expired attempts finalized", zap.Int("count", n))
		}
		application.Close(ctx)
		return
	}

	application.Run()
}
