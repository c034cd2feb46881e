package database

import (
	"course_core_backend/internal/config"
	"course_core_backend/internal/model"
	"course_core_backend/internal/util"
	"fmt"
	"log"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case util.DriverMySQL, "":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=Local",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.DBName,
			cfg.Charset,
			cfg.ParseTime,
		)
		return mysql.Open(dsn), nil
	case util.DriverPostgres:
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
			cfg.Host,
			cfg.User,
			cfg.Password,
			cfg.DBName,
			cfg.Port,
			cfg.SSLMode,
		)
		return postgres.Open(dsn), nil
	case util.DriverSQLite:
		return sqlite.Open(cfg.Path), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	d, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	logLevel := logger.Warn
	if cfg.LogSQL {
		logLevel = logger.Info
	}

	db, err := Open(d, logLevel)
	if err != nil {
		return nil, err
	}

	if cfg.Driver != util.DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(50)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log.Println("Database connection established")
	return db, nil
}

// Open wraps gorm.Open with the settings every caller relies on:
// duplicate-key violations surface as gorm.ErrDuplicatedKey.
func Open(d gorm.Dialector, logLevel logger.LogLevel) (*gorm.DB, error) {
	return gorm.Open(d, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
}

func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&model.Course{},
		&model.Module{},
		&model.Content{},
		&model.Evaluation{},
		&model.Question{},
		&model.Answer{},
		&model.EvaluationAttempt{},
		&model.UserProgress{},
		&model.Enrollment{},
	)
	if err != nil {
		return err
	}

	log.Println("Database migration completed")
	return nil
}
