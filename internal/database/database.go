// Package database opens the stores and brokers behind the quiz API.
package database

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/noah-isme/lanex-quiz-api/internal/models"
)

// Options selects the answer key store. A PostgresDSN wins over SQLitePath.
type Options struct {
	PostgresDSN string
	SQLitePath  string
	Debug       bool
}

// Open connects to PostgreSQL when a DSN is configured and falls back to SQLite.
func Open(opts Options) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if opts.Debug {
		cfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	switch {
	case opts.PostgresDSN != "":
		dialector = postgres.Open(opts.PostgresDSN)
	case opts.SQLitePath != "":
		dialector = sqlite.Open(opts.SQLitePath)
	default:
		return nil, fmt.Errorf("either a postgres dsn or a sqlite path is required")
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", dialector.Name(), err)
	}
	return db, nil
}

// Migrate creates or updates the answer key tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.TaskKey{}); err != nil {
		return fmt.Errorf("failed to migrate answer keys: %w", err)
	}
	return nil
}

// Pinger returns a health check for the underlying sql.DB pool.
func Pinger(db *gorm.DB) func(context.Context) error {
	return func(ctx context.Context) error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.PingContext(ctx)
	}
}
