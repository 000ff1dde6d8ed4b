// Command admin is the operator CLI: inspect complaints, change their
// status, retry pending point awards and manage official accounts.
package main

import (
	"context"
	"fmt"
	"os"

	"wangsammo/backend/internal/complaint"
	"wangsammo/backend/internal/config"
	"wangsammo/backend/internal/logging"
	"wangsammo/backend/internal/storage"

	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	if err := newRootCmd(openApp).Execute(); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app is what every subcommand works on.
type app struct {
	store      *storage.Service
	complaints *complaint.Service
	close      func()
}

func newApp(store *storage.Service, logger *zap.Logger) *app {
	// Status changes are published so running servers push them to dashboards.
	events := complaint.EventSinkFunc(store.PublishEvent)
	return &app{
		store:      store,
		complaints: complaint.NewService(store, nil, nil, nil, events, logger),
		close:      func() {},
	}
}

// openApp connects to PostgreSQL and, when reachable, Redis.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger, err := logging.New("warn", cfg.IsDevelopment())
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, live dashboards will not see changes", zap.Error(err))
			_ = rdb.Close()
			rdb = nil
		}
	}

	a := newApp(storage.NewStorageService(db, rdb, logger), logger)
	a.close = func() {
		if rdb != nil {
			_ = rdb.Close()
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		_ = logger.Sync()
	}
	return a, nil
}
