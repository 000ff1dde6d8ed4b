package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"wangsammo/backend/internal/api/handler"
	"wangsammo/backend/internal/auth"
	"wangsammo/backend/internal/blobstore"
	"wangsammo/backend/internal/complaint"
	"wangsammo/backend/internal/config"
	"wangsammo/backend/internal/livefeed"
	"wangsammo/backend/internal/localization"
	"wangsammo/backend/internal/logging"
	"wangsammo/backend/internal/scheduler"
	"wangsammo/backend/internal/storage"
	"wangsammo/backend/internal/telegram"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*gorm.DB, *redis.Client) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		logger.Fatal("failed to connect PostgreSQL", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect Redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
	} else {
		logger.Warn("REDIS_ADDR is empty, running single-instance without Redis")
	}

	logger.Info("database connection established", zap.Bool("redis", rdb != nil))
	return db, rdb
}

func setupBlobstore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (blobstore.Store, *blobstore.MemoryStore) {
	if cfg.StorageBackend == "gcs" {
		store, err := blobstore.NewGCSStore(ctx, cfg.Buckets, cfg.PublicURLBase)
		if err != nil {
			logger.Fatal("failed to create object storage client", zap.Error(err))
		}
		return store, nil
	}
	logger.Warn("attachments are kept in memory and lost on restart")
	mem := blobstore.NewMemoryStore("")
	return mem, mem
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting Wang Sam Mo backend", zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Dependencies
	db, rdb := setupDependencies(ctx, cfg, logger)
	store := storage.NewStorageService(db, rdb, logger)
	if err := store.Migrate(); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	objects, mem := setupBlobstore(ctx, cfg, logger)
	if closer, ok := objects.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	localizer, err := localization.NewDefault()
	if err != nil {
		logger.Fatal("failed to load translations", zap.Error(err))
	}

	// 2. Live feed, relayed through Redis when there is one
	var publisher livefeed.Publisher
	if rdb != nil {
		publisher = store
	}
	hub := livefeed.NewHub(publisher, logger)
	go hub.Run(ctx)
	if rdb != nil {
		if err := hub.StartRelay(ctx, store); err != nil {
			logger.Fatal("failed to subscribe to the live feed", zap.Error(err))
		}
	}

	// 3. Services
	authSvc := auth.NewService(store, cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL, logger)

	var guard complaint.Guard
	if rdb != nil {
		guard = complaint.NewRedisGuard(store, config.SubmissionLockTTL, logger)
	}

	sinks := complaint.MultiSink{hub}
	var bot *telegram.BotService
	if cfg.TelegramToken != "" {
		bot, err = telegram.NewBotService(cfg.TelegramToken, cfg.TelegramOfficialID, localizer, logger)
		if err != nil {
			logger.Fatal("failed to start telegram bot", zap.Error(err))
		}
		sinks = append(sinks, bot.Notifier)
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN is not set, telegram bot disabled")
	}

	uploader := blobstore.NewUploader(objects, logger)
	complaints := complaint.NewService(store, uploader, authSvc, guard, sinks, logger)

	if bot != nil {
		go bot.Run(ctx, complaints)
	}

	jobs := scheduler.New(logger)
	if err := jobs.AddAwardRetry(cfg.AwardRetrySchedule, complaints, time.Minute); err != nil {
		logger.Fatal("failed to schedule award retries", zap.Error(err))
	}
	jobs.Start()

	// 4. HTTP
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	h := handler.NewHandler(complaints, authSvc, store, hub, localizer, logger)
	r := h.Router(cfg.CORSOrigins)
	if mem != nil {
		r.GET("/storage/:bucket/*path", handler.ServeMemoryObjects(mem))
	}

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        r,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}
	if err := jobs.Stop(shutdownCtx); err != nil {
		logger.Warn("scheduler did not stop in time", zap.Error(err))
	}
	select {
	case <-hub.Done():
	case <-shutdownCtx.Done():
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
