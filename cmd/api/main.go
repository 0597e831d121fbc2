package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	_ "github.com/attendly/attendly-api/api/swagger"
	"github.com/attendly/attendly-api/internal/handler"
	"github.com/attendly/attendly-api/internal/repository"
	"github.com/attendly/attendly-api/internal/router"
	"github.com/attendly/attendly-api/internal/service"
	"github.com/attendly/attendly-api/pkg/cache"
	"github.com/attendly/attendly-api/pkg/config"
	"github.com/attendly/attendly-api/pkg/database"
	"github.com/attendly/attendly-api/pkg/jobs"
	"github.com/attendly/attendly-api/pkg/logger"
	"github.com/attendly/attendly-api/pkg/storage"
)

// @title Attendly API
// @version 1.0.0
// @description School attendance portal backend
// @BasePath /api
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	store, err := storage.NewLocalStorage(cfg.Papers.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init paper storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Papers.SignedURLSecret, cfg.Papers.SignedURLTTL)

	userRepo := repository.NewUserRepository(db)
	requestRepo := repository.NewJoinRequestRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	noticeRepo := repository.NewNoticeRepository(db)
	paperRepo := repository.NewPaperRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close()

	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, logr)

	auditSvc := service.NewAuditService(userRepo, jobs.QueueConfig{
		Workers:    cfg.Audit.Workers,
		BufferSize: cfg.Audit.BufferSize,
		MaxRetries: cfg.Audit.MaxRetries,
	}, logr)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	auditSvc.Start(ctx)
	defer auditSvc.Stop()

	authSvc := service.NewAuthService(userRepo, auditSvc, cfg.JWT, logr)
	userSvc := service.NewUserService(userRepo, cacheSvc, auditSvc, cfg.Cache, logr)
	requestSvc := service.NewJoinRequestService(requestRepo, userRepo, cacheSvc, auditSvc, metricsSvc, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, userRepo, auditSvc, metricsSvc, logr)
	noticeSvc := service.NewNoticeService(noticeRepo, userRepo, auditSvc, logr)
	paperSvc := service.NewPaperService(paperRepo, userRepo, store, signer, auditSvc, cfg.Papers, logr)
	settingsSvc := service.NewSettingsService(settingsRepo, cacheSvc, auditSvc, cfg.Cache, logr)

	seedCtx, seedCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := userSvc.SeedAdmin(seedCtx, cfg.Admin); err != nil {
		logr.Sugar().Fatalw("failed to seed admin account", "error", err)
	}
	seedCancel()

	r := router.New(router.Dependencies{
		Config:    cfg,
		Logger:    logr,
		Auth:      authSvc,
		Metrics:   metricsSvc,
		AuthH:     handler.NewAuthHandler(authSvc),
		UserH:     handler.NewUserHandler(userSvc),
		RequestH:  handler.NewRequestHandler(requestSvc),
		AttendH:   handler.NewAttendanceHandler(attendanceSvc),
		NoticeH:   handler.NewNoticeHandler(noticeSvc),
		PaperH:    handler.NewPaperHandler(paperSvc),
		SettingsH: handler.NewSettingsHandler(settingsSvc),
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
