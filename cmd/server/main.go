package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/config"
	"github.com/stemsi/speaking-backend/internal/database"
	"github.com/stemsi/speaking-backend/internal/handler"
	"github.com/stemsi/speaking-backend/internal/logger"
	"github.com/stemsi/speaking-backend/internal/metrics"
	"github.com/stemsi/speaking-backend/internal/repository"
	"github.com/stemsi/speaking-backend/internal/router"
	"github.com/stemsi/speaking-backend/internal/service"
	"github.com/stemsi/speaking-backend/internal/storage"
	"github.com/stemsi/speaking-backend/internal/validator"
	"github.com/stemsi/speaking-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.FromConfig(cfg)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("storage", cfg.StorageDriver).
		Msg("Starting Speaking Test Backend")

	// ─── Initialize Validator & Metrics ────────────────────────────────
	validator.Setup()
	if cfg.MetricsEnabled {
		metrics.Init()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Object Storage ────────────────────────────────────────────────
	store := storage.New(ctx, cfg, log)

	// ─── Initialize Repositories ───────────────────────────────────────
	adminRepo := repository.NewAdminRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	candidateRepo := repository.NewCandidateRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	recordingRepo := repository.NewRecordingRepository(pool)
	eventRepo := repository.NewAttemptEventRepository(pool)
	guideRepo := repository.NewGuideAudioRepository(pool)
	scoreRepo := repository.NewScoreRepository(pool)
	dashboardRepo := repository.NewDashboardRepository(pool)
	monitorRepo := repository.NewMonitorRepository(pool, rdb)

	// New permissions ship with code; make sure the database knows them.
	if err := roleRepo.SyncPermissions(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to sync permissions")
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	adminService := service.NewAdminService(adminRepo, roleRepo, authService, rdb, log)
	adminUserService := service.NewAdminUserService(adminRepo, roleRepo, authService)
	adminRoleService := service.NewAdminRoleService(roleRepo)
	candidateService := service.NewCandidateService(cfg, candidateRepo, authService, log)
	questionService := service.NewQuestionService(questionRepo, log)
	mediaService := service.NewMediaService(cfg, store)
	guideService := service.NewGuideAudioService(cfg, guideRepo, mediaService, rdb, log)
	attemptService := service.NewAttemptService(cfg, attemptRepo, candidateRepo, questionRepo, rdb, log)
	recordingService := service.NewRecordingService(cfg, store, rdb, attemptService, log)
	monitorService := service.NewMonitorService(monitorRepo, rdb, log)
	sessionService := service.NewExamSessionService(cfg, attemptService, recordingService, guideService, monitorService, rdb, log)
	gradingService := service.NewGradingService(attemptRepo, recordingRepo, eventRepo)
	scoreService := service.NewScoreService(cfg, scoreRepo, candidateRepo, log)
	dashboardService := service.NewDashboardService(dashboardRepo, questionService, monitorService)

	// ─── Initialize Handlers ──────────────────────────────────────────
	// A dropped stream keeps its runner alive long enough to flush the
	// last recording.
	drainTimeout := cfg.UploadTimeout + cfg.RecordingGrace

	handlers := &router.Handlers{
		Auth:            handler.NewAuthHandler(authService, candidateService, adminService),
		CandidatePortal: handler.NewCandidatePortalHandler(candidateService, attemptService, recordingService, guideService),
		Candidate:       handler.NewCandidateHandler(candidateService),
		Question:        handler.NewQuestionHandler(questionService),
		Media:           handler.NewMediaHandler(mediaService),
		GuideAudio:      handler.NewGuideAudioHandler(guideService),
		Grading:         handler.NewGradingHandler(gradingService),
		Score:           handler.NewScoreHandler(scoreService),
		WS:              handler.NewWSHandler(sessionService, log, cfg.AllowedOrigins, drainTimeout),
		AdminUser:       handler.NewAdminUserHandler(adminUserService),
		AdminRole:       handler.NewAdminRoleHandler(adminRoleService),
		Dashboard:       handler.NewDashboardHandler(dashboardService),
		Monitor:         handler.NewMonitorHandler(rdb, monitorService, log),
		System:          handler.NewSystemHandler(pool, rdb, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	recordingWorker := worker.NewRecordingWorker(recordingRepo, rdb, log)
	eventWorker := worker.NewAttemptEventWorker(eventRepo, rdb, log)

	workersDone := make(chan struct{}, 3)
	for _, start := range []func(context.Context){recordingWorker.Start, eventWorker.Start, monitorService.Run} {
		go func(start func(context.Context)) {
			start(workerCtx)
			workersDone <- struct{}{}
		}(start)
	}

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Resolve guide audio once before the first exam asks for it.
	if _, err := guideService.Entries(ctx); err != nil {
		log.Warn().Err(err).Msg("Guide audio prewarm failed")
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests. Hijacked exam streams are not
	// tracked by Shutdown; give them time to drain their uploads.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), drainTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	deadline := time.After(10 * time.Second)
	for i := 0; i < cap(workersDone); i++ {
		select {
		case <-workersDone:
		case <-deadline:
			log.Warn().Msg("Workers did not stop in time")
			i = cap(workersDone)
		}
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
