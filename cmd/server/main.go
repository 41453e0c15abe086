package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/talentbridge/aptitude-backend/internal/analyzer"
	"github.com/talentbridge/aptitude-backend/internal/config"
	"github.com/talentbridge/aptitude-backend/internal/database"
	"github.com/talentbridge/aptitude-backend/internal/handler"
	"github.com/talentbridge/aptitude-backend/internal/logger"
	"github.com/talentbridge/aptitude-backend/internal/model"
	"github.com/talentbridge/aptitude-backend/internal/repository"
	"github.com/talentbridge/aptitude-backend/internal/router"
	"github.com/talentbridge/aptitude-backend/internal/service"
	"github.com/talentbridge/aptitude-backend/internal/store"
	"github.com/talentbridge/aptitude-backend/internal/validator"
	"github.com/talentbridge/aptitude-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting TalentBridge Aptitude Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── PostgreSQL (Lazy) ─────────────────────────────────────────────
	// The pool connects on first use. A primary store that is down at
	// boot, or goes down later, degrades persistence to the local
	// fallback instead of failing startup.
	db := database.NewLazyPool(cfg, log)
	defer db.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	resultRepo := repository.NewResultRepository(db)
	violationRepo := repository.NewViolationRepository(db)

	// ─── Initialize Services ──────────────────────────────────────────
	fallback := store.NewFallback(cfg.ResultsDir(), cfg.ResumesDir(), log)
	attachments := service.NewAttachmentStore(cfg.UploadDir, cfg.MaxUploadBytes)
	gateway := service.NewGateway(resultRepo, attachments, fallback, log)
	violationQueue := service.NewViolationQueue(rdb, log)
	faceAnalyzer := analyzer.NewRemote(cfg.AnalyzerURL, cfg.AnalyzerTO, log)
	questions := model.DefaultQuestions()

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Result:   handler.NewResultHandler(gateway, cfg.MaxUploadBytes, log),
		Question: handler.NewQuestionHandler(questions),
		Proctor: handler.NewProctorHandler(
			faceAnalyzer,
			gateway,
			violationQueue,
			questions,
			cfg.SamplePeriod,
			cfg.WarmupTimeout,
			log,
			cfg.AllowedOrigins,
		),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	violationWorker := worker.NewViolationWorker(violationRepo, rdb, log)
	replayWorker := worker.NewReplayWorker(resultRepo, attachments, fallback, log)

	go violationWorker.Start(workerCtx)
	go replayWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(handlers, db, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
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

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
