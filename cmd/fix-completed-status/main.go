package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/stemsi/speaking-backend/internal/config"
	"github.com/stemsi/speaking-backend/internal/database"
	"github.com/stemsi/speaking-backend/internal/logger"
	"github.com/stemsi/speaking-backend/internal/repository"
)

// Repairs candidates whose exam ended without the completion call reaching
// the server: attempts that hold recordings but were never closed are
// completed, then every candidate owning a completed attempt is flagged.
func main() {
	var grace time.Duration
	flag.DurationVar(&grace, "grace", 2*time.Hour, "Skip attempts started within this window (they may still be running)")
	flag.Parse()

	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(logger.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	attemptRepo := repository.NewAttemptRepository(pool)
	candidateRepo := repository.NewCandidateRepository(pool)

	fmt.Println("=== Fix Completed Status ===")

	// 1. Close attempts that recorded answers but never completed.
	closed, err := attemptRepo.CloseStaleWithRecordings(ctx, time.Now().Add(-grace))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to close stale attempts")
	}
	fmt.Printf("Closed %d stale attempts with recordings.\n", closed)

	// 2. Flag their candidates as completed.
	marked, err := candidateRepo.MarkCompletedFromAttempts(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to mark candidates completed")
	}
	fmt.Printf("Marked %d candidates as completed.\n", marked)

	log.Info().Int64("attempts_closed", closed).Int64("candidates_marked", marked).Msg("Completed status repaired")
}
