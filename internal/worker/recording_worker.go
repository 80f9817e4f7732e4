package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/config"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/repository"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis

	// maxJobAttempts caps how often a recording row is requeued before it
	// is dropped with an error log.
	maxJobAttempts = 5
)

// RecordingStore persists recording metadata.
type RecordingStore interface {
	UpsertBatch(ctx context.Context, jobs []model.RecordingJob) error
}

var _ RecordingStore = (*repository.RecordingRepository)(nil)

// RecordingWorker consumes persist_recordings_queue and UPSERTs recording
// metadata to PostgreSQL.
type RecordingWorker struct {
	store RecordingStore
	rdb   *redis.Client
	log   zerolog.Logger

	retryDelay time.Duration
}

// NewRecordingWorker creates a new RecordingWorker.
func NewRecordingWorker(store RecordingStore, rdb *redis.Client, log zerolog.Logger) *RecordingWorker {
	return &RecordingWorker{
		store:      store,
		rdb:        rdb,
		log:        log.With().Str("component", "recording_worker").Logger(),
		retryDelay: 2 * time.Second,
	}
}

// Start begins the worker loop. Call in a goroutine.
func (w *RecordingWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	batch := make([]model.RecordingJob, 0, BatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 && (len(batch) >= BatchSize || time.Since(lastFlush) >= BatchTimeout) {
			w.flush(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Worker stopping...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			w.flush(shutdownCtx, batch)
			w.drain(shutdownCtx)
			cancel()
			w.log.Info().Msg("Worker stopped")
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistRecordingsQueue).Result()
		if err != nil {
			if err == redis.Nil || ctx.Err() != nil {
				continue
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}
		if len(result) < 2 {
			continue
		}

		var job model.RecordingJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}
		batch = append(batch, job)
	}
}

// flush writes the batch, falling back to one row at a time so a single bad
// row does not hold back the rest.
func (w *RecordingWorker) flush(ctx context.Context, batch []model.RecordingJob) {
	if len(batch) == 0 {
		return
	}
	err := w.store.UpsertBatch(ctx, batch)
	if err == nil {
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Batch upsert failed, attempting row-by-row recovery")

	var failed []model.RecordingJob
	for _, job := range batch {
		if err := w.store.UpsertBatch(ctx, []model.RecordingJob{job}); err != nil {
			w.log.Error().Err(err).
				Str("attempt_id", job.AttemptID).
				Int("question_number", job.QuestionNumber).
				Msg("Persist error")
			failed = append(failed, job)
		}
	}
	if len(failed) > 0 {
		w.requeue(ctx, failed)
	}
}

func (w *RecordingWorker) requeue(ctx context.Context, jobs []model.RecordingJob) {
	pipe := w.rdb.Pipeline()
	queued := 0
	for _, job := range jobs {
		job.Attempts++
		if job.Attempts >= maxJobAttempts {
			w.log.Error().
				Str("attempt_id", job.AttemptID).
				Int("question_number", job.QuestionNumber).
				Str("object_key", job.ObjectKey).
				Msg("Dropping recording metadata after repeated failures")
			continue
		}
		data, err := json.Marshal(job)
		if err != nil {
			continue
		}
		pipe.RPush(ctx, config.WorkerKey.PersistRecordingsQueue, data)
		queued++
	}
	if queued == 0 {
		return
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue recording metadata")
		return
	}
	w.log.Info().Int("count", queued).Msg("Requeued failed items back to Redis")
	time.Sleep(w.retryDelay)
}

// drain persists whatever is still queued before shutdown.
func (w *RecordingWorker) drain(ctx context.Context) {
	drained := 0
	for ctx.Err() == nil {
		raw, err := w.rdb.LPop(ctx, config.WorkerKey.PersistRecordingsQueue).Result()
		if err != nil {
			break
		}

		var job model.RecordingJob
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			w.log.Error().Err(err).Msg("Drain unmarshal error")
			continue
		}
		if err := w.store.UpsertBatch(ctx, []model.RecordingJob{job}); err != nil {
			w.log.Error().Err(err).Msg("Drain persist error")
			w.rdb.RPush(ctx, config.WorkerKey.PersistRecordingsQueue, raw)
			break
		}
		drained++
	}

	if drained > 0 {
		w.log.Info().Int("count", drained).Msg("Drained remaining items")
	}
}
