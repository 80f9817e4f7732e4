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

// EventStore persists attempt phase events.
type EventStore interface {
	InsertBatch(ctx context.Context, events []model.AttemptEvent) error
	Insert(ctx context.Context, e model.AttemptEvent) error
}

var _ EventStore = (*repository.AttemptEventRepository)(nil)

// AttemptEventWorker copies the phase log of running exams into PostgreSQL.
type AttemptEventWorker struct {
	store EventStore
	rdb   *redis.Client
	log   zerolog.Logger
}

func NewAttemptEventWorker(store EventStore, rdb *redis.Client, log zerolog.Logger) *AttemptEventWorker {
	return &AttemptEventWorker{
		store: store,
		rdb:   rdb,
		log:   log.With().Str("component", "attempt_event_worker").Logger(),
	}
}

func (w *AttemptEventWorker) Start(ctx context.Context) {
	w.log.Info().Msg("Worker started")

	buffer := make([]model.AttemptEvent, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		// 1. Flush on size or age
		if len(buffer) > 0 && (len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout) {
			w.flushSafe(ctx, buffer)
			buffer = buffer[:0]
			lastFlushTime = time.Now()
		}

		// 2. Graceful shutdown
		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		// 3. Fetch from Redis
		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistAttemptEventsQueue).Result()
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

		var ev model.AttemptEvent
		if err := json.Unmarshal([]byte(result[1]), &ev); err != nil {
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed JSON")
			continue
		}
		buffer = append(buffer, ev)
	}
}

// flushSafe attempts a bulk copy, then row-by-row inserts. Rows that still
// fail are dropped: the event log is an audit trail, not exam data.
func (w *AttemptEventWorker) flushSafe(ctx context.Context, batch []model.AttemptEvent) {
	if len(batch) == 0 {
		return
	}
	err := w.store.InsertBatch(ctx, batch)
	if err == nil {
		return
	}
	w.log.Warn().Err(err).Int("count", len(batch)).Msg("Bulk insert failed, attempting row-by-row recovery")

	dropped := 0
	for _, ev := range batch {
		if err := w.store.Insert(ctx, ev); err != nil {
			dropped++
			w.log.Error().Err(err).
				Str("attempt_id", ev.AttemptID.String()).
				Str("phase", ev.Phase).
				Msg("Insert failed, dropping event")
		}
	}
	if dropped > 0 {
		w.log.Warn().Int("dropped", dropped).Msg("Attempt events lost")
	}
}

func (w *AttemptEventWorker) shutdown(buffer []model.AttemptEvent) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	w.flushSafe(shutdownCtx, buffer)
}
