package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/speaking-backend/internal/model"
)

// AttemptEventRepository stores the phase log of exam sessions.
type AttemptEventRepository struct {
	pool *pgxpool.Pool
}

func NewAttemptEventRepository(pool *pgxpool.Pool) *AttemptEventRepository {
	return &AttemptEventRepository{pool: pool}
}

// InsertBatch copies events in bulk.
func (r *AttemptEventRepository) InsertBatch(ctx context.Context, events []model.AttemptEvent) error {
	_, err := r.pool.CopyFrom(
		ctx,
		pgx.Identifier{"attempt_events"},
		[]string{"test_attempt_id", "question_number", "phase", "created_at"},
		pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
			e := events[i]
			return []any{e.AttemptID, e.QuestionNumber, e.Phase, e.CreatedAt}, nil
		}),
	)
	return err
}

// Insert stores a single event.
func (r *AttemptEventRepository) Insert(ctx context.Context, e model.AttemptEvent) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO attempt_events (test_attempt_id, question_number, phase, created_at)
		 VALUES ($1, $2, $3, $4)`,
		e.AttemptID, e.QuestionNumber, e.Phase, e.CreatedAt)
	return err
}

// ListByAttempt returns the event log of an attempt in order.
func (r *AttemptEventRepository) ListByAttempt(ctx context.Context, attemptID string) ([]model.AttemptEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT test_attempt_id, question_number, phase, created_at
		 FROM attempt_events WHERE test_attempt_id = $1
		 ORDER BY created_at, id`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []model.AttemptEvent{}
	for rows.Next() {
		var e model.AttemptEvent
		if err := rows.Scan(&e.AttemptID, &e.QuestionNumber, &e.Phase, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
