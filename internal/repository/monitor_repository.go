package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stemsi/speaking-backend/internal/config"
)

// LiveAttempt is the last known position of a running exam session.
type LiveAttempt struct {
	AttemptID      string    `json:"attempt_id"`
	CandidateID    int       `json:"candidate_id"`
	CandidateName  string    `json:"candidate_name,omitempty"`
	ExamNumber     string    `json:"exam_number,omitempty"`
	Phase          string    `json:"phase"`
	QuestionNumber int       `json:"question_number"`
	Part           int       `json:"part"`
	Remaining      int       `json:"remaining"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// MonitorRepository provides data access for the live exam monitoring feature.
// It combines PostgreSQL (candidate identity) and Redis (live session positions).
type MonitorRepository struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
}

// NewMonitorRepository creates a new MonitorRepository.
func NewMonitorRepository(pool *pgxpool.Pool, rdb *redis.Client) *MonitorRepository {
	return &MonitorRepository{pool: pool, rdb: rdb}
}

// SaveLive stores the current position of a running attempt.
func (r *MonitorRepository) SaveLive(ctx context.Context, a LiveAttempt) error {
	data, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return r.rdb.HSet(ctx, config.CacheKey.LiveAttemptsKey(), a.AttemptID, data).Err()
}

// RemoveLive drops an attempt that reached a terminal state.
func (r *MonitorRepository) RemoveLive(ctx context.Context, attemptID string) error {
	return r.rdb.HDel(ctx, config.CacheKey.LiveAttemptsKey(), attemptID).Err()
}

// ListLive returns every running attempt enriched with candidate identity.
func (r *MonitorRepository) ListLive(ctx context.Context) ([]LiveAttempt, error) {
	raw, err := r.rdb.HGetAll(ctx, config.CacheKey.LiveAttemptsKey()).Result()
	if err != nil {
		return nil, err
	}

	live := make([]LiveAttempt, 0, len(raw))
	ids := make([]uuid.UUID, 0, len(raw))
	for _, v := range raw {
		var a LiveAttempt
		if err := json.Unmarshal([]byte(v), &a); err != nil {
			continue
		}
		if id, err := uuid.Parse(a.AttemptID); err == nil {
			ids = append(ids, id)
		}
		live = append(live, a)
	}
	if len(ids) == 0 {
		return live, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT t.id, c.name, c.exam_number
		 FROM test_attempts t JOIN candidates c ON c.id = t.candidate_id
		 WHERE t.id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	type identity struct{ name, number string }
	names := make(map[string]identity, len(ids))
	for rows.Next() {
		var id uuid.UUID
		var ident identity
		if err := rows.Scan(&id, &ident.name, &ident.number); err != nil {
			return nil, err
		}
		names[id.String()] = ident
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range live {
		if ident, ok := names[live[i].AttemptID]; ok {
			live[i].CandidateName = ident.name
			live[i].ExamNumber = ident.number
		}
	}
	return live, nil
}
