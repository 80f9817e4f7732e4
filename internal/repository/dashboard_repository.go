package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/speaking-backend/internal/model"
)

// DashboardRepository handles admin dashboard data access.
type DashboardRepository struct {
	pool *pgxpool.Pool
}

// NewDashboardRepository creates a new DashboardRepository.
func NewDashboardRepository(pool *pgxpool.Pool) *DashboardRepository {
	return &DashboardRepository{pool: pool}
}

// SummaryCounts holds the high-level numbers shown on the dashboard.
type SummaryCounts struct {
	TotalCandidates     int `json:"total_candidates"`
	CompletedCandidates int `json:"completed_candidates"`
	ActiveQuestions     int `json:"active_questions"`
	AttemptsToday       int `json:"attempts_today"`
	AbandonedAttempts   int `json:"abandoned_attempts"`
	PendingScores       int `json:"pending_scores"`
}

// GetSummaryCounts retrieves the high-level metrics for the dashboard.
func (r *DashboardRepository) GetSummaryCounts(ctx context.Context) (*SummaryCounts, error) {
	c := &SummaryCounts{}
	err := r.pool.QueryRow(ctx,
		`SELECT
			(SELECT COUNT(*) FROM candidates),
			(SELECT COUNT(*) FROM candidates WHERE has_completed),
			(SELECT COUNT(*) FROM questions WHERE is_active),
			(SELECT COUNT(*) FROM test_attempts WHERE started_at >= date_trunc('day', NOW())),
			(SELECT COUNT(*) FROM test_attempts WHERE is_abandoned),
			(SELECT COUNT(*) FROM candidates c
			  WHERE c.has_completed AND NOT EXISTS (SELECT 1 FROM scores s WHERE s.candidate_id = c.id))`,
	).Scan(&c.TotalCandidates, &c.CompletedCandidates, &c.ActiveQuestions, &c.AttemptsToday,
		&c.AbandonedAttempts, &c.PendingScores)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetCEFRDistribution counts the latest score of each candidate by CEFR level.
func (r *DashboardRepository) GetCEFRDistribution(ctx context.Context) (map[model.CEFRLevel]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT cefr_level, COUNT(*) FROM (
			SELECT DISTINCT ON (candidate_id) cefr_level
			FROM scores
			ORDER BY candidate_id, created_at DESC
		 ) latest
		 GROUP BY cefr_level`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[model.CEFRLevel]int)
	for rows.Next() {
		var level model.CEFRLevel
		var count int
		if err := rows.Scan(&level, &count); err != nil {
			return nil, err
		}
		counts[level] = count
	}
	return counts, rows.Err()
}

// DashboardRecentAttempt is a minimal row for the recent-attempts panel.
type DashboardRecentAttempt struct {
	ID             uuid.UUID  `json:"id"`
	CandidateName  string     `json:"candidate_name"`
	ExamNumber     string     `json:"exam_number"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	IsAbandoned    bool       `json:"is_abandoned"`
	RecordingCount int        `json:"recording_count"`
}

// GetRecentAttempts retrieves the last N attempts with their recording counts.
func (r *DashboardRepository) GetRecentAttempts(ctx context.Context, limit int) ([]DashboardRecentAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT t.id, c.name, c.exam_number, t.started_at, t.completed_at, t.is_abandoned,
		        (SELECT COUNT(*) FROM recordings rc WHERE rc.test_attempt_id = t.id)
		 FROM test_attempts t
		 JOIN candidates c ON c.id = t.candidate_id
		 ORDER BY t.started_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	attempts := []DashboardRecentAttempt{}
	for rows.Next() {
		var a DashboardRecentAttempt
		if err := rows.Scan(&a.ID, &a.CandidateName, &a.ExamNumber, &a.StartedAt, &a.CompletedAt,
			&a.IsAbandoned, &a.RecordingCount); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
