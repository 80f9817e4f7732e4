package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/speaking-backend/internal/model"
)

// ScoreRepository handles published scores.
type ScoreRepository struct {
	pool *pgxpool.Pool
}

// NewScoreRepository creates a new ScoreRepository.
func NewScoreRepository(pool *pgxpool.Pool) *ScoreRepository {
	return &ScoreRepository{pool: pool}
}

// Create inserts a score.
func (r *ScoreRepository) Create(ctx context.Context, s *model.Score) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO scores (candidate_id, score, cefr_level) VALUES ($1, $2, $3) RETURNING id, created_at`,
		s.CandidateID, s.Score, s.CEFRLevel,
	).Scan(&s.ID, &s.CreatedAt)
}

// List returns all scores with candidate identity, newest first.
func (r *ScoreRepository) List(ctx context.Context) ([]model.Score, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.candidate_id, s.score, s.cefr_level, s.created_at, c.name, c.exam_number
		 FROM scores s
		 JOIN candidates c ON c.id = s.candidate_id
		 ORDER BY s.created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := []model.Score{}
	for rows.Next() {
		var s model.Score
		if err := rows.Scan(&s.ID, &s.CandidateID, &s.Score, &s.CEFRLevel, &s.CreatedAt, &s.CandidateName, &s.ExamNumber); err != nil {
			return nil, err
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

// GetByID returns one score with candidate identity.
func (r *ScoreRepository) GetByID(ctx context.Context, id int) (*model.Score, error) {
	s := &model.Score{}
	err := r.pool.QueryRow(ctx,
		`SELECT s.id, s.candidate_id, s.score, s.cefr_level, s.created_at, c.name, c.exam_number
		 FROM scores s
		 JOIN candidates c ON c.id = s.candidate_id
		 WHERE s.id = $1`, id,
	).Scan(&s.ID, &s.CandidateID, &s.Score, &s.CEFRLevel, &s.CreatedAt, &s.CandidateName, &s.ExamNumber)
	if err != nil {
		return nil, err
	}
	return s, nil
}
