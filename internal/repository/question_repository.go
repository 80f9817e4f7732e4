package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/speaking-backend/internal/model"
)

const questionColumns = `id, part, question_set_id, question_order, question_text, info_text, info_image_url,
	info_audio_url, audio_url, image_url, preparation_time, speaking_time, is_active, created_at, updated_at`

// QuestionRepository handles question bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

func scanQuestion(row pgx.Row) (*model.Question, error) {
	q := &model.Question{}
	err := row.Scan(
		&q.ID, &q.Part, &q.QuestionSetID, &q.QuestionOrder, &q.QuestionText, &q.InfoText, &q.InfoImageURL,
		&q.InfoAudioURL, &q.AudioURL, &q.ImageURL, &q.PreparationTime, &q.SpeakingTime, &q.IsActive,
		&q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return q, nil
}

func collectQuestions(rows pgx.Rows) ([]model.Question, error) {
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

// GetByID retrieves a question by ID.
func (r *QuestionRepository) GetByID(ctx context.Context, id int) (*model.Question, error) {
	return scanQuestion(r.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
}

// List returns questions ordered by part, set and position.
func (r *QuestionRepository) List(ctx context.Context, f model.QuestionFilter) ([]model.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE 1=1`
	var args []any
	if f.Part > 0 {
		args = append(args, f.Part)
		query += fmt.Sprintf(` AND part = $%d`, len(args))
	}
	if f.ActiveOnly {
		query += ` AND is_active`
	}
	query += ` ORDER BY part, question_set_id NULLS FIRST, question_order, id`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectQuestions(rows)
}

// ListActiveByPart returns the active questions of one part.
func (r *QuestionRepository) ListActiveByPart(ctx context.Context, part int) ([]model.Question, error) {
	return r.List(ctx, model.QuestionFilter{Part: part, ActiveOnly: true})
}

// Create inserts a single question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return insertQuestion(ctx, r.pool, q)
}

// CreateSet inserts the questions of a Part 3 or Part 4 set atomically.
func (r *QuestionRepository) CreateSet(ctx context.Context, qs []*model.Question) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, q := range qs {
			if err := insertQuestion(ctx, tx, q); err != nil {
				return err
			}
		}
		return nil
	})
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertQuestion(ctx context.Context, db queryRower, q *model.Question) error {
	return db.QueryRow(ctx,
		`INSERT INTO questions (part, question_set_id, question_order, question_text, info_text, info_image_url,
			info_audio_url, audio_url, image_url, preparation_time, speaking_time, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at, updated_at`,
		q.Part, q.QuestionSetID, q.QuestionOrder, q.QuestionText, q.InfoText, q.InfoImageURL,
		q.InfoAudioURL, q.AudioURL, q.ImageURL, q.PreparationTime, q.SpeakingTime, q.IsActive,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

// Update modifies a question's content and timing.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`UPDATE questions
		 SET question_text = $1, info_text = $2, info_image_url = $3, info_audio_url = $4, audio_url = $5,
		     image_url = $6, preparation_time = $7, speaking_time = $8, is_active = $9, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $10
		 RETURNING updated_at`,
		q.QuestionText, q.InfoText, q.InfoImageURL, q.InfoAudioURL, q.AudioURL,
		q.ImageURL, q.PreparationTime, q.SpeakingTime, q.IsActive, q.ID,
	).Scan(&q.UpdatedAt)
}

// Deactivate retires a question. Part 3 and Part 4 sets are retired as a
// whole so that only complete sets stay selectable.
func (r *QuestionRepository) Deactivate(ctx context.Context, id int) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE questions SET is_active = FALSE, updated_at = CURRENT_TIMESTAMP
		 WHERE id = $1
		    OR (question_set_id IS NOT NULL
		        AND question_set_id = (SELECT question_set_id FROM questions WHERE id = $1))`,
		id)
	if err != nil {
		return 0, err
	}
	if tag.RowsAffected() == 0 {
		return 0, pgx.ErrNoRows
	}
	return tag.RowsAffected(), nil
}

// CountActiveByPart returns the number of active questions per part.
func (r *QuestionRepository) CountActiveByPart(ctx context.Context) (map[int]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT part, COUNT(*) FROM questions WHERE is_active GROUP BY part`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var part, n int
		if err := rows.Scan(&part, &n); err != nil {
			return nil, err
		}
		counts[part] = n
	}
	return counts, rows.Err()
}
