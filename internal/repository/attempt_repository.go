package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/speaking-backend/internal/model"
)

var (
	ErrNoAttemptsLeft   = errors.New("candidate has no remaining attempts")
	ErrAlreadyCompleted = errors.New("candidate has already completed the test")
)

const attemptColumns = `id, candidate_id, started_at, completed_at, is_completed, is_abandoned, abandoned_reason`

// AttemptRepository handles test attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func scanAttempt(row pgx.Row) (*model.TestAttempt, error) {
	a := &model.TestAttempt{}
	err := row.Scan(&a.ID, &a.CandidateID, &a.StartedAt, &a.CompletedAt, &a.IsCompleted, &a.IsAbandoned, &a.AbandonedReason)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Create consumes one attempt of the candidate and stores the selected
// questions in a single transaction.
func (r *AttemptRepository) Create(ctx context.Context, candidateID int, questions []model.TestQuestion) (*model.TestAttempt, error) {
	var attempt *model.TestAttempt

	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var remaining int
		var completed bool
		err := tx.QueryRow(ctx,
			`SELECT remaining_attempts, has_completed FROM candidates WHERE id = $1 FOR UPDATE`,
			candidateID,
		).Scan(&remaining, &completed)
		if err != nil {
			return err
		}
		if completed {
			return ErrAlreadyCompleted
		}
		if remaining <= 0 {
			return ErrNoAttemptsLeft
		}

		if _, err := tx.Exec(ctx,
			`UPDATE candidates SET remaining_attempts = remaining_attempts - 1, updated_at = CURRENT_TIMESTAMP
			 WHERE id = $1`, candidateID); err != nil {
			return fmt.Errorf("decrement attempts: %w", err)
		}

		attempt, err = scanAttempt(tx.QueryRow(ctx,
			`INSERT INTO test_attempts (candidate_id) VALUES ($1) RETURNING `+attemptColumns,
			candidateID))
		if err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}

		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"test_questions"},
			[]string{"test_attempt_id", "question_id", "question_number", "part"},
			pgx.CopyFromSlice(len(questions), func(i int) ([]any, error) {
				q := questions[i]
				return []any{attempt.ID, q.QuestionID, q.QuestionNumber, q.Part}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("insert test questions: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

// GetByID retrieves an attempt by ID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.TestAttempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx, `SELECT `+attemptColumns+` FROM test_attempts WHERE id = $1`, id))
}

// ListQuestions returns the questions of an attempt in presentation order.
func (r *AttemptRepository) ListQuestions(ctx context.Context, id uuid.UUID) ([]model.AttemptQuestion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, tq.question_number, tq.part, q.question_set_id, q.question_order, q.question_text,
		        q.info_text, q.info_image_url, q.info_audio_url, q.audio_url, q.image_url,
		        q.preparation_time, q.speaking_time
		 FROM test_questions tq
		 JOIN questions q ON q.id = tq.question_id
		 WHERE tq.test_attempt_id = $1
		 ORDER BY tq.question_number`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AttemptQuestion
	for rows.Next() {
		var q model.AttemptQuestion
		if err := rows.Scan(
			&q.QuestionID, &q.QuestionNumber, &q.Part, &q.QuestionSetID, &q.QuestionOrder, &q.QuestionText,
			&q.InfoText, &q.InfoImageURL, &q.InfoAudioURL, &q.AudioURL, &q.ImageURL,
			&q.PreparationTime, &q.SpeakingTime,
		); err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// Complete closes an open attempt and flags the candidate as completed.
// It reports false when the attempt was already closed.
func (r *AttemptRepository) Complete(ctx context.Context, id uuid.UUID, abandoned bool, reason *string) (bool, error) {
	changed := false
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var candidateID int
		err := tx.QueryRow(ctx,
			`UPDATE test_attempts
			 SET is_completed = TRUE, completed_at = $2, is_abandoned = $3, abandoned_reason = $4
			 WHERE id = $1 AND is_completed = FALSE
			 RETURNING candidate_id`,
			id, time.Now(), abandoned, reason,
		).Scan(&candidateID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		changed = true

		_, err = tx.Exec(ctx,
			`UPDATE candidates SET has_completed = TRUE, updated_at = CURRENT_TIMESTAMP WHERE id = $1`,
			candidateID)
		return err
	})
	return changed, err
}

// ListOpenByCandidate returns the attempts of a candidate that are still running.
func (r *AttemptRepository) ListOpenByCandidate(ctx context.Context, candidateID int) ([]model.TestAttempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM test_attempts
		 WHERE candidate_id = $1 AND is_completed = FALSE
		 ORDER BY started_at DESC`, candidateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TestAttempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// ListCompleted returns completed attempts with candidate identity, newest first.
func (r *AttemptRepository) ListCompleted(ctx context.Context, limit, offset int) ([]model.GradingAttempt, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM test_attempts WHERE is_completed`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT t.id, t.candidate_id, t.started_at, t.completed_at, t.is_completed, t.is_abandoned,
		        t.abandoned_reason, c.name, c.exam_number
		 FROM test_attempts t
		 JOIN candidates c ON c.id = t.candidate_id
		 WHERE t.is_completed
		 ORDER BY t.completed_at DESC
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	attempts := []model.GradingAttempt{}
	for rows.Next() {
		var g model.GradingAttempt
		if err := rows.Scan(
			&g.ID, &g.CandidateID, &g.StartedAt, &g.CompletedAt, &g.IsCompleted, &g.IsAbandoned,
			&g.AbandonedReason, &g.CandidateName, &g.ExamNumber,
		); err != nil {
			return nil, 0, err
		}
		attempts = append(attempts, g)
	}
	return attempts, total, rows.Err()
}

// GetGrading returns one attempt with candidate identity.
func (r *AttemptRepository) GetGrading(ctx context.Context, id uuid.UUID) (*model.GradingAttempt, error) {
	g := &model.GradingAttempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT t.id, t.candidate_id, t.started_at, t.completed_at, t.is_completed, t.is_abandoned,
		        t.abandoned_reason, c.name, c.exam_number
		 FROM test_attempts t
		 JOIN candidates c ON c.id = t.candidate_id
		 WHERE t.id = $1`, id,
	).Scan(
		&g.ID, &g.CandidateID, &g.StartedAt, &g.CompletedAt, &g.IsCompleted, &g.IsAbandoned,
		&g.AbandonedReason, &g.CandidateName, &g.ExamNumber,
	)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// CloseStaleWithRecordings completes attempts that hold recordings but were
// never closed, skipping any started within the grace window.
func (r *AttemptRepository) CloseStaleWithRecordings(ctx context.Context, startedBefore time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE test_attempts t
		 SET is_completed = TRUE, completed_at = COALESCE(t.completed_at, NOW())
		 WHERE t.is_completed = FALSE
		   AND t.started_at < $1
		   AND EXISTS (SELECT 1 FROM recordings rc WHERE rc.test_attempt_id = t.id)`,
		startedBefore)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
