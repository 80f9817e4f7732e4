package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/speaking-backend/internal/model"
)

var ErrDuplicateExamNumber = errors.New("candidate with this exam number already exists")

const candidateColumns = `id, name, exam_number, remaining_attempts, has_completed, created_at, updated_at`

// CandidateRepository handles candidate data access.
type CandidateRepository struct {
	pool *pgxpool.Pool
}

// NewCandidateRepository creates a new CandidateRepository.
func NewCandidateRepository(pool *pgxpool.Pool) *CandidateRepository {
	return &CandidateRepository{pool: pool}
}

func scanCandidate(row pgx.Row) (*model.Candidate, error) {
	c := &model.Candidate{}
	err := row.Scan(&c.ID, &c.Name, &c.ExamNumber, &c.RemainingAttempts, &c.HasCompleted, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetByID retrieves a candidate by ID.
func (r *CandidateRepository) GetByID(ctx context.Context, id int) (*model.Candidate, error) {
	return scanCandidate(r.pool.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE id = $1`, id))
}

// GetByExamNumber retrieves a candidate by their unique exam number.
func (r *CandidateRepository) GetByExamNumber(ctx context.Context, examNumber string) (*model.Candidate, error) {
	return scanCandidate(r.pool.QueryRow(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE exam_number = $1`, examNumber))
}

// ListPaginated retrieves candidates matching the filter.
func (r *CandidateRepository) ListPaginated(ctx context.Context, f model.CandidateFilter) ([]model.Candidate, int, error) {
	where := ` WHERE 1=1`
	var args []any
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		where += fmt.Sprintf(` AND (name ILIKE $%d OR exam_number ILIKE $%d)`, len(args), len(args))
	}
	if f.Completed != nil {
		args = append(args, *f.Completed)
		where += fmt.Sprintf(` AND has_completed = $%d`, len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM candidates`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + candidateColumns + ` FROM candidates` + where +
		fmt.Sprintf(` ORDER BY exam_number LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, f.PerPage, (f.Page-1)*f.PerPage)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	candidates := []model.Candidate{}
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, 0, err
		}
		candidates = append(candidates, *c)
	}
	return candidates, total, rows.Err()
}

// Create inserts a new candidate.
func (r *CandidateRepository) Create(ctx context.Context, c *model.Candidate) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO candidates (name, exam_number, remaining_attempts)
		 VALUES ($1, $2, $3)
		 RETURNING id, has_completed, created_at, updated_at`,
		c.Name, c.ExamNumber, c.RemainingAttempts,
	).Scan(&c.ID, &c.HasCompleted, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateExamNumber
		}
		return err
	}
	return nil
}

// CreateMany inserts candidates in one batch, skipping exam numbers that
// already exist. It returns the exam numbers that were skipped.
func (r *CandidateRepository) CreateMany(ctx context.Context, cs []model.Candidate) ([]string, error) {
	batch := &pgx.Batch{}
	for _, c := range cs {
		batch.Queue(
			`INSERT INTO candidates (name, exam_number, remaining_attempts)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (exam_number) DO NOTHING`,
			c.Name, c.ExamNumber, c.RemainingAttempts,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	var skipped []string
	for _, c := range cs {
		tag, err := br.Exec()
		if err != nil {
			return nil, err
		}
		if tag.RowsAffected() == 0 {
			skipped = append(skipped, c.ExamNumber)
		}
	}
	return skipped, nil
}

// ResetAttempts gives the candidates a fresh set of attempts.
func (r *CandidateRepository) ResetAttempts(ctx context.Context, ids []int, attempts int) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE candidates
		 SET remaining_attempts = $1, has_completed = FALSE, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ANY($2)`,
		attempts, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// MarkCompletedFromAttempts sets has_completed for every candidate owning a
// completed attempt but still flagged as not completed.
func (r *CandidateRepository) MarkCompletedFromAttempts(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE candidates c
		 SET has_completed = TRUE, updated_at = CURRENT_TIMESTAMP
		 WHERE c.has_completed = FALSE
		   AND EXISTS (SELECT 1 FROM test_attempts t WHERE t.candidate_id = c.id AND t.is_completed)`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Delete removes a candidate together with their attempts and scores.
func (r *CandidateRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM candidates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
