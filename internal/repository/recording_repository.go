package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/speaking-backend/internal/model"
)

// RecordingRepository handles recording metadata.
type RecordingRepository struct {
	pool *pgxpool.Pool
}

// NewRecordingRepository creates a new RecordingRepository.
func NewRecordingRepository(pool *pgxpool.Pool) *RecordingRepository {
	return &RecordingRepository{pool: pool}
}

// UpsertBatch stores recording metadata. A retake of the same question in
// the same attempt replaces the earlier row.
func (r *RecordingRepository) UpsertBatch(ctx context.Context, jobs []model.RecordingJob) error {
	if len(jobs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, j := range jobs {
		batch.Queue(
			`INSERT INTO recordings (test_attempt_id, question_number, audio_url, object_key, mime_type,
				file_size, duration_ms, upload_status)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (test_attempt_id, question_number) DO UPDATE SET
				audio_url = EXCLUDED.audio_url,
				object_key = EXCLUDED.object_key,
				mime_type = EXCLUDED.mime_type,
				file_size = EXCLUDED.file_size,
				duration_ms = EXCLUDED.duration_ms,
				upload_status = EXCLUDED.upload_status,
				created_at = CURRENT_TIMESTAMP`,
			j.AttemptID, j.QuestionNumber, j.AudioURL, j.ObjectKey, j.MimeType,
			j.FileSize, j.DurationMs, j.UploadStatus,
		)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

// ListByAttempt returns the recordings of one attempt ordered by question.
func (r *RecordingRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.Recording, error) {
	grouped, err := r.ListByAttempts(ctx, []uuid.UUID{attemptID})
	if err != nil {
		return nil, err
	}
	return grouped[attemptID], nil
}

// ListByAttempts returns recordings grouped by attempt.
func (r *RecordingRepository) ListByAttempts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]model.Recording, error) {
	out := make(map[uuid.UUID][]model.Recording, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, test_attempt_id, question_number, audio_url, object_key, mime_type, file_size,
		        duration_ms, upload_status, created_at
		 FROM recordings
		 WHERE test_attempt_id = ANY($1)
		 ORDER BY test_attempt_id, question_number`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rec model.Recording
		if err := rows.Scan(
			&rec.ID, &rec.AttemptID, &rec.QuestionNumber, &rec.AudioURL, &rec.ObjectKey, &rec.MimeType,
			&rec.FileSize, &rec.DurationMs, &rec.UploadStatus, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		out[rec.AttemptID] = append(out[rec.AttemptID], rec)
	}
	return out, rows.Err()
}
