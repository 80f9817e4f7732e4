package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/config"
	"github.com/stemsi/speaking-backend/internal/examflow"
	"github.com/stemsi/speaking-backend/internal/metrics"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/storage"
)

// RecordingService is the upload pipeline: it puts audio objects into
// storage and queues their metadata for the recording worker.
type RecordingService struct {
	cfg      *config.Config
	store    storage.Provider
	rdb      *redis.Client
	attempts *AttemptService
	log      zerolog.Logger
}

// NewRecordingService creates a new RecordingService.
func NewRecordingService(cfg *config.Config, store storage.Provider, rdb *redis.Client, attempts *AttemptService, log zerolog.Logger) *RecordingService {
	return &RecordingService{
		cfg:      cfg,
		store:    store,
		rdb:      rdb,
		attempts: attempts,
		log:      log.With().Str("component", "recording_service").Logger(),
	}
}

// RecordingKey is the object key of a question's recording.
func RecordingKey(attemptID string, questionNumber int, ext string) string {
	return fmt.Sprintf("recordings/%s/q%02d%s", attemptID, questionNumber, ext)
}

// Upload stores one artifact and queues its metadata. A failed put is
// queued as FAILED so graders can see the gap; it is not retried.
func (s *RecordingService) Upload(ctx context.Context, attemptID string, a examflow.Artifact) error {
	contentType := baseMIME(a.MimeType)
	ext, ok := audioExt(contentType)
	if !ok {
		contentType, ext = examflow.DefaultMimeType, ".webm"
	}

	key := RecordingKey(attemptID, a.QuestionNumber, ext)
	job := model.RecordingJob{
		AttemptID:      attemptID,
		QuestionNumber: a.QuestionNumber,
		ObjectKey:      key,
		MimeType:       contentType,
		FileSize:       int64(len(a.Data)),
		DurationMs:     a.Duration.Milliseconds(),
		UploadStatus:   model.UploadCompleted,
	}

	url, putErr := s.store.Put(ctx, key, bytes.NewReader(a.Data), int64(len(a.Data)), contentType)
	if putErr != nil {
		job.UploadStatus = model.UploadFailed
		metrics.RecordingUploads.WithLabelValues("failed").Inc()
		s.log.Error().Err(putErr).
			Str("attempt_id", attemptID).
			Int("question_number", a.QuestionNumber).
			Msg("Failed to store recording")
	} else {
		job.AudioURL = url
		metrics.RecordingUploads.WithLabelValues("uploaded").Inc()
	}

	if err := s.enqueue(ctx, job); err != nil {
		if putErr != nil {
			return putErr
		}
		return err
	}
	return putErr
}

func (s *RecordingService) enqueue(ctx context.Context, job model.RecordingJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal recording job: %w", err)
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistRecordingsQueue, payload).Err(); err != nil {
		return fmt.Errorf("queue recording job: %w", err)
	}
	return nil
}

// Submit accepts a recording uploaded over HTTP for a question of the
// candidate's attempt. It goes through the same pipeline as streamed audio
// and is refused once the attempt is closed or while its stream is live.
func (s *RecordingService) Submit(ctx context.Context, candidateID int, attemptID uuid.UUID, questionNumber int, file multipart.File, header *multipart.FileHeader) error {
	attempt, err := s.attempts.Authorize(ctx, candidateID, attemptID)
	if err != nil {
		return err
	}
	live, err := s.streamLive(ctx, attemptID)
	if err != nil {
		return err
	}
	if err := checkSubmittable(attempt, live); err != nil {
		return err
	}

	questions, err := s.attempts.Questions(ctx, attemptID)
	if err != nil {
		return err
	}
	if questionNumber < 1 || questionNumber > len(questions) {
		return ErrInvalidQuestionNumber
	}

	limit := int64(s.cfg.MaxRecordingBytes())
	if header.Size > limit {
		return fmt.Errorf("%w: %d bytes (max: %d)", ErrFileTooLarge, header.Size, limit)
	}
	contentType := header.Header.Get("Content-Type")
	if _, ok := audioExt(contentType); !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedFileType, contentType)
	}

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return fmt.Errorf("read recording: %w", err)
	}
	if int64(len(data)) > limit {
		return ErrFileTooLarge
	}

	return s.Upload(ctx, attemptID.String(), examflow.Artifact{
		QuestionNumber: questionNumber,
		MimeType:       contentType,
		Data:           data,
	})
}

// checkSubmittable rejects uploads that would overwrite answers captured by
// the timed flow: closed attempts, and attempts whose exam stream is live.
func checkSubmittable(attempt *model.TestAttempt, live bool) error {
	switch {
	case attempt.IsCompleted, attempt.IsAbandoned:
		return ErrAttemptClosed
	case live:
		return ErrAttemptInProgress
	default:
		return nil
	}
}

// streamLive reports whether a runner holds the attempt lock.
func (s *RecordingService) streamLive(ctx context.Context, attemptID uuid.UUID) (bool, error) {
	n, err := s.rdb.Exists(ctx, config.CacheKey.AttemptLockKey(attemptID.String())).Result()
	if err != nil {
		return false, fmt.Errorf("check attempt lock: %w", err)
	}
	return n > 0, nil
}
