package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/repository"
	"github.com/stemsi/speaking-backend/internal/response"
)

// GradingService lists finished attempts with their recordings for graders.
type GradingService struct {
	attemptRepo   *repository.AttemptRepository
	recordingRepo *repository.RecordingRepository
	eventRepo     *repository.AttemptEventRepository
}

// NewGradingService creates a new GradingService.
func NewGradingService(attemptRepo *repository.AttemptRepository, recordingRepo *repository.RecordingRepository, eventRepo *repository.AttemptEventRepository) *GradingService {
	return &GradingService{attemptRepo: attemptRepo, recordingRepo: recordingRepo, eventRepo: eventRepo}
}

// ListAttempts returns one page of completed attempts, newest first, each
// with its recordings ordered by question number.
func (s *GradingService) ListAttempts(ctx context.Context, page, perPage int) ([]model.GradingAttempt, *response.Pagination, error) {
	page, perPage, limit, offset := normalizePage(page, perPage)

	attempts, total, err := s.attemptRepo.ListCompleted(ctx, limit, offset)
	if err != nil {
		return nil, nil, err
	}

	ids := make([]uuid.UUID, len(attempts))
	for i, a := range attempts {
		ids[i] = a.ID
	}
	recordings, err := s.recordingRepo.ListByAttempts(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	for i := range attempts {
		attempts[i].Recordings = recordings[attempts[i].ID]
		if attempts[i].Recordings == nil {
			attempts[i].Recordings = []model.Recording{}
		}
	}
	return attempts, newPagination(page, perPage, total), nil
}

// GetAttempt returns one attempt with its recordings.
func (s *GradingService) GetAttempt(ctx context.Context, id uuid.UUID) (*model.GradingAttempt, error) {
	attempt, err := s.attemptRepo.GetGrading(ctx, id)
	if err != nil {
		return nil, err
	}
	attempt.Recordings, err = s.recordingRepo.ListByAttempt(ctx, id)
	if err != nil {
		return nil, err
	}
	if attempt.Recordings == nil {
		attempt.Recordings = []model.Recording{}
	}
	return attempt, nil
}

// Timeline returns the logged phase changes of an attempt.
func (s *GradingService) Timeline(ctx context.Context, id uuid.UUID) ([]model.AttemptEvent, error) {
	events, err := s.eventRepo.ListByAttempt(ctx, id.String())
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []model.AttemptEvent{}
	}
	return events, nil
}
