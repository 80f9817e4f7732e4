package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/config"
	"github.com/stemsi/speaking-backend/internal/examflow"
	"github.com/stemsi/speaking-backend/internal/metrics"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/repository"
)

// AttemptService starts and closes test attempts. It is the question
// provider of the exam and reports attempt outcomes for running sessions.
type AttemptService struct {
	cfg           *config.Config
	attemptRepo   *repository.AttemptRepository
	candidateRepo *repository.CandidateRepository
	questionRepo  *repository.QuestionRepository
	rdb           *redis.Client
	log           zerolog.Logger

	quotas []PartQuota
	rng    *rand.Rand
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	cfg *config.Config,
	attemptRepo *repository.AttemptRepository,
	candidateRepo *repository.CandidateRepository,
	questionRepo *repository.QuestionRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		cfg:           cfg,
		attemptRepo:   attemptRepo,
		candidateRepo: candidateRepo,
		questionRepo:  questionRepo,
		rdb:           rdb,
		log:           log.With().Str("component", "attempt_service").Logger(),
		quotas:        DefaultQuotas,
	}
}

// StreamURL is the WebSocket path that drives an attempt.
func StreamURL(attemptID uuid.UUID) string {
	return fmt.Sprintf("/ws/v1/candidate/attempts/%s/stream", attemptID)
}

// Start selects a random test for the candidate and consumes one attempt.
// Selection happens before the attempt is consumed, so a bank that cannot
// fill a test leaves the candidate's attempts untouched.
func (s *AttemptService) Start(ctx context.Context, candidateID int) (*model.StartAttemptResponse, error) {
	candidate, err := s.candidateRepo.GetByID(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	if candidate.HasCompleted {
		return nil, repository.ErrAlreadyCompleted
	}
	if candidate.RemainingAttempts <= 0 {
		return nil, repository.ErrNoAttemptsLeft
	}

	bank, err := s.questionRepo.List(ctx, model.QuestionFilter{ActiveOnly: true})
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}
	selected, err := SelectQuestions(bank, s.quotas, s.rng)
	if err != nil {
		return nil, err
	}
	questions, err := toAttemptQuestions(selected)
	if err != nil {
		return nil, err
	}

	links := make([]model.TestQuestion, len(questions))
	for i, q := range questions {
		links[i] = model.TestQuestion{QuestionID: q.QuestionID, QuestionNumber: q.QuestionNumber, Part: q.Part}
	}

	attempt, err := s.attemptRepo.Create(ctx, candidateID, links)
	if err != nil {
		return nil, err
	}

	s.cacheQuestions(ctx, attempt.ID.String(), questions)

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Int("candidate_id", candidateID).
		Int("questions", len(questions)).
		Msg("Test attempt started")

	return &model.StartAttemptResponse{
		AttemptID: attempt.ID,
		Questions: questions,
		StreamURL: StreamURL(attempt.ID),
	}, nil
}

// Authorize loads an attempt and checks that candidateID owns it.
func (s *AttemptService) Authorize(ctx context.Context, candidateID int, attemptID uuid.UUID) (*model.TestAttempt, error) {
	attempt, err := s.attemptRepo.GetByID(ctx, attemptID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if attempt.CandidateID != candidateID {
		return nil, ErrNotAttemptOwner
	}
	return attempt, nil
}

// Questions returns the frozen question list of an attempt, reading through
// the Redis cache and healing it from PostgreSQL on a miss.
func (s *AttemptService) Questions(ctx context.Context, attemptID uuid.UUID) ([]model.AttemptQuestion, error) {
	key := config.CacheKey.AttemptQuestionsKey(attemptID.String())

	raw, err := s.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var qs []model.AttemptQuestion
		if jsonErr := json.Unmarshal(raw, &qs); jsonErr == nil {
			return qs, nil
		}
		s.log.Warn().Str("attempt_id", attemptID.String()).Msg("Discarding unreadable cached questions")
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("read question cache: %w", err)
	}

	qs, err := s.attemptRepo.ListQuestions(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list attempt questions: %w", err)
	}
	s.cacheQuestions(ctx, attemptID.String(), qs)
	return qs, nil
}

func (s *AttemptService) cacheQuestions(ctx context.Context, attemptID string, qs []model.AttemptQuestion) {
	data, err := json.Marshal(qs)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, config.CacheKey.AttemptQuestionsKey(attemptID), data, s.cfg.JWTExpiry).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attemptID).Msg("Failed to cache attempt questions")
	}
}

// Complete records the outcome of an attempt. Repeated calls are no-ops.
func (s *AttemptService) Complete(ctx context.Context, attemptID string, abandoned bool, reason string) error {
	id, err := uuid.Parse(attemptID)
	if err != nil {
		return fmt.Errorf("parse attempt id: %w", err)
	}

	var reasonPtr *string
	if abandoned {
		if reason == "" {
			reason = examflow.AbandonReasonUserLeft
		}
		reasonPtr = &reason
	}

	changed, err := s.attemptRepo.Complete(ctx, id, abandoned, reasonPtr)
	if err != nil {
		return fmt.Errorf("complete attempt: %w", err)
	}
	if !changed {
		return nil
	}

	outcome := "completed"
	if abandoned {
		outcome = "abandoned"
	}
	metrics.SessionsEnded.WithLabelValues(outcome).Inc()
	s.log.Info().Str("attempt_id", attemptID).Bool("abandoned", abandoned).Msg("Test attempt closed")
	return nil
}

// CompleteForCandidate closes an attempt on behalf of its owner.
func (s *AttemptService) CompleteForCandidate(ctx context.Context, candidateID int, attemptID uuid.UUID, req model.CompleteAttemptRequest) error {
	if _, err := s.Authorize(ctx, candidateID, attemptID); err != nil {
		return err
	}
	// The reason is fixed for client-reported abandonment.
	return s.Complete(ctx, attemptID.String(), req.IsAbandoned, "")
}
