package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/config"
	"github.com/stemsi/speaking-backend/internal/examflow"
	"github.com/stemsi/speaking-backend/internal/metrics"
)

var ErrAttemptInProgress = errors.New("attempt is already running on another connection")

// unlockScript deletes the lock only if it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// ExamSessionService opens live exam sessions. Each session is one
// examflow.Runner; a Redis lock keeps a single runner per attempt across
// instances.
type ExamSessionService struct {
	cfg        *config.Config
	attempts   *AttemptService
	recordings *RecordingService
	guides     *GuideAudioService
	monitor    *MonitorService
	rdb        *redis.Client
	log        zerolog.Logger
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(
	cfg *config.Config,
	attempts *AttemptService,
	recordings *RecordingService,
	guides *GuideAudioService,
	monitor *MonitorService,
	rdb *redis.Client,
	log zerolog.Logger,
) *ExamSessionService {
	return &ExamSessionService{
		cfg:        cfg,
		attempts:   attempts,
		recordings: recordings,
		guides:     guides,
		monitor:    monitor,
		rdb:        rdb,
		log:        log,
	}
}

// Session is an opened exam session. Close must be called once Run returns.
type Session struct {
	*examflow.Runner
	once  sync.Once
	close func()
}

// Close releases the attempt lock. Later calls do nothing.
func (s *Session) Close() { s.once.Do(s.close) }

// Open prepares the runner of an attempt for candidateID. client is the
// candidate's connection.
func (s *ExamSessionService) Open(ctx context.Context, candidateID int, attemptID uuid.UUID, client examflow.Client) (*Session, error) {
	attempt, err := s.attempts.Authorize(ctx, candidateID, attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.IsCompleted {
		return nil, ErrAttemptClosed
	}

	lockKey := config.CacheKey.AttemptLockKey(attemptID.String())
	token := uuid.New().String()
	ok, err := s.rdb.SetNX(ctx, lockKey, token, s.cfg.ExamLockDuration).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire attempt lock: %w", err)
	}
	if !ok {
		return nil, ErrAttemptInProgress
	}

	unlock := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := unlockScript.Run(ctx, s.rdb, []string{lockKey}, token).Err(); err != nil {
			s.log.Warn().Err(err).Str("attempt_id", attemptID.String()).Msg("Failed to release attempt lock")
		}
	}

	questions, err := s.attempts.Questions(ctx, attemptID)
	if err != nil {
		unlock()
		return nil, err
	}
	guides, err := s.guides.GuideSet(ctx)
	if err != nil {
		unlock()
		return nil, err
	}

	runner := examflow.NewRunner(examflow.RunnerConfig{
		AttemptID:         attemptID.String(),
		CandidateID:       candidateID,
		Questions:         ToExamflow(questions),
		Guides:            guides,
		TickInterval:      time.Second,
		GuideMaxWait:      s.cfg.GuideMaxWait,
		RecordingGrace:    s.cfg.RecordingGrace,
		MaxRecordingBytes: s.cfg.MaxRecordingBytes(),
		UploadTimeout:     s.cfg.UploadTimeout,
	}, client, s.recordings, s.attempts, s.monitor.ForSession(candidateID), s.log)

	metrics.ActiveSessions.Inc()
	s.log.Info().
		Str("attempt_id", attemptID.String()).
		Int("candidate_id", candidateID).
		Int("questions", len(questions)).
		Msg("Exam session opened")

	return &Session{
		Runner: runner,
		close: func() {
			metrics.ActiveSessions.Dec()
			unlock()
		},
	}, nil
}
