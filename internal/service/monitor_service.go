package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/config"
	"github.com/stemsi/speaking-backend/internal/examflow"
	"github.com/stemsi/speaking-backend/internal/metrics"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/repository"
)

const (
	monitorBuffer  = 1024
	publishTimeout = 2 * time.Second
)

// Monitor event types published on the exam monitor channel.
const (
	MonitorEventPhase  = "phase"
	MonitorEventUpload = "upload"
	MonitorEventEnded  = "ended"
)

// MonitorEvent is one live update about a running exam.
type MonitorEvent struct {
	Type           string    `json:"type"`
	AttemptID      string    `json:"attempt_id"`
	CandidateID    int       `json:"candidate_id"`
	Phase          string    `json:"phase,omitempty"`
	QuestionNumber int       `json:"question_number,omitempty"`
	Part           int       `json:"part,omitempty"`
	Remaining      int       `json:"remaining,omitempty"`
	UploadStatus   string    `json:"upload_status,omitempty"`
	Abandoned      bool      `json:"abandoned,omitempty"`
	At             time.Time `json:"at"`
}

// MonitorService fans exam progress out to admins and the attempt event log.
// Runners hand events over without blocking; a single dispatcher goroutine
// does the Redis work.
type MonitorService struct {
	monitorRepo *repository.MonitorRepository
	rdb         *redis.Client
	log         zerolog.Logger

	events chan MonitorEvent
}

// NewMonitorService creates a new MonitorService. Call Run to start dispatching.
func NewMonitorService(monitorRepo *repository.MonitorRepository, rdb *redis.Client, log zerolog.Logger) *MonitorService {
	return &MonitorService{
		monitorRepo: monitorRepo,
		rdb:         rdb,
		log:         log.With().Str("component", "monitor_service").Logger(),
		events:      make(chan MonitorEvent, monitorBuffer),
	}
}

// ListLive returns the running attempts with candidate identity.
func (s *MonitorService) ListLive(ctx context.Context) ([]repository.LiveAttempt, error) {
	return s.monitorRepo.ListLive(ctx)
}

// ForSession returns the observer of one exam session.
func (s *MonitorService) ForSession(candidateID int) examflow.Observer {
	return &sessionObserver{svc: s, candidateID: candidateID}
}

func (s *MonitorService) emit(ev MonitorEvent) {
	select {
	case s.events <- ev:
	default:
		s.log.Warn().Str("attempt_id", ev.AttemptID).Str("type", ev.Type).Msg("Monitor buffer full, dropping event")
	}
}

// Run dispatches events until ctx is cancelled, then drains what is buffered.
func (s *MonitorService) Run(ctx context.Context) {
	s.log.Info().Msg("Monitor dispatcher started")
	for {
		select {
		case ev := <-s.events:
			s.dispatch(ev)
		case <-ctx.Done():
			for {
				select {
				case ev := <-s.events:
					s.dispatch(ev)
				default:
					s.log.Info().Msg("Monitor dispatcher stopped")
					return
				}
			}
		}
	}
}

func (s *MonitorService) dispatch(ev MonitorEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := s.rdb.Publish(ctx, config.CacheKey.ExamMonitorChannel(), payload).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Failed to publish monitor event")
	}

	switch ev.Type {
	case MonitorEventPhase:
		live := repository.LiveAttempt{
			AttemptID:      ev.AttemptID,
			CandidateID:    ev.CandidateID,
			Phase:          ev.Phase,
			QuestionNumber: ev.QuestionNumber,
			Part:           ev.Part,
			Remaining:      ev.Remaining,
			UpdatedAt:      ev.At,
		}
		if err := s.monitorRepo.SaveLive(ctx, live); err != nil {
			s.log.Warn().Err(err).Str("attempt_id", ev.AttemptID).Msg("Failed to save live position")
		}
		s.queueEvent(ctx, ev)
	case MonitorEventEnded:
		if err := s.monitorRepo.RemoveLive(ctx, ev.AttemptID); err != nil {
			s.log.Warn().Err(err).Str("attempt_id", ev.AttemptID).Msg("Failed to remove live position")
		}
		s.queueEvent(ctx, ev)
	}
}

// queueEvent hands the event to the attempt event worker for persistence.
func (s *MonitorService) queueEvent(ctx context.Context, ev MonitorEvent) {
	id, err := uuid.Parse(ev.AttemptID)
	if err != nil {
		return
	}
	phase := ev.Phase
	if ev.Type == MonitorEventEnded {
		phase = string(examflow.PhaseFinished)
		if ev.Abandoned {
			phase = string(examflow.PhaseAbandoned)
		}
	}
	data, err := json.Marshal(model.AttemptEvent{
		AttemptID:      id,
		QuestionNumber: ev.QuestionNumber,
		Phase:          phase,
		CreatedAt:      ev.At,
	})
	if err != nil {
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAttemptEventsQueue, data).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", ev.AttemptID).Msg("Failed to queue attempt event")
	}
}

type sessionObserver struct {
	svc         *MonitorService
	candidateID int
}

func (o *sessionObserver) PhaseChanged(attemptID string, v examflow.PhaseView) {
	metrics.PhaseTransitions.WithLabelValues(string(v.Phase)).Inc()
	o.svc.emit(MonitorEvent{
		Type:           MonitorEventPhase,
		AttemptID:      attemptID,
		CandidateID:    o.candidateID,
		Phase:          string(v.Phase),
		QuestionNumber: v.QuestionNumber,
		Part:           v.Part,
		Remaining:      v.Remaining,
		At:             time.Now(),
	})
}

func (o *sessionObserver) UploadFinished(attemptID string, questionNumber int, err error) {
	status := examflow.UploadSucceeded
	if err != nil {
		status = examflow.UploadFailed
	}
	o.svc.emit(MonitorEvent{
		Type:           MonitorEventUpload,
		AttemptID:      attemptID,
		CandidateID:    o.candidateID,
		QuestionNumber: questionNumber,
		UploadStatus:   string(status),
		At:             time.Now(),
	})
}

func (o *sessionObserver) SessionEnded(attemptID string, abandoned bool) {
	o.svc.emit(MonitorEvent{
		Type:        MonitorEventEnded,
		AttemptID:   attemptID,
		CandidateID: o.candidateID,
		Abandoned:   abandoned,
		At:          time.Now(),
	})
}
