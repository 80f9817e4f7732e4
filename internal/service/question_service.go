package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/repository"
)

// Fixed timing of Part 3 and Part 4 set questions.
const (
	setPreparationTime = 3
	setSpeakingTime    = 15
	setLastSpeaking    = 30
)

var (
	ErrSetInfoRequired  = errors.New("part 3 and part 4 sets need shared info text")
	ErrSetAudioRequired = errors.New("part 3 sets need a shared info audio track")
)

// QuestionService manages the question bank.
type QuestionService struct {
	questionRepo *repository.QuestionRepository
	log          zerolog.Logger
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questionRepo *repository.QuestionRepository, log zerolog.Logger) *QuestionService {
	return &QuestionService{
		questionRepo: questionRepo,
		log:          log.With().Str("component", "question_service").Logger(),
	}
}

// List returns questions matching the filter in presentation order.
func (s *QuestionService) List(ctx context.Context, f model.QuestionFilter) ([]model.Question, error) {
	qs, err := s.questionRepo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	if qs == nil {
		qs = []model.Question{}
	}
	return qs, nil
}

// GetByID retrieves one question.
func (s *QuestionService) GetByID(ctx context.Context, id int) (*model.Question, error) {
	return s.questionRepo.GetByID(ctx, id)
}

// Create adds a Part 1, 2 or 5 question.
func (s *QuestionService) Create(ctx context.Context, req model.QuestionRequest) (*model.Question, error) {
	q := &model.Question{
		Part:            req.Part,
		QuestionOrder:   1,
		QuestionText:    strings.TrimSpace(req.QuestionText),
		AudioURL:        blankToNil(req.AudioURL),
		ImageURL:        blankToNil(req.ImageURL),
		PreparationTime: req.PreparationTime,
		SpeakingTime:    req.SpeakingTime,
		IsActive:        true,
	}
	if err := s.questionRepo.Create(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// CreateSet adds the three questions of a Part 3 or Part 4 set. The set
// shares its info content and uses the fixed set timing.
func (s *QuestionService) CreateSet(ctx context.Context, req model.QuestionSetRequest) ([]model.Question, error) {
	infoText := blankToNil(req.InfoText)
	infoAudio := blankToNil(req.InfoAudioURL)
	if infoText == nil {
		return nil, ErrSetInfoRequired
	}
	if req.Part == 3 && infoAudio == nil {
		return nil, ErrSetAudioRequired
	}

	setID := uuid.New().String()
	infoImage := blankToNil(req.InfoImageURL)

	qs := make([]*model.Question, len(req.Questions))
	for i, item := range req.Questions {
		speak := setSpeakingTime
		if i == len(req.Questions)-1 {
			speak = setLastSpeaking
		}
		qs[i] = &model.Question{
			Part:            req.Part,
			QuestionSetID:   &setID,
			QuestionOrder:   i + 1,
			QuestionText:    strings.TrimSpace(item.QuestionText),
			InfoText:        infoText,
			InfoImageURL:    infoImage,
			InfoAudioURL:    infoAudio,
			AudioURL:        blankToNil(item.AudioURL),
			PreparationTime: setPreparationTime,
			SpeakingTime:    speak,
			IsActive:        true,
		}
	}

	if err := s.questionRepo.CreateSet(ctx, qs); err != nil {
		return nil, err
	}
	s.log.Info().Str("question_set_id", setID).Int("part", req.Part).Msg("Question set created")

	out := make([]model.Question, len(qs))
	for i, q := range qs {
		out[i] = *q
	}
	return out, nil
}

// Update edits a question's content. Part and set membership never change.
func (s *QuestionService) Update(ctx context.Context, id int, req model.UpdateQuestionRequest) (*model.Question, error) {
	q, err := s.questionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	q.QuestionText = strings.TrimSpace(req.QuestionText)
	q.InfoText = blankToNil(req.InfoText)
	q.InfoImageURL = blankToNil(req.InfoImageURL)
	q.InfoAudioURL = blankToNil(req.InfoAudioURL)
	q.AudioURL = blankToNil(req.AudioURL)
	q.ImageURL = blankToNil(req.ImageURL)
	q.PreparationTime = req.PreparationTime
	q.SpeakingTime = req.SpeakingTime
	if req.IsActive != nil {
		q.IsActive = *req.IsActive
	}
	if q.QuestionSetID != nil && q.InfoText == nil {
		return nil, ErrSetInfoRequired
	}

	if err := s.questionRepo.Update(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Deactivate retires a question, or its whole set.
func (s *QuestionService) Deactivate(ctx context.Context, id int) (int64, error) {
	n, err := s.questionRepo.Deactivate(ctx, id)
	if err != nil {
		return 0, err
	}
	s.log.Info().Int("question_id", id).Int64("deactivated", n).Msg("Question retired")
	return n, nil
}

// PartCoverage reports how many active questions a part has against what a test needs.
type PartCoverage struct {
	Part     int  `json:"part"`
	Active   int  `json:"active"`
	Required int  `json:"required"`
	Ready    bool `json:"ready"`
}

// Coverage checks whether the bank can currently build a test.
func (s *QuestionService) Coverage(ctx context.Context) ([]PartCoverage, error) {
	bank, err := s.questionRepo.List(ctx, model.QuestionFilter{ActiveOnly: true})
	if err != nil {
		return nil, err
	}
	return coverage(bank, DefaultQuotas), nil
}

func coverage(bank []model.Question, quotas []PartQuota) []PartCoverage {
	out := make([]PartCoverage, 0, len(quotas))
	for _, quota := range quotas {
		var pool []model.Question
		for _, q := range bank {
			if q.Part == quota.Part && q.IsActive {
				pool = append(pool, q)
			}
		}
		c := PartCoverage{Part: quota.Part, Active: len(pool), Required: quota.Count}
		if quota.Sets {
			c.Required = quota.Count * SetSize
			c.Ready = len(completeSets(pool)) >= quota.Count
		} else {
			singles := 0
			for _, q := range pool {
				if q.QuestionSetID == nil {
					singles++
				}
			}
			c.Ready = singles >= quota.Count
		}
		out = append(out, c)
	}
	return out
}

func blankToNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
