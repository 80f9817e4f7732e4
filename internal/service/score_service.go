package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/config"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/repository"
)

const reportDateLayout = "January 2, 2006"

// ScoreService publishes scores and renders score reports.
type ScoreService struct {
	cfg           *config.Config
	scoreRepo     *repository.ScoreRepository
	candidateRepo *repository.CandidateRepository
	log           zerolog.Logger
}

// NewScoreService creates a new ScoreService.
func NewScoreService(cfg *config.Config, scoreRepo *repository.ScoreRepository, candidateRepo *repository.CandidateRepository, log zerolog.Logger) *ScoreService {
	return &ScoreService{
		cfg:           cfg,
		scoreRepo:     scoreRepo,
		candidateRepo: candidateRepo,
		log:           log.With().Str("component", "score_service").Logger(),
	}
}

// List returns every published score, newest first.
func (s *ScoreService) List(ctx context.Context) ([]model.Score, error) {
	return s.scoreRepo.List(ctx)
}

// Upload records scores by exam number. The CEFR level is derived from the
// score. Rows that fail are reported and do not stop the rest.
func (s *ScoreService) Upload(ctx context.Context, rows []model.ScoreUploadRow) (*model.BulkResult, error) {
	result := &model.BulkResult{Errors: []string{}}

	for _, row := range rows {
		number := strings.TrimSpace(row.ExamNumber)
		if row.Score < 0 || row.Score > model.MaxScore {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: score %d is outside 0-%d", number, row.Score, model.MaxScore))
			continue
		}

		candidate, err := s.candidateRepo.GetByExamNumber(ctx, number)
		if err != nil {
			if isNotFound(err) {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: candidate not found", number))
				continue
			}
			return nil, fmt.Errorf("find candidate %s: %w", number, err)
		}

		score := &model.Score{
			CandidateID: candidate.ID,
			Score:       row.Score,
			CEFRLevel:   model.CEFRFor(row.Score),
		}
		if err := s.scoreRepo.Create(ctx, score); err != nil {
			s.log.Error().Err(err).Str("exam_number", number).Msg("Failed to save score")
			result.Errors = append(result.Errors, fmt.Sprintf("%s: failed to save score", number))
			continue
		}
		result.Created++
	}

	s.log.Info().Int("created", result.Created).Int("rejected", len(result.Errors)).Msg("Score upload finished")
	return result, nil
}

// UploadSpreadsheet records scores listed in an xlsx file.
func (s *ScoreService) UploadSpreadsheet(ctx context.Context, r io.Reader) (*model.BulkResult, error) {
	rows, invalid, err := ParseScoreRows(r)
	if err != nil {
		return nil, err
	}
	result, err := s.Upload(ctx, rows)
	if err != nil {
		return nil, err
	}
	result.Errors = append(invalid, result.Errors...)
	return result, nil
}

// Report builds the printable view of a score.
func (s *ScoreService) Report(ctx context.Context, id int) (*model.ScoreReport, error) {
	score, err := s.scoreRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.ScoreReport{
		CandidateName:   score.CandidateName,
		CandidateNumber: score.ExamNumber,
		TestDate:        score.CreatedAt.Format(reportDateLayout),
		Score:           score.Score,
		CEFRLevel:       score.CEFRLevel,
		CEFRDescription: score.CEFRLevel.Description(),
	}, nil
}

// WriteReportPDF renders the score report of id as a PDF.
func (s *ScoreService) WriteReportPDF(ctx context.Context, id int, w io.Writer) (*model.ScoreReport, error) {
	report, err := s.Report(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := renderScoreReport(w, s.cfg.ReportFontPath, report); err != nil {
		return nil, fmt.Errorf("render score report: %w", err)
	}
	return report, nil
}
