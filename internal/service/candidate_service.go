package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/stemsi/speaking-backend/internal/config"
	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/repository"
	"github.com/stemsi/speaking-backend/internal/response"
	"github.com/stemsi/speaking-backend/internal/validator"
)

const exportPageSize = 500

// CandidateService handles candidate login and administration.
type CandidateService struct {
	cfg           *config.Config
	candidateRepo *repository.CandidateRepository
	auth          *AuthService
	log           zerolog.Logger
}

// NewCandidateService creates a new CandidateService.
func NewCandidateService(cfg *config.Config, candidateRepo *repository.CandidateRepository, auth *AuthService, log zerolog.Logger) *CandidateService {
	return &CandidateService{
		cfg:           cfg,
		candidateRepo: candidateRepo,
		auth:          auth,
		log:           log.With().Str("component", "candidate_service").Logger(),
	}
}

// Login authenticates a candidate by name and exam number and opens their
// single-device session.
func (s *CandidateService) Login(ctx context.Context, req model.CandidateLoginRequest) (*model.CandidateLoginResponse, error) {
	c, err := s.candidateRepo.GetByExamNumber(ctx, strings.TrimSpace(req.ExamNumber))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !strings.EqualFold(c.Name, strings.TrimSpace(req.Name)) {
		return nil, ErrInvalidCredentials
	}
	if c.HasCompleted {
		return nil, repository.ErrAlreadyCompleted
	}

	token, err := s.auth.GenerateCandidateToken(ctx, c.ID, c.ExamNumber)
	if err != nil {
		return nil, err
	}

	s.log.Info().Int("candidate_id", c.ID).Str("exam_number", c.ExamNumber).Msg("Candidate logged in")
	return &model.CandidateLoginResponse{Token: token, Candidate: *c}, nil
}

// GetByID retrieves a candidate by ID.
func (s *CandidateService) GetByID(ctx context.Context, id int) (*model.Candidate, error) {
	return s.candidateRepo.GetByID(ctx, id)
}

// ListCandidates returns one page of candidates matching the filter.
func (s *CandidateService) ListCandidates(ctx context.Context, f model.CandidateFilter) ([]model.Candidate, *response.Pagination, error) {
	f.Page, f.PerPage, _, _ = normalizePage(f.Page, f.PerPage)

	candidates, total, err := s.candidateRepo.ListPaginated(ctx, f)
	if err != nil {
		return nil, nil, err
	}
	return candidates, newPagination(f.Page, f.PerPage, total), nil
}

// Create registers a single candidate with the default number of attempts.
func (s *CandidateService) Create(ctx context.Context, req model.CreateCandidateRequest) (*model.Candidate, error) {
	c := &model.Candidate{
		Name:              strings.TrimSpace(req.Name),
		ExamNumber:        strings.TrimSpace(req.ExamNumber),
		RemainingAttempts: s.cfg.DefaultAttempts,
	}
	if err := s.candidateRepo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// BulkCreate registers many candidates. Invalid rows and exam numbers that
// already exist are reported per row; the rest are inserted.
func (s *CandidateService) BulkCreate(ctx context.Context, reqs []model.CreateCandidateRequest) (*model.BulkResult, error) {
	result := &model.BulkResult{Errors: []string{}}
	seen := make(map[string]bool, len(reqs))
	batch := make([]model.Candidate, 0, len(reqs))

	for _, r := range reqs {
		name, number := strings.TrimSpace(r.Name), strings.TrimSpace(r.ExamNumber)
		switch {
		case name == "":
			result.Errors = append(result.Errors, fmt.Sprintf("%s: name is required", number))
			continue
		case !validator.ExamNumber(number):
			result.Errors = append(result.Errors, fmt.Sprintf("%s: invalid exam number", number))
			continue
		case seen[number]:
			result.Errors = append(result.Errors, fmt.Sprintf("%s: duplicated in upload", number))
			continue
		}
		seen[number] = true
		batch = append(batch, model.Candidate{
			Name:              name,
			ExamNumber:        number,
			RemainingAttempts: s.cfg.DefaultAttempts,
		})
	}
	if len(batch) == 0 {
		return result, nil
	}

	skipped, err := s.candidateRepo.CreateMany(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("insert candidates: %w", err)
	}
	for _, number := range skipped {
		result.Errors = append(result.Errors, fmt.Sprintf("%s: exam number already registered", number))
	}
	result.Created = len(batch) - len(skipped)

	s.log.Info().Int("created", result.Created).Int("rejected", len(result.Errors)).Msg("Bulk candidate import finished")
	return result, nil
}

// ImportSpreadsheet registers candidates listed in an xlsx file.
func (s *CandidateService) ImportSpreadsheet(ctx context.Context, r io.Reader) (*model.BulkResult, error) {
	reqs, err := ParseCandidateRows(r)
	if err != nil {
		return nil, err
	}
	return s.BulkCreate(ctx, reqs)
}

// ExportSpreadsheet writes every candidate matching the filter as xlsx.
func (s *CandidateService) ExportSpreadsheet(ctx context.Context, f model.CandidateFilter, w io.Writer) error {
	header := []any{"Name", "Exam Number", "Remaining Attempts", "Completed", "Registered At"}
	var rows [][]any

	f.PerPage = exportPageSize
	for f.Page = 1; ; f.Page++ {
		page, total, err := s.candidateRepo.ListPaginated(ctx, f)
		if err != nil {
			return err
		}
		for _, c := range page {
			rows = append(rows, []any{c.Name, c.ExamNumber, c.RemainingAttempts, c.HasCompleted, c.CreatedAt.Format("2006-01-02 15:04")})
		}
		if f.Page*f.PerPage >= total {
			break
		}
	}
	return writeSheet(w, "Candidates", header, rows)
}

// ResetAttempts gives the listed candidates a fresh attempt and clears their
// completion flag and login session.
func (s *CandidateService) ResetAttempts(ctx context.Context, ids []int) (int64, error) {
	n, err := s.candidateRepo.ResetAttempts(ctx, ids, s.cfg.DefaultAttempts)
	if err != nil {
		return 0, err
	}
	if err := s.auth.ResetCandidateSessions(ctx, ids); err != nil {
		s.log.Warn().Err(err).Msg("Failed to clear candidate sessions after reset")
	}
	s.log.Info().Ints("candidate_ids", ids).Int64("updated", n).Msg("Candidate attempts reset")
	return n, nil
}

// ResetSession revokes a candidate's login so they can sign in on another device.
func (s *CandidateService) ResetSession(ctx context.Context, id int) error {
	if _, err := s.candidateRepo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.auth.ResetCandidateSession(ctx, id)
}

// Delete removes a candidate together with their attempts and scores.
func (s *CandidateService) Delete(ctx context.Context, id int) error {
	if err := s.candidateRepo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.auth.ResetCandidateSession(ctx, id); err != nil && !errors.Is(err, context.Canceled) {
		s.log.Warn().Err(err).Int("candidate_id", id).Msg("Failed to clear session of deleted candidate")
	}
	return nil
}
