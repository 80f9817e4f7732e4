package service

import (
	"context"
	"fmt"

	"github.com/stemsi/speaking-backend/internal/model"
	"github.com/stemsi/speaking-backend/internal/repository"
	"golang.org/x/sync/errgroup"
)

// DashboardData consolidates all metrics for the admin dashboard.
type DashboardData struct {
	repository.SummaryCounts
	LiveAttempts     int                                 `json:"live_attempts"`
	CEFRDistribution map[model.CEFRLevel]int             `json:"cefr_distribution"`
	QuestionCoverage []PartCoverage                      `json:"question_coverage"`
	RecentAttempts   []repository.DashboardRecentAttempt `json:"recent_attempts"`
}

// DashboardService handles admin dashboard business logic.
type DashboardService struct {
	repo      *repository.DashboardRepository
	questions *QuestionService
	monitor   *MonitorService
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(repo *repository.DashboardRepository, questions *QuestionService, monitor *MonitorService) *DashboardService {
	return &DashboardService{repo: repo, questions: questions, monitor: monitor}
}

// Bounds for the recent attempts section.
const (
	DefaultRecentAttempts = 10
	MaxRecentAttempts     = 50
)

// ClampRecent keeps a requested recent-attempts count within bounds. Zero
// or negative selects the default.
func ClampRecent(n int) int {
	switch {
	case n <= 0:
		return DefaultRecentAttempts
	case n > MaxRecentAttempts:
		return MaxRecentAttempts
	default:
		return n
	}
}

// GetDashboardData fetches the dashboard sections concurrently. Summary
// counts are required; the other sections are best effort.
func (s *DashboardService) GetDashboardData(ctx context.Context, recentLimit int) (*DashboardData, error) {
	var (
		counts   *repository.SummaryCounts
		cefr     map[model.CEFRLevel]int
		coverage []PartCoverage
		recent   []repository.DashboardRecentAttempt
		live     []repository.LiveAttempt
		g        errgroup.Group
	)

	g.Go(func() (err error) {
		counts, err = s.repo.GetSummaryCounts(ctx)
		return err
	})
	g.Go(func() error {
		cefr, _ = s.repo.GetCEFRDistribution(ctx)
		return nil
	})
	g.Go(func() error {
		coverage, _ = s.questions.Coverage(ctx)
		return nil
	})
	g.Go(func() error {
		recent, _ = s.repo.GetRecentAttempts(ctx, ClampRecent(recentLimit))
		return nil
	})
	g.Go(func() error {
		live, _ = s.monitor.ListLive(ctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("summary counts: %w", err)
	}

	data := &DashboardData{
		SummaryCounts:    *counts,
		LiveAttempts:     len(live),
		CEFRDistribution: cefr,
		QuestionCoverage: coverage,
		RecentAttempts:   recent,
	}
	if data.CEFRDistribution == nil {
		data.CEFRDistribution = map[model.CEFRLevel]int{}
	}
	if data.QuestionCoverage == nil {
		data.QuestionCoverage = []PartCoverage{}
	}
	if data.RecentAttempts == nil {
		data.RecentAttempts = []repository.DashboardRecentAttempt{}
	}
	return data, nil
}
