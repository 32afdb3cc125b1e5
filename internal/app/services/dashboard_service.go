package services

import (
	"context"

	"github.com/schoolguidance/tracker/internal/app/models/dto"
)

// recentViolationLimit is how many records the dashboard lists
const recentViolationLimit = 10

// DashboardService builds the counselor dashboard
type DashboardService interface {
	Stats(ctx context.Context, schoolYear string) (*dto.DashboardStats, error)
	Analytics(ctx context.Context, schoolYear string) (*dto.Analytics, error)
}

type dashboardService struct {
	store    *Store
	settings SettingsService
}

// NewDashboardService creates a DashboardService
func NewDashboardService(store *Store, settings SettingsService) *dashboardService {
	return &dashboardService{store: store, settings: settings}
}

func (s *dashboardService) year(ctx context.Context, schoolYear string) string {
	if schoolYear != "" {
		return schoolYear
	}
	return s.settings.CurrentSchoolYear(ctx)
}

// Stats returns the totals of a school year, the current one by default
func (s *dashboardService) Stats(ctx context.Context, schoolYear string) (*dto.DashboardStats, error) {
	stats := &dto.DashboardStats{SchoolYear: s.year(ctx, schoolYear)}
	repos := s.store.Repos()
	if err := repos.Dashboard.Totals(ctx, stats.SchoolYear, stats); err != nil {
		return nil, err
	}
	recent, err := repos.Violations.Recent(ctx, stats.SchoolYear, recentViolationLimit)
	if err != nil {
		return nil, err
	}
	stats.RecentViolations = recent
	return stats, nil
}

func (s *dashboardService) Analytics(ctx context.Context, schoolYear string) (*dto.Analytics, error) {
	a := &dto.Analytics{SchoolYear: s.year(ctx, schoolYear)}
	if err := s.store.Repos().Dashboard.Analytics(ctx, a.SchoolYear, a); err != nil {
		return nil, err
	}
	return a, nil
}
