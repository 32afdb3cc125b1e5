package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/app/models/dto"
	"github.com/schoolguidance/tracker/internal/app/repositories"
	"github.com/schoolguidance/tracker/internal/pkg/apperrors"
	"github.com/schoolguidance/tracker/internal/pkg/schoolyear"
)

// SettingsOptions configures the settings cache
type SettingsOptions struct {
	CacheTTL time.Duration
}

// SettingsService reads and updates the system settings
type SettingsService interface {
	GetSettings(ctx context.Context) (*models.SystemSettings, error)
	UpdateSettings(ctx context.Context, adminUserID int64, req *dto.UpdateSettingsRequest) (*models.SystemSettings, error)
	// CurrentSchoolYear never fails; it falls back to the calendar default
	CurrentSchoolYear(ctx context.Context) string
	Invalidate()
}

type settingsService struct {
	store  *Store
	ttl    time.Duration
	logger zerolog.Logger
	now    func() time.Time
	load   func(ctx context.Context) (*models.SystemSettings, error)

	mu       sync.Mutex
	cached   *models.SystemSettings
	cachedAt time.Time
	// generation changes on every Invalidate so a read that raced with it
	// is not cached
	generation uint64
}

// NewSettingsService creates a SettingsService
func NewSettingsService(store *Store, opts SettingsOptions, logger zerolog.Logger) *settingsService {
	s := &settingsService{store: store, ttl: opts.CacheTTL, logger: logger, now: time.Now}
	s.load = func(ctx context.Context) (*models.SystemSettings, error) {
		return s.store.Repos().Settings.Get(ctx)
	}
	return s
}

func (s *settingsService) GetSettings(ctx context.Context) (*models.SystemSettings, error) {
	s.mu.Lock()
	if s.cached != nil && s.now().Sub(s.cachedAt) < s.ttl {
		copied := *s.cached
		s.mu.Unlock()
		return &copied, nil
	}
	generation := s.generation
	s.mu.Unlock()

	settings, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.generation == generation {
		s.cached = settings
		s.cachedAt = s.now()
	}
	s.mu.Unlock()

	copied := *settings
	return &copied, nil
}

func (s *settingsService) Invalidate() {
	s.mu.Lock()
	s.cached = nil
	s.generation++
	s.mu.Unlock()
}

func (s *settingsService) CurrentSchoolYear(ctx context.Context) string {
	settings, err := s.GetSettings(ctx)
	if err != nil || settings.CurrentSchoolYear == "" {
		if err != nil && !apperrors.IsNotFound(err) {
			s.logger.Warn().Err(err).Msg("Falling back to calendar school year")
		}
		return schoolyear.Default(s.now())
	}
	return settings.CurrentSchoolYear
}

func (s *settingsService) UpdateSettings(ctx context.Context, adminUserID int64, req *dto.UpdateSettingsRequest) (*models.SystemSettings, error) {
	var saved *models.SystemSettings
	err := s.store.InTx(ctx, func(ctx context.Context, repos *repositories.Repositories) error {
		current, err := repos.Settings.Get(ctx)
		if err != nil {
			if !apperrors.IsNotFound(err) {
				return err
			}
			current = &models.SystemSettings{CurrentSchoolYear: schoolyear.Default(s.now()), IsSystemActive: true}
		}

		applySettingsUpdate(current, req)
		if current.SchoolYearStartDate != nil && current.SchoolYearEndDate != nil &&
			!current.SchoolYearEndDate.After(*current.SchoolYearStartDate) {
			return apperrors.NewBadRequestError("school year end date must be after the start date")
		}
		current.UpdatedBy = &adminUserID

		if err := repos.Settings.Save(ctx, current); err != nil {
			return err
		}
		saved = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Invalidate()
	s.logger.Info().
		Int64("adminUserID", adminUserID).
		Bool("isSystemActive", saved.IsSystemActive).
		Str("schoolYear", saved.CurrentSchoolYear).
		Msg("System settings updated")
	return saved, nil
}

func applySettingsUpdate(current *models.SystemSettings, req *dto.UpdateSettingsRequest) {
	if req.CurrentSchoolYear != nil {
		current.CurrentSchoolYear = *req.CurrentSchoolYear
	}
	if req.SchoolYearStartDate != nil {
		current.SchoolYearStartDate = req.SchoolYearStartDate
	}
	if req.SchoolYearEndDate != nil {
		current.SchoolYearEndDate = req.SchoolYearEndDate
	}
	if req.IsSystemActive != nil {
		current.IsSystemActive = *req.IsSystemActive
	}
	if req.SystemMessage != nil {
		current.SystemMessage = *req.SystemMessage
	}
}
