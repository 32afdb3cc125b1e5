package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/db"
	"github.com/schoolguidance/tracker/internal/pkg/apperrors"
)

// SettingsRepository reads and writes the singleton system settings row
type SettingsRepository struct {
	db db.DBTX
}

// NewSettingsRepository creates a new SettingsRepository
func NewSettingsRepository(conn db.DBTX) *SettingsRepository {
	return &SettingsRepository{db: conn}
}

// Get returns the settings row
func (r *SettingsRepository) Get(ctx context.Context) (*models.SystemSettings, error) {
	var s models.SystemSettings
	err := r.db.QueryRow(ctx, `
		SELECT current_school_year, school_year_start_date, school_year_end_date, is_system_active,
			system_message, updated_by, last_updated
		FROM system_settings WHERE id = 1
	`).Scan(&s.CurrentSchoolYear, &s.SchoolYearStartDate, &s.SchoolYearEndDate, &s.IsSystemActive,
		&s.SystemMessage, &s.UpdatedBy, &s.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewResourceNotFoundError("system settings have not been initialized")
		}
		return nil, fmt.Errorf("error retrieving system settings: %w", err)
	}
	return &s, nil
}

// EnsureDefault creates the settings row when missing
func (r *SettingsRepository) EnsureDefault(ctx context.Context, schoolYear string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO system_settings (id, current_school_year, is_system_active)
		VALUES (1, $1, TRUE)
		ON CONFLICT (id) DO NOTHING
	`, schoolYear)
	if err != nil {
		return false, fmt.Errorf("error initializing system settings: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Save overwrites the settings row
func (r *SettingsRepository) Save(ctx context.Context, s *models.SystemSettings) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO system_settings (id, current_school_year, school_year_start_date, school_year_end_date,
			is_system_active, system_message, updated_by, last_updated)
		VALUES (1, $1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE SET
			current_school_year = EXCLUDED.current_school_year,
			school_year_start_date = EXCLUDED.school_year_start_date,
			school_year_end_date = EXCLUDED.school_year_end_date,
			is_system_active = EXCLUDED.is_system_active,
			system_message = EXCLUDED.system_message,
			updated_by = EXCLUDED.updated_by,
			last_updated = NOW()
		RETURNING last_updated
	`, s.CurrentSchoolYear, s.SchoolYearStartDate, s.SchoolYearEndDate, s.IsSystemActive,
		s.SystemMessage, s.UpdatedBy).Scan(&s.LastUpdated)
	if err != nil {
		return fmt.Errorf("error saving system settings: %w", err)
	}
	return nil
}
