package repositories

import (
	"context"
	"fmt"

	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/db"
)

// HistoryRepository keeps school-year and strand change history
type HistoryRepository struct {
	db db.DBTX
}

// NewHistoryRepository creates a new HistoryRepository
func NewHistoryRepository(conn db.DBTX) *HistoryRepository {
	return &HistoryRepository{db: conn}
}

// Archive closes a student's enrollment for a school year. The active row for
// that year takes the given snapshot and is deactivated; a year that is
// already archived is left untouched. Returns whether a row was written.
func (r *HistoryRepository) Archive(ctx context.Context, h *models.StudentSchoolYearHistory) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO student_school_year_history (student_id, school_year, grade_level, section, strand, is_active)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		ON CONFLICT (student_id, school_year) DO UPDATE SET
			grade_level = EXCLUDED.grade_level,
			section = EXCLUDED.section,
			strand = EXCLUDED.strand,
			is_active = FALSE
		WHERE student_school_year_history.is_active
	`, h.StudentID, h.SchoolYear, h.GradeLevel, h.Section, h.Strand)
	if err != nil {
		return false, fmt.Errorf("error archiving school year for student %d: %w", h.StudentID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Activate writes the active enrollment row for a school year, replacing any
// earlier row for the same year.
func (r *HistoryRepository) Activate(ctx context.Context, h *models.StudentSchoolYearHistory) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO student_school_year_history (student_id, school_year, grade_level, section, strand, is_active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
		ON CONFLICT (student_id, school_year) DO UPDATE SET
			grade_level = EXCLUDED.grade_level,
			section = EXCLUDED.section,
			strand = EXCLUDED.strand,
			is_active = TRUE
	`, h.StudentID, h.SchoolYear, h.GradeLevel, h.Section, h.Strand)
	if err != nil {
		return fmt.Errorf("error activating school year for student %d: %w", h.StudentID, err)
	}
	return nil
}

// ListByStudent returns a student's school-year history, newest first
func (r *HistoryRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.StudentSchoolYearHistory, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, student_id, school_year, grade_level, section, strand, is_active, created_at
		FROM student_school_year_history WHERE student_id = $1
		ORDER BY school_year DESC
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("error listing school year history: %w", err)
	}
	defer rows.Close()

	history := []models.StudentSchoolYearHistory{}
	for rows.Next() {
		var h models.StudentSchoolYearHistory
		if err := rows.Scan(&h.ID, &h.StudentID, &h.SchoolYear, &h.GradeLevel, &h.Section, &h.Strand,
			&h.IsActive, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning school year history: %w", err)
		}
		history = append(history, h)
	}
	return history, rows.Err()
}

// RecordStrandChange appends a strand change entry
func (r *HistoryRepository) RecordStrandChange(ctx context.Context, c *models.StrandChange) error {
	if c.ChangeReason == "" {
		c.ChangeReason = models.ChangeReasonOther
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO strand_change_history (student_id, previous_strand, new_strand, previous_section,
			new_section, change_reason, approved_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, effective_date, created_at
	`, c.StudentID, c.PreviousStrand, c.NewStrand, c.PreviousSection, c.NewSection, c.ChangeReason,
		c.ApprovedBy).Scan(&c.ID, &c.EffectiveDate, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("error recording strand change: %w", err)
	}
	return nil
}
