package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/db"
	"github.com/schoolguidance/tracker/internal/pkg/apperrors"
	"github.com/schoolguidance/tracker/internal/pkg/helpers"
)

var tallyColumns = []string{
	"t.student_id", "t.total_violations", "t.active_violations", "t.resolved_violations",
	"t.low_severity_count", "t.medium_severity_count", "t.high_severity_count", "t.critical_severity_count",
	"t.category_counts", "t.current_grade_violations", "t.current_strand_violations",
	"t.first_violation_date", "t.last_violation_date", "t.updated_at",
	"TRIM(u.first_name || ' ' || u.last_name)", "s.grade_level",
}

func scanTally(row rowScanner) (*models.ViolationTally, error) {
	var t models.ViolationTally
	err := row.Scan(&t.StudentID, &t.TotalViolations, &t.ActiveViolations, &t.ResolvedViolations,
		&t.LowSeverityCount, &t.MediumSeverityCount, &t.HighSeverityCount, &t.CriticalSeverityCount,
		&t.CategoryCounts, &t.CurrentGradeViolations, &t.CurrentStrandViolations,
		&t.FirstViolationDate, &t.LastViolationDate, &t.UpdatedAt,
		&t.StudentName, &t.GradeLevel)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// TallyRepository stores the per-student violation counters
type TallyRepository struct {
	db db.DBTX
}

// NewTallyRepository creates a new TallyRepository
func NewTallyRepository(conn db.DBTX) *TallyRepository {
	return &TallyRepository{db: conn}
}

func (r *TallyRepository) baseSelect() squirrel.SelectBuilder {
	return psql.Select(tallyColumns...).From("student_violation_tallies t").
		Join("students s ON s.id = t.student_id").
		Join("users u ON u.id = s.user_id")
}

// Upsert writes the full tally row of a student
func (r *TallyRepository) Upsert(ctx context.Context, t *models.ViolationTally) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO student_violation_tallies (student_id, total_violations, active_violations, resolved_violations,
			low_severity_count, medium_severity_count, high_severity_count, critical_severity_count,
			category_counts, current_grade_violations, current_strand_violations,
			first_violation_date, last_violation_date, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		ON CONFLICT (student_id) DO UPDATE SET
			total_violations = EXCLUDED.total_violations,
			active_violations = EXCLUDED.active_violations,
			resolved_violations = EXCLUDED.resolved_violations,
			low_severity_count = EXCLUDED.low_severity_count,
			medium_severity_count = EXCLUDED.medium_severity_count,
			high_severity_count = EXCLUDED.high_severity_count,
			critical_severity_count = EXCLUDED.critical_severity_count,
			category_counts = EXCLUDED.category_counts,
			current_grade_violations = EXCLUDED.current_grade_violations,
			current_strand_violations = EXCLUDED.current_strand_violations,
			first_violation_date = EXCLUDED.first_violation_date,
			last_violation_date = EXCLUDED.last_violation_date,
			updated_at = NOW()
		RETURNING updated_at
	`, t.StudentID, t.TotalViolations, t.ActiveViolations, t.ResolvedViolations,
		t.LowSeverityCount, t.MediumSeverityCount, t.HighSeverityCount, t.CriticalSeverityCount,
		t.CategoryCounts, t.CurrentGradeViolations, t.CurrentStrandViolations,
		t.FirstViolationDate, t.LastViolationDate).Scan(&t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error saving tally for student %d: %w", t.StudentID, err)
	}
	return nil
}

// GetByStudent retrieves the tally of a student
func (r *TallyRepository) GetByStudent(ctx context.Context, studentID int64) (*models.ViolationTally, error) {
	sql, args, err := r.baseSelect().Where(squirrel.Eq{"t.student_id": studentID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build tally query: %w", err)
	}
	t, err := scanTally(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewResourceNotFoundError("tally not found")
		}
		return nil, fmt.Errorf("error retrieving tally: %w", err)
	}
	return t, nil
}

// List returns tallies of students with at least one violation, highest first
func (r *TallyRepository) List(ctx context.Context, gradeLevel *int, page, size int) ([]models.ViolationTally, int64, error) {
	where := squirrel.And{squirrel.Gt{"t.total_violations": 0}, squirrel.Eq{"s.is_archived": false}}
	if gradeLevel != nil {
		where = append(where, squirrel.Eq{"s.grade_level": *gradeLevel})
	}

	countSQL, countArgs, err := psql.Select("COUNT(*)").From("student_violation_tallies t").
		Join("students s ON s.id = t.student_id").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build tally count query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting tallies: %w", err)
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	sql, args, err := r.baseSelect().Where(where).
		OrderBy("t.total_violations DESC", "t.student_id").Offset(offset).Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build tally list query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing tallies: %w", err)
	}
	defer rows.Close()

	tallies := []models.ViolationTally{}
	for rows.Next() {
		t, err := scanTally(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning tally: %w", err)
		}
		tallies = append(tallies, *t)
	}
	return tallies, total, rows.Err()
}
