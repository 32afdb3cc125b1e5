package repositories

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/schoolguidance/tracker/internal/app/models/dto"
	"github.com/schoolguidance/tracker/internal/db"
)

// DashboardRepository runs the aggregate queries behind the counselor dashboard
type DashboardRepository struct {
	db db.DBTX
}

// NewDashboardRepository creates a new DashboardRepository
func NewDashboardRepository(conn db.DBTX) *DashboardRepository {
	return &DashboardRepository{db: conn}
}

func yearFilter(column, schoolYear string) squirrel.Sqlizer {
	if schoolYear == "" {
		return squirrel.And{}
	}
	return squirrel.Eq{column: schoolYear}
}

func (r *DashboardRepository) count(ctx context.Context, q squirrel.SelectBuilder) (int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}
	var n int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("error running count query: %w", err)
	}
	return n, nil
}

// grouped runs a "SELECT key, COUNT(*) ... GROUP BY key" query
func (r *DashboardRepository) grouped(ctx context.Context, q squirrel.SelectBuilder) (map[string]int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build grouped query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error running grouped query: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var key string
		var n int64
		if err := rows.Scan(&key, &n); err != nil {
			return nil, fmt.Errorf("error scanning grouped row: %w", err)
		}
		out[key] = n
	}
	return out, rows.Err()
}

func violationsJoined() squirrel.SelectBuilder {
	return psql.Select().From("student_violation_records v").
		Join("violation_types vt ON vt.id = v.violation_type_id").
		Join("students s ON s.id = v.student_id")
}

// Totals fills the counters of the dashboard stats
func (r *DashboardRepository) Totals(ctx context.Context, schoolYear string, stats *dto.DashboardStats) error {
	var err error
	if stats.TotalStudents, err = r.count(ctx, psql.Select("COUNT(*)").From("students").
		Where(squirrel.Eq{"is_active": true, "is_archived": false})); err != nil {
		return err
	}
	if stats.TotalViolations, err = r.count(ctx, psql.Select("COUNT(*)").From("student_violation_records").
		Where(yearFilter("school_year", schoolYear))); err != nil {
		return err
	}
	if stats.TotalReports, err = r.count(ctx, psql.Select("COUNT(*)").From("reports").
		Where(yearFilter("school_year", schoolYear))); err != nil {
		return err
	}
	if stats.PendingReports, err = r.count(ctx, psql.Select("COUNT(*)").From("reports").
		Where(yearFilter("school_year", schoolYear)).Where(squirrel.Eq{"status": "pending"})); err != nil {
		return err
	}
	stats.ViolationsBySeverity, err = r.ViolationsBySeverity(ctx, schoolYear)
	return err
}

// ViolationsBySeverity counts violations per severity level
func (r *DashboardRepository) ViolationsBySeverity(ctx context.Context, schoolYear string) (map[string]int64, error) {
	return r.grouped(ctx, violationsJoined().Columns("vt.severity_level", "COUNT(*)").
		Where(yearFilter("v.school_year", schoolYear)).GroupBy("vt.severity_level"))
}

// Analytics fills the breakdowns of the analytics view
func (r *DashboardRepository) Analytics(ctx context.Context, schoolYear string, a *dto.Analytics) error {
	var err error
	if a.ByCategory, err = r.grouped(ctx, violationsJoined().Columns("vt.category", "COUNT(*)").
		Where(yearFilter("v.school_year", schoolYear)).GroupBy("vt.category")); err != nil {
		return err
	}
	if a.BySeverity, err = r.ViolationsBySeverity(ctx, schoolYear); err != nil {
		return err
	}
	if a.ByMonth, err = r.grouped(ctx, violationsJoined().Columns("TO_CHAR(v.incident_date, 'YYYY-MM')", "COUNT(*)").
		Where(yearFilter("v.school_year", schoolYear)).GroupBy("1")); err != nil {
		return err
	}
	if a.ByGradeLevel, err = r.grouped(ctx, violationsJoined().Columns("s.grade_level::text", "COUNT(*)").
		Where(yearFilter("v.school_year", schoolYear)).GroupBy("s.grade_level")); err != nil {
		return err
	}
	if a.ReportsByStatus, err = r.grouped(ctx, psql.Select("status", "COUNT(*)").From("reports").
		Where(yearFilter("school_year", schoolYear)).GroupBy("status")); err != nil {
		return err
	}

	sql, args, err := violationsJoined().Columns("vt.name", "COUNT(*) AS n").
		Where(yearFilter("v.school_year", schoolYear)).
		GroupBy("vt.name").OrderBy("n DESC", "vt.name").Limit(5).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build top violation types query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error loading top violation types: %w", err)
	}
	defer rows.Close()

	a.TopViolationTypes = []dto.CountByName{}
	for rows.Next() {
		var c dto.CountByName
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return fmt.Errorf("error scanning top violation type: %w", err)
		}
		a.TopViolationTypes = append(a.TopViolationTypes, c)
	}
	return rows.Err()
}
