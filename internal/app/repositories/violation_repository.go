package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/app/models/dto"
	"github.com/schoolguidance/tracker/internal/app/workflow"
	"github.com/schoolguidance/tracker/internal/db"
	"github.com/schoolguidance/tracker/internal/pkg/apperrors"
	"github.com/schoolguidance/tracker/internal/pkg/dberrors"
	"github.com/schoolguidance/tracker/internal/pkg/helpers"
)

var violationColumns = []string{
	"v.id", "v.student_id", "v.violation_type_id", "v.counselor_id", "v.related_report_id", "v.incident_date",
	"v.description", "v.location", "v.status", "v.counselor_notes", "v.action_taken", "v.academic_quarter",
	"v.school_year", "v.created_at", "v.updated_at",
	"vt.name", "vt.category", "vt.severity_level",
	"TRIM(u.first_name || ' ' || u.last_name)", "s.grade_level", "s.strand",
}

func scanViolation(row rowScanner) (*models.ViolationRecord, error) {
	var v models.ViolationRecord
	err := row.Scan(&v.ID, &v.StudentID, &v.ViolationTypeID, &v.CounselorID, &v.RelatedReportID, &v.IncidentDate,
		&v.Description, &v.Location, &v.Status, &v.CounselorNotes, &v.ActionTaken, &v.AcademicQuarter,
		&v.SchoolYear, &v.CreatedAt, &v.UpdatedAt,
		&v.ViolationTypeName, &v.Category, &v.SeverityLevel,
		&v.StudentName, &v.GradeLevel, &v.Strand)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ViolationRepository handles student violation records
type ViolationRepository struct {
	db db.DBTX
}

// NewViolationRepository creates a new ViolationRepository
func NewViolationRepository(conn db.DBTX) *ViolationRepository {
	return &ViolationRepository{db: conn}
}

func (r *ViolationRepository) baseSelect() squirrel.SelectBuilder {
	return psql.Select(violationColumns...).From("student_violation_records v").
		Join("violation_types vt ON vt.id = v.violation_type_id").
		Join("students s ON s.id = v.student_id").
		Join("users u ON u.id = s.user_id")
}

// Create inserts a violation record. At most one record may exist per report.
func (r *ViolationRepository) Create(ctx context.Context, v *models.ViolationRecord) error {
	if v.Status == "" {
		v.Status = models.ViolationActive
	}
	sql, args, err := psql.Insert("student_violation_records").
		Columns("student_id", "violation_type_id", "counselor_id", "related_report_id", "incident_date",
			"description", "location", "status", "counselor_notes", "action_taken", "academic_quarter", "school_year").
		Values(v.StudentID, v.ViolationTypeID, v.CounselorID, v.RelatedReportID, v.IncidentDate,
			v.Description, v.Location, v.Status, v.CounselorNotes, v.ActionTaken, v.AcademicQuarter, v.SchoolYear).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create violation query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "student_violation_records_related_report_key") {
			return apperrors.NewConflictError("a violation has already been recorded for this report")
		}
		if dberrors.IsForeignKeyError(err) {
			return apperrors.NewBadRequestError("student or violation type does not exist")
		}
		return fmt.Errorf("error creating violation record: %w", err)
	}
	return nil
}

func (r *ViolationRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.ViolationRecord, error) {
	sql, args, err := r.baseSelect().Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build violation query: %w", err)
	}
	v, err := scanViolation(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrViolationNotFound
		}
		return nil, fmt.Errorf("error retrieving violation: %w", err)
	}
	return v, nil
}

// GetByID retrieves a violation record
func (r *ViolationRepository) GetByID(ctx context.Context, id int64) (*models.ViolationRecord, error) {
	return r.getOne(ctx, squirrel.Eq{"v.id": id})
}

// GetByReportID retrieves the record created from a report
func (r *ViolationRepository) GetByReportID(ctx context.Context, reportID int64) (*models.ViolationRecord, error) {
	return r.getOne(ctx, squirrel.Eq{"v.related_report_id": reportID})
}

func applyViolationFilter(q squirrel.SelectBuilder, f dto.ViolationFilter) squirrel.SelectBuilder {
	if f.StudentID != nil {
		q = q.Where(squirrel.Eq{"v.student_id": *f.StudentID})
	}
	if f.SchoolYear != "" {
		q = q.Where(squirrel.Eq{"v.school_year": f.SchoolYear})
	}
	if f.Status != "" {
		q = q.Where(squirrel.Eq{"v.status": f.Status})
	}
	if f.Category != "" {
		q = q.Where(squirrel.Eq{"vt.category": f.Category})
	}
	return q
}

// List returns a filtered page of violation records, latest incident first
func (r *ViolationRepository) List(ctx context.Context, f dto.ViolationFilter, page, size int) ([]models.ViolationRecord, int64, error) {
	countSQL, countArgs, err := applyViolationFilter(psql.Select("COUNT(*)").From("student_violation_records v").
		Join("violation_types vt ON vt.id = v.violation_type_id"), f).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build violation count query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting violations: %w", err)
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	records, err := r.query(ctx, applyViolationFilter(r.baseSelect(), f).
		OrderBy("v.incident_date DESC", "v.id DESC").Offset(offset).Limit(uint64(limit)))
	return records, total, err
}

// ListByStudent returns every record of a student, latest first
func (r *ViolationRepository) ListByStudent(ctx context.Context, studentID int64) ([]models.ViolationRecord, error) {
	return r.query(ctx, r.baseSelect().Where(squirrel.Eq{"v.student_id": studentID}).
		OrderBy("v.incident_date DESC", "v.id DESC"))
}

// Recent returns the latest records of a school year
func (r *ViolationRepository) Recent(ctx context.Context, schoolYear string, limit uint64) ([]models.ViolationRecord, error) {
	q := r.baseSelect().OrderBy("v.created_at DESC", "v.id DESC").Limit(limit)
	if schoolYear != "" {
		q = q.Where(squirrel.Eq{"v.school_year": schoolYear})
	}
	return r.query(ctx, q)
}

func (r *ViolationRepository) query(ctx context.Context, q squirrel.SelectBuilder) ([]models.ViolationRecord, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build violation list query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing violations: %w", err)
	}
	defer rows.Close()

	records := []models.ViolationRecord{}
	for rows.Next() {
		v, err := scanViolation(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning violation: %w", err)
		}
		records = append(records, *v)
	}
	return records, rows.Err()
}

// TallyRecords loads what the tally computation needs for one student
func (r *ViolationRepository) TallyRecords(ctx context.Context, studentID int64) ([]workflow.TallyRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT v.status, vt.severity_level, vt.category, v.incident_date, v.school_year
		FROM student_violation_records v
		JOIN violation_types vt ON vt.id = v.violation_type_id
		WHERE v.student_id = $1
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("error loading tally records: %w", err)
	}
	defer rows.Close()

	var records []workflow.TallyRecord
	for rows.Next() {
		var t workflow.TallyRecord
		if err := rows.Scan(&t.Status, &t.SeverityLevel, &t.Category, &t.IncidentDate, &t.SchoolYear); err != nil {
			return nil, fmt.Errorf("error scanning tally record: %w", err)
		}
		records = append(records, t)
	}
	return records, rows.Err()
}

// SetStatusByReport changes the status of the record linked to a report
func (r *ViolationRepository) SetStatusByReport(ctx context.Context, reportID int64, status models.ViolationStatus) (int64, error) {
	tag, err := r.db.Exec(ctx,
		"UPDATE student_violation_records SET status = $1, updated_at = $2 WHERE related_report_id = $3",
		status, time.Now(), reportID)
	if err != nil {
		return 0, fmt.Errorf("error updating violation status: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteForUnconfirmedReports removes records whose report is neither verified
// nor resolved and returns the affected student ids.
func (r *ViolationRepository) DeleteForUnconfirmedReports(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
		DELETE FROM student_violation_records v
		USING reports r
		WHERE v.related_report_id = r.id AND r.status NOT IN ($1, $2)
		RETURNING v.student_id
	`, models.StatusVerified, models.StatusResolved)
	if err != nil {
		return nil, fmt.Errorf("error deleting unconfirmed violations: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("error scanning deleted violations: %w", err)
	}
	return ids, nil
}

// CountByStudentForYear returns violation counts per student for a school year
func (r *ViolationRepository) CountByStudentForYear(ctx context.Context, schoolYear string) (map[int64]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT student_id, COUNT(*) FROM student_violation_records
		WHERE school_year = $1 GROUP BY student_id
	`, schoolYear)
	if err != nil {
		return nil, fmt.Errorf("error counting violations per student: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int)
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("error scanning violation count: %w", err)
		}
		counts[id] = n
	}
	return counts, rows.Err()
}

// CountBySchoolYear returns violation counts per school year
func (r *ViolationRepository) CountBySchoolYear(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.Query(ctx, `
		SELECT school_year, COUNT(*) FROM student_violation_records
		WHERE school_year <> '' GROUP BY school_year
	`)
	if err != nil {
		return nil, fmt.Errorf("error counting violations per year: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var year string
		var n int
		if err := rows.Scan(&year, &n); err != nil {
			return nil, fmt.Errorf("error scanning violation count: %w", err)
		}
		counts[year] = n
	}
	return counts, rows.Err()
}

// CountByStudentAndYear returns violation counts per school year for each of
// the given students
func (r *ViolationRepository) CountByStudentAndYear(ctx context.Context, studentIDs []int64) (map[int64]map[string]int, error) {
	counts := make(map[int64]map[string]int, len(studentIDs))
	if len(studentIDs) == 0 {
		return counts, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT student_id, school_year, COUNT(*) FROM student_violation_records
		WHERE student_id = ANY($1) GROUP BY student_id, school_year
	`, studentIDs)
	if err != nil {
		return nil, fmt.Errorf("error counting violations per student and year: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var year string
		var n int
		if err := rows.Scan(&id, &year, &n); err != nil {
			return nil, fmt.Errorf("error scanning violation count: %w", err)
		}
		if counts[id] == nil {
			counts[id] = make(map[string]int)
		}
		counts[id][year] = n
	}
	return counts, rows.Err()
}
