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
	"github.com/schoolguidance/tracker/internal/db"
	"github.com/schoolguidance/tracker/internal/pkg/apperrors"
	"github.com/schoolguidance/tracker/internal/pkg/helpers"
	"github.com/schoolguidance/tracker/internal/pkg/logger"
)

var reportColumns = []string{
	"r.id", "r.report_type", "r.title", "r.description", "r.reporter_user_id", "r.reporter_student_id",
	"r.reporter_teacher_id", "r.reported_student_id", "r.violation_type_id", "r.custom_violation",
	"r.severity", "r.status", "r.verification_status", "r.requires_counseling", "r.location",
	"r.witnesses", "r.incident_date", "r.school_year", "r.assigned_counselor_id", "r.counselor_notes",
	"r.summons_sent_at", "r.verified_by", "r.verified_at", "r.resolved_at", "r.created_at", "r.updated_at",
	"TRIM(COALESCE(ru.first_name, '') || ' ' || COALESCE(ru.last_name, ''))",
	"TRIM(COALESCE(su.first_name, '') || ' ' || COALESCE(su.last_name, ''))",
	"rs.user_id",
	"COALESCE(vt.name, '')",
}

func scanReport(row rowScanner) (*models.Report, error) {
	var r models.Report
	err := row.Scan(&r.ID, &r.ReportType, &r.Title, &r.Description, &r.ReporterUserID, &r.ReporterStudentID,
		&r.ReporterTeacherID, &r.ReportedStudentID, &r.ViolationTypeID, &r.CustomViolation,
		&r.Severity, &r.Status, &r.VerificationStatus, &r.RequiresCounseling, &r.Location,
		&r.Witnesses, &r.IncidentDate, &r.SchoolYear, &r.AssignedCounselorID, &r.CounselorNotes,
		&r.SummonsSentAt, &r.VerifiedBy, &r.VerifiedAt, &r.ResolvedAt, &r.CreatedAt, &r.UpdatedAt,
		&r.ReporterName, &r.ReportedStudentName, &r.ReportedUserID, &r.ViolationTypeName)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ReportRepository handles student and teacher reports
type ReportRepository struct {
	db db.DBTX
}

// NewReportRepository creates a new ReportRepository
func NewReportRepository(conn db.DBTX) *ReportRepository {
	return &ReportRepository{db: conn}
}

func (r *ReportRepository) baseSelect() squirrel.SelectBuilder {
	return psql.Select(reportColumns...).From("reports r").
		LeftJoin("users ru ON ru.id = r.reporter_user_id").
		LeftJoin("students rs ON rs.id = r.reported_student_id").
		LeftJoin("users su ON su.id = rs.user_id").
		LeftJoin("violation_types vt ON vt.id = r.violation_type_id")
}

// Create inserts a new report
func (r *ReportRepository) Create(ctx context.Context, rep *models.Report) error {
	sql, args, err := psql.Insert("reports").
		Columns("report_type", "title", "description", "reporter_user_id", "reporter_student_id",
			"reporter_teacher_id", "reported_student_id", "violation_type_id", "custom_violation",
			"severity", "status", "verification_status", "requires_counseling", "location", "witnesses",
			"incident_date", "school_year").
		Values(rep.ReportType, rep.Title, rep.Description, rep.ReporterUserID, rep.ReporterStudentID,
			rep.ReporterTeacherID, rep.ReportedStudentID, rep.ViolationTypeID, rep.CustomViolation,
			rep.Severity, rep.Status, rep.VerificationStatus, rep.RequiresCounseling, rep.Location, rep.Witnesses,
			rep.IncidentDate, rep.SchoolYear).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create report query: %w", err)
	}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&rep.ID, &rep.CreatedAt, &rep.UpdatedAt); err != nil {
		logger.Error().Err(err).Int64("reporterUserID", rep.ReporterUserID).Msg("Error creating report")
		return fmt.Errorf("error creating report: %w", err)
	}
	return nil
}

func (r *ReportRepository) getOne(ctx context.Context, q squirrel.SelectBuilder) (*models.Report, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build report query: %w", err)
	}
	rep, err := scanReport(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrReportNotFound
		}
		return nil, fmt.Errorf("error retrieving report: %w", err)
	}
	return rep, nil
}

// GetByID retrieves a report with display names
func (r *ReportRepository) GetByID(ctx context.Context, id int64) (*models.Report, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"r.id": id}))
}

// GetForUpdate retrieves a report and locks its row for the transaction
func (r *ReportRepository) GetForUpdate(ctx context.Context, id int64) (*models.Report, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"r.id": id}).Suffix("FOR UPDATE OF r"))
}

func applyReportFilter(q squirrel.SelectBuilder, f dto.ReportFilter) squirrel.SelectBuilder {
	if f.ReportType != "" {
		q = q.Where(squirrel.Eq{"r.report_type": f.ReportType})
	}
	if f.Status != "" {
		q = q.Where(squirrel.Eq{"r.status": f.Status})
	}
	if f.SchoolYear != "" {
		q = q.Where(squirrel.Eq{"r.school_year": f.SchoolYear})
	}
	if f.ReportedStudentID != nil {
		q = q.Where(squirrel.Eq{"r.reported_student_id": *f.ReportedStudentID})
	}
	if f.ReporterUserID != nil {
		q = q.Where(squirrel.Eq{"r.reporter_user_id": *f.ReporterUserID})
	}
	if f.Search != "" {
		pattern := helpers.LikePattern(f.Search)
		q = q.Where(squirrel.Or{
			squirrel.ILike{"r.title": pattern},
			squirrel.ILike{"r.description": pattern},
		})
	}
	return q
}

// List returns a filtered page of reports, newest first
func (r *ReportRepository) List(ctx context.Context, f dto.ReportFilter, page, size int) ([]models.Report, int64, error) {
	countSQL, countArgs, err := applyReportFilter(psql.Select("COUNT(*)").From("reports r"), f).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build report count query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting reports: %w", err)
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	reports, err := r.query(ctx, applyReportFilter(r.baseSelect(), f).
		OrderBy("r.created_at DESC", "r.id DESC").Offset(offset).Limit(uint64(limit)))
	return reports, total, err
}

// ListForStudent returns reports the student filed plus reports filed about
// them by others, newest first.
func (r *ReportRepository) ListForStudent(ctx context.Context, userID, studentID int64) ([]models.Report, error) {
	return r.query(ctx, r.baseSelect().
		Where(squirrel.Or{
			squirrel.Eq{"r.reporter_user_id": userID},
			squirrel.And{
				squirrel.Eq{"r.reported_student_id": studentID},
				squirrel.Or{
					squirrel.Eq{"r.report_type": models.ReportTypeTeacher},
					squirrel.Expr("r.reporter_student_id IS DISTINCT FROM r.reported_student_id"),
				},
			},
		}).
		OrderBy("r.created_at DESC", "r.id DESC"))
}

// ListByReporter returns reports filed by a user, newest first
func (r *ReportRepository) ListByReporter(ctx context.Context, userID int64) ([]models.Report, error) {
	return r.query(ctx, r.baseSelect().Where(squirrel.Eq{"r.reporter_user_id": userID}).
		OrderBy("r.created_at DESC", "r.id DESC"))
}

func (r *ReportRepository) query(ctx context.Context, q squirrel.SelectBuilder) ([]models.Report, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build report list query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing reports: %w", err)
	}
	defer rows.Close()

	reports := []models.Report{}
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning report: %w", err)
		}
		reports = append(reports, *rep)
	}
	return reports, rows.Err()
}

// UpdateWorkflow persists the workflow-owned columns of a report
func (r *ReportRepository) UpdateWorkflow(ctx context.Context, rep *models.Report) error {
	rep.UpdatedAt = time.Now()
	sql, args, err := psql.Update("reports").
		Set("status", rep.Status).
		Set("verification_status", rep.VerificationStatus).
		Set("assigned_counselor_id", rep.AssignedCounselorID).
		Set("counselor_notes", rep.CounselorNotes).
		Set("summons_sent_at", rep.SummonsSentAt).
		Set("verified_by", rep.VerifiedBy).
		Set("verified_at", rep.VerifiedAt).
		Set("resolved_at", rep.ResolvedAt).
		Set("updated_at", rep.UpdatedAt).
		Where(squirrel.Eq{"id": rep.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build report update query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("error updating report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrReportNotFound
	}
	return nil
}

// NormalizeLegacyStatus rewrites the old summons_sent status to summoned
func (r *ReportRepository) NormalizeLegacyStatus(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, "UPDATE reports SET status = $1, updated_at = NOW() WHERE status = $2",
		models.StatusSummoned, models.StatusSummonsSentLegacy)
	if err != nil {
		return 0, fmt.Errorf("error normalizing report status: %w", err)
	}
	return tag.RowsAffected(), nil
}
