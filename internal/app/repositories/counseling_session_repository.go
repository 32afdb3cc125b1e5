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
	"github.com/schoolguidance/tracker/internal/pkg/dberrors"
	"github.com/schoolguidance/tracker/internal/pkg/helpers"
)

var sessionColumns = []string{
	"id", "report_id", "counselor_id", "student_id", "scheduled_date", "actual_date", "status",
	"student_attended", "session_notes", "case_verified", "follow_up_required", "created_at", "updated_at",
}

func scanSession(row rowScanner) (*models.CounselingSession, error) {
	var s models.CounselingSession
	err := row.Scan(&s.ID, &s.ReportID, &s.CounselorID, &s.StudentID, &s.ScheduledDate, &s.ActualDate, &s.Status,
		&s.StudentAttended, &s.SessionNotes, &s.CaseVerified, &s.FollowUpRequired, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CounselingSessionRepository stores counseling sessions
type CounselingSessionRepository struct {
	db db.DBTX
}

// NewCounselingSessionRepository creates a new CounselingSessionRepository
func NewCounselingSessionRepository(conn db.DBTX) *CounselingSessionRepository {
	return &CounselingSessionRepository{db: conn}
}

// Create inserts a session
func (r *CounselingSessionRepository) Create(ctx context.Context, s *models.CounselingSession) error {
	if s.Status == "" {
		s.Status = models.SessionScheduled
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO counseling_sessions (report_id, counselor_id, student_id, scheduled_date, status, session_notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, s.ReportID, s.CounselorID, s.StudentID, s.ScheduledDate, s.Status, s.SessionNotes).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if dberrors.IsForeignKeyError(err) {
			return apperrors.NewBadRequestError("student or report does not exist")
		}
		return fmt.Errorf("error creating counseling session: %w", err)
	}
	return nil
}

// GetByID retrieves a session
func (r *CounselingSessionRepository) GetByID(ctx context.Context, id int64) (*models.CounselingSession, error) {
	sql, args, err := psql.Select(sessionColumns...).From("counseling_sessions").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build session query: %w", err)
	}
	s, err := scanSession(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSessionNotFound
		}
		return nil, fmt.Errorf("error retrieving counseling session: %w", err)
	}
	return s, nil
}

// List returns a page of sessions, optionally for one counselor or student
func (r *CounselingSessionRepository) List(ctx context.Context, counselorID, studentID *int64, page, size int) ([]models.CounselingSession, int64, error) {
	where := squirrel.And{}
	if counselorID != nil {
		where = append(where, squirrel.Eq{"counselor_id": *counselorID})
	}
	if studentID != nil {
		where = append(where, squirrel.Eq{"student_id": *studentID})
	}

	countSQL, countArgs, err := psql.Select("COUNT(*)").From("counseling_sessions").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build session count query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting sessions: %w", err)
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	sql, args, err := psql.Select(sessionColumns...).From("counseling_sessions").Where(where).
		OrderBy("scheduled_date DESC", "id DESC").Offset(offset).Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build session list query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing sessions: %w", err)
	}
	defer rows.Close()

	sessions := []models.CounselingSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("error scanning session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, total, rows.Err()
}

// Update writes the mutable fields of a session
func (r *CounselingSessionRepository) Update(ctx context.Context, s *models.CounselingSession) error {
	err := r.db.QueryRow(ctx, `
		UPDATE counseling_sessions SET scheduled_date = $1, actual_date = $2, status = $3, student_attended = $4,
			session_notes = $5, case_verified = $6, follow_up_required = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at
	`, s.ScheduledDate, s.ActualDate, s.Status, s.StudentAttended, s.SessionNotes, s.CaseVerified,
		s.FollowUpRequired, s.ID).Scan(&s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.ErrSessionNotFound
		}
		return fmt.Errorf("error updating counseling session: %w", err)
	}
	return nil
}
