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
)

var teacherColumns = append([]string{
	"t.id", "t.user_id", "t.employee_id", "t.department", "t.specialization", "t.advising_grade",
	"t.advising_strand", "t.advising_section", "t.approval_status", "t.approved_by", "t.approved_at",
	"t.rejection_reason", "t.created_at",
}, userColumns...)

func scanTeacher(row rowScanner) (*models.Teacher, error) {
	var t models.Teacher
	var u models.User
	err := row.Scan(&t.ID, &t.UserID, &t.EmployeeID, &t.Department, &t.Specialization, &t.AdvisingGrade,
		&t.AdvisingStrand, &t.AdvisingSection, &t.ApprovalStatus, &t.ApprovedBy, &t.ApprovedAt,
		&t.RejectionReason, &t.CreatedAt,
		&u.ID, &u.Username, &u.Email, &u.Password, &u.FirstName, &u.LastName,
		&u.RoleType, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.User = &u
	return &t, nil
}

// TeacherRepository handles teacher database operations
type TeacherRepository struct {
	db db.DBTX
}

// NewTeacherRepository creates a new TeacherRepository
func NewTeacherRepository(conn db.DBTX) *TeacherRepository {
	return &TeacherRepository{db: conn}
}

// Create inserts a teacher profile
func (r *TeacherRepository) Create(ctx context.Context, t *models.Teacher) error {
	if t.ApprovalStatus == "" {
		t.ApprovalStatus = models.ApprovalPending
	}
	query := `
		INSERT INTO teachers (user_id, employee_id, department, specialization, advising_grade,
			advising_strand, advising_section, approval_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, t.UserID, t.EmployeeID, t.Department, t.Specialization,
		t.AdvisingGrade, t.AdvisingStrand, t.AdvisingSection, t.ApprovalStatus).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating teacher: %w", err)
	}
	return nil
}

func (r *TeacherRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.Teacher, error) {
	sql, args, err := psql.Select(teacherColumns...).From("teachers t").
		Join("users u ON u.id = t.user_id").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build teacher query: %w", err)
	}
	t, err := scanTeacher(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTeacherNotFound
		}
		return nil, fmt.Errorf("error retrieving teacher: %w", err)
	}
	return t, nil
}

// GetByID retrieves a teacher by ID
func (r *TeacherRepository) GetByID(ctx context.Context, id int64) (*models.Teacher, error) {
	return r.getOne(ctx, squirrel.Eq{"t.id": id})
}

// GetByUserID retrieves the teacher profile of a user
func (r *TeacherRepository) GetByUserID(ctx context.Context, userID int64) (*models.Teacher, error) {
	return r.getOne(ctx, squirrel.Eq{"t.user_id": userID})
}

// ListByApprovalStatus lists teachers awaiting or past a decision, oldest first
func (r *TeacherRepository) ListByApprovalStatus(ctx context.Context, status models.ApprovalStatus) ([]models.Teacher, error) {
	sql, args, err := psql.Select(teacherColumns...).From("teachers t").
		Join("users u ON u.id = t.user_id").
		Where(squirrel.Eq{"t.approval_status": status}).
		OrderBy("t.created_at").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build teacher list query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing teachers: %w", err)
	}
	defer rows.Close()

	teachers := []models.Teacher{}
	for rows.Next() {
		t, err := scanTeacher(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning teacher: %w", err)
		}
		teachers = append(teachers, *t)
	}
	return teachers, rows.Err()
}

// SetApproval records an approval decision
func (r *TeacherRepository) SetApproval(ctx context.Context, id int64, status models.ApprovalStatus, decidedBy int64, reason string) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE teachers SET approval_status = $1, approved_by = $2, approved_at = NOW(), rejection_reason = $3
		WHERE id = $4
	`, status, decidedBy, reason, id)
	if err != nil {
		return fmt.Errorf("error updating teacher approval: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrTeacherNotFound
	}
	return nil
}

// CounselorRepository handles counselor database operations
type CounselorRepository struct {
	db db.DBTX
}

// NewCounselorRepository creates a new CounselorRepository
func NewCounselorRepository(conn db.DBTX) *CounselorRepository {
	return &CounselorRepository{db: conn}
}

// Create inserts a counselor profile
func (r *CounselorRepository) Create(ctx context.Context, c *models.Counselor) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO counselors (user_id, employee_id, specialization, office)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, c.UserID, c.EmployeeID, c.Specialization, c.Office).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("error creating counselor: %w", err)
	}
	return nil
}

// GetByUserID retrieves the counselor profile of a user
func (r *CounselorRepository) GetByUserID(ctx context.Context, userID int64) (*models.Counselor, error) {
	var c models.Counselor
	var u models.User
	sql, args, err := psql.Select(append([]string{
		"c.id", "c.user_id", "c.employee_id", "c.specialization", "c.office", "c.created_at",
	}, userColumns...)...).
		From("counselors c").Join("users u ON u.id = c.user_id").
		Where(squirrel.Eq{"c.user_id": userID}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build counselor query: %w", err)
	}
	err = r.db.QueryRow(ctx, sql, args...).Scan(&c.ID, &c.UserID, &c.EmployeeID, &c.Specialization, &c.Office, &c.CreatedAt,
		&u.ID, &u.Username, &u.Email, &u.Password, &u.FirstName, &u.LastName,
		&u.RoleType, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCounselorNotFound
		}
		return nil, fmt.Errorf("error retrieving counselor: %w", err)
	}
	c.User = &u
	return &c, nil
}

// ListActiveUserIDs returns user ids of all active counselors
func (r *CounselorRepository) ListActiveUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.user_id FROM counselors c JOIN users u ON u.id = c.user_id
		WHERE u.is_active ORDER BY c.user_id
	`)
	if err != nil {
		return nil, fmt.Errorf("error listing counselors: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("error scanning counselor ids: %w", err)
	}
	return ids, nil
}
