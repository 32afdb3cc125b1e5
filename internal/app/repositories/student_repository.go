package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/schoolguidance/tracker/internal/app/models"
	"github.com/schoolguidance/tracker/internal/app/models/dto"
	"github.com/schoolguidance/tracker/internal/db"
	"github.com/schoolguidance/tracker/internal/pkg/apperrors"
	"github.com/schoolguidance/tracker/internal/pkg/dberrors"
	"github.com/schoolguidance/tracker/internal/pkg/helpers"
	"github.com/schoolguidance/tracker/internal/pkg/logger"
)

var studentColumns = append([]string{
	"s.id", "s.user_id", "s.student_id", "s.grade_level", "s.strand", "s.section", "s.school_year",
	"s.contact_number", "s.guardian_name", "s.guardian_contact", "s.is_active", "s.is_archived",
	"s.archived_at", "s.created_at", "s.updated_at",
}, userColumns...)

func scanStudent(row rowScanner) (*models.Student, error) {
	var s models.Student
	var u models.User
	err := row.Scan(&s.ID, &s.UserID, &s.StudentID, &s.GradeLevel, &s.Strand, &s.Section, &s.SchoolYear,
		&s.ContactNumber, &s.GuardianName, &s.GuardianContact, &s.IsActive, &s.IsArchived,
		&s.ArchivedAt, &s.CreatedAt, &s.UpdatedAt,
		&u.ID, &u.Username, &u.Email, &u.Password, &u.FirstName, &u.LastName,
		&u.RoleType, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.User = &u
	return &s, nil
}

// StudentRepository handles student database operations
type StudentRepository struct {
	db db.DBTX
}

// NewStudentRepository creates a new StudentRepository
func NewStudentRepository(conn db.DBTX) *StudentRepository {
	return &StudentRepository{db: conn}
}

func (r *StudentRepository) baseSelect() squirrel.SelectBuilder {
	return psql.Select(studentColumns...).From("students s").Join("users u ON u.id = s.user_id")
}

// Create inserts the student row. A blank StudentID is derived from the user id.
func (r *StudentRepository) Create(ctx context.Context, s *models.Student) error {
	if s.StudentID == "" {
		s.StudentID = models.FormatStudentID(s.UserID)
	}
	query := `
		INSERT INTO students (user_id, student_id, grade_level, strand, section, school_year,
			contact_number, guardian_name, guardian_contact, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		s.UserID, s.StudentID, s.GradeLevel, s.Strand, s.Section, s.SchoolYear,
		s.ContactNumber, s.GuardianName, s.GuardianContact, s.IsActive,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "students_student_id_key") {
			return apperrors.ErrStudentIDAlreadyExists
		}
		logger.Error().Err(err).Int64("userID", s.UserID).Msg("Error creating student")
		return fmt.Errorf("error creating student: %w", err)
	}
	return nil
}

func (r *StudentRepository) getOne(ctx context.Context, q squirrel.SelectBuilder) (*models.Student, error) {
	sql, args, err := q.Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build student query: %w", err)
	}
	s, err := scanStudent(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrStudentNotFound
		}
		return nil, fmt.Errorf("error retrieving student: %w", err)
	}
	return s, nil
}

// GetByID retrieves a student with its user
func (r *StudentRepository) GetByID(ctx context.Context, id int64) (*models.Student, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"s.id": id}))
}

// GetByUserID retrieves the student profile of a user
func (r *StudentRepository) GetByUserID(ctx context.Context, userID int64) (*models.Student, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"s.user_id": userID}))
}

// GetForUpdate retrieves a student and locks its row until the transaction ends
func (r *StudentRepository) GetForUpdate(ctx context.Context, id int64) (*models.Student, error) {
	return r.getOne(ctx, r.baseSelect().Where(squirrel.Eq{"s.id": id}).Suffix("FOR UPDATE OF s"))
}

// FindByFullName matches "First Last" case-insensitively among enrolled students
func (r *StudentRepository) FindByFullName(ctx context.Context, fullName string) (*models.Student, error) {
	name := strings.Join(strings.Fields(fullName), " ")
	if name == "" {
		return nil, apperrors.ErrStudentNotFound
	}
	return r.getOne(ctx, r.baseSelect().
		Where(squirrel.Expr("LOWER(u.first_name || ' ' || u.last_name) = LOWER(?)", name)).
		Where(squirrel.Eq{"s.is_archived": false}).
		OrderBy("s.id"))
}

// StudentIDExists checks if a student number is taken
func (r *StudentRepository) StudentIDExists(ctx context.Context, studentID string) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM students WHERE student_id = $1)", studentID).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking student id: %w", err)
	}
	return exists, nil
}

func applyStudentFilter(q squirrel.SelectBuilder, f dto.StudentFilter) squirrel.SelectBuilder {
	q = q.Where(squirrel.Eq{"s.is_archived": f.Archived})
	if f.ActiveOnly {
		q = q.Where(squirrel.Eq{"s.is_active": true})
	}
	if f.GradeLevel != nil {
		q = q.Where(squirrel.Eq{"s.grade_level": *f.GradeLevel})
	}
	if f.Strand != "" {
		q = q.Where(squirrel.Eq{"s.strand": f.Strand})
	}
	if f.Section != "" {
		q = q.Where(squirrel.Eq{"s.section": f.Section})
	}
	if f.SchoolYear != "" {
		q = q.Where(squirrel.Eq{"s.school_year": f.SchoolYear})
	}
	if f.Search != "" {
		pattern := helpers.LikePattern(f.Search)
		q = q.Where(squirrel.Or{
			squirrel.ILike{"u.first_name": pattern},
			squirrel.ILike{"u.last_name": pattern},
			squirrel.Expr("(u.first_name || ' ' || u.last_name) ILIKE ?", pattern),
			squirrel.ILike{"s.student_id": pattern},
			squirrel.ILike{"u.username": pattern},
			squirrel.ILike{"u.email": pattern},
		})
	}
	return q
}

// List returns a filtered page of students ordered by grade, section and name
func (r *StudentRepository) List(ctx context.Context, f dto.StudentFilter, page, size int) ([]models.Student, int64, error) {
	countSQL, countArgs, err := applyStudentFilter(
		psql.Select("COUNT(*)").From("students s").Join("users u ON u.id = s.user_id"), f).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build student count query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting students: %w", err)
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	q := applyStudentFilter(r.baseSelect(), f).
		OrderBy("s.grade_level", "s.section", "u.last_name", "u.first_name").
		Offset(offset).Limit(uint64(limit))
	students, err := r.query(ctx, q)
	return students, total, err
}

func (r *StudentRepository) query(ctx context.Context, q squirrel.SelectBuilder) ([]models.Student, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build student list query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing students: %w", err)
	}
	defer rows.Close()

	students := []models.Student{}
	for rows.Next() {
		s, err := scanStudent(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning student: %w", err)
		}
		students = append(students, *s)
	}
	return students, rows.Err()
}

// ListEnrolled returns every active, non-archived student. With lock the rows
// stay locked until the transaction ends.
func (r *StudentRepository) ListEnrolled(ctx context.Context, lock bool) ([]models.Student, error) {
	q := r.baseSelect().Where(squirrel.Eq{"s.is_active": true, "s.is_archived": false}).OrderBy("s.id")
	if lock {
		q = q.Suffix("FOR UPDATE OF s")
	}
	return r.query(ctx, q)
}

// ListByGradeAndYear returns active students of a grade in a school year
func (r *StudentRepository) ListByGradeAndYear(ctx context.Context, grade int, schoolYear string) ([]models.Student, error) {
	return r.query(ctx, r.baseSelect().
		Where(squirrel.Eq{"s.grade_level": grade, "s.school_year": schoolYear, "s.is_active": true, "s.is_archived": false}).
		OrderBy("s.section", "u.last_name", "u.first_name"))
}

// ListAdvisees returns the students of an advisory class. Empty strand or
// section widen the match.
func (r *StudentRepository) ListAdvisees(ctx context.Context, grade int, strand, section string) ([]models.Student, error) {
	q := r.baseSelect().Where(squirrel.Eq{"s.grade_level": grade, "s.is_archived": false})
	if strand != "" {
		q = q.Where(squirrel.Eq{"s.strand": strand})
	}
	if section != "" {
		q = q.Where(squirrel.Eq{"s.section": section})
	}
	return r.query(ctx, q.OrderBy("u.last_name", "u.first_name"))
}

// Update writes all mutable enrollment fields
func (r *StudentRepository) Update(ctx context.Context, s *models.Student) error {
	sql, args, err := psql.Update("students").
		Set("student_id", s.StudentID).
		Set("grade_level", s.GradeLevel).
		Set("strand", s.Strand).
		Set("section", s.Section).
		Set("school_year", s.SchoolYear).
		Set("contact_number", s.ContactNumber).
		Set("guardian_name", s.GuardianName).
		Set("guardian_contact", s.GuardianContact).
		Set("is_active", s.IsActive).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": s.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update student query: %w", err)
	}
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "students_student_id_key") {
			return apperrors.ErrStudentIDAlreadyExists
		}
		if dberrors.IsCheckViolation(err) {
			return apperrors.NewCustomError(apperrors.ErrValidationFailed, "grade level and strand combination is not allowed")
		}
		return fmt.Errorf("error updating student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrStudentNotFound
	}
	return nil
}

// SetArchived archives or restores a student. Archived students are inactive.
func (r *StudentRepository) SetArchived(ctx context.Context, id int64, archived bool) error {
	var archivedAt *time.Time
	if archived {
		now := time.Now()
		archivedAt = &now
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE students SET is_archived = $1, archived_at = $2, is_active = NOT $1, updated_at = NOW()
		WHERE id = $3 AND is_archived <> $1
	`, archived, archivedAt, id)
	if err != nil {
		return fmt.Errorf("error archiving student: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrStudentNotFound
	}
	return nil
}

// SetMissingSchoolYear fills school_year on students that have none
func (r *StudentRepository) SetMissingSchoolYear(ctx context.Context, schoolYear string) (int64, error) {
	tag, err := r.db.Exec(ctx,
		"UPDATE students SET school_year = $1, updated_at = NOW() WHERE school_year = '' OR school_year IS NULL",
		schoolYear)
	if err != nil {
		return 0, fmt.Errorf("error setting school year: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DistinctSchoolYears lists every school year seen on students or history, newest first
func (r *StudentRepository) DistinctSchoolYears(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `
		SELECT school_year FROM students WHERE school_year <> '' AND school_year NOT LIKE '%GRADUATED%'
		UNION
		SELECT school_year FROM student_school_year_history WHERE school_year <> ''
		ORDER BY 1 DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("error listing school years: %w", err)
	}
	years, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("error scanning school years: %w", err)
	}
	return years, nil
}

// ListIDs returns the ids of all students
func (r *StudentRepository) ListIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, "SELECT id FROM students ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("error listing student ids: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}
