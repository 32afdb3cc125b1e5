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
)

var violationTypeColumns = []string{
	"id", "name", "category", "severity_level", "description", "is_active", "applicable_grades", "created_at",
}

func scanViolationType(row rowScanner) (*models.ViolationType, error) {
	var v models.ViolationType
	if err := row.Scan(&v.ID, &v.Name, &v.Category, &v.SeverityLevel, &v.Description, &v.IsActive,
		&v.ApplicableGrades, &v.CreatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

// ViolationTypeRepository manages the violation catalog
type ViolationTypeRepository struct {
	db db.DBTX
}

// NewViolationTypeRepository creates a new ViolationTypeRepository
func NewViolationTypeRepository(conn db.DBTX) *ViolationTypeRepository {
	return &ViolationTypeRepository{db: conn}
}

// List returns violation types ordered by category and name
func (r *ViolationTypeRepository) List(ctx context.Context, activeOnly bool) ([]models.ViolationType, error) {
	q := psql.Select(violationTypeColumns...).From("violation_types").OrderBy("category", "name")
	if activeOnly {
		q = q.Where(squirrel.Eq{"is_active": true})
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build violation type query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing violation types: %w", err)
	}
	defer rows.Close()

	types := []models.ViolationType{}
	for rows.Next() {
		v, err := scanViolationType(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning violation type: %w", err)
		}
		types = append(types, *v)
	}
	return types, rows.Err()
}

func (r *ViolationTypeRepository) getOne(ctx context.Context, q squirrel.SelectBuilder) (*models.ViolationType, error) {
	sql, args, err := q.Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build violation type query: %w", err)
	}
	v, err := scanViolationType(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrViolationTypeNotFound
		}
		return nil, fmt.Errorf("error retrieving violation type: %w", err)
	}
	return v, nil
}

// GetByID retrieves a violation type
func (r *ViolationTypeRepository) GetByID(ctx context.Context, id int64) (*models.ViolationType, error) {
	return r.getOne(ctx, psql.Select(violationTypeColumns...).From("violation_types").Where(squirrel.Eq{"id": id}))
}

// FirstActiveInCategory returns the first active type of a category by name
func (r *ViolationTypeRepository) FirstActiveInCategory(ctx context.Context, category string) (*models.ViolationType, error) {
	return r.getOne(ctx, psql.Select(violationTypeColumns...).From("violation_types").
		Where(squirrel.Eq{"category": category, "is_active": true}).OrderBy("name"))
}

// Create inserts a violation type
func (r *ViolationTypeRepository) Create(ctx context.Context, v *models.ViolationType) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO violation_types (name, category, severity_level, description, is_active, applicable_grades)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, v.Name, v.Category, v.SeverityLevel, v.Description, v.IsActive, v.ApplicableGrades).Scan(&v.ID, &v.CreatedAt)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "violation_types_name_key") {
			return apperrors.NewConflictError("a violation type with this name already exists")
		}
		return fmt.Errorf("error creating violation type: %w", err)
	}
	return nil
}

// Update overwrites a violation type
func (r *ViolationTypeRepository) Update(ctx context.Context, v *models.ViolationType) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE violation_types
		SET name = $1, category = $2, severity_level = $3, description = $4, is_active = $5, applicable_grades = $6
		WHERE id = $7
	`, v.Name, v.Category, v.SeverityLevel, v.Description, v.IsActive, v.ApplicableGrades, v.ID)
	if err != nil {
		if dberrors.IsDuplicateConstraintError(err, "violation_types_name_key") {
			return apperrors.NewConflictError("a violation type with this name already exists")
		}
		return fmt.Errorf("error updating violation type: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrViolationTypeNotFound
	}
	return nil
}

// InsertIfMissing adds a catalog entry unless one with the same name exists
func (r *ViolationTypeRepository) InsertIfMissing(ctx context.Context, v *models.ViolationType) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO violation_types (name, category, severity_level, description, is_active, applicable_grades)
		VALUES ($1, $2, $3, $4, TRUE, $5)
		ON CONFLICT (name) DO NOTHING
	`, v.Name, v.Category, v.SeverityLevel, v.Description, v.ApplicableGrades)
	if err != nil {
		return false, fmt.Errorf("error seeding violation type %q: %w", v.Name, err)
	}
	return tag.RowsAffected() == 1, nil
}
