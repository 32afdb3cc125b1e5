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
	"github.com/schoolguidance/tracker/internal/db"
	"github.com/schoolguidance/tracker/internal/pkg/apperrors"
	"github.com/schoolguidance/tracker/internal/pkg/dberrors"
	"github.com/schoolguidance/tracker/internal/pkg/logger"
)

var userColumns = []string{
	"u.id", "u.username", "u.email", "u.password", "u.first_name", "u.last_name",
	"u.role_type", "u.is_active", "u.last_login_at", "u.created_at", "u.updated_at",
}

func scanUser(row rowScanner, u *models.User) error {
	return row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.FirstName, &u.LastName,
		&u.RoleType, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
}

// UserRepository handles user database operations
type UserRepository struct {
	db db.DBTX
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(conn db.DBTX) *UserRepository {
	return &UserRepository{db: conn}
}

func mapUserWriteError(err error) error {
	switch {
	case dberrors.IsDuplicateConstraintError(err, "users_username_key"):
		return apperrors.ErrUsernameAlreadyExists
	case dberrors.IsDuplicateConstraintError(err, "users_email_key"):
		return apperrors.ErrEmailAlreadyExists
	}
	return err
}

// Create inserts the user and fills ID and timestamps
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, email, password, first_name, last_name, role_type, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		user.Username, strings.ToLower(user.Email), user.Password, user.FirstName, user.LastName,
		user.RoleType, user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if mapped := mapUserWriteError(err); mapped != err {
			return mapped
		}
		logger.Error().Err(err).Str("username", user.Username).Msg("Error creating user")
		return fmt.Errorf("error creating user: %w", err)
	}
	user.Email = strings.ToLower(user.Email)
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.User, error) {
	sql, args, err := psql.Select(userColumns...).From("users u").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}

	var u models.User
	if err := scanUser(r.db.QueryRow(ctx, sql, args...), &u); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}
	return &u, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"u.id": id})
}

// GetByEmail retrieves a user by email, case-insensitively
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"u.email": strings.ToLower(strings.TrimSpace(email))})
}

// GetByLogin retrieves a user by username or email
func (r *UserRepository) GetByLogin(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	return r.getOne(ctx, squirrel.Or{
		squirrel.Eq{"u.username": identifier},
		squirrel.Eq{"u.email": strings.ToLower(identifier)},
	})
}

func (r *UserRepository) exists(ctx context.Context, column, value string) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM users WHERE %s = $1)", column)
	if err := r.db.QueryRow(ctx, query, value).Scan(&exists); err != nil {
		return false, fmt.Errorf("error checking %s: %w", column, err)
	}
	return exists, nil
}

// UsernameExists checks if a username is taken
func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "username", strings.TrimSpace(username))
}

// EmailExists checks if an email is taken
func (r *UserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

// UpdateProfile updates name and email
func (r *UserRepository) UpdateProfile(ctx context.Context, userID int64, firstName, lastName, email string) error {
	sql, args, err := psql.Update("users").
		Set("first_name", firstName).
		Set("last_name", lastName).
		Set("email", strings.ToLower(email)).
		Set("updated_at", time.Now()).
		Where(squirrel.Eq{"id": userID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update profile query: %w", err)
	}
	return r.execOne(ctx, sql, args, "update profile")
}

// UpdatePassword stores a new password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, userID int64, hash string) error {
	return r.execOne(ctx, "UPDATE users SET password = $1, updated_at = NOW() WHERE id = $2",
		[]any{hash, userID}, "update password")
}

// SetActive activates or deactivates an account
func (r *UserRepository) SetActive(ctx context.Context, userID int64, active bool) error {
	return r.execOne(ctx, "UPDATE users SET is_active = $1, updated_at = NOW() WHERE id = $2",
		[]any{active, userID}, "set active")
}

// UpdateLastLogin updates the last login time
func (r *UserRepository) UpdateLastLogin(ctx context.Context, userID int64) error {
	return r.execOne(ctx, "UPDATE users SET last_login_at = NOW() WHERE id = $1", []any{userID}, "update last login")
}

// Delete removes the user; role rows cascade
func (r *UserRepository) Delete(ctx context.Context, userID int64) error {
	return r.execOne(ctx, "DELETE FROM users WHERE id = $1", []any{userID}, "delete user")
}

func (r *UserRepository) execOne(ctx context.Context, sql string, args []any, op string) error {
	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		if mapped := mapUserWriteError(err); mapped != err {
			return mapped
		}
		logger.Error().Err(err).Str("op", op).Msg("User update failed")
		return fmt.Errorf("error in %s: %w", op, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}

// ListActiveIDsByRole returns ids of active users with the role
func (r *UserRepository) ListActiveIDsByRole(ctx context.Context, role models.RoleType) ([]int64, error) {
	return r.collectIDs(ctx, psql.Select("id").From("users").
		Where(squirrel.Eq{"role_type": role, "is_active": true}).OrderBy("id"))
}

// ListRecipientIDs resolves bulk notification targets. Explicit ids win over
// role and grade filters; grade filtering only applies to students.
func (r *UserRepository) ListRecipientIDs(ctx context.Context, ids []int64, role models.RoleType, grade *int) ([]int64, error) {
	q := psql.Select("u.id").From("users u").Where(squirrel.Eq{"u.is_active": true}).OrderBy("u.id")
	switch {
	case len(ids) > 0:
		q = q.Where(squirrel.Eq{"u.id": ids})
	case grade != nil:
		q = q.Join("students s ON s.user_id = u.id").
			Where(squirrel.Eq{"s.grade_level": *grade, "s.is_archived": false})
	case role != "":
		q = q.Where(squirrel.Eq{"u.role_type": role})
	}
	return r.collectIDs(ctx, q)
}

func (r *UserRepository) collectIDs(ctx context.Context, q squirrel.SelectBuilder) ([]int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build id query: %w", err)
	}
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing user ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("error scanning user ids: %w", err)
	}
	return ids, nil
}
