package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/schoolguidance/tracker/internal/db"
	"github.com/schoolguidance/tracker/internal/pkg/apperrors"
)

// PasswordResetTokenRepository manages single-use password reset tokens
type PasswordResetTokenRepository struct {
	db db.DBTX
}

// NewPasswordResetTokenRepository creates a new PasswordResetTokenRepository
func NewPasswordResetTokenRepository(conn db.DBTX) *PasswordResetTokenRepository {
	return &PasswordResetTokenRepository{db: conn}
}

// CreateToken stores a new reset token
func (r *PasswordResetTokenRepository) CreateToken(ctx context.Context, userID int64, token string, expiryDate time.Time) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO password_reset_tokens (user_id, token, expiry_date)
		VALUES ($1, $2, $3)
	`, userID, token, expiryDate)
	if err != nil {
		return fmt.Errorf("error creating password reset token: %w", err)
	}
	return nil
}

// Consume marks a valid token as used and returns its user. Used, expired and
// unknown tokens are reported as distinct errors.
func (r *PasswordResetTokenRepository) Consume(ctx context.Context, token string) (int64, error) {
	var userID int64
	var expiryDate time.Time
	var used bool
	err := r.db.QueryRow(ctx, `
		SELECT user_id, expiry_date, used FROM password_reset_tokens WHERE token = $1 FOR UPDATE
	`, token).Scan(&userID, &expiryDate, &used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperrors.ErrInvalidPasswordResetToken
		}
		return 0, fmt.Errorf("error retrieving password reset token: %w", err)
	}
	if used {
		return 0, apperrors.ErrPasswordResetTokenUsed
	}
	if expiryDate.Before(time.Now()) {
		return 0, apperrors.ErrTokenExpired
	}

	if _, err := r.db.Exec(ctx, "UPDATE password_reset_tokens SET used = TRUE WHERE token = $1", token); err != nil {
		return 0, fmt.Errorf("error marking token as used: %w", err)
	}
	return userID, nil
}

// DeleteTokensByUserID removes all tokens of a user
func (r *PasswordResetTokenRepository) DeleteTokensByUserID(ctx context.Context, userID int64) error {
	if _, err := r.db.Exec(ctx, "DELETE FROM password_reset_tokens WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("error deleting password reset tokens for user: %w", err)
	}
	return nil
}

// DeleteExpiredTokens removes all expired tokens
func (r *PasswordResetTokenRepository) DeleteExpiredTokens(ctx context.Context) (int64, error) {
	tag, err := r.db.Exec(ctx, "DELETE FROM password_reset_tokens WHERE expiry_date < $1", time.Now())
	if err != nil {
		return 0, fmt.Errorf("error deleting expired password reset tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
