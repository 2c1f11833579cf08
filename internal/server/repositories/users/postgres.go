package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/medibook/internal/common"
	"github.com/dmitrijs2005/medibook/internal/dbx"
	"github.com/dmitrijs2005/medibook/internal/server/models"
)

const emailUniqueConstraint = "users_email_key"

const selectUser = `SELECT id, email, password_hash, role, is_email_verified,
		email_verification_token_hash, email_verification_token_expires,
		password_reset_token_hash, password_reset_token_expires,
		is_two_factor_enabled, two_factor_secret,
		login_attempts, locked_until, last_login, created_at, updated_at
	FROM users`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	query :=
		`INSERT INTO users (id, email, password_hash, role, is_email_verified,
			email_verification_token_hash, email_verification_token_expires)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, string(user.Role), user.IsEmailVerified,
		user.EmailVerificationTokenHash, user.EmailVerificationTokenExpires,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if dbx.IsUniqueViolation(err, emailUniqueConstraint) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE email = $1`, email)
}

func (r *PostgresRepository) GetByVerificationTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	return r.getOne(ctx,
		selectUser+` WHERE email_verification_token_hash = $1 AND email_verification_token_expires > $2`,
		tokenHash, now)
}

func (r *PostgresRepository) GetByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	return r.getOne(ctx,
		selectUser+` WHERE password_reset_token_hash = $1 AND password_reset_token_expires > $2`,
		tokenHash, now)
}

func (r *PostgresRepository) IncrementLoginAttempts(ctx context.Context, id string) (int, error) {
	query :=
		`UPDATE users SET login_attempts = login_attempts + 1, updated_at = now()
		 WHERE id = $1
		 RETURNING login_attempts`

	var attempts int
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&attempts); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.ErrorNotFound
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return attempts, nil
}

func (r *PostgresRepository) LockUntil(ctx context.Context, id string, until time.Time) error {
	return r.execOne(ctx, `UPDATE users SET locked_until = $2, updated_at = now() WHERE id = $1`, id, until)
}

func (r *PostgresRepository) ClearLockout(ctx context.Context, id string) error {
	return r.execOne(ctx,
		`UPDATE users SET login_attempts = 0, locked_until = NULL, updated_at = now() WHERE id = $1`,
		id)
}

func (r *PostgresRepository) RecordSuccessfulLogin(ctx context.Context, id string, at time.Time) error {
	return r.execOne(ctx,
		`UPDATE users SET login_attempts = 0, locked_until = NULL, last_login = $2, updated_at = now() WHERE id = $1`,
		id, at)
}

func (r *PostgresRepository) SetEmailVerificationToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	return r.execOne(ctx,
		`UPDATE users SET email_verification_token_hash = $2, email_verification_token_expires = $3, updated_at = now() WHERE id = $1`,
		id, tokenHash, expires)
}

func (r *PostgresRepository) MarkEmailVerified(ctx context.Context, id string) error {
	return r.execOne(ctx,
		`UPDATE users SET is_email_verified = TRUE, email_verification_token_hash = NULL,
			email_verification_token_expires = NULL, updated_at = now() WHERE id = $1`,
		id)
}

func (r *PostgresRepository) SetPasswordResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	return r.execOne(ctx,
		`UPDATE users SET password_reset_token_hash = $2, password_reset_token_expires = $3, updated_at = now() WHERE id = $1`,
		id, tokenHash, expires)
}

func (r *PostgresRepository) ResetPassword(ctx context.Context, id, passwordHash string) error {
	return r.execOne(ctx,
		`UPDATE users SET password_hash = $2, password_reset_token_hash = NULL, password_reset_token_expires = NULL,
			login_attempts = 0, locked_until = NULL, updated_at = now() WHERE id = $1`,
		id, passwordHash)
}

func (r *PostgresRepository) SetTwoFactorSecret(ctx context.Context, id, secret string) error {
	return r.execOne(ctx, `UPDATE users SET two_factor_secret = $2, updated_at = now() WHERE id = $1`, id, secret)
}

func (r *PostgresRepository) EnableTwoFactor(ctx context.Context, id string) error {
	return r.execOne(ctx,
		`UPDATE users SET is_two_factor_enabled = TRUE, updated_at = now() WHERE id = $1 AND two_factor_secret IS NOT NULL`,
		id)
}

func (r *PostgresRepository) DisableTwoFactor(ctx context.Context, id string) error {
	return r.execOne(ctx,
		`UPDATE users SET is_two_factor_enabled = FALSE, two_factor_secret = NULL, updated_at = now() WHERE id = $1`,
		id)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.User, error) {
	user := &models.User{}
	var role string

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &role, &user.IsEmailVerified,
		&user.EmailVerificationTokenHash, &user.EmailVerificationTokenExpires,
		&user.PasswordResetTokenHash, &user.PasswordResetTokenExpires,
		&user.IsTwoFactorEnabled, &user.TwoFactorSecret,
		&user.LoginAttempts, &user.LockedUntil, &user.LastLogin, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Role = models.Role(role)
	if !user.Role.Valid() {
		return nil, fmt.Errorf("db error: user %s has unknown role %q", user.ID, role)
	}
	return user, nil
}

// execOne runs an UPDATE that must touch exactly one row.
func (r *PostgresRepository) execOne(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
