// Package users is the credential store: persisted user records with the
// field-level updates the login, verification, reset and 2FA flows need.
package users

import (
	"context"
	"time"

	"github.com/dmitrijs2005/medibook/internal/server/models"
)

// Repository is implemented by PostgresRepository and MemoryRepository.
// Lookups return common.ErrorNotFound when no row matches; Create returns
// common.ErrDuplicateEmail when the e-mail is taken.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// GetByVerificationTokenHash and GetByResetTokenHash only match tokens
	// whose expiry is after now.
	GetByVerificationTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	GetByResetTokenHash(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)

	// IncrementLoginAttempts atomically adds one and returns the new count.
	IncrementLoginAttempts(ctx context.Context, id string) (int, error)
	LockUntil(ctx context.Context, id string, until time.Time) error
	// ClearLockout zeroes the attempt counter and clears an expired lock.
	ClearLockout(ctx context.Context, id string) error
	// RecordSuccessfulLogin zeroes the attempt counter, clears the lock and
	// stamps last_login.
	RecordSuccessfulLogin(ctx context.Context, id string, at time.Time) error

	SetEmailVerificationToken(ctx context.Context, id, tokenHash string, expires time.Time) error
	// MarkEmailVerified sets the flag and clears the token fields.
	MarkEmailVerified(ctx context.Context, id string) error

	SetPasswordResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error
	// ResetPassword stores the new hash and clears the reset token and the
	// lockout state.
	ResetPassword(ctx context.Context, id, passwordHash string) error

	SetTwoFactorSecret(ctx context.Context, id, secret string) error
	// EnableTwoFactor returns common.ErrorNotFound when no secret is stored.
	EnableTwoFactor(ctx context.Context, id string) error
	DisableTwoFactor(ctx context.Context, id string) error
}
