// Package common defines shared constants and sentinel errors used across
// the medibook server layers. Callers should use errors.Is to match these
// values.
package common

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Repository-level errors.
	ErrorNotFound     = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already registered")

	// Service-level errors.
	ErrorUnauthorized = errors.New("unauthorized")

	// Validation errors are wrapped with a human-readable reason.
	ErrValidation = errors.New("validation error")

	// Login flow errors.
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrAccountLocked        = errors.New("account locked")
	ErrEmailNotVerified     = errors.New("email not verified")
	ErrTwoFactorRequired    = errors.New("two-factor code required")
	ErrInvalidTwoFactorCode = errors.New("invalid two-factor code")

	// 2FA enrollment errors.
	ErrTwoFactorNotConfigured = errors.New("two-factor secret not generated")

	// Single-use e-mail token errors. Unknown and expired tokens share it.
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")

	// Access/refresh token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	ErrRateLimited = errors.New("too many requests")
)

// ValidationError returns an error that matches ErrValidation and carries
// the reason shown to the caller.
func ValidationError(reason string) error {
	return fmt.Errorf("%w: %s", ErrValidation, reason)
}

// LockedError is returned while an account lockout window is active.
type LockedError struct {
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked, try again in %s", e.Remaining.Round(time.Second))
}

func (e *LockedError) Unwrap() error { return ErrAccountLocked }
