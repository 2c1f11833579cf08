package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/medibook/internal/common"
	"github.com/dmitrijs2005/medibook/internal/server/auth"
	"github.com/dmitrijs2005/medibook/internal/server/mail"
)

// VerifyEmail consumes a verification token. Unknown, expired and already
// used tokens all fail with common.ErrInvalidOrExpiredToken.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return common.ErrInvalidOrExpiredToken
	}

	users := s.repos.Users()
	user, err := users.GetByVerificationTokenHash(ctx, auth.HashToken(token), s.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("error loading user: %w", err)
	}

	if err := users.MarkEmailVerified(ctx, user.ID); err != nil {
		return fmt.Errorf("error verifying email: %w", err)
	}
	s.log.Info(ctx, "email verified", "user_id", user.ID)
	return nil
}

// ResendVerification issues a fresh verification token to an existing,
// unverified account. It reports success for every other address.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	email = auth.NormalizeEmail(email)
	if email == "" {
		return common.ValidationError("email is required")
	}

	users := s.repos.Users()
	user, err := users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return fmt.Errorf("error loading user: %w", err)
	}
	if user.IsEmailVerified {
		return nil
	}

	token, hash, expires, err := s.newEmailToken(s.verificationTTL)
	if err != nil {
		return err
	}
	if err := users.SetEmailVerificationToken(ctx, user.ID, hash, expires); err != nil {
		return fmt.Errorf("error storing verification token: %w", err)
	}

	s.mailer.Dispatch(ctx, mail.VerificationMessage(s.appBaseURL, user.Email, token, s.verificationTTL))
	return nil
}

// ForgotPassword sends a reset link when the account exists and reports
// success either way.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = auth.NormalizeEmail(email)
	if email == "" {
		return common.ValidationError("email is required")
	}

	users := s.repos.Users()
	user, err := users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil
		}
		return fmt.Errorf("error loading user: %w", err)
	}

	token, hash, expires, err := s.newEmailToken(s.resetTTL)
	if err != nil {
		return err
	}
	if err := users.SetPasswordResetToken(ctx, user.ID, hash, expires); err != nil {
		return fmt.Errorf("error storing reset token: %w", err)
	}

	s.mailer.Dispatch(ctx, mail.PasswordResetMessage(s.appBaseURL, user.Email, token, s.resetTTL))
	s.log.Info(ctx, "password reset requested", "user_id", user.ID)
	return nil
}

// ResetPassword sets a new password from a reset token, clears any lockout
// and revokes every session of the account.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := auth.ValidatePassword(newPassword); err != nil {
		return err
	}
	if token == "" {
		return common.ErrInvalidOrExpiredToken
	}

	users := s.repos.Users()
	user, err := users.GetByResetTokenHash(ctx, auth.HashToken(token), s.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrInvalidOrExpiredToken
		}
		return fmt.Errorf("error loading user: %w", err)
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	if err := users.ResetPassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("error storing password: %w", err)
	}
	if err := s.sessions.RevokeAllSessions(ctx, user.ID); err != nil {
		return fmt.Errorf("error revoking sessions: %w", err)
	}

	s.log.Info(ctx, "password reset", "user_id", user.ID)
	return nil
}
