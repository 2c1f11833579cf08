package services

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/medibook/internal/common"
	"github.com/dmitrijs2005/medibook/internal/server/auth"
)

// Generate2FASecret stores a new, not yet active TOTP secret. Calling it
// again before Enable2FA replaces the pending secret.
func (s *AuthService) Generate2FASecret(ctx context.Context, userID string) (*TwoFactorSetup, error) {
	users := s.repos.Users()
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	if user.IsTwoFactorEnabled {
		return nil, common.ValidationError("two-factor authentication is already enabled")
	}

	secret, uri, err := auth.GenerateTOTPSecret(s.totpIssuer, user.Email)
	if err != nil {
		return nil, fmt.Errorf("error generating totp secret: %w", err)
	}
	if err := users.SetTwoFactorSecret(ctx, user.ID, secret); err != nil {
		return nil, fmt.Errorf("error storing totp secret: %w", err)
	}

	return &TwoFactorSetup{Secret: secret, OTPAuthURL: uri}, nil
}

// Enable2FA activates the pending secret once code matches it. A wrong code
// leaves the secret stored and inactive.
func (s *AuthService) Enable2FA(ctx context.Context, userID, code string) error {
	users := s.repos.Users()
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("error loading user: %w", err)
	}
	if user.TwoFactorSecret == nil {
		return common.ErrTwoFactorNotConfigured
	}
	if !auth.ValidateTOTP(code, *user.TwoFactorSecret, s.now()) {
		return common.ErrInvalidTwoFactorCode
	}

	if err := users.EnableTwoFactor(ctx, user.ID); err != nil {
		return fmt.Errorf("error enabling two-factor: %w", err)
	}
	s.log.Info(ctx, "two-factor enabled", "user_id", user.ID)
	return nil
}

// Disable2FA requires a currently valid code, not just an authenticated
// session.
func (s *AuthService) Disable2FA(ctx context.Context, userID, code string) error {
	users := s.repos.Users()
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("error loading user: %w", err)
	}
	if !user.IsTwoFactorEnabled || user.TwoFactorSecret == nil {
		return common.ErrTwoFactorNotConfigured
	}
	if !auth.ValidateTOTP(code, *user.TwoFactorSecret, s.now()) {
		return common.ErrInvalidTwoFactorCode
	}

	if err := users.DisableTwoFactor(ctx, user.ID); err != nil {
		return fmt.Errorf("error disabling two-factor: %w", err)
	}
	s.log.Info(ctx, "two-factor disabled", "user_id", user.ID)
	return nil
}
