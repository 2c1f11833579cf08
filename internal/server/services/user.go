// Package services contains server-side business logic. AuthService runs
// the registration, login, e-mail verification, password reset and
// two-factor workflows on top of the repositories and the session manager.
package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/medibook/internal/common"
	"github.com/dmitrijs2005/medibook/internal/logging"
	"github.com/dmitrijs2005/medibook/internal/server/auth"
	"github.com/dmitrijs2005/medibook/internal/server/config"
	"github.com/dmitrijs2005/medibook/internal/server/mail"
	"github.com/dmitrijs2005/medibook/internal/server/models"
	"github.com/dmitrijs2005/medibook/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/medibook/internal/server/sessions"
)

// SessionManager is the part of sessions.Manager the service depends on.
type SessionManager interface {
	CreateSession(ctx context.Context, userID, userAgent, ip string) (*sessions.TokenPair, error)
	RevokeSession(ctx context.Context, refreshToken string) error
	RevokeAllSessions(ctx context.Context, userID string) error
	Refresh(ctx context.Context, refreshToken, userAgent, ip string) (*sessions.TokenPair, error)
	VerifyAccessToken(token string) (string, bool)
}

// MailDispatcher hands a message off without waiting for delivery.
type MailDispatcher interface {
	Dispatch(ctx context.Context, msg mail.Message)
}

type RegisterInput struct {
	Email         string
	Password      string
	Role          string
	FirstName     string
	LastName      string
	Phone         string
	Specialty     string
	LicenseNumber string
}

type LoginInput struct {
	Email          string
	Password       string
	TwoFactorToken string
	UserAgent      string
	IPAddress      string
}

// AuthResult is returned by Login and Refresh.
type AuthResult struct {
	User   models.UserSummary
	Tokens *sessions.TokenPair
}

// TwoFactorSetup is the material an authenticator app needs. Secret is the
// base32 key for manual entry, OTPAuthURL the otpauth:// URI for a QR code.
type TwoFactorSetup struct {
	Secret     string
	OTPAuthURL string
}

type AuthService struct {
	repos    repomanager.RepositoryManager
	sessions SessionManager
	mailer   MailDispatcher
	log      logging.Logger
	now      func() time.Time

	bcryptCost        int
	lockoutThreshold  int
	lockoutDuration   time.Duration
	verificationTTL   time.Duration
	resetTTL          time.Duration
	totpIssuer        string
	appBaseURL        string
	dummyPasswordHash func() string
}

type Option func(*AuthService)

// WithClock replaces time.Now for every timestamp the service produces.
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

func NewAuthService(repos repomanager.RepositoryManager, sm SessionManager, mailer MailDispatcher, cfg *config.Config, log logging.Logger, opts ...Option) *AuthService {
	s := &AuthService{
		repos:            repos,
		sessions:         sm,
		mailer:           mailer,
		log:              log.With("module", "auth"),
		now:              time.Now,
		bcryptCost:       cfg.BcryptCost,
		lockoutThreshold: cfg.LockoutThreshold,
		lockoutDuration:  cfg.LockoutDuration,
		verificationTTL:  cfg.VerificationTokenValidityDuration,
		resetTTL:         cfg.ResetTokenValidityDuration,
		totpIssuer:       cfg.TOTPIssuer,
		appBaseURL:       cfg.AppBaseURL,
	}
	s.dummyPasswordHash = sync.OnceValue(func() string {
		h, err := auth.NewDummyHash(s.bcryptCost)
		if err != nil {
			s.log.Error(context.Background(), "dummy hash generation failed", "error", err)
		}
		return h
	})
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register validates the input, creates the user and profile in one
// transaction and sends the verification e-mail in the background.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.UserSummary, error) {
	email := auth.NormalizeEmail(in.Email)
	if err := auth.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	role, err := auth.ParseRegistrationRole(in.Role)
	if err != nil {
		return nil, err
	}

	if _, err := s.repos.Users().GetByEmail(ctx, email); err == nil {
		return nil, common.ErrDuplicateEmail
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error checking email: %w", err)
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	token, tokenHash, expires, err := s.newEmailToken(s.verificationTTL)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:                         email,
		PasswordHash:                  hash,
		Role:                          role,
		EmailVerificationTokenHash:    &tokenHash,
		EmailVerificationTokenExpires: &expires,
	}

	err = s.repos.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		created, err := repos.Users().Create(ctx, user)
		if err != nil {
			return err
		}
		user = created

		return repos.Profiles().Create(ctx, &models.Profile{
			UserID:        user.ID,
			Role:          role,
			FirstName:     in.FirstName,
			LastName:      in.LastName,
			Phone:         in.Phone,
			Specialty:     in.Specialty,
			LicenseNumber: in.LicenseNumber,
		})
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.mailer.Dispatch(ctx, mail.VerificationMessage(s.appBaseURL, email, token, s.verificationTTL))
	s.log.Info(ctx, "user registered", "user_id", user.ID, "role", role)

	summary := user.Summary()
	return &summary, nil
}

// Login authenticates a user and opens a session. Unknown e-mails and wrong
// passwords fail identically; failures against a real account count toward
// the lockout threshold.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	email := auth.NormalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, common.ValidationError("email and password are required")
	}

	users := s.repos.Users()

	user, err := users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			auth.VerifyPassword(in.Password, s.dummyPasswordHash())
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	now := s.now()
	if locked, remaining := user.IsLocked(now); locked {
		return nil, &common.LockedError{Remaining: remaining}
	}
	if user.LockedUntil != nil {
		if err := users.ClearLockout(ctx, user.ID); err != nil {
			return nil, fmt.Errorf("error clearing lockout: %w", err)
		}
	}

	if !auth.VerifyPassword(in.Password, user.PasswordHash) {
		attempts, err := users.IncrementLoginAttempts(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("error counting login attempt: %w", err)
		}
		if attempts >= s.lockoutThreshold {
			if err := users.LockUntil(ctx, user.ID, now.Add(s.lockoutDuration)); err != nil {
				return nil, fmt.Errorf("error locking account: %w", err)
			}
			s.log.Warn(ctx, "account locked", "user_id", user.ID, "attempts", attempts, "ip", in.IPAddress)
		}
		return nil, common.ErrInvalidCredentials
	}

	if err := users.RecordSuccessfulLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("error recording login: %w", err)
	}

	if !user.IsEmailVerified {
		return nil, common.ErrEmailNotVerified
	}

	if user.IsTwoFactorEnabled {
		if in.TwoFactorToken == "" {
			return nil, common.ErrTwoFactorRequired
		}
		if user.TwoFactorSecret == nil || !auth.ValidateTOTP(in.TwoFactorToken, *user.TwoFactorSecret, now) {
			return nil, common.ErrInvalidTwoFactorCode
		}
	}

	pair, err := s.sessions.CreateSession(ctx, user.ID, in.UserAgent, in.IPAddress)
	if err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	s.log.Info(ctx, "login succeeded", "user_id", user.ID, "ip", in.IPAddress)
	return &AuthResult{User: user.Summary(), Tokens: pair}, nil
}

// Logout revokes the session behind refreshToken, if any.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.sessions.RevokeSession(ctx, refreshToken)
}

// Refresh rotates refreshToken. Sessions of users that no longer exist are
// revoked and rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, userAgent, ip string) (*AuthResult, error) {
	pair, err := s.sessions.Refresh(ctx, refreshToken, userAgent, ip)
	if err != nil {
		return nil, err
	}

	user, err := s.repos.Users().GetByID(ctx, pair.UserID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			_ = s.sessions.RevokeSession(ctx, pair.RefreshToken)
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	return &AuthResult{User: user.Summary(), Tokens: pair}, nil
}

// Authenticate resolves a bearer access token to the current user record.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*models.User, error) {
	userID, ok := s.sessions.VerifyAccessToken(accessToken)
	if !ok {
		return nil, common.ErrorUnauthorized
	}
	user, err := s.repos.Users().GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	return user, nil
}

// Me returns the caller's own record with its profile.
func (s *AuthService) Me(ctx context.Context, userID string) (*models.SanitizedUser, error) {
	user, err := s.repos.Users().GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	profile, err := s.repos.Profiles().GetByUserID(ctx, userID)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			return nil, fmt.Errorf("error loading profile: %w", err)
		}
		profile = nil
	}

	return user.Sanitized(profile), nil
}

// newEmailToken returns a raw single-use token, its stored hash and expiry.
func (s *AuthService) newEmailToken(validity time.Duration) (token, hash string, expires time.Time, err error) {
	token, err = auth.GenerateOpaqueToken()
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("error generating token: %w", err)
	}
	return token, auth.HashToken(token), s.now().Add(validity), nil
}
