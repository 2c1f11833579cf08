// Package sessions issues, rotates and revokes login sessions. A session is
// a short-lived signed access token paired with an opaque refresh token
// whose SHA-256 hash is persisted.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/medibook/internal/common"
	"github.com/dmitrijs2005/medibook/internal/logging"
	"github.com/dmitrijs2005/medibook/internal/server/auth"
	"github.com/dmitrijs2005/medibook/internal/server/models"
	"github.com/dmitrijs2005/medibook/internal/server/repositories/repomanager"
)

// TokenPair is returned on login and refresh. ExpiresAt is the access
// token expiry.
type TokenPair struct {
	UserID       string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type Manager struct {
	repos      repomanager.RepositoryManager
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	log        logging.Logger
	now        func() time.Time
}

// Option customises a Manager.
type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(repos repomanager.RepositoryManager, secret []byte, accessTTL, refreshTTL time.Duration, log logging.Logger, opts ...Option) *Manager {
	m := &Manager{
		repos:      repos,
		secret:     secret,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		log:        log.With("module", "sessions"),
		now:        time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// CreateSession mints an access token and a refresh token for userID and
// stores the refresh token hash.
func (m *Manager) CreateSession(ctx context.Context, userID, userAgent, ip string) (*TokenPair, error) {
	return m.createSession(ctx, m.repos, userID, userAgent, ip)
}

func (m *Manager) createSession(ctx context.Context, repos repomanager.Repositories, userID, userAgent, ip string) (*TokenPair, error) {
	now := m.now()

	access, err := auth.GenerateToken(userID, m.secret, m.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("error generating access token: %w", err)
	}

	refresh, err := auth.GenerateOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("error generating refresh token: %w", err)
	}

	s := &models.Session{
		UserID:    userID,
		TokenHash: auth.HashToken(refresh),
		UserAgent: userAgent,
		IPAddress: ip,
		ExpiresAt: now.Add(m.refreshTTL),
	}
	if err := repos.Sessions().Create(ctx, s); err != nil {
		return nil, fmt.Errorf("error storing session: %w", err)
	}

	return &TokenPair{
		UserID:       userID,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    now.Add(m.accessTTL),
	}, nil
}

// RevokeSession marks the session of refreshToken revoked. Unknown and
// already revoked tokens are not an error.
func (m *Manager) RevokeSession(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if _, err := m.repos.Sessions().Revoke(ctx, auth.HashToken(refreshToken)); err != nil {
		return fmt.Errorf("error revoking session: %w", err)
	}
	return nil
}

func (m *Manager) RevokeAllSessions(ctx context.Context, userID string) error {
	n, err := m.repos.Sessions().RevokeAllForUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("error revoking sessions: %w", err)
	}
	m.log.Info(ctx, "sessions revoked", "user_id", userID, "count", n)
	return nil
}

// PurgeExpired deletes sessions past their expiry and returns how many
// were removed.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := m.repos.Sessions().DeleteExpired(ctx, m.now())
	if err != nil {
		return 0, fmt.Errorf("error purging sessions: %w", err)
	}
	return n, nil
}

// Refresh exchanges a live refresh token for a new pair. The old session is
// revoked in the same transaction that stores the new one, so a token can
// be redeemed once.
func (m *Manager) Refresh(ctx context.Context, refreshToken, userAgent, ip string) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, common.ErrInvalidToken
	}
	hash := auth.HashToken(refreshToken)

	var pair *TokenPair
	err := m.repos.WithTx(ctx, func(ctx context.Context, repos repomanager.Repositories) error {
		s, err := repos.Sessions().FindByTokenHash(ctx, hash)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidToken
			}
			return err
		}
		if !s.Active(m.now()) {
			return common.ErrInvalidToken
		}

		revoked, err := repos.Sessions().Revoke(ctx, hash)
		if err != nil {
			return err
		}
		if !revoked {
			return common.ErrInvalidToken
		}

		pair, err = m.createSession(ctx, repos, s.UserID, userAgent, ip)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// VerifyAccessToken validates signature and expiry and returns the user id.
func (m *Manager) VerifyAccessToken(token string) (string, bool) {
	return auth.VerifyAccessToken(token, m.secret)
}

// RunPurger calls PurgeExpired every interval until ctx is done.
func (m *Manager) RunPurger(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.PurgeExpired(ctx)
			if err != nil {
				m.log.Error(ctx, "session purge failed", "error", err)
				continue
			}
			if n > 0 {
				m.log.Info(ctx, "expired sessions purged", "count", n)
			}
		}
	}
}
