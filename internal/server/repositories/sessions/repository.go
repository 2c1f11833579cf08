// Package sessions persists refresh-token sessions. Only SHA-256 hashes of
// the tokens are stored.
package sessions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/medibook/internal/server/models"
)

// Repository defines operations for issuing, looking up and revoking
// sessions.
type Repository interface {
	// Create stores a new session and fills in its ID and CreatedAt.
	Create(ctx context.Context, s *models.Session) error

	// FindByTokenHash returns the session regardless of its revoked or
	// expired state. Returns common.ErrorNotFound when absent.
	FindByTokenHash(ctx context.Context, tokenHash string) (*models.Session, error)

	// Revoke flags the session as revoked and reports whether this call
	// changed it. Unknown or already revoked tokens yield false, nil.
	Revoke(ctx context.Context, tokenHash string) (bool, error)

	// RevokeAllForUser revokes every active session of the user and returns
	// how many were affected.
	RevokeAllForUser(ctx context.Context, userID string) (int64, error)

	// DeleteExpired hard-deletes sessions whose expiry is before now.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
