// Package profiles stores the role-specific details captured at
// registration, one row per user.
package profiles

import (
	"context"

	"github.com/dmitrijs2005/medibook/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.Profile) error
	// GetByUserID returns common.ErrorNotFound when the user has no profile.
	GetByUserID(ctx context.Context, userID string) (*models.Profile, error)
}
