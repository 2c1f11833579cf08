package users

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/medibook/internal/common"
	"github.com/dmitrijs2005/medibook/internal/server/models"
)

// MemoryRepository keeps users in a map. Records are cloned on the way in
// and out so callers never share state with the store.
type MemoryRepository struct {
	mu      sync.RWMutex
	byID    map[string]*models.User
	byEmail map[string]string
	now     func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:    make(map[string]*models.User),
		byEmail: make(map[string]string),
		now:     time.Now,
	}
}

func (r *MemoryRepository) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[user.Email]; ok {
		return nil, common.ErrDuplicateEmail
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := r.now()
	user.CreatedAt = now
	user.UpdatedAt = now

	r.byID[user.ID] = user.Clone()
	r.byEmail[user.Email] = user.ID
	return user, nil
}

func (r *MemoryRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u.Clone(), nil
}

func (r *MemoryRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	id, ok := r.byEmail[email]
	r.mu.RUnlock()
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *MemoryRepository) GetByVerificationTokenHash(_ context.Context, tokenHash string, now time.Time) (*models.User, error) {
	return r.find(func(u *models.User) bool {
		return u.EmailVerificationTokenHash != nil && *u.EmailVerificationTokenHash == tokenHash &&
			u.EmailVerificationTokenExpires != nil && u.EmailVerificationTokenExpires.After(now)
	})
}

func (r *MemoryRepository) GetByResetTokenHash(_ context.Context, tokenHash string, now time.Time) (*models.User, error) {
	return r.find(func(u *models.User) bool {
		return u.PasswordResetTokenHash != nil && *u.PasswordResetTokenHash == tokenHash &&
			u.PasswordResetTokenExpires != nil && u.PasswordResetTokenExpires.After(now)
	})
}

func (r *MemoryRepository) IncrementLoginAttempts(_ context.Context, id string) (int, error) {
	var attempts int
	err := r.update(id, func(u *models.User) bool {
		u.LoginAttempts++
		attempts = u.LoginAttempts
		return true
	})
	return attempts, err
}

func (r *MemoryRepository) LockUntil(_ context.Context, id string, until time.Time) error {
	return r.update(id, func(u *models.User) bool {
		u.LockedUntil = &until
		return true
	})
}

func (r *MemoryRepository) ClearLockout(_ context.Context, id string) error {
	return r.update(id, func(u *models.User) bool {
		u.LoginAttempts = 0
		u.LockedUntil = nil
		return true
	})
}

func (r *MemoryRepository) RecordSuccessfulLogin(_ context.Context, id string, at time.Time) error {
	return r.update(id, func(u *models.User) bool {
		u.LoginAttempts = 0
		u.LockedUntil = nil
		u.LastLogin = &at
		return true
	})
}

func (r *MemoryRepository) SetEmailVerificationToken(_ context.Context, id, tokenHash string, expires time.Time) error {
	return r.update(id, func(u *models.User) bool {
		u.EmailVerificationTokenHash = &tokenHash
		u.EmailVerificationTokenExpires = &expires
		return true
	})
}

func (r *MemoryRepository) MarkEmailVerified(_ context.Context, id string) error {
	return r.update(id, func(u *models.User) bool {
		u.IsEmailVerified = true
		u.EmailVerificationTokenHash = nil
		u.EmailVerificationTokenExpires = nil
		return true
	})
}

func (r *MemoryRepository) SetPasswordResetToken(_ context.Context, id, tokenHash string, expires time.Time) error {
	return r.update(id, func(u *models.User) bool {
		u.PasswordResetTokenHash = &tokenHash
		u.PasswordResetTokenExpires = &expires
		return true
	})
}

func (r *MemoryRepository) ResetPassword(_ context.Context, id, passwordHash string) error {
	return r.update(id, func(u *models.User) bool {
		u.PasswordHash = passwordHash
		u.PasswordResetTokenHash = nil
		u.PasswordResetTokenExpires = nil
		u.LoginAttempts = 0
		u.LockedUntil = nil
		return true
	})
}

func (r *MemoryRepository) SetTwoFactorSecret(_ context.Context, id, secret string) error {
	return r.update(id, func(u *models.User) bool {
		u.TwoFactorSecret = &secret
		return true
	})
}

func (r *MemoryRepository) EnableTwoFactor(_ context.Context, id string) error {
	return r.update(id, func(u *models.User) bool {
		if u.TwoFactorSecret == nil {
			return false
		}
		u.IsTwoFactorEnabled = true
		return true
	})
}

func (r *MemoryRepository) DisableTwoFactor(_ context.Context, id string) error {
	return r.update(id, func(u *models.User) bool {
		u.IsTwoFactorEnabled = false
		u.TwoFactorSecret = nil
		return true
	})
}

func (r *MemoryRepository) find(match func(*models.User) bool) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.byID {
		if match(u) {
			return u.Clone(), nil
		}
	}
	return nil, common.ErrorNotFound
}

// update applies fn under the write lock. fn returning false is treated
// like an UPDATE whose WHERE clause matched nothing.
func (r *MemoryRepository) update(id string, fn func(*models.User) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok || !fn(u) {
		return common.ErrorNotFound
	}
	u.UpdatedAt = r.now()
	return nil
}
