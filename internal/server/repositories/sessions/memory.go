package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/medibook/internal/common"
	"github.com/dmitrijs2005/medibook/internal/server/models"
)

// MemoryRepository keeps sessions in a map keyed by token hash.
type MemoryRepository struct {
	mu     sync.Mutex
	byHash map[string]models.Session
	now    func() time.Time
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byHash: make(map[string]models.Session),
		now:    time.Now,
	}
}

func (r *MemoryRepository) Create(_ context.Context, s *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	s.CreatedAt = r.now()
	r.byHash[s.TokenHash] = *s
	return nil
}

func (r *MemoryRepository) FindByTokenHash(_ context.Context, tokenHash string) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byHash[tokenHash]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &s, nil
}

func (r *MemoryRepository) Revoke(_ context.Context, tokenHash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byHash[tokenHash]
	if !ok || s.IsRevoked {
		return false, nil
	}
	s.IsRevoked = true
	r.byHash[tokenHash] = s
	return true, nil
}

func (r *MemoryRepository) RevokeAllForUser(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for h, s := range r.byHash {
		if s.UserID == userID && !s.IsRevoked {
			s.IsRevoked = true
			r.byHash[h] = s
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for h, s := range r.byHash {
		if s.ExpiresAt.Before(now) {
			delete(r.byHash, h)
			n++
		}
	}
	return n, nil
}
