package profiles

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/medibook/internal/common"
	"github.com/dmitrijs2005/medibook/internal/server/models"
)

type MemoryRepository struct {
	mu       sync.RWMutex
	byUserID map[string]models.Profile
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byUserID: make(map[string]models.Profile)}
}

func (r *MemoryRepository) Create(_ context.Context, p *models.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.CreatedAt = time.Now()
	r.byUserID[p.UserID] = *p
	return nil
}

func (r *MemoryRepository) GetByUserID(_ context.Context, userID string) (*models.Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byUserID[userID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return &p, nil
}
