package repomanager

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/medibook/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/medibook/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/medibook/internal/server/repositories/users"
)

// MemoryRepositoryManager backs every repository with process memory.
// WithTx serialises transactional blocks but cannot roll back writes made
// before fn fails.
type MemoryRepositoryManager struct {
	txMu     sync.Mutex
	users    *users.MemoryRepository
	sessions *sessions.MemoryRepository
	profiles *profiles.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		users:    users.NewMemoryRepository(),
		sessions: sessions.NewMemoryRepository(),
		profiles: profiles.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) Users() users.Repository       { return m.users }
func (m *MemoryRepositoryManager) Sessions() sessions.Repository { return m.sessions }
func (m *MemoryRepositoryManager) Profiles() profiles.Repository { return m.profiles }

func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	return fn(ctx, m)
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *MemoryRepositoryManager) Close() error { return nil }
