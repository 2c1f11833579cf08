// Package repomanager vends the users, sessions and profiles repositories
// for a storage backend and runs their operations inside transactions.
package repomanager

import (
	"context"

	"github.com/dmitrijs2005/medibook/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/medibook/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/medibook/internal/server/repositories/users"
)

// Repositories is a set of repositories bound to one handle, either the
// shared pool or an open transaction.
type Repositories interface {
	Users() users.Repository
	Sessions() sessions.Repository
	Profiles() profiles.Repository
}

type RepositoryManager interface {
	Repositories

	// WithTx runs fn with repositories bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error

	RunMigrations(ctx context.Context) error
	Close() error
}
