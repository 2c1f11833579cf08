package repomanager

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/medibook/internal/server/models"
)

func TestMemoryManager_SharesStateAcrossTx(t *testing.T) {
	m := NewMemoryRepositoryManager()
	ctx := context.Background()

	var _ RepositoryManager = m
	require.NoError(t, m.RunMigrations(ctx))

	err := m.WithTx(ctx, func(ctx context.Context, repos Repositories) error {
		return repos.Sessions().Create(ctx, &models.Session{UserID: "u1", TokenHash: "h", ExpiresAt: time.Now().Add(time.Hour)})
	})
	require.NoError(t, err)

	s, err := m.Sessions().FindByTokenHash(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, "u1", s.UserID)

	boom := errors.New("boom")
	err = m.WithTx(ctx, func(context.Context, Repositories) error { return boom })
	assert.ErrorIs(t, err, boom)

	assert.NoError(t, m.Close())
}
