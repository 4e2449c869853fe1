package qbittorrent

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/seedcross/internal/database"
	"github.com/autobrr/seedcross/internal/models"
)

func newTestStore(t *testing.T) *models.InstanceStore {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "seedcross.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return models.NewInstanceStore(db)
}

func TestPoolUnknownInstance(t *testing.T) {
	pool := NewPool(newTestStore(t))

	_, err := pool.GetClient(context.Background(), 42)
	assert.ErrorIs(t, err, models.ErrInstanceNotFound)
}

func TestPoolUnreachableInstance(t *testing.T) {
	store := newTestStore(t)
	// Credentials force a real login round-trip; with empty credentials the
	// client assumes bypass-auth and skips the login call entirely.
	inst, err := store.Create(context.Background(), &models.Instance{
		Label:    "dead",
		Host:     "http://127.0.0.1:1",
		Username: "admin",
		Password: "adminadmin",
	})
	require.NoError(t, err)

	pool := NewPool(store)

	_, err = pool.GetClient(context.Background(), inst.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "login failed")

	// A failed connection leaves nothing cached.
	pool.Remove(inst.ID)
}
