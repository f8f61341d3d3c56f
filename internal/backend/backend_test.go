package backend

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasklist/internal/backend/filestore"
	"tasklist/internal/backend/sqlstore"
	"tasklist/internal/config"
)

func TestOpen_File(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(context.Background(), &config.Config{Store: config.Store{Type: config.StoreFile, Path: dir}})
	require.NoError(t, err)
	fs, ok := s.(*filestore.Store)
	require.True(t, ok)
	assert.Equal(t, dir, fs.Dir())
}

func TestOpen_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.db")
	s, err := Open(context.Background(), &config.Config{Store: config.Store{Type: config.StoreSQLite, Path: path}})
	require.NoError(t, err)
	_, ok := s.(*sqlstore.Store)
	require.True(t, ok)
	closer, ok := s.(io.Closer)
	require.True(t, ok)
	assert.NoError(t, closer.Close())
}

func TestOpen_GoogleWithoutCredentials(t *testing.T) {
	cfg := &config.Config{Dir: t.TempDir(), Store: config.Store{Type: config.StoreGoogle}}
	_, err := Open(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oauth_client.json")
	assert.True(t, NeedsAuth(cfg))
}

func TestOpen_Unknown(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{Store: config.Store{Type: "redis"}})
	require.ErrorIs(t, err, ErrUnknownBackend)
}
