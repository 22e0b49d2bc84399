package files

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrylevesque/txt2qr/internal/kv"
	"github.com/harrylevesque/txt2qr/internal/kv/kvtest"
)

func TestBlobStore(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) kv.Store {
		s, err := NewBlobStore(t.TempDir())
		require.NoError(t, err)
		return s
	})
}

func TestBlobStore_FileLayout(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	s, err := NewBlobStore(dir)
	require.NoError(t, err)

	require.NoError(t, s.Set(context.Background(), "@txt2qr_history", []byte("[]")))

	path := filepath.Join(dir, "%40txt2qr_history.blob")
	assert.True(t, FileExists(path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(filePerms), info.Mode().Perm())

	require.NoError(t, s.Delete(context.Background(), "@txt2qr_history"))
	assert.False(t, FileExists(path))
}
