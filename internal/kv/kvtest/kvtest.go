// Package kvtest holds the behavior every kv.Store backend must share.
package kvtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrylevesque/txt2qr/internal/kv"
)

// Run exercises a fresh store returned by open.
func Run(t *testing.T, open func(t *testing.T) kv.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		s := open(t)
		_, err := s.Get(ctx, "@txt2qr_history")
		assert.ErrorIs(t, err, kv.ErrNotFound)
	})

	t.Run("set then get", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Set(ctx, "@txt2qr_history", []byte(`[{"id":"1"}]`)))
		got, err := s.Get(ctx, "@txt2qr_history")
		require.NoError(t, err)
		assert.Equal(t, `[{"id":"1"}]`, string(got))
	})

	t.Run("overwrite", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Set(ctx, "k", []byte("one")))
		require.NoError(t, s.Set(ctx, "k", []byte("two")))
		got, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Equal(t, "two", string(got))
	})

	t.Run("keys are independent", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Set(ctx, "@a", []byte("a")))
		require.NoError(t, s.Set(ctx, "_a", []byte("b")))
		got, err := s.Get(ctx, "@a")
		require.NoError(t, err)
		assert.Equal(t, "a", string(got))
	})

	t.Run("delete", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Set(ctx, "k", []byte("v")))
		require.NoError(t, s.Delete(ctx, "k"))
		_, err := s.Get(ctx, "k")
		assert.ErrorIs(t, err, kv.ErrNotFound)
	})

	t.Run("delete missing is not an error", func(t *testing.T) {
		s := open(t)
		assert.NoError(t, s.Delete(ctx, "never-set"))
	})

	t.Run("empty value", func(t *testing.T) {
		s := open(t)
		require.NoError(t, s.Set(ctx, "k", []byte{}))
		got, err := s.Get(ctx, "k")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}
