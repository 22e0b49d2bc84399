package kv_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harrylevesque/txt2qr/internal/kv"
	"github.com/harrylevesque/txt2qr/internal/kv/kvtest"
)

func TestMemory(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) kv.Store { return kv.NewMemory() })
}

func TestSQLite(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) kv.Store {
		s, err := kv.OpenSQLite(filepath.Join(t.TempDir(), "txt2qr.db"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "txt2qr.db")

	s1, err := kv.OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s1.Set(ctx, "k", []byte("v")))
	require.NoError(t, s1.Close())

	s2, err := kv.OpenSQLite(path)
	require.NoError(t, err)
	defer s2.Close()
	got, err := s2.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, "v", string(got))
}

func TestRedis(t *testing.T) {
	if os.Getenv("TXT2QR_REDIS_TEST") != "1" {
		t.Skip("skipping Redis integration test; set TXT2QR_REDIS_TEST=1 to run")
	}
	addr := os.Getenv("TXT2QR_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	kvtest.Run(t, func(t *testing.T) kv.Store {
		s, err := kv.OpenRedis(context.Background(), kv.RedisOptions{
			Address: addr,
			Prefix:  "txt2qr-test:" + t.Name() + ":",
		})
		if err != nil {
			t.Skipf("Redis not reachable: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestClose(t *testing.T) {
	require.NoError(t, kv.Close(kv.NewMemory()))
}
