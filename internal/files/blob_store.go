package files

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/harrylevesque/txt2qr/internal/kv"
)

const (
	blobExt   = ".blob"
	dirPerms  = 0o700
	filePerms = 0o600
)

// BlobStore keeps one file per key under a data directory.
// Every write replaces the whole file atomically.
type BlobStore struct {
	dir string
	mu  sync.RWMutex
}

// NewBlobStore returns a store rooted at dir, creating the directory if needed.
func NewBlobStore(dir string) (*BlobStore, error) {
	if err := os.MkdirAll(dir, dirPerms); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &BlobStore{dir: dir}, nil
}

// Dir returns the directory holding the blobs.
func (s *BlobStore) Dir() string { return s.dir }

// pathFor maps a key to its file. Keys are query-escaped so any key is a valid file name.
func (s *BlobStore) pathFor(key string) string {
	return filepath.Join(s.dir, url.QueryEscape(key)+blobExt)
}

func (s *BlobStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := os.ReadFile(s.pathFor(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, kv.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

func (s *BlobStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.pathFor(key)
	if err := atomic.WriteFile(path, bytes.NewReader(value)); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	// atomic.WriteFile doesn't set permissions for new files
	if err := os.Chmod(path, filePerms); err != nil {
		return fmt.Errorf("chmod %s: %w", key, err)
	}
	return nil
}

func (s *BlobStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := os.Remove(s.pathFor(key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

// FileExists checks if the given file exists. Stat errors other than
// not-exist report true.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
