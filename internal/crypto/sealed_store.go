package crypto

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"

	"github.com/harrylevesque/txt2qr/internal/kv"
)

// storagePurpose is the HKDF info string for persisted blobs.
const storagePurpose = "txt2qr-storage-v1"

// ErrCiphertextTooShort is returned when a stored value cannot hold a nonce.
var ErrCiphertextTooShort = errors.New("ciphertext too short")

// SealedStore encrypts every value with AES-256-GCM before handing it to the
// wrapped store. The key name is bound as associated data, so a blob copied
// to another key fails to open.
type SealedStore struct {
	inner kv.Store
	aead  cipher.AEAD
}

// NewSealedStore wraps inner with a key derived from master.
func NewSealedStore(inner kv.Store, master []byte) (*SealedStore, error) {
	key, err := DeriveKey(master, storagePurpose)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &SealedStore{inner: inner, aead: gcm}, nil
}

func (s *SealedStore) Get(ctx context.Context, key string) ([]byte, error) {
	blob, err := s.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.open(key, blob)
}

func (s *SealedStore) Set(ctx context.Context, key string, value []byte) error {
	blob, err := s.seal(key, value)
	if err != nil {
		return err
	}
	return s.inner.Set(ctx, key, blob)
}

func (s *SealedStore) Delete(ctx context.Context, key string) error {
	return s.inner.Delete(ctx, key)
}

// Close closes the wrapped store.
func (s *SealedStore) Close() error {
	return kv.Close(s.inner)
}

func (s *SealedStore) seal(key string, plaintext []byte) ([]byte, error) {
	nonce, err := generateRandomBytes(s.aead.NonceSize())
	if err != nil {
		return nil, err
	}
	ct := s.aead.Seal(nil, nonce, plaintext, []byte(key))
	return append(nonce, ct...), nil
}

func (s *SealedStore) open(key string, blob []byte) ([]byte, error) {
	ns := s.aead.NonceSize()
	if len(blob) < ns {
		return nil, ErrCiphertextTooShort
	}
	plain, err := s.aead.Open(nil, blob[:ns], blob[ns:], []byte(key))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	return plain, nil
}
