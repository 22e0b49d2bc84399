package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/hkdf"

	"github.com/harrylevesque/txt2qr/internal/files"
)

// MasterKeyEnv names the environment variable holding the hex master key.
const MasterKeyEnv = "TXT2QR_MASTER_KEY"

// ErrInvalidKeyLength is returned when a key is not 32 bytes.
var ErrInvalidKeyLength = errors.New("invalid key length")

// ReadMasterKey reads the master key from MasterKeyEnv, falling back to keyFile.
// The key is 64 hex characters (32 bytes).
func ReadMasterKey(keyFile string) ([]byte, error) {
	h := os.Getenv(MasterKeyEnv)
	if h == "" {
		data, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, fmt.Errorf("%s not set and %s not readable: %w", MasterKeyEnv, keyFile, err)
		}
		h = string(data)
	}
	b, err := hex.DecodeString(strings.TrimSpace(h))
	if err != nil {
		return nil, fmt.Errorf("master key hex decode error: %w", err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("%w: master key must be 32 bytes (hex 64 chars)", ErrInvalidKeyLength)
	}
	return b, nil
}

// GenerateMasterKey writes a fresh hex master key to keyFile. It refuses to overwrite.
func GenerateMasterKey(keyFile string) error {
	if files.FileExists(keyFile) {
		return fmt.Errorf("%s already exists, refusing to overwrite", keyFile)
	}
	key, err := generateRandomBytes(32)
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	return os.WriteFile(keyFile, []byte(hex.EncodeToString(key)+"\n"), 0o600)
}

// DeriveKey derives a 32-byte purpose-bound key from the master key using HKDF-SHA256.
func DeriveKey(master []byte, purpose string) ([]byte, error) {
	if len(master) != 32 {
		return nil, ErrInvalidKeyLength
	}
	h := hkdf.New(sha256.New, master, nil, []byte(purpose))
	out := make([]byte, 32)
	if _, err := io.ReadFull(h, out); err != nil {
		return nil, err
	}
	return out, nil
}

// generateRandomBytes generates a slice of random bytes of the given length.
func generateRandomBytes(length int) ([]byte, error) {
	b := make([]byte, length)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}
