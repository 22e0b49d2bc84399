package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, file, err := Load(t.TempDir(), "", nil)
	require.NoError(t, err)
	assert.Empty(t, file)
	assert.Equal(t, BackendFile, cfg.Storage.Backend)
	assert.Equal(t, "eng", cfg.OCR.Language)
	assert.Equal(t, 1024*1024, cfg.OCR.MaxImageBytes)
	assert.Equal(t, Duration(7*24*time.Hour), cfg.Upload.URLTTL)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_JSONC(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `{
		// local dev box
		"addr": ":9090",
		"platform": "mobile",
		"storage": {"backend": "sqlite", "encrypt": true,},
		"ocr": {"api_key": "K123", "timeout": "15s"},
		"log": {"level": "debug"},
	}`)

	cfg, file, err := Load(dir, "", nil)
	require.NoError(t, err)
	assert.Equal(t, path, file)
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "mobile", cfg.Platform)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.True(t, cfg.Storage.Encrypt)
	assert.Equal(t, "K123", cfg.OCR.APIKey)
	assert.Equal(t, Duration(15*time.Second), cfg.OCR.Timeout)
	// Fields missing from the file keep their defaults.
	assert.Equal(t, "eng", cfg.OCR.Language)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, filepath.Join(cfg.DataDir, "txt2qr.db"), cfg.StoragePath())
}

func TestLoad_EnvWins(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"storage": {"backend": "sqlite"}}`)

	cfg, _, err := Load(dir, "", []string{
		"TXT2QR_STORAGE_BACKEND=redis",
		"TXT2QR_REDIS_ADDR=localhost:6379",
		"TXT2QR_REDIS_DB=2",
		"TXT2QR_AUTH_DEV=true",
		"TXT2QR_OCR_TIMEOUT=2s",
		"UNRELATED=1",
	})
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.Storage.Backend)
	assert.Equal(t, 2, cfg.Storage.RedisDB)
	assert.True(t, cfg.Auth.Dev)
	assert.Equal(t, Duration(2*time.Second), cfg.OCR.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, _, err := Load(dir, "missing.json", nil)
	assert.ErrorIs(t, err, ErrConfigFileNotFound)

	writeConfig(t, dir, `{"addr": `)
	_, _, err = Load(dir, "", nil)
	assert.ErrorIs(t, err, ErrConfigInvalid)

	writeConfig(t, dir, `{"ocr": {"timeout": 30}}`)
	_, _, err = Load(dir, "", nil)
	assert.ErrorIs(t, err, ErrConfigInvalid)

	_, _, err = Load(t.TempDir(), "", []string{"TXT2QR_REDIS_DB=two"})
	assert.ErrorIs(t, err, ErrConfigInvalid)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Storage.Backend = "mongo" }},
		{"redis without addr", func(c *Config) { c.Storage.Backend = BackendRedis }},
		{"unknown platform", func(c *Config) { c.Platform = "desktop" }},
		{"empty data dir", func(c *Config) { c.DataDir = "" }},
		{"half tls", func(c *Config) { c.TLS.CertFile = "cert.pem" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrConfigInvalid)
		})
	}
}

func TestFormat_HidesSecrets(t *testing.T) {
	cfg := Default()
	cfg.OCR.APIKey = "K123"
	cfg.Upload.SecretKey = "s3cret"
	cfg.Upload.AccessKey = "AKIAEXAMPLE"
	cfg.Storage.RedisPassword = "hunter2"
	out, err := Format(cfg)
	require.NoError(t, err)
	for _, secret := range []string{"K123", "s3cret", "AKIAEXAMPLE", "hunter2"} {
		assert.NotContains(t, out, secret)
	}
	assert.Contains(t, out, `"access_key": "********"`)
	assert.Equal(t, "AKIAEXAMPLE", cfg.Upload.AccessKey, "caller's config is untouched")
	assert.Contains(t, out, `"url_ttl": "168h0m0s"`)
}
