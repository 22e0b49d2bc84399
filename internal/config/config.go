// Package config loads txt2qr settings: defaults, then a JSONC file, then
// TXT2QR_* environment variables. Command-line flags are applied by the caller.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tailscale/hujson"

	"github.com/harrylevesque/txt2qr/internal/platform"
	"github.com/harrylevesque/txt2qr/internal/utils"
)

// FileName is the config file looked up in the working directory.
const FileName = "txt2qr.json"

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config")
)

// Duration reads "30s" style strings from JSON.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

type Storage struct {
	Backend       string `json:"backend"`
	Path          string `json:"path,omitempty"`
	RedisAddr     string `json:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty"`
	// Encrypt seals every stored value with a key derived from the master key.
	Encrypt bool `json:"encrypt"`
}

type OCR struct {
	Endpoint      string   `json:"endpoint"`
	APIKey        string   `json:"api_key,omitempty"`
	Language      string   `json:"language"`
	Timeout       Duration `json:"timeout"`
	MaxImageBytes int      `json:"max_image_bytes"`
}

type Upload struct {
	Bucket    string   `json:"bucket,omitempty"`
	Region    string   `json:"region,omitempty"`
	Endpoint  string   `json:"endpoint,omitempty"`
	AccessKey string   `json:"access_key,omitempty"`
	SecretKey string   `json:"secret_key,omitempty"`
	URLTTL    Duration `json:"url_ttl"`
}

type Auth struct {
	Issuer   string `json:"issuer,omitempty"`
	ClientID string `json:"client_id,omitempty"`
	Audience string `json:"audience,omitempty"`
	Dev      bool   `json:"dev"`
}

type TLS struct {
	CertFile string `json:"cert_file,omitempty"`
	KeyFile  string `json:"key_file,omitempty"`
}

// Config holds all configuration options.
type Config struct {
	Addr     string           `json:"addr"`
	Platform string           `json:"platform"`
	DataDir  string           `json:"data_dir"`
	Storage  Storage          `json:"storage"`
	OCR      OCR              `json:"ocr"`
	Upload   Upload           `json:"upload"`
	Auth     Auth             `json:"auth"`
	TLS      TLS              `json:"tls"`
	Log      utils.LogOptions `json:"log"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:     "127.0.0.1:8080",
		Platform: string(platform.Web),
		DataDir:  utils.GetDataDir(),
		Storage:  Storage{Backend: BackendFile},
		OCR: OCR{
			Endpoint:      "https://api.ocr.space/parse/image",
			Language:      "eng",
			MaxImageBytes: 1024 * 1024,
		},
		Upload: Upload{URLTTL: Duration(7 * 24 * time.Hour)},
		Log:    utils.LogOptions{Level: "info"},
	}
}

// Load layers defaults, the config file and env. An explicit path must
// exist; otherwise txt2qr.json in workDir is read when present. It returns
// the path of the file that was read, if any.
func Load(workDir, path string, env []string) (Config, string, error) {
	cfg := Default()

	file := path
	mustExist := path != ""
	if file == "" {
		file = FileName
	}
	if !filepath.IsAbs(file) {
		file = filepath.Join(workDir, file)
	}

	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := parse(data, &cfg); err != nil {
			return Config{}, "", fmt.Errorf("%w %s: %w", ErrConfigInvalid, file, err)
		}
	case os.IsNotExist(err) && !mustExist:
		file = ""
	case os.IsNotExist(err):
		return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
	default:
		return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileRead, file)
	}

	if err := applyEnv(&cfg, env); err != nil {
		return Config{}, "", fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}
	return cfg, file, nil
}

func parse(data []byte, cfg *Config) error {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("invalid JSONC: %w", err)
	}
	if err := json.Unmarshal(standardized, cfg); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

type envVar struct {
	name string
	set  func(*Config, string) error
}

func str(f func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error { *f(c) = v; return nil }
}

func boolean(f func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*f(c) = b
		return nil
	}
}

func integer(f func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*f(c) = n
		return nil
	}
}

func duration(f func(*Config) *Duration) func(*Config, string) error {
	return func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*f(c) = Duration(d)
		return nil
	}
}

var envVars = []envVar{
	{"TXT2QR_ADDR", str(func(c *Config) *string { return &c.Addr })},
	{"TXT2QR_PLATFORM", str(func(c *Config) *string { return &c.Platform })},
	{"TXT2QR_DATA_DIR", str(func(c *Config) *string { return &c.DataDir })},
	{"TXT2QR_STORAGE_BACKEND", str(func(c *Config) *string { return &c.Storage.Backend })},
	{"TXT2QR_STORAGE_PATH", str(func(c *Config) *string { return &c.Storage.Path })},
	{"TXT2QR_REDIS_ADDR", str(func(c *Config) *string { return &c.Storage.RedisAddr })},
	{"TXT2QR_REDIS_PASSWORD", str(func(c *Config) *string { return &c.Storage.RedisPassword })},
	{"TXT2QR_REDIS_DB", integer(func(c *Config) *int { return &c.Storage.RedisDB })},
	{"TXT2QR_STORAGE_ENCRYPT", boolean(func(c *Config) *bool { return &c.Storage.Encrypt })},
	{"TXT2QR_OCR_ENDPOINT", str(func(c *Config) *string { return &c.OCR.Endpoint })},
	{"TXT2QR_OCR_API_KEY", str(func(c *Config) *string { return &c.OCR.APIKey })},
	{"TXT2QR_OCR_LANGUAGE", str(func(c *Config) *string { return &c.OCR.Language })},
	{"TXT2QR_OCR_TIMEOUT", duration(func(c *Config) *Duration { return &c.OCR.Timeout })},
	{"TXT2QR_UPLOAD_BUCKET", str(func(c *Config) *string { return &c.Upload.Bucket })},
	{"TXT2QR_UPLOAD_REGION", str(func(c *Config) *string { return &c.Upload.Region })},
	{"TXT2QR_UPLOAD_ENDPOINT", str(func(c *Config) *string { return &c.Upload.Endpoint })},
	{"TXT2QR_UPLOAD_ACCESS_KEY", str(func(c *Config) *string { return &c.Upload.AccessKey })},
	{"TXT2QR_UPLOAD_SECRET_KEY", str(func(c *Config) *string { return &c.Upload.SecretKey })},
	{"TXT2QR_AUTH_ISSUER", str(func(c *Config) *string { return &c.Auth.Issuer })},
	{"TXT2QR_AUTH_CLIENT_ID", str(func(c *Config) *string { return &c.Auth.ClientID })},
	{"TXT2QR_AUTH_DEV", boolean(func(c *Config) *bool { return &c.Auth.Dev })},
	{"TXT2QR_LOG_LEVEL", str(func(c *Config) *string { return &c.Log.Level })},
	{"TXT2QR_LOG_FILE", str(func(c *Config) *string { return &c.Log.File })},
}

func applyEnv(cfg *Config, env []string) error {
	values := make(map[string]string, len(env))
	for _, e := range env {
		if k, v, ok := strings.Cut(e, "="); ok {
			values[k] = v
		}
	}
	for _, ev := range envVars {
		v, ok := values[ev.name]
		if !ok {
			continue
		}
		if err := ev.set(cfg, v); err != nil {
			return fmt.Errorf("%s: %w", ev.name, err)
		}
	}
	return nil
}

// Validate rejects settings the app cannot run with.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite, BackendMemory:
	case BackendRedis:
		if c.Storage.RedisAddr == "" {
			return fmt.Errorf("%w: storage.redis_addr is required for the redis backend", ErrConfigInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrConfigInvalid, c.Storage.Backend)
	}
	if _, err := platform.For(c.Platform); err != nil {
		return fmt.Errorf("%w: %w", ErrConfigInvalid, err)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir is empty", ErrConfigInvalid)
	}
	if c.OCR.MaxImageBytes < 0 {
		return fmt.Errorf("%w: ocr.max_image_bytes is negative", ErrConfigInvalid)
	}
	if (c.TLS.CertFile == "") != (c.TLS.KeyFile == "") {
		return fmt.Errorf("%w: tls.cert_file and tls.key_file must be set together", ErrConfigInvalid)
	}
	return nil
}

// StoragePath is where the file or sqlite backend keeps its data.
func (c Config) StoragePath() string {
	if c.Storage.Path != "" {
		return c.Storage.Path
	}
	if c.Storage.Backend == BackendSQLite {
		return filepath.Join(c.DataDir, "txt2qr.db")
	}
	return filepath.Join(c.DataDir, "store")
}

// MasterKeyFile is the fallback location of the storage master key.
func (c Config) MasterKeyFile() string {
	return filepath.Join(c.DataDir, "master.key")
}

const mask = "********"

// Masked returns a copy of c with credentials blanked.
func Masked(c Config) Config {
	for _, s := range []*string{
		&c.Storage.RedisPassword,
		&c.OCR.APIKey,
		&c.Upload.AccessKey,
		&c.Upload.SecretKey,
	} {
		if *s != "" {
			*s = mask
		}
	}
	return c
}

// Format returns the config as indented JSON with secrets blanked.
func Format(c Config) (string, error) {
	data, err := json.MarshalIndent(Masked(c), "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to format config: %w", err)
	}
	return string(data), nil
}
