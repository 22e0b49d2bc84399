// Package app builds the long-lived components from a Config. Both the
// server and the CLI start here.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/harrylevesque/txt2qr/internal/ads"
	"github.com/harrylevesque/txt2qr/internal/auth"
	"github.com/harrylevesque/txt2qr/internal/config"
	"github.com/harrylevesque/txt2qr/internal/crypto"
	"github.com/harrylevesque/txt2qr/internal/files"
	"github.com/harrylevesque/txt2qr/internal/history"
	"github.com/harrylevesque/txt2qr/internal/kv"
	"github.com/harrylevesque/txt2qr/internal/ocr"
	"github.com/harrylevesque/txt2qr/internal/platform"
	"github.com/harrylevesque/txt2qr/internal/premium"
	"github.com/harrylevesque/txt2qr/internal/service"
	"github.com/harrylevesque/txt2qr/internal/upload"
)

type App struct {
	Config   config.Config
	Log      *zap.Logger
	Platform platform.Capabilities
	Store    kv.Store
	History  *history.Store
	Premium  *premium.Manager
	Ads      *ads.Interstitial
	OCR      *ocr.Client
	Service  *service.Service
	// Uploader is nil when no bucket is configured.
	Uploader *upload.Uploader
	// Verifier is nil when the API runs without auth.
	Verifier auth.TokenVerifier
}

// New opens storage, loads persisted state and wires the services.
func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	caps, err := platform.For(cfg.Platform)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:   cfg,
		Log:      log,
		Platform: caps,
		Store:    store,
	}

	a.History = history.New(store, log)
	a.History.Load(ctx)

	var biller premium.Biller
	if caps.Purchases() {
		biller = premium.NewReceiptBiller()
	}
	a.Premium = premium.New(store, biller, log)
	a.Premium.Load(ctx)
	a.Ads = ads.NewInterstitial(ads.DefaultFrequency, a.Premium)

	a.OCR = ocr.New(ocr.Config{
		Endpoint:      cfg.OCR.Endpoint,
		APIKey:        cfg.OCR.APIKey,
		Language:      cfg.OCR.Language,
		Timeout:       time.Duration(cfg.OCR.Timeout),
		MaxImageBytes: cfg.OCR.MaxImageBytes,
	})
	a.Service = service.New(a.History,
		service.WithOCR(a.OCR),
		service.WithAds(a.Ads),
		service.WithLogger(log),
	)

	if cfg.Upload.Bucket != "" {
		a.Uploader, err = upload.Connect(upload.Config{
			Bucket:    cfg.Upload.Bucket,
			Region:    cfg.Upload.Region,
			Endpoint:  cfg.Upload.Endpoint,
			AccessKey: cfg.Upload.AccessKey,
			SecretKey: cfg.Upload.SecretKey,
			URLTTL:    time.Duration(cfg.Upload.URLTTL),
		}, log)
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	if caps.Auth() {
		a.Verifier, err = auth.NewVerifier(auth.Config{
			Issuer:   cfg.Auth.Issuer,
			ClientID: cfg.Auth.ClientID,
			Audience: cfg.Auth.Audience,
			Dev:      cfg.Auth.Dev,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
	}

	log.Info("app ready",
		zap.String("platform", string(caps.Name())),
		zap.String("storage", cfg.Storage.Backend),
		zap.Bool("encrypted", cfg.Storage.Encrypt),
		zap.Int("history", a.History.Len()),
		zap.Bool("premium", a.Premium.IsPremium()))
	return a, nil
}

// OpenStore opens the configured backend, sealed when storage.encrypt is set.
func OpenStore(ctx context.Context, cfg config.Config) (kv.Store, error) {
	var (
		store kv.Store
		err   error
	)
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		store = kv.NewMemory()
	case config.BackendFile:
		store, err = files.NewBlobStore(cfg.StoragePath())
	case config.BackendSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.StoragePath()), 0o700); err != nil {
			return nil, err
		}
		store, err = kv.OpenSQLite(cfg.StoragePath())
	case config.BackendRedis:
		store, err = kv.OpenRedis(ctx, kv.RedisOptions{
			Address:  cfg.Storage.RedisAddr,
			Password: cfg.Storage.RedisPassword,
			DB:       cfg.Storage.RedisDB,
			Prefix:   "txt2qr:",
		})
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Backend, err)
	}
	if !cfg.Storage.Encrypt {
		return store, nil
	}

	master, err := crypto.ReadMasterKey(cfg.MasterKeyFile())
	if err != nil {
		kv.Close(store)
		return nil, fmt.Errorf("storage encryption: %w", err)
	}
	sealed, err := crypto.NewSealedStore(store, master)
	if err != nil {
		kv.Close(store)
		return nil, err
	}
	return sealed, nil
}

// Close releases the storage backend.
func (a *App) Close() error {
	var errs []error
	if err := kv.Close(a.Store); err != nil {
		errs = append(errs, err)
	}
	// Sync fails on terminals; nothing to do about it.
	_ = a.Log.Sync()
	return errors.Join(errs...)
}
