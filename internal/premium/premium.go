// Package premium tracks whether the ad-removal purchase has been made.
package premium

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/harrylevesque/txt2qr/internal/kv"
)

const (
	// StorageKey holds "true" or "false".
	StorageKey = "@txt2qr_premium"
	// ProductID is the one-time ad removal product.
	ProductID = "com.txt2qr.app.removeads"
)

var (
	ErrAlreadyPremium   = errors.New("premium access already active")
	ErrStoreUnavailable = errors.New("store connection not ready")
	ErrInvalidReceipt   = errors.New("invalid purchase receipt")
)

// Biller validates a purchase receipt for a product.
type Biller interface {
	Verify(ctx context.Context, productID, receipt string) error
}

// ReceiptBiller accepts any non-empty receipt for the products it sells.
// It stands in for a store-side receipt check.
type ReceiptBiller struct {
	Products []string
}

// NewReceiptBiller sells ProductID.
func NewReceiptBiller() *ReceiptBiller {
	return &ReceiptBiller{Products: []string{ProductID}}
}

func (b *ReceiptBiller) Verify(_ context.Context, productID, receipt string) error {
	if strings.TrimSpace(receipt) == "" {
		return ErrInvalidReceipt
	}
	for _, p := range b.Products {
		if p == productID {
			return nil
		}
	}
	return fmt.Errorf("unknown product %q", productID)
}

// Manager owns the premium flag. A nil Biller means purchases are not
// available on this platform.
type Manager struct {
	kv     kv.Store
	biller Biller
	log    *zap.Logger

	mu      sync.RWMutex
	premium bool
}

func New(s kv.Store, biller Biller, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{kv: s, biller: biller, log: log.Named("premium")}
}

// Load reads the persisted flag. Anything other than "true" leaves it unset.
func (m *Manager) Load(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.load(ctx)
}

func (m *Manager) load(ctx context.Context) {
	data, err := m.kv.Get(ctx, StorageKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			m.log.Error("error loading premium status", zap.Error(err))
		}
		return
	}
	m.premium = string(data) == "true"
}

func (m *Manager) IsPremium() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.premium
}

// Purchase verifies receipt and grants premium. The flag only flips once it
// has been persisted.
func (m *Manager) Purchase(ctx context.Context, receipt string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.premium {
		return ErrAlreadyPremium
	}
	if m.biller == nil {
		return ErrStoreUnavailable
	}
	if err := m.biller.Verify(ctx, ProductID, receipt); err != nil {
		return fmt.Errorf("purchase failed: %w", err)
	}
	if err := m.set(ctx, true); err != nil {
		return err
	}
	m.log.Info("premium purchased")
	return nil
}

// Restore reloads the flag from storage and reports it.
func (m *Manager) Restore(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.load(ctx)
	return m.premium
}

// Revoke clears the flag. Used by support tooling and tests.
func (m *Manager) Revoke(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set(ctx, false)
}

func (m *Manager) set(ctx context.Context, status bool) error {
	val := "false"
	if status {
		val = "true"
	}
	if err := m.kv.Set(ctx, StorageKey, []byte(val)); err != nil {
		m.log.Error("error saving premium status", zap.Error(err))
		return fmt.Errorf("save premium status: %w", err)
	}
	m.premium = status
	return nil
}
