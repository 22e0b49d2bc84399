package premium

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrylevesque/txt2qr/internal/kv"
)

type brokenStore struct{ *kv.Memory }

func (brokenStore) Set(context.Context, string, []byte) error { return errors.New("read-only") }

func TestLoad(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		stored string
		want   bool
	}{
		{"true", true},
		{"false", false},
		{"TRUE", false},
		{"garbage", false},
	}
	for _, tt := range tests {
		mem := kv.NewMemory()
		require.NoError(t, mem.Set(ctx, StorageKey, []byte(tt.stored)))
		m := New(mem, nil, nil)
		m.Load(ctx)
		assert.Equal(t, tt.want, m.IsPremium(), tt.stored)
	}

	m := New(kv.NewMemory(), nil, nil)
	m.Load(ctx)
	assert.False(t, m.IsPremium())
}

func TestPurchase(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	m := New(mem, NewReceiptBiller(), nil)

	require.NoError(t, m.Purchase(ctx, "receipt-123"))
	assert.True(t, m.IsPremium())

	data, err := mem.Get(ctx, StorageKey)
	require.NoError(t, err)
	assert.Equal(t, "true", string(data))

	assert.ErrorIs(t, m.Purchase(ctx, "receipt-456"), ErrAlreadyPremium)

	again := New(mem, nil, nil)
	again.Load(ctx)
	assert.True(t, again.IsPremium())
}

func TestPurchase_Failures(t *testing.T) {
	ctx := context.Background()

	m := New(kv.NewMemory(), nil, nil)
	assert.ErrorIs(t, m.Purchase(ctx, "r"), ErrStoreUnavailable)

	m = New(kv.NewMemory(), NewReceiptBiller(), nil)
	assert.ErrorIs(t, m.Purchase(ctx, "  "), ErrInvalidReceipt)
	assert.False(t, m.IsPremium())

	m = New(brokenStore{kv.NewMemory()}, NewReceiptBiller(), nil)
	assert.Error(t, m.Purchase(ctx, "r"))
	assert.False(t, m.IsPremium())
}

func TestReceiptBiller_UnknownProduct(t *testing.T) {
	b := NewReceiptBiller()
	assert.Error(t, b.Verify(context.Background(), "com.other.product", "r"))
	assert.NoError(t, b.Verify(context.Background(), ProductID, "r"))
}

func TestRestoreAndRevoke(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	m := New(mem, NewReceiptBiller(), nil)
	assert.False(t, m.Restore(ctx))

	require.NoError(t, mem.Set(ctx, StorageKey, []byte("true")))
	assert.True(t, m.Restore(ctx))

	require.NoError(t, m.Revoke(ctx))
	assert.False(t, m.IsPremium())
	assert.False(t, m.Restore(ctx))
}
