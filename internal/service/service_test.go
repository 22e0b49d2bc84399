package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrylevesque/txt2qr/internal/ads"
	"github.com/harrylevesque/txt2qr/internal/history"
	"github.com/harrylevesque/txt2qr/internal/kv"
	"github.com/harrylevesque/txt2qr/internal/models"
	"github.com/harrylevesque/txt2qr/internal/ocr"
	"github.com/harrylevesque/txt2qr/internal/render"
)

type fakeOCR struct {
	text string
	err  error
}

func (f fakeOCR) Extract(_ context.Context, _ string, progress func(string)) (string, error) {
	if progress != nil {
		progress(ocr.StatusUploading)
	}
	return f.text, f.err
}

var fixed = time.UnixMilli(1700000000123)

func newService(t *testing.T, opts ...Option) (*Service, *history.Store) {
	t.Helper()
	h := history.New(kv.NewMemory(), nil)
	opts = append([]Option{WithClock(func() time.Time { return fixed })}, opts...)
	return New(h, opts...), h
}

func TestPreview(t *testing.T) {
	s, _ := newService(t)

	p := s.Preview("contact@example.com", "")
	assert.Equal(t, models.TypeEmail, p.Type)
	assert.Equal(t, "mailto:contact@example.com", p.Formatted)
	assert.Equal(t, "mail", p.Label.Icon)

	cur := s.Current()
	require.NotNil(t, cur)
	assert.Equal(t, "mailto:contact@example.com", cur.Text)
	assert.Equal(t, models.TypeEmail, cur.Type)
	assert.Equal(t, fixed.UnixMilli(), cur.Timestamp)

	p = s.Preview("example.com", models.TypeText)
	assert.Equal(t, models.TypeText, p.Type)
	assert.Equal(t, "example.com", p.Formatted)

	s.Dismiss()
	assert.Nil(t, s.Current())
}

func TestSave(t *testing.T) {
	ctx := context.Background()
	s, h := newService(t)

	out, err := s.Save(ctx, "example.com", "", false)
	require.NoError(t, err)
	assert.Equal(t, models.TypeURL, out.Record.Type)
	assert.Equal(t, "https://example.com", out.Record.Text)
	assert.Equal(t, fixed.UnixMilli(), out.Record.Timestamp)
	assert.Empty(t, out.Record.SVG)
	assert.False(t, out.ShowAd)

	require.Equal(t, 1, h.Len())
	assert.Equal(t, out.Record, h.List()[0])
	assert.Equal(t, out.Record.ID, s.Current().ID)
}

func TestSave_WithSVG(t *testing.T) {
	s, _ := newService(t)
	out, err := s.Save(context.Background(), "hello", "", true)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.Record.SVG, "<svg"))
}

func TestSave_StoresEncodedText(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		in   string
		typ  models.ContentType
		want string
		kind models.ContentType
	}{
		{"contact@example.com", "", "mailto:contact@example.com", models.TypeEmail},
		{"5551234567890", "", "tel:5551234567890", models.TypePhone},
		{"example.com/menu", "", "https://example.com/menu", models.TypeURL},
		{"smsto:5551234:hi", "", "smsto:5551234:hi", models.TypeSMS},
		{"5551234567", models.TypeSMS, "sms:5551234567", models.TypeSMS},
		{"example.com", models.TypeText, "example.com", models.TypeText},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			s, h := newService(t)
			out, err := s.Save(ctx, tt.in, tt.typ, true)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out.Record.Text)
			assert.Equal(t, tt.kind, out.Record.Type)
			assert.Equal(t, out.Record, h.List()[0])

			code, err := render.Render(tt.want, render.Options{})
			require.NoError(t, err)
			svg, err := code.SVG()
			require.NoError(t, err)
			assert.Equal(t, svg, out.Record.SVG, "svg encodes the stored text")
		})
	}
}

func TestSave_Empty(t *testing.T) {
	s, h := newService(t)
	_, err := s.Save(context.Background(), "   ", "", false)
	assert.ErrorIs(t, err, ErrEmptyText)
	assert.Zero(t, h.Len())
}

func TestSave_CountsAds(t *testing.T) {
	s, _ := newService(t, WithAds(ads.NewInterstitial(3, nil)))
	var shown []bool
	for i := 0; i < 3; i++ {
		out, err := s.Save(context.Background(), "note", "", false)
		require.NoError(t, err)
		shown = append(shown, out.ShowAd)
	}
	assert.Equal(t, []bool{false, false, true}, shown)
}

func TestScan(t *testing.T) {
	s, _ := newService(t, WithOCR(fakeOCR{text: "tel:5551234567"}))

	var steps []string
	p, err := s.Scan(context.Background(), "aGVsbG8=", func(m string) { steps = append(steps, m) })
	require.NoError(t, err)
	assert.Equal(t, models.TypePhone, p.Type)
	assert.Equal(t, []string{ocr.StatusUploading}, steps)
	assert.Equal(t, "tel:5551234567", s.Current().Text)
}

func TestScan_Errors(t *testing.T) {
	s, _ := newService(t)
	_, err := s.Scan(context.Background(), "x", nil)
	assert.ErrorIs(t, err, ErrNoOCR)

	s, _ = newService(t, WithOCR(fakeOCR{err: ocr.ErrNoTextFound}))
	_, err = s.Scan(context.Background(), "x", nil)
	assert.True(t, errors.Is(err, ocr.ErrNoTextFound))
	assert.Nil(t, s.Current())
}
