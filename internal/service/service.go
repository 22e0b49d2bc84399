// Package service is the generation flow shared by the HTTP API and the CLI:
// preview, save, dismiss and scan.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/harrylevesque/txt2qr/internal/ads"
	"github.com/harrylevesque/txt2qr/internal/detect"
	"github.com/harrylevesque/txt2qr/internal/history"
	"github.com/harrylevesque/txt2qr/internal/models"
	"github.com/harrylevesque/txt2qr/internal/render"
)

var (
	ErrEmptyText = errors.New("text is empty")
	ErrNoOCR     = errors.New("OCR is not configured")
)

// Extractor turns a base64 image into text.
type Extractor interface {
	Extract(ctx context.Context, image string, progress func(string)) (string, error)
}

// Preview is what a client shows before the user decides to save.
type Preview struct {
	Text      string             `json:"text" yaml:"text"`
	Type      models.ContentType `json:"type" yaml:"type"`
	Formatted string             `json:"formatted" yaml:"formatted"`
	Label     detect.Label       `json:"label" yaml:"label"`
}

// Saved is the outcome of Save.
type Saved struct {
	Record models.QRRecord `json:"record" yaml:"record"`
	// ShowAd is set when an interstitial is due after this generation.
	ShowAd bool `json:"show_ad" yaml:"show_ad"`
}

type Service struct {
	history *history.Store
	ocr     Extractor
	ads     *ads.Interstitial
	render  render.Options
	log     *zap.Logger
	now     func() time.Time
}

type Option func(*Service)

// WithOCR enables Scan.
func WithOCR(e Extractor) Option { return func(s *Service) { s.ocr = e } }

// WithAds counts saves against an interstitial policy.
func WithAds(a *ads.Interstitial) Option { return func(s *Service) { s.ads = a } }

// WithRenderOptions sets the options used for SVG snapshots.
func WithRenderOptions(o render.Options) Option { return func(s *Service) { s.render = o } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithLogger(l *zap.Logger) Option { return func(s *Service) { s.log = l } }

func New(h *history.Store, opts ...Option) *Service {
	s := &Service{history: h, log: zap.NewNop(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.Named("service")
	return s
}

// Preview classifies text unless typ is given, formats it and makes it the
// current preview.
func (s *Service) Preview(text string, typ models.ContentType) Preview {
	if typ == "" {
		typ = detect.Classify(text)
	}
	p := Preview{
		Text:      text,
		Type:      typ,
		Formatted: detect.Format(text, typ),
		Label:     detect.Describe(typ),
	}
	s.history.SetCurrent(&models.QRRecord{Text: p.Formatted, Type: typ, Timestamp: s.now().UnixMilli()})
	return p
}

// Current returns the record being previewed, or nil.
func (s *Service) Current() *models.QRRecord {
	return s.history.Current()
}

// Dismiss clears the current preview.
func (s *Service) Dismiss() {
	s.history.SetCurrent(nil)
}

// Save records the formatted text, the string a QR code encodes, in history.
// An empty typ is classified from text. With withSVG the record carries an
// SVG rendering of that same string.
func (s *Service) Save(ctx context.Context, text string, typ models.ContentType, withSVG bool) (Saved, error) {
	if strings.TrimSpace(text) == "" {
		return Saved{}, ErrEmptyText
	}
	if typ == "" {
		typ = detect.Classify(text)
	}
	rec := models.QRRecord{
		ID:        detect.GenerateID(),
		Text:      detect.Format(text, typ),
		Type:      typ,
		Timestamp: s.now().UnixMilli(),
	}
	if withSVG {
		code, err := render.Render(rec.Text, s.render)
		if err != nil {
			return Saved{}, fmt.Errorf("render svg: %w", err)
		}
		if rec.SVG, err = code.SVG(); err != nil {
			return Saved{}, fmt.Errorf("render svg: %w", err)
		}
	}
	s.history.Add(ctx, rec)

	out := Saved{Record: rec}
	if s.ads != nil {
		out.ShowAd = s.ads.Record()
	}
	s.log.Debug("qr saved", zap.String("id", rec.ID), zap.String("type", string(typ)))
	return out, nil
}

// Scan runs OCR on image and previews the result.
func (s *Service) Scan(ctx context.Context, image string, progress func(string)) (Preview, error) {
	if s.ocr == nil {
		return Preview{}, ErrNoOCR
	}
	text, err := s.ocr.Extract(ctx, image, progress)
	if err != nil {
		s.log.Warn("ocr failed", zap.Error(err))
		return Preview{}, err
	}
	return s.Preview(text, ""), nil
}
