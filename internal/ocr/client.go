// Package ocr extracts text from images through the OCR.space HTTP API.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultEndpoint = "https://api.ocr.space/parse/image"
	DefaultLanguage = "eng"
	// DefaultMaxImageBytes matches the free tier upload limit.
	DefaultMaxImageBytes = 1024 * 1024

	dataURLPrefix = "data:image/jpeg;base64,"

	// MaxResponseBytes caps how much of the OCR reply is read.
	MaxResponseBytes = 4 << 20
)

// Progress messages reported while a request is in flight.
const (
	StatusUploading  = "Uploading image..."
	StatusProcessing = "Processing with OCR..."
	StatusDone       = "Text extracted successfully!"
)

var (
	ErrEmptyImage     = errors.New("image payload is empty")
	ErrImageTooLarge  = errors.New("image is too large for OCR")
	ErrResponseTooBig = errors.New("OCR response is too large")
	ErrNoTextFound    = errors.New("No text found in image")
	ErrNoTextDetected = errors.New("No text detected in the image")
)

// ProcessingError is returned when the service reports it could not process the image.
type ProcessingError struct {
	Message string
}

func (e *ProcessingError) Error() string { return e.Message }

// Config holds the client settings.
type Config struct {
	Endpoint      string
	APIKey        string
	Language      string
	Timeout       time.Duration // zero keeps the HTTP client default
	MaxImageBytes int
}

// Client calls the OCR endpoint. It never retries.
type Client struct {
	cfg  Config
	http *http.Client
}

// New returns a client with defaults filled in for empty fields.
func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = DefaultMaxImageBytes
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

// WithHTTPClient swaps the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.http = hc
	return c
}

type response struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool            `json:"IsErroredOnProcessing"`
	ErrorMessage          json.RawMessage `json:"ErrorMessage"`
}

// Extract sends a base64 image (raw or data URL) and returns the trimmed text.
// progress may be nil.
func (c *Client) Extract(ctx context.Context, image string, progress func(string)) (string, error) {
	report := func(msg string) {
		if progress != nil {
			progress(msg)
		}
	}

	image = strings.TrimSpace(image)
	if image == "" {
		return "", ErrEmptyImage
	}
	if !strings.HasPrefix(image, "data:") {
		image = dataURLPrefix + image
	}
	if n := decodedSize(image); n > c.cfg.MaxImageBytes {
		return "", fmt.Errorf("%w: %d bytes (limit %d)", ErrImageTooLarge, n, c.cfg.MaxImageBytes)
	}

	report(StatusUploading)
	body, contentType, err := c.form(image)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, body)
	if err != nil {
		return "", fmt.Errorf("build OCR request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	report(StatusProcessing)
	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("OCR request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if err != nil {
		return "", fmt.Errorf("read OCR response: %w", err)
	}
	if len(raw) > MaxResponseBytes {
		return "", ErrResponseTooBig
	}
	var result response
	if err := json.Unmarshal(raw, &result); err != nil {
		return "", fmt.Errorf("decode OCR response (status %d): %w", resp.StatusCode, err)
	}

	if result.IsErroredOnProcessing {
		return "", &ProcessingError{Message: firstMessage(result.ErrorMessage)}
	}
	if len(result.ParsedResults) == 0 {
		return "", ErrNoTextFound
	}
	text := strings.TrimSpace(result.ParsedResults[0].ParsedText)
	if text == "" {
		return "", ErrNoTextDetected
	}

	report(StatusDone)
	return text, nil
}

func (c *Client) form(image string) (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fields := [][2]string{
		{"base64Image", image},
		{"apikey", c.cfg.APIKey},
		{"language", c.cfg.Language},
		{"isOverlayRequired", "false"},
		{"detectOrientation", "true"},
		{"scale", "true"},
		{"OCREngine", "2"},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("write form field %s: %w", f[0], err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

// decodedSize estimates the byte size of the base64 payload inside a data URL.
func decodedSize(dataURL string) int {
	payload := dataURL
	if i := strings.IndexByte(dataURL, ','); i >= 0 {
		payload = dataURL[i+1:]
	}
	payload = strings.TrimRight(payload, "=")
	return len(payload) * 3 / 4
}

// firstMessage handles ErrorMessage arriving as either a string or a list of strings.
func firstMessage(raw json.RawMessage) string {
	const fallback = "OCR processing failed"
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) > 0 && list[0] != "" {
			return list[0]
		}
		return fallback
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s
	}
	return fallback
}
