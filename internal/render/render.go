// Package render turns formatted text into QR code artifacts (PNG or SVG).
// The artifacts are opaque to the rest of the app.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strconv"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

const (
	DefaultSize       = 250
	DefaultForeground = "#000000"
	DefaultBackground = "#ffffff"
	MaxSize           = 2048
)

var (
	ErrEmptyContent = errors.New("nothing to encode")
	ErrBadColor     = errors.New("color must be #rgb or #rrggbb")
	ErrBadSize      = fmt.Errorf("size must be between 21 and %d", MaxSize)
)

// Options control the rendered output. Zero values fall back to defaults.
type Options struct {
	Size       int    // pixels per side
	Foreground string // #rrggbb
	Background string // #rrggbb
	// Level is one of L, M, Q, H. Defaults to M, or H when a logo is set.
	Level string
	// Logo is an optional PNG drawn over the center of the code.
	Logo []byte
}

func (o Options) withDefaults() Options {
	if o.Size == 0 {
		o.Size = DefaultSize
	}
	if o.Foreground == "" {
		o.Foreground = DefaultForeground
	}
	if o.Background == "" {
		o.Background = DefaultBackground
	}
	if o.Level == "" {
		o.Level = "M"
		if len(o.Logo) > 0 {
			o.Level = "H"
		}
	}
	return o
}

// Code is an encoded QR symbol ready to be written out.
type Code struct {
	qr   *qrcode.QRCode
	opts Options
}

// Render encodes text with opts.
func Render(text string, opts Options) (*Code, error) {
	if text == "" {
		return nil, ErrEmptyContent
	}
	opts = opts.withDefaults()
	if opts.Size < 21 || opts.Size > MaxSize {
		return nil, ErrBadSize
	}
	fg, err := ParseColor(opts.Foreground)
	if err != nil {
		return nil, err
	}
	bg, err := ParseColor(opts.Background)
	if err != nil {
		return nil, err
	}
	level, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	qr, err := qrcode.New(text, level)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	qr.ForegroundColor = fg
	qr.BackgroundColor = bg
	return &Code{qr: qr, opts: opts}, nil
}

// PNG returns the code as a PNG image, with the logo applied if one was given.
func (c *Code) PNG() ([]byte, error) {
	if len(c.opts.Logo) == 0 {
		return c.qr.PNG(c.opts.Size)
	}
	logo, err := png.Decode(bytes.NewReader(c.opts.Logo))
	if err != nil {
		return nil, fmt.Errorf("decode logo: %w", err)
	}

	base := c.qr.Image(c.opts.Size)
	canvas := image.NewRGBA(base.Bounds())
	draw.Draw(canvas, canvas.Bounds(), base, base.Bounds().Min, draw.Src)

	side := canvas.Bounds().Dx() / 5
	scaled := scale(logo, side)
	offset := (canvas.Bounds().Dx() - side) / 2
	target := image.Rect(offset, offset, offset+side, offset+side)
	draw.Draw(canvas, target, scaled, image.Point{}, draw.Over)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// SVG returns the code as a standalone SVG document. Logos are not embedded.
func (c *Code) SVG() (string, error) {
	bitmap := c.qr.Bitmap()
	n := len(bitmap)
	if n == 0 {
		return "", errors.New("empty qr bitmap")
	}

	var path strings.Builder
	for y, row := range bitmap {
		for x, dark := range row {
			if dark {
				fmt.Fprintf(&path, "M%d %dh1v1h-1z", x, y)
			}
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" width="%d" height="%d" shape-rendering="crispEdges">`,
		n, n, c.opts.Size, c.opts.Size)
	fmt.Fprintf(&b, `<rect width="%d" height="%d" fill="%s"/>`, n, n, strings.ToLower(c.opts.Background))
	fmt.Fprintf(&b, `<path fill="%s" d="%s"/>`, strings.ToLower(c.opts.Foreground), path.String())
	b.WriteString(`</svg>`)
	return b.String(), nil
}

// Modules returns the side length of the symbol in modules, quiet zone included.
func (c *Code) Modules() int {
	return len(c.qr.Bitmap())
}

// ParseColor reads #rgb or #rrggbb.
func ParseColor(s string) (color.RGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w: %q", ErrBadColor, s)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

func parseLevel(s string) (qrcode.RecoveryLevel, error) {
	switch strings.ToUpper(s) {
	case "L":
		return qrcode.Low, nil
	case "M":
		return qrcode.Medium, nil
	case "Q":
		return qrcode.High, nil
	case "H":
		return qrcode.Highest, nil
	}
	return 0, fmt.Errorf("unknown recovery level %q", s)
}

// scale resizes src to side x side with nearest-neighbor sampling.
func scale(src image.Image, side int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, side, side))
	sb := src.Bounds()
	for y := 0; y < side; y++ {
		for x := 0; x < side; x++ {
			sx := sb.Min.X + x*sb.Dx()/side
			sy := sb.Min.Y + y*sb.Dy()/side
			dst.Set(x, y, src.At(sx, sy))
		}
	}
	return dst
}
