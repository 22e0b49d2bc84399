// Package platform describes what the client platform can do. The choice is
// made once at startup instead of branching on the platform at call sites.
package platform

import (
	"fmt"
	"strings"
)

type Name string

const (
	Web    Name = "web"
	Mobile Name = "mobile"
)

// CameraMode is how images reach the OCR step.
type CameraMode string

const (
	CameraUpload CameraMode = "upload" // file picker
	CameraNative CameraMode = "native" // device camera
)

// Capabilities is the per-platform feature set.
type Capabilities interface {
	Name() Name
	Camera() CameraMode
	// Auth reports whether sign-in is offered.
	Auth() bool
	// Purchases reports whether in-app purchases are available.
	Purchases() bool
	AdNetwork() string
}

type WebCapabilities struct{}

func (WebCapabilities) Name() Name         { return Web }
func (WebCapabilities) Camera() CameraMode { return CameraUpload }
func (WebCapabilities) Auth() bool         { return true }
func (WebCapabilities) Purchases() bool    { return false }
func (WebCapabilities) AdNetwork() string  { return "adsense" }

type MobileCapabilities struct{}

func (MobileCapabilities) Name() Name         { return Mobile }
func (MobileCapabilities) Camera() CameraMode { return CameraNative }
func (MobileCapabilities) Auth() bool         { return false }
func (MobileCapabilities) Purchases() bool    { return true }
func (MobileCapabilities) AdNetwork() string  { return "admob" }

// For returns the capabilities of the named platform. An empty name means web.
func For(name string) (Capabilities, error) {
	switch Name(strings.ToLower(strings.TrimSpace(name))) {
	case Web, "":
		return WebCapabilities{}, nil
	case Mobile, "ios", "android":
		return MobileCapabilities{}, nil
	}
	return nil, fmt.Errorf("unknown platform %q", name)
}

// Summary is the JSON/YAML view of a Capabilities value.
type Summary struct {
	Platform  Name       `json:"platform" yaml:"platform"`
	Camera    CameraMode `json:"camera" yaml:"camera"`
	Auth      bool       `json:"auth" yaml:"auth"`
	Purchases bool       `json:"purchases" yaml:"purchases"`
	AdNetwork string     `json:"ad_network" yaml:"ad_network"`
}

func Summarize(c Capabilities) Summary {
	return Summary{
		Platform:  c.Name(),
		Camera:    c.Camera(),
		Auth:      c.Auth(),
		Purchases: c.Purchases(),
		AdNetwork: c.AdNetwork(),
	}
}
