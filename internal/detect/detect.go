// Package detect classifies free-form text into QR content types and
// canonicalizes it for encoding.
package detect

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harrylevesque/txt2qr/internal/models"
)

// ErrUnknownType is returned by ParseContentType for names outside models.ContentTypes.
var ErrUnknownType = errors.New("unknown content type")

var (
	urlPattern   = regexp.MustCompile(`(?i)^(https?://)?([\da-z.-]+)\.([a-z.]{2,6})([/\w .-]*)*/?$`)
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[\d\s\-()]{10,}$`)
)

type rule struct {
	typ      models.ContentType
	prefixes []string
	pattern  *regexp.Regexp
}

// Order matters: the first matching rule wins.
var rules = []rule{
	{typ: models.TypeURL, prefixes: []string{"http://", "https://"}, pattern: urlPattern},
	{typ: models.TypeEmail, prefixes: []string{"mailto:"}, pattern: emailPattern},
	{typ: models.TypePhone, prefixes: []string{"tel:"}, pattern: phonePattern},
	{typ: models.TypeSMS, prefixes: []string{"sms:", "smsto:"}},
	{typ: models.TypeWiFi, prefixes: []string{"WIFI:"}},
	{typ: models.TypeContact, prefixes: []string{"BEGIN:VCARD"}},
}

func (r rule) match(text string) bool {
	for _, p := range r.prefixes {
		if hasPrefixFold(text, p) {
			return true
		}
	}
	return r.pattern != nil && r.pattern.MatchString(text)
}

// Classify returns the content type of text. It never fails; unmatched input is TypeText.
func Classify(text string) models.ContentType {
	for _, r := range rules {
		if r.match(text) {
			return r.typ
		}
	}
	return models.TypeText
}

// Format applies the canonical prefix for typ when it is not already present.
// Types without a prefix are returned unchanged.
func Format(text string, typ models.ContentType) string {
	switch typ {
	case models.TypeURL:
		if hasPrefixFold(text, "http://") || hasPrefixFold(text, "https://") {
			return text
		}
		return "https://" + text
	case models.TypeEmail:
		return ensurePrefix(text, "mailto:")
	case models.TypePhone:
		return ensurePrefix(text, "tel:")
	case models.TypeSMS:
		if hasPrefixFold(text, "smsto:") {
			return text
		}
		return ensurePrefix(text, "sms:")
	default:
		return text
	}
}

// GenerateID returns "<epoch-ms>_<12 hex chars>" using a random UUID for the suffix.
func GenerateID() string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "_" + suffix
}

// ParseContentType validates a type name coming from a request or flag.
func ParseContentType(s string) (models.ContentType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, t := range models.ContentTypes {
		if string(t) == name {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownType, s)
}

func ensurePrefix(text, prefix string) string {
	if hasPrefixFold(text, prefix) {
		return text
	}
	return prefix + text
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}
