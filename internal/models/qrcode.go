package models

// ContentType tags how a QR payload should be interpreted.
type ContentType string

const (
	TypeText    ContentType = "text"
	TypeURL     ContentType = "url"
	TypeEmail   ContentType = "email"
	TypePhone   ContentType = "phone"
	TypeSMS     ContentType = "sms"
	TypeWiFi    ContentType = "wifi"
	TypeContact ContentType = "contact"
	TypeOther   ContentType = "other"
)

// ContentTypes lists every known type in display order.
var ContentTypes = []ContentType{
	TypeText, TypeURL, TypeEmail, TypePhone, TypeSMS, TypeWiFi, TypeContact, TypeOther,
}

// QRRecord is one saved history entry. Records are never edited after creation.
type QRRecord struct {
	ID        string      `json:"id" yaml:"id"`
	Text      string      `json:"text" yaml:"text"`
	Type      ContentType `json:"type" yaml:"type"`
	Timestamp int64       `json:"timestamp" yaml:"timestamp"` // epoch milliseconds
	SVG       string      `json:"svg,omitempty" yaml:"svg,omitempty"`
}
