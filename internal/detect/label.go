package detect

import "github.com/harrylevesque/txt2qr/internal/models"

// Label is the icon and accent color a client shows next to a history entry.
type Label struct {
	Icon  string `json:"icon" yaml:"icon"`
	Color string `json:"color" yaml:"color"`
}

var labels = map[models.ContentType]Label{
	models.TypeURL:     {Icon: "link", Color: "#007AFF"},
	models.TypeEmail:   {Icon: "mail", Color: "#FF9500"},
	models.TypePhone:   {Icon: "call", Color: "#34C759"},
	models.TypeSMS:     {Icon: "chatbubble", Color: "#5856D6"},
	models.TypeWiFi:    {Icon: "wifi", Color: "#FF2D55"},
	models.TypeContact: {Icon: "person", Color: "#AF52DE"},
}

// Describe returns the display label for typ.
func Describe(typ models.ContentType) Label {
	if l, ok := labels[typ]; ok {
		return l
	}
	return Label{Icon: "document-text", Color: "#8E8E93"}
}
