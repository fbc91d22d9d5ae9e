package whatsapp

import (
	"regexp"
	"strings"
)

var (
	// Model output sometimes carries opaque citation markers in lenticular
	// brackets; WhatsApp users should never see them.
	bracketMarkers = regexp.MustCompile(`【.*?】`)

	// WhatsApp renders *bold* with single asterisks, not markdown's double.
	doubleAsterisks = regexp.MustCompile(`\*\*(.*?)\*\*`)
)

// Normalize rewrites model-generated markdown into WhatsApp formatting and
// strips citation markers.
func Normalize(text string) string {
	text = strings.TrimSpace(bracketMarkers.ReplaceAllString(text, ""))
	return doubleAsterisks.ReplaceAllString(text, "*$1*")
}
