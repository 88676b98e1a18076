package payment

import (
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`(?i)https?://\S+`)

// CanonicalRef reduces a user supplied transaction id to the string used for
// uniqueness: the first embedded http(s) URL when there is one (banks paste
// whole SMS texts whose only unique part is the receipt link), otherwise the
// trimmed input. No case or punctuation normalization is applied.
func CanonicalRef(raw string) string {
	if u := urlPattern.FindString(raw); u != "" {
		return u
	}
	return strings.TrimSpace(raw)
}
