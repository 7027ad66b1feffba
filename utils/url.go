package utils

import (
	"net/url"
	"strings"
)

// SanitizeWebURL re-encodes a watch URL coming from an upstream catalog.
// Some providers return deep links with raw spaces or stray whitespace that
// break when handed to a client as-is. Returns "" for unparseable input so a
// broken link is dropped rather than surfaced.
func SanitizeWebURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}

	encoded := parsed.Scheme + "://" + parsed.Host + parsed.EscapedPath()
	if parsed.RawQuery != "" {
		encoded += "?" + strings.ReplaceAll(parsed.RawQuery, " ", "%20")
	}
	return encoded
}
