package category

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultMinDescriptionWords is the word count a description needs to be
// considered usable for analysis.
const DefaultMinDescriptionWords = 50

// NormalizeURL trims raw and prefixes https:// when no scheme is present.
func NormalizeURL(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	return s
}

// IsValidURL reports whether raw, after NormalizeURL, is an http(s) URL
// whose hostname contains a dot.
func IsValidURL(raw string) bool {
	s := NormalizeURL(raw)
	if s == "" || strings.ContainsAny(s, " \t\r\n") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return false
	}
	host := u.Hostname()
	if !strings.Contains(host, ".") {
		return false
	}
	for _, label := range strings.Split(host, ".") {
		if label == "" {
			return false
		}
	}
	return true
}

// WordCount counts whitespace-separated tokens.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// Fingerprint identifies the (name, country, url) input a website
// validation was run against. Values are NFC-normalized, trimmed and
// lowercased so cosmetic edits do not invalidate a stored result.
func Fingerprint(name, country, rawURL string) string {
	parts := []string{name, country, NormalizeURL(rawURL)}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.TrimSpace(norm.NFC.String(p)))
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:16])
}
