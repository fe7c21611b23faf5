package helpers

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// NormalizeSpace collapses runs of whitespace into single spaces and trims the result.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Truncate cuts s to at most max runes without splitting a multi-byte character.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max]))
}

// trackingParams do not change which listing a URL points at. variant picks an option of the same product.
var trackingParams = map[string]bool{"variant": true, "fbclid": true, "gclid": true, "ref": true}

// ResolveURL resolves href against base into a canonical form: lower-case host,
// no fragment, no utm_* or other tracking parameters. Returns "" when href is
// empty, a javascript: link, or unparsable.
func ResolveURL(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	abs := b.ResolveReference(ref)
	abs.Fragment = ""
	abs.Host = strings.ToLower(abs.Host)
	if abs.RawQuery != "" {
		q := abs.Query()
		stripped := false
		for key := range q {
			if trackingParams[strings.ToLower(key)] || strings.HasPrefix(strings.ToLower(key), "utm_") {
				q.Del(key)
				stripped = true
			}
		}
		if stripped {
			abs.RawQuery = q.Encode()
		}
	}
	return abs.String()
}

// SplitList splits a comma separated value, trimming blanks and dropping empty items.
func SplitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
