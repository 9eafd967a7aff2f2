package assets

import (
	"net/url"
	"strings"
)

// Schemes and prefixes that can never be fetched. These references are left
// untouched wherever they appear.
var notFetchablePrefixes = []string{
	"data:",
	"javascript:",
	"#",
	"about:",
	"mailto:",
	"tel:",
	"sms:",
	"chrome:",
	"blob:",
}

// Resolve normalizes a raw reference string against a base URL into an
// absolute, fetchable URL. The second result is false when the reference is
// not fetchable: data URIs, fragments, javascript: links, non-HTTP schemes,
// or anything that fails to parse. A malformed reference is never an error;
// the pipeline must not abort on one bad attribute value.
func Resolve(raw, base string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	lower := strings.ToLower(raw)
	for _, p := range notFetchablePrefixes {
		if strings.HasPrefix(lower, p) {
			return "", false
		}
	}

	b, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	abs := b.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	if abs.Host == "" {
		return "", false
	}
	abs.Fragment = ""
	return abs.String(), true
}

// sameOrigin reports whether absURL shares scheme and host with base.
func sameOrigin(absURL, base string) bool {
	a, err := url.Parse(absURL)
	if err != nil {
		return false
	}
	b, err := url.Parse(base)
	if err != nil {
		return false
	}
	return a.Scheme == b.Scheme && a.Host == b.Host
}
