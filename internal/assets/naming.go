package assets

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// mediaDir is where fetched image and icon files land. Stylesheets and
// scripts are never written individually, only as part of a bundle.
const mediaDir = "images"

// claimName derives a collision-free local path for absURL and records it in
// the claimed-name set. Callers hold r.mu. Names are assigned in first-seen
// order, so a given set of URLs always produces the same filenames; a
// collision between two distinct URLs gets a monotonic counter suffix, never
// a silent overwrite.
func (r *Registry) claimName(absURL string, kind Kind) string {
	name := baseFilename(absURL, kind)

	dir := ""
	if kind == KindImage || kind == KindIcon {
		dir = mediaDir + "/"
	}

	candidate := dir + name
	if !r.names[candidate] {
		r.names[candidate] = true
		return candidate
	}

	ext := path.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 2; ; i++ {
		candidate = fmt.Sprintf("%s%s_%d%s", dir, stem, i, ext)
		if !r.names[candidate] {
			r.names[candidate] = true
			return candidate
		}
	}
}

// baseFilename derives a sanitized filename from the URL path basename,
// falling back to a kind-appropriate default and appending a kind extension
// when the name has none.
func baseFilename(absURL string, kind Kind) string {
	name := ""
	if u, err := url.Parse(absURL); err == nil {
		name = path.Base(u.Path)
	}
	if name == "." || name == "/" {
		name = ""
	}
	name = sanitizeFilename(name)
	if name == "" {
		name = kind.defaultName()
	}
	if path.Ext(name) == "" {
		name += kind.defaultExt()
	}
	if len(name) > 100 {
		ext := path.Ext(name)
		name = name[:100-len(ext)] + ext
	}
	return name
}

// sanitizeFilename reduces a name to a safe character set.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "._")
}
