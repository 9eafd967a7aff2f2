package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	base := "https://example.com/blog/post/"

	tests := []struct {
		name   string
		raw    string
		want   string
		wantOK bool
	}{
		{"absolute url", "https://cdn.example.com/app.js", "https://cdn.example.com/app.js", true},
		{"root relative", "/assets/main.css", "https://example.com/assets/main.css", true},
		{"document relative", "img/logo.png", "https://example.com/blog/post/img/logo.png", true},
		{"parent relative", "../shared.css", "https://example.com/blog/shared.css", true},
		{"protocol relative", "//cdn.example.com/lib.js", "https://cdn.example.com/lib.js", true},
		{"query string kept", "/a.css?v=2", "https://example.com/a.css?v=2", true},
		{"fragment stripped", "/page.png#top", "https://example.com/page.png", true},
		{"surrounding space", "  /a.css  ", "https://example.com/a.css", true},
		{"data uri", "data:image/png;base64,AAAA", "", false},
		{"javascript scheme", "javascript:void(0)", "", false},
		{"uppercase scheme", "DATA:image/png;base64,AAAA", "", false},
		{"bare fragment", "#section", "", false},
		{"mailto", "mailto:hi@example.com", "", false},
		{"tel", "tel:+15551234", "", false},
		{"blob", "blob:https://example.com/abc", "", false},
		{"about", "about:blank", "", false},
		{"empty", "", "", false},
		{"whitespace only", "   ", "", false},
		{"non-http scheme", "ftp://example.com/file", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Resolve(tt.raw, base)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveMalformedBase(t *testing.T) {
	_, ok := Resolve("/a.css", "://not a url")
	assert.False(t, ok)
}

func TestResolveRelativeWithoutHost(t *testing.T) {
	// A relative base cannot anchor a relative reference.
	_, ok := Resolve("a.css", "/just/a/path")
	assert.False(t, ok)
}

func TestSameOrigin(t *testing.T) {
	assert.True(t, sameOrigin("https://example.com/x", "https://example.com/"))
	assert.False(t, sameOrigin("https://other.com/x", "https://example.com/"))
	assert.False(t, sameOrigin("http://example.com/x", "https://example.com/"))
}
