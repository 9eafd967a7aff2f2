package assets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// registerFetched puts an already-downloaded asset into the registry, the
// state FetchAll leaves behind for a successful fetch.
func registerFetched(reg *Registry, url string, kind Kind, body string) *ResolvedAsset {
	a, _ := reg.register(url, kind)
	a.body = []byte(body)
	a.Status = StatusFetched
	return a
}

func registerFailed(reg *Registry, url string, kind Kind) *ResolvedAsset {
	a, _ := reg.register(url, kind)
	a.Status = StatusFailed
	return a
}

func TestConsolidateStyleOrderAndNestedURLs(t *testing.T) {
	reg := NewRegistry()
	registerFetched(reg, "https://example.com/a.css", KindStylesheet,
		`body { background: url(/img/bg.png); }`)
	registerFetched(reg, "https://example.com/img/bg.png", KindImage, "png")

	res := &ScanResult{
		Styles: []BundleSource{
			{URL: "https://example.com/a.css", Base: "https://example.com/a.css"},
			{Inline: `.inline { color: red; }`, Base: "https://example.com/"},
		},
	}

	b := Consolidate(res, reg)

	// Linked stylesheet first, inline block second, matching document order.
	idx := func(s string) int { return indexOf(t, b.Style, s) }
	assert.Less(t, idx("url(images/bg.png)"), idx(".inline"))
	assert.NotContains(t, b.Style, "/img/bg.png")
	assert.Empty(t, b.Script)
}

func indexOf(t *testing.T, haystack, needle string) int {
	t.Helper()
	i := strings.Index(haystack, needle)
	require.GreaterOrEqual(t, i, 0, "%q not found in bundle", needle)
	return i
}

func TestConsolidateScriptTerminators(t *testing.T) {
	reg := NewRegistry()
	registerFetched(reg, "https://example.com/a.js", KindScript, "var a = 1")

	res := &ScanResult{
		Scripts: []BundleSource{
			{URL: "https://example.com/a.js"},
			{Inline: "var b = 2"},
		},
	}

	b := Consolidate(res, reg)
	assert.Equal(t, "var a = 1;\nvar b = 2;", b.Script)
}

func TestConsolidateMergesEachURLOnce(t *testing.T) {
	reg := NewRegistry()
	registerFetched(reg, "https://example.com/lib.js", KindScript, "lib()")

	res := &ScanResult{
		Scripts: []BundleSource{
			{URL: "https://example.com/lib.js"},
			{URL: "https://example.com/lib.js"},
		},
	}

	b := Consolidate(res, reg)
	assert.Equal(t, "lib();", b.Script)
}

func TestConsolidateSkipsFailedAssets(t *testing.T) {
	reg := NewRegistry()
	registerFailed(reg, "https://example.com/broken.css", KindStylesheet)
	registerFetched(reg, "https://example.com/good.css", KindStylesheet, ".ok{}")

	res := &ScanResult{
		Styles: []BundleSource{
			{URL: "https://example.com/broken.css", Base: "https://example.com/broken.css"},
			{URL: "https://example.com/good.css", Base: "https://example.com/good.css"},
		},
	}

	b := Consolidate(res, reg)
	assert.Equal(t, ".ok{}", b.Style)
	// Only the merged source's node disappears; the failed link must survive
	// in the document, so it is not in MergedNodes.
	assert.Len(t, b.MergedNodes, 0)
}

func TestRewriteStyleURLsLeavesUnfetchedAlone(t *testing.T) {
	reg := NewRegistry()
	registerFetched(reg, "https://example.com/ok.png", KindImage, "png")
	registerFailed(reg, "https://example.com/gone.png", KindImage)

	css := `a { background: url(/ok.png); } b { background: url(/gone.png); } c { background: url(data:image/gif;base64,AA); }`
	out := rewriteStyleURLs(css, "https://example.com/", reg)

	assert.Contains(t, out, "url(images/ok.png)")
	assert.Contains(t, out, "url(/gone.png)")
	assert.Contains(t, out, "url(data:image/gif;base64,AA)")
}

func TestRewriteStyleURLsStripsTracking(t *testing.T) {
	reg := NewRegistry()
	css := `a { background: url(https://www.google-analytics.com/px.gif); }`
	out := rewriteStyleURLs(css, "https://example.com/", reg)
	assert.Equal(t, `a { background: none; }`, out)
}

func TestJoinFragmentsSkipsBlankSources(t *testing.T) {
	assert.Equal(t, "var a = 1;", joinFragments([]string{"   ", "var a = 1"}, ";"))
	assert.Equal(t, ".a{}\n.b{}", joinFragments([]string{"", ".a{}", " ", ".b{}"}))
}

func TestConsolidateEmptyInput(t *testing.T) {
	b := Consolidate(&ScanResult{}, NewRegistry())
	assert.Empty(t, b.Style)
	assert.Empty(t, b.Script)
	assert.Empty(t, b.MergedNodes)
}
