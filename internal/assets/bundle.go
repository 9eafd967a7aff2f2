package assets

import (
	"strings"

	"golang.org/x/net/html"
)

// Bundle output filenames, referenced by the rewriter and the writer.
const (
	StyleBundleName  = "style.css"
	ScriptBundleName = "script.js"
)

// Bundles holds the consolidated style and script text for one clone run,
// plus the source nodes whose content made it into a bundle. Merged nodes
// are removed from the document; a source that failed to fetch keeps its
// node so the remote reference survives as a fallback.
type Bundles struct {
	Style  string
	Script string

	MergedNodes []*html.Node
}

// Consolidate builds the style and script bundles in scan order. Inline
// bodies are carried verbatim; fetched stylesheet and script assets
// contribute their downloaded bytes. Every url() reference inside style text
// that matches a fetched asset is substituted with its local path, so assets
// nested inside downloaded stylesheets are localized too. A URL merged once
// is never merged again, but every reference node pointing at it is still
// marked merged so no duplicate tags survive.
func Consolidate(res *ScanResult, reg *Registry) Bundles {
	var b Bundles
	merged := make(map[string]bool)

	var style []string
	for _, src := range res.Styles {
		if src.URL == "" {
			style = append(style, rewriteStyleURLs(src.Inline, src.Base, reg))
			if src.Node != nil {
				b.MergedNodes = append(b.MergedNodes, src.Node)
			}
			continue
		}
		a, ok := reg.Lookup(src.URL)
		if !ok || a.Status != StatusFetched {
			continue
		}
		if !merged[src.URL] {
			merged[src.URL] = true
			style = append(style, rewriteStyleURLs(string(a.Body()), src.Base, reg))
		}
		if src.Node != nil {
			b.MergedNodes = append(b.MergedNodes, src.Node)
		}
	}

	var script []string
	for _, src := range res.Scripts {
		if src.URL == "" {
			script = append(script, src.Inline)
			if src.Node != nil {
				b.MergedNodes = append(b.MergedNodes, src.Node)
			}
			continue
		}
		a, ok := reg.Lookup(src.URL)
		if !ok || a.Status != StatusFetched {
			continue
		}
		if !merged[src.URL] {
			merged[src.URL] = true
			script = append(script, string(a.Body()))
		}
		if src.Node != nil {
			b.MergedNodes = append(b.MergedNodes, src.Node)
		}
	}

	b.Style = joinFragments(style)
	b.Script = joinFragments(script, ";")
	return b
}

// rewriteStyleURLs substitutes every url() reference that resolves to a
// fetched asset with that asset's local path. References whose asset failed
// or was never fetched are left untouched as a remote fallback; tracking
// references are replaced with none so the tracker URL never survives.
func rewriteStyleURLs(text, base string, reg *Registry) string {
	return cssURLPattern.ReplaceAllStringFunc(text, func(match string) string {
		parts := cssURLPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		abs, ok := Resolve(strings.TrimSpace(parts[1]), base)
		if !ok {
			return match
		}
		if IsTrackingHost(abs) {
			return "none"
		}
		a, ok := reg.Lookup(abs)
		if !ok || a.Status != StatusFetched {
			return match
		}
		return "url(" + a.LocalPath + ")"
	})
}

// joinFragments concatenates bundle fragments, terminating each with sep (if
// given) so adjacent script sources cannot run together.
func joinFragments(fragments []string, sep ...string) string {
	if len(fragments) == 0 {
		return ""
	}
	terminator := ""
	if len(sep) > 0 {
		terminator = sep[0]
	}
	var b strings.Builder
	wrote := false
	for _, f := range fragments {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if wrote {
			b.WriteString("\n")
		}
		b.WriteString(f)
		if terminator != "" && !strings.HasSuffix(f, terminator) {
			b.WriteString(terminator)
		}
		wrote = true
	}
	return b.String()
}
