// Package assets implements the asset resolution, deduplication, and
// consolidation pipeline: it discovers every stylesheet, script, image, and
// icon reference in a captured page, fetches each distinct URL exactly once,
// merges style and script sources into single bundles, and rewrites the
// document so all references resolve locally.
package assets

import (
	"sync"

	"golang.org/x/net/html"
)

// Kind classifies what an asset reference points at.
type Kind int

const (
	KindStylesheet Kind = iota
	KindScript
	KindImage
	KindIcon
)

func (k Kind) String() string {
	switch k {
	case KindStylesheet:
		return "stylesheet"
	case KindScript:
		return "script"
	case KindImage:
		return "image"
	case KindIcon:
		return "icon"
	}
	return "unknown"
}

// defaultName is used when a URL path yields no usable basename.
func (k Kind) defaultName() string {
	switch k {
	case KindStylesheet:
		return "stylesheet"
	case KindScript:
		return "script"
	default:
		return "asset"
	}
}

// defaultExt is appended when the derived filename carries no extension.
func (k Kind) defaultExt() string {
	switch k {
	case KindStylesheet:
		return ".css"
	case KindScript:
		return ".js"
	default:
		return ".png"
	}
}

// Location says where in the document a reference was found.
type Location int

const (
	// LocAttribute is a plain element attribute: src, href, srcset.
	LocAttribute Location = iota
	// LocInlineStyle is a url() inside an element's style attribute.
	LocInlineStyle
	// LocStyleRule is a url() inside a <style> block or a fetched stylesheet.
	LocStyleRule
)

// ReferenceSite is one located occurrence of a fetchable reference. Sites are
// produced by the Scanner in document order and consumed by the Fetcher and
// the Rewriter.
type ReferenceSite struct {
	Location Location
	Node     *html.Node // owner element; nil for sites inside fetched stylesheets
	Attr     string     // owner attribute name for LocAttribute/LocInlineStyle
	Raw      string     // the reference string exactly as it appears
	Abs      string     // resolved absolute URL (dedup key)
	Kind     Kind
}

// FetchStatus tracks the lifecycle of a ResolvedAsset. Failed and Fetched are
// terminal; an asset is never retried.
type FetchStatus int

const (
	StatusPending FetchStatus = iota
	StatusFetched
	StatusFailed
)

// ResolvedAsset is the deduplicated record for one distinct absolute URL.
// It is created by the Registry when the Fetcher first sights the URL and is
// owned by exactly one fetch goroutine until it reaches a terminal status;
// the Consolidator and Rewriter read it only after all fetches have settled.
type ResolvedAsset struct {
	URL       string
	Kind      Kind
	LocalPath string
	Status    FetchStatus
	Size      int64

	// body holds stylesheet and script content for the Consolidator. Image
	// and icon bytes go straight to disk instead.
	body []byte
}

// Body returns the fetched text content for stylesheet and script assets.
func (a *ResolvedAsset) Body() []byte { return a.body }

// Registry is the per-clone-run shared state: the URL to asset mapping and
// the set of claimed local filenames. One Registry exists per clone, so
// parallel clone runs never share dedup state.
type Registry struct {
	mu     sync.Mutex
	assets map[string]*ResolvedAsset
	order  []string
	names  map[string]bool
}

func NewRegistry() *Registry {
	return &Registry{
		assets: make(map[string]*ResolvedAsset),
		names:  make(map[string]bool),
	}
}

// register claims absURL and returns its asset. The second result is false
// when the URL was already registered, in which case the caller must not
// fetch it again. Registration assigns the local filename, so naming is
// deterministic in first-seen order.
func (r *Registry) register(absURL string, kind Kind) (*ResolvedAsset, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.assets[absURL]; ok {
		return a, false
	}
	a := &ResolvedAsset{
		URL:       absURL,
		Kind:      kind,
		LocalPath: r.claimName(absURL, kind),
		Status:    StatusPending,
	}
	r.assets[absURL] = a
	r.order = append(r.order, absURL)
	return a, true
}

// Lookup returns the asset registered for absURL, if any.
func (r *Registry) Lookup(absURL string) (*ResolvedAsset, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.assets[absURL]
	return a, ok
}

// Assets returns all registered assets in first-seen order.
func (r *Registry) Assets() []*ResolvedAsset {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*ResolvedAsset, 0, len(r.order))
	for _, u := range r.order {
		out = append(out, r.assets[u])
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.assets)
}
