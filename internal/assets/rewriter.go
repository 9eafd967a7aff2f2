package assets

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Rewriter applies all local-path substitutions back into the document tree.
// Rewriting is idempotent: a document that already contains only local paths
// comes out unchanged.
type Rewriter struct {
	base string
	reg  *Registry
}

func NewRewriter(base string, reg *Registry) *Rewriter {
	return &Rewriter{base: base, reg: reg}
}

// Rewrite mutates doc in place: merged and tracking nodes are removed,
// image and icon references are pointed at their local copies, srcset and
// inline style attributes are rebuilt with tracking entries stripped, single
// bundle tags are inserted for non-empty bundles, and remaining same-origin
// relative hyperlinks are absolutized so outbound navigation keeps working
// offline. Failed and not-fetchable references are left untouched, still
// pointing at their original remote URLs.
func (rw *Rewriter) Rewrite(doc *goquery.Document, res *ScanResult, b Bundles) {
	for _, n := range b.MergedNodes {
		removeNode(n)
	}
	for _, n := range res.Dropped {
		removeNode(n)
	}

	rw.rewriteSites(res.Sites)
	rw.rewriteInlineStyles(doc)
	rw.rewriteSrcsets(doc)
	rw.insertBundleTags(doc, b)
	rw.absolutizeLinks(doc)
}

func (rw *Rewriter) rewriteSites(sites []ReferenceSite) {
	for _, site := range sites {
		if site.Node == nil {
			continue
		}
		// srcset and style attributes hold several references each and are
		// rebuilt in their own whole-document passes.
		if site.Location != LocAttribute || site.Attr == "srcset" {
			continue
		}
		if site.Kind != KindImage && site.Kind != KindIcon {
			continue
		}
		a, ok := rw.reg.Lookup(site.Abs)
		if !ok || a.Status != StatusFetched {
			continue
		}
		setAttr(site.Node, site.Attr, a.LocalPath)
	}
}

// rewriteInlineStyles rebuilds every style attribute: fetched url() refs get
// their local paths, tracking refs are stripped.
func (rw *Rewriter) rewriteInlineStyles(doc *goquery.Document) {
	doc.Find("[style]").Each(func(_ int, sel *goquery.Selection) {
		v, _ := sel.Attr("style")
		if cleaned := rewriteStyleURLs(v, rw.base, rw.reg); cleaned != v {
			sel.SetAttr("style", cleaned)
		}
	})
}

// rewriteSrcsets rebuilds every srcset attribute in the document. An
// attribute with no candidates left is removed rather than left empty.
func (rw *Rewriter) rewriteSrcsets(doc *goquery.Document) {
	doc.Find("[srcset]").Each(func(_ int, sel *goquery.Selection) {
		v, _ := sel.Attr("srcset")
		cleaned := rw.rewriteSrcset(v)
		if cleaned == "" {
			sel.RemoveAttr("srcset")
			return
		}
		if cleaned != v {
			sel.SetAttr("srcset", cleaned)
		}
	})
}

// rewriteSrcset replaces each fetched candidate URL with its local path,
// preserving descriptors. Failed candidates keep their remote URLs; tracking
// candidates are dropped from the list entirely.
func (rw *Rewriter) rewriteSrcset(srcset string) string {
	var entries []string
	for _, cand := range parseSrcset(srcset) {
		target := cand.url
		if abs, ok := Resolve(cand.url, rw.base); ok {
			if IsTrackingHost(abs) {
				continue
			}
			if a, found := rw.reg.Lookup(abs); found && a.Status == StatusFetched {
				target = a.LocalPath
			}
		}
		if cand.descriptor != "" {
			entries = append(entries, target+" "+cand.descriptor)
		} else {
			entries = append(entries, target)
		}
	}
	return strings.Join(entries, ", ")
}

// insertBundleTags adds one stylesheet link and one script tag, only when the
// corresponding bundle is non-empty and no tag is present yet.
func (rw *Rewriter) insertBundleTags(doc *goquery.Document, b Bundles) {
	if b.Style != "" && doc.Find(`link[href="`+StyleBundleName+`"]`).Length() == 0 {
		head := doc.Find("head").First()
		if head.Length() > 0 {
			head.AppendHtml(`<link rel="stylesheet" href="` + StyleBundleName + `">`)
		}
	}
	if b.Script != "" && doc.Find(`script[src="`+ScriptBundleName+`"]`).Length() == 0 {
		body := doc.Find("body").First()
		if body.Length() > 0 {
			body.AppendHtml(`<script src="` + ScriptBundleName + `"></script>`)
		}
	}
}

// absolutizeLinks resolves relative navigation hrefs against the page base so
// the offline artifact's outbound links still reach the live site. Anchors,
// non-HTTP schemes, and already absolute links are untouched, as are local
// bundle and media paths written by this rewriter.
func (rw *Rewriter) absolutizeLinks(doc *goquery.Document) {
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		trimmed := strings.TrimSpace(href)
		if trimmed == "" || strings.Contains(trimmed, "://") || strings.HasPrefix(trimmed, "//") {
			return
		}
		abs, ok := Resolve(trimmed, rw.base)
		if !ok || !sameOrigin(abs, rw.base) {
			return
		}
		sel.SetAttr("href", abs)
	})
}

func removeNode(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}
