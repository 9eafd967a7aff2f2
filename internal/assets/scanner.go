package assets

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// cssURLPattern matches url(...) occurrences in style text, with or without
// quotes around the reference.
var cssURLPattern = regexp.MustCompile(`url\(\s*['"]?([^'")]+?)['"]?\s*\)`)

// BundleSource is one ordered input to a style or script bundle: either an
// inline body carried verbatim, or a reference to a fetched asset whose bytes
// the Consolidator pulls from the Registry.
type BundleSource struct {
	Inline string     // verbatim text when URL is empty
	URL    string     // resolved absolute URL otherwise
	Base   string     // base for resolving url() refs inside the text
	Node   *html.Node // owner node, removed from the tree once merged
}

// ScanResult is the ordered output of one document scan.
type ScanResult struct {
	Sites   []ReferenceSite
	Styles  []BundleSource
	Scripts []BundleSource
	Dropped []*html.Node // tracking nodes, removed from the output unconditionally
}

// Scanner walks a parsed document and produces the ordered list of reference
// sites plus the bundle source lists. It never mutates the tree; removals and
// rewrites happen later, once fetch outcomes are known.
type Scanner struct {
	base string
}

func NewScanner(base string) *Scanner {
	return &Scanner{base: base}
}

// Scan discovers every asset reference in the document, in document order.
// Tracking references are dropped here: they produce no site and their nodes
// are queued for removal.
func (s *Scanner) Scan(doc *goquery.Document) *ScanResult {
	res := &ScanResult{}

	doc.Find("link[href], style, script, img, [style]").Each(func(_ int, sel *goquery.Selection) {
		node := sel.Get(0)

		if styleAttr, ok := sel.Attr("style"); ok && styleAttr != "" {
			for _, site := range s.scanStyleFragment(styleAttr, s.base, node, LocInlineStyle, "style") {
				res.Sites = append(res.Sites, site)
			}
		}

		switch node.Data {
		case "link":
			s.scanLink(sel, node, res)
		case "style":
			s.scanStyleBlock(sel, node, res)
		case "script":
			s.scanScript(sel, node, res)
		case "img":
			s.scanImage(sel, node, res)
		}
	})

	return res
}

func (s *Scanner) scanLink(sel *goquery.Selection, node *html.Node, res *ScanResult) {
	href, _ := sel.Attr("href")
	rel, _ := sel.Attr("rel")
	rel = strings.ToLower(strings.TrimSpace(rel))

	switch {
	case strings.Contains(rel, "stylesheet"):
		abs, ok := Resolve(href, s.base)
		if !ok {
			return
		}
		if IsTrackingHost(abs) {
			res.Dropped = append(res.Dropped, node)
			return
		}
		res.Sites = append(res.Sites, ReferenceSite{
			Location: LocAttribute, Node: node, Attr: "href",
			Raw: href, Abs: abs, Kind: KindStylesheet,
		})
		res.Styles = append(res.Styles, BundleSource{URL: abs, Base: abs, Node: node})

	case rel == "icon" || rel == "shortcut icon" || rel == "apple-touch-icon" || rel == "mask-icon":
		abs, ok := Resolve(href, s.base)
		if !ok {
			return
		}
		if IsTrackingHost(abs) {
			res.Dropped = append(res.Dropped, node)
			return
		}
		res.Sites = append(res.Sites, ReferenceSite{
			Location: LocAttribute, Node: node, Attr: "href",
			Raw: href, Abs: abs, Kind: KindIcon,
		})
	}
}

// scanStyleBlock treats a <style> body as stylesheet text: its url() refs
// become sites and its content becomes a bundle source. The node itself is
// removed later; only the content survives, merged into the style bundle.
func (s *Scanner) scanStyleBlock(sel *goquery.Selection, node *html.Node, res *ScanResult) {
	text := sel.Text()
	if strings.TrimSpace(text) == "" {
		res.Dropped = append(res.Dropped, node)
		return
	}
	res.Sites = append(res.Sites, s.scanStyleFragment(text, s.base, node, LocStyleRule, "")...)
	res.Styles = append(res.Styles, BundleSource{Inline: text, Base: s.base, Node: node})
}

func (s *Scanner) scanScript(sel *goquery.Selection, node *html.Node, res *ScanResult) {
	if src, ok := sel.Attr("src"); ok && src != "" {
		abs, ok := Resolve(src, s.base)
		if !ok {
			return
		}
		if IsTrackingHost(abs) {
			res.Dropped = append(res.Dropped, node)
			return
		}
		res.Sites = append(res.Sites, ReferenceSite{
			Location: LocAttribute, Node: node, Attr: "src",
			Raw: src, Abs: abs, Kind: KindScript,
		})
		res.Scripts = append(res.Scripts, BundleSource{URL: abs, Base: abs, Node: node})
		return
	}

	body := sel.Text()
	if strings.TrimSpace(body) == "" {
		return
	}
	if IsTrackingContent(body) {
		res.Dropped = append(res.Dropped, node)
		return
	}
	if typ, ok := sel.Attr("type"); ok {
		// Leave non-executable script bodies (JSON-LD and friends) in place.
		t := strings.ToLower(typ)
		if t != "" && t != "text/javascript" && t != "application/javascript" && t != "module" {
			return
		}
	}
	res.Scripts = append(res.Scripts, BundleSource{Inline: body, Node: node})
}

func (s *Scanner) scanImage(sel *goquery.Selection, node *html.Node, res *ScanResult) {
	if src, ok := sel.Attr("src"); ok && src != "" {
		if abs, ok := Resolve(src, s.base); ok {
			// A tracking pixel is removed whole, never left pointing at the
			// tracker.
			if IsTrackingHost(abs) {
				res.Dropped = append(res.Dropped, node)
				return
			}
			res.Sites = append(res.Sites, ReferenceSite{
				Location: LocAttribute, Node: node, Attr: "src",
				Raw: src, Abs: abs, Kind: KindImage,
			})
		}
	}

	// Every candidate URL in a srcset list is its own reference site sharing
	// the same owner attribute.
	if srcset, ok := sel.Attr("srcset"); ok && srcset != "" {
		for _, cand := range parseSrcset(srcset) {
			if abs, ok := Resolve(cand.url, s.base); ok && !IsTrackingHost(abs) {
				res.Sites = append(res.Sites, ReferenceSite{
					Location: LocAttribute, Node: node, Attr: "srcset",
					Raw: cand.url, Abs: abs, Kind: KindImage,
				})
			}
		}
	}
}

// ScanStyleText extracts reference sites from stylesheet text fetched from
// base. Used for the second discovery pass over downloaded stylesheet bodies,
// so background images and fonts nested inside them are also localized.
func (s *Scanner) ScanStyleText(text, base string) []ReferenceSite {
	return s.scanStyleFragment(text, base, nil, LocStyleRule, "")
}

func (s *Scanner) scanStyleFragment(text, base string, node *html.Node, loc Location, attr string) []ReferenceSite {
	var sites []ReferenceSite
	for _, m := range cssURLPattern.FindAllStringSubmatch(text, -1) {
		raw := strings.TrimSpace(m[1])
		abs, ok := Resolve(raw, base)
		if !ok || IsTrackingHost(abs) {
			continue
		}
		sites = append(sites, ReferenceSite{
			Location: loc, Node: node, Attr: attr,
			Raw: raw, Abs: abs, Kind: KindImage,
		})
	}
	return sites
}

type srcsetCandidate struct {
	url        string
	descriptor string
}

// parseSrcset splits a srcset value into its "URL descriptor" candidates.
func parseSrcset(srcset string) []srcsetCandidate {
	var out []srcsetCandidate
	for _, entry := range strings.Split(srcset, ",") {
		fields := strings.Fields(strings.TrimSpace(entry))
		if len(fields) == 0 {
			continue
		}
		c := srcsetCandidate{url: fields[0]}
		if len(fields) > 1 {
			c.descriptor = strings.Join(fields[1:], " ")
		}
		out = append(out, c)
	}
	return out
}
