// Package clone orchestrates one clone run: capture the rendered page, walk
// it for asset references, fetch everything once, consolidate styles and
// scripts into bundles, rewrite the document against the local copies, and
// lay the result out as an offline-servable directory.
package clone

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/charmbracelet/log"
	"golang.org/x/net/html"

	"github.com/go-scripts/webclone/internal/ai"
	"github.com/go-scripts/webclone/internal/assets"
	"github.com/go-scripts/webclone/internal/capture"
	"github.com/go-scripts/webclone/internal/config"
	"github.com/go-scripts/webclone/internal/writer"
)

// Options bundle everything a clone run needs.
type Options struct {
	URL      string
	Config   *config.Config
	Rewriter *ai.Rewriter // optional; nil disables the AI rewrite
}

// Result reports the outcome of a clone. A run with some failed assets is
// still a success; the counts let callers and tests assert on outcomes.
type Result struct {
	OutputDir string
	Title     string

	AssetsAttempted int
	AssetsFetched   int
	AssetsFailed    int

	StyleBundled  bool
	ScriptBundled bool
	AIRewritten   bool
}

// Run captures the page and processes it. A capture failure is the one hard
// failure of the pipeline: without markup there is nothing to clone.
func Run(ctx context.Context, opts Options) (*Result, error) {
	cfg := opts.Config
	page, err := capture.Render(ctx, opts.URL, capture.Options{
		Timeout:   cfg.RenderTimeout.Std(),
		WaitTime:  cfg.RenderWait.Std(),
		UserAgent: cfg.UserAgent,
	})
	if err != nil {
		return nil, fmt.Errorf("page capture failed: %w", err)
	}
	return Process(ctx, page, opts)
}

// Process runs the asset pipeline over an already captured page. Split from
// Run so the pipeline can be exercised without a browser.
func Process(ctx context.Context, page *capture.Page, opts Options) (*Result, error) {
	cfg := opts.Config

	out, err := writer.New(cfg.OutputDir)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return nil, fmt.Errorf("failed to parse captured markup: %w", err)
	}

	base := page.Meta.BaseURL
	reg := assets.NewRegistry()
	scanner := assets.NewScanner(base)
	scan := scanner.Scan(doc)
	log.Info("scanned document", "url", base, "references", len(scan.Sites))

	fetcher := assets.NewFetcher(reg, out.Dir(),
		assets.WithConcurrency(cfg.Concurrency),
		assets.WithTimeout(cfg.FetchTimeout.Std()),
		assets.WithUserAgent(cfg.UserAgent),
	)

	// First pass fetches everything the document references directly; the
	// second pass picks up background images and fonts nested inside the
	// stylesheets that just arrived. Both passes settle fully before any
	// bundle is built.
	stats := fetcher.FetchAll(ctx, scan.Sites)
	var nested []assets.ReferenceSite
	for _, a := range reg.Assets() {
		if a.Kind == assets.KindStylesheet && a.Status == assets.StatusFetched {
			nested = append(nested, scanner.ScanStyleText(string(a.Body()), a.URL)...)
		}
	}
	if len(nested) > 0 {
		stats = stats.Add(fetcher.FetchAll(ctx, nested))
	}
	log.Info("fetched assets",
		"attempted", stats.Attempted, "fetched", stats.Fetched, "failed", stats.Failed)

	bundles := assets.Consolidate(scan, reg)
	assets.NewRewriter(base, reg).Rewrite(doc, scan, bundles)

	result := &Result{
		OutputDir:       out.Dir(),
		Title:           page.Meta.Title,
		AssetsAttempted: stats.Attempted,
		AssetsFetched:   stats.Fetched,
		AssetsFailed:    stats.Failed,
		StyleBundled:    bundles.Style != "",
		ScriptBundled:   bundles.Script != "",
	}

	finalDoc := doc

	// The AI rewrite always works from the ORIGINAL markup; it knows nothing
	// about local paths, so the mapping built above is re-applied to its
	// output. On any failure the locally rewritten original stands.
	if opts.Rewriter != nil {
		rewritten, err := opts.Rewriter.Rewrite(page.HTML)
		if err != nil {
			log.Warn("ai rewrite failed, keeping original document", "error", err)
		} else if aiDoc, err := goquery.NewDocumentFromReader(strings.NewReader(rewritten)); err != nil {
			log.Warn("ai rewrite produced unparseable markup, keeping original document", "error", err)
		} else {
			reapplyMapping(aiDoc, scanner, reg, bundles, base)
			finalDoc = aiDoc
			result.AIRewritten = true
		}
	}

	markup, err := renderDocument(finalDoc)
	if err != nil {
		return nil, fmt.Errorf("failed to render final document: %w", err)
	}

	if err := out.WriteDocument(markup); err != nil {
		return nil, err
	}
	if err := out.WriteBundle(assets.StyleBundleName, bundles.Style); err != nil {
		return nil, err
	}
	if err := out.WriteBundle(assets.ScriptBundleName, bundles.Script); err != nil {
		return nil, err
	}
	if err := out.WriteServeScripts(); err != nil {
		return nil, err
	}

	return result, nil
}

// reapplyMapping localizes an AI-rewritten document against the mapping
// built from the original markup. No new fetches happen here: style and
// script sources already merged into the bundles have their nodes removed,
// media references are pointed at the existing local copies, and the bundle
// tags are inserted fresh.
func reapplyMapping(doc *goquery.Document, scanner *assets.Scanner, reg *assets.Registry, bundles assets.Bundles, base string) {
	scan := scanner.Scan(doc)

	applied := assets.Bundles{Style: bundles.Style, Script: bundles.Script}
	for _, src := range scan.Styles {
		if mergedSource(src, reg) {
			applied.MergedNodes = append(applied.MergedNodes, src.Node)
		}
	}
	for _, src := range scan.Scripts {
		if mergedSource(src, reg) {
			applied.MergedNodes = append(applied.MergedNodes, src.Node)
		}
	}

	assets.NewRewriter(base, reg).Rewrite(doc, scan, applied)
}

// mergedSource reports whether a bundle source of the rewritten document is
// already represented in the bundles built from the original: inline bodies
// always are, asset-backed sources only when the asset was fetched.
func mergedSource(src assets.BundleSource, reg *assets.Registry) bool {
	if src.Node == nil {
		return false
	}
	if src.URL == "" {
		return true
	}
	a, ok := reg.Lookup(src.URL)
	return ok && a.Status == assets.StatusFetched
}

func renderDocument(doc *goquery.Document) (string, error) {
	var buf bytes.Buffer
	for _, n := range doc.Nodes {
		if err := html.Render(&buf, n); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}
