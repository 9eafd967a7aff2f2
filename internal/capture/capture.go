// Package capture renders a page in a headless browser and hands the final
// DOM plus page metadata to the clone pipeline. A capture failure is fatal to
// the whole clone: with no markup there is nothing to process.
package capture

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/chromedp/chromedp"
)

// Metadata describes the captured page.
type Metadata struct {
	Title       string
	Description string
	Favicon     string
	Viewport    string
	BaseURL     string
}

// Page is the result of one capture: the fully rendered markup and the
// metadata the pipeline needs to resolve references against.
type Page struct {
	HTML string
	Meta Metadata
}

// Options control the headless render.
type Options struct {
	Timeout   time.Duration // whole-navigation deadline
	WaitTime  time.Duration // extra settle time after body is ready
	UserAgent string
}

const (
	defaultTimeout  = 60 * time.Second
	defaultWaitTime = 3 * time.Second
)

// Render navigates a headless browser to targetURL and returns the rendered
// document once the DOM has settled. Every error here surfaces to the
// caller; unlike asset fetches there is no recovery without a document.
func Render(ctx context.Context, targetURL string, opts Options) (*Page, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.WaitTime <= 0 {
		opts.WaitTime = defaultWaitTime
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	timeoutCtx, timeoutCancel := context.WithTimeout(browserCtx, opts.Timeout)
	defer timeoutCancel()

	var (
		pageHTML string
		title    string
		meta     metaProbe
	)

	tasks := []chromedp.Action{
		chromedp.EmulateViewport(1920, 1080),
		chromedp.Navigate(targetURL),
		chromedp.WaitReady("body"),
		chromedp.Sleep(opts.WaitTime),
		chromedp.Title(&title),
		chromedp.Evaluate(metaProbeJS, &meta),
		chromedp.OuterHTML("html", &pageHTML),
	}

	if err := chromedp.Run(timeoutCtx, tasks...); err != nil {
		return nil, fmt.Errorf("render %s: %w", targetURL, err)
	}
	if strings.TrimSpace(pageHTML) == "" {
		return nil, fmt.Errorf("render %s: empty document", targetURL)
	}

	baseURL := meta.Href
	if baseURL == "" {
		baseURL = targetURL
	}

	log.Debug("captured page", "url", targetURL, "final_url", baseURL, "bytes", len(pageHTML))

	return &Page{
		HTML: pageHTML,
		Meta: Metadata{
			Title:       title,
			Description: meta.Description,
			Favicon:     meta.Favicon,
			Viewport:    meta.Viewport,
			BaseURL:     baseURL,
		},
	}, nil
}

// metaProbe mirrors the object literal returned by metaProbeJS.
type metaProbe struct {
	Description string `json:"description"`
	Favicon     string `json:"favicon"`
	Viewport    string `json:"viewport"`
	Href        string `json:"href"`
}

const metaProbeJS = `
(() => {
	const content = (sel) => {
		const el = document.querySelector(sel);
		return el ? (el.getAttribute('content') || '') : '';
	};
	const favicon = document.querySelector('link[rel~="icon"]');
	return {
		description: content('meta[name="description"]'),
		favicon: favicon ? (favicon.getAttribute('href') || '') : '',
		viewport: content('meta[name="viewport"]'),
		href: window.location.href
	};
})()
`
