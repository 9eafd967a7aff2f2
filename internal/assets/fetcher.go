package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/semaphore"
)

const (
	// defaultUserAgent identifies fetches as a regular browser; some origins
	// reject unidentified clients.
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	defaultConcurrency = 16
	defaultTimeout     = 30 * time.Second

	// maxAssetSize caps a single download at 50 MB.
	maxAssetSize = 50 * 1024 * 1024
)

// FetchStats summarizes one FetchAll pass so callers and tests can assert on
// outcomes instead of scraping log output.
type FetchStats struct {
	Attempted int
	Fetched   int
	Failed    int
}

// Add combines the stats of two fetch passes.
func (s FetchStats) Add(o FetchStats) FetchStats {
	return FetchStats{
		Attempted: s.Attempted + o.Attempted,
		Fetched:   s.Fetched + o.Fetched,
		Failed:    s.Failed + o.Failed,
	}
}

// Fetcher downloads the deduplicated set of assets for one clone run. It
// issues at most one request per distinct absolute URL, caps in-flight
// fetches with a weighted semaphore, and records every outcome in the
// Registry. A failed fetch is terminal for that asset and never aborts the
// run.
type Fetcher struct {
	reg         *Registry
	client      *http.Client
	outDir      string
	userAgent   string
	timeout     time.Duration
	concurrency int64
}

// FetcherOption adjusts Fetcher defaults.
type FetcherOption func(*Fetcher)

func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

func WithTimeout(d time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

func WithConcurrency(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.concurrency = int64(n)
		}
	}
}

// NewFetcher creates a Fetcher writing media files under outDir.
func NewFetcher(reg *Registry, outDir string, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		reg:         reg,
		client:      &http.Client{},
		outDir:      outDir,
		userAgent:   defaultUserAgent,
		timeout:     defaultTimeout,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchAll registers every site's URL and fetches each newly registered
// asset concurrently. It returns once all fetches have settled, so the
// Consolidator and Rewriter always see terminal statuses. Each fetch carries
// its own timeout; one stuck asset cannot stall the others.
func (f *Fetcher) FetchAll(ctx context.Context, sites []ReferenceSite) FetchStats {
	sem := semaphore.NewWeighted(f.concurrency)
	var fresh []*ResolvedAsset

	// Registration is the single-writer step that makes check-then-fetch
	// atomic: the first site for a URL claims the asset, later sites see it
	// already registered and issue nothing.
	for _, site := range sites {
		asset, first := f.reg.register(site.Abs, site.Kind)
		if !first {
			continue
		}
		fresh = append(fresh, asset)
	}

	done := make(chan struct{}, len(fresh))
	for _, asset := range fresh {
		go func(a *ResolvedAsset) {
			defer func() { done <- struct{}{} }()
			if err := sem.Acquire(ctx, 1); err != nil {
				f.fail(a, err)
				return
			}
			defer sem.Release(1)
			f.fetchOne(ctx, a)
		}(asset)
	}
	for range fresh {
		<-done
	}

	stats := FetchStats{Attempted: len(fresh)}
	for _, a := range fresh {
		if a.Status == StatusFetched {
			stats.Fetched++
		} else {
			stats.Failed++
		}
	}
	return stats
}

// fetchOne performs the single attempt for one asset. Any failure marks the
// asset failed and is logged; nothing escalates to the caller.
func (f *Fetcher) fetchOne(ctx context.Context, a *ResolvedAsset) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL, nil)
	if err != nil {
		f.fail(a, err)
		return
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		f.fail(a, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.fail(a, fmt.Errorf("status %d", resp.StatusCode))
		return
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAssetSize))
	if err != nil {
		f.fail(a, err)
		return
	}

	switch a.Kind {
	case KindStylesheet, KindScript:
		// Text assets feed the Consolidator; only the merged bundle is
		// persisted.
		a.body = data
	default:
		// Media bytes hit disk before the asset is marked fetched, so a
		// fetched status always means the local file exists.
		target := filepath.Join(f.outDir, filepath.FromSlash(a.LocalPath))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			f.fail(a, err)
			return
		}
		if err := os.WriteFile(target, data, 0644); err != nil {
			f.fail(a, err)
			return
		}
	}

	a.Size = int64(len(data))
	a.Status = StatusFetched
	log.Debug("fetched asset", "url", a.URL, "path", a.LocalPath, "bytes", a.Size)
}

func (f *Fetcher) fail(a *ResolvedAsset, err error) {
	a.Status = StatusFailed
	log.Warn("asset fetch failed", "url", a.URL, "kind", a.Kind.String(), "error", err)
}
