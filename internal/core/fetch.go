package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// ErrFileTooLarge is returned when a response body exceeds the size cap.
var ErrFileTooLarge = errors.New("file too large")

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Status     string
}

// Error returns the status text ("Not Found"), like a browser's
// Response.statusText.
func (e *StatusError) Error() string {
	if text := http.StatusText(e.StatusCode); text != "" {
		return text
	}
	return e.Status
}

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	Timeout           time.Duration
	MaxBytes          int64
	UserAgent         string
	RequestsPerSecond float64
	Burst             int
	CacheTTL          time.Duration

	// LocalBaseURL is where the run artifact endpoint is served.
	LocalBaseURL string
	// APIKey is sent as X-API-Key to the artifact endpoint when set.
	APIKey string
}

// Fetcher performs the card's HTTP GETs.
//
// Requests are rate limited per host. Successful remote bodies are cached
// for CacheTTL; artifact endpoint responses are never cached because the
// run may still be writing them.
type Fetcher struct {
	client *http.Client
	opts   FetcherOptions
	cache  *gocache.Cache

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewFetcher creates a Fetcher, filling unset options with defaults.
func NewFetcher(opts FetcherOptions) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 32 << 20
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "csvcard/1.0"
	}
	if opts.Burst <= 0 {
		opts.Burst = 5
	}

	var cache *gocache.Cache
	if opts.CacheTTL > 0 {
		cache = gocache.New(opts.CacheTTL, 2*opts.CacheTTL)
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("stopped after 5 redirects")
				}
				return nil
			},
		},
		opts:     opts,
		cache:    cache,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Remote fetches a remote artifact URI, serving repeat reads from cache.
func (f *Fetcher) Remote(ctx context.Context, uri string) ([]byte, error) {
	if f.cache != nil {
		if v, ok := f.cache.Get(uri); ok {
			return v.([]byte), nil
		}
	}

	body, err := f.get(ctx, uri, nil)
	if err != nil {
		return nil, err
	}

	if f.cache != nil {
		f.cache.SetDefault(uri, body)
	}
	return body, nil
}

// Local fetches an artifact through the run's artifact endpoint.
func (f *Fetcher) Local(ctx context.Context, runID, name string) ([]byte, error) {
	endpoint := strings.TrimRight(f.opts.LocalBaseURL, "/") + ArtifactEndpoint(runID, name)

	var header http.Header
	if f.opts.APIKey != "" {
		header = http.Header{"X-API-Key": []string{f.opts.APIKey}}
	}
	return f.get(ctx, endpoint, header)
}

func (f *Fetcher) get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}

	if f.opts.RequestsPerSecond > 0 {
		if err := f.limiter(u.Host).Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/csv,text/plain;q=0.9,*/*;q=0.8")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > f.opts.MaxBytes {
		return nil, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, f.opts.MaxBytes)
	}
	return body, nil
}

// limiter returns the token bucket for host, creating it on first use.
func (f *Fetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, ok := f.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(f.opts.RequestsPerSecond), f.opts.Burst)
		f.limiters[host] = l
	}
	return l
}
