// Package fetch retrieves facility web pages. It keeps one rate limiter per
// host so a run touching many pages of the same town hall site stays polite,
// and classifies outcomes so the pipeline can distinguish a dead URL from a
// page that simply carries no opening hours.
package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Status classifies the outcome of one retrieval.
type Status string

const (
	StatusOK          Status = "ok"
	StatusNotFound    Status = "not_found"
	StatusServerError Status = "server_error"
	StatusUnreachable Status = "unreachable"
)

// Result is one retrieved page.
type Result struct {
	URL         string
	Status      Status
	Code        int
	ContentType string
	Body        []byte
	Elapsed     time.Duration
}

// Options configures a Fetcher.
type Options struct {
	UserAgent string
	// PerHostRPS is the sustained request budget per host. Zero means no limit.
	PerHostRPS float64
	// MaxBodySize caps the response body. Zero means the default of 4 MiB.
	MaxBodySize int64
	Timeout     time.Duration
	// Client overrides the HTTP client, for tests.
	Client *http.Client
}

const defaultMaxBodySize = 4 << 20

// Fetcher retrieves pages with per-host politeness.
type Fetcher struct {
	client    *http.Client
	userAgent string
	rps       float64
	maxBody   int64

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	maxBody := opts.MaxBodySize
	if maxBody == 0 {
		maxBody = defaultMaxBodySize
	}
	return &Fetcher{
		client:    client,
		userAgent: opts.UserAgent,
		rps:       opts.PerHostRPS,
		maxBody:   maxBody,
		limiters:  map[string]*rate.Limiter{},
	}
}

func (f *Fetcher) limiter(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(f.rps), 1)
		f.limiters[host] = l
	}
	return l
}

// Get retrieves one page. Network failures are reported in the Result status
// rather than as an error; only an unusable URL or a cancelled context fails.
func (f *Fetcher) Get(ctx context.Context, rawURL string) (*Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" || !strings.HasPrefix(u.Scheme, "http") {
		return nil, errors.Errorf("unusable url %q", rawURL)
	}

	if f.rps > 0 {
		if err := f.limiter(u.Host).Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build request")
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return &Result{URL: rawURL, Status: StatusUnreachable, Elapsed: time.Since(start)}, nil
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return &Result{URL: rawURL, Status: StatusUnreachable, Code: resp.StatusCode, Elapsed: time.Since(start)}, nil
	}

	res := &Result{
		URL:         rawURL,
		Code:        resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		Elapsed:     time.Since(start),
	}
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		res.Status = StatusNotFound
	case resp.StatusCode >= 500:
		res.Status = StatusServerError
	case resp.StatusCode >= 400:
		res.Status = StatusUnreachable
	default:
		res.Status = StatusOK
	}
	return res, nil
}
