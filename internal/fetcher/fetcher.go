package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Fetcher retrieves the raw published content of one source endpoint.
// Implementations must honor ctx cancellation; the monitor applies the
// per-source deadline through it.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint string) (string, error)
}

// Error wraps any failure to obtain content. The monitor maps it to a
// fetch_error outcome and leaves the source's snapshot untouched.
type Error struct {
	Endpoint string
	Reason   string
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s: %v", e.Endpoint, e.Reason, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s", e.Endpoint, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Config struct {
	UserAgent string
	MaxBytes  int64
	Timeout   time.Duration
}

// HTTPFetcher is the production Fetcher: a plain GET with a size cap.
// Rendering, pagination and per-source scraping quirks live behind other
// Fetcher implementations.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

func NewHTTPFetcher(cfg Config) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	maxBytes := cfg.MaxBytes
	if maxBytes == 0 {
		maxBytes = 5 * 1024 * 1024
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "sentinel-monitor/1.0"
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, endpoint string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", &Error{Endpoint: endpoint, Reason: "build request", Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &Error{Endpoint: endpoint, Reason: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &Error{Endpoint: endpoint, Reason: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return "", &Error{Endpoint: endpoint, Reason: "read body", Err: err}
	}

	return string(body), nil
}
