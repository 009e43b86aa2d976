// Package fetcher downloads and parses data from the IAPD endpoints:
// HTTP with per-host rate limiting and retry, streaming XML, CSV, JSON,
// and gzip decompression.
package fetcher

import "context"

// Result is the outcome of a completed HTTP exchange. A non-2xx status is
// not an error at this layer; callers decide what each status means.
type Result struct {
	StatusCode int
	Body       []byte
}

// Client fetches remote resources. Implemented by HTTPFetcher; tests
// substitute fakes.
type Client interface {
	// Get fetches the URL, retrying transient failures, and returns the
	// final status and body. Transport failures after all retries, and
	// retryable statuses (408/429/5xx) that never cleared, return an error.
	Get(ctx context.Context, url string) (*Result, error)
}
