package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/iapd-pipeline/internal/resilience"
)

// IAPD endpoint hosts. Each carries its own token bucket.
const (
	FeedHost     = "reports.adviserinfo.sec.gov"
	APIHost      = "api.adviserinfo.sec.gov"
	DownloadHost = "files.adviserinfo.sec.gov"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent    string
	Timeout      time.Duration
	MaxRetries   int
	RateLimiters map[string]*rate.Limiter

	// RetryBackoff overrides the initial retry backoff. Zero keeps the
	// default 1s.
	RetryBackoff time.Duration
}

// NewLimiter builds a token bucket with the given permits-per-second rate.
// Capacity equals the rate, floored at one permit.
func NewLimiter(perSec float64) *rate.Limiter {
	burst := int(perSec)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSec), burst)
}

// DefaultRateLimiters returns the per-host limiters at the default rates:
// 2/s for the firm-info API, 5/s for brochure downloads.
func DefaultRateLimiters() map[string]*rate.Limiter {
	return map[string]*rate.Limiter{
		FeedHost:     NewLimiter(5),
		APIHost:      NewLimiter(2),
		DownloadHost: NewLimiter(5),
	}
}

// HTTPFetcher implements Client using net/http with retry and rate limiting.
type HTTPFetcher struct {
	client         *http.Client
	opts           HTTPOptions
	limiters       map[string]*rate.Limiter
	defaultLimiter *rate.Limiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "iapd-pipeline/1.0"
	}
	limiters := make(map[string]*rate.Limiter)
	for k, v := range opts.RateLimiters {
		limiters[k] = v
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:           opts,
		limiters:       limiters,
		defaultLimiter: NewLimiter(10),
	}
}

func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	u, err := url.Parse(rawURL)
	if err != nil {
		return f.defaultLimiter
	}
	if lim, ok := f.limiters[u.Host]; ok {
		return lim
	}
	return f.defaultLimiter
}

// Get fetches the URL under the host's rate limit, retrying transient
// failures with exponential backoff. Terminal statuses (404 and other
// non-retryable 4xx) come back as a Result, not an error, so callers can
// apply their own status semantics.
func (f *HTTPFetcher) Get(ctx context.Context, rawURL string) (*Result, error) {
	cfg := resilience.DefaultRetryConfig()
	cfg.MaxAttempts = f.opts.MaxRetries
	if f.opts.RetryBackoff > 0 {
		cfg.InitialBackoff = f.opts.RetryBackoff
	}
	cfg.OnRetry = func(attempt int, err error) {
		zap.L().Warn("http request failed, retrying",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}

	lim := f.limiterFor(rawURL)

	res, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) (*Result, error) {
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: create request")
		}
		req.Header.Set("User-Agent", f.opts.UserAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: do request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			// Drain so the connection can be reused across retries.
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil, &resilience.HTTPStatusError{StatusCode: resp.StatusCode, URL: rawURL}
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "fetcher: read body")
		}

		return &Result{StatusCode: resp.StatusCode, Body: body}, nil
	})
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: get %s", rawURL)
	}
	return res, nil
}
