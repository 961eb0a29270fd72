// Package api is the client for the paper search service.
//
// The service exposes three read endpoints:
//
//	GET /search?query=<q>&top_k=<n>   ranked hits, optionally with a graph
//	GET /graph                        the explicit citation graph
//	GET /status?paper_id=<id>&...     ingestion state per paper
//
// [Client] rate-limits requests, retries 5xx responses and network failures
// with exponential backoff, and reports every failure as a coded
// *errors.Error. Responses can be cached through any [cache.Cache].
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/matzehuels/papergraph/pkg/buildinfo"
	"github.com/matzehuels/papergraph/pkg/cache"
	pgerrors "github.com/matzehuels/papergraph/pkg/errors"
	"github.com/matzehuels/papergraph/pkg/observability"
)

// Client defaults.
const (
	DefaultBaseURL     = "http://localhost:8000/api"
	DefaultTimeout     = 30 * time.Second
	DefaultTopK        = 10
	DefaultRateLimit   = 10.0 // requests per second
	DefaultBatchSize   = 50
	DefaultConcurrency = 4

	maxBodyBytes = 32 << 20
)

// Client is a rate-limited HTTP client for the paper search service.
// It is safe for concurrent use.
type Client struct {
	http        *http.Client
	baseURL     string
	limiter     *rate.Limiter
	backoff     cache.Backoff
	cache       cache.Cache
	keyer       cache.Keyer
	logger      *log.Logger
	topK        int
	batchSize   int
	concurrency int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero or negative
// disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(1, int(perSecond)))
	}
}

// WithBackoff sets the retry schedule for retryable failures.
func WithBackoff(b cache.Backoff) Option {
	return func(c *Client) { c.backoff = b }
}

// WithCache caches decoded search and graph responses.
func WithCache(store cache.Cache, keyer cache.Keyer) Option {
	return func(c *Client) {
		if store != nil {
			c.cache = store
		}
		if keyer != nil {
			c.keyer = keyer
		}
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTopK sets the default number of search hits requested.
func WithTopK(k int) Option {
	return func(c *Client) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithBatching sets how many ids go into one status request and how many
// status requests run at once.
func WithBatching(size, concurrency int) Option {
	return func(c *Client) {
		if size > 0 {
			c.batchSize = size
		}
		if concurrency > 0 {
			c.concurrency = concurrency
		}
	}
}

// NewClient creates a client for the service at baseURL. An empty baseURL
// uses DefaultBaseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if err := pgerrors.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, pgerrors.Wrap(pgerrors.ErrCodeInvalidInput, err, "invalid base URL %q", baseURL)
	}

	c := &Client{
		http:        &http.Client{Timeout: DefaultTimeout},
		baseURL:     strings.TrimRight(baseURL, "/"),
		limiter:     rate.NewLimiter(rate.Limit(DefaultRateLimit), int(DefaultRateLimit)),
		backoff:     cache.DefaultBackoff,
		cache:       cache.NewNullCache(),
		keyer:       cache.NewDefaultKeyer(),
		logger:      log.New(io.Discard),
		topK:        DefaultTopK,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the service root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// =============================================================================
// Request plumbing
// =============================================================================

// getJSON fetches path with query q into v, retrying retryable failures.
// The returned error is always a *pgerrors.Error or a context error.
func (c *Client) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	err := c.backoff.Retry(ctx, func() error {
		return c.do(ctx, path, u, v)
	})
	if err == nil {
		return nil
	}

	var re *cache.RetryableError
	if errors.As(err, &re) {
		err = re.Err
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	c.logger.Debug("request failed", "path", path, "err", err)
	return err
}

func (c *Client) do(ctx context.Context, path, rawURL string, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return pgerrors.Wrap(pgerrors.ErrCodeRateLimited, err, "rate limiter")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return pgerrors.Wrap(pgerrors.ErrCodeInvalidInput, err, "build request for %s", path)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", buildinfo.UserAgent())

	hooks := observability.HTTP()
	host := req.URL.Host
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		hooks.OnError(ctx, req.Method, host, path, err)
		code := pgerrors.ErrCodeNetwork
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			code = pgerrors.ErrCodeTimeout
		}
		return cache.Retryable(pgerrors.Wrap(code, err, "request to %s failed", path))
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp, path); err != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return err
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(v); err != nil {
		return pgerrors.Wrap(pgerrors.ErrCodeInvalidFormat, err, "decode %s response", path)
	}
	return nil
}

func checkStatus(resp *http.Response, path string) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return pgerrors.New(pgerrors.ErrCodeNotFound, "%s: not found", path)
	case code == http.StatusTooManyRequests:
		retry, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		return pgerrors.Wrap(pgerrors.ErrCodeRateLimited, &pgerrors.RateLimitedError{RetryAfter: retry},
			"%s: rate limited by search service", path)
	case code >= 500:
		return cache.Retryable(pgerrors.New(pgerrors.ErrCodeNetwork, "%s: server error (HTTP %d)", path, code))
	default:
		return pgerrors.New(pgerrors.ErrCodeNetwork, "%s: request rejected (HTTP %d)", path, code)
	}
}

// cached returns the cached value for key if present, otherwise calls fetch
// and stores its result. Cache failures never fail the request.
func (c *Client) cached(ctx context.Context, key, keyType string, ttl time.Duration, v any, fetch func() error) error {
	hooks := observability.Cache()
	if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
		if json.Unmarshal(data, v) == nil {
			hooks.OnCacheHit(ctx, keyType)
			return nil
		}
	}
	hooks.OnCacheMiss(ctx, keyType)

	if err := fetch(); err != nil {
		return err
	}
	if data, err := json.Marshal(v); err == nil {
		if err := c.cache.Set(ctx, key, data, ttl); err != nil {
			c.logger.Debug("cache write failed", "key", key, "err", err)
		} else {
			hooks.OnCacheSet(ctx, keyType, len(data))
		}
	}
	return nil
}

func (c *Client) String() string {
	return fmt.Sprintf("api.Client(%s)", c.baseURL)
}
