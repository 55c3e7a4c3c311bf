// Package http is the feed HTTP client: retries with backoff, per-host circuit
// breaking, per-source rate limiting, credentials and an in-memory response
// cache honoring the operation's cache.SourceCacheContext.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/willibrandon/gonuget-pm/auth"
	"github.com/willibrandon/gonuget-pm/cache"
	"github.com/willibrandon/gonuget-pm/observability"
	"github.com/willibrandon/gonuget-pm/resilience"
)

const (
	DefaultTimeout   = 100 * time.Second
	DefaultUserAgent = "gonuget-pm/0.1.0"
)

// ErrNotFound is returned by GetBytes for a 404 response.
var ErrNotFound = errors.New("resource not found")

// StatusError is a non-success, non-404 response.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: %s", e.URL, e.Status)
}

// Config holds client configuration. Nil pointer fields disable the feature.
type Config struct {
	Timeout     time.Duration
	UserAgent   string
	Transport   TransportConfig
	RetryConfig *RetryConfig
	Logger      observability.Logger

	// EnableTracing wraps the transport in an OpenTelemetry client span.
	EnableTracing bool

	CircuitBreakerConfig *resilience.CircuitBreakerConfig
	RateLimiterConfig    *resilience.TokenBucketConfig

	// ResponseCache stores successful GET bodies by URL.
	ResponseCache *cache.ResponseCache

	// RoundTripper replaces the transport built from Transport.
	RoundTripper http.RoundTripper
}

// DefaultConfig returns retries, a response cache and tracing enabled.
func DefaultConfig() *Config {
	return &Config{
		Timeout:       DefaultTimeout,
		UserAgent:     DefaultUserAgent,
		Transport:     DefaultTransportConfig(),
		RetryConfig:   DefaultRetryConfig(),
		EnableTracing: true,
		ResponseCache: cache.NewResponseCache(0, 0),
	}
}

// Client performs feed requests. It is safe for concurrent use; clients
// derived with WithAuthenticator share the connection pool, breakers, limiter
// and response cache.
type Client struct {
	httpClient *http.Client
	userAgent  string
	retry      *RetryConfig
	logger     observability.Logger
	breaker    *resilience.HTTPCircuitBreaker
	limiter    *resilience.PerSourceLimiter
	responses  *cache.ResponseCache
	auth       auth.Authenticator
}

// NewClient builds a client; a nil cfg means DefaultConfig().
func NewClient(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	transport := cfg.RoundTripper
	if transport == nil {
		transport = NewTransport(cfg.Transport)
	}
	if cfg.EnableTracing {
		transport = observability.NewHTTPTracingTransport(transport, observability.TracerName)
	}

	c := &Client{
		httpClient: &http.Client{Transport: transport, Timeout: cfg.Timeout},
		userAgent:  cfg.UserAgent,
		retry:      cfg.RetryConfig,
		logger:     observability.OrNull(cfg.Logger),
		responses:  cfg.ResponseCache,
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.retry == nil {
		c.retry = &RetryConfig{}
	}
	if cfg.CircuitBreakerConfig != nil {
		c.breaker = resilience.NewHTTPCircuitBreaker(*cfg.CircuitBreakerConfig)
	}
	if cfg.RateLimiterConfig != nil {
		c.limiter = resilience.NewPerSourceLimiter(*cfg.RateLimiterConfig)
	}
	return c
}

// WithAuthenticator returns a client sending requests through a.
func (c *Client) WithAuthenticator(a auth.Authenticator) *Client {
	clone := *c
	clone.auth = a
	return &clone
}

// Do sends req, retrying transient failures. The whole retry sequence runs
// under the host's circuit breaker.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	host := req.URL.Host

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx, host); err != nil {
			return nil, fmt.Errorf("rate limit wait failed: %w", err)
		}
	}

	run := func(ctx context.Context) (*http.Response, error) {
		return c.doWithRetry(ctx, req)
	}
	if c.breaker != nil {
		return c.breaker.Execute(ctx, host, run)
	}
	return run(ctx)
}

func (c *Client) doWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		attemptReq, err := c.prepare(ctx, req)
		if err != nil {
			return nil, err
		}

		start := time.Now()
		resp, err := c.httpClient.Do(attemptReq)
		elapsed := time.Since(start)

		status := "error"
		if err == nil {
			status = strconv.Itoa(resp.StatusCode)
		}
		observability.HTTPRequestsTotal.WithLabelValues(req.Method, status, req.URL.Host).Inc()
		observability.HTTPRequestDuration.WithLabelValues(req.Method, req.URL.Host).Observe(elapsed.Seconds())

		retriable := (err != nil && IsRetriable(err) && ctx.Err() == nil) ||
			(err == nil && IsRetriableStatus(resp.StatusCode))
		if !retriable || attempt >= c.retry.MaxRetries {
			if err != nil {
				c.logger.WarnContext(ctx, "HTTP {Method} {URL} failed after {Duration}ms: {Error}",
					req.Method, req.URL.String(), elapsed.Milliseconds(), err)
				if attempt > 0 {
					return nil, fmt.Errorf("after %d retries: %w", attempt, err)
				}
				return nil, err
			}
			c.logger.DebugContext(ctx, "HTTP {Method} {URL} {StatusCode} ({Duration}ms)",
				req.Method, req.URL.String(), resp.StatusCode, elapsed.Milliseconds())
			return resp, nil
		}

		backoff := c.retry.CalculateBackoff(attempt)
		if resp != nil {
			if after := ParseRetryAfter(resp.Header.Get("Retry-After")); after > 0 {
				backoff = after
			}
			_ = resp.Body.Close()
		}
		if err == nil {
			err = fmt.Errorf("status %d", resp.StatusCode)
		}
		observability.RecordRetry(ctx, attempt+1, err)
		c.logger.DebugContext(ctx, "HTTP {Method} {URL} retry {Attempt}/{MaxRetries} after {Backoff}ms",
			req.Method, req.URL.String(), attempt+1, c.retry.MaxRetries, backoff.Milliseconds())

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func (c *Client) prepare(ctx context.Context, req *http.Request) (*http.Request, error) {
	r := req.Clone(ctx)
	if r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", c.userAgent)
	}
	if cacheCtx := cache.FromContext(ctx); cacheCtx != nil && cacheCtx.SessionID != "" {
		r.Header.Set("X-NuGet-Session-Id", cacheCtx.SessionID)
	}
	if c.auth != nil {
		if err := c.auth.Authenticate(r); err != nil {
			return nil, fmt.Errorf("authenticate %s: %w", r.URL.Host, err)
		}
	}
	return r, nil
}

// GetBytes fetches url and returns the body. A 404 yields ErrNotFound; other
// non-2xx responses yield *StatusError. Successful bodies go through the
// response cache according to the SourceCacheContext on ctx.
func (c *Client) GetBytes(ctx context.Context, url string) ([]byte, error) {
	cacheCtx := cache.FromContext(ctx)
	if c.responses != nil {
		if body, ok := c.responses.Get(url, cacheCtx.EffectiveMaxAge()); ok {
			c.logger.VerboseContext(ctx, "HTTP cache hit {URL}", url)
			return body, nil
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	if c.responses != nil && cacheCtx.StoresResponses() {
		c.responses.Set(url, body)
	}
	return body, nil
}

// Option adjusts a Config for NewClientWithOptions.
type Option func(*Config)

func WithTimeout(timeout time.Duration) Option {
	return func(cfg *Config) { cfg.Timeout = timeout }
}

func WithUserAgent(ua string) Option {
	return func(cfg *Config) { cfg.UserAgent = ua }
}

func WithLogger(logger observability.Logger) Option {
	return func(cfg *Config) { cfg.Logger = logger }
}

func WithMaxRetries(n int) Option {
	return func(cfg *Config) {
		if cfg.RetryConfig == nil {
			cfg.RetryConfig = DefaultRetryConfig()
		}
		cfg.RetryConfig.MaxRetries = n
	}
}

func WithRetryConfig(retry *RetryConfig) Option {
	return func(cfg *Config) { cfg.RetryConfig = retry }
}

func WithCircuitBreaker(breaker resilience.CircuitBreakerConfig) Option {
	return func(cfg *Config) { cfg.CircuitBreakerConfig = &breaker }
}

func WithRateLimiter(limiter resilience.TokenBucketConfig) Option {
	return func(cfg *Config) { cfg.RateLimiterConfig = &limiter }
}

func WithResponseCache(responses *cache.ResponseCache) Option {
	return func(cfg *Config) { cfg.ResponseCache = responses }
}

// WithHTTP3 lets HTTPS requests try QUIC first.
func WithHTTP3(enabled bool) Option {
	return func(cfg *Config) { cfg.Transport.EnableHTTP3 = enabled }
}

func WithRoundTripper(rt http.RoundTripper) Option {
	return func(cfg *Config) { cfg.RoundTripper = rt }
}

// NewClientWithOptions applies opts to DefaultConfig and builds a client.
func NewClientWithOptions(opts ...Option) *Client {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return NewClient(cfg)
}
