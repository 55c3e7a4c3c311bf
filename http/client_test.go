package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/gonuget-pm/auth"
	"github.com/willibrandon/gonuget-pm/cache"
	"github.com/willibrandon/gonuget-pm/resilience"
)

func fastRetry() *RetryConfig {
	return &RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, BackoffFactor: 2}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultUserAgent, cfg.UserAgent)
	assert.True(t, cfg.Transport.EnableHTTP2)
	assert.NotNil(t, cfg.ResponseCache)
	assert.Equal(t, DefaultMaxRetries, cfg.RetryConfig.MaxRetries)
}

func TestClient_GetBytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "custom/1.0", r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte("body"))
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusForbidden)
		}
	}))
	defer server.Close()

	c := NewClientWithOptions(WithUserAgent("custom/1.0"), WithResponseCache(nil))
	ctx := context.Background()

	body, err := c.GetBytes(ctx, server.URL+"/ok")
	require.NoError(t, err)
	assert.Equal(t, "body", string(body))

	_, err = c.GetBytes(ctx, server.URL+"/missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.GetBytes(ctx, server.URL+"/forbidden")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
}

func TestClient_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	c := NewClientWithOptions(WithRetryConfig(fastRetry()), WithResponseCache(nil))
	body, err := c.GetBytes(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := NewClientWithOptions(WithRetryConfig(fastRetry()), WithResponseCache(nil))
	_, err := c.GetBytes(context.Background(), server.URL)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_ContextCanceledDuringBackoff(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewClientWithOptions(WithRetryConfig(fastRetry()), WithResponseCache(nil))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.GetBytes(ctx, server.URL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_ResponseCacheHonorsCacheContext(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte("index"))
	}))
	defer server.Close()

	c := NewClientWithOptions(WithResponseCache(cache.NewResponseCache(10, 1024)))

	ctx := cache.WithCacheContext(context.Background(), cache.NewSourceCacheContext())
	for i := 0; i < 3; i++ {
		_, err := c.GetBytes(ctx, server.URL)
		require.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())

	noCache := cache.WithCacheContext(context.Background(), &cache.SourceCacheContext{NoCache: true})
	_, err := c.GetBytes(noCache, server.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())

	refresh := cache.WithCacheContext(context.Background(), &cache.SourceCacheContext{RefreshMemoryCache: true})
	_, err = c.GetBytes(refresh, server.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_SessionAndCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "session-1", r.Header.Get("X-NuGet-Session-Id"))
		user, _, ok := r.BasicAuth()
		if !ok || user != "alice" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("secret"))
	}))
	defer server.Close()

	base := NewClientWithOptions(WithResponseCache(nil))
	ctx := cache.WithCacheContext(context.Background(), &cache.SourceCacheContext{SessionID: "session-1"})

	_, err := base.GetBytes(ctx, server.URL)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)

	body, err := base.WithAuthenticator(auth.NewBasicAuthenticator("alice", "pw")).GetBytes(ctx, server.URL)
	require.NoError(t, err)
	assert.Equal(t, "secret", string(body))
}

type failingTransport struct{ calls atomic.Int32 }

func (f *failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	f.calls.Add(1)
	return nil, errors.New("boom")
}

func TestClient_CircuitBreakerOpens(t *testing.T) {
	rt := &failingTransport{}
	c := NewClientWithOptions(
		WithRoundTripper(rt),
		WithMaxRetries(0),
		WithResponseCache(nil),
		WithCircuitBreaker(resilience.CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Hour}),
	)

	for i := 0; i < 2; i++ {
		_, err := c.GetBytes(context.Background(), "https://feed.example/index.json")
		require.Error(t, err)
	}
	_, err := c.GetBytes(context.Background(), "https://feed.example/index.json")
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, int32(2), rt.calls.Load())
}
