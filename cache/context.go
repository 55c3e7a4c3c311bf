// Package cache holds the per-operation cache settings passed to dependency
// info resources and the in-memory response cache the feed clients share.
package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const cacheContextKey contextKey = "nuget.cache.context"

// DefaultMaxAge is how long a cached feed response stays fresh.
const DefaultMaxAge = 30 * time.Minute

// SourceCacheContext controls how resources use cached feed responses during
// one operation. The gatherer hands the same context to every source it queries.
type SourceCacheContext struct {
	// MaxAge bounds the age of a cached response that may be reused.
	MaxAge time.Duration

	// NoCache bypasses the response cache: nothing is read from or written to it.
	NoCache bool

	// RefreshMemoryCache ignores cached responses and replaces them with
	// fresh ones.
	RefreshMemoryCache bool

	// SessionID is sent as X-NuGet-Session-Id so a feed can correlate requests.
	SessionID string
}

// NewSourceCacheContext returns a context with DefaultMaxAge and a new session id.
func NewSourceCacheContext() *SourceCacheContext {
	return &SourceCacheContext{
		MaxAge:    DefaultMaxAge,
		SessionID: uuid.New().String(),
	}
}

// Clone returns an independent copy.
func (c *SourceCacheContext) Clone() *SourceCacheContext {
	clone := *c
	return &clone
}

// EffectiveMaxAge is the freshness window for reads; zero disables reads.
func (c *SourceCacheContext) EffectiveMaxAge() time.Duration {
	switch {
	case c == nil:
		return DefaultMaxAge
	case c.NoCache, c.RefreshMemoryCache:
		return 0
	case c.MaxAge <= 0:
		return DefaultMaxAge
	}
	return c.MaxAge
}

// StoresResponses reports whether fresh responses may be written to the cache.
func (c *SourceCacheContext) StoresResponses() bool {
	return c == nil || !c.NoCache
}

// WithCacheContext stores cacheCtx on ctx so feed clients deep in a call
// chain can honor it.
func WithCacheContext(ctx context.Context, cacheCtx *SourceCacheContext) context.Context {
	if cacheCtx == nil {
		return ctx
	}
	return context.WithValue(ctx, cacheContextKey, cacheCtx)
}

// FromContext returns the SourceCacheContext stored on ctx, or nil.
func FromContext(ctx context.Context) *SourceCacheContext {
	if ctx == nil {
		return nil
	}
	cacheCtx, _ := ctx.Value(cacheContextKey).(*SourceCacheContext)
	return cacheCtx
}
