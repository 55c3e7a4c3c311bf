package resilience

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/willibrandon/gonuget-pm/observability"
)

// TokenBucketConfig tunes a token bucket.
type TokenBucketConfig struct {
	// Capacity is the burst size.
	Capacity int

	// RefillRate is tokens added per second.
	RefillRate float64
}

// DefaultTokenBucketConfig allows bursts of 100 requests and 50 per second sustained.
func DefaultTokenBucketConfig() TokenBucketConfig {
	return TokenBucketConfig{Capacity: 100, RefillRate: 50}
}

// TokenBucket is a token bucket rate limiter starting full.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   float64
	refillRate float64
	tokens     float64
	lastRefill time.Time
}

// NewTokenBucket returns a full bucket.
func NewTokenBucket(config TokenBucketConfig) *TokenBucket {
	if config.Capacity <= 0 {
		config.Capacity = 1
	}
	if config.RefillRate <= 0 {
		config.RefillRate = 1
	}
	return &TokenBucket{
		capacity:   float64(config.Capacity),
		refillRate: config.RefillRate,
		tokens:     float64(config.Capacity),
		lastRefill: time.Now(),
	}
}

// take removes one token if available, otherwise returns the time until one is.
func (tb *TokenBucket) take() (bool, time.Duration) {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	tb.tokens = min(tb.capacity, tb.tokens+now.Sub(tb.lastRefill).Seconds()*tb.refillRate)
	tb.lastRefill = now

	if tb.tokens >= 1 {
		tb.tokens--
		return true, 0
	}
	return false, time.Duration((1 - tb.tokens) / tb.refillRate * float64(time.Second))
}

// Allow takes a token without blocking.
func (tb *TokenBucket) Allow() bool {
	ok, _ := tb.take()
	return ok
}

// Wait blocks until a token is taken or ctx is done.
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		ok, wait := tb.take()
		if ok {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// PerSourceLimiter keeps one bucket per source host.
type PerSourceLimiter struct {
	config   TokenBucketConfig
	mu       sync.Mutex
	limiters map[string]*TokenBucket
}

// NewPerSourceLimiter creates an empty set of buckets sharing config.
func NewPerSourceLimiter(config TokenBucketConfig) *PerSourceLimiter {
	return &PerSourceLimiter{config: config, limiters: make(map[string]*TokenBucket)}
}

func (p *PerSourceLimiter) bucket(source string) *TokenBucket {
	p.mu.Lock()
	defer p.mu.Unlock()
	b, ok := p.limiters[source]
	if !ok {
		b = NewTokenBucket(p.config)
		p.limiters[source] = b
	}
	return b
}

// Allow takes a token for source without blocking.
func (p *PerSourceLimiter) Allow(source string) bool {
	ok := p.bucket(source).Allow()
	observability.RateLimitRequestsTotal.WithLabelValues(source, strconv.FormatBool(ok)).Inc()
	return ok
}

// Wait blocks until source has a token or ctx is done.
func (p *PerSourceLimiter) Wait(ctx context.Context, source string) error {
	err := p.bucket(source).Wait(ctx)
	observability.RateLimitRequestsTotal.WithLabelValues(source, strconv.FormatBool(err == nil)).Inc()
	return err
}
