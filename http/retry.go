package http

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = 200 * time.Millisecond
	DefaultMaxBackoff     = 10 * time.Second
	DefaultBackoffFactor  = 2.0
	DefaultJitterFactor   = 0.1

	maxRetryAfter = 5 * time.Minute
)

// RetryConfig controls exponential backoff between attempts.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
	JitterFactor   float64
}

// DefaultRetryConfig returns the default backoff settings.
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     DefaultMaxRetries,
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
		BackoffFactor:  DefaultBackoffFactor,
		JitterFactor:   DefaultJitterFactor,
	}
}

// IsRetriable reports whether a transport error is worth another attempt.
func IsRetriable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, context.DeadlineExceeded)
}

// IsRetriableStatus reports whether a status is transient: 429, 502, 503, 504.
func IsRetriableStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// CalculateBackoff returns InitialBackoff * BackoffFactor^attempt capped at
// MaxBackoff, with ±JitterFactor jitter.
func (rc *RetryConfig) CalculateBackoff(attempt int) time.Duration {
	attempt = max(attempt, 0)

	backoff := float64(rc.InitialBackoff) * math.Pow(rc.BackoffFactor, float64(attempt))
	if rc.MaxBackoff > 0 && backoff > float64(rc.MaxBackoff) {
		backoff = float64(rc.MaxBackoff)
	}
	backoff += backoff * rc.JitterFactor * (2*rand.Float64() - 1)
	if backoff < 0 {
		backoff = float64(rc.InitialBackoff)
	}
	return time.Duration(backoff)
}

// ParseRetryAfter reads a Retry-After value in delay-seconds or HTTP-date
// form. It returns 0 for missing or invalid values and caps the wait at five
// minutes.
func ParseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}

	var wait time.Duration
	if seconds, err := strconv.Atoi(value); err == nil {
		wait = time.Duration(seconds) * time.Second
	} else if at, err := http.ParseTime(value); err == nil {
		wait = time.Until(at)
	}

	return min(max(wait, 0), maxRetryAfter)
}
