// Package resilience protects feeds from a gather that fans out many
// concurrent queries: a circuit breaker per host and a token bucket per source.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/willibrandon/gonuget-pm/observability"
)

// CircuitState is the breaker state.
type CircuitState int

const (
	StateClosed CircuitState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateHalfOpen:
		return "HalfOpen"
	}
	return "Unknown"
}

// ErrCircuitOpen is returned while a host's breaker rejects requests.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig tunes a breaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	MaxFailures uint

	// Timeout is how long the circuit stays open before one probe is let through.
	Timeout time.Duration
}

// DefaultCircuitBreakerConfig opens after 5 consecutive failures for 60s.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{MaxFailures: 5, Timeout: 60 * time.Second}
}

// CircuitBreaker is a three-state breaker allowing a single half-open probe.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu          sync.Mutex
	state       CircuitState
	failures    uint
	lastFailure time.Time
	probing     bool
}

// NewCircuitBreaker returns a closed breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.MaxFailures == 0 {
		config.MaxFailures = DefaultCircuitBreakerConfig().MaxFailures
	}
	return &CircuitBreaker{config: config}
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the consecutive failure count.
func (cb *CircuitBreaker) Failures() uint {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// CanExecute reports whether a request may proceed, returning ErrCircuitOpen
// if not. A caller that gets nil must report the outcome.
func (cb *CircuitBreaker) CanExecute() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil
	case StateOpen:
		if time.Since(cb.lastFailure) < cb.config.Timeout {
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.probing = false
	}

	if cb.probing {
		return ErrCircuitOpen
	}
	cb.probing = true
	return nil
}

// RecordSuccess closes the circuit and clears the failure count.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.probing = false
}

// RecordFailure counts a failure; a failed probe reopens the circuit.
func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.lastFailure = time.Now()
	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.config.MaxFailures {
		cb.state = StateOpen
	}
	cb.probing = false
}

// release ends a request without an outcome, letting a later request through.
func (cb *CircuitBreaker) release() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.probing = false
}

// Reset forces the breaker closed.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.probing = false
}

// HTTPCircuitBreaker keeps one breaker per host so a failing feed does not
// block queries to healthy ones.
type HTTPCircuitBreaker struct {
	config   CircuitBreakerConfig
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
}

// NewHTTPCircuitBreaker creates an empty set of per-host breakers.
func NewHTTPCircuitBreaker(config CircuitBreakerConfig) *HTTPCircuitBreaker {
	return &HTTPCircuitBreaker{config: config, breakers: make(map[string]*CircuitBreaker)}
}

func (h *HTTPCircuitBreaker) breaker(host string) *CircuitBreaker {
	h.mu.RLock()
	b, ok := h.breakers[host]
	h.mu.RUnlock()
	if ok {
		return b
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if b, ok = h.breakers[host]; ok {
		return b
	}
	b = NewCircuitBreaker(h.config)
	h.breakers[host] = b
	return b
}

// HTTPOperation performs one request.
type HTTPOperation func(ctx context.Context) (*http.Response, error)

// Execute runs op through host's breaker. Transport errors and 5xx responses
// count as failures; 5xx responses are still returned to the caller. Requests
// that end because ctx ended count as neither.
func (h *HTTPCircuitBreaker) Execute(ctx context.Context, host string, op HTTPOperation) (*http.Response, error) {
	b := h.breaker(host)
	if err := b.CanExecute(); err != nil {
		return nil, fmt.Errorf("circuit breaker open for %s: %w", host, err)
	}

	resp, err := op(ctx)
	switch {
	case err != nil && ctx.Err() != nil:
		b.release()
	case err != nil:
		b.RecordFailure()
		observability.CircuitBreakerFailures.WithLabelValues(host).Inc()
	case resp.StatusCode >= 500:
		b.RecordFailure()
		observability.CircuitBreakerFailures.WithLabelValues(host).Inc()
	default:
		b.RecordSuccess()
	}
	observability.CircuitBreakerState.WithLabelValues(host).Set(float64(b.State()))
	return resp, err
}

// State returns host's breaker state; hosts never seen are closed.
func (h *HTTPCircuitBreaker) State(host string) CircuitState {
	h.mu.RLock()
	b, ok := h.breakers[host]
	h.mu.RUnlock()
	if !ok {
		return StateClosed
	}
	return b.State()
}

// Reset closes host's breaker.
func (h *HTTPCircuitBreaker) Reset(host string) {
	h.mu.RLock()
	b, ok := h.breakers[host]
	h.mu.RUnlock()
	if ok {
		b.Reset()
	}
}
