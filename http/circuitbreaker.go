package http

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"
)

// CircuitState represents the state of one host's circuit.
type CircuitState int

const (
	// CircuitClosed is the normal state where requests are allowed.
	CircuitClosed CircuitState = iota
	// CircuitOpen is the state where requests fail fast.
	CircuitOpen
	// CircuitHalfOpen lets a single trial request through.
	CircuitHalfOpen
)

// String returns the string representation of a circuit state.
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned without touching the network while a host's
// circuit is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// BreakerConfig configures the per-host circuit breaker. A zero Threshold
// disables it.
type BreakerConfig struct {
	// Threshold is the number of consecutive failed calls, each after its
	// retries ran out, that opens a host's circuit.
	Threshold int
	// Cooldown is how long an open circuit rejects calls before a trial call.
	Cooldown time.Duration
}

// DefaultBreakerConfig opens a circuit after five failed calls in a row and
// lets a trial call through again after a minute.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{Threshold: 5, Cooldown: time.Minute}
}

type circuit struct {
	state    CircuitState
	failures int
	changed  time.Time
	trialing bool
}

// CircuitBreaker stops calling a host that keeps failing, so a long batch
// does not spend its retries against an upstream that is down. A nil
// *CircuitBreaker allows everything.
type CircuitBreaker struct {
	mu       sync.Mutex
	cfg      BreakerConfig
	circuits map[string]*circuit
	now      func() time.Time
}

// NewCircuitBreaker returns a breaker, or nil when cfg disables it.
func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	if cfg.Threshold <= 0 {
		return nil
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultBreakerConfig().Cooldown
	}
	return &CircuitBreaker{cfg: cfg, circuits: make(map[string]*circuit), now: time.Now}
}

// Allow reports whether a call to urlStr may proceed. While the circuit is
// open it returns an error wrapping ErrCircuitOpen.
func (cb *CircuitBreaker) Allow(urlStr string) error {
	if cb == nil {
		return nil
	}
	key := circuitKey(urlStr)

	cb.mu.Lock()
	defer cb.mu.Unlock()

	c := cb.get(key)
	switch c.state {
	case CircuitOpen:
		if cb.now().Sub(c.changed) < cb.cfg.Cooldown {
			return fmt.Errorf("%w for %s", ErrCircuitOpen, key)
		}
		c.state = CircuitHalfOpen
		c.changed = cb.now()
		c.trialing = true
		return nil
	case CircuitHalfOpen:
		if c.trialing {
			return fmt.Errorf("%w for %s", ErrCircuitOpen, key)
		}
		c.trialing = true
	}
	return nil
}

// RecordSuccess closes the circuit of urlStr's host.
func (cb *CircuitBreaker) RecordSuccess(urlStr string) {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	c := cb.get(circuitKey(urlStr))
	if c.state != CircuitClosed {
		c.changed = cb.now()
	}
	c.state = CircuitClosed
	c.failures = 0
	c.trialing = false
}

// RecordFailure counts a failed call. Only transient failures count; a 404
// says nothing about the health of the host.
func (cb *CircuitBreaker) RecordFailure(urlStr string, err error) {
	if cb == nil {
		return
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	c := cb.get(circuitKey(urlStr))
	c.trialing = false
	if !IsTransientHTTPError(err) {
		return
	}
	c.failures++
	if c.state == CircuitHalfOpen || c.failures >= cb.cfg.Threshold {
		c.state = CircuitOpen
		c.changed = cb.now()
	}
}

// State returns the current state of urlStr's circuit.
func (cb *CircuitBreaker) State(urlStr string) CircuitState {
	if cb == nil {
		return CircuitClosed
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()

	c, ok := cb.circuits[circuitKey(urlStr)]
	if !ok {
		return CircuitClosed
	}
	if c.state == CircuitOpen && cb.now().Sub(c.changed) >= cb.cfg.Cooldown {
		return CircuitHalfOpen
	}
	return c.state
}

// get must be called with mu held.
func (cb *CircuitBreaker) get(key string) *circuit {
	c, ok := cb.circuits[key]
	if !ok {
		c = &circuit{changed: cb.now()}
		cb.circuits[key] = c
	}
	return c
}

// circuitKey is host:port, so two local servers never share a circuit.
func circuitKey(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return strings.ToLower(u.Host)
}

// IsTransientHTTPError reports whether err says something about the health
// of the host: network failures, rate limiting and 5xx answers.
func IsTransientHTTPError(err error) bool {
	if err == nil || errors.Is(err, ErrCircuitOpen) {
		return false
	}
	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500
	}
	return !errors.Is(err, context.Canceled)
}
