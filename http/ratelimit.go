package http

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces requests per host with a token bucket and applies a
// cool-down after the host answers with a rate limit response.
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	penalty  map[string]*penaltyState
	mu       sync.Mutex
	config   RateLimiterConfig
}

type penaltyState struct {
	until       time.Time
	consecutive int
}

// RateLimiterConfig defines rate limiting behavior.
type RateLimiterConfig struct {
	// DefaultRPS is requests per second for hosts without an explicit rate.
	// Zero or negative disables limiting for those hosts.
	DefaultRPS float64
	// HostRPS maps a host name to its own rate.
	HostRPS map[string]float64
	// PenaltyBase is the first cool-down after a rate limit response.
	PenaltyBase time.Duration
	// PenaltyMax caps the cool-down.
	PenaltyMax time.Duration
}

// DefaultRateLimiterConfig returns conservative rates for YouTube hosts.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		DefaultRPS: 2.5,
		HostRPS: map[string]float64{
			"www.googleapis.com":     5.0,
			"youtube.googleapis.com": 5.0,
		},
		PenaltyBase: 1 * time.Second,
		PenaltyMax:  60 * time.Second,
	}
}

// NewRateLimiter creates a new rate limiter with the given configuration.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	if cfg.HostRPS == nil {
		cfg.HostRPS = make(map[string]float64)
	}
	if cfg.PenaltyBase <= 0 {
		cfg.PenaltyBase = DefaultRateLimiterConfig().PenaltyBase
	}
	if cfg.PenaltyMax < cfg.PenaltyBase {
		cfg.PenaltyMax = cfg.PenaltyBase
	}
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		penalty:  make(map[string]*penaltyState),
		config:   cfg,
	}
}

// Wait blocks until a request to urlStr is allowed, honoring any active
// cool-down first. Returns the context error if ctx ends first.
func (rl *RateLimiter) Wait(ctx context.Context, urlStr string) error {
	if rl == nil {
		return nil
	}
	host := hostOf(urlStr)

	if remaining := rl.cooldown(host); remaining > 0 {
		timer := time.NewTimer(remaining)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	limiter := rl.limiter(host)
	if limiter == nil {
		return nil
	}
	return limiter.Wait(ctx)
}

// Penalize records a rate limit response from the host of urlStr and returns
// the cool-down now in effect: PenaltyBase doubling per consecutive hit,
// capped at PenaltyMax, and never shorter than retryAfter.
func (rl *RateLimiter) Penalize(urlStr string, retryAfter time.Duration) time.Duration {
	if rl == nil {
		return retryAfter
	}
	host := hostOf(urlStr)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	st, ok := rl.penalty[host]
	if !ok {
		st = &penaltyState{}
		rl.penalty[host] = st
	}
	st.consecutive++

	wait := rl.config.PenaltyBase
	for i := 1; i < st.consecutive && wait < rl.config.PenaltyMax; i++ {
		wait *= 2
	}
	if wait > rl.config.PenaltyMax {
		wait = rl.config.PenaltyMax
	}
	if retryAfter > wait {
		wait = retryAfter
	}
	st.until = time.Now().Add(wait)
	return wait
}

// RecordSuccess clears the cool-down state of the host of urlStr.
func (rl *RateLimiter) RecordSuccess(urlStr string) {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	delete(rl.penalty, hostOf(urlStr))
	rl.mu.Unlock()
}

// IsBackedOff reports whether the host of urlStr is cooling down.
func (rl *RateLimiter) IsBackedOff(urlStr string) bool {
	return rl.cooldown(hostOf(urlStr)) > 0
}

func (rl *RateLimiter) cooldown(host string) time.Duration {
	if rl == nil {
		return 0
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if st, ok := rl.penalty[host]; ok {
		return time.Until(st.until)
	}
	return 0
}

// limiter returns the token bucket for host, creating it on first use.
// A nil limiter means the host is not limited.
func (rl *RateLimiter) limiter(host string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if l, ok := rl.limiters[host]; ok {
		return l
	}
	rps := rl.rps(host)
	if rps <= 0 {
		return nil
	}
	// burst of 1 keeps requests evenly spaced
	l := rate.NewLimiter(rate.Limit(rps), 1)
	rl.limiters[host] = l
	return l
}

func (rl *RateLimiter) rps(host string) float64 {
	if rps, ok := rl.config.HostRPS[host]; ok {
		return rps
	}
	return rl.config.DefaultRPS
}

// hostOf extracts the lower-cased host name (without port) from a URL.
func hostOf(urlStr string) string {
	u, err := url.Parse(urlStr)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}
