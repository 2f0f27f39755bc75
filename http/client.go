// Package http provides the HTTP client used for every YouTube interaction,
// with built-in retry logic, per-host rate limiting and typed errors.
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"ytscribe/internal/retry"
)

// DefaultUserAgent is sent when a request carries no User-Agent of its own.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Client wraps an HTTP client with retry logic and rate limit handling.
type Client struct {
	base        *http.Client
	config      *Config
	rateLimiter *RateLimiter
	breaker     *CircuitBreaker
	logger      *slog.Logger
}

// Config holds HTTP client configuration including retry and rate limit settings.
type Config struct {
	// Timeout for individual HTTP requests
	Timeout time.Duration

	// Retry configuration
	Retry retry.Config

	// User agent for HTTP requests
	UserAgent string

	// Rate limiter configuration
	RateLimiter RateLimiterConfig

	// Breaker stops calling hosts that keep failing. The zero value disables it.
	Breaker BreakerConfig

	// Logger receives retry and rate limit events. Nil discards them.
	Logger *slog.Logger

	// Transport overrides the underlying round tripper (tests).
	Transport http.RoundTripper
}

// DefaultConfig returns sensible defaults for HTTP client configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeout:     30 * time.Second,
		Retry:       retry.DefaultConfig(),
		UserAgent:   DefaultUserAgent,
		RateLimiter: DefaultRateLimiterConfig(),
		Breaker:     DefaultBreakerConfig(),
	}
}

// New creates a new HTTP client with the given configuration.
func New(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		base: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: transport,
		},
		config:      cfg,
		rateLimiter: NewRateLimiter(cfg.RateLimiter),
		breaker:     NewCircuitBreaker(cfg.Breaker),
		logger:      logger,
	}
}

// Response represents an HTTP response with status code and body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JSON decodes the response body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Get performs a GET request with retry logic.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.Do(ctx, http.MethodGet, url, nil, nil)
}

// PostJSON marshals payload and POSTs it with retry logic.
func (c *Client) PostJSON(ctx context.Context, url string, payload any, headers map[string]string) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	h := map[string]string{"Content-Type": "application/json"}
	for k, v := range headers {
		h[k] = v
	}
	return c.Do(ctx, http.MethodPost, url, body, h)
}

// Do performs an HTTP request with retry logic and rate limit handling.
// Transient failures (network errors, 5xx, 429/503 and 403 bot checks) are
// retried with backoff; other non-2xx answers fail immediately with *HTTPError.
// Calls to a host whose circuit is open fail with ErrCircuitOpen.
func (c *Client) Do(ctx context.Context, method, urlStr string, body []byte, headers map[string]string) (*Response, error) {
	if err := c.breaker.Allow(urlStr); err != nil {
		return nil, err
	}

	var result *Response
	attempt := 0

	err := retry.Do(ctx, c.config.Retry, isRetryableHTTPError, func(ctx context.Context) error {
		attempt++
		if err := c.rateLimiter.Wait(ctx, urlStr); err != nil {
			return err
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, urlStr, reader)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := c.base.Do(req)
		if err != nil {
			c.logger.Debug("http request failed",
				slog.String("method", method), slog.String("url", urlStr),
				slog.Int("attempt", attempt), slog.Any("error", err))
			return fmt.Errorf("%w: %w", ErrRequestFailed, retry.DetachTimeout(ctx, err))
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests ||
			resp.StatusCode == http.StatusServiceUnavailable ||
			resp.StatusCode == http.StatusForbidden {
			io.Copy(io.Discard, resp.Body)
			retryAfter := c.rateLimiter.Penalize(urlStr, parseRetryAfter(resp.Header))
			c.logger.Warn("rate limited",
				slog.String("url", urlStr), slog.Int("status", resp.StatusCode),
				slog.Int("attempt", attempt), slog.Duration("cooldown", retryAfter))
			return &RateLimitError{
				StatusCode:     resp.StatusCode,
				RetryAfter:     retryAfter,
				IsBotDetection: resp.StatusCode == http.StatusForbidden,
			}
		}

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response body: %w", retry.DetachTimeout(ctx, err))
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &HTTPError{StatusCode: resp.StatusCode, URL: urlStr, Body: respBody}
		}

		result = &Response{
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       respBody,
		}
		return nil
	})
	if err != nil {
		c.breaker.RecordFailure(urlStr, err)
		if c.breaker.State(urlStr) == CircuitOpen {
			c.logger.Warn("circuit open, failing fast",
				slog.String("host", circuitKey(urlStr)), slog.Any("error", err))
		}
		return nil, err
	}

	c.breaker.RecordSuccess(urlStr)
	c.rateLimiter.RecordSuccess(urlStr)
	return result, nil
}

// StdClient returns a plain *http.Client that shares this client's rate
// limiter and user agent. It is handed to third-party libraries that perform
// their own requests; it does not retry.
func (c *Client) StdClient() *http.Client {
	return &http.Client{
		Timeout: c.config.Timeout,
		Transport: &limitedTransport{
			base:      c.base.Transport,
			limiter:   c.rateLimiter,
			userAgent: c.config.UserAgent,
		},
	}
}

// limitedTransport applies rate limiting to requests made outside Do.
type limitedTransport struct {
	base      http.RoundTripper
	limiter   *RateLimiter
	userAgent string
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context(), req.URL.String()); err != nil {
		return nil, err
	}
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.userAgent)
	}
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		t.limiter.Penalize(req.URL.String(), parseRetryAfter(resp.Header))
	}
	return resp, nil
}

// isRetryableHTTPError determines if an HTTP error is retryable.
func isRetryableHTTPError(err error) bool {
	if !retry.IsRetryable(err) {
		return false
	}

	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		return true
	}

	// HTTP errors are retryable only for 5xx
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500
	}

	return true
}

// parseRetryAfter extracts the Retry-After header value.
// Returns 0 if the header is absent or malformed.
func parseRetryAfter(header http.Header) time.Duration {
	retryAfter := header.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(retryAfter); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}

	return 0
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.base.CloseIdleConnections()
	return nil
}
