package youtube

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	httpclient "ytscribe/http"
	"ytscribe/internal/retry"
)

func fastRetry() retry.Config {
	return retry.Config{
		MaxRetries:     2,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2,
	}
}

func testHTTPClient() *httpclient.Client {
	return httpclient.New(&httpclient.Config{
		Timeout: 5 * time.Second,
		Retry:   fastRetry(),
		RateLimiter: httpclient.RateLimiterConfig{
			PenaltyBase: time.Millisecond,
			PenaltyMax:  time.Millisecond,
		},
	})
}

// serve starts a test server that is closed with the test.
func serve(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}
