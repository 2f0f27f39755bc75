package retry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(retries int) Config {
	return Config{
		MaxRetries:     retries,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2,
	}
}

// failing returns fn that fails with errs in order and then succeeds.
func failing(calls *int, errs ...error) func(context.Context) error {
	return func(ctx context.Context) error {
		*calls++
		if *calls <= len(errs) {
			return errs[*calls-1]
		}
		return nil
	}
}

func TestDo(t *testing.T) {
	transient := errors.New("connection reset")
	notFound := errors.New("not found")
	onlyTransient := func(err error) bool { return errors.Is(err, transient) }

	tests := []struct {
		name       string
		retries    int
		classifier ErrorClassifier
		errs       []error
		wantCalls  int
		wantErr    error
		exhausted  bool
	}{
		{name: "first try", retries: 3, wantCalls: 1},
		{name: "recovers", retries: 3, errs: []error{transient, transient}, wantCalls: 3},
		{name: "exhausted", retries: 2, errs: []error{transient, transient, transient, transient},
			wantCalls: 3, wantErr: transient, exhausted: true},
		{name: "zero retries", retries: 0, errs: []error{transient}, wantCalls: 1, wantErr: transient, exhausted: true},
		{name: "classifier refuses", retries: 3, classifier: onlyTransient, errs: []error{notFound},
			wantCalls: 1, wantErr: notFound},
		{name: "permanent wrapper", retries: 3, errs: []error{Permanent(notFound)}, wantCalls: 1, wantErr: notFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Do(context.Background(), fastConfig(tt.retries), tt.classifier, failing(&calls, tt.errs...))

			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)

			var re *RetryableError
			assert.Equal(t, tt.exhausted, errors.As(err, &re))
			if tt.exhausted {
				assert.Equal(t, tt.retries, re.Retries)
			}
		})
	}
}

func TestDoContextCanceledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := fastConfig(5)
	cfg.InitialBackoff = 50 * time.Millisecond

	calls := 0
	err := Do(ctx, cfg, nil, func(ctx context.Context) error {
		calls++
		if calls == 2 {
			cancel()
		}
		return errors.New("temporary")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)

	var re *RetryableError
	assert.False(t, errors.As(err, &re), "cancellation is not reported as exhausted retries")
}

func TestDoContextDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	cfg := fastConfig(5)
	cfg.InitialBackoff = time.Second
	cfg.MaxBackoff = time.Second

	err := Do(ctx, cfg, nil, func(ctx context.Context) error {
		return errors.New("temporary")
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDoRetriesAttemptTimeout(t *testing.T) {
	timeout := &url.Error{Op: "Get", URL: "https://www.youtube.com/", Err: context.DeadlineExceeded}

	calls := 0
	err := Do(context.Background(), fastConfig(2), nil, func(ctx context.Context) error {
		calls++
		return timeout
	})
	assert.Equal(t, 3, calls)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)

	var re *RetryableError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, 2, re.Retries)
}

func TestDetachTimeout(t *testing.T) {
	timeout := fmt.Errorf("get: %w", context.DeadlineExceeded)

	err := DetachTimeout(context.Background(), timeout)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.NotErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, IsRetryable(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Same(t, timeout, DetachTimeout(ctx, timeout), "an ended caller context keeps the error as is")

	other := errors.New("boom")
	assert.Same(t, other, DetachTimeout(context.Background(), other))
	assert.NoError(t, DetachTimeout(context.Background(), nil))
}

func TestDoWaitsBetweenAttempts(t *testing.T) {
	cfg := Config{MaxRetries: 2, InitialBackoff: 20 * time.Millisecond, MaxBackoff: time.Second, Multiplier: 2}

	start := time.Now()
	calls := 0
	_ = Do(context.Background(), cfg, nil, func(ctx context.Context) error {
		calls++
		return errors.New("retry")
	})

	assert.Equal(t, 3, calls)
	// 20ms then 40ms without jitter
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestNewBackOff(t *testing.T) {
	b := newBackOff(Config{InitialBackoff: time.Second, MaxBackoff: 4 * time.Second, Multiplier: 2})

	var got []time.Duration
	for range 5 {
		got = append(got, b.NextBackOff())
	}
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second, 4 * time.Second}, got)
}

func TestNewBackOffJitter(t *testing.T) {
	b := newBackOff(Config{InitialBackoff: time.Second, MaxBackoff: time.Minute, Multiplier: 2, JitterFraction: 0.2})
	for range 20 {
		b.Reset()
		d := b.NextBackOff()
		assert.GreaterOrEqual(t, d, 800*time.Millisecond)
		assert.LessOrEqual(t, d, 1200*time.Millisecond)
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(errors.New("boom")))
	assert.False(t, IsRetryable(context.Canceled))
	assert.False(t, IsRetryable(fmt.Errorf("wrapped: %w", context.DeadlineExceeded)))
	assert.False(t, IsRetryable(Permanent(errors.New("bad request"))))
	assert.False(t, IsRetryable(fmt.Errorf("outer: %w", Permanent(errors.New("bad request")))))
	assert.Nil(t, Permanent(nil))
}

func TestRetryableError(t *testing.T) {
	cause := errors.New("503 service unavailable")
	err := &RetryableError{Err: cause, Retries: 3}

	assert.Equal(t, "failed after 3 retries: 503 service unavailable", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.InitialBackoff)
	assert.Equal(t, 30*time.Second, cfg.MaxBackoff)
	assert.InDelta(t, 2.0, cfg.Multiplier, 0)
	assert.InDelta(t, 0.2, cfg.JitterFraction, 0)
}
