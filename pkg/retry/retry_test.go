package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "socialscraper/pkg/errors"
)

func fastConfig(maxAttempts int) *Config {
	return &Config{
		MaxAttempts: maxAttempts,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
	}
}

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{9, time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	backoff := FromSettings(100*time.Millisecond, time.Second)
	for i := 0; i < 50; i++ {
		d := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, d, 180*time.Millisecond)
		assert.LessOrEqual(t, d, 220*time.Millisecond)
	}
}

func TestDoSucceedsAfterTransientErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errs.New(errs.ErrorTypeServerError, "poll status", "bad gateway")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoMaxAttemptsExceeded(t *testing.T) {
	calls := 0
	transient := errs.New(errs.ErrorTypeNetwork, "fetch socials", "connection reset")
	err := Do(context.Background(), fastConfig(2), func(ctx context.Context) error {
		calls++
		return transient
	})

	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.ErrorIs(t, err, transient)
	assert.Contains(t, err.Error(), "max retry attempts (2) exceeded")
}

func TestDoDoesNotWaitAfterLastAttempt(t *testing.T) {
	var delays []time.Duration
	cfg := &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: 150 * time.Millisecond},
		OnRetry:     func(attempt int, err error, delay time.Duration) { delays = append(delays, delay) },
	}

	calls := 0
	start := time.Now()
	err := Do(context.Background(), cfg, func(ctx context.Context) error {
		calls++
		return errs.New(errs.ErrorTypeServerError, "poll status", "bad gateway")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, delays, 2)
	assert.Less(t, time.Since(start), 440*time.Millisecond)
}

func TestDoUsesBackoffWhenPerTypeUnset(t *testing.T) {
	var delays []time.Duration
	cfg := &Config{
		MaxAttempts: 4,
		Backoff:     FromSettings(2*time.Millisecond, 4*time.Millisecond),
		OnRetry:     func(attempt int, err error, delay time.Duration) { delays = append(delays, delay) },
	}

	_ = Do(context.Background(), cfg, func(ctx context.Context) error {
		return errs.New(errs.ErrorTypeServerError, "fetch socials", "unavailable")
	})

	require.Len(t, delays, 3)
	for _, d := range delays {
		assert.LessOrEqual(t, d, time.Duration(float64(4*time.Millisecond)*1.1))
	}
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	calls := 0
	notFound := errs.New(errs.ErrorTypeNotFound, "fetch job", "missing")
	err := Do(context.Background(), fastConfig(5), func(ctx context.Context) error {
		calls++
		return notFound
	})

	assert.Same(t, notFound, err)
	assert.Equal(t, 1, calls)
}

func TestDoHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{
		MaxAttempts: 0,
		Backoff:     &ConstantBackoff{Delay: time.Hour},
	}

	calls := 0
	err := Do(ctx, cfg, func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("connection refused")
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.False(t, DefaultRetryIf(errs.New(errs.ErrorTypeAuth, "", "")))
	assert.True(t, DefaultRetryIf(errs.New(errs.ErrorTypeRateLimit, "", "")))
	assert.True(t, DefaultRetryIf(errors.New("EOF")))
}

func TestErrorTypeBackoffSelection(t *testing.T) {
	etb := NewErrorTypeBackoff()
	assert.Same(t, etb.RateLimitBackoff, etb.GetBackoffForError(errs.ErrorTypeRateLimit))
	assert.Same(t, etb.NetworkErrorBackoff, etb.GetBackoffForError(errs.ErrorTypeNetwork))
	assert.Same(t, etb.DefaultBackoff, etb.GetBackoffForError(errs.ErrorTypeUnknown))

	var seen time.Duration
	cfg := &Config{
		MaxAttempts: 2,
		PerType: &ErrorTypeBackoff{
			RateLimitBackoff: &ConstantBackoff{Delay: 3 * time.Millisecond},
			DefaultBackoff:   &ConstantBackoff{Delay: time.Hour},
		},
		OnRetry: func(attempt int, err error, delay time.Duration) { seen = delay },
	}
	_ = Do(context.Background(), cfg, func(ctx context.Context) error {
		return errs.New(errs.ErrorTypeRateLimit, "", "slow down")
	})
	assert.Equal(t, 3*time.Millisecond, seen)
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(context.Background(), fastConfig(3), func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("timeout")
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestWait(t *testing.T) {
	assert.NoError(t, Wait(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}
