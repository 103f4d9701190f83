package provider

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second}

	assert.Equal(t, 100*time.Millisecond, p.Delay(0))
	assert.Equal(t, 200*time.Millisecond, p.Delay(1))
	assert.Equal(t, 400*time.Millisecond, p.Delay(2))
	assert.Equal(t, time.Second, p.Delay(5), "capped at MaxDelay")

	t.Run("jitter bounds", func(t *testing.T) {
		low := RetryPolicy{BaseDelay: time.Second, MaxDelay: time.Minute, Jitter: 0.5, Rand: func() float64 { return 0 }}
		high := RetryPolicy{BaseDelay: time.Second, MaxDelay: time.Minute, Jitter: 0.5, Rand: func() float64 { return 1 }}
		assert.Equal(t, 500*time.Millisecond, low.Delay(0))
		assert.Equal(t, 1500*time.Millisecond, high.Delay(0))
	})
}

func TestRetryPolicy_Do(t *testing.T) {
	ctx := context.Background()

	t.Run("retries 5xx until success", func(t *testing.T) {
		var delays []time.Duration
		p := RetryPolicy{MaxRetries: 3, BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second,
			Sleep: func(_ context.Context, d time.Duration) error {
				delays = append(delays, d)
				return nil
			}}
		calls := 0
		attempts, err := p.Do(ctx, func(context.Context) error {
			calls++
			if calls < 3 {
				return &HTTPStatusError{Op: "poll", StatusCode: 503}
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, attempts)
		assert.Equal(t, []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}, delays)
	})

	t.Run("does not retry 4xx", func(t *testing.T) {
		p := RetryPolicy{MaxRetries: 5, Sleep: noSleep}
		attempts, err := p.Do(ctx, func(context.Context) error {
			return &HTTPStatusError{Op: "submit", StatusCode: 422, Body: "bad prompt"}
		})
		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		p := RetryPolicy{MaxRetries: 2, Sleep: noSleep}
		attempts, err := p.Do(ctx, func(context.Context) error {
			return &HTTPStatusError{Op: "poll", StatusCode: 500}
		})
		require.Error(t, err)
		assert.Equal(t, 3, attempts)
		assert.True(t, IsRetryable(err))
	})

	t.Run("stops when context canceled during sleep", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		p := RetryPolicy{MaxRetries: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}
		calls := 0
		attempts, err := p.Do(cctx, func(context.Context) error {
			calls++
			cancel()
			return &HTTPStatusError{Op: "poll", StatusCode: 502}
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, attempts)
	})
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"400", &HTTPStatusError{StatusCode: 400}, false},
		{"408", &HTTPStatusError{StatusCode: 408}, false},
		{"429", &HTTPStatusError{StatusCode: 429}, false},
		{"500", &HTTPStatusError{StatusCode: 500}, true},
		{"503 wrapped", errors.Join(errors.New("x"), &HTTPStatusError{StatusCode: 503}), true},
		{"net error", timeoutErr{}, true},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"permanent", Permanent(&HTTPStatusError{StatusCode: 503}), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
