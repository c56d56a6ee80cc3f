package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() *RetryPolicy {
	return &RetryPolicy{
		InitialInterval: time.Millisecond,
		Multiplier:      1,
		MaxAttempts:     3,
		Jitter:          0,
	}
}

func TestDoRetriesTransientErrors(t *testing.T) {
	calls := 0
	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return Retryable(errors.New("throttled"))
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDoStopsAtMaxAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("still throttled")
	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		return Retryable(boom)
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
	// Marker is unwrapped so callers see the original error.
	assert.Equal(t, boom, err)
}

func TestDoDoesNotRetryPermanentErrors(t *testing.T) {
	calls := 0
	boom := errors.New("schema validation failed")
	err := fastPolicy().Do(context.Background(), func() error {
		calls++
		return boom
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, boom, err)
}

func TestDoRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := &RetryPolicy{InitialInterval: 50 * time.Millisecond, Multiplier: 1, MaxAttempts: 10, Jitter: 0}
	err := p.Do(ctx, func() error {
		calls++
		cancel()
		return Retryable(errors.New("slow upstream"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Retryable(errors.New("x"))))
	assert.False(t, IsRetryable(errors.New("x")))
	assert.Nil(t, Retryable(nil))
}

func TestDefaultsMatchPolicy(t *testing.T) {
	p := NewRetryPolicy()
	assert.Equal(t, 500*time.Millisecond, p.InitialInterval)
	assert.Equal(t, 2.0, p.Multiplier)
	assert.Equal(t, uint64(3), p.MaxAttempts)
	assert.Equal(t, 0.2, p.Jitter)
}
