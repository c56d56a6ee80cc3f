package utils

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy wraps unreliable outbound calls with bounded exponential
// backoff. Defaults: 500ms base, factor 2, 3 attempts, ±20% jitter.
type RetryPolicy struct {
	InitialInterval time.Duration
	Multiplier      float64
	MaxAttempts     uint64
	Jitter          float64
}

func NewRetryPolicy() *RetryPolicy {
	return &RetryPolicy{
		InitialInterval: 500 * time.Millisecond,
		Multiplier:      2,
		MaxAttempts:     3,
		Jitter:          0.2,
	}
}

// retryableError marks an error as worth another attempt.
type retryableError struct{ err error }

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

// Retryable classifies an error as transient (timeouts, 5xx, rate limits).
// Schema and validation failures must NOT be wrapped: they fail fast.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &retryableError{err: err}
}

// IsRetryable reports whether err was classified transient.
func IsRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// Do runs op, retrying only errors classified via Retryable. The context
// bounds the total time spent across all attempts, so the session-level
// deadline caps retries over every source combined.
func (p *RetryPolicy) Do(ctx context.Context, op func() error) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.InitialInterval
	bo.Multiplier = p.Multiplier
	bo.RandomizationFactor = p.Jitter

	attempt := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(bo, p.MaxAttempts-1), ctx))
	// Unwrap the retryable marker so callers see the original error.
	var re *retryableError
	if errors.As(err, &re) {
		return re.err
	}
	return err
}
