// Package httputil provides small HTTP helpers shared by registry clients:
// retry with exponential backoff and the error wrapper that drives it.
package httputil

import (
	"context"
	"errors"
	"time"
)

// Defaults used by [RetryWithBackoff]. PyPI outages are usually brief, so a
// few quick attempts beat a long retry budget.
const (
	DefaultAttempts = 3
	DefaultDelay    = time.Second
)

// RetryableError marks an error as transient. Registry clients wrap network
// failures and 5xx responses with it; anything else aborts the retry loop.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retry runs fn up to attempts times, doubling delay between failures. Errors
// not wrapped in [RetryableError] are returned immediately. Waiting respects
// ctx; cancellation returns ctx.Err().
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := 0; i < attempts; i++ {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !isRetryable(err) {
			return err
		}

		if i < attempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
				delay *= 2
			}
		}
	}
	return lastErr
}

// RetryWithBackoff runs fn with the package defaults.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	return Retry(ctx, DefaultAttempts, DefaultDelay, fn)
}

func isRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}
