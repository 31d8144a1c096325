// Package retry re-runs operations that fail with transient errors, such as
// a locked database file or a conflicting transaction.
package retry

import (
	"context"
	"errors"
	"time"
)

// ErrBusy is returned when a backing store is temporarily unavailable.
var ErrBusy = errors.New("store busy")

// RetryableError wraps an error to indicate it should trigger a retry.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable wraps err as a [RetryableError]. It returns nil for a nil err.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err is wrapped with [RetryableError].
func IsRetryable(err error) bool {
	return errors.As(err, new(*RetryableError))
}

// Do executes fn up to attempts times with exponential backoff.
// Only errors wrapped with [RetryableError] are retried; others are
// returned immediately. The delay doubles after each failed attempt.
// Returns the last error if all attempts fail, or ctx.Err() if cancelled.
func Do(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	attempts = max(attempts, 1)
	var lastErr error

	for i := range attempts {
		if err := fn(); err == nil {
			return nil
		} else if lastErr = err; !IsRetryable(err) {
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

// Delay is the first wait of [WithBackoff].
var Delay = 100 * time.Millisecond

// WithBackoff is [Do] with 3 attempts starting at [Delay].
func WithBackoff(ctx context.Context, fn func() error) error {
	return Do(ctx, 3, Delay, fn)
}
