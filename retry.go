package tlcache

import (
	"context"
	"errors"
	"time"
)

// RetryConfig holds configuration for retry behavior.
type RetryConfig struct {
	MaxRetries int           // Maximum number of retry attempts
	BaseDelay  time.Duration // Initial delay between retries
	MaxDelay   time.Duration // Maximum delay between retries
}

// LockConfig controls acquisition of the registry lock.
type LockConfig struct {
	TTL   time.Duration // Lease on the lock, bounds how long a crashed holder blocks others
	Retry RetryConfig   // Backoff while the lock is held elsewhere
}

// DefaultLockConfig returns sensible defaults for registry locking.
func DefaultLockConfig() LockConfig {
	return LockConfig{
		TTL: 10 * time.Second,
		Retry: RetryConfig{
			MaxRetries: 10,
			BaseDelay:  10 * time.Millisecond,
			MaxDelay:   500 * time.Millisecond,
		},
	}
}

// errLockBusy is returned by a single acquisition attempt that lost the race.
var errLockBusy = errors.New("lock is held")

// RetryFunc is a function that can be retried.
type RetryFunc[T any] func() (T, error)

// WithRetry executes a function with exponential backoff retry.
// Only errors accepted by IsRetryable are retried.
func WithRetry[T any](ctx context.Context, cfg RetryConfig, fn RetryFunc[T]) (T, error) {
	var lastErr error
	var zero T

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err

		if !IsRetryable(err) {
			return zero, err
		}

		// Don't sleep after the last attempt
		if attempt < cfg.MaxRetries {
			delay := cfg.BaseDelay * time.Duration(1<<attempt)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}

			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return zero, lastErr
}

// IsRetryable checks if an error is retryable. Only lock contention is;
// store failures surface to the caller unchanged.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	return errors.Is(err, errLockBusy)
}

// acquireLock takes the named lock, backing off while it is held elsewhere.
func acquireLock(ctx context.Context, locker Locker, name string, cfg LockConfig) (string, error) {
	token, err := WithRetry(ctx, cfg.Retry, func() (string, error) {
		token, ok, err := locker.TryLock(ctx, name, cfg.TTL)
		if err != nil {
			return "", &StoreError{Op: "lock", Key: name, Cause: err}
		}
		if !ok {
			return "", errLockBusy
		}
		return token, nil
	})
	if err != nil {
		return "", &LockError{Name: name, Cause: err}
	}
	return token, nil
}
