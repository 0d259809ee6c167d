package errors

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig configures retry behavior. Delays is the fixed backoff
// schedule; len(Delays) bounds the number of retries.
type RetryConfig struct {
	Delays []time.Duration
}

// DefaultRetryConfig returns the standard schedule: three retries at
// 1s, 3s and 8s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{Delays: []time.Duration{time.Second, 3 * time.Second, 8 * time.Second}}
}

// MaxAttempts returns the total number of attempts the config allows.
func (c RetryConfig) MaxAttempts() int { return len(c.Delays) + 1 }

// RetryWithResult executes fn with the configured backoff, retrying only
// transient errors. Cancellation is checked before every attempt and during
// every backoff wait; a cancelled context never retries.
func RetryWithResult[T any](ctx context.Context, config RetryConfig, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt < config.MaxAttempts(); attempt++ {
		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
		default:
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsTransient(err) {
			return zero, err
		}
		if attempt == len(config.Delays) {
			break
		}

		delay := config.Delays[attempt]
		// A server-provided Retry-After takes precedence over the schedule.
		if after := RetryAfterSeconds(err); after > 0 {
			delay = time.Duration(after) * time.Second
		}

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, fmt.Errorf("retry cancelled during backoff: %w", ctx.Err())
		}
	}

	return zero, lastErr
}
