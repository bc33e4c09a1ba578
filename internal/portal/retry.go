package portal

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultRetryConfig returns the retry policy used for reads.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		InitialWait: 500 * time.Millisecond,
		MaxWait:     5 * time.Second,
		Multiplier:  2.0,
	}
}

// withRetry calls fn until it succeeds, returns a permanent error or the
// attempts run out.
func withRetry[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	attempts := max(cfg.MaxAttempts, 1)

	for attempt := range attempts {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err

		if !shouldRetry(err) {
			return zero, err
		}
		if attempt == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(backoff(cfg, attempt, err)):
		}
	}
	return zero, lastErr
}

func shouldRetry(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var ae *APIError
	if errors.As(err, &ae) {
		return ae.Transient()
	}
	var unavail *ErrUnavailable
	return errors.As(err, &unavail)
}

func backoff(cfg RetryConfig, attempt int, err error) time.Duration {
	var ae *APIError
	if errors.As(err, &ae) && ae.RetryAfter > 0 {
		return ae.RetryAfter
	}

	wait := float64(cfg.InitialWait) * math.Pow(cfg.Multiplier, float64(attempt))
	if wait > float64(cfg.MaxWait) {
		wait = float64(cfg.MaxWait)
	}

	// ±20% jitter.
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	if wait < 0 {
		wait = 0
	}
	return time.Duration(wait)
}
