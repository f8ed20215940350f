package exchange

import (
	"context"
	"time"

	"github.com/jpillora/backoff"

	engerrors "github.com/ducminhle1904/gridscope/internal/errors"
)

// RetryConfig holds configuration for retry mechanisms
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Factor       float64
	Jitter       bool
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: time.Second,
		MaxDelay:     30 * time.Second,
		Factor:       2,
		Jitter:       true,
	}
}

// RetryNotify is called before each wait with the attempt number, the error and the delay
type RetryNotify func(attempt int, err error, delay time.Duration)

// Retry runs fn until it succeeds, returns a non-retryable error, the retry cap is
// reached or ctx is done. Only retryable rate limit errors are retried.
func Retry(ctx context.Context, cfg RetryConfig, notify RetryNotify, fn func() error) error {
	b := &backoff.Backoff{
		Min:    cfg.InitialDelay,
		Max:    cfg.MaxDelay,
		Factor: cfg.Factor,
		Jitter: cfg.Jitter,
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt == cfg.MaxRetries || !shouldRetry(err) {
			break
		}

		delay := b.Duration()
		if notify != nil {
			notify(attempt+1, err, delay)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

func shouldRetry(err error) bool {
	cat, ok := engerrors.CategoryOf(err)
	return ok && cat == engerrors.ErrorCategoryRateLimit && engerrors.IsRetryable(err)
}
