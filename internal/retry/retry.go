// Package retry runs operations with bounded exponential backoff.
package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/chainguard-dev/clog"
)

// Config bounds a retry loop.
type Config struct {
	// MaxRetries is the number of retries after the first attempt.
	// 0 disables retrying.
	MaxRetries int
	// BaseBackoff is the wait before the first retry. It doubles per attempt.
	BaseBackoff time.Duration
	// MaxBackoff caps the wait between attempts.
	MaxBackoff time.Duration
	// MaxJitter is the upper bound of random time added to each wait.
	MaxJitter time.Duration
}

// DefaultConfig suits Vertex AI quota errors, which take seconds to clear.
func DefaultConfig() Config {
	return Config{
		MaxRetries:  5,
		BaseBackoff: time.Second,
		MaxBackoff:  60 * time.Second,
		MaxJitter:   500 * time.Millisecond,
	}
}

// Validate rejects negative values.
func (c Config) Validate() error {
	if c.MaxRetries < 0 {
		return errors.New("max retries cannot be negative")
	}
	if c.BaseBackoff < 0 || c.MaxBackoff < 0 || c.MaxJitter < 0 {
		return errors.New("backoff durations cannot be negative")
	}
	return nil
}

// Backoff returns the wait before retry number attempt (0-based), without jitter.
func (c Config) Backoff(attempt int) time.Duration {
	if attempt > 30 {
		return c.MaxBackoff
	}
	return min(c.BaseBackoff<<attempt, c.MaxBackoff)
}

// Do calls fn until it succeeds, returns an error isRetryable rejects, or
// the retries are used up. Waiting stops early when ctx is done.
func Do[T any](ctx context.Context, cfg Config, operation string, isRetryable func(error) bool, fn func() (T, error)) (T, error) {
	var result T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		result, lastErr = fn()
		if lastErr == nil {
			return result, nil
		}
		if !isRetryable(lastErr) {
			return result, lastErr
		}
		if attempt >= cfg.MaxRetries {
			break
		}

		wait := cfg.Backoff(attempt) + jitter(cfg.MaxJitter)
		clog.FromContext(ctx).With("operation", operation).
			With("attempt", attempt+1).
			With("max_retries", cfg.MaxRetries).
			With("backoff", wait).
			With("error", lastErr.Error()).
			Warn("transient failure, retrying")

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return result, ctx.Err()
		case <-timer.C:
		}
	}

	return result, fmt.Errorf("%s failed after %d retries: %w", operation, cfg.MaxRetries, lastErr)
}

func jitter(maxJitter time.Duration) time.Duration {
	if maxJitter <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(maxJitter)))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}
