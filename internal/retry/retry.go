// Package retry implements retrying operations with exponential backoff.
package retry

import (
	"context"
	"fmt"
	"time"

	"intelwatch/internal/logger"
)

// Config controls retry behaviour.
type Config struct {
	MaxAttempts int
	Delay       time.Duration
	Backoff     float64
}

// DefaultConfig is suitable for short-lived network calls.
var DefaultConfig = Config{
	MaxAttempts: 3,
	Delay:       2 * time.Second,
	Backoff:     2.0,
}

// WithRetry runs fn until it succeeds, the attempt budget is exhausted, or
// the context is cancelled. The last error is returned on failure.
func WithRetry(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	delay := cfg.Delay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		logger.Debug("retrying after failure",
			"attempt", attempt,
			"max_attempts", cfg.MaxAttempts,
			"delay", delay.String(),
			"error", lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}

		if cfg.Backoff > 1 {
			delay = time.Duration(float64(delay) * cfg.Backoff)
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", cfg.MaxAttempts, lastErr)
}
