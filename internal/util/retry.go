package util

import (
	"context"
	"fmt"
	"time"
)

// Backoff configures Retry. Delay doubles after each failed attempt and is
// capped at MaxDelay when MaxDelay is positive.
type Backoff struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// Retry calls fn until it succeeds, the attempts are exhausted, or ctx is
// done. A context error takes precedence over fn's last error so callers can
// tell a deadline from a persistent failure.
func Retry(ctx context.Context, b Backoff, fn func() error) error {
	if b.Attempts < 1 {
		b.Attempts = 1
	}

	var err error
	delay := b.BaseDelay

	for attempt := 0; attempt < b.Attempts; attempt++ {
		if err = fn(); err == nil {
			return nil
		}

		// Don't sleep after the last failed attempt.
		if attempt == b.Attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		case <-time.After(delay):
		}
		delay *= 2
		if b.MaxDelay > 0 && delay > b.MaxDelay {
			delay = b.MaxDelay
		}
	}

	return fmt.Errorf("after %d attempts: %w", b.Attempts, err)
}
