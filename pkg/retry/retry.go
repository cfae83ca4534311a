// Package retry reattempts transient backend failures with exponential
// backoff. The relay uses it where a dependency may briefly lag the process,
// typically Redis coming up after the relay during a rolling restart.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

type Config struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// InitialDelay is the wait after the first failure; each further wait
	// is multiplied by Multiplier and capped at MaxDelay.
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	// Jitter spreads waits by up to ±25% so restarting relay instances do
	// not hammer a recovering backend in lockstep.
	Jitter bool
}

// DefaultConfig covers startup dependency waits: five tries over roughly
// fifteen seconds.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  5,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Retry runs fn until it succeeds, the attempts are exhausted, or ctx is
// cancelled. The last error is wrapped in the exhaustion error so callers
// can match it with errors.Is.
func Retry(ctx context.Context, cfg Config, fn func() error) error {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}
		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(withJitter(delay, cfg.Jitter)):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("gave up after %d attempts: %w", cfg.MaxAttempts, lastErr)
}

func withJitter(d time.Duration, enabled bool) time.Duration {
	if !enabled || d <= 0 {
		return d
	}
	spread := d / 4
	return d - spread + time.Duration(rand.Int63n(int64(2*spread)+1))
}
