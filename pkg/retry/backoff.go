// Package retry provides a small exponential backoff helper, used by the
// orchestrator's local-stream reconnect loop (spec §4.7), and FixedRetry, the
// fixed-interval loop behind its agent-invocation retries (spec §4.6).
package retry

import (
	"context"
	"math"
	"time"
)

// BackoffConfig controls an exponential-with-cap delay sequence.
type BackoffConfig struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
}

// DefaultReconnectBackoff matches spec §4.7: 100ms -> 2s doubling, capped at 30s.
func DefaultReconnectBackoff() BackoffConfig {
	return BackoffConfig{Initial: 100 * time.Millisecond, Max: 30 * time.Second, Factor: 2.0}
}

// Backoff produces successive delays for BackoffConfig, starting at Initial
// and doubling (by Factor) on each call to Next, never exceeding Max.
type Backoff struct {
	cfg     BackoffConfig
	attempt int
}

// NewBackoff creates a Backoff at attempt zero.
func NewBackoff(cfg BackoffConfig) *Backoff {
	return &Backoff{cfg: cfg}
}

// Next returns the delay for the current attempt and advances to the next.
func (b *Backoff) Next() time.Duration {
	d := float64(b.cfg.Initial) * math.Pow(b.cfg.Factor, float64(b.attempt))
	b.attempt++
	if d > float64(b.cfg.Max) {
		return b.cfg.Max
	}
	return time.Duration(d)
}

// Reset returns the sequence to its first delay.
func (b *Backoff) Reset() {
	b.attempt = 0
}

// Sleep waits for the next backoff delay or until ctx is cancelled, whichever
// comes first. It returns ctx.Err() if the context wins the race.
func (b *Backoff) Sleep(ctx context.Context) error {
	t := time.NewTimer(b.Next())
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FixedRetry runs operation up to maxAttempts times, waiting delay between
// attempts, and returns the last error if every attempt failed. It is used
// for the agent invocation's "3 attempts, 5s apart" policy (spec §4.6),
// which is a fixed (non-exponential) interval rather than the backoff above.
func FixedRetry(ctx context.Context, maxAttempts int, delay time.Duration, operation func(attempt int) error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation(attempt)
		if lastErr == nil {
			return nil
		}

		if attempt == maxAttempts {
			break
		}

		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
	return lastErr
}
