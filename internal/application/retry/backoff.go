package retry

import (
	"context"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultBase        = time.Second
	// MaxAttemptsLimit bounds configured attempts; Delay stops growing past it.
	MaxAttemptsLimit = 10
)

// Backoff configures Do. Zero values fall back to DefaultMaxAttempts and
// DefaultBase; Sleep is replaceable so tests can observe the delays.
type Backoff struct {
	MaxAttempts int
	Base        time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
}

// ApplyDefaults sets default values for unset fields.
func (b *Backoff) ApplyDefaults() {
	if b.MaxAttempts <= 0 {
		b.MaxAttempts = DefaultMaxAttempts
	}
	if b.Base <= 0 {
		b.Base = DefaultBase
	}
	if b.Sleep == nil {
		b.Sleep = Sleep
	}
}

// Delay returns the wait after the attempt with the given zero-based index.
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > MaxAttemptsLimit-1 {
		attempt = MaxAttemptsLimit - 1
	}
	return b.Base << attempt
}

// Do runs op up to MaxAttempts times, waiting 2^i * Base after failed attempt i.
// When attempts run out the last error is returned as is. Cancelling ctx
// aborts a pending wait and returns ctx.Err().
func Do[T any](ctx context.Context, b Backoff, op func(ctx context.Context) (T, error)) (T, error) {
	b.ApplyDefaults()

	var zero T
	var lastErr error
	for attempt := 0; attempt < b.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		lastErr = err

		if attempt == b.MaxAttempts-1 {
			break
		}
		if err := b.Sleep(ctx, b.Delay(attempt)); err != nil {
			return zero, err
		}
	}
	return zero, lastErr
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
