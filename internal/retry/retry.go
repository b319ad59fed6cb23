// Package retry wraps units of external work with bounded exponential
// backoff. It is the single retry policy for every external call in the
// pipeline; stages never retry themselves.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inkcast/internal/faults"
)

const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 30 * time.Second
)

// Policy configures backoff behavior. Sleep is injectable for tests.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Sleep       func(time.Duration)
}

// Default returns the stock policy with real sleeping.
func Default() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// delayHint lets errors carry a server-provided wait (Retry-After).
type delayHint interface {
	RetryAfter() time.Duration
}

// Do runs fn up to MaxAttempts times. Only errors tagged faults.ErrTransient
// are retried; anything else propagates immediately. The delay before attempt
// n+1 is BaseDelay<<n capped at MaxDelay, unless the error hints a wait.
func Do(ctx context.Context, p Policy, op string, fn func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !faults.Transient(lastErr) {
			return lastErr
		}
		if attempt == attempts-1 {
			break
		}
		sleep(p.delay(lastErr, attempt))
	}
	return fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

func (p Policy) delay(err error, attempt int) time.Duration {
	var hint delayHint
	if errors.As(err, &hint) {
		if d := hint.RetryAfter(); d > 0 {
			return p.cap(d)
		}
	}
	base := p.BaseDelay
	if base <= 0 {
		base = DefaultBaseDelay
	}
	d := base << uint(attempt)
	return p.cap(d)
}

func (p Policy) cap(d time.Duration) time.Duration {
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}
	if d > maxDelay {
		return maxDelay
	}
	return d
}
