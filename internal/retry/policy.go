// Package retry holds the exponential backoff policy shared by every
// download call site, extracted so delays are computed in exactly one place.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy describes a bounded exponential backoff schedule.
type Policy struct {
	// BaseDelay is the wait after the first failed attempt.
	BaseDelay time.Duration
	// MaxRetries is the number of retries after the initial attempt; an item
	// may therefore be attempted MaxRetries+1 times before it is terminal.
	MaxRetries int
}

// DefaultPolicy matches the production schedule: 2, 4, 8, and 16 minute waits.
func DefaultPolicy() Policy {
	return Policy{BaseDelay: 2 * time.Minute, MaxRetries: 3}
}

// Delay returns the wait before retry number attempt+1. It is a pure function
// of the attempt counter: delay = BaseDelay * 2^attempt.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
	}
	return delay
}

// Exhausted reports whether an item with the given retry count has no budget
// left for another attempt.
func (p Policy) Exhausted(retryCount int) bool {
	return retryCount > p.MaxRetries
}

// Retryable is implemented by errors that know whether another attempt could
// succeed. Errors without the method are treated as retryable.
type Retryable interface {
	Retryable() bool
}

// Do runs op, retrying per the policy while the returned error is retryable.
// The wait between attempts honors ctx cancellation. The last error is
// returned once the budget is spent or a non-retryable error occurs.
func Do(ctx context.Context, policy Policy, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		var r Retryable
		if errors.As(lastErr, &r) && !r.Retryable() {
			return lastErr
		}
		if attempt >= policy.MaxRetries {
			return lastErr
		}
		timer := time.NewTimer(policy.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
