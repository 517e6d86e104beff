package checker

import (
	"context"
	"time"
)

// RetryPolicy configures how navigation attempts are repeated.
type RetryPolicy struct {
	MaxRetries int           // Retries after the first attempt (2 = 3 total attempts)
	BaseDelay  time.Duration // Delay before the first retry; 0 retries immediately
	MaxDelay   time.Duration // Backoff cap
}

// DefaultMaxDelay caps exponential backoff between attempts.
const DefaultMaxDelay = 30 * time.Second

// PolicyFromOptions derives the policy from scan options.
func PolicyFromOptions(maxRetries int, baseDelay time.Duration) RetryPolicy {
	return RetryPolicy{
		MaxRetries: maxRetries,
		BaseDelay:  baseDelay,
		MaxDelay:   DefaultMaxDelay,
	}
}

// Delay returns the backoff before the given retry (1-based). The delay
// doubles on every retry up to MaxDelay.
func (p RetryPolicy) Delay(retry int) time.Duration {
	if p.BaseDelay <= 0 || retry < 1 {
		return 0
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}

	delay := p.BaseDelay
	for i := 1; i < retry; i++ {
		delay *= 2
		if delay >= maxDelay {
			return maxDelay
		}
	}
	return min(delay, maxDelay)
}

// Wait sleeps for the backoff before the given retry, returning early with
// the context error if ctx is done first.
func (p RetryPolicy) Wait(ctx context.Context, retry int) error {
	delay := p.Delay(retry)
	if delay == 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
