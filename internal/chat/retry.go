package chat

import (
	"context"
	"time"
)

// BackoffPolicy describes a bounded exponential retry schedule. The sleep
// function is injectable so tests run without wall-clock delays.
type BackoffPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Sleep       func(time.Duration)
}

// DefaultBackoff matches the persistence retry contract: 3 attempts with
// exponential backoff from 200ms.
func DefaultBackoff() BackoffPolicy {
	return BackoffPolicy{MaxAttempts: 3, BaseDelay: 200 * time.Millisecond}
}

// Delay returns the wait before retrying after the given zero-based attempt.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	return p.BaseDelay << attempt
}

// Retry runs op until it succeeds, attempts are exhausted, or the context is
// done. Retries are synchronous and blocking from the caller's perspective.
func (p BackoffPolicy) Retry(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sleep(p.Delay(attempt))
	}
	return err
}
