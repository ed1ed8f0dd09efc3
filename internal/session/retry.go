package session

import (
	"context"
	"time"
)

// Retry is a fixed-delay retry policy.
type Retry struct {
	// MaxAttempts is the total number of tries, not the number of repeats.
	// Zero or less means a single attempt.
	MaxAttempts int

	// Delay is the pause between attempts.
	Delay time.Duration

	// OnRetry, when set, observes each repeat attempt before its delay,
	// with the error that caused it.
	OnRetry func(attempt int, err error)
}

// Do runs fn until it succeeds, retryable rejects its error, ctx ends
// during a pause, or MaxAttempts is exhausted. The last error is returned.
// A nil retryable treats every error as transient.
func (r Retry) Do(ctx context.Context, retryable func(error) bool, fn func(context.Context) error) error {
	attempts := r.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if r.OnRetry != nil {
				r.OnRetry(attempt, err)
			}
			if serr := sleepCtx(ctx, r.Delay); serr != nil {
				return serr
			}
		}
		err = fn(ctx)
		if err == nil || (retryable != nil && !retryable(err)) {
			return err
		}
	}
	return err
}

// sleepCtx pauses for d or until ctx is done, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
