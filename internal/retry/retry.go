// Package retry provides a reusable retry policy with exponential backoff.
package retry

import (
	"context"
	"time"
)

// Policy configures how an operation is retried. The zero value is not
// useful; use Default or fill the fields explicitly.
type Policy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
	// BaseDelay is the sleep before the second attempt; it doubles after
	// each failure.
	BaseDelay time.Duration
	// Retryable decides whether an error is worth another attempt. A nil
	// predicate retries every error.
	Retryable func(error) bool
	// Sleep is overridable for tests. A nil Sleep waits with a timer and
	// honors context cancellation.
	Sleep func(context.Context, time.Duration) error
}

// Default returns the standard policy: three attempts, 500ms base delay.
func Default(retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		Retryable:   retryable,
	}
}

// Do runs op under the policy and returns its last result. Backoff sleeps
// check ctx each iteration so a caller-supplied deadline bounds the total
// delay. After exhausting attempts the last operation error is returned
// unchanged.
func Do[T any](ctx context.Context, p Policy, op func(context.Context) (T, error)) (T, error) {
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var (
		result T
		err    error
	)
	delay := p.BaseDelay
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			if serr := sleep(ctx, delay); serr != nil {
				return result, serr
			}
			delay *= 2
		}
		result, err = op(ctx)
		if err == nil {
			return result, nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return result, err
		}
	}
	return result, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
