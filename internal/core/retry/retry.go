// Package retry implements the backoff engine used for lock
// acquisition, API calls, helper health polls and realtime reconnects.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jonboulle/clockwork"
)

// Growth selects how the delay progresses between retries.
type Growth int

const (
	// GrowthExponential doubles the delay after every retry.
	GrowthExponential Growth = iota
	// GrowthLinear grows the delay by BaseDelay after every retry.
	GrowthLinear
)

// Policy describes a retry budget. MaxAttempts counts retries after the
// first try, so an operation runs at most MaxAttempts+1 times. Policy
// is a value: callers hold their own copy and nothing is shared.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Growth      Growth
	MaxDelay    time.Duration // 0 means uncapped
}

// Delay returns the wait before retry i (0-indexed): BaseDelay*2^i for
// exponential growth, BaseDelay*(i+1) for linear.
func (p Policy) Delay(retry int) time.Duration {
	var delay time.Duration
	switch p.Growth {
	case GrowthLinear:
		delay = p.BaseDelay * time.Duration(retry+1)
	default:
		delay = time.Duration(float64(p.BaseDelay) * math.Pow(2, float64(retry)))
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// ExhaustedError wraps the last failure once the budget is spent. The
// attempt count covers every invocation including the first.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// Always treats every failure as retryable.
func Always(error) bool { return true }

// Do runs op until it succeeds, fails non-retryably, or exhausts the
// policy. A non-retryable failure is returned unmodified on its first
// occurrence with no delay. Delays come from clock so tests can drive
// them; cancelling ctx during a delay returns ctx.Err().
func Do[T any](ctx context.Context, clock clockwork.Clock, policy Policy, retryable func(error) bool, op func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	attempts := policy.MaxAttempts + 1
	for attempt := 0; attempt < attempts; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if !retryable(err) {
			return zero, err
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-clock.After(policy.Delay(attempt)):
		}
	}

	return zero, &ExhaustedError{Attempts: attempts, Err: lastErr}
}

// Run is Do for operations without a result.
func Run(ctx context.Context, clock clockwork.Clock, policy Policy, retryable func(error) bool, op func(context.Context) error) error {
	_, err := Do(ctx, clock, policy, retryable, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}
