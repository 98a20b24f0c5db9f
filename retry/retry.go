// Package retry executes operations with bounded retry and exponential
// backoff. Classification of what is worth retrying belongs to the
// caller via Policy.Retryable; the engine itself retries everything.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

const (
	defaultMinTimeout = 1 * time.Second
	defaultMaxTimeout = 30 * time.Second

	// jitterFraction bounds the random scaling applied to each backoff
	// delay: delay * (1 + j) with j in [0, jitterFraction).
	jitterFraction = 0.1
)

// Policy controls how an operation is retried
type Policy struct {
	// MaxAttempts is the number of additional attempts after the first.
	// Zero means exactly one attempt.
	MaxAttempts int

	// MinTimeout is the delay before the first retry; defaults to 1s
	MinTimeout time.Duration

	// MaxTimeout caps the exponential delay growth; defaults to 30s
	MaxTimeout time.Duration

	// Jitter randomly scales each delay by [1, 1.1) to avoid synchronized
	// retry storms
	Jitter bool

	// Retryable, when set, decides per error whether another attempt is
	// made. When nil every error is retried up to the attempt budget.
	Retryable func(error) bool

	// OnRetry, when set, observes each failed attempt that will be
	// retried. It is not invoked for the final failure.
	OnRetry func(*AttemptError)
}

// AttemptError annotates a failed attempt for the OnRetry callback
type AttemptError struct {
	// Err is the error the attempt produced
	Err error

	// Attempt is the 1-indexed number of the attempt that just failed
	Attempt int

	// RetriesLeft is how many attempts remain after this failure
	RetriesLeft int
}

func (e *AttemptError) Error() string {
	return fmt.Sprintf("attempt %d failed, %d retries left: %v", e.Attempt, e.RetriesLeft, e.Err)
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

// Do runs op until it succeeds, the attempt budget is exhausted, the
// policy predicate rejects an error, or ctx is cancelled during a backoff
// wait. The error of the final attempt is returned unchanged; a predicate
// rejection returns the rejected error unchanged. Backoff suspends only
// this call, never other goroutines.
func Do[T any](ctx context.Context, policy Policy, op func() (T, error)) (T, error) {
	var zero T

	attempts := policy.MaxAttempts + 1
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := op()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		if policy.Retryable != nil && !policy.Retryable(err) {
			return zero, err
		}
		if policy.OnRetry != nil {
			policy.OnRetry(&AttemptError{
				Err:         err,
				Attempt:     attempt,
				RetriesLeft: attempts - attempt,
			})
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(policy.backoff(attempt - 1)):
		}
	}

	return zero, lastErr
}

// backoff computes the delay before retry k (0-indexed): the doubled
// minimum, capped at the maximum, then scaled by [1, 1.1) when jitter is
// enabled. The cap applies before jitter, so a jittered delay may exceed
// MaxTimeout by up to 10%.
func (p Policy) backoff(k int) time.Duration {
	min := p.MinTimeout
	if min <= 0 {
		min = defaultMinTimeout
	}
	max := p.MaxTimeout
	if max <= 0 {
		max = defaultMaxTimeout
	}

	delay := min
	for i := 0; i < k && delay < max; i++ {
		delay *= 2
	}
	if delay > max {
		delay = max
	}
	if p.Jitter {
		delay = time.Duration(float64(delay) * (1 + rand.Float64()*jitterFraction))
	}
	return delay
}
