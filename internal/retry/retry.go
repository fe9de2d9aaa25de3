// Package retry runs an operation a bounded number of times, retrying only
// the failures a caller-supplied predicate marks as retryable.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const DefaultMaxAttempts = 3

// Operation is one attempt. attempt starts at 1.
type Operation func(ctx context.Context, attempt int) error

// Policy bounds and classifies retries.
type Policy struct {
	MaxAttempts int
	Retryable   func(err error) bool
	// BackOff is reset and advanced by Do, so each call needs its own.
	BackOff backoff.BackOff
	// OnRetry is called before waiting for the next attempt.
	OnRetry func(attempt int, err error, wait time.Duration)
}

// ExhaustedError is returned when every attempt failed with a retryable error.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// ExponentialBackOff returns the default wait schedule starting at initial.
func ExponentialBackOff(initial time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = 2 * time.Second
	return b
}

// Exponential returns a factory of independent ExponentialBackOff schedules.
func Exponential(initial time.Duration) func() backoff.BackOff {
	return func() backoff.BackOff { return ExponentialBackOff(initial) }
}

// Do invokes op until it succeeds, fails with a non-retryable error, or has
// run MaxAttempts times. Non-retryable errors are returned unchanged after a
// single attempt; exhaustion yields *ExhaustedError wrapping the last error.
// It returns the number of attempts made.
func Do(ctx context.Context, policy Policy, op Operation) (int, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}

	retryable := policy.Retryable
	if retryable == nil {
		retryable = func(error) bool { return false }
	}

	b := policy.BackOff
	if b == nil {
		b = ExponentialBackOff(50 * time.Millisecond)
	}

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		if err := op(ctx, attempt); err != nil {
			if !retryable(err) {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(maxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			if policy.OnRetry != nil {
				policy.OnRetry(attempt, err, wait)
			}
		}),
	)
	if err == nil {
		return attempt, nil
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Err
	}

	if retryable(err) {
		return attempt, &ExhaustedError{Attempts: attempt, Err: err}
	}
	return attempt, err
}
