package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/dejobratic/petstore/internal/retry"
)

var errFlaky = errors.New("connection reset")

func isFlaky(err error) bool {
	return errors.Is(err, errFlaky)
}

func testPolicy(maxAttempts int) retry.Policy {
	return retry.Policy{
		MaxAttempts: maxAttempts,
		Retryable:   isFlaky,
		BackOff:     &backoff.ZeroBackOff{},
	}
}

func TestDo(t *testing.T) {
	t.Run("returns after first success", func(t *testing.T) {
		calls := 0
		attempts, err := retry.Do(context.Background(), testPolicy(3), func(ctx context.Context, attempt int) error {
			calls++
			return nil
		})

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if calls != 1 || attempts != 1 {
			t.Errorf("expected 1 call, got calls=%d attempts=%d", calls, attempts)
		}
	})

	t.Run("retries retryable errors until success", func(t *testing.T) {
		var seen []int
		attempts, err := retry.Do(context.Background(), testPolicy(3), func(ctx context.Context, attempt int) error {
			seen = append(seen, attempt)
			if attempt < 3 {
				return errFlaky
			}
			return nil
		})

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if attempts != 3 {
			t.Errorf("expected 3 attempts, got %d", attempts)
		}
		if len(seen) != 3 || seen[0] != 1 || seen[2] != 3 {
			t.Errorf("expected attempts numbered 1..3, got %v", seen)
		}
	})

	t.Run("does not retry non-retryable errors", func(t *testing.T) {
		terminal := errors.New("product not found")
		calls := 0
		attempts, err := retry.Do(context.Background(), testPolicy(3), func(ctx context.Context, attempt int) error {
			calls++
			return terminal
		})

		if !errors.Is(err, terminal) {
			t.Fatalf("expected terminal error, got %v", err)
		}
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			t.Error("non-retryable error must not be reported as exhaustion")
		}
		if calls != 1 || attempts != 1 {
			t.Errorf("expected exactly one attempt, got calls=%d attempts=%d", calls, attempts)
		}
	})

	t.Run("reports exhaustion wrapping the last cause", func(t *testing.T) {
		calls := 0
		attempts, err := retry.Do(context.Background(), testPolicy(3), func(ctx context.Context, attempt int) error {
			calls++
			return errFlaky
		})

		var exhausted *retry.ExhaustedError
		if !errors.As(err, &exhausted) {
			t.Fatalf("expected *ExhaustedError, got %T: %v", err, err)
		}
		if exhausted.Attempts != 3 || attempts != 3 || calls != 3 {
			t.Errorf("expected 3 attempts, got exhausted=%d attempts=%d calls=%d", exhausted.Attempts, attempts, calls)
		}
		if !errors.Is(err, errFlaky) {
			t.Error("expected exhaustion to wrap the last cause")
		}
	})

	t.Run("stops retrying once a terminal error follows a transient one", func(t *testing.T) {
		terminal := errors.New("insufficient stock")
		attempts, err := retry.Do(context.Background(), testPolicy(5), func(ctx context.Context, attempt int) error {
			if attempt == 1 {
				return errFlaky
			}
			return terminal
		})

		if !errors.Is(err, terminal) {
			t.Fatalf("expected terminal error, got %v", err)
		}
		if attempts != 2 {
			t.Errorf("expected 2 attempts, got %d", attempts)
		}
	})

	t.Run("defaults to three attempts", func(t *testing.T) {
		policy := testPolicy(0)
		calls := 0
		_, _ = retry.Do(context.Background(), policy, func(ctx context.Context, attempt int) error {
			calls++
			return errFlaky
		})

		if calls != retry.DefaultMaxAttempts {
			t.Errorf("expected %d calls, got %d", retry.DefaultMaxAttempts, calls)
		}
	})

	t.Run("without predicate nothing is retried", func(t *testing.T) {
		calls := 0
		_, err := retry.Do(context.Background(), retry.Policy{MaxAttempts: 3, BackOff: &backoff.ZeroBackOff{}}, func(ctx context.Context, attempt int) error {
			calls++
			return errFlaky
		})

		if !errors.Is(err, errFlaky) {
			t.Fatalf("expected original error, got %v", err)
		}
		if calls != 1 {
			t.Errorf("expected 1 call, got %d", calls)
		}
	})

	t.Run("notifies before each retry", func(t *testing.T) {
		var notified []int
		policy := testPolicy(3)
		policy.OnRetry = func(attempt int, err error, wait time.Duration) {
			notified = append(notified, attempt)
		}

		_, _ = retry.Do(context.Background(), policy, func(ctx context.Context, attempt int) error {
			return errFlaky
		})

		if len(notified) != 2 || notified[0] != 1 || notified[1] != 2 {
			t.Errorf("expected notifications after attempts 1 and 2, got %v", notified)
		}
	})

	t.Run("stops when context is cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		_, err := retry.Do(ctx, testPolicy(5), func(ctx context.Context, attempt int) error {
			calls++
			cancel()
			return errFlaky
		})

		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if calls != 1 {
			t.Errorf("expected 1 call before cancellation stopped retries, got %d", calls)
		}
	})
}
