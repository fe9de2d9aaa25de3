package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/dejobratic/petstore/internal/orders/domain"
	"github.com/dejobratic/petstore/internal/orders/ports"
	"github.com/dejobratic/petstore/internal/retry"
)

// RetryConfig bounds how often a transactional command is re-run after a
// transient storage fault. NewBackOff is called once per command execution;
// backoff schedules are stateful and must not be shared between requests.
type RetryConfig struct {
	MaxAttempts int
	NewBackOff  func() backoff.BackOff
}

// DefaultRetryConfig retries up to three times with a short exponential wait.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: retry.DefaultMaxAttempts,
		NewBackOff:  retry.Exponential(50 * time.Millisecond),
	}
}

func (c RetryConfig) policy(logger *slog.Logger, operation string) retry.Policy {
	var b backoff.BackOff
	if c.NewBackOff != nil {
		b = c.NewBackOff()
	}
	return retry.Policy{
		MaxAttempts: c.MaxAttempts,
		BackOff:     b,
		Retryable:   isTransient,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			logger.Warn("transient storage failure, retrying",
				"operation", operation,
				"attempt", attempt,
				"wait", wait,
				"error", err,
			)
		},
	}
}

func isTransient(err error) bool {
	return errors.Is(err, ports.ErrTransient)
}

// inTransaction runs fn in a fresh session per attempt and commits when fn
// succeeds. Every failed attempt is rolled back before the next one starts.
func inTransaction(
	ctx context.Context,
	store ports.Store,
	policy retry.Policy,
	logger *slog.Logger,
	fn func(ctx context.Context, session ports.Session, attempt int) error,
) (int, error) {
	return retry.Do(ctx, policy, func(ctx context.Context, attempt int) error {
		session, err := store.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer func() {
			if err := session.Rollback(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("rollback failed", "attempt", attempt, "error", err)
			}
		}()

		if err := fn(ctx, session, attempt); err != nil {
			return err
		}

		if err := session.Commit(ctx); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	})
}

// classify maps a transactional failure onto the error taxonomy: exhausted
// transient faults become *domain.StorageError, domain errors and not-found
// pass through, anything else is wrapped as unexpected.
func classify(err error) error {
	var exhausted *retry.ExhaustedError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &exhausted):
		return &domain.StorageError{Attempts: exhausted.Attempts, Err: exhausted.Err}
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrBusinessRule),
		errors.Is(err, domain.ErrForbidden),
		errors.Is(err, ports.ErrNotFound):
		return err
	default:
		return fmt.Errorf("%w: %w", domain.ErrUnexpected, err)
	}
}
