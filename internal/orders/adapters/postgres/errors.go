package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dejobratic/petstore/internal/database"
	"github.com/dejobratic/petstore/internal/orders/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// wrap annotates err with the failed operation and tags transient failures
// with ports.ErrTransient so the application can decide whether to retry.
func wrap(operation string, err error) error {
	if err == nil {
		return nil
	}
	if database.IsTransient(err) {
		return fmt.Errorf("%s: %w: %w", operation, ports.ErrTransient, err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}

// observed wraps err and records the query duration under the snake_case
// form of operation.
func observed(ctx context.Context, metrics *database.Metrics, operation string, start time.Time, err error) error {
	metrics.RecordQuery(ctx, strings.ReplaceAll(operation, " ", "_"), start, err)
	return wrap(operation, err)
}
