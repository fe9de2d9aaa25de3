package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const healthTimeout = 2 * time.Second

// ErrSchemaMissing means the database answers but migrations have not created
// the tables the service reads.
var ErrSchemaMissing = errors.New("database schema is missing tables")

// RequiredTables are the relations the order and discount adapters query.
var RequiredTables = []string{
	"customers", "products", "orders", "order_items",
	"refunds", "wishlist_items", "discounts", "idempotency_keys",
}

// CheckHealth pings the pool within a short deadline.
func CheckHealth(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	return pool.Ping(ctx)
}

// CheckReady pings the pool and verifies that every required table exists.
func CheckReady(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	var missing []string
	err := pool.QueryRow(ctx, `
		SELECT COALESCE(array_agg(t), '{}')
		FROM unnest($1::text[]) AS t
		WHERE to_regclass('public.' || t) IS NULL
	`, RequiredTables).Scan(&missing)
	if err != nil {
		return fmt.Errorf("inspect schema: %w", err)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrSchemaMissing, strings.Join(missing, ", "))
	}
	return nil
}
