//go:build integration

// Package dbtest starts a migrated Postgres container for integration tests.
package dbtest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dejobratic/petstore/internal/database"
	"github.com/jackc/pgx/v5/pgxpool"
	testpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// NewPool starts postgres:16-alpine, applies the repository migrations and
// returns a pool that is closed, with the container, when the test ends.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := testpostgres.Run(ctx,
		"postgres:16-alpine",
		testpostgres.WithDatabase("test"),
		testpostgres.WithUsername("test"),
		testpostgres.WithPassword("test"),
		testpostgres.BasicWaitStrategies(),
		testpostgres.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	if _, err := database.RunMigrations(connStr, MigrationsDir(t)); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	pool, err := database.NewPool(ctx, database.PoolConfig{URL: connStr})
	if err != nil {
		t.Fatalf("failed to create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return pool
}

// SeedProduct inserts a catalog row with the given stock and price.
func SeedProduct(t *testing.T, pool *pgxpool.Pool, id string, quantity int, price string) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO products (product_id, name, quantity, price) VALUES ($1, $1, $2, $3::text::numeric)`,
		id, quantity, price,
	)
	if err != nil {
		t.Fatalf("failed to seed product %s: %v", id, err)
	}
}

// SeedCustomer inserts a customer row.
func SeedCustomer(t *testing.T, pool *pgxpool.Pool, id, email string) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO customers (customer_id, email, name) VALUES ($1, $2, $1)`, id, email)
	if err != nil {
		t.Fatalf("failed to seed customer %s: %v", id, err)
	}
}

// MigrationsDir returns the repository migrations directory.
func MigrationsDir(t *testing.T) string {
	t.Helper()
	return filepath.Join(projectRoot(t), "migrations")
}

func projectRoot(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// SeedWishlist puts a product on a customer's wishlist. Repeated pairs are ignored.
func SeedWishlist(t *testing.T, pool *pgxpool.Pool, customerID, productID string) {
	t.Helper()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO wishlist_items (customer_id, product_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		customerID, productID)
	if err != nil {
		t.Fatalf("failed to seed wishlist item %s/%s: %v", customerID, productID, err)
	}
}
