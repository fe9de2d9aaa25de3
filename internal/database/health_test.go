//go:build integration

package database_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dejobratic/petstore/internal/database"
	"github.com/dejobratic/petstore/internal/database/dbtest"
)

func TestCheckReady(t *testing.T) {
	pool := dbtest.NewPool(t)
	ctx := context.Background()

	if err := database.CheckReady(ctx, pool); err != nil {
		t.Fatalf("expected migrated database to be ready, got %v", err)
	}

	if _, err := pool.Exec(ctx, `DROP TABLE idempotency_keys`); err != nil {
		t.Fatalf("failed to drop table: %v", err)
	}

	err := database.CheckReady(ctx, pool)
	if !errors.Is(err, database.ErrSchemaMissing) {
		t.Fatalf("expected ErrSchemaMissing, got %v", err)
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	pool := dbtest.NewPool(t)

	result, err := database.RunMigrations(pool.Config().ConnString(), dbtest.MigrationsDir(t))
	if err != nil {
		t.Fatalf("RunMigrations() failed: %v", err)
	}
	if result.Applied {
		t.Error("expected no migrations to be applied on an up-to-date schema")
	}
	if result.Version != 1 {
		t.Errorf("expected schema version 1, got %d", result.Version)
	}
}
