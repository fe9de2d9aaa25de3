package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// ErrDirtySchema is returned when a previous migration failed halfway and the
// schema needs manual repair before the service can start.
var ErrDirtySchema = errors.New("database schema is dirty")

// MigrationResult reports the schema version after RunMigrations.
type MigrationResult struct {
	Version uint
	Applied bool
}

// RunMigrations applies pending up migrations from migrationsPath.
func RunMigrations(databaseURL, migrationsPath string) (MigrationResult, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("open database for migrations: %w", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return MigrationResult{}, fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return MigrationResult{}, fmt.Errorf("create migration instance: %w", err)
	}

	before, dirty, err := schemaVersion(migrator)
	if err != nil {
		return MigrationResult{}, err
	}
	if dirty {
		return MigrationResult{Version: before}, fmt.Errorf("%w at version %d", ErrDirtySchema, before)
	}

	if err := migrator.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return MigrationResult{Version: before}, fmt.Errorf("run migrations: %w", err)
	}

	after, _, err := schemaVersion(migrator)
	if err != nil {
		return MigrationResult{}, err
	}
	return MigrationResult{Version: after, Applied: after != before}, nil
}

func schemaVersion(m *migrate.Migrate) (uint, bool, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, dirty, nil
}
