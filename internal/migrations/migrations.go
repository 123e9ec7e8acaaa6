// Package migrations holds the schema migrations for identity records.
package migrations

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/migrate"
)

// Migrations is the registry every migration file adds itself to
var Migrations = migrate.NewMigrations()

// IsSQLite checks if the database is SQLite
func IsSQLite(db *bun.DB) bool {
	return db.Dialect().Name() == dialect.SQLite
}

// IsPostgreSQL checks if the database is PostgreSQL
func IsPostgreSQL(db *bun.DB) bool {
	return db.Dialect().Name() == dialect.PG
}

// Run creates the migration tables when missing and applies every
// pending migration. It returns the id of the applied group, zero when
// nothing was pending.
func Run(ctx context.Context, db *bun.DB) (int64, error) {
	migrator := migrate.NewMigrator(db, Migrations)

	if err := migrator.Init(ctx); err != nil {
		return 0, fmt.Errorf("failed to initialize migrator: %w", err)
	}

	if err := migrator.Lock(ctx); err != nil {
		return 0, fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() { _ = migrator.Unlock(ctx) }()

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return 0, fmt.Errorf("migration failed: %w", err)
	}

	return group.ID, nil
}

// Rollback reverts the last applied migration group
func Rollback(ctx context.Context, db *bun.DB) (int64, error) {
	migrator := migrate.NewMigrator(db, Migrations)

	if err := migrator.Lock(ctx); err != nil {
		return 0, fmt.Errorf("failed to acquire migration lock: %w", err)
	}
	defer func() { _ = migrator.Unlock(ctx) }()

	group, err := migrator.Rollback(ctx)
	if err != nil {
		return 0, fmt.Errorf("rollback failed: %w", err)
	}

	return group.ID, nil
}

// Status lists every migration with its applied group, zero when pending
func Status(ctx context.Context, db *bun.DB) (migrate.MigrationSlice, error) {
	migrator := migrate.NewMigrator(db, Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize migrator: %w", err)
	}
	return migrator.MigrationsWithStatus(ctx)
}
