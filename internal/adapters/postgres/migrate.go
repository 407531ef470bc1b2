package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Migrate applies every pending schema migration.
// goose needs database/sql, so the pool is wrapped for the duration.
func (db *DB) Migrate(ctx context.Context) error {
	migrations, err := fs.Sub(embedMigrations, "migrations")
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(db.pool)
	defer sqlDB.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, sqlDB, migrations)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		db.log.Error().Err(err).Msg("Failed to apply migrations")
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		db.log.Info().
			Str("migration", r.Source.Path).
			Dur("duration", r.Duration).
			Msg("Migration applied")
	}
	return nil
}
