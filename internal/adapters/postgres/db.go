package postgres

import (
	"EventRelay/internal/shared/config"
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// DB is the journal's connection pool.
type DB struct {
	pool        *pgxpool.Pool
	pingTimeout time.Duration
	log         zerolog.Logger
}

// journalPoolConfig parses cfg.URL and sizes the pool for the journal.
// The sink appends from a single goroutine, so MinConns stays at one.
func journalPoolConfig(cfg config.PostgresConfig) (*pgxpool.Config, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse journal database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	poolConfig.MinConns = 1
	if cfg.ConnectTimeout > 0 {
		poolConfig.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "event_journal"
	return poolConfig, nil
}

// NewDB opens the journal pool and checks that the database answers.
func NewDB(ctx context.Context, cfg config.PostgresConfig, baseLogger *zerolog.Logger) (*DB, error) {
	log := baseLogger.With().Str("component", "journal_db").Logger()

	poolConfig, err := journalPoolConfig(cfg)
	if err != nil {
		log.Error().Err(err).Msg("Invalid journal database configuration")
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create connection pool")
		return nil, err
	}

	db := &DB{pool: pool, pingTimeout: poolConfig.ConnConfig.ConnectTimeout, log: log}
	if err := db.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	log.Info().
		Int32("max_conns", poolConfig.MaxConns).
		Msg("Journal database pool established")
	return db, nil
}

// Ping reports whether the journal database is reachable, waiting at most
// the configured connect timeout.
func (db *DB) Ping(ctx context.Context) error {
	if db.pingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, db.pingTimeout)
		defer cancel()
	}
	if err := db.pool.Ping(ctx); err != nil {
		db.log.Error().Err(err).Msg("Journal database unreachable")
		return fmt.Errorf("ping journal database: %w", err)
	}
	return nil
}

// Close releases the pool.
func (db *DB) Close() {
	db.log.Info().Msg("Closing journal database pool")
	db.pool.Close()
}
