// Package database persists the trade journal and decision log to
// PostgreSQL. The database is an optional audit surface: the bot runs
// fully without it, so connection failures at startup are survivable.
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewDB creates a new database connection
func NewDB(cfg Config) (*DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// RunMigrations creates the journal tables if they do not exist yet
func (db *DB) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id UUID PRIMARY KEY,
			cycle_id UUID,
			ticker VARCHAR(10) NOT NULL,
			action VARCHAR(4) NOT NULL,
			price DECIMAL(20, 8) NOT NULL,
			quantity DECIMAL(20, 8) NOT NULL,
			notional DECIMAL(20, 8) NOT NULL,
			executed_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_ticker ON trades(ticker)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_executed_at ON trades(executed_at)`,

		`CREATE TABLE IF NOT EXISTS decisions (
			id SERIAL PRIMARY KEY,
			cycle_id UUID,
			ticker VARCHAR(10) NOT NULL,
			action VARCHAR(4) NOT NULL,
			reason TEXT,
			decided_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_ticker ON decisions(ticker)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_cycle ON decisions(cycle_id)`,

		`CREATE TABLE IF NOT EXISTS cycles (
			id UUID PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			finished_at TIMESTAMPTZ NOT NULL,
			tickers_scanned INTEGER NOT NULL DEFAULT 0,
			tickers_skipped INTEGER NOT NULL DEFAULT 0,
			trade_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
