// Package store is the sole custodian of job state (spec.md §4.1). It
// exposes atomic claim, status-transition, and listing operations over a
// SQLite-backed jobs table.
//
// Grounded on internal/storage/sql/connection.go's NewStore/runMigrations
// pair: open the driver, configure the pool, run goose migrations from an
// embedded filesystem. The teacher supports both pgx (Postgres) and
// modernc.org/sqlite; this engine is explicitly single-node (spec.md
// Non-goals: "distributed multi-node coordination") so only the SQLite
// driver is wired — see DESIGN.md for why the Postgres driver was dropped.
package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Config holds connection-pool configuration for the store.
type Config struct {
	// Path is the SQLite database file path, or ":memory:" for an
	// in-memory store (tests).
	Path            string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// Open opens (creating if necessary) the SQLite-backed store at cfg.Path,
// applies recommended pragmas, runs migrations, and returns a ready Store.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)", cfg.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	maxOpenConns := cfg.MaxOpenConns
	if maxOpenConns <= 0 {
		// SQLite allows only one writer at a time; a single shared
		// connection serializes writers the way spec.md §5 requires
		// ("the Store MUST serialize mutating operations internally")
		// without the engine needing its own locking layer.
		maxOpenConns = 1
	}
	db.SetMaxOpenConns(maxOpenConns)

	connMaxLifetime := cfg.ConnMaxLifetime
	if connMaxLifetime <= 0 {
		connMaxLifetime = 5 * time.Minute
	}
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func runMigrations(db *sql.DB) error {
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	goose.SetBaseFS(embedMigrations)
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
