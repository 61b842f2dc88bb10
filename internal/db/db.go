package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// MemorySQLite opens a private in-memory sqlite database.
const MemorySQLite = ":memory:"

// OpenPostgres connects to postgres and applies migrations.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("db: open postgres: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("db: ping postgres: %w", err)
	}

	if err := Migrate(ctx, sqlDB, goose.DialectPostgres); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return sqlDB, nil
}

// OpenSQLite opens (or creates) a sqlite database at path and applies
// migrations. Parent directories are created as needed.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path != MemorySQLite {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("db: create sqlite dir: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("db: open sqlite: %w", err)
	}

	// one writer keeps sqlite from returning SQLITE_BUSY under concurrent
	// registrations; it also pins :memory: to a single connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if _, err := sqlDB.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("db: sqlite pragma: %w", err)
	}

	if err := Migrate(ctx, sqlDB, goose.DialectSQLite3); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return sqlDB, nil
}
