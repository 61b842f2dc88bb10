package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLite_CreatesUsersTable(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "users.sqlite")

	sqlDB, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer sqlDB.Close()

	_, err = sqlDB.ExecContext(ctx,
		`INSERT INTO users (username, password_hash) VALUES (?, ?)`, "bob", "hash")
	require.NoError(t, err)

	var city *string
	err = sqlDB.QueryRowContext(ctx,
		`SELECT last_city FROM users WHERE username = ?`, "bob").Scan(&city)
	require.NoError(t, err)
	assert.Nil(t, city)
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()

	sqlDB, err := OpenSQLite(ctx, MemorySQLite)
	require.NoError(t, err)
	defer sqlDB.Close()

	require.NoError(t, Migrate(ctx, sqlDB, goose.DialectSQLite3))
}
