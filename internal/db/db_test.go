package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenAndMigrate(t *testing.T) {
	database, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, Migrate(database))

	// Migrations are idempotent.
	require.NoError(t, Migrate(database))

	for _, table := range []string{"users", "user_groups", "user_contacts"} {
		var name string
		err := database.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}

func TestOpenInMemory(t *testing.T) {
	database, err := Open(":memory:")
	require.NoError(t, err)
	defer database.Close()

	require.NoError(t, Migrate(database))

	_, err = database.Exec(
		"INSERT INTO users (uuid, email, password) VALUES (?, ?, ?)",
		"00000000-0000-0000-0000-000000000001", "test@example.com", "x",
	)
	require.NoError(t, err)
}
