// Package dbtest provides a migrated SQLite database for package tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/digkill/vidcrafter/internal/database"
)

// New returns a fresh, migrated database stored under the test's temp dir.
func New(t testing.TB) *sqlx.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "vidcrafter.db") + "?_foreign_keys=on&_busy_timeout=5000"
	db, err := database.Open("sqlite3", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}
