// Package testutil provides database fixtures for tests.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/isdelr/microblog-be/internal/database"
	"github.com/stretchr/testify/require"
)

// NewSQLite opens a migrated in-memory SQLite database that is closed when
// the test ends.
func NewSQLite(t testing.TB) *database.DB {
	t.Helper()

	db, err := database.New(database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

// InsertUser writes a bare user row so tables referencing users can be filled
// without going through the services.
func InsertUser(t testing.TB, db *database.DB, id, username string) {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	_, err := db.Exec(
		"INSERT INTO users (id, username, email, password_hash, about_me, last_seen, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		id, username, username+"@example.com", "x", "", now, now)
	require.NoError(t, err)
}
