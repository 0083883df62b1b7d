package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	err = db.RunMigrations()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// TestMigrations verifies that migrations run successfully
func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	for _, table := range []string{"activity_log", "submissions", "schema_migrations"} {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err, "failed to query table %s", table)
		require.Equal(t, 1, count, "table %s not found", table)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	db := NewTestDB(t)
	require.NoError(t, db.RunMigrations())
}

func TestMigrationStatus(t *testing.T) {
	db, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	status, err := db.MigrationStatus()
	require.NoError(t, err)
	require.Equal(t, uint(0), status.CurrentVersion)
	require.Equal(t, uint(1), status.LatestVersion)
	require.True(t, status.Pending)

	require.NoError(t, db.RunMigrations())

	status, err = db.MigrationStatus()
	require.NoError(t, err)
	require.Equal(t, uint(1), status.CurrentVersion)
	require.False(t, status.Pending)
	require.False(t, status.Dirty)
}

func TestSubmissionsStateConstraint(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx,
		`INSERT INTO submissions (id, investor, company_id, company_name, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, datetime('now'), datetime('now'))`,
		"s1", "0xabc", 1, "Acme", "lost")
	require.Error(t, err)
}
