// Package testutil provides test utilities and helpers.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"instaguard/internal/db"
)

// ModelPath returns the test model artifact relative to a package directory
// depth levels below the module root.
func ModelPath(depth int) string {
	parts := make([]string, 0, depth+4)
	for i := 0; i < depth; i++ {
		parts = append(parts, "..")
	}
	return filepath.Join(append(parts, "internal", "classifier", "testdata", "hybrid_model.json")...)
}

// SQLiteStore opens a fresh SQLite store in a temp directory. It is closed
// when the test ends.
func SQLiteStore(t *testing.T) *db.SQLiteStore {
	t.Helper()

	store, err := db.OpenSQLite(filepath.Join(t.TempDir(), "instaguard_test.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

// PostgresStore connects to TEST_DATABASE_URL, runs migrations and empties the
// tables. The test is skipped when the variable is unset.
func PostgresStore(t *testing.T) *db.DB {
	t.Helper()

	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database test")
	}

	ctx := context.Background()
	database, err := db.New(ctx, connString)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	// Run migrations
	if err := database.RunMigrations(connString); err != nil {
		database.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	cleanup := func() {
		// decisions is append-only; TRUNCATE bypasses the row trigger
		database.Pool.Exec(ctx, "TRUNCATE decisions, users")
	}
	cleanup()
	t.Cleanup(func() {
		cleanup()
		database.Close()
	})
	return database
}
