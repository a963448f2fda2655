package sqlite

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/gaitlab/stride.report/internal/db"
)

// setupRunStoreTestDB creates a temporary database with the full migrated
// schema. Using the real migrations keeps tests from drifting out of sync
// with the production schema.
func setupRunStoreTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	database, err := db.NewDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := database.MigrateUp(); err != nil {
		database.Close()
		t.Fatalf("Failed to migrate database: %v", err)
	}

	cleanup := func() {
		database.Close()
	}
	return database.DB, cleanup
}
