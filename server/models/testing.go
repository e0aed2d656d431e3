package models

import (
	"testing"

	"github.com/Daskott/safenest/shared"
)

// InitializeTestDb opens & migrates a fresh encrypted sqlite db in a temp dir.
// The db is closed when the test finishes.
func InitializeTestDb(t testing.TB) *Store {
	t.Helper()

	store, err := Open(shared.DatabaseConfig{Type: SQLITE_DB}, shared.SqliteConfig{PassPhrase: "passphrase"}, t.TempDir())
	if err != nil {
		t.Fatalf("unable to open test db: %v", err)
	}

	err = store.AutoMigrate()
	if err != nil {
		t.Fatalf("unable to migrate test db: %v", err)
	}

	t.Cleanup(func() { store.Close() })

	return store
}
