// Package testutil provides test helpers for payflow: in-memory stores,
// record fixtures and spreadsheet files.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/payflow/internal/model"
	"github.com/Veraticus/payflow/internal/storage"
)

// TestDB represents a migrated in-memory test database.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// SetupTestDB creates a new in-memory test database. It handles migrations
// and cleanup.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(storage.MemoryPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// SeedFacts stores facts or fails the test.
func (db *TestDB) SeedFacts(facts ...model.FactRecord) {
	db.t.Helper()
	if err := db.Storage.AddFacts(context.Background(), facts); err != nil {
		db.t.Fatalf("failed to seed facts: %v", err)
	}
}

// SeedPolicies stores policy snapshots or fails the test.
func (db *TestDB) SeedPolicies(policies ...model.PolicySnapshot) {
	db.t.Helper()
	if err := db.Storage.AddPolicies(context.Background(), policies); err != nil {
		db.t.Fatalf("failed to seed policies: %v", err)
	}
}
