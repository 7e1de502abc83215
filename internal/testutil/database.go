// Package testutil provides shared fixtures for tests that need a real,
// migrated database.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/Veraticus/spice-sms/internal/storage"
)

// CategorySpec describes a category to seed on top of the default set.
type CategorySpec struct {
	Name string
	Type model.CategoryType
}

// TestDB is a migrated in-memory database with its categories indexed by name.
type TestDB struct {
	Storage    *storage.SQLiteStorage
	t          *testing.T
	categories map[string]model.Category
}

// SetupTestDB creates a new in-memory test database, seeding extra categories
// after the defaults. It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t,
//		testutil.CategorySpec{Name: "Pets", Type: model.CategoryTypeExpense},
//	)
func SetupTestDB(t *testing.T, extra ...CategorySpec) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(storage.MemoryPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	for _, spec := range extra {
		if _, err := store.CreateCategory(ctx, spec.Name, spec.Type); err != nil {
			t.Fatalf("failed to seed category %q: %v", spec.Name, err)
		}
	}

	db := &TestDB{Storage: store, t: t}
	db.Reload()
	return db
}

// Reload refreshes the category index after categories change.
func (db *TestDB) Reload() {
	db.t.Helper()

	categories, err := db.Storage.GetCategories(context.Background())
	if err != nil {
		db.t.Fatalf("failed to load categories: %v", err)
	}
	db.categories = make(map[string]model.Category, len(categories))
	for _, c := range categories {
		db.categories[c.Name] = c
	}
}

// MustGetCategory returns the active category with the given name or fails the test.
func (db *TestDB) MustGetCategory(name string) model.Category {
	db.t.Helper()

	c, ok := db.categories[name]
	if !ok {
		db.t.Fatalf("category %q not found", name)
	}
	return c
}
