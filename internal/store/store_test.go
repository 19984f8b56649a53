package store

import (
	"testing"

	"github.com/dukerupert/nestmate/internal/database"
)

func setupTestDB(t *testing.T) *Cache {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewCache(db)
}
