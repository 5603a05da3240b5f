package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/dukerupert/larder/internal/database"
	"github.com/dukerupert/larder/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func mustRegister(t *testing.T, hs *HouseholdStore, username string) *model.User {
	t.Helper()
	u, err := hs.Register(context.Background(), RegisterParams{
		Username:  username,
		Email:     username + "@example.com",
		FirstName: username,
		LastName:  "Tester",
	})
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return u
}

func mustItem(t *testing.T, db *sql.DB, name string) int64 {
	t.Helper()
	item, err := NewItemStore(db).Create(context.Background(), name)
	if err != nil {
		t.Fatalf("create item %s: %v", name, err)
	}
	return item.ID
}

func countRows(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("count %q: %v", query, err)
	}
	return n
}

// fixedCodes returns a join code generator that yields codes in order.
func fixedCodes(codes ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		if i >= len(codes) {
			return "", fmt.Errorf("fixedCodes: exhausted after %d codes", len(codes))
		}
		code := codes[i]
		i++
		return code, nil
	}
}
