package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dukerupert/larder/internal/database"
)

func TestConcurrentLeaveDeletesEmptiedHouseholdOnce(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "larder.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	hs := NewHouseholdStore(db)
	alice := mustRegister(t, hs, "alice")
	bob := mustRegister(t, hs, "bob")
	shared, _ := hs.GetByID(ctx, alice.HouseholdID)
	if _, err := hs.Join(ctx, bob.ID, shared.JoinCode); err != nil {
		t.Fatalf("join: %v", err)
	}

	var wg sync.WaitGroup
	changes := make([]MembershipChange, 2)
	errs := make([]error, 2)
	for i, uid := range []int64{alice.ID, bob.ID} {
		wg.Add(1)
		go func(i int, uid int64) {
			defer wg.Done()
			changes[i], errs[i] = hs.Leave(ctx, uid)
		}(i, uid)
	}
	wg.Wait()

	deleted := 0
	for i := range errs {
		if errs[i] != nil {
			t.Fatalf("leave %d: %v", i, errs[i])
		}
		if changes[i].PreviousDeleted {
			deleted++
		}
	}
	if deleted != 1 {
		t.Errorf("shared household deleted %d times, want exactly 1", deleted)
	}
	if h, _ := hs.GetByID(ctx, shared.ID); h != nil {
		t.Error("expected the emptied household to be gone")
	}
	empty := countRows(t, db,
		`SELECT COUNT(*) FROM households h WHERE NOT EXISTS (SELECT 1 FROM users u WHERE u.household_id = h.id)`)
	if empty != 0 {
		t.Errorf("%d households with zero members", empty)
	}
}

func TestConcurrentToggleArchiveMergesOnce(t *testing.T) {
	db, err := database.Open(filepath.Join(t.TempDir(), "larder.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	u := mustRegister(t, NewHouseholdStore(db), "alice")
	lists := NewShoppingListStore(db)
	milk := mustItem(t, db, "Milk")
	list, err := lists.Create(ctx, u.HouseholdID, "Weekly", "", []int64{milk})
	if err != nil {
		t.Fatalf("create list: %v", err)
	}
	if _, err := lists.TogglePurchased(ctx, u.HouseholdID, list.ID, milk); err != nil {
		t.Fatalf("toggle purchased: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]*ArchiveResult, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = lists.ToggleArchive(ctx, u.HouseholdID, list.ID)
		}(i)
	}
	wg.Wait()

	merged := 0
	for i := range errs {
		if errs[i] != nil {
			t.Fatalf("toggle %d: %v", i, errs[i])
		}
		merged += len(results[i].Merged)
	}
	if merged != 1 {
		t.Errorf("merged %d times, want 1", merged)
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM fridge_entries WHERE household_id = ?`, u.HouseholdID); n != 1 {
		t.Errorf("fridge rows = %d, want 1", n)
	}
}
