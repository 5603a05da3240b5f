package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/larder/internal/model"
)

type FridgeStore struct {
	db *sql.DB
}

func NewFridgeStore(db *sql.DB) *FridgeStore {
	return &FridgeStore{db: db}
}

func (s *FridgeStore) List(ctx context.Context, householdID int64) ([]model.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT i.id, i.name, i.category
		 FROM fridge_entries f
		 JOIN items i ON i.id = f.item_id
		 WHERE f.household_id = ?
		 ORDER BY i.name ASC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list fridge: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan fridge item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// Add puts items in the household fridge. Items already present are skipped
// rather than reported. Returns the number of entries actually created, or
// ErrMissingReference if an item does not exist.
func (s *FridgeStore) Add(ctx context.Context, householdID int64, itemIDs []int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var added int64
	for _, itemID := range uniqueIDs(itemIDs) {
		result, err := tx.ExecContext(ctx,
			`INSERT INTO fridge_entries (household_id, item_id) VALUES (?, ?)
			 ON CONFLICT (household_id, item_id) DO NOTHING`,
			householdID, itemID,
		)
		if isForeignKeyViolation(err) {
			return 0, ErrMissingReference
		}
		if err != nil {
			return 0, fmt.Errorf("insert fridge entry: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		added += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return added, nil
}

// Remove takes items out of the household fridge and returns how many were removed.
func (s *FridgeStore) Remove(ctx context.Context, householdID int64, itemIDs []int64) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	in, args := inClause(itemIDs)
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM fridge_entries WHERE household_id = ? AND item_id IN (`+in+`)`,
		append([]any{householdID}, args...)...,
	)
	if err != nil {
		return 0, fmt.Errorf("remove fridge entries: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// fridgeItemIDs returns which of itemIDs the household already has.
func fridgeItemIDs(ctx context.Context, tx *sql.Tx, householdID int64, itemIDs []int64) (map[int64]struct{}, error) {
	present := make(map[int64]struct{})
	if len(itemIDs) == 0 {
		return present, nil
	}
	in, args := inClause(itemIDs)
	rows, err := tx.QueryContext(ctx,
		`SELECT item_id FROM fridge_entries WHERE household_id = ? AND item_id IN (`+in+`)`,
		append([]any{householdID}, args...)...,
	)
	if err != nil {
		return nil, fmt.Errorf("query fridge entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan fridge entry: %w", err)
		}
		present[id] = struct{}{}
	}
	return present, rows.Err()
}
