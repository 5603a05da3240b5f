package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/larder/internal/model"
)

type ShoppingListStore struct {
	db *sql.DB
}

func NewShoppingListStore(db *sql.DB) *ShoppingListStore {
	return &ShoppingListStore{db: db}
}

// ArchiveResult is the outcome of ToggleArchive: the updated list and the
// purchased items that were newly added to the fridge.
type ArchiveResult struct {
	List   *model.ShoppingList
	Merged []int64
}

func scanShoppingList(scanner interface{ Scan(...any) error }) (*model.ShoppingList, error) {
	var l model.ShoppingList
	var archived int
	err := scanner.Scan(&l.ID, &l.HouseholdID, &l.Name, &l.Description, &archived, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	l.Archived = archived != 0
	return &l, nil
}

const shoppingListCols = `id, household_id, name, description, archived, created_at, updated_at`

type rowQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Create stores a new list with the given items, all unpurchased.
// Returns ErrMissingReference if an item does not exist.
func (s *ShoppingListStore) Create(ctx context.Context, householdID int64, name, description string, itemIDs []int64) (*model.ShoppingList, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	list, err := createList(ctx, tx, householdID, name, description, uniqueIDs(itemIDs))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return list, nil
}

// CreateMissing stores a new list holding those of itemIDs the household
// fridge does not already have, in the order given. The fridge is read in the
// same transaction as the insert.
func (s *ShoppingListStore) CreateMissing(ctx context.Context, householdID int64, name, description string, itemIDs []int64) (*model.ShoppingList, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	itemIDs = uniqueIDs(itemIDs)
	present, err := fridgeItemIDs(ctx, tx, householdID, itemIDs)
	if err != nil {
		return nil, err
	}
	missing := make([]int64, 0, len(itemIDs))
	for _, id := range itemIDs {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}

	list, err := createList(ctx, tx, householdID, name, description, missing)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return list, nil
}

func createList(ctx context.Context, tx *sql.Tx, householdID int64, name, description string, itemIDs []int64) (*model.ShoppingList, error) {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO shopping_lists (household_id, name, description) VALUES (?, ?, ?)`,
		householdID, name, description,
	)
	if isForeignKeyViolation(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("insert shopping list: %w", err)
	}
	listID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for _, itemID := range itemIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO shopping_list_items (shopping_list_id, item_id) VALUES (?, ?)`,
			listID, itemID,
		)
		if isForeignKeyViolation(err) {
			return nil, ErrMissingReference
		}
		if err != nil {
			return nil, fmt.Errorf("insert shopping list item: %w", err)
		}
	}

	return getShoppingList(ctx, tx, householdID, listID)
}

// GetByID returns the list with its items, or nil if it does not exist in the household.
func (s *ShoppingListStore) GetByID(ctx context.Context, householdID, id int64) (*model.ShoppingList, error) {
	list, err := getShoppingList(ctx, s.db, householdID, id)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	return list, err
}

// List returns the household's lists without items, most recently updated first.
func (s *ShoppingListStore) List(ctx context.Context, householdID int64) ([]model.ShoppingList, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+shoppingListCols+` FROM shopping_lists WHERE household_id = ? ORDER BY updated_at DESC, id DESC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list shopping lists: %w", err)
	}
	defer rows.Close()

	var lists []model.ShoppingList
	for rows.Next() {
		l, err := scanShoppingList(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shopping list: %w", err)
		}
		lists = append(lists, *l)
	}
	return lists, rows.Err()
}

// Delete removes a list and its items. Returns ErrNotFound if the list does
// not exist in the household.
func (s *ShoppingListStore) Delete(ctx context.Context, householdID, id int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM shopping_lists WHERE id = ? AND household_id = ?`,
		id, householdID,
	)
	if err != nil {
		return fmt.Errorf("delete shopping list: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AddItem puts an unpurchased item on an active list.
func (s *ShoppingListStore) AddItem(ctx context.Context, householdID, listID, itemID int64) (*model.ShoppingListItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := requireActiveList(ctx, tx, householdID, listID); err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO shopping_list_items (shopping_list_id, item_id) VALUES (?, ?)`,
		listID, itemID,
	)
	if err != nil {
		if mapped := mapConstraintError(err); mapped != err {
			return nil, mapped
		}
		return nil, fmt.Errorf("insert shopping list item: %w", err)
	}
	if err := touchList(ctx, tx, listID); err != nil {
		return nil, err
	}

	item, err := getListItem(ctx, tx, listID, itemID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return item, nil
}

// RemoveItem takes an item off an active list. Returns ErrItemNotOnList if
// the item was not on it.
func (s *ShoppingListStore) RemoveItem(ctx context.Context, householdID, listID, itemID int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := requireActiveList(ctx, tx, householdID, listID); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM shopping_list_items WHERE shopping_list_id = ? AND item_id = ?`,
		listID, itemID,
	)
	if err != nil {
		return fmt.Errorf("delete shopping list item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrItemNotOnList
	}
	if err := touchList(ctx, tx, listID); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// TogglePurchased flips the purchased flag of an item on an active list.
func (s *ShoppingListStore) TogglePurchased(ctx context.Context, householdID, listID, itemID int64) (*model.ShoppingListItem, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := requireActiveList(ctx, tx, householdID, listID); err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE shopping_list_items SET purchased = 1 - purchased WHERE shopping_list_id = ? AND item_id = ?`,
		listID, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("toggle purchased: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrItemNotOnList
	}
	if err := touchList(ctx, tx, listID); err != nil {
		return nil, err
	}

	item, err := getListItem(ctx, tx, listID, itemID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return item, nil
}

// ToggleArchive flips the archived flag of a list and, in the same
// transaction, moves its purchased items into the household fridge. Items the
// fridge already holds are not inserted again. Purchased rows are removed from
// the list whether or not they were new to the fridge.
//
// Write transactions hold the database lock from BEGIN, so overlapping calls
// run one after the other: a second call sees the first one's result and
// toggles the list back, with nothing left to merge.
func (s *ShoppingListStore) ToggleArchive(ctx context.Context, householdID, listID int64) (*ArchiveResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var archived int
	err = tx.QueryRowContext(ctx,
		`SELECT archived FROM shopping_lists WHERE id = ? AND household_id = ?`,
		listID, householdID,
	).Scan(&archived)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shopping list: %w", err)
	}

	purchased, err := purchasedItemIDs(ctx, tx, listID)
	if err != nil {
		return nil, err
	}

	present, err := fridgeItemIDs(ctx, tx, householdID, purchased)
	if err != nil {
		return nil, err
	}

	var merged []int64
	for _, itemID := range purchased {
		if _, ok := present[itemID]; ok {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO fridge_entries (household_id, item_id) VALUES (?, ?)`,
			householdID, itemID,
		); err != nil {
			return nil, fmt.Errorf("insert fridge entry: %w", mapConstraintError(err))
		}
		merged = append(merged, itemID)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE shopping_lists SET archived = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		1-archived, listID,
	); err != nil {
		return nil, fmt.Errorf("flip archived: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM shopping_list_items WHERE shopping_list_id = ? AND purchased = 1`,
		listID,
	); err != nil {
		return nil, fmt.Errorf("delete purchased items: %w", err)
	}

	list, err := getShoppingList(ctx, tx, householdID, listID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &ArchiveResult{List: list, Merged: merged}, nil
}

func getShoppingList(ctx context.Context, q rowQueryer, householdID, id int64) (*model.ShoppingList, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+shoppingListCols+` FROM shopping_lists WHERE id = ? AND household_id = ?`,
		id, householdID,
	)
	l, err := scanShoppingList(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shopping list: %w", err)
	}

	rows, err := q.QueryContext(ctx,
		`SELECT sli.item_id, i.name, i.category, sli.purchased
		 FROM shopping_list_items sli
		 JOIN items i ON i.id = sli.item_id
		 WHERE sli.shopping_list_id = ?
		 ORDER BY sli.rowid ASC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("list shopping list items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanListItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan shopping list item: %w", err)
		}
		l.Items = append(l.Items, *item)
	}
	return l, rows.Err()
}

func scanListItem(scanner interface{ Scan(...any) error }) (*model.ShoppingListItem, error) {
	var item model.ShoppingListItem
	var purchased int
	if err := scanner.Scan(&item.ItemID, &item.Name, &item.Category, &purchased); err != nil {
		return nil, err
	}
	item.Purchased = purchased != 0
	return &item, nil
}

func getListItem(ctx context.Context, tx *sql.Tx, listID, itemID int64) (*model.ShoppingListItem, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT sli.item_id, i.name, i.category, sli.purchased
		 FROM shopping_list_items sli
		 JOIN items i ON i.id = sli.item_id
		 WHERE sli.shopping_list_id = ? AND sli.item_id = ?`,
		listID, itemID,
	)
	item, err := scanListItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get shopping list item: %w", err)
	}
	return item, nil
}

// requireActiveList returns ErrNotFound for a missing or foreign list and
// ErrListArchived for an archived one.
func requireActiveList(ctx context.Context, tx *sql.Tx, householdID, listID int64) error {
	var archived int
	err := tx.QueryRowContext(ctx,
		`SELECT archived FROM shopping_lists WHERE id = ? AND household_id = ?`,
		listID, householdID,
	).Scan(&archived)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get shopping list: %w", err)
	}
	if archived != 0 {
		return ErrListArchived
	}
	return nil
}

func touchList(ctx context.Context, tx *sql.Tx, listID int64) error {
	if _, err := tx.ExecContext(ctx,
		`UPDATE shopping_lists SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		listID,
	); err != nil {
		return fmt.Errorf("touch shopping list: %w", err)
	}
	return nil
}

func purchasedItemIDs(ctx context.Context, tx *sql.Tx, listID int64) ([]int64, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT item_id FROM shopping_list_items WHERE shopping_list_id = ? AND purchased = 1 ORDER BY item_id ASC`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("list purchased items: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan purchased item: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
