package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dukerupert/larder/internal/grocery"
	"github.com/dukerupert/larder/internal/model"
)

var ErrInvalidItemName = errors.New("item names are 1-32 letters or spaces")

var itemNamePattern = regexp.MustCompile(`^[a-zA-Z ]{1,32}$`)

// NormalizeItemName validates a catalog item name and capitalizes only its
// first letter, so "MILK" and "milk" land on the same catalog row.
func NormalizeItemName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if !itemNamePattern.MatchString(name) {
		return "", ErrInvalidItemName
	}
	return strings.ToUpper(name[:1]) + strings.ToLower(name[1:]), nil
}

type ItemStore struct {
	db *sql.DB
}

func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

func scanItem(scanner interface{ Scan(...any) error }) (*model.Item, error) {
	var item model.Item
	if err := scanner.Scan(&item.ID, &item.Name, &item.Category); err != nil {
		return nil, err
	}
	return &item, nil
}

// Create adds a catalog item filed under its grocery aisle. The name must
// already be normalized. Returns ErrDuplicate if an item with that name exists.
func (s *ItemStore) Create(ctx context.Context, name string) (*model.Item, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO items (name, category) VALUES (?, ?)`,
		name, grocery.Aisle(name),
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

func (s *ItemStore) GetByID(ctx context.Context, id int64) (*model.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, name, category FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

func (s *ItemStore) List(ctx context.Context) ([]model.Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, category FROM items ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}
