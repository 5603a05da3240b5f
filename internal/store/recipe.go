package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/larder/internal/model"
)

type RecipeStore struct {
	db *sql.DB
}

func NewRecipeStore(db *sql.DB) *RecipeStore {
	return &RecipeStore{db: db}
}

func scanRecipe(scanner interface{ Scan(...any) error }) (*model.Recipe, error) {
	var r model.Recipe
	var createdBy sql.NullInt64
	if err := scanner.Scan(&r.ID, &r.Title, &r.Description, &createdBy, &r.CreatedAt); err != nil {
		return nil, err
	}
	if createdBy.Valid {
		r.CreatedBy = &createdBy.Int64
	}
	return &r, nil
}

const recipeCols = `id, title, description, created_by, created_at`

// Create stores a recipe and its ingredients. Ingredient order is preserved.
// Returns ErrMissingReference if an ingredient item does not exist.
func (s *RecipeStore) Create(ctx context.Context, title, description string, createdBy *int64, ingredients []model.RecipeIngredient) (*model.Recipe, error) {
	var cBy sql.NullInt64
	if createdBy != nil {
		cBy = sql.NullInt64{Int64: *createdBy, Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO recipes (title, description, created_by) VALUES (?, ?, ?)`,
		title, description, cBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert recipe: %w", mapConstraintError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	for i, ing := range ingredients {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO recipe_ingredients (recipe_id, item_id, amount, sort_order) VALUES (?, ?, ?, ?)`,
			id, ing.ItemID, ing.Amount, i,
		); err != nil {
			return nil, fmt.Errorf("insert ingredient %d: %w", ing.ItemID, mapConstraintError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID returns the recipe with its ingredients, or nil if it does not exist.
func (s *RecipeStore) GetByID(ctx context.Context, id int64) (*model.Recipe, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recipeCols+` FROM recipes WHERE id = ?`, id)
	r, err := scanRecipe(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT item_id, amount FROM recipe_ingredients WHERE recipe_id = ? ORDER BY sort_order ASC`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ing model.RecipeIngredient
		if err := rows.Scan(&ing.ItemID, &ing.Amount); err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		r.Ingredients = append(r.Ingredients, ing)
	}
	return r, rows.Err()
}
