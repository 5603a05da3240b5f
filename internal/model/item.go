package model

import "time"

type Item struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

type Recipe struct {
	ID          int64              `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	CreatedBy   *int64             `json:"created_by"`
	CreatedAt   time.Time          `json:"created_at"`
	Ingredients []RecipeIngredient `json:"ingredients,omitempty"`
}

type RecipeIngredient struct {
	ItemID int64  `json:"item_id"`
	Amount string `json:"amount"`
}
