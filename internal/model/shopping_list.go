package model

import "time"

type ShoppingList struct {
	ID          int64              `json:"id"`
	HouseholdID int64              `json:"household_id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Archived    bool               `json:"archived"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Items       []ShoppingListItem `json:"items,omitempty"`
}

type ShoppingListItem struct {
	ItemID    int64  `json:"item_id"`
	Name      string `json:"name"`
	Category  string `json:"category"`
	Purchased bool   `json:"purchased"`
}
