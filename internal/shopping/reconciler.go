// Package shopping runs shopping-list operations for a household, including
// archiving a list, which folds its purchased items into the fridge.
package shopping

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/dukerupert/larder/internal/apperror"
	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/store"
	"github.com/dukerupert/larder/internal/websocket"
)

const (
	maxListNameLength    = 64
	maxDescriptionLength = 255

	recipeListName          = "Missing items"
	recipeDescriptionPrefix = "Shopping list for: "
)

// Broadcaster pushes change notifications to a household's clients.
type Broadcaster interface {
	Broadcast(householdID int64, msg websocket.Message)
}

type Reconciler struct {
	lists       *store.ShoppingListStore
	recipes     *store.RecipeStore
	broadcaster Broadcaster
	logger      *slog.Logger
}

func NewReconciler(lists *store.ShoppingListStore, recipes *store.RecipeStore, broadcaster Broadcaster, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		lists:       lists,
		recipes:     recipes,
		broadcaster: broadcaster,
		logger:      logger.With("component", "shopping"),
	}
}

// ToggleArchive archives an active list or reactivates an archived one.
// Purchased items move into the fridge and off the list either way.
func (r *Reconciler) ToggleArchive(ctx context.Context, user auth.UserContext, listID int64) (*model.ShoppingList, error) {
	result, err := r.lists.ToggleArchive(ctx, user.HouseholdID, listID)
	if err != nil {
		return nil, r.storeError("toggle archive", user, listID, err)
	}

	action := "unarchived"
	if result.List.Archived {
		action = "archived"
	}
	r.logger.Info("shopping list "+action,
		"household_id", user.HouseholdID,
		"list_id", listID,
		"merged", len(result.Merged),
	)
	r.broadcaster.Broadcast(user.HouseholdID, websocket.NewMessage("shopping_list", action, listID, nil))
	if len(result.Merged) > 0 {
		r.broadcaster.Broadcast(user.HouseholdID, websocket.NewMessage("fridge", "updated", user.HouseholdID,
			map[string]any{"added": result.Merged}))
	}
	return result.List, nil
}

func (r *Reconciler) AddItem(ctx context.Context, user auth.UserContext, listID, itemID int64) (*model.ShoppingListItem, error) {
	item, err := r.lists.AddItem(ctx, user.HouseholdID, listID, itemID)
	switch {
	case errors.Is(err, store.ErrMissingReference):
		return nil, apperror.NotFound("item_not_found", "The item does not exist")
	case errors.Is(err, store.ErrDuplicate):
		return nil, apperror.Conflict("item_already_listed", "Item already in shopping list")
	case err != nil:
		return nil, r.storeError("add item", user, listID, err)
	}
	r.listChanged(user, listID)
	return item, nil
}

func (r *Reconciler) RemoveItem(ctx context.Context, user auth.UserContext, listID, itemID int64) error {
	if err := r.lists.RemoveItem(ctx, user.HouseholdID, listID, itemID); err != nil {
		return r.storeError("remove item", user, listID, err)
	}
	r.listChanged(user, listID)
	return nil
}

func (r *Reconciler) TogglePurchased(ctx context.Context, user auth.UserContext, listID, itemID int64) (*model.ShoppingListItem, error) {
	item, err := r.lists.TogglePurchased(ctx, user.HouseholdID, listID, itemID)
	if err != nil {
		return nil, r.storeError("toggle purchased", user, listID, err)
	}
	r.listChanged(user, listID)
	return item, nil
}

// CreateFromRecipe starts a list of the recipe's ingredients the household
// fridge does not have yet.
func (r *Reconciler) CreateFromRecipe(ctx context.Context, user auth.UserContext, recipeID int64) (*model.ShoppingList, error) {
	recipe, err := r.recipes.GetByID(ctx, recipeID)
	if err != nil {
		return nil, r.storeError("get recipe", user, 0, err)
	}
	if recipe == nil {
		return nil, apperror.NotFound("recipe_not_found", "Recipe not found")
	}

	itemIDs := make([]int64, len(recipe.Ingredients))
	for i, ing := range recipe.Ingredients {
		itemIDs[i] = ing.ItemID
	}
	description := truncate(recipeDescriptionPrefix+recipe.Title, maxDescriptionLength)

	list, err := r.lists.CreateMissing(ctx, user.HouseholdID, recipeListName, description, itemIDs)
	if err != nil {
		return nil, r.storeError("create list from recipe", user, 0, err)
	}
	r.logger.Info("shopping list created from recipe",
		"household_id", user.HouseholdID,
		"list_id", list.ID,
		"recipe_id", recipeID,
		"items", len(list.Items),
	)
	r.broadcaster.Broadcast(user.HouseholdID, websocket.NewMessage("shopping_list", "created", list.ID, nil))
	return list, nil
}

func (r *Reconciler) Create(ctx context.Context, user auth.UserContext, name, description string, itemIDs []int64) (*model.ShoppingList, error) {
	name = norm.NFC.String(strings.TrimSpace(name))
	description = norm.NFC.String(description)
	if name == "" {
		return nil, apperror.Validation("missing_name", "Missing name")
	}
	if utf8.RuneCountInString(name) > maxListNameLength {
		return nil, apperror.Validation("name_too_long", "Name too long")
	}
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return nil, apperror.Validation("description_too_long", "Description too long")
	}

	list, err := r.lists.Create(ctx, user.HouseholdID, name, description, itemIDs)
	switch {
	case errors.Is(err, store.ErrMissingReference):
		return nil, apperror.NotFound("item_not_found", "The item does not exist")
	case err != nil:
		return nil, r.storeError("create list", user, 0, err)
	}
	r.broadcaster.Broadcast(user.HouseholdID, websocket.NewMessage("shopping_list", "created", list.ID, nil))
	return list, nil
}

func (r *Reconciler) Get(ctx context.Context, user auth.UserContext, listID int64) (*model.ShoppingList, error) {
	list, err := r.lists.GetByID(ctx, user.HouseholdID, listID)
	if err != nil {
		return nil, r.storeError("get list", user, listID, err)
	}
	if list == nil {
		return nil, apperror.NotFound("list_not_found", "Shopping list not found")
	}
	if list.Items == nil {
		list.Items = []model.ShoppingListItem{}
	}
	return list, nil
}

func (r *Reconciler) List(ctx context.Context, user auth.UserContext) ([]model.ShoppingList, error) {
	lists, err := r.lists.List(ctx, user.HouseholdID)
	if err != nil {
		return nil, r.storeError("list lists", user, 0, err)
	}
	if lists == nil {
		lists = []model.ShoppingList{}
	}
	return lists, nil
}

// Delete removes a list whether it is active or archived.
func (r *Reconciler) Delete(ctx context.Context, user auth.UserContext, listID int64) error {
	if err := r.lists.Delete(ctx, user.HouseholdID, listID); err != nil {
		return r.storeError("delete list", user, listID, err)
	}
	r.logger.Info("shopping list deleted", "household_id", user.HouseholdID, "list_id", listID)
	r.broadcaster.Broadcast(user.HouseholdID, websocket.NewMessage("shopping_list", "deleted", listID, nil))
	return nil
}

func (r *Reconciler) listChanged(user auth.UserContext, listID int64) {
	r.broadcaster.Broadcast(user.HouseholdID, websocket.NewMessage("shopping_list", "updated", listID, nil))
}

// storeError maps store sentinels shared by every list operation.
func (r *Reconciler) storeError(op string, user auth.UserContext, listID int64, err error) error {
	switch {
	case errors.Is(err, store.ErrListArchived):
		return apperror.Validation("list_archived", "Shopping list is archived")
	case errors.Is(err, store.ErrItemNotOnList):
		return apperror.NotFound("list_item_not_found", "Shopping list item not found")
	case errors.Is(err, store.ErrNotFound):
		if listID == 0 {
			return apperror.NotFound("not_found", "Not found")
		}
		return apperror.NotFound("list_not_found", "Shopping list not found")
	}
	r.logger.Error(op, "household_id", user.HouseholdID, "list_id", listID, "error", err)
	return apperror.Infrastructure(err)
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
