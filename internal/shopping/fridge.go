package shopping

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dukerupert/larder/internal/apperror"
	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/store"
	"github.com/dukerupert/larder/internal/websocket"
)

// Fridge edits a household's fridge directly, outside of list archiving.
type Fridge struct {
	fridge      *store.FridgeStore
	broadcaster Broadcaster
	logger      *slog.Logger
}

func NewFridge(fridge *store.FridgeStore, broadcaster Broadcaster, logger *slog.Logger) *Fridge {
	return &Fridge{
		fridge:      fridge,
		broadcaster: broadcaster,
		logger:      logger.With("component", "fridge"),
	}
}

func (f *Fridge) Items(ctx context.Context, user auth.UserContext) ([]model.Item, error) {
	items, err := f.fridge.List(ctx, user.HouseholdID)
	if err != nil {
		f.logger.Error("list fridge", "household_id", user.HouseholdID, "error", err)
		return nil, apperror.Infrastructure(err)
	}
	if items == nil {
		items = []model.Item{}
	}
	return items, nil
}

// Add stocks items. Items already in the fridge are ignored.
func (f *Fridge) Add(ctx context.Context, user auth.UserContext, itemIDs []int64) error {
	if len(itemIDs) == 0 {
		return apperror.Validation("items_empty", "Items cannot be empty")
	}
	added, err := f.fridge.Add(ctx, user.HouseholdID, itemIDs)
	switch {
	case errors.Is(err, store.ErrMissingReference):
		return apperror.NotFound("item_not_found", "The item does not exist")
	case err != nil:
		f.logger.Error("add to fridge", "household_id", user.HouseholdID, "error", err)
		return apperror.Infrastructure(err)
	}
	if added > 0 {
		f.broadcaster.Broadcast(user.HouseholdID, websocket.NewMessage("fridge", "updated", user.HouseholdID, nil))
	}
	return nil
}

func (f *Fridge) Remove(ctx context.Context, user auth.UserContext, itemIDs []int64) error {
	if len(itemIDs) == 0 {
		return apperror.Validation("items_empty", "Items cannot be empty")
	}
	removed, err := f.fridge.Remove(ctx, user.HouseholdID, itemIDs)
	if err != nil {
		f.logger.Error("remove from fridge", "household_id", user.HouseholdID, "error", err)
		return apperror.Infrastructure(err)
	}
	if removed > 0 {
		f.broadcaster.Broadcast(user.HouseholdID, websocket.NewMessage("fridge", "updated", user.HouseholdID, nil))
	}
	return nil
}
