package handler

import (
	"fmt"
	"net/http"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/shopping"
)

type ShoppingListHandler struct {
	reconciler *shopping.Reconciler
}

func NewShoppingListHandler(rec *shopping.Reconciler) *ShoppingListHandler {
	return &ShoppingListHandler{reconciler: rec}
}

type createListRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Items       []int64 `json:"items"`
}

type addItemRequest struct {
	ItemID int64 `json:"item_id"`
}

const listsPath = "/shopping-lists"

func (h *ShoppingListHandler) List(w http.ResponseWriter, r *http.Request) {
	uc, _ := auth.FromContext(r.Context())
	lists, err := h.reconciler.List(r.Context(), uc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: lists})
}

func (h *ShoppingListHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createListRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "Invalid JSON")
		return
	}
	if req.Items == nil {
		badRequest(w, "Missing items")
		return
	}

	uc, _ := auth.FromContext(r.Context())
	list, err := h.reconciler.Create(r.Context(), uc, req.Name, req.Description, req.Items)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, response{Data: list, Redirect: fmt.Sprintf("%s/%d", listsPath, list.ID)})
}

func (h *ShoppingListHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		badRequest(w, "Missing id")
		return
	}

	uc, _ := auth.FromContext(r.Context())
	list, err := h.reconciler.Get(r.Context(), uc, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: list})
}

func (h *ShoppingListHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		badRequest(w, "Missing id")
		return
	}

	uc, _ := auth.FromContext(r.Context())
	if err := h.reconciler.Delete(r.Context(), uc, id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Message: "Shopping list deleted", Redirect: listsPath})
}

func (h *ShoppingListHandler) ToggleArchive(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		badRequest(w, "Missing id")
		return
	}

	uc, _ := auth.FromContext(r.Context())
	list, err := h.reconciler.ToggleArchive(r.Context(), uc, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: list, Redirect: listsPath})
}

func (h *ShoppingListHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	listID, err := parseIDParam(r, "id")
	if err != nil {
		badRequest(w, "Missing shoppingListId")
		return
	}
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "Invalid JSON")
		return
	}
	if req.ItemID <= 0 {
		badRequest(w, "Missing itemId")
		return
	}

	uc, _ := auth.FromContext(r.Context())
	item, err := h.reconciler.AddItem(r.Context(), uc, listID, req.ItemID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: item})
}

func (h *ShoppingListHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	listID, itemID, ok := listItemParams(w, r)
	if !ok {
		return
	}

	uc, _ := auth.FromContext(r.Context())
	if err := h.reconciler.RemoveItem(r.Context(), uc, listID, itemID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Message: "Item removed from shopping list"})
}

func (h *ShoppingListHandler) TogglePurchased(w http.ResponseWriter, r *http.Request) {
	listID, itemID, ok := listItemParams(w, r)
	if !ok {
		return
	}

	uc, _ := auth.FromContext(r.Context())
	item, err := h.reconciler.TogglePurchased(r.Context(), uc, listID, itemID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: item})
}

func (h *ShoppingListHandler) CreateFromRecipe(w http.ResponseWriter, r *http.Request) {
	recipeID, err := parseIDParam(r, "id")
	if err != nil {
		badRequest(w, "Missing recipeId")
		return
	}

	uc, _ := auth.FromContext(r.Context())
	list, err := h.reconciler.CreateFromRecipe(r.Context(), uc, recipeID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, response{Data: list, Redirect: fmt.Sprintf("%s/%d", listsPath, list.ID)})
}

func listItemParams(w http.ResponseWriter, r *http.Request) (listID, itemID int64, ok bool) {
	listID, err := parseIDParam(r, "id")
	if err != nil {
		badRequest(w, "Missing shoppingListId")
		return 0, 0, false
	}
	itemID, err = parseIDParam(r, "item_id")
	if err != nil {
		badRequest(w, "Missing itemId")
		return 0, 0, false
	}
	return listID, itemID, true
}
