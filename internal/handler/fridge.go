package handler

import (
	"net/http"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/shopping"
)

type FridgeHandler struct {
	fridge *shopping.Fridge
}

func NewFridgeHandler(f *shopping.Fridge) *FridgeHandler {
	return &FridgeHandler{fridge: f}
}

type fridgeItemsRequest struct {
	Items []int64 `json:"items"`
}

func (h *FridgeHandler) List(w http.ResponseWriter, r *http.Request) {
	uc, _ := auth.FromContext(r.Context())
	items, err := h.fridge.Items(r.Context(), uc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: items})
}

func (h *FridgeHandler) Add(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeFridgeItems(w, r)
	if !ok {
		return
	}

	uc, _ := auth.FromContext(r.Context())
	if err := h.fridge.Add(r.Context(), uc, req.Items); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Message: "Item added to fridge"})
}

func (h *FridgeHandler) Remove(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeFridgeItems(w, r)
	if !ok {
		return
	}

	uc, _ := auth.FromContext(r.Context())
	if err := h.fridge.Remove(r.Context(), uc, req.Items); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Message: "Item removed from fridge"})
}

func decodeFridgeItems(w http.ResponseWriter, r *http.Request) (fridgeItemsRequest, bool) {
	var req fridgeItemsRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "Items must be numbers")
		return req, false
	}
	if req.Items == nil {
		badRequest(w, "Items not provided")
		return req, false
	}
	return req, true
}
