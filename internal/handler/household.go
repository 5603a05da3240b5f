package handler

import (
	"net/http"

	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/household"
)

type HouseholdHandler struct {
	manager *household.Manager
}

func NewHouseholdHandler(m *household.Manager) *HouseholdHandler {
	return &HouseholdHandler{manager: m}
}

type joinRequest struct {
	JoinCode string `json:"join_code"`
}

type editNameRequest struct {
	Name string `json:"name"`
}

func (h *HouseholdHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "Invalid JSON")
		return
	}

	uc, _ := auth.FromContext(r.Context())
	change, err := h.manager.Join(r.Context(), uc, req.JoinCode)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changeResponse(change, "Successfully joined household"))
}

func (h *HouseholdHandler) Leave(w http.ResponseWriter, r *http.Request) {
	uc, _ := auth.FromContext(r.Context())
	change, err := h.manager.Leave(r.Context(), uc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, changeResponse(change, "Successfully left household"))
}

func (h *HouseholdHandler) Members(w http.ResponseWriter, r *http.Request) {
	uc, _ := auth.FromContext(r.Context())
	members, err := h.manager.Members(r.Context(), uc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: members})
}

func (h *HouseholdHandler) Current(w http.ResponseWriter, r *http.Request) {
	uc, _ := auth.FromContext(r.Context())
	hh, err := h.manager.Household(r.Context(), uc)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Data: hh})
}

func (h *HouseholdHandler) EditName(w http.ResponseWriter, r *http.Request) {
	var req editNameRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, "Invalid JSON")
		return
	}

	uc, _ := auth.FromContext(r.Context())
	if _, err := h.manager.EditName(r.Context(), uc, req.Name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, response{Message: "Successfully updated household name"})
}

// changeResponse omits data when the household could not be reloaded after
// the change committed.
func changeResponse(change *household.Change, message string) response {
	resp := response{Message: message}
	if change.Household != nil {
		resp.Data = change.Household
	}
	return resp
}
