package api

import (
	"context"
	"fmt"
	"ms-marketplace/internal/festivals"
	"ms-marketplace/internal/models"
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) CreateFestival(w http.ResponseWriter, r *http.Request) {
	var params festivals.CreateParams
	if err := decodeBody(r, &params); err != nil {
		h.writeError(w, r, err)
		return
	}
	festival, err := h.Festivals.Create(r.Context(), params, caller(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.Logger.Info("API", fmt.Sprintf("CreateFestival: %s by %s", festival.ID, festival.Organiser))
	writeJSON(w, http.StatusCreated, festival)
}

func (h *Handler) GetFestival(w http.ResponseWriter, r *http.Request) {
	festival, err := h.Festivals.Get(r.Context(), festivalID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, festival)
}

func (h *Handler) ListFestivals(w http.ResponseWriter, r *http.Request) {
	list, err := h.Festivals.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.Lifecycle.Status(r.Context(), festivalID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusRequest{Status: string(status)})
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	status, err := models.ParseFestivalStatus(req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Lifecycle.SetStatus(r.Context(), festivalID(r), status, caller(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusRequest{Status: string(status)})
}

type configRequest struct {
	Value uint32 `json:"value"`
}

func (h *Handler) SetMaxTicketsPerWallet(w http.ResponseWriter, r *http.Request) {
	h.updateConfig(w, r, h.Listing.SetMaxTicketsPerWallet)
}

func (h *Handler) SetMaxResalePercentage(w http.ResponseWriter, r *http.Request) {
	h.updateConfig(w, r, h.Listing.SetMaxResalePercentage)
}

func (h *Handler) SetRoyaltyPercentage(w http.ResponseWriter, r *http.Request) {
	h.updateConfig(w, r, h.Listing.SetRoyaltyPercentage)
}

func (h *Handler) SetTicketPrice(w http.ResponseWriter, r *http.Request) {
	var req priceRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	festival, err := h.Listing.SetTicketPrice(r.Context(), festivalID(r), req.Price, caller(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, festival)
}

type configSetter func(ctx context.Context, festivalID string, value uint32, by string) (*models.Festival, error)

func (h *Handler) updateConfig(w http.ResponseWriter, r *http.Request, set configSetter) {
	var req configRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	festival, err := set(r.Context(), festivalID(r), req.Value, caller(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, festival)
}

type roleRequest struct {
	Role    string `json:"role"`
	Account string `json:"account"`
}

func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	assignments, err := h.Roles.List(r.Context(), festivalID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assignments)
}

func (h *Handler) GrantRole(w http.ResponseWriter, r *http.Request) {
	var req roleRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Roles.Grant(r.Context(), festivalID(r), role, req.Account, caller(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, roleRequest{Role: string(role), Account: models.NormalizeAddress(req.Account)})
}

func (h *Handler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	role, err := models.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.Roles.Revoke(r.Context(), festivalID(r), role, chi.URLParam(r, "address"), caller(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
