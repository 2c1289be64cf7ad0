package api

import (
	"fmt"
	"ms-marketplace/internal/models"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type priceRequest struct {
	Price models.Amount `json:"price"`
}

type primaryPurchaseRequest struct {
	TokenURI string        `json:"token_uri"`
	Price    models.Amount `json:"price"`
}

type depositRequest struct {
	Amount models.Amount `json:"amount"`
}

type balanceResponse struct {
	Address string        `json:"address"`
	Balance models.Amount `json:"balance"`
}

func (h *Handler) ListForSale(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenIDParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req priceRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ticket, err := h.Listing.ListForSale(r.Context(), festivalID(r), tokenID, req.Price, caller(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) Unlist(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenIDParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ticket, err := h.Listing.Unlist(r.Context(), festivalID(r), tokenID, caller(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) MaxResalePrice(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenIDParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ceiling, err := h.Listing.MaxResalePrice(r.Context(), festivalID(r), tokenID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, priceRequest{Price: ceiling})
}

// BuyFromOrganiser is a primary purchase: the caller pays face value and
// receives a freshly minted ticket.
func (h *Handler) BuyFromOrganiser(w http.ResponseWriter, r *http.Request) {
	var req primaryPurchaseRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	sale, err := h.Settlement.BuyFromOrganiser(r.Context(), festivalID(r), caller(r), req.TokenURI, req.Price, caller(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sale)
}

func (h *Handler) BuyFromCustomer(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenIDParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sale, err := h.Settlement.BuyFromCustomer(r.Context(), festivalID(r), tokenID, caller(r), caller(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	address := models.NormalizeAddress(chi.URLParam(r, "address"))
	balance, err := h.Ledger.Balance(r.Context(), address)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Address: address, Balance: balance})
}

// Deposit credits a wallet. Only the treasury principal may mint balance.
func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	if !models.SameAddress(caller(r), h.Treasury) {
		h.Logger.LogSecurity("DEPOSIT_DENIED", fmt.Sprintf("%s attempted a deposit", caller(r)))
		h.writeError(w, r, fmt.Errorf("%s may not deposit: %w", caller(r), models.ErrUnauthorized))
		return
	}
	var req depositRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Amount == 0 {
		h.writeError(w, r, fmt.Errorf("deposit must be positive: %w", models.ErrInvalidPrice))
		return
	}
	address := models.NormalizeAddress(chi.URLParam(r, "address"))
	if models.IsZeroAddress(address) {
		h.writeError(w, r, fmt.Errorf("cannot credit zero address: %w", models.ErrInvalidRecipient))
		return
	}
	if err := h.Ledger.Deposit(r.Context(), address, req.Amount); err != nil {
		h.writeError(w, r, err)
		return
	}
	balance, err := h.Ledger.Balance(r.Context(), address)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.Logger.LogSettlement("DEPOSIT", "", fmt.Sprintf("credited %s to %s", req.Amount, address))
	writeJSON(w, http.StatusOK, balanceResponse{Address: address, Balance: balance})
}
