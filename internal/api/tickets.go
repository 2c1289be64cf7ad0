package api

import (
	"fmt"
	"ms-marketplace/internal/models"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type mintRequest struct {
	To            string        `json:"to"`
	TokenURI      string        `json:"token_uri"`
	PurchasePrice models.Amount `json:"purchase_price"`
}

type batchMintRequest struct {
	To            string        `json:"to"`
	TokenURIs     []string      `json:"token_uris"`
	PurchasePrice models.Amount `json:"purchase_price"`
}

type giftRequest struct {
	// From defaults to the caller.
	From string `json:"from,omitempty"`
	To   string `json:"to"`
}

func (h *Handler) Mint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	ticket, err := h.Tickets.Mint(r.Context(), festivalID(r), req.To, req.TokenURI, req.PurchasePrice, caller(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

func (h *Handler) BatchMint(w http.ResponseWriter, r *http.Request) {
	var req batchMintRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	minted, err := h.Tickets.BatchMint(r.Context(), festivalID(r), req.To, req.TokenURIs, req.PurchasePrice, caller(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, minted)
}

func (h *Handler) Gift(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenIDParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	var req giftRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	from := req.From
	if from == "" {
		from = caller(r)
	}
	ticket, err := h.Tickets.Gift(r.Context(), festivalID(r), from, req.To, tokenID, caller(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenIDParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ticket, err := h.Tickets.Verify(r.Context(), festivalID(r), tokenID, caller(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	tokenID, err := tokenIDParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ticket, err := h.Tickets.GetTicket(r.Context(), festivalID(r), tokenID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// ListTickets serves ?owner=<address> and ?for_sale=true. Without a filter
// it is a bad request, the full registry is not listable.
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	switch {
	case q.Get("owner") != "":
		list, err := h.Tickets.GetTicketsByOwner(r.Context(), festivalID(r), q.Get("owner"))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	case q.Get("for_sale") != "":
		forSale, err := strconv.ParseBool(q.Get("for_sale"))
		if err != nil || !forSale {
			h.writeError(w, r, fmt.Errorf("%w: for_sale must be true", errBadRequest))
			return
		}
		list, err := h.Tickets.GetTicketsForSale(r.Context(), festivalID(r))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list)
	default:
		h.writeError(w, r, fmt.Errorf("%w: owner or for_sale filter required", errBadRequest))
	}
}

func (h *Handler) TotalMinted(w http.ResponseWriter, r *http.Request) {
	total, err := h.Tickets.TotalMinted(r.Context(), festivalID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"total_minted": total})
}

// WalletView is a holder's position in one festival.
type WalletView struct {
	Address            string   `json:"address"`
	TokenIDs           []uint64 `json:"token_ids"`
	Balance            int      `json:"balance"`
	RemainingAllowance int      `json:"remaining_allowance"`
}

func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	address := models.NormalizeAddress(chi.URLParam(r, "address"))

	ids, err := h.Tickets.TicketsOwnedBy(ctx, festivalID(r), address)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	balance, err := h.Tickets.BalanceOf(ctx, festivalID(r), address)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	remaining, err := h.Tickets.RemainingAllowance(ctx, festivalID(r), address)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, WalletView{
		Address:            address,
		TokenIDs:           ids,
		Balance:            balance,
		RemainingAllowance: remaining,
	})
}
