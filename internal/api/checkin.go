package api

import (
	"fmt"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/tickets/qr"
	"net/http"
)

type checkinRequest struct {
	Pass string `json:"pass"`
}

// GetTicketQR renders the owner's check-in pass as a PNG.
func (h *Handler) GetTicketQR(w http.ResponseWriter, r *http.Request) {
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
	if !ticket.IsOwnedBy(caller(r)) {
		h.writeError(w, r, fmt.Errorf("%s does not own token %d: %w", caller(r), tokenID, models.ErrUnauthorized))
		return
	}
	if ticket.IsVerified {
		h.writeError(w, r, fmt.Errorf("token %d: %w", tokenID, models.ErrTicketAlreadyUsed))
		return
	}

	png, err := h.QR.GenerateEncryptedQR(qr.NewPass(ticket, h.Clock.Now()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// Checkin decrypts a scanned pass and verifies the ticket as the calling
// VERIFIER. A pass issued to a previous owner is rejected.
func (h *Handler) Checkin(w http.ResponseWriter, r *http.Request) {
	var req checkinRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if req.Pass == "" {
		h.writeError(w, r, fmt.Errorf("%w: pass is required", errBadRequest))
		return
	}

	pass, err := h.QR.Decode(req.Pass)
	if err != nil {
		h.Logger.LogSecurity("CHECKIN_REJECTED", fmt.Sprintf("undecodable pass from %s: %v", caller(r), err))
		h.writeError(w, r, err)
		return
	}
	if pass.FestivalID != festivalID(r) {
		h.writeError(w, r, fmt.Errorf("%w: pass belongs to festival %s", qr.ErrInvalidPass, pass.FestivalID))
		return
	}

	ticket, err := h.Tickets.GetTicket(r.Context(), pass.FestivalID, pass.TokenID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !ticket.IsOwnedBy(pass.Owner) {
		h.Logger.LogSecurity("CHECKIN_REJECTED", fmt.Sprintf("stale pass for token %d issued to %s", pass.TokenID, pass.Owner))
		h.writeError(w, r, fmt.Errorf("%w: ticket changed hands since the pass was issued", qr.ErrInvalidPass))
		return
	}

	verified, err := h.Tickets.Verify(r.Context(), pass.FestivalID, pass.TokenID, caller(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, verified)
}
