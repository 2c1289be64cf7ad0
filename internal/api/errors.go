package api

import (
	"errors"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/tickets/qr"
	"net/http"
)

type errorKind struct {
	err    error
	status int
	code   string
}

// errorKinds is matched in order; the first sentinel found in the chain wins.
var errorKinds = []errorKind{
	{errBadRequest, http.StatusBadRequest, "BAD_REQUEST"},
	{qr.ErrInvalidPass, http.StatusBadRequest, "INVALID_PASS"},
	{models.ErrUnauthorized, http.StatusForbidden, "UNAUTHORIZED"},
	{models.ErrFestivalNotFound, http.StatusNotFound, "FESTIVAL_NOT_FOUND"},
	{models.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
	{models.ErrEventNotActive, http.StatusConflict, "EVENT_NOT_ACTIVE"},
	{models.ErrWalletLimitReached, http.StatusConflict, "WALLET_LIMIT_REACHED"},
	{models.ErrBatchExceedsWalletLimit, http.StatusConflict, "BATCH_EXCEEDS_WALLET_LIMIT"},
	{models.ErrPriceExceedsResaleLimit, http.StatusUnprocessableEntity, "PRICE_EXCEEDS_RESALE_LIMIT"},
	{models.ErrAlreadyVerified, http.StatusConflict, "ALREADY_VERIFIED"},
	{models.ErrTicketAlreadyUsed, http.StatusConflict, "TICKET_ALREADY_USED"},
	{models.ErrNotListed, http.StatusConflict, "NOT_LISTED"},
	{models.ErrInsufficientFunds, http.StatusPaymentRequired, "INSUFFICIENT_FUNDS"},
	{models.ErrInvalidRecipient, http.StatusUnprocessableEntity, "INVALID_RECIPIENT"},
	{models.ErrInvalidBatchSize, http.StatusUnprocessableEntity, "INVALID_BATCH_SIZE"},
	{models.ErrInvalidPercentage, http.StatusUnprocessableEntity, "INVALID_PERCENTAGE"},
	{models.ErrInvalidPrice, http.StatusUnprocessableEntity, "INVALID_PRICE"},
	{models.ErrInvalidRole, http.StatusUnprocessableEntity, "INVALID_ROLE"},
	{models.ErrInvalidStatus, http.StatusUnprocessableEntity, "INVALID_STATUS"},
	{models.ErrInvalidArgument, http.StatusUnprocessableEntity, "INVALID_ARGUMENT"},
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func statusFor(err error) (int, string) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.code
		}
	}
	return http.StatusInternalServerError, "INTERNAL"
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		h.Logger.Error("API", r.Method+" "+r.URL.Path+": "+msg)
		msg = "internal error"
	} else {
		h.Logger.Debug("API", r.Method+" "+r.URL.Path+": "+msg)
	}
	writeJSON(w, status, ErrorResponse{Error: msg, Code: code})
}
