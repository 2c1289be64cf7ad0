package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) GetFestivalStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Analytics.GetFestivalStats(r.Context(), festivalID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) GetOrganiserStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Analytics.GetOrganiserStats(r.Context(), chi.URLParam(r, "address"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
