package api

import (
	"encoding/json"
	"fmt"
	"ms-marketplace/internal/models"
	"net/http"
	"strconv"
	"time"
)

const (
	defaultEventPage = 100
	maxEventPage     = 1000
	sseKeepAlive     = 25 * time.Second
)

// EventPage is one page of a festival's event history. NextAfter feeds the
// following request's ?after parameter.
type EventPage struct {
	Events    []models.Event `json:"events"`
	NextAfter int64          `json:"next_after"`
}

// ListEvents pages through the outbox with ?after=<id>&limit=<n>.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	after, err := queryInt(q.Get("after"), 0)
	if err != nil || after < 0 {
		h.writeError(w, r, fmt.Errorf("%w: invalid after", errBadRequest))
		return
	}
	limit, err := queryInt(q.Get("limit"), defaultEventPage)
	if err != nil || limit <= 0 {
		h.writeError(w, r, fmt.Errorf("%w: invalid limit", errBadRequest))
		return
	}
	if limit > maxEventPage {
		limit = maxEventPage
	}

	if _, err := h.Festivals.Get(r.Context(), festivalID(r)); err != nil {
		h.writeError(w, r, err)
		return
	}
	events, err := h.Events.ListEvents(r.Context(), festivalID(r), after, int(limit))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	page := EventPage{Events: events, NextAfter: after}
	if n := len(events); n > 0 {
		page.NextAfter = events[n-1].ID
	}
	writeJSON(w, http.StatusOK, page)
}

// StreamEvents pushes committed events for one festival as Server-Sent Events.
func (h *Handler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	id := festivalID(r)
	if _, err := h.Festivals.Get(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, r, fmt.Errorf("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ctx := r.Context()
	eventChan := h.Feed.Subscribe(ctx, id)

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"festival_id\":%q}\n\n", id)
	flusher.Flush()
	h.Logger.Info("SSE", fmt.Sprintf("Client connected to festival events for: %s", id))

	keepAlive := time.NewTicker(sseKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case ev, ok := <-eventChan:
			if !ok {
				h.Logger.Debug("SSE", fmt.Sprintf("Channel closed for festival: %s", id))
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.Logger.Error("SSE", fmt.Sprintf("Failed to serialize event %d: %v", ev.ID, err))
				continue
			}
			fmt.Fprintf(w, "id: %d\nevent: %s\ndata: %s\n\n", ev.ID, ev.Name, data)
			flusher.Flush()

		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()

		case <-ctx.Done():
			h.Logger.Debug("SSE", fmt.Sprintf("Client disconnected from festival events for: %s", id))
			return
		}
	}
}

func queryInt(raw string, def int64) (int64, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
