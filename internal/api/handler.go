// Package api exposes the marketplace over HTTP. Reads are public; every
// mutation runs as the wallet address carried by the caller's token.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"ms-marketplace/internal/analytics"
	"ms-marketplace/internal/auth"
	"ms-marketplace/internal/clock"
	"ms-marketplace/internal/festivals"
	"ms-marketplace/internal/lifecycle"
	"ms-marketplace/internal/listing"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/payment"
	"ms-marketplace/internal/roles"
	"ms-marketplace/internal/settlement"
	"ms-marketplace/internal/sse"
	"ms-marketplace/internal/tickets/qr"
	tickets "ms-marketplace/internal/tickets/service"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// EventStore pages through the festival event outbox.
type EventStore interface {
	ListEvents(ctx context.Context, festivalID string, afterID int64, limit int) ([]models.Event, error)
}

type Handler struct {
	Festivals  *festivals.Service
	Roles      *roles.Service
	Lifecycle  *lifecycle.Service
	Tickets    *tickets.TicketService
	Listing    *listing.Service
	Settlement *settlement.Engine
	Ledger     payment.Ledger
	Events     EventStore
	Feed       *sse.Feed
	QR         *qr.QRGenerator
	Analytics  *analytics.Service
	Clock      clock.Clock
	Logger     *logger.Logger

	// Treasury is the only principal allowed to credit wallets.
	Treasury string
}

// Routes mounts every endpoint. Mutations and the QR pass sit behind the
// auth middleware.
func (h *Handler) Routes(verifier auth.Verifier) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		authenticated := auth.Middleware(verifier, h.Logger)

		r.Get("/festivals", h.ListFestivals)
		r.With(authenticated).Post("/festivals", h.CreateFestival)
		r.Get("/organisers/{address}/stats", h.GetOrganiserStats)
		r.Get("/wallets/{address}/balance", h.GetBalance)
		r.With(authenticated).Post("/wallets/{address}/deposit", h.Deposit)

		r.Route("/festivals/{festivalID}", func(r chi.Router) {
			r.Get("/", h.GetFestival)
			r.Get("/status", h.GetStatus)
			r.Get("/roles", h.ListRoles)
			r.Get("/tickets", h.ListTickets)
			r.Get("/tickets/count", h.TotalMinted)
			r.Get("/tickets/{tokenID}", h.GetTicket)
			r.Get("/tickets/{tokenID}/max-resale-price", h.MaxResalePrice)
			r.Get("/wallets/{address}", h.GetWallet)
			r.Get("/events", h.ListEvents)
			r.Get("/events/stream", h.StreamEvents)
			r.Get("/stats", h.GetFestivalStats)

			r.Group(func(r chi.Router) {
				r.Use(authenticated)

				r.Put("/status", h.SetStatus)
				r.Put("/config/max-tickets-per-wallet", h.SetMaxTicketsPerWallet)
				r.Put("/config/max-resale-percentage", h.SetMaxResalePercentage)
				r.Put("/config/royalty-percentage", h.SetRoyaltyPercentage)
				r.Put("/config/ticket-price", h.SetTicketPrice)
				r.Post("/roles", h.GrantRole)
				r.Delete("/roles/{role}/{address}", h.RevokeRole)

				r.Post("/tickets", h.Mint)
				r.Post("/tickets/batch", h.BatchMint)
				r.Post("/tickets/{tokenID}/gift", h.Gift)
				r.Post("/tickets/{tokenID}/verify", h.Verify)
				r.Put("/tickets/{tokenID}/listing", h.ListForSale)
				r.Delete("/tickets/{tokenID}/listing", h.Unlist)
				r.Post("/tickets/{tokenID}/buy", h.BuyFromCustomer)
				r.Get("/tickets/{tokenID}/qr", h.GetTicketQR)
				r.Post("/purchases", h.BuyFromOrganiser)
				r.Post("/checkin", h.Checkin)
			})
		})
	})
	return r
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.Logger.LogAPI(r.Method, r.URL.Path, strconv.Itoa(ww.Status()), time.Since(start).String())
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func tokenIDParam(r *http.Request) (uint64, error) {
	raw := chi.URLParam(r, "tokenID")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid token id %q", errBadRequest, raw)
	}
	return id, nil
}

func festivalID(r *http.Request) string {
	return chi.URLParam(r, "festivalID")
}

// caller is the authenticated wallet, or an empty string on public routes.
func caller(r *http.Request) string {
	return auth.Principal(r.Context())
}

var errBadRequest = errors.New("bad request")
