// Package listing enforces the resale price ceiling and owns the listing state
// of tickets, plus the admin setters of the per-festival market config.
package listing

import (
	"context"
	"fmt"
	"ms-marketplace/internal/clock"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
)

type DBLayer interface {
	WithTx(ctx context.Context, festivalID string, fn func(ctx context.Context) error) error
	GetFestival(ctx context.Context, id string) (*models.Festival, error)
	UpdateFestival(ctx context.Context, festival *models.Festival) error
	GetTicket(ctx context.Context, festivalID string, tokenID uint64) (*models.Ticket, error)
	UpdateTicket(ctx context.Context, ticket *models.Ticket) error
	AppendEvents(ctx context.Context, events ...models.Event) error
	LargestHolding(ctx context.Context, festivalID string) (int, error)
}

type Authorizer interface {
	Require(ctx context.Context, festivalID string, role models.Role, by string) error
}

type Service struct {
	DB     DBLayer
	Roles  Authorizer
	Clock  clock.Clock
	Logger *logger.Logger
}

func NewService(db DBLayer, roles Authorizer, clk clock.Clock, log *logger.Logger) *Service {
	return &Service{DB: db, Roles: roles, Clock: clk, Logger: log}
}

// CheckPrice validates a listing price against the ceiling derived from the
// original purchase price.
func CheckPrice(f *models.Festival, t *models.Ticket, price models.Amount) error {
	if price == 0 {
		return fmt.Errorf("listing price must be positive: %w", models.ErrInvalidPrice)
	}
	if ceiling := f.ResaleCeiling(t.PurchasePrice); price > ceiling {
		return fmt.Errorf("price %s above ceiling %s: %w", price, ceiling, models.ErrPriceExceedsResaleLimit)
	}
	return nil
}

// ListForSale puts the ticket up for resale at price. Listing an already
// listed ticket replaces its price.
func (s *Service) ListForSale(ctx context.Context, festivalID string, tokenID uint64, price models.Amount, by string) (*models.Ticket, error) {
	var listed *models.Ticket
	err := s.DB.WithTx(ctx, festivalID, func(ctx context.Context) error {
		f, t, err := s.ownedTicket(ctx, festivalID, tokenID, by)
		if err != nil {
			return err
		}
		if t.IsVerified {
			return fmt.Errorf("token %d was checked in: %w", tokenID, models.ErrTicketAlreadyUsed)
		}
		if err := CheckPrice(f, t, price); err != nil {
			return err
		}

		t.IsForSale = true
		t.SellingPrice = price
		if err := s.DB.UpdateTicket(ctx, t); err != nil {
			return fmt.Errorf("failed to list ticket: %w", err)
		}

		ev, err := models.NewEvent(festivalID, models.TicketListedForSale{TokenID: tokenID, Price: price}, s.Clock.Now())
		if err != nil {
			return err
		}
		listed = t
		return s.DB.AppendEvents(ctx, ev)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogTicket("LIST", festivalID, tokenID, fmt.Sprintf("listed at %s", price))
	return listed, nil
}

func (s *Service) Unlist(ctx context.Context, festivalID string, tokenID uint64, by string) (*models.Ticket, error) {
	var unlisted *models.Ticket
	err := s.DB.WithTx(ctx, festivalID, func(ctx context.Context) error {
		_, t, err := s.ownedTicket(ctx, festivalID, tokenID, by)
		if err != nil {
			return err
		}
		if !t.ClearListing() {
			return fmt.Errorf("token %d: %w", tokenID, models.ErrNotListed)
		}
		if err := s.DB.UpdateTicket(ctx, t); err != nil {
			return fmt.Errorf("failed to unlist ticket: %w", err)
		}

		ev, err := models.NewEvent(festivalID, models.TicketRemovedFromSale{TokenID: tokenID}, s.Clock.Now())
		if err != nil {
			return err
		}
		unlisted = t
		return s.DB.AppendEvents(ctx, ev)
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogTicket("UNLIST", festivalID, tokenID, "removed from sale")
	return unlisted, nil
}

func (s *Service) ownedTicket(ctx context.Context, festivalID string, tokenID uint64, by string) (*models.Festival, *models.Ticket, error) {
	f, err := s.DB.GetFestival(ctx, festivalID)
	if err != nil {
		return nil, nil, err
	}
	t, err := s.DB.GetTicket(ctx, festivalID, tokenID)
	if err != nil {
		return nil, nil, err
	}
	if !t.IsOwnedBy(by) {
		return nil, nil, fmt.Errorf("%s does not own token %d: %w", by, tokenID, models.ErrUnauthorized)
	}
	return f, t, nil
}

// MaxResalePrice is the highest price the ticket may currently be listed at.
func (s *Service) MaxResalePrice(ctx context.Context, festivalID string, tokenID uint64) (models.Amount, error) {
	f, err := s.DB.GetFestival(ctx, festivalID)
	if err != nil {
		return 0, err
	}
	t, err := s.DB.GetTicket(ctx, festivalID, tokenID)
	if err != nil {
		return 0, err
	}
	return f.ResaleCeiling(t.PurchasePrice), nil
}
