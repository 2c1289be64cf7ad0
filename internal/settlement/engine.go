// Package settlement performs primary and secondary ticket sales: ownership
// changes and payment legs commit together or not at all.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"ms-marketplace/internal/clock"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/payment"
	"ms-marketplace/internal/walletlimit"
)

type DBLayer interface {
	WithTx(ctx context.Context, festivalID string, fn func(ctx context.Context) error) error
	GetFestival(ctx context.Context, id string) (*models.Festival, error)
	UpdateFestival(ctx context.Context, festival *models.Festival) error
	GetTicket(ctx context.Context, festivalID string, tokenID uint64) (*models.Ticket, error)
	UpdateTicket(ctx context.Context, ticket *models.Ticket) error
	CountTicketsByOwner(ctx context.Context, festivalID, owner string) (int, error)
	AppendEvents(ctx context.Context, events ...models.Event) error
}

// Minter is the ticket registry's primary mint.
type Minter interface {
	Mint(ctx context.Context, festivalID, to, tokenURI string, purchasePrice models.Amount, by string) (*models.Ticket, error)
}

type Engine struct {
	DB      DBLayer
	Tickets Minter
	Ledger  payment.Ledger
	Clock   clock.Clock
	Logger  *logger.Logger
}

func NewEngine(db DBLayer, tickets Minter, ledger payment.Ledger, clk clock.Clock, log *logger.Logger) *Engine {
	return &Engine{DB: db, Tickets: tickets, Ledger: ledger, Clock: clk, Logger: log}
}

// Sale is the outcome of a settled purchase.
type Sale struct {
	Ticket *models.Ticket `json:"ticket"`
	Buyer  string         `json:"buyer"`
	Seller string         `json:"seller"`
	Price  models.Amount  `json:"price"`
	Fees   *Fees          `json:"fees,omitempty"`
}

// BuyFromOrganiser mints a ticket to the buyer and pays the full price to the
// organiser. Primary sales carry no commission or royalty, and price must be
// the festival's face value.
func (e *Engine) BuyFromOrganiser(ctx context.Context, festivalID, buyer, tokenURI string, price models.Amount, by string) (*Sale, error) {
	if !models.SameAddress(buyer, by) {
		return nil, fmt.Errorf("%s cannot buy on behalf of %s: %w", by, buyer, models.ErrUnauthorized)
	}
	if models.IsZeroAddress(buyer) {
		return nil, fmt.Errorf("buyer must be set: %w", models.ErrInvalidRecipient)
	}
	buyer = models.NormalizeAddress(buyer)

	var (
		sale *Sale
		legs []models.TransferLeg
		paid bool
	)
	err := e.DB.WithTx(ctx, festivalID, func(ctx context.Context) error {
		f, err := e.DB.GetFestival(ctx, festivalID)
		if err != nil {
			return err
		}
		if err := f.CheckPrimaryPrice(price); err != nil {
			return err
		}

		ticket, err := e.Tickets.Mint(ctx, festivalID, buyer, tokenURI, price, f.Marketplace)
		if err != nil {
			return err
		}

		ev, err := models.NewEvent(festivalID, models.TicketPurchasedFromOrganiser{
			Buyer:     buyer,
			Organiser: f.Organiser,
			TokenID:   ticket.TokenID,
			Price:     price,
		}, e.Clock.Now())
		if err != nil {
			return err
		}
		if err := e.DB.AppendEvents(ctx, ev); err != nil {
			return err
		}

		legs = []models.TransferLeg{
			{From: buyer, To: f.Organiser, Amount: price, Memo: fmt.Sprintf("primary %s#%d", festivalID, ticket.TokenID)},
		}
		if err := e.Ledger.TransferBatch(ctx, legs); err != nil {
			return err
		}
		paid = true

		sale = &Sale{Ticket: ticket, Buyer: buyer, Seller: f.Organiser, Price: price}
		return nil
	})
	if err != nil {
		return nil, e.compensate(ctx, festivalID, err, paid, legs)
	}

	e.Logger.LogSettlement("PRIMARY", festivalID, fmt.Sprintf("token %d sold to %s for %s", sale.Ticket.TokenID, buyer, price))
	return sale, nil
}

// BuyFromCustomer settles a listed resale: the buyer pays the listing price,
// split into seller amount, marketplace commission and organiser royalty, and
// receives the ticket.
func (e *Engine) BuyFromCustomer(ctx context.Context, festivalID string, tokenID uint64, buyer, by string) (*Sale, error) {
	if !models.SameAddress(buyer, by) {
		return nil, fmt.Errorf("%s cannot buy on behalf of %s: %w", by, buyer, models.ErrUnauthorized)
	}
	if models.IsZeroAddress(buyer) {
		return nil, fmt.Errorf("buyer must be set: %w", models.ErrInvalidRecipient)
	}
	buyer = models.NormalizeAddress(buyer)

	var (
		sale *Sale
		legs []models.TransferLeg
		paid bool
	)
	err := e.DB.WithTx(ctx, festivalID, func(ctx context.Context) error {
		f, err := e.DB.GetFestival(ctx, festivalID)
		if err != nil {
			return err
		}
		t, err := e.DB.GetTicket(ctx, festivalID, tokenID)
		if err != nil {
			return err
		}
		if !t.IsForSale {
			return fmt.Errorf("token %d: %w", tokenID, models.ErrNotListed)
		}
		if t.IsVerified {
			return fmt.Errorf("token %d was checked in: %w", tokenID, models.ErrTicketAlreadyUsed)
		}
		if t.IsOwnedBy(buyer) {
			return fmt.Errorf("seller cannot buy own listing: %w", models.ErrInvalidRecipient)
		}

		owned, err := e.DB.CountTicketsByOwner(ctx, festivalID, buyer)
		if err != nil {
			return fmt.Errorf("failed to count tickets of %s: %w", buyer, err)
		}
		if err := walletlimit.Check(owned, f.MaxTicketsPerWallet); err != nil {
			return err
		}

		price := t.SellingPrice
		fees, err := CalculateResaleFees(price, f.RoyaltyPercentage)
		if err != nil {
			return err
		}

		seller := t.Owner
		t.ClearListing()
		f.AssignOwner(t, buyer)
		f.UpdatedAt = e.Clock.Now()
		if err := e.DB.UpdateTicket(ctx, t); err != nil {
			return fmt.Errorf("failed to transfer ticket: %w", err)
		}
		if err := e.DB.UpdateFestival(ctx, f); err != nil {
			return err
		}

		events, err := models.NewEvents(festivalID, f.UpdatedAt,
			models.TicketPurchasedFromCustomer{
				Buyer:      buyer,
				Seller:     seller,
				TokenID:    tokenID,
				Price:      price,
				Commission: fees.Commission,
				Royalty:    fees.Royalty,
			},
			models.RoyaltyPaid{Festival: festivalID, Organiser: f.Organiser, Amount: fees.Royalty},
		)
		if err != nil {
			return err
		}
		if err := e.DB.AppendEvents(ctx, events...); err != nil {
			return err
		}

		memo := fmt.Sprintf("resale %s#%d", festivalID, tokenID)
		legs = []models.TransferLeg{
			{From: buyer, To: seller, Amount: fees.SellerAmount, Memo: memo + " seller"},
			{From: buyer, To: f.Marketplace, Amount: fees.Commission, Memo: memo + " commission"},
			{From: buyer, To: f.Organiser, Amount: fees.Royalty, Memo: memo + " royalty"},
		}
		if err := e.Ledger.TransferBatch(ctx, legs); err != nil {
			return err
		}
		paid = true

		sale = &Sale{Ticket: t, Buyer: buyer, Seller: seller, Price: price, Fees: &fees}
		return nil
	})
	if err != nil {
		return nil, e.compensate(ctx, festivalID, err, paid, legs)
	}

	e.Logger.LogSettlement("RESALE", festivalID, fmt.Sprintf("token %d %s -> %s for %s (commission %s, royalty %s)",
		tokenID, sale.Seller, buyer, sale.Price, sale.Fees.Commission, sale.Fees.Royalty))
	return sale, nil
}

// compensate reverses legs a non-transactional ledger applied before the
// store transaction failed.
func (e *Engine) compensate(ctx context.Context, festivalID string, cause error, paid bool, legs []models.TransferLeg) error {
	if !paid || e.Ledger.Transactional() {
		return cause
	}
	if err := e.Ledger.TransferBatch(context.WithoutCancel(ctx), payment.Reversal(legs)); err != nil {
		e.Logger.Error("SETTLEMENT", fmt.Sprintf("Failed to reverse payment legs for %s: %v", festivalID, err))
		return errors.Join(cause, fmt.Errorf("payment reversal failed: %w", err))
	}
	e.Logger.LogSettlement("COMPENSATE", festivalID, fmt.Sprintf("reversed %d payment legs after %v", len(legs), cause))
	return cause
}
