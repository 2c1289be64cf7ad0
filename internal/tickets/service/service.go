package tickets

import (
	"context"
	"fmt"
	"ms-marketplace/internal/clock"
	"ms-marketplace/internal/lifecycle"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/walletlimit"
)

type TicketDBLayer interface {
	WithTx(ctx context.Context, festivalID string, fn func(ctx context.Context) error) error
	GetFestival(ctx context.Context, id string) (*models.Festival, error)
	UpdateFestival(ctx context.Context, festival *models.Festival) error
	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	CreateTickets(ctx context.Context, tickets []models.Ticket) error
	GetTicket(ctx context.Context, festivalID string, tokenID uint64) (*models.Ticket, error)
	UpdateTicket(ctx context.Context, ticket *models.Ticket) error
	GetTicketsByOwner(ctx context.Context, festivalID, owner string) ([]models.Ticket, error)
	GetTicketsForSale(ctx context.Context, festivalID string) ([]models.Ticket, error)
	CountTicketsByOwner(ctx context.Context, festivalID, owner string) (int, error)
	AppendEvents(ctx context.Context, events ...models.Event) error
}

type Authorizer interface {
	Require(ctx context.Context, festivalID string, role models.Role, by string) error
}

// TicketService is the ticket registry: minting, gifting, check-in and reads.
type TicketService struct {
	DB     TicketDBLayer
	Roles  Authorizer
	Clock  clock.Clock
	Logger *logger.Logger
}

func NewTicketService(db TicketDBLayer, roles Authorizer, clk clock.Clock, log *logger.Logger) *TicketService {
	return &TicketService{DB: db, Roles: roles, Clock: clk, Logger: log}
}

// Mint creates one ticket for `to`. Requires MINTER, an ACTIVE festival and
// room under the wallet limit.
func (s *TicketService) Mint(ctx context.Context, festivalID, to, tokenURI string, purchasePrice models.Amount, by string) (*models.Ticket, error) {
	var minted *models.Ticket
	err := s.DB.WithTx(ctx, festivalID, func(ctx context.Context) error {
		f, err := s.mintable(ctx, festivalID, to, by)
		if err != nil {
			return err
		}

		owned, err := s.DB.CountTicketsByOwner(ctx, festivalID, models.NormalizeAddress(to))
		if err != nil {
			return fmt.Errorf("failed to count tickets of %s: %w", to, err)
		}
		if err := walletlimit.Check(owned, f.MaxTicketsPerWallet); err != nil {
			return err
		}

		ticket := s.newTicket(f, to, tokenURI, purchasePrice)
		if err := s.DB.CreateTicket(ctx, &ticket); err != nil {
			return fmt.Errorf("failed to create ticket: %w", err)
		}
		if err := s.DB.UpdateFestival(ctx, f); err != nil {
			return fmt.Errorf("failed to advance token counter: %w", err)
		}

		events, err := models.NewEvents(festivalID, s.Clock.Now(),
			models.TicketMinted{Owner: ticket.Owner, TokenID: ticket.TokenID, Price: purchasePrice})
		if err != nil {
			return err
		}
		if err := s.DB.AppendEvents(ctx, events...); err != nil {
			return err
		}
		minted = &ticket
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogTicket("MINT", festivalID, minted.TokenID, fmt.Sprintf("minted to %s for %s", minted.Owner, purchasePrice))
	return minted, nil
}

// BatchMint mints one ticket per URI for `to`. The batch must hold 1 to 10
// URIs and fit under the wallet limit as a whole; nothing is minted otherwise.
func (s *TicketService) BatchMint(ctx context.Context, festivalID, to string, tokenURIs []string, purchasePrice models.Amount, by string) ([]models.Ticket, error) {
	if len(tokenURIs) == 0 || len(tokenURIs) > models.MaxBatchSize {
		return nil, fmt.Errorf("batch of %d tickets: %w", len(tokenURIs), models.ErrInvalidBatchSize)
	}

	var minted []models.Ticket
	err := s.DB.WithTx(ctx, festivalID, func(ctx context.Context) error {
		f, err := s.mintable(ctx, festivalID, to, by)
		if err != nil {
			return err
		}

		owned, err := s.DB.CountTicketsByOwner(ctx, festivalID, models.NormalizeAddress(to))
		if err != nil {
			return fmt.Errorf("failed to count tickets of %s: %w", to, err)
		}
		if err := walletlimit.CheckBatch(owned, len(tokenURIs), f.MaxTicketsPerWallet); err != nil {
			return err
		}

		batch := make([]models.Ticket, 0, len(tokenURIs))
		payloads := make([]models.Payload, 0, len(tokenURIs))
		for _, uri := range tokenURIs {
			ticket := s.newTicket(f, to, uri, purchasePrice)
			batch = append(batch, ticket)
			payloads = append(payloads, models.TicketMinted{Owner: ticket.Owner, TokenID: ticket.TokenID, Price: purchasePrice})
		}
		if err := s.DB.CreateTickets(ctx, batch); err != nil {
			return fmt.Errorf("failed to create tickets: %w", err)
		}
		if err := s.DB.UpdateFestival(ctx, f); err != nil {
			return fmt.Errorf("failed to advance token counter: %w", err)
		}

		events, err := models.NewEvents(festivalID, s.Clock.Now(), payloads...)
		if err != nil {
			return err
		}
		if err := s.DB.AppendEvents(ctx, events...); err != nil {
			return err
		}
		minted = batch
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("TICKET", fmt.Sprintf("[BATCH_MINT] %s - %d tickets minted to %s", festivalID, len(minted), models.NormalizeAddress(to)))
	return minted, nil
}

func (s *TicketService) mintable(ctx context.Context, festivalID, to, by string) (*models.Festival, error) {
	f, err := s.DB.GetFestival(ctx, festivalID)
	if err != nil {
		return nil, err
	}
	if err := s.Roles.Require(ctx, festivalID, models.RoleMinter, by); err != nil {
		return nil, err
	}
	if err := lifecycle.RequireMintable(f); err != nil {
		return nil, err
	}
	if models.IsZeroAddress(to) {
		return nil, fmt.Errorf("cannot mint to zero address: %w", models.ErrInvalidRecipient)
	}
	return f, nil
}

func (s *TicketService) newTicket(f *models.Festival, to, tokenURI string, price models.Amount) models.Ticket {
	ticket := models.Ticket{
		FestivalID:    f.ID,
		TokenID:       f.NextTokenID,
		PurchasePrice: price,
		TokenURI:      tokenURI,
		MintedAt:      s.Clock.Now(),
	}
	f.NextTokenID++
	f.AssignOwner(&ticket, to)
	f.UpdatedAt = ticket.MintedAt
	return ticket
}

// Gift transfers a ticket from its owner to `to` without payment. Any resale
// listing is cleared in the same transaction.
func (s *TicketService) Gift(ctx context.Context, festivalID, from, to string, tokenID uint64, by string) (*models.Ticket, error) {
	var gifted *models.Ticket
	err := s.DB.WithTx(ctx, festivalID, func(ctx context.Context) error {
		f, err := s.DB.GetFestival(ctx, festivalID)
		if err != nil {
			return err
		}
		ticket, err := s.DB.GetTicket(ctx, festivalID, tokenID)
		if err != nil {
			return err
		}
		if !ticket.IsOwnedBy(by) || !ticket.IsOwnedBy(from) {
			return fmt.Errorf("%s does not own token %d: %w", by, tokenID, models.ErrUnauthorized)
		}
		if models.IsZeroAddress(to) || ticket.IsOwnedBy(to) {
			return fmt.Errorf("cannot gift token %d to %q: %w", tokenID, to, models.ErrInvalidRecipient)
		}
		if ticket.IsVerified {
			return fmt.Errorf("token %d was checked in: %w", tokenID, models.ErrTicketAlreadyUsed)
		}

		owned, err := s.DB.CountTicketsByOwner(ctx, festivalID, models.NormalizeAddress(to))
		if err != nil {
			return fmt.Errorf("failed to count tickets of %s: %w", to, err)
		}
		if err := walletlimit.Check(owned, f.MaxTicketsPerWallet); err != nil {
			return err
		}

		prevOwner := ticket.Owner
		var payloads []models.Payload
		if ticket.ClearListing() {
			payloads = append(payloads, models.TicketRemovedFromSale{TokenID: tokenID})
		}
		f.AssignOwner(ticket, to)
		ticket.IsGifted = true
		f.UpdatedAt = s.Clock.Now()

		if err := s.DB.UpdateTicket(ctx, ticket); err != nil {
			return fmt.Errorf("failed to update ticket: %w", err)
		}
		if err := s.DB.UpdateFestival(ctx, f); err != nil {
			return err
		}

		payloads = append(payloads, models.TicketTransferred{TokenID: tokenID, From: prevOwner, To: ticket.Owner, Gifted: true})
		events, err := models.NewEvents(festivalID, s.Clock.Now(), payloads...)
		if err != nil {
			return err
		}
		if err := s.DB.AppendEvents(ctx, events...); err != nil {
			return err
		}
		gifted = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogTicket("GIFT", festivalID, tokenID, fmt.Sprintf("gifted to %s", gifted.Owner))
	return gifted, nil
}

// Verify checks a ticket in. It succeeds once per ticket and is allowed in
// every festival status.
func (s *TicketService) Verify(ctx context.Context, festivalID string, tokenID uint64, by string) (*models.Ticket, error) {
	var verified *models.Ticket
	err := s.DB.WithTx(ctx, festivalID, func(ctx context.Context) error {
		f, err := s.DB.GetFestival(ctx, festivalID)
		if err != nil {
			return err
		}
		if err := s.Roles.Require(ctx, festivalID, models.RoleVerifier, by); err != nil {
			return err
		}
		if !lifecycle.CanVerify(f.Status) {
			return fmt.Errorf("festival %s is %s: %w", festivalID, f.Status, models.ErrInvalidStatus)
		}
		ticket, err := s.DB.GetTicket(ctx, festivalID, tokenID)
		if err != nil {
			return err
		}
		if ticket.IsVerified {
			return fmt.Errorf("token %d: %w", tokenID, models.ErrAlreadyVerified)
		}

		now := s.Clock.Now()
		var payloads []models.Payload
		if ticket.ClearListing() {
			payloads = append(payloads, models.TicketRemovedFromSale{TokenID: tokenID})
		}
		ticket.IsVerified = true
		ticket.VerifiedAt = now
		ticket.VerifiedBy = models.NormalizeAddress(by)

		if err := s.DB.UpdateTicket(ctx, ticket); err != nil {
			return fmt.Errorf("failed to update ticket: %w", err)
		}

		payloads = append(payloads, models.TicketVerified{TokenID: tokenID, Verifier: ticket.VerifiedBy, Timestamp: now})
		events, err := models.NewEvents(festivalID, now, payloads...)
		if err != nil {
			return err
		}
		if err := s.DB.AppendEvents(ctx, events...); err != nil {
			return err
		}
		verified = ticket
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogTicket("VERIFY", festivalID, tokenID, fmt.Sprintf("checked in by %s", verified.VerifiedBy))
	return verified, nil
}

func (s *TicketService) GetTicket(ctx context.Context, festivalID string, tokenID uint64) (*models.Ticket, error) {
	if _, err := s.DB.GetFestival(ctx, festivalID); err != nil {
		return nil, err
	}
	return s.DB.GetTicket(ctx, festivalID, tokenID)
}

// GetTicketsByOwner returns owner's tickets in acquisition order.
func (s *TicketService) GetTicketsByOwner(ctx context.Context, festivalID, owner string) ([]models.Ticket, error) {
	if _, err := s.DB.GetFestival(ctx, festivalID); err != nil {
		return nil, err
	}
	tickets, err := s.DB.GetTicketsByOwner(ctx, festivalID, models.NormalizeAddress(owner))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tickets for %s: %w", owner, err)
	}
	return tickets, nil
}

// TicketsOwnedBy returns the token ids held by owner in acquisition order.
func (s *TicketService) TicketsOwnedBy(ctx context.Context, festivalID, owner string) ([]uint64, error) {
	tickets, err := s.GetTicketsByOwner(ctx, festivalID, owner)
	if err != nil {
		return nil, err
	}
	return tokenIDs(tickets), nil
}

func (s *TicketService) GetTicketsForSale(ctx context.Context, festivalID string) ([]models.Ticket, error) {
	if _, err := s.DB.GetFestival(ctx, festivalID); err != nil {
		return nil, err
	}
	tickets, err := s.DB.GetTicketsForSale(ctx, festivalID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listed tickets: %w", err)
	}
	return tickets, nil
}

// TicketsForSale returns the listed token ids in ascending order.
func (s *TicketService) TicketsForSale(ctx context.Context, festivalID string) ([]uint64, error) {
	tickets, err := s.GetTicketsForSale(ctx, festivalID)
	if err != nil {
		return nil, err
	}
	return tokenIDs(tickets), nil
}

func (s *TicketService) TotalMinted(ctx context.Context, festivalID string) (uint64, error) {
	f, err := s.DB.GetFestival(ctx, festivalID)
	if err != nil {
		return 0, err
	}
	return f.TotalMinted(), nil
}

func tokenIDs(tickets []models.Ticket) []uint64 {
	ids := make([]uint64, 0, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.TokenID)
	}
	return ids
}
