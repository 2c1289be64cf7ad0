package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

type FestivalStatus string

const (
	StatusActive    FestivalStatus = "ACTIVE"
	StatusPaused    FestivalStatus = "PAUSED"
	StatusCancelled FestivalStatus = "CANCELLED"
	StatusCompleted FestivalStatus = "COMPLETED"
)

// ParseFestivalStatus accepts any casing of the four lifecycle states.
func ParseFestivalStatus(s string) (FestivalStatus, error) {
	switch st := FestivalStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusActive, StatusPaused, StatusCancelled, StatusCompleted:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

const (
	// CommissionPercentage is the marketplace's cut on every resale.
	CommissionPercentage uint32 = 10
	// MinResalePercentage keeps the resale ceiling at or above face value.
	MinResalePercentage uint32 = 100
	// MaxBatchSize bounds BatchMint.
	MaxBatchSize = 10
)

type Festival struct {
	bun.BaseModel `bun:"table:festivals"`

	ID                   string         `bun:"id,pk" json:"id"`
	Name                 string         `bun:"name,notnull" json:"name"`
	Symbol               string         `bun:"symbol,notnull" json:"symbol"`
	Organiser            string         `bun:"organiser,notnull" json:"organiser"`
	Marketplace          string         `bun:"marketplace,notnull" json:"marketplace"`
	MaxTicketsPerWallet  uint32         `bun:"max_tickets_per_wallet,notnull" json:"max_tickets_per_wallet"`
	MaxResalePercentage  uint32         `bun:"max_resale_percentage,notnull" json:"max_resale_percentage"`
	RoyaltyPercentage    uint32         `bun:"royalty_percentage,notnull" json:"royalty_percentage"`
	CommissionPercentage uint32         `bun:"commission_percentage,notnull" json:"commission_percentage"`
	TicketPrice          Amount         `bun:"ticket_price,notnull,default:0" json:"ticket_price"`
	Status               FestivalStatus `bun:"status,notnull" json:"status"`
	NextTokenID          uint64         `bun:"next_token_id,notnull" json:"-"`
	OwnershipSeq         uint64         `bun:"ownership_seq,notnull" json:"-"`
	ConfigVersion        int64          `bun:"config_version,notnull" json:"config_version"`
	CreatedAt            time.Time      `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt            time.Time      `bun:"updated_at,notnull" json:"updated_at"`
}

// TotalMinted is the number of tickets ever minted for the festival.
func (f *Festival) TotalMinted() uint64 {
	if f.NextTokenID == 0 {
		return 0
	}
	return f.NextTokenID - 1
}

// ResaleCeiling is the highest listing price allowed for a ticket bought at purchasePrice.
func (f *Festival) ResaleCeiling(purchasePrice Amount) Amount {
	return purchasePrice.Percent(f.MaxResalePercentage)
}

// CheckPrimaryPrice accepts only the face value. A festival without one does
// not sell directly.
func (f *Festival) CheckPrimaryPrice(price Amount) error {
	if f.TicketPrice == 0 {
		return fmt.Errorf("festival %s has no face value set: %w", f.ID, ErrInvalidPrice)
	}
	if price != f.TicketPrice {
		return fmt.Errorf("price %s does not match face value %s: %w", price, f.TicketPrice, ErrInvalidPrice)
	}
	return nil
}

// IsOrganiser reports whether addr is the festival organiser.
func (f *Festival) IsOrganiser(addr string) bool {
	return SameAddress(f.Organiser, addr)
}
