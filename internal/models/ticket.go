package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	FestivalID    string    `bun:"festival_id,pk" json:"festival_id"`
	TokenID       uint64    `bun:"token_id,pk" json:"token_id"`
	Owner         string    `bun:"owner,notnull" json:"owner"`
	PurchasePrice Amount    `bun:"purchase_price,notnull" json:"purchase_price"`
	IsForSale     bool      `bun:"is_for_sale,notnull" json:"is_for_sale"`
	SellingPrice  Amount    `bun:"selling_price,notnull" json:"selling_price"`
	IsGifted      bool      `bun:"is_gifted,notnull" json:"is_gifted"`
	IsVerified    bool      `bun:"is_verified,notnull" json:"is_verified"`
	VerifiedAt    time.Time `bun:"verified_at,nullzero" json:"verified_at,omitempty"`
	VerifiedBy    string    `bun:"verified_by,nullzero" json:"verified_by,omitempty"`
	TokenURI      string    `bun:"token_uri,notnull" json:"token_uri"`
	OwnerSeq      uint64    `bun:"owner_seq,notnull" json:"-"`
	MintedAt      time.Time `bun:"minted_at,notnull" json:"minted_at"`
}

// ClearListing drops any active resale listing.
func (t *Ticket) ClearListing() bool {
	wasListed := t.IsForSale
	t.IsForSale = false
	t.SellingPrice = 0
	return wasListed
}

// IsOwnedBy reports whether addr currently holds the ticket.
func (t *Ticket) IsOwnedBy(addr string) bool {
	return SameAddress(t.Owner, addr)
}

// AssignOwner moves t to owner and stamps the festival's next acquisition
// sequence so owner listings keep acquisition order.
func (f *Festival) AssignOwner(t *Ticket, owner string) {
	f.OwnershipSeq++
	t.Owner = NormalizeAddress(owner)
	t.OwnerSeq = f.OwnershipSeq
}
