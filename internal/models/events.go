package models

import (
	"encoding/json"
	"time"

	"github.com/uptrace/bun"
)

// Event names as seen by indexers and the UI.
const (
	EventTicketMinted                 = "TicketMinted"
	EventTicketVerified               = "TicketVerified"
	EventTicketTransferred            = "TicketTransferred"
	EventTicketListedForSale          = "TicketListedForSale"
	EventTicketRemovedFromSale        = "TicketRemovedFromSale"
	EventTicketPurchasedFromCustomer  = "TicketPurchasedFromCustomer"
	EventTicketPurchasedFromOrganiser = "TicketPurchasedFromOrganiser"
	EventRoyaltyPaid                  = "RoyaltyPaid"
	EventStatusChanged                = "EventStatusChanged"
	EventMaxTicketsPerWalletUpdated   = "MaxTicketsPerWalletUpdated"
	EventMaxResalePercentageUpdated   = "MaxResalePercentageUpdated"
	EventRoyaltyPercentageUpdated     = "RoyaltyPercentageUpdated"
	EventTicketPriceUpdated           = "TicketPriceUpdated"
	EventRoleGranted                  = "RoleGranted"
	EventRoleRevoked                  = "RoleRevoked"
	EventFestivalCreated              = "FestivalCreated"
)

// Payload is implemented by every domain event body. Field order of the
// implementing struct is the wire order.
type Payload interface {
	EventName() string
}

// Event is one emitted domain event, also the outbox row relayed to Kafka.
type Event struct {
	bun.BaseModel `bun:"table:festival_events"`

	ID          int64           `bun:"id,pk,autoincrement" json:"id"`
	FestivalID  string          `bun:"festival_id,notnull" json:"festival_id"`
	Name        string          `bun:"name,notnull" json:"name"`
	Payload     json.RawMessage `bun:"payload,type:text,notnull" json:"payload"`
	CreatedAt   time.Time       `bun:"created_at,notnull" json:"created_at"`
	PublishedAt time.Time       `bun:"published_at,nullzero" json:"-"`
}

// NewEvent serialises a payload into an Event for festivalID.
func NewEvent(festivalID string, p Payload, at time.Time) (Event, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		FestivalID: festivalID,
		Name:       p.EventName(),
		Payload:    body,
		CreatedAt:  at,
	}, nil
}

type TicketMinted struct {
	Owner   string `json:"owner"`
	TokenID uint64 `json:"token_id"`
	Price   Amount `json:"price"`
}

func (TicketMinted) EventName() string { return EventTicketMinted }

type TicketVerified struct {
	TokenID   uint64    `json:"token_id"`
	Verifier  string    `json:"verifier"`
	Timestamp time.Time `json:"timestamp"`
}

func (TicketVerified) EventName() string { return EventTicketVerified }

type TicketTransferred struct {
	TokenID uint64 `json:"token_id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Gifted  bool   `json:"gifted"`
}

func (TicketTransferred) EventName() string { return EventTicketTransferred }

type TicketListedForSale struct {
	TokenID uint64 `json:"token_id"`
	Price   Amount `json:"price"`
}

func (TicketListedForSale) EventName() string { return EventTicketListedForSale }

type TicketRemovedFromSale struct {
	TokenID uint64 `json:"token_id"`
}

func (TicketRemovedFromSale) EventName() string { return EventTicketRemovedFromSale }

type TicketPurchasedFromCustomer struct {
	Buyer      string `json:"buyer"`
	Seller     string `json:"seller"`
	TokenID    uint64 `json:"token_id"`
	Price      Amount `json:"price"`
	Commission Amount `json:"commission"`
	Royalty    Amount `json:"royalty"`
}

func (TicketPurchasedFromCustomer) EventName() string { return EventTicketPurchasedFromCustomer }

type TicketPurchasedFromOrganiser struct {
	Buyer     string `json:"buyer"`
	Organiser string `json:"organiser"`
	TokenID   uint64 `json:"token_id"`
	Price     Amount `json:"price"`
}

func (TicketPurchasedFromOrganiser) EventName() string { return EventTicketPurchasedFromOrganiser }

type RoyaltyPaid struct {
	Festival  string `json:"festival"`
	Organiser string `json:"organiser"`
	Amount    Amount `json:"amount"`
}

func (RoyaltyPaid) EventName() string { return EventRoyaltyPaid }

type StatusChanged struct {
	Old FestivalStatus `json:"old"`
	New FestivalStatus `json:"new"`
}

func (StatusChanged) EventName() string { return EventStatusChanged }

type MaxTicketsPerWalletUpdated struct {
	Old uint32 `json:"old"`
	New uint32 `json:"new"`
}

func (MaxTicketsPerWalletUpdated) EventName() string { return EventMaxTicketsPerWalletUpdated }

type MaxResalePercentageUpdated struct {
	Old uint32 `json:"old"`
	New uint32 `json:"new"`
}

func (MaxResalePercentageUpdated) EventName() string { return EventMaxResalePercentageUpdated }

type RoyaltyPercentageUpdated struct {
	Old uint32 `json:"old"`
	New uint32 `json:"new"`
}

func (RoyaltyPercentageUpdated) EventName() string { return EventRoyaltyPercentageUpdated }

type TicketPriceUpdated struct {
	Old Amount `json:"old"`
	New Amount `json:"new"`
}

func (TicketPriceUpdated) EventName() string { return EventTicketPriceUpdated }

type RoleGranted struct {
	Role    Role   `json:"role"`
	Account string `json:"account"`
	Sender  string `json:"sender"`
}

func (RoleGranted) EventName() string { return EventRoleGranted }

type RoleRevoked struct {
	Role    Role   `json:"role"`
	Account string `json:"account"`
	Sender  string `json:"sender"`
}

func (RoleRevoked) EventName() string { return EventRoleRevoked }

type FestivalCreated struct {
	Festival  string `json:"festival"`
	Name      string `json:"name"`
	Symbol    string `json:"symbol"`
	Organiser string `json:"organiser"`
}

func (FestivalCreated) EventName() string { return EventFestivalCreated }

// NewEvents serialises several payloads emitted by one operation.
func NewEvents(festivalID string, at time.Time, payloads ...Payload) ([]Event, error) {
	events := make([]Event, 0, len(payloads))
	for _, p := range payloads {
		ev, err := NewEvent(festivalID, p, at)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}
