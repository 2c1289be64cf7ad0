// Package indexer rebuilds a read model of festivals from the event feed
// relayed to Kafka, the way an off-chain indexer follows a contract.
package indexer

import (
	"encoding/json"
	"fmt"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"sort"
	"sync"
)

// FestivalView is the indexed state of one festival.
type FestivalView struct {
	FestivalID  string                   `json:"festival_id"`
	Name        string                   `json:"name"`
	Organiser   string                   `json:"organiser"`
	Status      models.FestivalStatus    `json:"status"`
	Owners      map[uint64]string        `json:"owners"`
	Listings    map[uint64]models.Amount `json:"listings"`
	Verified    int                      `json:"verified"`
	Resales     int                      `json:"resales"`
	Volume      models.Amount            `json:"resale_volume"`
	Royalties   models.Amount            `json:"royalties"`
	LastEventID int64                    `json:"last_event_id"`
}

func (v *FestivalView) clone() FestivalView {
	c := *v
	c.Owners = make(map[uint64]string, len(v.Owners))
	for k, o := range v.Owners {
		c.Owners[k] = o
	}
	c.Listings = make(map[uint64]models.Amount, len(v.Listings))
	for k, p := range v.Listings {
		c.Listings[k] = p
	}
	return c
}

// Projection is safe for concurrent reads while the consumer applies events.
type Projection struct {
	mu        sync.RWMutex
	festivals map[string]*FestivalView
	log       *logger.Logger
}

func NewProjection(log *logger.Logger) *Projection {
	return &Projection{festivals: make(map[string]*FestivalView), log: log}
}

// Apply folds one event into the view. Events at or below the festival's last
// applied id are redeliveries and are ignored.
func (p *Projection) Apply(ev models.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	view, ok := p.festivals[ev.FestivalID]
	if !ok {
		view = &FestivalView{
			FestivalID: ev.FestivalID,
			Status:     models.StatusActive,
			Owners:     make(map[uint64]string),
			Listings:   make(map[uint64]models.Amount),
		}
		p.festivals[ev.FestivalID] = view
	}
	if ev.ID != 0 && ev.ID <= view.LastEventID {
		p.log.Debug("INDEXER", fmt.Sprintf("Skipping redelivered event %d for %s", ev.ID, ev.FestivalID))
		return nil
	}

	if err := apply(view, ev); err != nil {
		return fmt.Errorf("apply %s #%d: %w", ev.Name, ev.ID, err)
	}
	if ev.ID != 0 {
		view.LastEventID = ev.ID
	}
	return nil
}

func apply(view *FestivalView, ev models.Event) error {
	switch ev.Name {
	case models.EventFestivalCreated:
		var e models.FestivalCreated
		if err := json.Unmarshal(ev.Payload, &e); err != nil {
			return err
		}
		view.Name = e.Name
		view.Organiser = e.Organiser

	case models.EventTicketMinted:
		var e models.TicketMinted
		if err := json.Unmarshal(ev.Payload, &e); err != nil {
			return err
		}
		view.Owners[e.TokenID] = e.Owner

	case models.EventTicketTransferred:
		var e models.TicketTransferred
		if err := json.Unmarshal(ev.Payload, &e); err != nil {
			return err
		}
		view.Owners[e.TokenID] = e.To
		delete(view.Listings, e.TokenID)

	case models.EventTicketListedForSale:
		var e models.TicketListedForSale
		if err := json.Unmarshal(ev.Payload, &e); err != nil {
			return err
		}
		view.Listings[e.TokenID] = e.Price

	case models.EventTicketRemovedFromSale:
		var e models.TicketRemovedFromSale
		if err := json.Unmarshal(ev.Payload, &e); err != nil {
			return err
		}
		delete(view.Listings, e.TokenID)

	case models.EventTicketVerified:
		view.Verified++

	case models.EventTicketPurchasedFromCustomer:
		var e models.TicketPurchasedFromCustomer
		if err := json.Unmarshal(ev.Payload, &e); err != nil {
			return err
		}
		view.Owners[e.TokenID] = e.Buyer
		delete(view.Listings, e.TokenID)
		view.Resales++
		view.Volume += e.Price

	case models.EventRoyaltyPaid:
		var e models.RoyaltyPaid
		if err := json.Unmarshal(ev.Payload, &e); err != nil {
			return err
		}
		view.Royalties += e.Amount

	case models.EventStatusChanged:
		var e models.StatusChanged
		if err := json.Unmarshal(ev.Payload, &e); err != nil {
			return err
		}
		view.Status = e.New
	}
	return nil
}

// Festival returns a copy of the indexed view.
func (p *Projection) Festival(id string) (FestivalView, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	view, ok := p.festivals[id]
	if !ok {
		return FestivalView{}, false
	}
	return view.clone(), true
}

// TokensOf lists the token ids indexed for owner, ascending.
func (p *Projection) TokensOf(festivalID, owner string) []uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := []uint64{}
	view, ok := p.festivals[festivalID]
	if !ok {
		return ids
	}
	for id, o := range view.Owners {
		if models.SameAddress(o, owner) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
