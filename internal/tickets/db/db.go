package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"ms-marketplace/internal/models"
	"sync"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// DB is the festival ledger store. Every mutating service call runs inside
// WithTx so that ticket, festival, role and outbox rows commit together.
type DB struct {
	Bun *bun.DB

	// OnCommit receives the events appended by a transaction once it has committed.
	OnCommit func(events []models.Event)

	locks sync.Map
}

type txKey struct{}

type txState struct {
	tx     bun.Tx
	events []models.Event
}

func stateFrom(ctx context.Context) *txState {
	st, _ := ctx.Value(txKey{}).(*txState)
	return st
}

// InTx reports whether ctx carries an open ledger transaction.
func InTx(ctx context.Context) bool {
	return stateFrom(ctx) != nil
}

func (d *DB) festivalLock(festivalID string) *sync.Mutex {
	mu, _ := d.locks.LoadOrStore(festivalID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// WithTx runs fn in a transaction scoped to one festival. Calls for the same
// festival are serialized in-process; on PostgreSQL the festival row is also
// locked so other instances wait. Nested calls join the outer transaction.
func (d *DB) WithTx(ctx context.Context, festivalID string, fn func(ctx context.Context) error) error {
	if InTx(ctx) {
		return fn(ctx)
	}

	mu := d.festivalLock(festivalID)
	mu.Lock()
	defer mu.Unlock()

	st := &txState{}
	err := d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		st.tx = tx
		txCtx := context.WithValue(ctx, txKey{}, st)
		if festivalID != "" {
			if err := d.lockFestivalRow(txCtx, festivalID); err != nil {
				return err
			}
		}
		return fn(txCtx)
	})
	if err != nil {
		return err
	}

	if d.OnCommit != nil && len(st.events) > 0 {
		d.OnCommit(st.events)
	}
	return nil
}

func (d *DB) lockFestivalRow(ctx context.Context, festivalID string) error {
	if d.Bun.Dialect().Name() != dialect.PG {
		return nil
	}
	var id string
	err := d.idb(ctx).NewSelect().
		Model((*models.Festival)(nil)).
		Column("id").
		Where("id = ?", festivalID).
		For("UPDATE").
		Scan(ctx, &id)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("festival %s: %w", festivalID, models.ErrFestivalNotFound)
	}
	return err
}

// IDB returns the transaction carried by ctx, or the pool outside one.
func (d *DB) IDB(ctx context.Context) bun.IDB {
	return d.idb(ctx)
}

func (d *DB) idb(ctx context.Context) bun.IDB {
	if st := stateFrom(ctx); st != nil {
		return st.tx
	}
	return d.Bun
}

// ---------------- TICKETS ----------------

func (d *DB) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	_, err := d.idb(ctx).NewInsert().Model(ticket).Exec(ctx)
	return err
}

func (d *DB) CreateTickets(ctx context.Context, tickets []models.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	_, err := d.idb(ctx).NewInsert().Model(&tickets).Exec(ctx)
	return err
}

func (d *DB) GetTicket(ctx context.Context, festivalID string, tokenID uint64) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.idb(ctx).NewSelect().
		Model(&ticket).
		Where("festival_id = ?", festivalID).
		Where("token_id = ?", tokenID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("token %d: %w", tokenID, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (d *DB) UpdateTicket(ctx context.Context, ticket *models.Ticket) error {
	_, err := d.idb(ctx).NewUpdate().
		Model(ticket).
		Column("owner", "is_for_sale", "selling_price", "is_gifted", "is_verified", "verified_at", "verified_by", "owner_seq").
		Where("festival_id = ?", ticket.FestivalID).
		Where("token_id = ?", ticket.TokenID).
		Exec(ctx)
	return err
}

// GetTicketsByOwner returns owner's tickets in acquisition order.
func (d *DB) GetTicketsByOwner(ctx context.Context, festivalID, owner string) ([]models.Ticket, error) {
	tickets := []models.Ticket{}
	err := d.idb(ctx).NewSelect().
		Model(&tickets).
		Where("festival_id = ?", festivalID).
		Where("owner = ?", owner).
		Order("owner_seq ASC").
		Scan(ctx)
	return tickets, err
}

func (d *DB) GetTicketsForSale(ctx context.Context, festivalID string) ([]models.Ticket, error) {
	tickets := []models.Ticket{}
	err := d.idb(ctx).NewSelect().
		Model(&tickets).
		Where("festival_id = ?", festivalID).
		Where("is_for_sale = ?", true).
		Order("token_id ASC").
		Scan(ctx)
	return tickets, err
}
