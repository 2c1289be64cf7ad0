package db

import (
	"context"
	"ms-marketplace/internal/models"
	"time"

	"github.com/uptrace/bun"
)

// ---------------- OUTBOX ----------------

// AppendEvents stores events in the outbox. Inside a transaction they are
// handed to OnCommit after commit; outside one they are handed over at once.
func (d *DB) AppendEvents(ctx context.Context, events ...models.Event) error {
	if len(events) == 0 {
		return nil
	}
	for i := range events {
		if _, err := d.idb(ctx).NewInsert().Model(&events[i]).Exec(ctx); err != nil {
			return err
		}
	}
	if st := stateFrom(ctx); st != nil {
		st.events = append(st.events, events...)
		return nil
	}
	if d.OnCommit != nil {
		d.OnCommit(events)
	}
	return nil
}

// ListEvents pages through a festival's event history by ascending id.
func (d *DB) ListEvents(ctx context.Context, festivalID string, afterID int64, limit int) ([]models.Event, error) {
	events := []models.Event{}
	err := d.idb(ctx).NewSelect().
		Model(&events).
		Where("festival_id = ?", festivalID).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Scan(ctx)
	return events, err
}

// ListEventsByName returns every event of one kind for a festival.
func (d *DB) ListEventsByName(ctx context.Context, festivalID, name string) ([]models.Event, error) {
	events := []models.Event{}
	err := d.idb(ctx).NewSelect().
		Model(&events).
		Where("festival_id = ?", festivalID).
		Where("name = ?", name).
		Order("id ASC").
		Scan(ctx)
	return events, err
}

func (d *DB) GetUnpublishedEvents(ctx context.Context, limit int) ([]models.Event, error) {
	events := []models.Event{}
	err := d.idb(ctx).NewSelect().
		Model(&events).
		Where("published_at IS NULL").
		Order("id ASC").
		Limit(limit).
		Scan(ctx)
	return events, err
}

func (d *DB) MarkEventsPublished(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := d.idb(ctx).NewUpdate().
		Model((*models.Event)(nil)).
		Set("published_at = ?", at).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	return err
}
