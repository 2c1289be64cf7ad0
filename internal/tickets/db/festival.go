package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"ms-marketplace/internal/models"
)

// ---------------- FESTIVALS ----------------

func (d *DB) CreateFestival(ctx context.Context, festival *models.Festival) error {
	_, err := d.idb(ctx).NewInsert().Model(festival).Exec(ctx)
	return err
}

func (d *DB) GetFestival(ctx context.Context, id string) (*models.Festival, error) {
	var festival models.Festival
	err := d.idb(ctx).NewSelect().
		Model(&festival).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("festival %s: %w", id, models.ErrFestivalNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &festival, nil
}

func (d *DB) UpdateFestival(ctx context.Context, festival *models.Festival) error {
	_, err := d.idb(ctx).NewUpdate().
		Model(festival).
		Column("max_tickets_per_wallet", "max_resale_percentage", "royalty_percentage", "ticket_price",
			"status", "next_token_id", "ownership_seq", "config_version", "updated_at").
		Where("id = ?", festival.ID).
		Exec(ctx)
	return err
}

func (d *DB) ListFestivals(ctx context.Context) ([]models.Festival, error) {
	festivals := []models.Festival{}
	err := d.idb(ctx).NewSelect().
		Model(&festivals).
		Order("created_at DESC").
		Scan(ctx)
	return festivals, err
}
