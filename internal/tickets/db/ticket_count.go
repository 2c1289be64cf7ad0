package db

import (
	"context"
	"ms-marketplace/internal/models"
)

// CountTicketsByOwner returns how many tickets of the festival owner currently holds.
func (d *DB) CountTicketsByOwner(ctx context.Context, festivalID, owner string) (int, error) {
	return d.idb(ctx).NewSelect().
		Model((*models.Ticket)(nil)).
		Where("festival_id = ?", festivalID).
		Where("owner = ?", owner).
		Count(ctx)
}

// LargestHolding returns the most tickets of the festival held by any one wallet.
func (d *DB) LargestHolding(ctx context.Context, festivalID string) (int, error) {
	var counts []int
	err := d.idb(ctx).NewSelect().
		Model((*models.Ticket)(nil)).
		ColumnExpr("COUNT(*) AS held").
		Where("festival_id = ?", festivalID).
		Group("owner").
		OrderExpr("held DESC").
		Limit(1).
		Scan(ctx, &counts)
	if err != nil {
		return 0, err
	}
	if len(counts) == 0 {
		return 0, nil
	}
	return counts[0], nil
}
