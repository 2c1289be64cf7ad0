package db

import (
	"context"
	"fmt"
	"ms-marketplace/internal/models"
)

var schemaModels = []interface{}{
	(*models.Festival)(nil),
	(*models.Ticket)(nil),
	(*models.RoleAssignment)(nil),
	(*models.Event)(nil),
	(*models.Balance)(nil),
	(*models.PaymentTransfer)(nil),
}

// CreateSchema creates every ledger table that does not exist yet. PostgreSQL
// deployments use the SQL migrations instead; this serves SQLite and tests.
func (d *DB) CreateSchema(ctx context.Context) error {
	for _, model := range schemaModels {
		if _, err := d.Bun.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("create table for %T: %w", model, err)
		}
	}
	_, err := d.Bun.NewCreateIndex().
		Model((*models.Ticket)(nil)).
		Index("tickets_owner_idx").
		IfNotExists().
		Column("festival_id", "owner", "owner_seq").
		Exec(ctx)
	return err
}
