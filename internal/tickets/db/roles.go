package db

import (
	"context"
	"ms-marketplace/internal/models"
)

// ---------------- ROLES ----------------

// GrantRole inserts the assignment and reports whether it was new.
func (d *DB) GrantRole(ctx context.Context, assignment *models.RoleAssignment) (bool, error) {
	res, err := d.idb(ctx).NewInsert().
		Model(assignment).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RevokeRole deletes the assignment and reports whether one existed.
func (d *DB) RevokeRole(ctx context.Context, festivalID string, role models.Role, address string) (bool, error) {
	res, err := d.idb(ctx).NewDelete().
		Model((*models.RoleAssignment)(nil)).
		Where("festival_id = ?", festivalID).
		Where("role = ?", role).
		Where("address = ?", address).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (d *DB) HasRole(ctx context.Context, festivalID string, role models.Role, address string) (bool, error) {
	return d.idb(ctx).NewSelect().
		Model((*models.RoleAssignment)(nil)).
		Where("festival_id = ?", festivalID).
		Where("role = ?", role).
		Where("address = ?", address).
		Exists(ctx)
}

func (d *DB) ListRoleAssignments(ctx context.Context, festivalID string) ([]models.RoleAssignment, error) {
	assignments := []models.RoleAssignment{}
	err := d.idb(ctx).NewSelect().
		Model(&assignments).
		Where("festival_id = ?", festivalID).
		Order("role ASC", "granted_at ASC").
		Scan(ctx)
	return assignments, err
}
