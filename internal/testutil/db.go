package testutil

import (
	"context"
	"database/sql"
	"testing"

	ticket_db "ms-marketplace/internal/tickets/db"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// NewDB opens a private in-memory SQLite ledger with the schema created.
// The pool is pinned to one connection so the in-memory database is shared
// by every query, including those inside transactions.
func NewDB(t *testing.T) *ticket_db.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = bunDB.Close() })

	store := &ticket_db.DB{Bun: bunDB}
	if err := store.CreateSchema(context.Background()); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}
	return store
}
