package testutil

import (
	"context"
	"testing"
	"time"

	"ms-marketplace/internal/models"
	ticket_db "ms-marketplace/internal/tickets/db"
)

const (
	Organiser   = "0x00000000000000000000000000000000000000a1"
	Marketplace = "0x00000000000000000000000000000000000000b2"
	Verifier    = "0x00000000000000000000000000000000000000c3"
	Alice       = "0x0000000000000000000000000000000000000a11"
	Bob         = "0x0000000000000000000000000000000000000b0b"
	Carol       = "0x0000000000000000000000000000000000000ca1"
)

// Epoch is the fixed start time used by fake clocks in tests.
var Epoch = time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)

// SeedFestival stores an ACTIVE festival with the usual role grants written
// straight to the store: organiser ADMIN and MINTER, marketplace MINTER and
// a VERIFIER.
func SeedFestival(t *testing.T, store *ticket_db.DB, mutate ...func(f *models.Festival)) *models.Festival {
	t.Helper()
	ctx := context.Background()

	f := &models.Festival{
		ID:                   "fest-1",
		Name:                 "Summer Sound",
		Symbol:               "SSF",
		Organiser:            Organiser,
		Marketplace:          Marketplace,
		MaxTicketsPerWallet:  5,
		MaxResalePercentage:  110,
		RoyaltyPercentage:    5,
		CommissionPercentage: models.CommissionPercentage,
		TicketPrice:          models.Units(75),
		Status:               models.StatusActive,
		NextTokenID:          1,
		ConfigVersion:        1,
		CreatedAt:            Epoch,
		UpdatedAt:            Epoch,
	}
	for _, m := range mutate {
		m(f)
	}
	if err := store.CreateFestival(ctx, f); err != nil {
		t.Fatalf("Failed to seed festival: %v", err)
	}

	grants := []models.RoleAssignment{
		{FestivalID: f.ID, Role: models.RoleAdmin, Address: Organiser},
		{FestivalID: f.ID, Role: models.RoleMinter, Address: Organiser},
		{FestivalID: f.ID, Role: models.RoleMinter, Address: Marketplace},
		{FestivalID: f.ID, Role: models.RoleVerifier, Address: Verifier},
	}
	for i := range grants {
		grants[i].GrantedBy = Organiser
		grants[i].GrantedAt = Epoch
		if _, err := store.GrantRole(ctx, &grants[i]); err != nil {
			t.Fatalf("Failed to seed role %s: %v", grants[i].Role, err)
		}
	}
	return f
}

// EventNames lists the names of every outbox event stored for the festival.
func EventNames(t *testing.T, store *ticket_db.DB, festivalID string) []string {
	t.Helper()
	events, err := store.ListEvents(context.Background(), festivalID, 0, 1000)
	if err != nil {
		t.Fatalf("Failed to list events: %v", err)
	}
	names := make([]string, 0, len(events))
	for _, ev := range events {
		names = append(names, ev.Name)
	}
	return names
}
