package listing_test

import (
	"context"
	"testing"

	"ms-marketplace/internal/clock"
	"ms-marketplace/internal/listing"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/roles"
	"ms-marketplace/internal/testutil"
	ticket_db "ms-marketplace/internal/tickets/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*listing.Service, *ticket_db.DB, *models.Festival) {
	t.Helper()
	store := testutil.NewDB(t)
	clk := clock.NewFake(testutil.Epoch)
	f := testutil.SeedFestival(t, store)
	svc := listing.NewService(store, roles.NewService(store, clk, nil), clk, nil)
	return svc, store, f
}

func seedTicket(t *testing.T, store *ticket_db.DB, f *models.Festival, tokenID uint64, owner string, price models.Amount) *models.Ticket {
	t.Helper()
	ticket := &models.Ticket{
		FestivalID:    f.ID,
		TokenID:       tokenID,
		Owner:         owner,
		PurchasePrice: price,
		TokenURI:      "ipfs://t",
		OwnerSeq:      tokenID,
		MintedAt:      testutil.Epoch,
	}
	require.NoError(t, store.CreateTicket(context.Background(), ticket))
	return ticket
}

func TestListForSale_Ceiling(t *testing.T) {
	svc, store, f := setup(t)
	seedTicket(t, store, f, 1, testutil.Alice, models.Units(100))
	ctx := context.Background()

	_, err := svc.ListForSale(ctx, f.ID, 1, models.Units(111), testutil.Alice)
	assert.ErrorIs(t, err, models.ErrPriceExceedsResaleLimit)

	listed, err := svc.ListForSale(ctx, f.ID, 1, models.Units(110), testutil.Alice)
	require.NoError(t, err)
	assert.True(t, listed.IsForSale)
	assert.Equal(t, models.Units(110), listed.SellingPrice)

	// one minor unit above the ceiling
	_, err = svc.ListForSale(ctx, f.ID, 1, models.Units(110)+1, testutil.Alice)
	assert.ErrorIs(t, err, models.ErrPriceExceedsResaleLimit)

	ceiling, err := svc.MaxResalePrice(ctx, f.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.Units(110), ceiling)
}

func TestListForSale_CeilingUsesOriginalPrice(t *testing.T) {
	svc, store, f := setup(t)
	ticket := seedTicket(t, store, f, 1, testutil.Alice, models.Units(100))
	ctx := context.Background()

	// A previous resale at the ceiling must not raise the next ceiling.
	ticket.IsForSale = true
	ticket.SellingPrice = models.Units(110)
	require.NoError(t, store.UpdateTicket(ctx, ticket))

	_, err := svc.ListForSale(ctx, f.ID, 1, models.Units(121), testutil.Alice)
	assert.ErrorIs(t, err, models.ErrPriceExceedsResaleLimit)
}

func TestListForSale_Rejections(t *testing.T) {
	svc, store, f := setup(t)
	seedTicket(t, store, f, 1, testutil.Alice, models.Units(100))
	used := seedTicket(t, store, f, 2, testutil.Alice, models.Units(100))
	used.IsVerified = true
	used.VerifiedAt = testutil.Epoch
	used.VerifiedBy = testutil.Verifier
	require.NoError(t, store.UpdateTicket(context.Background(), used))

	tests := []struct {
		name    string
		tokenID uint64
		price   models.Amount
		by      string
		want    error
	}{
		{"not owner", 1, models.Units(100), testutil.Bob, models.ErrUnauthorized},
		{"zero price", 1, 0, testutil.Alice, models.ErrInvalidPrice},
		{"verified", 2, models.Units(100), testutil.Alice, models.ErrTicketAlreadyUsed},
		{"unknown token", 9, models.Units(100), testutil.Alice, models.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ListForSale(context.Background(), f.ID, tt.tokenID, tt.price, tt.by)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRelistUpdatesPrice(t *testing.T) {
	svc, store, f := setup(t)
	seedTicket(t, store, f, 1, testutil.Alice, models.Units(100))
	ctx := context.Background()

	_, err := svc.ListForSale(ctx, f.ID, 1, models.Units(105), testutil.Alice)
	require.NoError(t, err)
	_, err = svc.ListForSale(ctx, f.ID, 1, models.Units(108), testutil.Alice)
	require.NoError(t, err)

	stored, err := store.GetTicket(ctx, f.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, models.Units(108), stored.SellingPrice)
}

func TestUnlist(t *testing.T) {
	svc, store, f := setup(t)
	seedTicket(t, store, f, 1, testutil.Alice, models.Units(100))
	ctx := context.Background()

	_, err := svc.Unlist(ctx, f.ID, 1, testutil.Alice)
	assert.ErrorIs(t, err, models.ErrNotListed)

	_, err = svc.ListForSale(ctx, f.ID, 1, models.Units(100), testutil.Alice)
	require.NoError(t, err)

	_, err = svc.Unlist(ctx, f.ID, 1, testutil.Bob)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	unlisted, err := svc.Unlist(ctx, f.ID, 1, testutil.Alice)
	require.NoError(t, err)
	assert.False(t, unlisted.IsForSale)
	assert.Zero(t, unlisted.SellingPrice)

	forSale, err := store.GetTicketsForSale(ctx, f.ID)
	require.NoError(t, err)
	assert.Empty(t, forSale)

	assert.Equal(t, []string{models.EventTicketListedForSale, models.EventTicketRemovedFromSale}, testutil.EventNames(t, store, f.ID))
}

func TestCheckPrice(t *testing.T) {
	f := &models.Festival{MaxResalePercentage: 125}
	ticket := &models.Ticket{PurchasePrice: models.Units(80)}

	assert.NoError(t, listing.CheckPrice(f, ticket, models.Units(100)))
	assert.ErrorIs(t, listing.CheckPrice(f, ticket, models.Units(100)+1), models.ErrPriceExceedsResaleLimit)
	assert.ErrorIs(t, listing.CheckPrice(f, ticket, 0), models.ErrInvalidPrice)
}
