package lifecycle_test

import (
	"context"
	"testing"

	"ms-marketplace/internal/clock"
	"ms-marketplace/internal/lifecycle"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/roles"
	"ms-marketplace/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanMintOnlyWhenActive(t *testing.T) {
	assert.True(t, lifecycle.CanMint(models.StatusActive))
	for _, s := range []models.FestivalStatus{models.StatusPaused, models.StatusCancelled, models.StatusCompleted} {
		assert.False(t, lifecycle.CanMint(s), s)
		assert.True(t, lifecycle.CanVerify(s), s)
	}
}

func TestSetStatus(t *testing.T) {
	store := testutil.NewDB(t)
	f := testutil.SeedFestival(t, store)
	clk := clock.NewFake(testutil.Epoch)
	svc := lifecycle.NewService(store, roles.NewService(store, clk, nil), clk, nil)
	ctx := context.Background()

	err := svc.SetStatus(ctx, f.ID, models.StatusPaused, testutil.Alice)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	err = svc.SetStatus(ctx, f.ID, "SOLD_OUT", testutil.Organiser)
	assert.ErrorIs(t, err, models.ErrInvalidStatus)

	// every transition is allowed, including leaving a terminal state
	for _, s := range []models.FestivalStatus{models.StatusCancelled, models.StatusActive, models.StatusCompleted, models.StatusPaused} {
		require.NoError(t, svc.SetStatus(ctx, f.ID, s, testutil.Organiser))
		got, err := svc.Status(ctx, f.ID)
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}

	events, err := store.ListEventsByName(ctx, f.ID, models.EventStatusChanged)
	require.NoError(t, err)
	assert.Len(t, events, 4)
	assert.JSONEq(t, `{"old":"ACTIVE","new":"CANCELLED"}`, string(events[0].Payload))

	stored, err := store.GetFestival(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, f.ConfigVersion+4, stored.ConfigVersion)
}

func TestRequireMintable(t *testing.T) {
	err := lifecycle.RequireMintable(&models.Festival{ID: "f", Status: models.StatusCancelled})
	assert.ErrorIs(t, err, models.ErrEventNotActive)
	assert.NoError(t, lifecycle.RequireMintable(&models.Festival{ID: "f", Status: models.StatusActive}))
}
