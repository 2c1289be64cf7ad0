package tickets_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ms-marketplace/internal/clock"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/roles"
	"ms-marketplace/internal/testutil"
	ticket_db "ms-marketplace/internal/tickets/db"
	tickets "ms-marketplace/internal/tickets/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) (*tickets.TicketService, *ticket_db.DB, *clock.Fake) {
	t.Helper()
	store := testutil.NewDB(t)
	clk := clock.NewFake(testutil.Epoch)
	svc := tickets.NewTicketService(store, roles.NewService(store, clk, nil), clk, nil)
	return svc, store, clk
}

func uris(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("ipfs://ticket/%d", i+1)
	}
	return out
}

func TestMint_AssignsSequentialTokenIDs(t *testing.T) {
	svc, store, _ := newRegistry(t)
	f := testutil.SeedFestival(t, store)
	ctx := context.Background()

	first, err := svc.Mint(ctx, f.ID, testutil.Alice, "ipfs://a", models.Units(100), testutil.Organiser)
	require.NoError(t, err)
	second, err := svc.Mint(ctx, f.ID, testutil.Bob, "ipfs://b", models.Units(100), testutil.Organiser)
	require.NoError(t, err)

	assert.Equal(t, uint64(1), first.TokenID)
	assert.Equal(t, uint64(2), second.TokenID)
	assert.Equal(t, models.Units(100), first.PurchasePrice)
	assert.False(t, first.IsForSale)
	assert.False(t, first.IsVerified)

	total, err := svc.TotalMinted(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), total)
	assert.Equal(t, []string{models.EventTicketMinted, models.EventTicketMinted}, testutil.EventNames(t, store, f.ID))
}

func TestMint_WalletLimit(t *testing.T) {
	svc, store, _ := newRegistry(t)
	f := testutil.SeedFestival(t, store)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.Mint(ctx, f.ID, testutil.Alice, "ipfs://t", models.Units(100), testutil.Organiser)
		require.NoError(t, err)
	}

	_, err := svc.Mint(ctx, f.ID, testutil.Alice, "ipfs://t", models.Units(100), testutil.Organiser)
	assert.ErrorIs(t, err, models.ErrWalletLimitReached)

	owned, err := svc.TicketsOwnedBy(ctx, f.ID, testutil.Alice)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, owned)

	total, err := svc.TotalMinted(ctx, f.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), total)
}

func TestMint_RequiresMinter(t *testing.T) {
	svc, store, _ := newRegistry(t)
	f := testutil.SeedFestival(t, store)

	_, err := svc.Mint(context.Background(), f.ID, testutil.Alice, "ipfs://a", models.Units(100), testutil.Bob)
	assert.ErrorIs(t, err, models.ErrUnauthorized)
}

func TestMint_ZeroRecipient(t *testing.T) {
	svc, store, _ := newRegistry(t)
	f := testutil.SeedFestival(t, store)

	_, err := svc.Mint(context.Background(), f.ID, models.ZeroAddress, "ipfs://a", models.Units(100), testutil.Organiser)
	assert.ErrorIs(t, err, models.ErrInvalidRecipient)
}

func TestMint_UnknownFestival(t *testing.T) {
	svc, _, _ := newRegistry(t)

	_, err := svc.Mint(context.Background(), "missing", testutil.Alice, "ipfs://a", models.Units(100), testutil.Organiser)
	assert.ErrorIs(t, err, models.ErrFestivalNotFound)
}

func TestBatchMint_AllOrNothing(t *testing.T) {
	svc, store, _ := newRegistry(t)
	f := testutil.SeedFestival(t, store)
	ctx := context.Background()

	_, err := svc.BatchMint(ctx, f.ID, testutil.Alice, uris(6), models.Units(100), testutil.Organiser)
	assert.ErrorIs(t, err, models.ErrBatchExceedsWalletLimit)

	total, err := svc.TotalMinted(ctx, f.ID)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, testutil.EventNames(t, store, f.ID))

	minted, err := svc.BatchMint(ctx, f.ID, testutil.Alice, uris(5), models.Units(100), testutil.Organiser)
	require.NoError(t, err)
	require.Len(t, minted, 5)
	for i, ticket := range minted {
		assert.Equal(t, uint64(i+1), ticket.TokenID)
		assert.Equal(t, fmt.Sprintf("ipfs://ticket/%d", i+1), ticket.TokenURI)
	}
}

func TestBatchMint_CountsExistingHoldings(t *testing.T) {
	svc, store, _ := newRegistry(t)
	f := testutil.SeedFestival(t, store)
	ctx := context.Background()

	_, err := svc.BatchMint(ctx, f.ID, testutil.Alice, uris(3), models.Units(100), testutil.Organiser)
	require.NoError(t, err)

	_, err = svc.BatchMint(ctx, f.ID, testutil.Alice, uris(3), models.Units(100), testutil.Organiser)
	assert.ErrorIs(t, err, models.ErrBatchExceedsWalletLimit)
}

func TestBatchMint_Size(t *testing.T) {
	svc, store, _ := newRegistry(t)
	f := testutil.SeedFestival(t, store, func(f *models.Festival) { f.MaxTicketsPerWallet = 50 })
	ctx := context.Background()

	tests := []struct {
		name string
		n    int
	}{
		{"empty", 0},
		{"over max", models.MaxBatchSize + 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.BatchMint(ctx, f.ID, testutil.Alice, uris(tt.n), models.Units(100), testutil.Organiser)
			assert.ErrorIs(t, err, models.ErrInvalidBatchSize)
		})
	}

	minted, err := svc.BatchMint(ctx, f.ID, testutil.Alice, uris(models.MaxBatchSize), models.Units(100), testutil.Organiser)
	require.NoError(t, err)
	assert.Len(t, minted, models.MaxBatchSize)
}

func TestCancelledFestival_BlocksMintButNotVerify(t *testing.T) {
	svc, store, _ := newRegistry(t)
	f := testutil.SeedFestival(t, store)
	ctx := context.Background()

	ticket, err := svc.Mint(ctx, f.ID, testutil.Alice, "ipfs://a", models.Units(100), testutil.Organiser)
	require.NoError(t, err)

	f.Status = models.StatusCancelled
	require.NoError(t, store.UpdateFestival(ctx, f))

	_, err = svc.Mint(ctx, f.ID, testutil.Alice, "ipfs://b", models.Units(100), testutil.Organiser)
	assert.ErrorIs(t, err, models.ErrEventNotActive)
	_, err = svc.BatchMint(ctx, f.ID, testutil.Bob, uris(2), models.Units(100), testutil.Organiser)
	assert.ErrorIs(t, err, models.ErrEventNotActive)

	verified, err := svc.Verify(ctx, f.ID, ticket.TokenID, testutil.Verifier)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)
}

func TestVerify(t *testing.T) {
	svc, store, clk := newRegistry(t)
	f := testutil.SeedFestival(t, store)
	ctx := context.Background()

	ticket, err := svc.Mint(ctx, f.ID, testutil.Alice, "ipfs://a", models.Units(100), testutil.Organiser)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, f.ID, ticket.TokenID, testutil.Alice)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	clk.Advance(time.Hour)
	verified, err := svc.Verify(ctx, f.ID, ticket.TokenID, testutil.Verifier)
	require.NoError(t, err)
	assert.True(t, verified.IsVerified)
	assert.Equal(t, testutil.Epoch.Add(time.Hour), verified.VerifiedAt)

	_, err = svc.Verify(ctx, f.ID, ticket.TokenID, testutil.Verifier)
	assert.ErrorIs(t, err, models.ErrAlreadyVerified)

	_, err = svc.Verify(ctx, f.ID, 99, testutil.Verifier)
	assert.ErrorIs(t, err, models.ErrNotFound)

	stored, err := svc.GetTicket(ctx, f.ID, ticket.TokenID)
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)
	assert.Equal(t, models.NormalizeAddress(testutil.Verifier), stored.VerifiedBy)
}

func TestVerify_ClearsListing(t *testing.T) {
	svc, store, _ := newRegistry(t)
	f := testutil.SeedFestival(t, store)
	ctx := context.Background()

	ticket, err := svc.Mint(ctx, f.ID, testutil.Alice, "ipfs://a", models.Units(100), testutil.Organiser)
	require.NoError(t, err)
	ticket.IsForSale = true
	ticket.SellingPrice = models.Units(105)
	require.NoError(t, store.UpdateTicket(ctx, ticket))

	_, err = svc.Verify(ctx, f.ID, ticket.TokenID, testutil.Verifier)
	require.NoError(t, err)

	forSale, err := svc.TicketsForSale(ctx, f.ID)
	require.NoError(t, err)
	assert.Empty(t, forSale)
}

func TestGift(t *testing.T) {
	svc, store, _ := newRegistry(t)
	f := testutil.SeedFestival(t, store)
	ctx := context.Background()

	ticket, err := svc.Mint(ctx, f.ID, testutil.Alice, "ipfs://a", models.Units(100), testutil.Organiser)
	require.NoError(t, err)
	ticket.IsForSale = true
	ticket.SellingPrice = models.Units(110)
	require.NoError(t, store.UpdateTicket(ctx, ticket))

	gifted, err := svc.Gift(ctx, f.ID, testutil.Alice, testutil.Bob, ticket.TokenID, testutil.Alice)
	require.NoError(t, err)
	assert.Equal(t, models.NormalizeAddress(testutil.Bob), gifted.Owner)
	assert.True(t, gifted.IsGifted)
	assert.False(t, gifted.IsForSale)
	assert.Zero(t, gifted.SellingPrice)

	aliceTickets, err := svc.TicketsOwnedBy(ctx, f.ID, testutil.Alice)
	require.NoError(t, err)
	assert.Empty(t, aliceTickets)
	bobTickets, err := svc.TicketsOwnedBy(ctx, f.ID, testutil.Bob)
	require.NoError(t, err)
	assert.Equal(t, []uint64{ticket.TokenID}, bobTickets)

	assert.Equal(t, []string{
		models.EventTicketMinted,
		models.EventTicketRemovedFromSale,
		models.EventTicketTransferred,
	}, testutil.EventNames(t, store, f.ID))
}

func TestGift_Rejections(t *testing.T) {
	svc, store, _ := newRegistry(t)
	f := testutil.SeedFestival(t, store, func(f *models.Festival) { f.MaxTicketsPerWallet = 1 })
	ctx := context.Background()

	ticket, err := svc.Mint(ctx, f.ID, testutil.Alice, "ipfs://a", models.Units(100), testutil.Organiser)
	require.NoError(t, err)
	_, err = svc.Mint(ctx, f.ID, testutil.Carol, "ipfs://c", models.Units(100), testutil.Organiser)
	require.NoError(t, err)

	tests := []struct {
		name     string
		from, to string
		by       string
		want     error
	}{
		{"not the owner", testutil.Alice, testutil.Bob, testutil.Bob, models.ErrUnauthorized},
		{"from is not the owner", testutil.Bob, testutil.Carol, testutil.Alice, models.ErrUnauthorized},
		{"zero recipient", testutil.Alice, models.ZeroAddress, testutil.Alice, models.ErrInvalidRecipient},
		{"self gift", testutil.Alice, testutil.Alice, testutil.Alice, models.ErrInvalidRecipient},
		{"recipient at limit", testutil.Alice, testutil.Carol, testutil.Alice, models.ErrWalletLimitReached},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Gift(ctx, f.ID, tt.from, tt.to, ticket.TokenID, tt.by)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err = svc.Verify(ctx, f.ID, ticket.TokenID, testutil.Verifier)
	require.NoError(t, err)
	_, err = svc.Gift(ctx, f.ID, testutil.Alice, testutil.Bob, ticket.TokenID, testutil.Alice)
	assert.ErrorIs(t, err, models.ErrTicketAlreadyUsed)
}

func TestTicketsOwnedBy_AcquisitionOrder(t *testing.T) {
	svc, store, _ := newRegistry(t)
	f := testutil.SeedFestival(t, store)
	ctx := context.Background()

	_, err := svc.BatchMint(ctx, f.ID, testutil.Alice, uris(2), models.Units(100), testutil.Organiser)
	require.NoError(t, err)
	_, err = svc.Mint(ctx, f.ID, testutil.Bob, "ipfs://b", models.Units(100), testutil.Organiser)
	require.NoError(t, err)

	_, err = svc.Gift(ctx, f.ID, testutil.Bob, testutil.Alice, 3, testutil.Bob)
	require.NoError(t, err)
	_, err = svc.Gift(ctx, f.ID, testutil.Alice, testutil.Bob, 1, testutil.Alice)
	require.NoError(t, err)
	_, err = svc.Gift(ctx, f.ID, testutil.Bob, testutil.Alice, 1, testutil.Bob)
	require.NoError(t, err)

	owned, err := svc.TicketsOwnedBy(ctx, f.ID, testutil.Alice)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 3, 1}, owned)

	balance, err := svc.BalanceOf(ctx, f.ID, testutil.Alice)
	require.NoError(t, err)
	assert.Equal(t, 3, balance)

	remaining, err := svc.RemainingAllowance(ctx, f.ID, testutil.Alice)
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)
}

func TestAddressesAreCaseInsensitive(t *testing.T) {
	svc, store, _ := newRegistry(t)
	f := testutil.SeedFestival(t, store)
	ctx := context.Background()

	upper := "0x0000000000000000000000000000000000000A11"
	_, err := svc.Mint(ctx, f.ID, upper, "ipfs://a", models.Units(100), "0x00000000000000000000000000000000000000A1")
	require.NoError(t, err)

	owned, err := svc.TicketsOwnedBy(ctx, f.ID, testutil.Alice)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, owned)
}

// MockTicketDBLayer is used where a store failure has to be simulated.
type MockTicketDBLayer struct {
	mock.Mock
}

func (m *MockTicketDBLayer) WithTx(ctx context.Context, festivalID string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (m *MockTicketDBLayer) GetFestival(ctx context.Context, id string) (*models.Festival, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Festival), args.Error(1)
}

func (m *MockTicketDBLayer) UpdateFestival(ctx context.Context, festival *models.Festival) error {
	return m.Called(festival).Error(0)
}

func (m *MockTicketDBLayer) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	return m.Called(ticket).Error(0)
}

func (m *MockTicketDBLayer) CreateTickets(ctx context.Context, batch []models.Ticket) error {
	return m.Called(batch).Error(0)
}

func (m *MockTicketDBLayer) GetTicket(ctx context.Context, festivalID string, tokenID uint64) (*models.Ticket, error) {
	args := m.Called(festivalID, tokenID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *MockTicketDBLayer) UpdateTicket(ctx context.Context, ticket *models.Ticket) error {
	return m.Called(ticket).Error(0)
}

func (m *MockTicketDBLayer) GetTicketsByOwner(ctx context.Context, festivalID, owner string) ([]models.Ticket, error) {
	args := m.Called(festivalID, owner)
	return args.Get(0).([]models.Ticket), args.Error(1)
}

func (m *MockTicketDBLayer) GetTicketsForSale(ctx context.Context, festivalID string) ([]models.Ticket, error) {
	args := m.Called(festivalID)
	return args.Get(0).([]models.Ticket), args.Error(1)
}

func (m *MockTicketDBLayer) CountTicketsByOwner(ctx context.Context, festivalID, owner string) (int, error) {
	args := m.Called(festivalID, owner)
	return args.Int(0), args.Error(1)
}

func (m *MockTicketDBLayer) AppendEvents(ctx context.Context, events ...models.Event) error {
	return m.Called(events).Error(0)
}

type allowAll struct{}

func (allowAll) Require(context.Context, string, models.Role, string) error { return nil }

func TestMint_StoreFailure(t *testing.T) {
	mockDB := new(MockTicketDBLayer)
	svc := &tickets.TicketService{DB: mockDB, Roles: allowAll{}, Clock: clock.NewFake(testutil.Epoch)}

	f := &models.Festival{ID: "fest-1", Status: models.StatusActive, MaxTicketsPerWallet: 5, NextTokenID: 1}
	mockDB.On("GetFestival", "fest-1").Return(f, nil)
	mockDB.On("CountTicketsByOwner", "fest-1", testutil.Alice).Return(0, nil)
	mockDB.On("CreateTicket", mock.Anything).Return(errors.New("disk full"))

	_, err := svc.Mint(context.Background(), "fest-1", testutil.Alice, "ipfs://a", models.Units(100), testutil.Organiser)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	mockDB.AssertNotCalled(t, "AppendEvents", mock.Anything)
}
