package payment_test

import (
	"context"
	"errors"
	"testing"

	"ms-marketplace/internal/clock"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/payment"
	"ms-marketplace/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBLedger_TransferBatch(t *testing.T) {
	store := testutil.NewDB(t)
	ledger := payment.NewDBLedger(store, clock.NewFake(testutil.Epoch), nil)
	ctx := context.Background()

	require.NoError(t, ledger.Deposit(ctx, testutil.Bob, models.Units(200)))

	err := ledger.TransferBatch(ctx, []models.TransferLeg{
		{From: testutil.Bob, To: testutil.Alice, Amount: models.Units(93) + 50, Memo: "seller"},
		{From: testutil.Bob, To: testutil.Marketplace, Amount: models.Units(11), Memo: "commission"},
		{From: testutil.Bob, To: testutil.Organiser, Amount: models.Units(5) + 50, Memo: "royalty"},
		{From: testutil.Bob, To: testutil.Organiser, Amount: 0, Memo: "skipped"},
	})
	require.NoError(t, err)

	balances := map[string]models.Amount{
		testutil.Bob:         models.Units(90),
		testutil.Alice:       models.Units(93) + 50,
		testutil.Marketplace: models.Units(11),
		testutil.Organiser:   models.Units(5) + 50,
	}
	for addr, want := range balances {
		got, err := ledger.Balance(ctx, addr)
		require.NoError(t, err)
		assert.Equal(t, want, got, addr)
	}

	transfers, err := ledger.Transfers(ctx, testutil.Bob, 10)
	require.NoError(t, err)
	assert.Len(t, transfers, 4) // deposit plus three non-zero legs
}

func TestDBLedger_DepositsAccumulate(t *testing.T) {
	store := testutil.NewDB(t)
	ledger := payment.NewDBLedger(store, clock.NewFake(testutil.Epoch), nil)
	ctx := context.Background()

	require.NoError(t, ledger.Deposit(ctx, testutil.Bob, models.Units(100)))
	require.NoError(t, ledger.Deposit(ctx, testutil.Bob, models.Units(25)))

	bob, err := ledger.Balance(ctx, testutil.Bob)
	require.NoError(t, err)
	assert.Equal(t, models.Units(125), bob)
}

func TestDBLedger_InsufficientFundsIsAtomic(t *testing.T) {
	store := testutil.NewDB(t)
	ledger := payment.NewDBLedger(store, clock.NewFake(testutil.Epoch), nil)
	ctx := context.Background()

	require.NoError(t, ledger.Deposit(ctx, testutil.Bob, models.Units(100)))

	err := ledger.TransferBatch(ctx, []models.TransferLeg{
		{From: testutil.Bob, To: testutil.Alice, Amount: models.Units(90)},
		{From: testutil.Bob, To: testutil.Marketplace, Amount: models.Units(20)},
	})
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	bob, err := ledger.Balance(ctx, testutil.Bob)
	require.NoError(t, err)
	assert.Equal(t, models.Units(100), bob)
	alice, err := ledger.Balance(ctx, testutil.Alice)
	require.NoError(t, err)
	assert.Zero(t, alice)
}

func TestDBLedger_RollsBackWithOuterTransaction(t *testing.T) {
	store := testutil.NewDB(t)
	ledger := payment.NewDBLedger(store, clock.NewFake(testutil.Epoch), nil)
	ctx := context.Background()
	require.NoError(t, ledger.Deposit(ctx, testutil.Bob, models.Units(50)))

	boom := errors.New("boom")
	err := store.WithTx(ctx, "fest-1", func(ctx context.Context) error {
		if err := ledger.Transfer(ctx, testutil.Bob, testutil.Alice, models.Units(50)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	bob, err := ledger.Balance(ctx, testutil.Bob)
	require.NoError(t, err)
	assert.Equal(t, models.Units(50), bob)
	assert.True(t, ledger.Transactional())
}

func TestDBLedger_UnknownWalletHasZeroBalance(t *testing.T) {
	ledger := payment.NewDBLedger(testutil.NewDB(t), clock.NewFake(testutil.Epoch), nil)

	bal, err := ledger.Balance(context.Background(), testutil.Carol)
	require.NoError(t, err)
	assert.Zero(t, bal)

	err = ledger.Transfer(context.Background(), testutil.Carol, testutil.Alice, 1)
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)
}

func TestReversal(t *testing.T) {
	legs := []models.TransferLeg{
		{From: "a", To: "b", Amount: 1, Memo: "one"},
		{From: "a", To: "c", Amount: 2, Memo: "two"},
	}
	rev := payment.Reversal(legs)
	require.Len(t, rev, 2)
	assert.Equal(t, models.TransferLeg{From: "c", To: "a", Amount: 2, Memo: "reversal: two"}, rev[0])
	assert.Equal(t, models.TransferLeg{From: "b", To: "a", Amount: 1, Memo: "reversal: one"}, rev[1])
}
