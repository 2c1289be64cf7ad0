package payment_test

import (
	"context"
	"testing"

	"ms-marketplace/internal/models"
	"ms-marketplace/internal/payment"
	"ms-marketplace/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newMiniredisLedger(t *testing.T) *payment.RedisLedger {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return payment.NewRedisLedger(client, nil)
}

func exerciseLedger(t *testing.T, ledger payment.Ledger) {
	ctx := context.Background()

	require.NoError(t, ledger.Deposit(ctx, testutil.Bob, models.Units(110)))

	err := ledger.TransferBatch(ctx, []models.TransferLeg{
		{From: testutil.Bob, To: testutil.Alice, Amount: models.Units(93) + 50, Memo: "seller"},
		{From: testutil.Bob, To: testutil.Marketplace, Amount: models.Units(11), Memo: "commission"},
		{From: testutil.Bob, To: testutil.Organiser, Amount: models.Units(5) + 50, Memo: "royalty"},
	})
	require.NoError(t, err)

	bob, err := ledger.Balance(ctx, testutil.Bob)
	require.NoError(t, err)
	assert.Zero(t, bob)
	alice, err := ledger.Balance(ctx, testutil.Alice)
	require.NoError(t, err)
	assert.Equal(t, models.Units(93)+50, alice)

	// Alice cannot cover the second leg, so neither leg is applied.
	err = ledger.TransferBatch(ctx, []models.TransferLeg{
		{From: testutil.Alice, To: testutil.Carol, Amount: models.Units(90)},
		{From: testutil.Alice, To: testutil.Carol, Amount: models.Units(10)},
	})
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)

	alice, err = ledger.Balance(ctx, testutil.Alice)
	require.NoError(t, err)
	assert.Equal(t, models.Units(93)+50, alice)
	carol, err := ledger.Balance(ctx, testutil.Carol)
	require.NoError(t, err)
	assert.Zero(t, carol)
}

func TestRedisLedger_Miniredis(t *testing.T) {
	ledger := newMiniredisLedger(t)
	exerciseLedger(t, ledger)
	assert.False(t, ledger.Transactional())
}

func TestRedisLedger_ExactAboveFloatPrecision(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ledger := payment.NewRedisLedger(client, nil)
	ctx := context.Background()

	// 2^53 and 2^53+1 collapse to the same float64.
	const big = models.Amount(1 << 53)
	require.NoError(t, ledger.Deposit(ctx, testutil.Bob, big))

	err := ledger.Transfer(ctx, testutil.Bob, testutil.Alice, big+1)
	assert.ErrorIs(t, err, models.ErrInsufficientFunds)
	bob, err := ledger.Balance(ctx, testutil.Bob)
	require.NoError(t, err)
	assert.Equal(t, big, bob)
	alice, err := ledger.Balance(ctx, testutil.Alice)
	require.NoError(t, err)
	assert.Zero(t, alice)

	require.NoError(t, ledger.Transfer(ctx, testutil.Bob, testutil.Alice, big-1))
	alice, err = ledger.Balance(ctx, testutil.Alice)
	require.NoError(t, err)
	assert.Equal(t, big-1, alice)

	entries, err := client.LRange(ctx, payment.TransferLogKey, 0, -1).Result()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRedisLedger_AddressesAreNormalised(t *testing.T) {
	ledger := newMiniredisLedger(t)
	ctx := context.Background()

	require.NoError(t, ledger.Deposit(ctx, "0x0000000000000000000000000000000000000B0B", models.Units(5)))
	bal, err := ledger.Balance(ctx, testutil.Bob)
	require.NoError(t, err)
	assert.Equal(t, models.Units(5), bal)

	assert.ErrorIs(t, ledger.Deposit(ctx, models.ZeroAddress, 1), models.ErrInvalidRecipient)
}

func TestRedisLedger_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}

	ctx := context.Background()
	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}
	defer redisContainer.Terminate(ctx)

	host, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	port, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: host + ":" + port.Port()})
	defer client.Close()

	exerciseLedger(t, payment.NewRedisLedger(client, nil))
}

func TestInitializeRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := payment.InitializeRedis(mr.Addr(), nil)
	require.NoError(t, err)
	defer client.Close()

	addr := mr.Addr()
	mr.Close()
	_, err = payment.InitializeRedis(addr, nil)
	assert.Error(t, err)
}
