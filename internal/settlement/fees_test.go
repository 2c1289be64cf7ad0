package settlement_test

import (
	"testing"

	"ms-marketplace/internal/models"
	"ms-marketplace/internal/settlement"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateResaleFees_Scenario(t *testing.T) {
	fees, err := settlement.CalculateResaleFees(models.Units(110), 5)
	require.NoError(t, err)

	assert.Equal(t, "11.00", fees.Commission.String())
	assert.Equal(t, "5.50", fees.Royalty.String())
	assert.Equal(t, "93.50", fees.SellerAmount.String())
	assert.Equal(t, models.Units(110), fees.Total())
}

func TestCalculateResaleFees_ExactDecomposition(t *testing.T) {
	prices := []models.Amount{0, 1, 7, 9, 99, 101, 333, 10001, models.Units(110), 1<<53 + 7, 1<<63 - 1}
	for _, price := range prices {
		for royalty := uint32(0); royalty <= 90; royalty += 3 {
			fees, err := settlement.CalculateResaleFees(price, royalty)
			require.NoError(t, err)
			assert.Equal(t, price, fees.Total(), "price %d royalty %d", price, royalty)
			assert.Equal(t, price.Percent(10), fees.Commission)
			assert.LessOrEqual(t, uint64(fees.Commission+fees.Royalty), uint64(price))
		}
	}
}

func TestCalculateResaleFees_RemainderGoesToSeller(t *testing.T) {
	// 0.09 at 10% and 5% truncates both fees to zero.
	fees, err := settlement.CalculateResaleFees(9, 5)
	require.NoError(t, err)
	assert.Zero(t, fees.Commission)
	assert.Zero(t, fees.Royalty)
	assert.Equal(t, models.Amount(9), fees.SellerAmount)
}

func TestCalculateResaleFees_RejectsOverallocation(t *testing.T) {
	_, err := settlement.CalculateResaleFees(models.Units(100), 91)
	assert.ErrorIs(t, err, models.ErrInvalidPercentage)
}
