package walletlimit

import (
	"errors"
	"ms-marketplace/internal/models"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllow(t *testing.T) {
	tests := []struct {
		name    string
		current int
		add     int
		max     uint32
		want    bool
	}{
		{"unlimited", 1000, 10, 0, true},
		{"under cap", 3, 1, 5, true},
		{"reaches cap", 4, 1, 5, true},
		{"over cap", 5, 1, 5, false},
		{"batch fits exactly", 0, 5, 5, true},
		{"batch overflows", 0, 6, 5, false},
		{"negative input", -1, 1, 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allow(tt.current, tt.add, tt.max))
		})
	}
}

func TestCheckKinds(t *testing.T) {
	assert.NoError(t, Check(4, 5))
	assert.True(t, errors.Is(Check(5, 5), models.ErrWalletLimitReached))

	assert.NoError(t, CheckBatch(0, 5, 5))
	err := CheckBatch(0, 6, 5)
	assert.True(t, errors.Is(err, models.ErrBatchExceedsWalletLimit))
	assert.False(t, errors.Is(err, models.ErrWalletLimitReached))
}
