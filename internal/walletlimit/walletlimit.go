// Package walletlimit decides whether a wallet may receive more tickets.
package walletlimit

import (
	"fmt"
	"ms-marketplace/internal/models"
)

// Allow reports whether a wallet holding current tickets may receive add more
// under a cap of max. A max of zero means unlimited.
func Allow(current, add int, max uint32) bool {
	if max == 0 {
		return true
	}
	if current < 0 || add < 0 {
		return false
	}
	return uint64(current)+uint64(add) <= uint64(max)
}

// Check returns ErrWalletLimitReached when a single ticket would exceed the cap.
func Check(current int, max uint32) error {
	if !Allow(current, 1, max) {
		return fmt.Errorf("wallet holds %d of %d: %w", current, max, models.ErrWalletLimitReached)
	}
	return nil
}

// CheckBatch validates a whole batch against the prospective post-batch count.
func CheckBatch(current, add int, max uint32) error {
	if !Allow(current, add, max) {
		return fmt.Errorf("wallet holds %d, batch of %d exceeds %d: %w", current, add, max, models.ErrBatchExceedsWalletLimit)
	}
	return nil
}
