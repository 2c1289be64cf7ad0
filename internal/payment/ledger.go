// Package payment holds the fungible balance ledgers that settlement moves
// funds through.
package payment

import (
	"context"
	"ms-marketplace/internal/models"
)

// Ledger moves funds between wallets. TransferBatch is all-or-nothing: either
// every leg is applied or none is, and a short balance fails with
// ErrInsufficientFunds.
type Ledger interface {
	Transfer(ctx context.Context, from, to string, amount models.Amount) error
	TransferBatch(ctx context.Context, legs []models.TransferLeg) error
	Deposit(ctx context.Context, address string, amount models.Amount) error
	Balance(ctx context.Context, address string) (models.Amount, error)
	// Transactional reports whether transfers commit and roll back with the
	// ledger store transaction carried by ctx.
	Transactional() bool
}

// Reversal returns the legs that undo legs, in reverse order.
func Reversal(legs []models.TransferLeg) []models.TransferLeg {
	out := make([]models.TransferLeg, 0, len(legs))
	for i := len(legs) - 1; i >= 0; i-- {
		out = append(out, legs[i].Reverse())
	}
	return out
}

func nonZero(legs []models.TransferLeg) []models.TransferLeg {
	out := make([]models.TransferLeg, 0, len(legs))
	for _, l := range legs {
		if l.Amount == 0 {
			continue
		}
		l.From = models.NormalizeAddress(l.From)
		l.To = models.NormalizeAddress(l.To)
		out = append(out, l)
	}
	return out
}
