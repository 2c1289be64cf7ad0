package settlement

import (
	"fmt"
	"ms-marketplace/internal/models"
)

// Fees is the split of one resale price.
type Fees struct {
	Commission   models.Amount `json:"commission"`
	Royalty      models.Amount `json:"royalty"`
	SellerAmount models.Amount `json:"seller_amount"`
}

// Total is always the sale price the fees were computed from.
func (f Fees) Total() models.Amount {
	return f.Commission + f.Royalty + f.SellerAmount
}

// CalculateResaleFees splits price into the marketplace commission, the
// organiser royalty and the seller's remainder. Truncation leftovers go to
// the seller.
func CalculateResaleFees(price models.Amount, royaltyPercentage uint32) (Fees, error) {
	if uint64(royaltyPercentage)+uint64(models.CommissionPercentage) > 100 {
		return Fees{}, fmt.Errorf("royalty %d%% plus commission exceeds 100%%: %w", royaltyPercentage, models.ErrInvalidPercentage)
	}
	commission := price.Percent(models.CommissionPercentage)
	royalty := price.Percent(royaltyPercentage)
	return Fees{
		Commission:   commission,
		Royalty:      royalty,
		SellerAmount: price - commission - royalty,
	}, nil
}
