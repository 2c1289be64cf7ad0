package tickets

import (
	"context"
	"fmt"
	"ms-marketplace/internal/models"
)

// BalanceOf returns how many tickets owner currently holds for the festival.
func (s *TicketService) BalanceOf(ctx context.Context, festivalID, owner string) (int, error) {
	if _, err := s.DB.GetFestival(ctx, festivalID); err != nil {
		return 0, err
	}
	count, err := s.DB.CountTicketsByOwner(ctx, festivalID, models.NormalizeAddress(owner))
	if err != nil {
		return 0, fmt.Errorf("failed to count tickets of %s: %w", owner, err)
	}
	return count, nil
}

// RemainingAllowance is how many more tickets owner may receive before
// reaching the festival's wallet limit, or -1 when the festival has none.
func (s *TicketService) RemainingAllowance(ctx context.Context, festivalID, owner string) (int, error) {
	f, err := s.DB.GetFestival(ctx, festivalID)
	if err != nil {
		return 0, err
	}
	if f.MaxTicketsPerWallet == 0 {
		return -1, nil
	}
	count, err := s.DB.CountTicketsByOwner(ctx, festivalID, models.NormalizeAddress(owner))
	if err != nil {
		return 0, fmt.Errorf("failed to count tickets of %s: %w", owner, err)
	}
	if remaining := int(f.MaxTicketsPerWallet) - count; remaining > 0 {
		return remaining, nil
	}
	return 0, nil
}
