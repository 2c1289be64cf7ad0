package listing

import (
	"context"
	"fmt"
	"ms-marketplace/internal/models"
)

// SetMaxTicketsPerWallet changes the wallet cap. Zero removes the cap. A cap
// below what some wallet already holds is refused.
func (s *Service) SetMaxTicketsPerWallet(ctx context.Context, festivalID string, n uint32, by string) (*models.Festival, error) {
	return s.updateConfig(ctx, festivalID, by, func(ctx context.Context, f *models.Festival) (models.Payload, error) {
		if n > 0 {
			held, err := s.DB.LargestHolding(ctx, festivalID)
			if err != nil {
				return nil, fmt.Errorf("failed to count holdings: %w", err)
			}
			if held > int(n) {
				return nil, fmt.Errorf("a wallet already holds %d tickets, above %d: %w", held, n, models.ErrWalletLimitReached)
			}
		}
		old := f.MaxTicketsPerWallet
		f.MaxTicketsPerWallet = n
		return models.MaxTicketsPerWalletUpdated{Old: old, New: n}, nil
	})
}

// SetMaxResalePercentage changes the resale ceiling. Existing listings above a
// lowered ceiling stay listed; the ceiling applies to new listings.
func (s *Service) SetMaxResalePercentage(ctx context.Context, festivalID string, pct uint32, by string) (*models.Festival, error) {
	return s.updateConfig(ctx, festivalID, by, func(_ context.Context, f *models.Festival) (models.Payload, error) {
		if pct < models.MinResalePercentage {
			return nil, fmt.Errorf("max resale percentage %d below %d: %w", pct, models.MinResalePercentage, models.ErrInvalidPercentage)
		}
		old := f.MaxResalePercentage
		f.MaxResalePercentage = pct
		return models.MaxResalePercentageUpdated{Old: old, New: pct}, nil
	})
}

// SetRoyaltyPercentage changes the organiser's resale cut. Royalty and
// commission together may not exceed the sale price.
func (s *Service) SetRoyaltyPercentage(ctx context.Context, festivalID string, pct uint32, by string) (*models.Festival, error) {
	return s.updateConfig(ctx, festivalID, by, func(_ context.Context, f *models.Festival) (models.Payload, error) {
		if uint64(pct)+uint64(f.CommissionPercentage) > 100 {
			return nil, fmt.Errorf("royalty %d%% plus commission %d%% exceeds 100%%: %w", pct, f.CommissionPercentage, models.ErrInvalidPercentage)
		}
		old := f.RoyaltyPercentage
		f.RoyaltyPercentage = pct
		return models.RoyaltyPercentageUpdated{Old: old, New: pct}, nil
	})
}

// SetTicketPrice changes the face value charged on primary sales. Zero stops
// primary sales; tickets already sold keep their purchase price.
func (s *Service) SetTicketPrice(ctx context.Context, festivalID string, price models.Amount, by string) (*models.Festival, error) {
	return s.updateConfig(ctx, festivalID, by, func(_ context.Context, f *models.Festival) (models.Payload, error) {
		old := f.TicketPrice
		f.TicketPrice = price
		return models.TicketPriceUpdated{Old: old, New: price}, nil
	})
}

func (s *Service) updateConfig(ctx context.Context, festivalID, by string, apply func(ctx context.Context, f *models.Festival) (models.Payload, error)) (*models.Festival, error) {
	var updated *models.Festival
	err := s.DB.WithTx(ctx, festivalID, func(ctx context.Context) error {
		f, err := s.DB.GetFestival(ctx, festivalID)
		if err != nil {
			return err
		}
		if err := s.Roles.Require(ctx, festivalID, models.RoleAdmin, by); err != nil {
			return err
		}

		payload, err := apply(ctx, f)
		if err != nil {
			return err
		}
		f.ConfigVersion++
		f.UpdatedAt = s.Clock.Now()
		if err := s.DB.UpdateFestival(ctx, f); err != nil {
			return fmt.Errorf("failed to update festival config: %w", err)
		}

		ev, err := models.NewEvent(festivalID, payload, f.UpdatedAt)
		if err != nil {
			return err
		}
		s.Logger.Info("CONFIG", fmt.Sprintf("Festival %s %s (v%d)", festivalID, payload.EventName(), f.ConfigVersion))
		updated = f
		return s.DB.AppendEvents(ctx, ev)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
