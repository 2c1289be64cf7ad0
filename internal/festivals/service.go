// Package festivals creates and reads festival registries.
package festivals

import (
	"context"
	"fmt"
	"ms-marketplace/internal/clock"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"strings"

	"github.com/google/uuid"
)

type DBLayer interface {
	WithTx(ctx context.Context, festivalID string, fn func(ctx context.Context) error) error
	CreateFestival(ctx context.Context, festival *models.Festival) error
	GetFestival(ctx context.Context, id string) (*models.Festival, error)
	ListFestivals(ctx context.Context) ([]models.Festival, error)
	AppendEvents(ctx context.Context, events ...models.Event) error
}

type RoleBootstrapper interface {
	Bootstrap(ctx context.Context, festivalID string, role models.Role, account, by string) error
}

// Defaults fill unset creation parameters.
type Defaults struct {
	Marketplace         string
	MaxTicketsPerWallet uint32
	MaxResalePercentage uint32
	RoyaltyPercentage   uint32
}

type CreateParams struct {
	Name                string  `json:"name"`
	Symbol              string  `json:"symbol"`
	MaxTicketsPerWallet *uint32 `json:"max_tickets_per_wallet,omitempty"`
	MaxResalePercentage *uint32 `json:"max_resale_percentage,omitempty"`
	RoyaltyPercentage   *uint32 `json:"royalty_percentage,omitempty"`
	// TicketPrice is the face value for primary sales; zero leaves them closed.
	TicketPrice models.Amount `json:"ticket_price,omitempty"`
}

type Service struct {
	DB       DBLayer
	Roles    RoleBootstrapper
	Defaults Defaults
	Clock    clock.Clock
	Logger   *logger.Logger
}

func NewService(db DBLayer, roles RoleBootstrapper, defaults Defaults, clk clock.Clock, log *logger.Logger) *Service {
	return &Service{DB: db, Roles: roles, Defaults: defaults, Clock: clk, Logger: log}
}

// Create registers a festival organised by `by`. The organiser is granted
// ADMIN and MINTER, and the marketplace principal MINTER so it can settle
// primary sales.
func (s *Service) Create(ctx context.Context, params CreateParams, by string) (*models.Festival, error) {
	if models.IsZeroAddress(by) {
		return nil, fmt.Errorf("organiser must be set: %w", models.ErrUnauthorized)
	}
	name := strings.TrimSpace(params.Name)
	symbol := strings.TrimSpace(params.Symbol)
	if name == "" || symbol == "" {
		return nil, fmt.Errorf("festival name and symbol are required: %w", models.ErrInvalidArgument)
	}

	maxTickets := pick(params.MaxTicketsPerWallet, s.Defaults.MaxTicketsPerWallet)
	maxResale := pick(params.MaxResalePercentage, s.Defaults.MaxResalePercentage)
	royalty := pick(params.RoyaltyPercentage, s.Defaults.RoyaltyPercentage)

	if maxResale < models.MinResalePercentage {
		return nil, fmt.Errorf("max resale percentage %d below %d: %w", maxResale, models.MinResalePercentage, models.ErrInvalidPercentage)
	}
	if uint64(royalty)+uint64(models.CommissionPercentage) > 100 {
		return nil, fmt.Errorf("royalty %d%% plus commission exceeds 100%%: %w", royalty, models.ErrInvalidPercentage)
	}
	if models.IsZeroAddress(s.Defaults.Marketplace) {
		return nil, fmt.Errorf("marketplace operator is not configured")
	}

	now := s.Clock.Now()
	festival := &models.Festival{
		ID:                   uuid.NewString(),
		Name:                 name,
		Symbol:               symbol,
		Organiser:            models.NormalizeAddress(by),
		Marketplace:          models.NormalizeAddress(s.Defaults.Marketplace),
		MaxTicketsPerWallet:  maxTickets,
		MaxResalePercentage:  maxResale,
		RoyaltyPercentage:    royalty,
		CommissionPercentage: models.CommissionPercentage,
		TicketPrice:          params.TicketPrice,
		Status:               models.StatusActive,
		NextTokenID:          1,
		ConfigVersion:        1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	err := s.DB.WithTx(ctx, "", func(ctx context.Context) error {
		if err := s.DB.CreateFestival(ctx, festival); err != nil {
			return fmt.Errorf("failed to create festival: %w", err)
		}

		ev, err := models.NewEvent(festival.ID, models.FestivalCreated{
			Festival:  festival.ID,
			Name:      festival.Name,
			Symbol:    festival.Symbol,
			Organiser: festival.Organiser,
		}, now)
		if err != nil {
			return err
		}
		if err := s.DB.AppendEvents(ctx, ev); err != nil {
			return err
		}

		grants := []struct {
			role    models.Role
			account string
		}{
			{models.RoleAdmin, festival.Organiser},
			{models.RoleMinter, festival.Organiser},
			{models.RoleMinter, festival.Marketplace},
		}
		for _, g := range grants {
			if err := s.Roles.Bootstrap(ctx, festival.ID, g.role, g.account, festival.Organiser); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.Info("FESTIVAL", fmt.Sprintf("Created festival %s (%s) organised by %s", festival.ID, festival.Name, festival.Organiser))
	return festival, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Festival, error) {
	return s.DB.GetFestival(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]models.Festival, error) {
	return s.DB.ListFestivals(ctx)
}

func pick(v *uint32, def uint32) uint32 {
	if v != nil {
		return *v
	}
	return def
}
