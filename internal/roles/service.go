// Package roles is the per-festival capability table (ADMIN, MINTER, VERIFIER).
package roles

import (
	"context"
	"fmt"
	"ms-marketplace/internal/clock"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
)

type DBLayer interface {
	WithTx(ctx context.Context, festivalID string, fn func(ctx context.Context) error) error
	GetFestival(ctx context.Context, id string) (*models.Festival, error)
	GrantRole(ctx context.Context, assignment *models.RoleAssignment) (bool, error)
	RevokeRole(ctx context.Context, festivalID string, role models.Role, address string) (bool, error)
	HasRole(ctx context.Context, festivalID string, role models.Role, address string) (bool, error)
	ListRoleAssignments(ctx context.Context, festivalID string) ([]models.RoleAssignment, error)
	AppendEvents(ctx context.Context, events ...models.Event) error
}

type Service struct {
	DB     DBLayer
	Clock  clock.Clock
	Logger *logger.Logger
}

func NewService(db DBLayer, clk clock.Clock, log *logger.Logger) *Service {
	return &Service{DB: db, Clock: clk, Logger: log}
}

// Has reports whether account holds role for the festival.
func (s *Service) Has(ctx context.Context, festivalID string, role models.Role, account string) (bool, error) {
	return s.DB.HasRole(ctx, festivalID, role, models.NormalizeAddress(account))
}

// Require fails with ErrUnauthorized unless by holds role.
func (s *Service) Require(ctx context.Context, festivalID string, role models.Role, by string) error {
	ok, err := s.Has(ctx, festivalID, role, by)
	if err != nil {
		return fmt.Errorf("failed to check %s role: %w", role, err)
	}
	if !ok {
		return fmt.Errorf("%s lacks %s: %w", by, role, models.ErrUnauthorized)
	}
	return nil
}

// Grant gives account the role. Only an existing ADMIN may grant.
func (s *Service) Grant(ctx context.Context, festivalID string, role models.Role, account, by string) error {
	if _, err := models.ParseRole(string(role)); err != nil {
		return err
	}
	return s.DB.WithTx(ctx, festivalID, func(ctx context.Context) error {
		if _, err := s.DB.GetFestival(ctx, festivalID); err != nil {
			return err
		}
		if err := s.Require(ctx, festivalID, models.RoleAdmin, by); err != nil {
			return err
		}
		return s.grant(ctx, festivalID, role, account, by)
	})
}

// Bootstrap grants a role without an ADMIN check. It is only used while a
// festival is being created, inside the creating transaction.
func (s *Service) Bootstrap(ctx context.Context, festivalID string, role models.Role, account, by string) error {
	return s.grant(ctx, festivalID, role, account, by)
}

func (s *Service) grant(ctx context.Context, festivalID string, role models.Role, account, by string) error {
	if models.IsZeroAddress(account) {
		return fmt.Errorf("cannot grant %s to zero address: %w", role, models.ErrInvalidRecipient)
	}
	account = models.NormalizeAddress(account)
	by = models.NormalizeAddress(by)

	created, err := s.DB.GrantRole(ctx, &models.RoleAssignment{
		FestivalID: festivalID,
		Role:       role,
		Address:    account,
		GrantedBy:  by,
		GrantedAt:  s.Clock.Now(),
	})
	if err != nil {
		return fmt.Errorf("failed to grant %s: %w", role, err)
	}
	if !created {
		return nil
	}

	ev, err := models.NewEvent(festivalID, models.RoleGranted{Role: role, Account: account, Sender: by}, s.Clock.Now())
	if err != nil {
		return err
	}
	s.Logger.Info("ROLES", fmt.Sprintf("%s granted %s on %s by %s", account, role, festivalID, by))
	return s.DB.AppendEvents(ctx, ev)
}

// Revoke removes the role from account. Only an existing ADMIN may revoke.
func (s *Service) Revoke(ctx context.Context, festivalID string, role models.Role, account, by string) error {
	if _, err := models.ParseRole(string(role)); err != nil {
		return err
	}
	return s.DB.WithTx(ctx, festivalID, func(ctx context.Context) error {
		if _, err := s.DB.GetFestival(ctx, festivalID); err != nil {
			return err
		}
		if err := s.Require(ctx, festivalID, models.RoleAdmin, by); err != nil {
			return err
		}

		account := models.NormalizeAddress(account)
		removed, err := s.DB.RevokeRole(ctx, festivalID, role, account)
		if err != nil {
			return fmt.Errorf("failed to revoke %s: %w", role, err)
		}
		if !removed {
			return nil
		}

		ev, err := models.NewEvent(festivalID, models.RoleRevoked{Role: role, Account: account, Sender: models.NormalizeAddress(by)}, s.Clock.Now())
		if err != nil {
			return err
		}
		s.Logger.Info("ROLES", fmt.Sprintf("%s revoked %s on %s", account, role, festivalID))
		return s.DB.AppendEvents(ctx, ev)
	})
}

func (s *Service) List(ctx context.Context, festivalID string) ([]models.RoleAssignment, error) {
	if _, err := s.DB.GetFestival(ctx, festivalID); err != nil {
		return nil, err
	}
	return s.DB.ListRoleAssignments(ctx, festivalID)
}
