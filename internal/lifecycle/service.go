// Package lifecycle owns the festival status state machine that gates minting.
package lifecycle

import (
	"context"
	"fmt"
	"ms-marketplace/internal/clock"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
)

// CanMint reports whether new tickets may be minted in status.
func CanMint(status models.FestivalStatus) bool {
	return status == models.StatusActive
}

// CanVerify reports whether check-in is allowed in status. It is allowed in
// every state, including CANCELLED and COMPLETED.
func CanVerify(status models.FestivalStatus) bool {
	switch status {
	case models.StatusActive, models.StatusPaused, models.StatusCancelled, models.StatusCompleted:
		return true
	}
	return false
}

// RequireMintable fails with ErrEventNotActive unless the festival is ACTIVE.
func RequireMintable(f *models.Festival) error {
	if !CanMint(f.Status) {
		return fmt.Errorf("festival %s is %s: %w", f.ID, f.Status, models.ErrEventNotActive)
	}
	return nil
}

type DBLayer interface {
	WithTx(ctx context.Context, festivalID string, fn func(ctx context.Context) error) error
	GetFestival(ctx context.Context, id string) (*models.Festival, error)
	UpdateFestival(ctx context.Context, festival *models.Festival) error
	AppendEvents(ctx context.Context, events ...models.Event) error
}

type Authorizer interface {
	Require(ctx context.Context, festivalID string, role models.Role, by string) error
}

type Service struct {
	DB     DBLayer
	Roles  Authorizer
	Clock  clock.Clock
	Logger *logger.Logger
}

func NewService(db DBLayer, roles Authorizer, clk clock.Clock, log *logger.Logger) *Service {
	return &Service{DB: db, Roles: roles, Clock: clk, Logger: log}
}

func (s *Service) Status(ctx context.Context, festivalID string) (models.FestivalStatus, error) {
	f, err := s.DB.GetFestival(ctx, festivalID)
	if err != nil {
		return "", err
	}
	return f.Status, nil
}

// SetStatus moves the festival to status. Every transition is legal; ADMIN only.
func (s *Service) SetStatus(ctx context.Context, festivalID string, status models.FestivalStatus, by string) error {
	status, err := models.ParseFestivalStatus(string(status))
	if err != nil {
		return err
	}

	return s.DB.WithTx(ctx, festivalID, func(ctx context.Context) error {
		f, err := s.DB.GetFestival(ctx, festivalID)
		if err != nil {
			return err
		}
		if err := s.Roles.Require(ctx, festivalID, models.RoleAdmin, by); err != nil {
			return err
		}

		old := f.Status
		f.Status = status
		f.ConfigVersion++
		f.UpdatedAt = s.Clock.Now()
		if err := s.DB.UpdateFestival(ctx, f); err != nil {
			return fmt.Errorf("failed to update festival status: %w", err)
		}

		ev, err := models.NewEvent(festivalID, models.StatusChanged{Old: old, New: status}, s.Clock.Now())
		if err != nil {
			return err
		}
		s.Logger.Info("LIFECYCLE", fmt.Sprintf("Festival %s status %s -> %s", festivalID, old, status))
		return s.DB.AppendEvents(ctx, ev)
	})
}
