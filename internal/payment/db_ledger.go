package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"ms-marketplace/internal/clock"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"time"

	"github.com/uptrace/bun"
)

// Conn is the slice of the ledger store the DB ledger needs.
type Conn interface {
	IDB(ctx context.Context) bun.IDB
	WithTx(ctx context.Context, festivalID string, fn func(ctx context.Context) error) error
}

// DBLedger keeps balances in the relational store, inside the caller's
// transaction when there is one.
type DBLedger struct {
	conn  Conn
	clock clock.Clock
	log   *logger.Logger
}

func NewDBLedger(conn Conn, clk clock.Clock, log *logger.Logger) *DBLedger {
	return &DBLedger{conn: conn, clock: clk, log: log}
}

func (l *DBLedger) Transactional() bool { return true }

func (l *DBLedger) Transfer(ctx context.Context, from, to string, amount models.Amount) error {
	return l.TransferBatch(ctx, []models.TransferLeg{{From: from, To: to, Amount: amount}})
}

func (l *DBLedger) TransferBatch(ctx context.Context, legs []models.TransferLeg) error {
	legs = nonZero(legs)
	if len(legs) == 0 {
		return nil
	}
	return l.conn.WithTx(ctx, "", func(ctx context.Context) error {
		now := l.clock.Now()
		for _, leg := range legs {
			if err := l.debit(ctx, leg.From, leg.Amount, now); err != nil {
				return err
			}
			if err := l.credit(ctx, leg.To, leg.Amount, now); err != nil {
				return err
			}
			audit := &models.PaymentTransfer{From: leg.From, To: leg.To, Amount: leg.Amount, Memo: leg.Memo, CreatedAt: now}
			if _, err := l.conn.IDB(ctx).NewInsert().Model(audit).Exec(ctx); err != nil {
				return fmt.Errorf("failed to record transfer: %w", err)
			}
			l.log.LogDatabase("TRANSFER", "balances", fmt.Sprintf("%s -> %s %s (%s)", leg.From, leg.To, leg.Amount, leg.Memo))
		}
		return nil
	})
}

// debit takes amount from address only if the balance covers it.
func (l *DBLedger) debit(ctx context.Context, address string, amount models.Amount, now time.Time) error {
	res, err := l.conn.IDB(ctx).NewUpdate().
		Model((*models.Balance)(nil)).
		Set("amount = amount - ?", amount).
		Set("updated_at = ?", now).
		Where("address = ?", address).
		Where("amount >= ?", amount).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to debit %s: %w", address, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s cannot cover %s: %w", address, amount, models.ErrInsufficientFunds)
	}
	return nil
}

func (l *DBLedger) credit(ctx context.Context, address string, amount models.Amount, now time.Time) error {
	bal := &models.Balance{Address: address, Amount: amount, UpdatedAt: now}
	_, err := l.conn.IDB(ctx).NewInsert().
		Model(bal).
		On("CONFLICT (address) DO UPDATE").
		Set("amount = ?TableAlias.amount + EXCLUDED.amount").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to credit %s: %w", address, err)
	}
	return nil
}

func (l *DBLedger) Deposit(ctx context.Context, address string, amount models.Amount) error {
	if models.IsZeroAddress(address) {
		return fmt.Errorf("cannot deposit to zero address: %w", models.ErrInvalidRecipient)
	}
	address = models.NormalizeAddress(address)
	return l.conn.WithTx(ctx, "", func(ctx context.Context) error {
		now := l.clock.Now()
		if err := l.credit(ctx, address, amount, now); err != nil {
			return err
		}
		audit := &models.PaymentTransfer{From: models.ZeroAddress, To: address, Amount: amount, Memo: "deposit", CreatedAt: now}
		_, err := l.conn.IDB(ctx).NewInsert().Model(audit).Exec(ctx)
		return err
	})
}

func (l *DBLedger) Balance(ctx context.Context, address string) (models.Amount, error) {
	var bal models.Balance
	err := l.conn.IDB(ctx).NewSelect().
		Model(&bal).
		Where("address = ?", models.NormalizeAddress(address)).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read balance of %s: %w", address, err)
	}
	return bal.Amount, nil
}

// Transfers lists the audit trail of one wallet, newest first.
func (l *DBLedger) Transfers(ctx context.Context, address string, limit int) ([]models.PaymentTransfer, error) {
	address = models.NormalizeAddress(address)
	transfers := []models.PaymentTransfer{}
	err := l.conn.IDB(ctx).NewSelect().
		Model(&transfers).
		WhereOr("from_address = ?", address).
		WhereOr("to_address = ?", address).
		Order("id DESC").
		Limit(limit).
		Scan(ctx)
	return transfers, err
}
