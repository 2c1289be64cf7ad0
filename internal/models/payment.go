package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Balance is one wallet's spendable funds in the database-backed ledger.
type Balance struct {
	bun.BaseModel `bun:"table:balances"`

	Address   string    `bun:"address,pk" json:"address"`
	Amount    Amount    `bun:"amount,notnull" json:"amount"`
	UpdatedAt time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// PaymentTransfer is the audit row written for every committed ledger leg.
type PaymentTransfer struct {
	bun.BaseModel `bun:"table:payment_transfers"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	From      string    `bun:"from_address,notnull" json:"from"`
	To        string    `bun:"to_address,notnull" json:"to"`
	Amount    Amount    `bun:"amount,notnull" json:"amount"`
	Memo      string    `bun:"memo" json:"memo,omitempty"`
	CreatedAt time.Time `bun:"created_at,notnull" json:"created_at"`
}

// TransferLeg is one movement of funds requested by settlement.
type TransferLeg struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount Amount `json:"amount"`
	Memo   string `json:"memo,omitempty"`
}

// Reverse returns the leg that undoes l.
func (l TransferLeg) Reverse() TransferLeg {
	return TransferLeg{From: l.To, To: l.From, Amount: l.Amount, Memo: "reversal: " + l.Memo}
}
