package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction kinds. Amounts are always positive; the kind carries the sign.
const (
	KindDeposit     = "deposit"
	KindWithdrawal  = "withdrawal"
	KindTransferOut = "transfer_out"
	KindTransferIn  = "transfer_in"
)

// Transaction is one append-only ledger entry. Rows are never updated or
// deleted after insertion.
type Transaction struct {
	ID               uint64          `gorm:"primaryKey"`
	AccountID        uint64          `gorm:"not null;index"`
	Kind             string          `gorm:"size:32;not null"`
	Amount           decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	BalanceBefore    decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	BalanceAfter     decimal.Decimal `gorm:"type:numeric(20,2);not null"`
	Counterparty     *string         `gorm:"size:128"`
	Details          string          `gorm:"size:256"`
	RelatedAccountID *uint64
	IdempotencyKey   *string   `gorm:"size:64"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
}

func (Transaction) TableName() string { return "transactions" }

// Credit reports whether the entry increases the account balance.
func (t Transaction) Credit() bool {
	return t.Kind == KindDeposit || t.Kind == KindTransferIn
}
