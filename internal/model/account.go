package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the durable balance projection for one customer. The balance
// column is a cache of the transaction log and is only ever written inside
// a ledger atomic unit.
type Account struct {
	ID            uint64          `gorm:"primaryKey"`
	FullName      string          `gorm:"size:128;not null"`
	Username      string          `gorm:"size:32;not null;uniqueIndex"`
	PasswordHash  string          `gorm:"size:128;not null"`
	AccountNumber string          `gorm:"size:8;not null;uniqueIndex"`
	Balance       decimal.Decimal `gorm:"type:numeric(20,2);not null;default:'0'"`
	Version       uint64          `gorm:"not null;default:0"`
	CreatedAt     time.Time       `gorm:"autoCreateTime"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime"`
}

func (Account) TableName() string { return "accounts" }
