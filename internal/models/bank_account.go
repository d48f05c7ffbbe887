package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCreditCard AccountType = "credit_card"
)

// BankAccount is referenced by transactions as an opaque foreign key.
type BankAccount struct {
	ID            uint            `gorm:"primaryKey"`
	Type          AccountType     `gorm:"size:20;not null"`
	Name          string          `gorm:"size:100;not null"`
	Bank          string          `gorm:"size:100"`
	Agency        string          `gorm:"size:20"`
	AccountNumber string          `gorm:"size:50"`
	Balance       decimal.Decimal `gorm:"type:numeric(12,2);default:0"`
	Description   string          `gorm:"size:255"`
	IsActive      bool            `gorm:"default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
