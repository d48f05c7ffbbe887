package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

type TransactionStatus string

const (
	StatusPending TransactionStatus = "pending"
	StatusPaid    TransactionStatus = "paid"
)

type RecurrenceInterval string

const (
	RecurrenceWeekly  RecurrenceInterval = "weekly"
	RecurrenceMonthly RecurrenceInterval = "monthly"
	RecurrenceYearly  RecurrenceInterval = "yearly"
)

// Transaction is a financial ledger entry (payable or receivable).
//
// Rows are created by direct user entry, by the series generator (one row
// per installment, or the first occurrence of a recurring series), or by
// the billing consolidator (one row per responsible/plan kind/period).
// Once persisted, a row changes only through the audit-gated mutation
// service.
type Transaction struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	Type        TransactionType   `gorm:"size:10;not null;index" json:"type"`
	Description string            `gorm:"size:255;not null" json:"description"`
	Amount      decimal.Decimal   `gorm:"type:numeric(12,2);not null" json:"amount"`
	CategoryID  *uint             `gorm:"index" json:"category_id"`
	Category    *Category         `json:"-"`
	Date        time.Time         `gorm:"index;not null" json:"date"`
	Status      TransactionStatus `gorm:"size:10;not null;index" json:"status"`

	// Set when Status becomes paid.
	SettlementDate *time.Time `json:"settlement_date"`

	BankAccountID *uint  `gorm:"index" json:"bank_account_id"`
	PaymentMethod string `gorm:"size:30" json:"payment_method"`

	// Recurrence and installments are mutually exclusive.
	IsRecurring        bool               `json:"is_recurring"`
	RecurrenceInterval RecurrenceInterval `gorm:"size:10" json:"recurrence_interval,omitempty"`
	InstallmentCurrent int                `json:"installment_current"` // 1..InstallmentTotal, 0 when not an installment
	InstallmentTotal   int                `json:"installment_total"`

	// SeriesID links generated occurrences back to their template.
	SeriesID string `gorm:"size:36;index" json:"series_id,omitempty"`

	// Billing consolidator bookkeeping: which responsible, plan kind and
	// period a consolidated line covers. The idempotency check keys on
	// (ResponsibleID, PlanKind, ReferenceMonth). BilledRetro is the
	// retroactive accrual already absorbed into Amount; reruns add to it
	// instead of recomputing from the (by then zeroed) enrollments.
	ResponsibleID  *uint           `gorm:"index" json:"responsible_id,omitempty"`
	PlanKind       BenefitKind     `gorm:"size:10" json:"plan_kind,omitempty"`
	ReferenceMonth string          `gorm:"size:7;index" json:"reference_month,omitempty"` // "2025-06"
	BilledRetro    decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"billed_retro,omitempty"`

	CreatedBy uint `json:"created_by"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
