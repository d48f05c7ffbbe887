// Package transaction owns the financial transaction lifecycle: series
// generation from a user-entered template, and the audit-gated mutation
// service every settle/edit/delete must pass through.
package transaction

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"benefits-backend/internal/models"
	"benefits-backend/internal/money"
	"benefits-backend/internal/validation"
)

// CreateInput is the single template a user enters. Exactly one of
// recurrence and installments may be set; with neither, one plain
// transaction is produced.
type CreateInput struct {
	Type               models.TransactionType
	Description        string
	Amount             decimal.Decimal
	CategoryID         *uint
	Date               time.Time
	BankAccountID      *uint
	PaymentMethod      string
	IsRecurring        bool
	RecurrenceInterval models.RecurrenceInterval
	InstallmentTotal   int
	CreatedBy          uint
}

// BuildSeries derives the rows to persist from one template.
//
// Installments: the amount is split cent-exactly over N rows (floor plus
// remainder cents on the earliest rows), due dates advancing one clamped
// month per installment.
//
// Recurrence: only the first occurrence is materialized. There is no
// background job advancing recurring series; future occurrences are
// created when the user (or the billing run) next touches the series.
// Known limitation, kept deliberately.
func BuildSeries(in CreateInput) ([]models.Transaction, error) {
	in.Description = strings.TrimSpace(in.Description)

	if in.Type != models.TransactionTypeIncome && in.Type != models.TransactionTypeExpense {
		return nil, validation.NewFieldError("type", "must be income or expense")
	}
	if in.Description == "" {
		return nil, validation.NewFieldError("description", "is required")
	}
	if !in.Amount.IsPositive() {
		return nil, validation.NewFieldError("amount", "must be greater than zero")
	}
	if in.Date.IsZero() {
		return nil, validation.NewFieldError("date", "is required")
	}
	if in.IsRecurring && in.InstallmentTotal > 0 {
		return nil, validation.NewFieldError("is_recurring", "recurrence and installments are mutually exclusive")
	}
	if in.IsRecurring {
		switch in.RecurrenceInterval {
		case models.RecurrenceWeekly, models.RecurrenceMonthly, models.RecurrenceYearly:
		default:
			return nil, validation.NewFieldError("recurrence_interval", "must be weekly, monthly or yearly")
		}
	}
	if in.InstallmentTotal == 1 || in.InstallmentTotal < 0 {
		return nil, validation.NewFieldError("installment_total", "must be at least 2")
	}

	base := models.Transaction{
		Type:          in.Type,
		Description:   in.Description,
		Amount:        money.Round2(in.Amount),
		CategoryID:    in.CategoryID,
		Date:          in.Date,
		Status:        models.StatusPending,
		BankAccountID: in.BankAccountID,
		PaymentMethod: in.PaymentMethod,
		CreatedBy:     in.CreatedBy,
	}

	switch {
	case in.IsRecurring:
		first := base
		first.IsRecurring = true
		first.RecurrenceInterval = in.RecurrenceInterval
		first.SeriesID = uuid.NewString()
		return []models.Transaction{first}, nil

	case in.InstallmentTotal >= 2:
		seriesID := uuid.NewString()
		parts := money.Split(base.Amount, in.InstallmentTotal)
		rows := make([]models.Transaction, in.InstallmentTotal)
		for i := 0; i < in.InstallmentTotal; i++ {
			row := base
			row.Amount = parts[i]
			row.Date = money.AddMonths(in.Date, i)
			row.InstallmentCurrent = i + 1
			row.InstallmentTotal = in.InstallmentTotal
			row.SeriesID = seriesID
			rows[i] = row
		}
		return rows, nil

	default:
		return []models.Transaction{base}, nil
	}
}

// NextOccurrence returns when the following occurrence of a recurring
// transaction falls due: weekly +7 days, monthly same day clamped,
// yearly same month and day.
func NextOccurrence(date time.Time, interval models.RecurrenceInterval) time.Time {
	switch interval {
	case models.RecurrenceWeekly:
		return date.AddDate(0, 0, 7)
	case models.RecurrenceYearly:
		return money.AddMonths(date, 12)
	default:
		return money.AddMonths(date, 1)
	}
}
