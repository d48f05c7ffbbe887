package transaction

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"benefits-backend/internal/audit"
	"benefits-backend/internal/models"
	"benefits-backend/internal/money"
	"benefits-backend/internal/validation"
)

// Changes carries the field edits of an edit mutation. Nil fields are
// left untouched; detaching a category or bank account goes through the
// explicit Clear flags, which win over the matching id field. Recurrence
// flags and installment counters are fixed at creation and cannot be
// edited.
type Changes struct {
	Description      *string                   `json:"description"`
	Amount           *decimal.Decimal          `json:"amount"`
	CategoryID       *uint                     `json:"category_id"`
	ClearCategory    bool                      `json:"clear_category"`
	Date             *time.Time                `json:"date"`
	BankAccountID    *uint                     `json:"bank_account_id"`
	ClearBankAccount bool                      `json:"clear_bank_account"`
	PaymentMethod    *string                   `json:"payment_method"`
	Status           *models.TransactionStatus `json:"status"`
	SettlementDate   *time.Time                `json:"settlement_date"`
}

// MutateInput describes one audited mutation of a persisted transaction.
type MutateInput struct {
	TransactionID  uint
	Action         models.AuditAction
	Reason         string
	Changes        *Changes   // edit only
	SettlementDate *time.Time // liquidate only; defaults to now
	UserID         uint
	UserName       string
}

// ErrNotFound is returned when the target transaction does not exist.
var ErrNotFound = errors.New("transaction not found")

// Mutate is the single choke point for settling, editing and deleting a
// persisted transaction. It rejects any mutation whose justification is
// shorter than five characters before touching storage, and writes the
// audit entry in the same database transaction as the mutation: both
// become durable or neither does. Delete is permanent.
func Mutate(db *gorm.DB, in MutateInput) (*models.Transaction, error) {
	reason := strings.TrimSpace(in.Reason)
	if len(reason) < models.MinReasonLength {
		return nil, validation.NewFieldError("reason", "a justification of at least 5 characters is required")
	}

	var result *models.Transaction
	err := db.Transaction(func(tx *gorm.DB) error {
		var t models.Transaction
		if err := tx.First(&t, "id = ?", in.TransactionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		before := t

		switch in.Action {
		case models.AuditActionLiquidate:
			if t.Status == models.StatusPaid {
				return validation.NewConflictError("transaction is already settled")
			}
			when := time.Now()
			if in.SettlementDate != nil {
				when = *in.SettlementDate
			}
			t.Status = models.StatusPaid
			t.SettlementDate = &when

		case models.AuditActionEdit:
			if in.Changes == nil {
				return validation.NewFieldError("changes", "edit requires at least one field change")
			}
			if err := applyChanges(&t, in.Changes); err != nil {
				return err
			}

		case models.AuditActionDelete:
			if err := audit.Append(tx, audit.Entry{
				TransactionID: t.ID,
				UserID:        in.UserID,
				UserName:      in.UserName,
				Action:        models.AuditActionDelete,
				Reason:        reason,
				Before:        before,
			}); err != nil {
				return err
			}
			if err := tx.Delete(&models.Transaction{}, "id = ?", t.ID).Error; err != nil {
				return err
			}
			result = &before
			return nil

		default:
			return validation.NewFieldError("action", "must be liquidate, edit or delete")
		}

		if err := tx.Save(&t).Error; err != nil {
			return err
		}
		if err := audit.Append(tx, audit.Entry{
			TransactionID: t.ID,
			UserID:        in.UserID,
			UserName:      in.UserName,
			Action:        in.Action,
			Reason:        reason,
			Before:        before,
			After:         t,
		}); err != nil {
			return err
		}
		result = &t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func applyChanges(t *models.Transaction, ch *Changes) error {
	if ch.Description != nil {
		desc := strings.TrimSpace(*ch.Description)
		if desc == "" {
			return validation.NewFieldError("description", "cannot be empty")
		}
		t.Description = desc
	}
	if ch.Amount != nil {
		if !ch.Amount.IsPositive() {
			return validation.NewFieldError("amount", "must be greater than zero")
		}
		t.Amount = money.Round2(*ch.Amount)
	}
	switch {
	case ch.ClearCategory:
		t.CategoryID = nil
	case ch.CategoryID != nil:
		t.CategoryID = ch.CategoryID
	}
	if ch.Date != nil {
		t.Date = *ch.Date
	}
	switch {
	case ch.ClearBankAccount:
		t.BankAccountID = nil
	case ch.BankAccountID != nil:
		t.BankAccountID = ch.BankAccountID
	}
	if ch.PaymentMethod != nil {
		t.PaymentMethod = *ch.PaymentMethod
	}
	if ch.SettlementDate != nil {
		t.SettlementDate = ch.SettlementDate
	}
	if ch.Status != nil {
		switch *ch.Status {
		case models.StatusPaid:
			t.Status = models.StatusPaid
			if t.SettlementDate == nil {
				now := time.Now()
				t.SettlementDate = &now
			}
		case models.StatusPending:
			t.Status = models.StatusPending
			t.SettlementDate = nil
		default:
			return validation.NewFieldError("status", "must be pending or paid")
		}
	}
	return nil
}
