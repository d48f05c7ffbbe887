// Package billing turns active enrollments into consolidated monthly
// payable/receivable transactions, one line per financial responsible per
// plan kind per period, without ever re-billing a settled period.
package billing

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"benefits-backend/internal/database"
	"benefits-backend/internal/models"
	"benefits-backend/internal/money"
	"benefits-backend/internal/pricing"
	"benefits-backend/internal/validation"
)

type groupKey struct {
	ResponsibleID uint
	Kind          models.BenefitKind
}

// SkippedGroup reports one billing group that produced no new line, and
// why.
type SkippedGroup struct {
	ResponsibleID uint               `json:"responsible_id"`
	PlanKind      models.BenefitKind `json:"plan_kind"`
	Reason        string             `json:"reason"`
}

// RunResult is the summary a billing run always returns: what was
// written and what was skipped. One bad group never fails the run.
type RunResult struct {
	Created []models.Transaction `json:"created"`
	Updated []models.Transaction `json:"updated"`
	Skipped []SkippedGroup       `json:"skipped"`
}

// GenerateBilling consolidates every active enrollment for (year, month)
// into transactions due on dueDate. Direction (income vs expense) comes
// from configuration. The whole run is one unit of work, serialized per
// period so two concurrent runs cannot double-emit.
//
// Idempotency: a settled line for (responsible, kind, period) is never
// touched; a pending one has its amount replaced instead of duplicated.
// A group whose price no longer resolves is skipped and reported, and
// keeps its retroactive accrual for a later run.
func GenerateBilling(db *gorm.DB, year, month int, dueDate time.Time, direction models.TransactionType, createdBy uint) (*RunResult, error) {
	if month < 1 || month > 12 {
		return nil, validation.NewFieldError("month", "must be between 1 and 12")
	}
	if year < 2000 || year > 2200 {
		return nil, validation.NewFieldError("year", "out of range")
	}
	if direction != models.TransactionTypeIncome && direction != models.TransactionTypeExpense {
		return nil, validation.NewFieldError("direction", "must be income or expense")
	}
	refMonth := fmt.Sprintf("%04d-%02d", year, month)

	res := &RunResult{Created: []models.Transaction{}, Updated: []models.Transaction{}, Skipped: []SkippedGroup{}}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := database.AdvisoryLock(tx, "billing:"+refMonth); err != nil {
			return err
		}

		var enrollments []models.Enrollment
		if err := tx.Preload("Plan.PriceTable").
			Where("status = ?", models.EnrollmentActive).
			Find(&enrollments).Error; err != nil {
			return err
		}

		groups := make(map[groupKey][]*models.Enrollment)
		for i := range enrollments {
			e := &enrollments[i]
			k := groupKey{ResponsibleID: e.FinancialResponsibleID, Kind: e.Kind}
			groups[k] = append(groups[k], e)
		}

		keys := make([]groupKey, 0, len(groups))
		for k := range groups {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].ResponsibleID != keys[j].ResponsibleID {
				return keys[i].ResponsibleID < keys[j].ResponsibleID
			}
			return keys[i].Kind < keys[j].Kind
		})

		for _, k := range keys {
			if err := billGroup(tx, k, groups[k], refMonth, dueDate, direction, createdBy, res); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"period":  refMonth,
		"created": len(res.Created),
		"updated": len(res.Updated),
		"skipped": len(res.Skipped),
	}).Info("billing run finished")
	return res, nil
}

func billGroup(tx *gorm.DB, k groupKey, members []*models.Enrollment, refMonth string, dueDate time.Time, direction models.TransactionType, createdBy uint, res *RunResult) error {
	// Every member must still resolve a price; otherwise the group is
	// reported and left alone (accruals included) for a later run.
	costs := decimal.Zero
	retro := decimal.Zero
	for _, e := range members {
		ben, err := pricing.BeneficiaryFor(tx, e)
		if err != nil {
			return err
		}
		if _, ok := pricing.ComputeMonthlyCost(e.Plan, e, ben); !ok {
			res.Skipped = append(res.Skipped, SkippedGroup{
				ResponsibleID: k.ResponsibleID,
				PlanKind:      k.Kind,
				Reason:        fmt.Sprintf("enrollment %d (%s) has no matching price band", e.ID, ben.Name),
			})
			return nil
		}
		costs = costs.Add(e.MonthlyCost)
		retro = retro.Add(e.RetroactiveDiff)
	}

	var existing models.Transaction
	err := tx.Where("responsible_id = ? AND plan_kind = ? AND reference_month = ?",
		k.ResponsibleID, k.Kind, refMonth).First(&existing).Error
	switch {
	case err == nil && existing.Status == models.StatusPaid:
		// Settled periods are untouchable.
		res.Skipped = append(res.Skipped, SkippedGroup{
			ResponsibleID: k.ResponsibleID,
			PlanKind:      k.Kind,
			Reason:        "period already settled",
		})
		return nil

	case err == nil:
		// Pending line: replace amount and due date instead of duplicating.
		// Retro already on the line stays on it; only new accrual is added
		// on top, since the contributing enrollments were zeroed when it
		// was first billed.
		billedRetro := money.Round2(existing.BilledRetro.Add(retro))
		total := money.Round2(costs.Add(billedRetro))
		existing.Amount = total
		existing.Date = dueDate
		existing.BilledRetro = billedRetro
		if err := tx.Model(&models.Transaction{}).Where("id = ?", existing.ID).
			Updates(map[string]any{"amount": total, "date": dueDate, "billed_retro": billedRetro}).Error; err != nil {
			return err
		}
		res.Updated = append(res.Updated, existing)

	case err == gorm.ErrRecordNotFound:
		var responsible models.Collaborator
		if err := tx.First(&responsible, "id = ?", k.ResponsibleID).Error; err != nil {
			return fmt.Errorf("financial responsible %d: %w", k.ResponsibleID, err)
		}
		line := models.Transaction{
			Type:           direction,
			Description:    fmt.Sprintf("%s benefits %s - %s", kindLabel(k.Kind), refMonth, responsible.Name),
			Amount:         money.Round2(costs.Add(retro)),
			Date:           dueDate,
			Status:         models.StatusPending,
			ResponsibleID:  &k.ResponsibleID,
			PlanKind:       k.Kind,
			ReferenceMonth: refMonth,
			BilledRetro:    money.Round2(retro),
			CreatedBy:      createdBy,
		}
		if err := tx.Create(&line).Error; err != nil {
			return err
		}
		res.Created = append(res.Created, line)

	default:
		return err
	}

	// The accrual is spent exactly once: only after its amount is on a
	// written line.
	for _, e := range members {
		if e.RetroactiveDiff.IsZero() {
			continue
		}
		if err := tx.Model(&models.Enrollment{}).Where("id = ?", e.ID).
			Update("retroactive_diff", decimal.Zero).Error; err != nil {
			return err
		}
	}
	return nil
}

func kindLabel(k models.BenefitKind) string {
	if k == models.KindDental {
		return "Dental"
	}
	return "Health"
}
