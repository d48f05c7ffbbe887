// Package adjustment applies percentage deltas to benefit plan price
// tables, single plan or fanned out across an operator, with optional
// retroactive-difference accrual on the affected enrollments.
package adjustment

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"benefits-backend/internal/database"
	"benefits-backend/internal/models"
	"benefits-backend/internal/money"
	"benefits-backend/internal/pricing"
	"benefits-backend/internal/validation"
)

var one = decimal.NewFromInt(1)
var hundred = decimal.NewFromInt(100)

// Result summarizes an adjustment run. Warnings carry data-quality
// issues (enrollments whose price no longer resolves); they never abort
// the run.
type Result struct {
	UpdatedPlans       int      `json:"updated_plans"`
	UpdatedEnrollments int      `json:"updated_enrollments"`
	Warnings           []string `json:"warnings"`
}

func validate(percentage decimal.Decimal, applyRetroactive bool, retroactiveMonths int) error {
	// percentage == 0 is a valid no-op; negative percentages decrease
	// prices. Below -100% every price would flip sign, which is the one
	// thing we refuse instead of clamping silently.
	if one.Add(percentage.Div(hundred)).IsNegative() {
		return validation.NewFieldError("percentage", "adjustment below -100% would produce negative prices")
	}
	if applyRetroactive && retroactiveMonths < 1 {
		return validation.NewFieldError("retroactive_months", "must be at least 1 when retroactive accrual is requested")
	}
	return nil
}

// ApplyPlanAdjustment scales every band of one plan by (1+percentage/100),
// rounding half-up to cents, then refreshes the cached monthly cost of
// every active enrollment on the plan. With applyRetroactive, each
// enrollment also accrues (newCost-oldCost)*retroactiveMonths into its
// unbilled retroactive difference. One unit of work.
func ApplyPlanAdjustment(db *gorm.DB, planID uint, percentage decimal.Decimal, applyRetroactive bool, retroactiveMonths int) (*Result, error) {
	if err := validate(percentage, applyRetroactive, retroactiveMonths); err != nil {
		return nil, err
	}

	res := &Result{}
	err := db.Transaction(func(tx *gorm.DB) error {
		// The first read only learns the operator for the lock key; band
		// prices are read after the lock is held, so a concurrent
		// adjustment that committed in between is never overwritten.
		var plan models.BenefitPlan
		if err := tx.First(&plan, "id = ?", planID).Error; err != nil {
			return fmt.Errorf("plan %d: %w", planID, err)
		}
		if err := database.AdvisoryLock(tx, "operator:"+plan.Operator); err != nil {
			return err
		}
		if err := tx.Preload("PriceTable").First(&plan, "id = ?", plan.ID).Error; err != nil {
			return err
		}
		return adjustPlan(tx, &plan, percentage, applyRetroactive, retroactiveMonths, res)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ApplyOperatorAdjustment fans the same adjustment out over every plan
// owned by the operator. All-or-nothing: one failing plan rolls the whole
// batch back.
func ApplyOperatorAdjustment(db *gorm.DB, operator string, percentage decimal.Decimal, applyRetroactive bool, retroactiveMonths int) (*Result, error) {
	if err := validate(percentage, applyRetroactive, retroactiveMonths); err != nil {
		return nil, err
	}

	res := &Result{}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := database.AdvisoryLock(tx, "operator:"+operator); err != nil {
			return err
		}
		var plans []models.BenefitPlan
		if err := tx.Preload("PriceTable").Where("operator = ?", operator).
			Order("id asc").Find(&plans).Error; err != nil {
			return err
		}
		if len(plans) == 0 {
			return validation.NewFieldError("operator", fmt.Sprintf("no plans found for operator %q", operator))
		}
		for i := range plans {
			if err := adjustPlan(tx, &plans[i], percentage, applyRetroactive, retroactiveMonths, res); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"operator":    operator,
		"percentage":  percentage.String(),
		"plans":       res.UpdatedPlans,
		"enrollments": res.UpdatedEnrollments,
	}).Info("operator adjustment applied")
	return res, nil
}

func adjustPlan(tx *gorm.DB, plan *models.BenefitPlan, percentage decimal.Decimal, applyRetroactive bool, retroactiveMonths int, res *Result) error {
	factor := one.Add(percentage.Div(hundred))

	for i := range plan.PriceTable {
		band := &plan.PriceTable[i]
		band.Price = money.RoundHalfUp2(band.Price.Mul(factor))
		if err := tx.Model(&models.PriceBand{}).Where("id = ?", band.ID).
			Update("price", band.Price).Error; err != nil {
			return err
		}
	}
	res.UpdatedPlans++

	var enrollments []models.Enrollment
	if err := tx.Where("plan_id = ? AND status = ?", plan.ID, models.EnrollmentActive).
		Find(&enrollments).Error; err != nil {
		return err
	}

	for i := range enrollments {
		e := &enrollments[i]
		ben, err := pricing.BeneficiaryFor(tx, e)
		if err != nil {
			return err
		}
		newCost, ok := pricing.ComputeMonthlyCost(plan, e, ben)
		if !ok {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("enrollment %d (%s): no price band after adjustment, cost set to 0", e.ID, ben.Name))
		}

		updates := map[string]any{"monthly_cost": newCost}
		if applyRetroactive {
			delta := newCost.Sub(e.MonthlyCost)
			retro := e.RetroactiveDiff.Add(delta.Mul(decimal.NewFromInt(int64(retroactiveMonths))))
			// The accrual never goes below zero: a price decrease can eat
			// an earlier unbilled increase but never turns into a credit.
			if retro.IsNegative() {
				retro = decimal.Zero
			}
			updates["retroactive_diff"] = money.Round2(retro)
		}
		if err := tx.Model(&models.Enrollment{}).Where("id = ?", e.ID).Updates(updates).Error; err != nil {
			return err
		}
		res.UpdatedEnrollments++
	}
	return nil
}
