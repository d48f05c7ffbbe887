// Package enrollment binds beneficiaries to benefit plans, pricing the
// binding through the plan's table and gating it on plan/beneficiary
// compatibility.
package enrollment

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"benefits-backend/internal/models"
	"benefits-backend/internal/pricing"
	"benefits-backend/internal/validation"
)

type CreateInput struct {
	CollaboratorID         uint
	DependentID            *uint
	PlanID                 uint
	PlanCredential         string
	FinancialResponsibleID *uint // defaults to the collaborator
	EffectiveDate          time.Time
}

// Create validates and persists one enrollment. The obstetrics gate runs
// here, not at display time. The monthly cost is cached from the
// resolver; an unresolved price is stored as zero and returned as a
// warning so the operator can fix the table.
func Create(db *gorm.DB, in CreateInput) (*models.Enrollment, []string, error) {
	var plan models.BenefitPlan
	if err := db.Preload("PriceTable").First(&plan, "id = ?", in.PlanID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, validation.NewFieldError("plan_id", "plan not found")
		}
		return nil, nil, err
	}

	var col models.Collaborator
	if err := db.First(&col, "id = ?", in.CollaboratorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, validation.NewFieldError("collaborator_id", "collaborator not found")
		}
		return nil, nil, err
	}

	if in.DependentID != nil {
		var dep models.Dependent
		if err := db.First(&dep, "id = ?", *in.DependentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, validation.NewFieldError("dependent_id", "dependent not found")
			}
			return nil, nil, err
		}
		if dep.CollaboratorID != col.ID {
			return nil, nil, validation.NewFieldError("dependent_id", "dependent does not belong to this collaborator")
		}
	}

	responsible := col.ID
	if in.FinancialResponsibleID != nil {
		responsible = *in.FinancialResponsibleID
	}

	effective := in.EffectiveDate
	if effective.IsZero() {
		effective = time.Now()
	}

	e := &models.Enrollment{
		CollaboratorID:         col.ID,
		DependentID:            in.DependentID,
		Kind:                   plan.Kind,
		PlanID:                 plan.ID,
		PlanCredential:         in.PlanCredential,
		FinancialResponsibleID: responsible,
		Status:                 models.EnrollmentActive,
		EffectiveDate:          effective,
	}

	ben, err := pricing.BeneficiaryFor(db, e)
	if err != nil {
		return nil, nil, err
	}
	if err := pricing.ValidateObstetrics(&plan, ben); err != nil {
		return nil, nil, err
	}

	var warnings []string
	price, ok := pricing.ComputeMonthlyCost(&plan, e, ben)
	if !ok {
		warnings = append(warnings,
			fmt.Sprintf("no price band matches %s on plan %q; monthly cost stored as 0", ben.Name, plan.PlanName))
	}
	e.MonthlyCost = price

	if err := db.Create(e).Error; err != nil {
		return nil, nil, err
	}
	return e, warnings, nil
}
