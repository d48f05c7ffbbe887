package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"benefits-backend/internal/models"
	"benefits-backend/internal/money"
	"benefits-backend/internal/validation"
)

// Beneficiary is the slice of a collaborator or dependent record the
// pricing engine consumes: birth date for the age band, gender for the
// obstetrics gate.
type Beneficiary struct {
	Name      string
	BirthDate time.Time
	Gender    models.Gender
}

// BeneficiaryFor loads the person an enrollment covers: the dependent
// when one is set, otherwise the collaborator.
func BeneficiaryFor(db *gorm.DB, e *models.Enrollment) (*Beneficiary, error) {
	if e.DependentID != nil {
		var dep models.Dependent
		if err := db.First(&dep, "id = ?", *e.DependentID).Error; err != nil {
			return nil, fmt.Errorf("dependent %d: %w", *e.DependentID, err)
		}
		return &Beneficiary{Name: dep.Name, BirthDate: dep.BirthDate, Gender: dep.Gender}, nil
	}
	var col models.Collaborator
	if err := db.First(&col, "id = ?", e.CollaboratorID).Error; err != nil {
		return nil, fmt.Errorf("collaborator %d: %w", e.CollaboratorID, err)
	}
	return &Beneficiary{Name: col.Name, BirthDate: col.BirthDate, Gender: col.Gender}, nil
}

// ComputeMonthlyCost resolves the enrollment's current monthly cost from
// the plan's table. Age is calendar-year based. Returns the price and
// whether a band matched.
func ComputeMonthlyCost(plan *models.BenefitPlan, e *models.Enrollment, b *Beneficiary) (decimal.Decimal, bool) {
	age := money.AgeInYear(b.BirthDate, time.Now().Year())
	return Resolve(SortBands(plan.PriceTable), age, e.Role())
}

// ValidateObstetrics rejects binding a female beneficiary to a health
// plan without obstetric coverage. The gate runs on enrollment create and
// edit, not just display.
func ValidateObstetrics(plan *models.BenefitPlan, b *Beneficiary) error {
	if plan.Kind == models.KindHealth && !plan.HasObstetrics && b.Gender == models.GenderFemale {
		return validation.NewFieldError("plan_id",
			fmt.Sprintf("plan %q has no obstetric coverage and cannot cover a female beneficiary", plan.PlanName))
	}
	return nil
}

// RefreshResult summarizes a cached-cost refresh across a plan's
// enrollments.
type RefreshResult struct {
	Updated  int      `json:"updated"`
	Warnings []string `json:"warnings"`
}

// RefreshPlanEnrollments recomputes the cached MonthlyCost of every
// active enrollment on a plan after its price table changed. Enrollments
// whose price no longer resolves are set to zero and reported as
// warnings; they never abort the batch.
//
// Runs inside the caller's transaction: the plan edit and the refresh are
// one unit of work.
func RefreshPlanEnrollments(tx *gorm.DB, plan *models.BenefitPlan) (*RefreshResult, error) {
	var enrollments []models.Enrollment
	if err := tx.Where("plan_id = ? AND status = ?", plan.ID, models.EnrollmentActive).Find(&enrollments).Error; err != nil {
		return nil, err
	}

	res := &RefreshResult{}
	for i := range enrollments {
		e := &enrollments[i]
		ben, err := BeneficiaryFor(tx, e)
		if err != nil {
			return nil, err
		}
		price, ok := ComputeMonthlyCost(plan, e, ben)
		if !ok {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("enrollment %d (%s): no price band for the beneficiary, cost set to 0", e.ID, ben.Name))
		}
		e.MonthlyCost = price
		if err := tx.Model(&models.Enrollment{}).Where("id = ?", e.ID).
			Update("monthly_cost", price).Error; err != nil {
			return nil, err
		}
		res.Updated++
	}
	return res, nil
}
