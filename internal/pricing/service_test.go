package pricing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"benefits-backend/internal/database"
	"benefits-backend/internal/models"
	"benefits-backend/internal/pricing"
	"benefits-backend/internal/validation"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func healthPlan(obstetrics bool) *models.BenefitPlan {
	return &models.BenefitPlan{
		Operator:      "Amil",
		PlanName:      "Health 200",
		Kind:          models.KindHealth,
		HasObstetrics: obstetrics,
		PriceTable: []models.PriceBand{
			{Position: 0, MinAge: 0, MaxAge: 120, Price: decimal.NewFromInt(300), BeneficiaryType: models.RoleAmbos},
		},
	}
}

func TestValidateObstetrics(t *testing.T) {
	female := &pricing.Beneficiary{Name: "Ana", Gender: models.GenderFemale}
	male := &pricing.Beneficiary{Name: "Bruno", Gender: models.GenderMale}

	err := pricing.ValidateObstetrics(healthPlan(false), female)
	require.Error(t, err)
	fe, ok := validation.AsFieldError(err)
	require.True(t, ok, "obstetrics conflict is a validation error")
	assert.Equal(t, "plan_id", fe.Field)

	assert.NoError(t, pricing.ValidateObstetrics(healthPlan(false), male))
	assert.NoError(t, pricing.ValidateObstetrics(healthPlan(true), female))

	// Dental plans never carry the gate.
	dental := &models.BenefitPlan{Kind: models.KindDental, HasObstetrics: false}
	assert.NoError(t, pricing.ValidateObstetrics(dental, female))
}

func TestComputeMonthlyCost_AgeByCalendarYear(t *testing.T) {
	// Born in December: the whole current year counts as a full year of
	// age, regardless of today's date.
	thisYear := time.Now().Year()
	birth := time.Date(thisYear-30, time.December, 31, 0, 0, 0, 0, time.UTC)

	plan := &models.BenefitPlan{
		Kind: models.KindHealth,
		PriceTable: []models.PriceBand{
			{Position: 0, MinAge: 0, MaxAge: 29, Price: decimal.NewFromInt(100), BeneficiaryType: models.RoleAmbos},
			{Position: 1, MinAge: 30, MaxAge: 120, Price: decimal.NewFromInt(180), BeneficiaryType: models.RoleAmbos},
		},
	}
	e := &models.Enrollment{}
	ben := &pricing.Beneficiary{BirthDate: birth}

	price, ok := pricing.ComputeMonthlyCost(plan, e, ben)
	require.True(t, ok)
	assert.True(t, price.Equal(decimal.NewFromInt(180)), "calendar-year age 30 lands in the 30+ band")
}

func TestBeneficiaryFor(t *testing.T) {
	db := newTestDB(t)

	col := models.Collaborator{
		Name: "Carla", BirthDate: time.Date(1985, 5, 1, 0, 0, 0, 0, time.UTC),
		Gender: models.GenderFemale, IsActive: true,
	}
	require.NoError(t, db.Create(&col).Error)
	dep := models.Dependent{
		CollaboratorID: col.ID, Name: "Davi",
		BirthDate: time.Date(2015, 2, 10, 0, 0, 0, 0, time.UTC), Gender: models.GenderMale,
	}
	require.NoError(t, db.Create(&dep).Error)

	titular := &models.Enrollment{CollaboratorID: col.ID}
	ben, err := pricing.BeneficiaryFor(db, titular)
	require.NoError(t, err)
	assert.Equal(t, "Carla", ben.Name)
	assert.Equal(t, models.RoleTitular, titular.Role())

	dependent := &models.Enrollment{CollaboratorID: col.ID, DependentID: &dep.ID}
	ben, err = pricing.BeneficiaryFor(db, dependent)
	require.NoError(t, err)
	assert.Equal(t, "Davi", ben.Name)
	assert.Equal(t, models.RoleDependente, dependent.Role())
}

func TestRefreshPlanEnrollments(t *testing.T) {
	db := newTestDB(t)

	col := models.Collaborator{
		Name: "Elisa", BirthDate: time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC),
		Gender: models.GenderFemale, IsActive: true,
	}
	require.NoError(t, db.Create(&col).Error)

	plan := models.BenefitPlan{
		Operator: "Uniodonto", PlanName: "Dental Basic", Kind: models.KindDental,
		PriceTable: []models.PriceBand{
			{Position: 0, MinAge: 0, MaxAge: 120, Price: decimal.NewFromInt(50), BeneficiaryType: models.RoleAmbos},
		},
	}
	require.NoError(t, db.Create(&plan).Error)

	e := models.Enrollment{
		CollaboratorID: col.ID, Kind: models.KindDental, PlanID: plan.ID,
		FinancialResponsibleID: col.ID, MonthlyCost: decimal.NewFromInt(50),
		Status: models.EnrollmentActive, EffectiveDate: time.Now(),
	}
	require.NoError(t, db.Create(&e).Error)

	// Table replaced with a higher price.
	plan.PriceTable[0].Price = decimal.NewFromInt(65)
	require.NoError(t, db.Save(&plan.PriceTable[0]).Error)

	res, err := pricing.RefreshPlanEnrollments(db, &plan)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Empty(t, res.Warnings)

	var reloaded models.Enrollment
	require.NoError(t, db.First(&reloaded, e.ID).Error)
	assert.True(t, reloaded.MonthlyCost.Equal(decimal.NewFromInt(65)))
}

func TestRefreshPlanEnrollments_UnresolvedBecomesWarning(t *testing.T) {
	db := newTestDB(t)

	col := models.Collaborator{
		Name: "Fabio", BirthDate: time.Date(1960, 1, 1, 0, 0, 0, 0, time.UTC),
		Gender: models.GenderMale, IsActive: true,
	}
	require.NoError(t, db.Create(&col).Error)

	plan := models.BenefitPlan{
		Operator: "Amil", PlanName: "Health Junior", Kind: models.KindHealth,
		PriceTable: []models.PriceBand{
			// Table only covers minors; a 60+ titular falls through.
			{Position: 0, MinAge: 0, MaxAge: 17, Price: decimal.NewFromInt(90), BeneficiaryType: models.RoleAmbos},
		},
	}
	require.NoError(t, db.Create(&plan).Error)

	e := models.Enrollment{
		CollaboratorID: col.ID, Kind: models.KindHealth, PlanID: plan.ID,
		FinancialResponsibleID: col.ID, MonthlyCost: decimal.NewFromInt(90),
		Status: models.EnrollmentActive, EffectiveDate: time.Now(),
	}
	require.NoError(t, db.Create(&e).Error)

	res, err := pricing.RefreshPlanEnrollments(db, &plan)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	require.Len(t, res.Warnings, 1, "unresolved price is reported, not fatal")

	var reloaded models.Enrollment
	require.NoError(t, db.First(&reloaded, e.ID).Error)
	assert.True(t, reloaded.MonthlyCost.IsZero())
}
