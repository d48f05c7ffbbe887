package billing_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"benefits-backend/internal/billing"
	"benefits-backend/internal/database"
	"benefits-backend/internal/models"
	"benefits-backend/internal/transaction"
	"benefits-backend/internal/validation"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

type fixture struct {
	db      *gorm.DB
	col     models.Collaborator
	plan    models.BenefitPlan
	enrolls []models.Enrollment
	due     time.Time
}

// newFixture seeds one collaborator with a health enrollment for
// themself and one for a dependent, both paid by the collaborator.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)

	col := models.Collaborator{
		Name: "Helena", BirthDate: time.Date(1988, 3, 3, 0, 0, 0, 0, time.UTC),
		Gender: models.GenderFemale, IsActive: true,
	}
	require.NoError(t, db.Create(&col).Error)
	dep := models.Dependent{
		CollaboratorID: col.ID, Name: "Igor",
		BirthDate: time.Date(2016, 7, 7, 0, 0, 0, 0, time.UTC), Gender: models.GenderMale,
	}
	require.NoError(t, db.Create(&dep).Error)

	plan := models.BenefitPlan{
		Operator: "Unimed", PlanName: "Health Family", Kind: models.KindHealth, HasObstetrics: true,
		PriceTable: []models.PriceBand{
			{Position: 0, MinAge: 0, MaxAge: 120, Price: decimal.NewFromInt(100), BeneficiaryType: models.RoleAmbos},
		},
	}
	require.NoError(t, db.Create(&plan).Error)

	e1 := models.Enrollment{
		CollaboratorID: col.ID, Kind: models.KindHealth, PlanID: plan.ID,
		FinancialResponsibleID: col.ID, MonthlyCost: decimal.NewFromInt(100),
		Status: models.EnrollmentActive, EffectiveDate: time.Now(),
	}
	e2 := models.Enrollment{
		CollaboratorID: col.ID, DependentID: &dep.ID, Kind: models.KindHealth, PlanID: plan.ID,
		FinancialResponsibleID: col.ID, MonthlyCost: decimal.NewFromInt(100),
		RetroactiveDiff: decimal.NewFromInt(30),
		Status:          models.EnrollmentActive, EffectiveDate: time.Now(),
	}
	require.NoError(t, db.Create(&e1).Error)
	require.NoError(t, db.Create(&e2).Error)

	return &fixture{
		db: db, col: col, plan: plan,
		enrolls: []models.Enrollment{e1, e2},
		due:     time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
	}
}

func TestGenerateBilling_ConsolidatesPerResponsibleAndKind(t *testing.T) {
	f := newFixture(t)

	res, err := billing.GenerateBilling(f.db, 2025, 6, f.due, models.TransactionTypeExpense, 1)
	require.NoError(t, err)
	require.Len(t, res.Created, 1, "both enrollments share responsible and kind: one line")
	assert.Empty(t, res.Skipped)

	line := res.Created[0]
	// 100 + (100 + 30 retroactive) = 230
	assert.True(t, line.Amount.Equal(decimal.NewFromInt(230)), "got %s", line.Amount)
	assert.Equal(t, models.StatusPending, line.Status)
	assert.Equal(t, models.TransactionTypeExpense, line.Type)
	assert.Equal(t, "2025-06", line.ReferenceMonth)
	require.NotNil(t, line.ResponsibleID)
	assert.Equal(t, f.col.ID, *line.ResponsibleID)
	assert.Equal(t, models.KindHealth, line.PlanKind)

	// The accrual is spent once billed.
	var e2 models.Enrollment
	require.NoError(t, f.db.First(&e2, f.enrolls[1].ID).Error)
	assert.True(t, e2.RetroactiveDiff.IsZero())
}

func TestGenerateBilling_IdempotentOnSecondRun(t *testing.T) {
	f := newFixture(t)

	first, err := billing.GenerateBilling(f.db, 2025, 6, f.due, models.TransactionTypeExpense, 1)
	require.NoError(t, err)
	require.Len(t, first.Created, 1)

	second, err := billing.GenerateBilling(f.db, 2025, 6, f.due, models.TransactionTypeExpense, 1)
	require.NoError(t, err)
	assert.Empty(t, second.Created, "second run creates nothing")
	assert.Len(t, second.Updated, 1, "pending line is updated in place")

	var count int64
	f.db.Model(&models.Transaction{}).Where("reference_month = ?", "2025-06").Count(&count)
	assert.EqualValues(t, 1, count, "never two lines for the same (responsible, kind, period)")

	// The accrual was spent onto the line on the first run; the rerun
	// must not un-spend it.
	assert.True(t, second.Updated[0].Amount.Equal(decimal.NewFromInt(230)),
		"billed retroactive accrual must survive a rerun, got %s", second.Updated[0].Amount)
}

func TestGenerateBilling_RerunAbsorbsNewAccrualOnTopOfBilled(t *testing.T) {
	f := newFixture(t)

	first, err := billing.GenerateBilling(f.db, 2025, 6, f.due, models.TransactionTypeExpense, 1)
	require.NoError(t, err)
	require.Len(t, first.Created, 1)
	require.True(t, first.Created[0].Amount.Equal(decimal.NewFromInt(230)))

	// A mid-period adjustment lands fresh accrual before the rerun.
	require.NoError(t, f.db.Model(&models.Enrollment{}).
		Where("id = ?", f.enrolls[0].ID).
		Update("retroactive_diff", decimal.NewFromInt(15)).Error)

	second, err := billing.GenerateBilling(f.db, 2025, 6, f.due, models.TransactionTypeExpense, 1)
	require.NoError(t, err)
	require.Len(t, second.Updated, 1)
	// 200 costs + 30 already billed + 15 new = 245.
	assert.True(t, second.Updated[0].Amount.Equal(decimal.NewFromInt(245)), "got %s", second.Updated[0].Amount)

	var reloaded models.Enrollment
	require.NoError(t, f.db.First(&reloaded, f.enrolls[0].ID).Error)
	assert.True(t, reloaded.RetroactiveDiff.IsZero(), "new accrual is spent once billed")
}

func TestGenerateBilling_PaidPeriodIsNeverTouched(t *testing.T) {
	f := newFixture(t)

	first, err := billing.GenerateBilling(f.db, 2025, 6, f.due, models.TransactionTypeExpense, 1)
	require.NoError(t, err)
	line := first.Created[0]

	_, err = transaction.Mutate(f.db, transaction.MutateInput{
		TransactionID: line.ID,
		Action:        models.AuditActionLiquidate,
		Reason:        "paid by bank transfer",
		UserID:        1, UserName: "tester",
	})
	require.NoError(t, err)

	res, err := billing.GenerateBilling(f.db, 2025, 6, f.due, models.TransactionTypeExpense, 1)
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Empty(t, res.Updated)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "period already settled", res.Skipped[0].Reason)

	var reloaded models.Transaction
	require.NoError(t, f.db.First(&reloaded, line.ID).Error)
	assert.True(t, reloaded.Amount.Equal(line.Amount), "settled amount unchanged")
}

func TestGenerateBilling_SeparatePeriodsBillSeparately(t *testing.T) {
	f := newFixture(t)

	_, err := billing.GenerateBilling(f.db, 2025, 6, f.due, models.TransactionTypeExpense, 1)
	require.NoError(t, err)

	july, err := billing.GenerateBilling(f.db, 2025, 7, f.due.AddDate(0, 1, 0), models.TransactionTypeExpense, 1)
	require.NoError(t, err)
	require.Len(t, july.Created, 1)
	// June consumed the retroactive accrual; July bills costs only.
	assert.True(t, july.Created[0].Amount.Equal(decimal.NewFromInt(200)))
}

func TestGenerateBilling_UnresolvedGroupSkippedNotFatal(t *testing.T) {
	f := newFixture(t)

	// A second responsible whose plan cannot price them: table covers
	// only minors.
	other := models.Collaborator{
		Name: "Idoso", BirthDate: time.Date(1950, 1, 1, 0, 0, 0, 0, time.UTC),
		Gender: models.GenderMale, IsActive: true,
	}
	require.NoError(t, f.db.Create(&other).Error)
	brokenPlan := models.BenefitPlan{
		Operator: "Amil", PlanName: "Kids Only", Kind: models.KindDental,
		PriceTable: []models.PriceBand{
			{Position: 0, MinAge: 0, MaxAge: 17, Price: decimal.NewFromInt(40), BeneficiaryType: models.RoleAmbos},
		},
	}
	require.NoError(t, f.db.Create(&brokenPlan).Error)
	broken := models.Enrollment{
		CollaboratorID: other.ID, Kind: models.KindDental, PlanID: brokenPlan.ID,
		FinancialResponsibleID: other.ID, MonthlyCost: decimal.NewFromInt(40),
		RetroactiveDiff: decimal.NewFromInt(5),
		Status:          models.EnrollmentActive, EffectiveDate: time.Now(),
	}
	require.NoError(t, f.db.Create(&broken).Error)

	res, err := billing.GenerateBilling(f.db, 2025, 6, f.due, models.TransactionTypeExpense, 1)
	require.NoError(t, err, "one bad group never aborts the run")
	assert.Len(t, res.Created, 1, "the healthy group still bills")
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, other.ID, res.Skipped[0].ResponsibleID)

	// The skipped group keeps its accrual for a later run.
	var reloaded models.Enrollment
	require.NoError(t, f.db.First(&reloaded, broken.ID).Error)
	assert.True(t, reloaded.RetroactiveDiff.Equal(decimal.NewFromInt(5)))
}

func TestGenerateBilling_InactiveEnrollmentsIgnored(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.db.Model(&models.Enrollment{}).
		Where("id = ?", f.enrolls[1].ID).
		Update("status", models.EnrollmentInactive).Error)

	res, err := billing.GenerateBilling(f.db, 2025, 6, f.due, models.TransactionTypeExpense, 1)
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	assert.True(t, res.Created[0].Amount.Equal(decimal.NewFromInt(100)), "only the active enrollment bills")
}

func TestGenerateBilling_ValidatesInput(t *testing.T) {
	db := newTestDB(t)

	_, err := billing.GenerateBilling(db, 2025, 13, time.Now(), models.TransactionTypeExpense, 1)
	require.Error(t, err)
	fe, ok := validation.AsFieldError(err)
	require.True(t, ok)
	assert.Equal(t, "month", fe.Field)

	_, err = billing.GenerateBilling(db, 2025, 6, time.Now(), "sideways", 1)
	require.Error(t, err)
	fe, ok = validation.AsFieldError(err)
	require.True(t, ok)
	assert.Equal(t, "direction", fe.Field)
}

func TestGenerateBilling_DirectionIsConfigurable(t *testing.T) {
	f := newFixture(t)

	res, err := billing.GenerateBilling(f.db, 2025, 6, f.due, models.TransactionTypeIncome, 1)
	require.NoError(t, err)
	require.Len(t, res.Created, 1)
	assert.Equal(t, models.TransactionTypeIncome, res.Created[0].Type)
}
