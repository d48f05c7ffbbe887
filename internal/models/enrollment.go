package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type EnrollmentStatus string

const (
	EnrollmentActive   EnrollmentStatus = "active"
	EnrollmentInactive EnrollmentStatus = "inactive"
	EnrollmentPending  EnrollmentStatus = "pending"
)

// Enrollment binds one beneficiary to exactly one benefit plan. When
// DependentID is nil the collaborator themself is the beneficiary.
type Enrollment struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	CollaboratorID uint        `gorm:"index;not null" json:"collaborator_id"`
	Collaborator   *Collaborator `json:"-"`
	DependentID    *uint       `gorm:"index" json:"dependent_id"`
	Dependent      *Dependent  `json:"-"`
	Kind           BenefitKind `gorm:"size:10;not null" json:"kind"`
	PlanID         uint        `gorm:"index;not null" json:"plan_id"`
	Plan           *BenefitPlan `json:"-"`
	PlanCredential string      `gorm:"size:50" json:"plan_credential"`

	// Who pays. Defaults to the collaborator.
	FinancialResponsibleID uint `gorm:"index;not null" json:"financial_responsible_id"`

	// MonthlyCost is cached from the price table resolver and refreshed
	// explicitly whenever the plan's table changes, never lazily.
	MonthlyCost decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"monthly_cost"`

	// RetroactiveDiff accrues adjustment deltas not yet billed. The
	// billing consolidator zeroes it once the amount is on a line.
	RetroactiveDiff decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"retroactive_diff"`

	Status        EnrollmentStatus `gorm:"size:10;not null;index" json:"status"`
	EffectiveDate time.Time        `gorm:"not null" json:"effective_date"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Role returns the beneficiary role used for price resolution.
func (e *Enrollment) Role() BeneficiaryRole {
	if e.DependentID == nil {
		return RoleTitular
	}
	return RoleDependente
}
