package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BenefitKind string

const (
	KindHealth BenefitKind = "health"
	KindDental BenefitKind = "dental"
)

type BeneficiaryRole string

const (
	RoleTitular    BeneficiaryRole = "titular"
	RoleDependente BeneficiaryRole = "dependente"
	RoleAmbos      BeneficiaryRole = "ambos" // band matches either role
)

// BenefitPlan is an operator's health or dental offering with an
// age/role-banded price table.
type BenefitPlan struct {
	ID                uint        `gorm:"primaryKey" json:"id"`
	Operator          string      `gorm:"size:100;not null;index" json:"operator"`
	PlanName          string      `gorm:"size:100;not null" json:"plan_name"`
	PlanCode          string      `gorm:"size:50" json:"plan_code"`
	Kind              BenefitKind `gorm:"size:10;not null;index" json:"kind"`
	AccommodationType string      `gorm:"size:50" json:"accommodation_type"` // health only
	HasObstetrics     bool        `json:"has_obstetrics"`                    // health only
	Coparticipation   bool        `json:"coparticipation"`
	AdjustmentMonth   int         `json:"adjustment_month"` // 1-12
	BillingDay        int         `json:"billing_day"`      // 1-31
	SortOrder         int         `json:"sort_order"`

	// Band order is significant: resolution takes the first match.
	PriceTable []PriceBand `gorm:"foreignKey:PlanID;constraint:OnDelete:CASCADE" json:"price_table"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PriceBand maps an inclusive age range and beneficiary role to a fixed
// monthly price. Position preserves the stored sequence, which is the
// documented tie-break for overlapping bands.
type PriceBand struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	PlanID          uint            `gorm:"index;not null" json:"plan_id"`
	Position        int             `gorm:"not null" json:"position"`
	MinAge          int             `gorm:"not null" json:"min_age"`
	MaxAge          int             `gorm:"not null" json:"max_age"`
	Price           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	BeneficiaryType BeneficiaryRole `gorm:"size:12;not null" json:"beneficiary_type"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
