package models

import "time"

// Category classifies transactions (rent, payroll, benefits, ...).
type Category struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null"`
	Kind      string `gorm:"size:20"` // income / expense / both
	CreatedAt time.Time
	UpdatedAt time.Time
}
