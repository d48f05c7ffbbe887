package models

import "time"

type AuditAction string

const (
	AuditActionLiquidate AuditAction = "liquidate"
	AuditActionEdit      AuditAction = "edit"
	AuditActionDelete    AuditAction = "delete"
)

// MinReasonLength is the shortest justification accepted for a
// transaction mutation, counted after trimming whitespace.
const MinReasonLength = 5

// AuditLogEntry documents one mutation of a financial transaction.
// Entries are append-only: never updated, never deleted. The entry is
// written in the same database transaction as the mutation it records.
type AuditLogEntry struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	TransactionID uint      `gorm:"index;not null" json:"transaction_id"`

	UserID   uint   `gorm:"index" json:"user_id"`
	UserName string `gorm:"size:100" json:"user_name"` // denormalized

	Action AuditAction `gorm:"size:20;not null" json:"action"`
	Reason string      `gorm:"size:500;not null" json:"reason"`

	// Snapshots of the transaction before and after the mutation (JSON).
	// For delete, AfterData is the JSON null literal.
	BeforeData string `gorm:"type:jsonb" json:"before_data"`
	AfterData  string `gorm:"type:jsonb" json:"after_data"`
}
