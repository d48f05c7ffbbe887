// Package audit writes and queries the immutable trail behind every
// transaction mutation. Entries are append-only: there is no update, no
// delete and no undo path.
package audit

import (
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"benefits-backend/internal/models"
)

type Entry struct {
	TransactionID uint
	UserID        uint
	UserName      string
	Action        models.AuditAction
	Reason        string
	Before        any
	After         any
}

// Append writes one audit entry using the caller's transaction handle,
// so the entry becomes durable together with the mutation it documents
// or not at all.
func Append(tx *gorm.DB, e Entry) error {
	// jsonb rejects the empty string; absent snapshots are JSON null.
	beforeStr := "null"
	afterStr := "null"

	if e.Before != nil {
		if b, err := json.Marshal(e.Before); err == nil {
			beforeStr = string(b)
		}
	}
	if e.After != nil {
		if b, err := json.Marshal(e.After); err == nil {
			afterStr = string(b)
		}
	}

	entry := models.AuditLogEntry{
		TransactionID: e.TransactionID,
		UserID:        e.UserID,
		UserName:      e.UserName,
		Action:        e.Action,
		Reason:        e.Reason,
		BeforeData:    beforeStr,
		AfterData:     afterStr,
	}

	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("audit entry not written: %w", err)
	}
	return nil
}
