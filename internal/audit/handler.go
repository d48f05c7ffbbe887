package audit

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"benefits-backend/internal/database"
	"benefits-backend/internal/models"
)

type LogEntryResponse struct {
	ID            uint               `json:"id"`
	CreatedAt     string             `json:"created_at"`
	TransactionID uint               `json:"transaction_id"`
	UserID        uint               `json:"user_id"`
	UserName      string             `json:"user_name"`
	Action        models.AuditAction `json:"action"`
	Reason        string             `json:"reason"`
	BeforeData    string             `json:"before_data"`
	AfterData     string             `json:"after_data"`
}

// GET /api/audit-logs?transaction_id=1&user_id=2&action=delete
func ListAuditLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.AuditLogEntry{})

		if txIDStr := c.Query("transaction_id"); txIDStr != "" {
			var txID uint
			if _, err := fmt.Sscan(txIDStr, &txID); err == nil && txID > 0 {
				dbq = dbq.Where("transaction_id = ?", txID)
			}
		}
		if userIDStr := c.Query("user_id"); userIDStr != "" {
			var uid uint
			if _, err := fmt.Sscan(userIDStr, &uid); err == nil && uid > 0 {
				dbq = dbq.Where("user_id = ?", uid)
			}
		}
		if action := c.Query("action"); action != "" {
			dbq = dbq.Where("action = ?", action)
		}

		var entries []models.AuditLogEntry
		if err := dbq.Order("created_at DESC").Find(&entries).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list audit entries")
		}

		resp := make([]LogEntryResponse, 0, len(entries))
		for _, e := range entries {
			resp = append(resp, LogEntryResponse{
				ID:            e.ID,
				CreatedAt:     e.CreatedAt.Format("2006-01-02 15:04:05"),
				TransactionID: e.TransactionID,
				UserID:        e.UserID,
				UserName:      e.UserName,
				Action:        e.Action,
				Reason:        e.Reason,
				BeforeData:    e.BeforeData,
				AfterData:     e.AfterData,
			})
		}
		return c.JSON(resp)
	}
}
