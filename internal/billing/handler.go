package billing

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"benefits-backend/internal/auth"
	"benefits-backend/internal/config"
	"benefits-backend/internal/database"
	"benefits-backend/internal/money"
	"benefits-backend/internal/validation"
)

type GenerateBillingRequest struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	// Either an explicit due date...
	DueDate string `json:"due_date"` // "2025-06-10"
	// ...or the nth business day of the billed month.
	DueBusinessDay int `json:"due_business_day"`
}

// POST /api/billing/generate (admin)
func GenerateBillingHandler(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, ok := c.Locals(auth.CtxUserIDKey).(uint)
		if !ok {
			return fiber.NewError(fiber.StatusForbidden, "user identity missing")
		}

		var body GenerateBillingRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		var dueDate time.Time
		switch {
		case body.DueDate != "":
			var err error
			dueDate, err = time.Parse("2006-01-02", body.DueDate)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "due_date must be YYYY-MM-DD")
			}
		case body.DueBusinessDay > 0:
			if body.Month < 1 || body.Month > 12 {
				return fiber.NewError(fiber.StatusBadRequest, "month must be between 1 and 12")
			}
			dueDate = money.NthBusinessDay(body.Year, time.Month(body.Month), body.DueBusinessDay)
		default:
			return fiber.NewError(fiber.StatusBadRequest, "due_date or due_business_day is required")
		}

		res, err := GenerateBilling(database.DB, body.Year, body.Month, dueDate, cfg.BillingDirection, userID)
		if err != nil {
			if fe, ok := validation.AsFieldError(err); ok {
				return fiber.NewError(fiber.StatusBadRequest, fe.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "billing run failed")
		}
		return c.JSON(res)
	}
}
