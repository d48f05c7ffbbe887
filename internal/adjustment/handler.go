package adjustment

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"benefits-backend/internal/database"
	"benefits-backend/internal/validation"
)

type ApplyAdjustmentRequest struct {
	Percentage        decimal.Decimal `json:"percentage"`
	ApplyRetroactive  bool            `json:"apply_retroactive"`
	RetroactiveMonths int             `json:"retroactive_months"`
}

type OperatorAdjustmentRequest struct {
	Operator          string          `json:"operator"`
	Percentage        decimal.Decimal `json:"percentage"`
	ApplyRetroactive  bool            `json:"apply_retroactive"`
	RetroactiveMonths int             `json:"retroactive_months"`
}

func mapEngineError(err error) error {
	if fe, ok := validation.AsFieldError(err); ok {
		return fiber.NewError(fiber.StatusBadRequest, fe.Error())
	}
	return fiber.NewError(fiber.StatusInternalServerError, "adjustment failed")
}

// POST /api/plans/:id/adjustments (admin)
func ApplyPlanAdjustmentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		planID, err := c.ParamsInt("id")
		if err != nil || planID <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid plan id")
		}

		var body ApplyAdjustmentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		res, err := ApplyPlanAdjustment(database.DB, uint(planID), body.Percentage, body.ApplyRetroactive, body.RetroactiveMonths)
		if err != nil {
			return mapEngineError(err)
		}
		return c.JSON(res)
	}
}

// POST /api/operators/adjustments (admin)
func ApplyOperatorAdjustmentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body OperatorAdjustmentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		body.Operator = strings.TrimSpace(body.Operator)
		if body.Operator == "" {
			return fiber.NewError(fiber.StatusBadRequest, "operator is required")
		}

		res, err := ApplyOperatorAdjustment(database.DB, body.Operator, body.Percentage, body.ApplyRetroactive, body.RetroactiveMonths)
		if err != nil {
			return mapEngineError(err)
		}
		return c.JSON(res)
	}
}
