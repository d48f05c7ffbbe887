// Package plan exposes benefit plan administration: CRUD, wholesale
// price table replacement (with enrollment cost refresh in the same unit
// of work) and ad-hoc price resolution.
package plan

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"benefits-backend/internal/database"
	"benefits-backend/internal/models"
	"benefits-backend/internal/pricing"
)

type PriceBandInput struct {
	MinAge          int                    `json:"min_age"`
	MaxAge          int                    `json:"max_age"`
	Price           decimal.Decimal        `json:"price"`
	BeneficiaryType models.BeneficiaryRole `json:"beneficiary_type"`
}

type CreatePlanRequest struct {
	Operator          string             `json:"operator"`
	PlanName          string             `json:"plan_name"`
	PlanCode          string             `json:"plan_code"`
	Kind              models.BenefitKind `json:"kind"`
	AccommodationType string             `json:"accommodation_type"`
	HasObstetrics     bool               `json:"has_obstetrics"`
	Coparticipation   bool               `json:"coparticipation"`
	AdjustmentMonth   int                `json:"adjustment_month"`
	BillingDay        int                `json:"billing_day"`
	SortOrder         int                `json:"sort_order"`
	PriceTable        []PriceBandInput   `json:"price_table"`
}

type UpdatePlanRequest struct {
	Operator          *string            `json:"operator"`
	PlanName          *string            `json:"plan_name"`
	PlanCode          *string            `json:"plan_code"`
	AccommodationType *string            `json:"accommodation_type"`
	HasObstetrics     *bool              `json:"has_obstetrics"`
	Coparticipation   *bool              `json:"coparticipation"`
	AdjustmentMonth   *int               `json:"adjustment_month"`
	BillingDay        *int               `json:"billing_day"`
	SortOrder         *int               `json:"sort_order"`
	// When present the price table is replaced wholesale, in stored
	// order, and every active enrollment on the plan has its cached cost
	// refreshed in the same unit of work.
	PriceTable []PriceBandInput `json:"price_table"`
}

func validateBands(bands []PriceBandInput) error {
	for _, b := range bands {
		if b.MinAge < 0 || b.MaxAge < b.MinAge {
			return fiber.NewError(fiber.StatusBadRequest, "price_table: min_age must be >= 0 and <= max_age")
		}
		if b.Price.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "price_table: price cannot be negative")
		}
		switch b.BeneficiaryType {
		case models.RoleTitular, models.RoleDependente, models.RoleAmbos:
		default:
			return fiber.NewError(fiber.StatusBadRequest, "price_table: beneficiary_type must be titular, dependente or ambos")
		}
	}
	return nil
}

func toBands(planID uint, in []PriceBandInput) []models.PriceBand {
	bands := make([]models.PriceBand, len(in))
	for i, b := range in {
		bands[i] = models.PriceBand{
			PlanID:          planID,
			Position:        i,
			MinAge:          b.MinAge,
			MaxAge:          b.MaxAge,
			Price:           b.Price.Round(2),
			BeneficiaryType: b.BeneficiaryType,
		}
	}
	return bands
}

// POST /api/plans (admin)
func CreatePlanHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreatePlanRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		body.Operator = strings.TrimSpace(body.Operator)
		body.PlanName = strings.TrimSpace(body.PlanName)
		if body.Operator == "" || body.PlanName == "" {
			return fiber.NewError(fiber.StatusBadRequest, "operator and plan_name are required")
		}
		if body.Kind != models.KindHealth && body.Kind != models.KindDental {
			return fiber.NewError(fiber.StatusBadRequest, "kind must be health or dental")
		}
		if body.AdjustmentMonth < 1 || body.AdjustmentMonth > 12 {
			return fiber.NewError(fiber.StatusBadRequest, "adjustment_month must be between 1 and 12")
		}
		if body.BillingDay < 1 || body.BillingDay > 31 {
			return fiber.NewError(fiber.StatusBadRequest, "billing_day must be between 1 and 31")
		}
		if err := validateBands(body.PriceTable); err != nil {
			return err
		}

		plan := models.BenefitPlan{
			Operator:          body.Operator,
			PlanName:          body.PlanName,
			PlanCode:          body.PlanCode,
			Kind:              body.Kind,
			AccommodationType: body.AccommodationType,
			HasObstetrics:     body.HasObstetrics,
			Coparticipation:   body.Coparticipation,
			AdjustmentMonth:   body.AdjustmentMonth,
			BillingDay:        body.BillingDay,
			SortOrder:         body.SortOrder,
		}
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&plan).Error; err != nil {
				return err
			}
			if len(body.PriceTable) > 0 {
				bands := toBands(plan.ID, body.PriceTable)
				if err := tx.Create(&bands).Error; err != nil {
					return err
				}
				plan.PriceTable = bands
			}
			return nil
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create plan")
		}
		return c.Status(fiber.StatusCreated).JSON(plan)
	}
}

// GET /api/plans?operator=X&kind=health
func ListPlansHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.BenefitPlan{}).
			Preload("PriceTable", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") })

		if op := c.Query("operator"); op != "" {
			dbq = dbq.Where("operator = ?", op)
		}
		if k := c.Query("kind"); k != "" {
			dbq = dbq.Where("kind = ?", k)
		}

		var plans []models.BenefitPlan
		if err := dbq.Order("sort_order asc, id asc").Find(&plans).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list plans")
		}
		return c.JSON(plans)
	}
}

// GET /api/plans/:id
func GetPlanHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var plan models.BenefitPlan
		if err := database.DB.
			Preload("PriceTable", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
			First(&plan, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "plan not found")
		}
		return c.JSON(plan)
	}
}

// PUT /api/plans/:id (admin)
func UpdatePlanHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var plan models.BenefitPlan
		if err := database.DB.Preload("PriceTable").First(&plan, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "plan not found")
		}

		var body UpdatePlanRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		if body.Operator != nil {
			op := strings.TrimSpace(*body.Operator)
			if op == "" {
				return fiber.NewError(fiber.StatusBadRequest, "operator cannot be empty")
			}
			plan.Operator = op
		}
		if body.PlanName != nil {
			name := strings.TrimSpace(*body.PlanName)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "plan_name cannot be empty")
			}
			plan.PlanName = name
		}
		if body.PlanCode != nil {
			plan.PlanCode = *body.PlanCode
		}
		if body.AccommodationType != nil {
			plan.AccommodationType = *body.AccommodationType
		}
		if body.HasObstetrics != nil {
			plan.HasObstetrics = *body.HasObstetrics
		}
		if body.Coparticipation != nil {
			plan.Coparticipation = *body.Coparticipation
		}
		if body.AdjustmentMonth != nil {
			if *body.AdjustmentMonth < 1 || *body.AdjustmentMonth > 12 {
				return fiber.NewError(fiber.StatusBadRequest, "adjustment_month must be between 1 and 12")
			}
			plan.AdjustmentMonth = *body.AdjustmentMonth
		}
		if body.BillingDay != nil {
			if *body.BillingDay < 1 || *body.BillingDay > 31 {
				return fiber.NewError(fiber.StatusBadRequest, "billing_day must be between 1 and 31")
			}
			plan.BillingDay = *body.BillingDay
		}
		if body.SortOrder != nil {
			plan.SortOrder = *body.SortOrder
		}
		if body.PriceTable != nil {
			if err := validateBands(body.PriceTable); err != nil {
				return err
			}
		}

		var refresh *pricing.RefreshResult
		err := database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Save(&plan).Error; err != nil {
				return err
			}
			if body.PriceTable == nil {
				return nil
			}
			if err := tx.Where("plan_id = ?", plan.ID).Delete(&models.PriceBand{}).Error; err != nil {
				return err
			}
			bands := toBands(plan.ID, body.PriceTable)
			if len(bands) > 0 {
				if err := tx.Create(&bands).Error; err != nil {
					return err
				}
			}
			plan.PriceTable = bands

			var err error
			refresh, err = pricing.RefreshPlanEnrollments(tx, &plan)
			return err
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not update plan")
		}

		resp := fiber.Map{"plan": plan}
		if refresh != nil {
			resp["refreshed_enrollments"] = refresh
		}
		return c.JSON(resp)
	}
}

// DELETE /api/plans/:id (admin) — refused while enrollments reference it.
func DeletePlanHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var count int64
		database.DB.Model(&models.Enrollment{}).Where("plan_id = ?", id).Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "plan has enrollments and cannot be deleted")
		}

		if err := database.DB.Select("PriceTable").Delete(&models.BenefitPlan{}, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not delete plan")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

type ResolvePriceResponse struct {
	Price    decimal.Decimal `json:"price"`
	Resolved bool            `json:"resolved"`
}

// GET /api/plans/:id/price?age=32&role=titular
func ResolvePriceHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var plan models.BenefitPlan
		if err := database.DB.
			Preload("PriceTable", func(db *gorm.DB) *gorm.DB { return db.Order("position asc") }).
			First(&plan, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "plan not found")
		}

		age := c.QueryInt("age", -1)
		if age < 0 {
			return fiber.NewError(fiber.StatusBadRequest, "age must be a non-negative integer")
		}
		role := models.BeneficiaryRole(c.Query("role"))
		if role != models.RoleTitular && role != models.RoleDependente {
			return fiber.NewError(fiber.StatusBadRequest, "role must be titular or dependente")
		}

		price, ok := pricing.Resolve(pricing.SortBands(plan.PriceTable), age, role)
		return c.JSON(ResolvePriceResponse{Price: price, Resolved: ok})
	}
}
