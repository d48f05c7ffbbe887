package enrollment

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"benefits-backend/internal/database"
	"benefits-backend/internal/models"
	"benefits-backend/internal/validation"
)

type CreateEnrollmentRequest struct {
	CollaboratorID         uint   `json:"collaborator_id"`
	DependentID            *uint  `json:"dependent_id"`
	PlanID                 uint   `json:"plan_id"`
	PlanCredential         string `json:"plan_credential"`
	FinancialResponsibleID *uint  `json:"financial_responsible_id"`
	EffectiveDate          string `json:"effective_date"` // "2025-06-01", optional
}

type CreateEnrollmentResponse struct {
	Enrollment *models.Enrollment `json:"enrollment"`
	Warnings   []string           `json:"warnings,omitempty"`
}

// POST /api/enrollments
func CreateEnrollmentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateEnrollmentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if body.CollaboratorID == 0 || body.PlanID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "collaborator_id and plan_id are required")
		}

		in := CreateInput{
			CollaboratorID:         body.CollaboratorID,
			DependentID:            body.DependentID,
			PlanID:                 body.PlanID,
			PlanCredential:         body.PlanCredential,
			FinancialResponsibleID: body.FinancialResponsibleID,
		}
		if body.EffectiveDate != "" {
			d, err := time.Parse("2006-01-02", body.EffectiveDate)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "effective_date must be YYYY-MM-DD")
			}
			in.EffectiveDate = d
		}

		e, warnings, err := Create(database.DB, in)
		if err != nil {
			if fe, ok := validation.AsFieldError(err); ok {
				return fiber.NewError(fiber.StatusBadRequest, fe.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "could not create enrollment")
		}
		return c.Status(fiber.StatusCreated).JSON(CreateEnrollmentResponse{Enrollment: e, Warnings: warnings})
	}
}

// GET /api/enrollments?collaborator_id=1&status=active&kind=health
func ListEnrollmentsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Enrollment{})

		if cid := c.QueryInt("collaborator_id"); cid > 0 {
			dbq = dbq.Where("collaborator_id = ?", cid)
		}
		if s := c.Query("status"); s != "" {
			dbq = dbq.Where("status = ?", s)
		}
		if k := c.Query("kind"); k != "" {
			dbq = dbq.Where("kind = ?", k)
		}

		var rows []models.Enrollment
		if err := dbq.Order("id asc").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list enrollments")
		}
		return c.JSON(rows)
	}
}

type UpdateEnrollmentRequest struct {
	PlanCredential         *string                  `json:"plan_credential"`
	FinancialResponsibleID *uint                    `json:"financial_responsible_id"`
	Status                 *models.EnrollmentStatus `json:"status"`
}

// PUT /api/enrollments/:id
func UpdateEnrollmentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var e models.Enrollment
		if err := database.DB.First(&e, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "enrollment not found")
		}

		var body UpdateEnrollmentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		if body.PlanCredential != nil {
			e.PlanCredential = *body.PlanCredential
		}
		if body.FinancialResponsibleID != nil {
			e.FinancialResponsibleID = *body.FinancialResponsibleID
		}
		if body.Status != nil {
			switch *body.Status {
			case models.EnrollmentActive, models.EnrollmentInactive, models.EnrollmentPending:
				e.Status = *body.Status
			default:
				return fiber.NewError(fiber.StatusBadRequest, "status must be active, inactive or pending")
			}
		}

		if err := database.DB.Save(&e).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not update enrollment")
		}
		return c.JSON(e)
	}
}

// DELETE /api/enrollments/:id — cancellation is a hard delete.
func DeleteEnrollmentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		if err := database.DB.Delete(&models.Enrollment{}, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not delete enrollment")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
