// Package collaborator manages the HR-owned beneficiary records the
// pricing engine consumes: collaborators and their dependents.
package collaborator

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"benefits-backend/internal/database"
	"benefits-backend/internal/models"
)

type CreateCollaboratorRequest struct {
	Name      string        `json:"name"`
	Document  string        `json:"document"`
	Email     string        `json:"email"`
	BirthDate string        `json:"birth_date"` // "1990-04-12"
	Gender    models.Gender `json:"gender"`
}

type UpdateCollaboratorRequest struct {
	Name     *string `json:"name"`
	Document *string `json:"document"`
	Email    *string `json:"email"`
	IsActive *bool   `json:"is_active"`
}

type CreateDependentRequest struct {
	Name         string        `json:"name"`
	Relationship string        `json:"relationship"`
	BirthDate    string        `json:"birth_date"`
	Gender       models.Gender `json:"gender"`
}

func parseGender(g models.Gender) bool {
	return g == models.GenderFemale || g == models.GenderMale
}

// POST /api/collaborators
func CreateCollaboratorHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateCollaboratorRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}
		if !parseGender(body.Gender) {
			return fiber.NewError(fiber.StatusBadRequest, "gender must be female or male")
		}
		birth, err := time.Parse("2006-01-02", body.BirthDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "birth_date must be YYYY-MM-DD")
		}

		col := models.Collaborator{
			Name:      body.Name,
			Document:  body.Document,
			Email:     strings.TrimSpace(strings.ToLower(body.Email)),
			BirthDate: birth,
			Gender:    body.Gender,
			IsActive:  true,
		}
		if err := database.DB.Create(&col).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create collaborator")
		}
		return c.Status(fiber.StatusCreated).JSON(col)
	}
}

// GET /api/collaborators
func ListCollaboratorsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Collaborator{}).Preload("Dependents")
		if c.Query("active") == "true" {
			dbq = dbq.Where("is_active = ?", true)
		}

		var cols []models.Collaborator
		if err := dbq.Order("name asc").Find(&cols).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list collaborators")
		}
		return c.JSON(cols)
	}
}

// GET /api/collaborators/:id
func GetCollaboratorHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var col models.Collaborator
		if err := database.DB.Preload("Dependents").First(&col, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "collaborator not found")
		}
		return c.JSON(col)
	}
}

// PUT /api/collaborators/:id
func UpdateCollaboratorHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var col models.Collaborator
		if err := database.DB.First(&col, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "collaborator not found")
		}

		var body UpdateCollaboratorRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "name cannot be empty")
			}
			col.Name = name
		}
		if body.Document != nil {
			col.Document = *body.Document
		}
		if body.Email != nil {
			col.Email = strings.TrimSpace(strings.ToLower(*body.Email))
		}
		if body.IsActive != nil {
			col.IsActive = *body.IsActive
		}

		if err := database.DB.Save(&col).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not update collaborator")
		}
		return c.JSON(col)
	}
}

// POST /api/collaborators/:id/dependents
func CreateDependentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var col models.Collaborator
		if err := database.DB.First(&col, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "collaborator not found")
		}

		var body CreateDependentRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}
		if !parseGender(body.Gender) {
			return fiber.NewError(fiber.StatusBadRequest, "gender must be female or male")
		}
		birth, err := time.Parse("2006-01-02", body.BirthDate)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "birth_date must be YYYY-MM-DD")
		}

		dep := models.Dependent{
			CollaboratorID: col.ID,
			Name:           body.Name,
			Relationship:   body.Relationship,
			BirthDate:      birth,
			Gender:         body.Gender,
		}
		if err := database.DB.Create(&dep).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create dependent")
		}
		return c.Status(fiber.StatusCreated).JSON(dep)
	}
}

// DELETE /api/collaborators/:id/dependents/:depId
func DeleteDependentHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var count int64
		database.DB.Model(&models.Enrollment{}).Where("dependent_id = ?", c.Params("depId")).Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "dependent has enrollments and cannot be deleted")
		}

		if err := database.DB.
			Delete(&models.Dependent{}, "id = ? AND collaborator_id = ?", c.Params("depId"), c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not delete dependent")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
