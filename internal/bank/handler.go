// Package bank manages the bank accounts transactions reference as
// opaque foreign keys.
package bank

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"benefits-backend/internal/database"
	"benefits-backend/internal/models"
)

type CreateBankAccountRequest struct {
	Type          models.AccountType `json:"type"`
	Name          string             `json:"name"`
	Bank          string             `json:"bank"`
	Agency        string             `json:"agency"`
	AccountNumber string             `json:"account_number"`
	Balance       decimal.Decimal    `json:"balance"`
	Description   string             `json:"description"`
}

type UpdateBankAccountRequest struct {
	Name          *string          `json:"name"`
	Bank          *string          `json:"bank"`
	Agency        *string          `json:"agency"`
	AccountNumber *string          `json:"account_number"`
	Balance       *decimal.Decimal `json:"balance"`
	Description   *string          `json:"description"`
	IsActive      *bool            `json:"is_active"`
}

// POST /api/admin/bank-accounts (admin)
func CreateBankAccountHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateBankAccountRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "name is required")
		}
		switch body.Type {
		case models.AccountTypeChecking, models.AccountTypeSavings, models.AccountTypeCreditCard:
		default:
			return fiber.NewError(fiber.StatusBadRequest, "type must be checking, savings or credit_card")
		}

		acc := models.BankAccount{
			Type:          body.Type,
			Name:          body.Name,
			Bank:          body.Bank,
			Agency:        body.Agency,
			AccountNumber: body.AccountNumber,
			Balance:       body.Balance,
			Description:   body.Description,
			IsActive:      true,
		}
		if err := database.DB.Create(&acc).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not create bank account")
		}
		return c.Status(fiber.StatusCreated).JSON(acc)
	}
}

// GET /api/bank-accounts
func ListBankAccountsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var accounts []models.BankAccount
		if err := database.DB.Order("name asc").Find(&accounts).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list bank accounts")
		}
		return c.JSON(accounts)
	}
}

// PUT /api/admin/bank-accounts/:id (admin)
func UpdateBankAccountHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var acc models.BankAccount
		if err := database.DB.First(&acc, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "bank account not found")
		}

		var body UpdateBankAccountRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "name cannot be empty")
			}
			acc.Name = name
		}
		if body.Bank != nil {
			acc.Bank = *body.Bank
		}
		if body.Agency != nil {
			acc.Agency = *body.Agency
		}
		if body.AccountNumber != nil {
			acc.AccountNumber = *body.AccountNumber
		}
		if body.Balance != nil {
			acc.Balance = *body.Balance
		}
		if body.Description != nil {
			acc.Description = *body.Description
		}
		if body.IsActive != nil {
			acc.IsActive = *body.IsActive
		}

		if err := database.DB.Save(&acc).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not update bank account")
		}
		return c.JSON(acc)
	}
}

// DELETE /api/admin/bank-accounts/:id (admin)
func DeleteBankAccountHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var count int64
		database.DB.Model(&models.Transaction{}).Where("bank_account_id = ?", c.Params("id")).Count(&count)
		if count > 0 {
			return fiber.NewError(fiber.StatusConflict, "bank account has transactions and cannot be deleted")
		}

		if err := database.DB.Delete(&models.BankAccount{}, "id = ?", c.Params("id")).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not delete bank account")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}
