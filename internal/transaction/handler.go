package transaction

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"benefits-backend/internal/auth"
	"benefits-backend/internal/database"
	"benefits-backend/internal/models"
	"benefits-backend/internal/validation"
)

type CreateTransactionRequest struct {
	Type               models.TransactionType    `json:"type"`
	Description        string                    `json:"description"`
	Amount             decimal.Decimal           `json:"amount"`
	CategoryID         *uint                     `json:"category_id"`
	Date               string                    `json:"date"` // "2025-06-10"
	BankAccountID      *uint                     `json:"bank_account_id"`
	PaymentMethod      string                    `json:"payment_method"`
	IsRecurring        bool                      `json:"is_recurring"`
	RecurrenceInterval models.RecurrenceInterval `json:"recurrence_interval"`
	InstallmentTotal   int                       `json:"installment_total"`
}

type MutationRequest struct {
	Reason         string   `json:"reason"`
	SettlementDate *string  `json:"settlement_date"` // liquidate, optional
	Changes        *Changes `json:"changes"`         // edit
}

func currentUser(c *fiber.Ctx) (uint, string, error) {
	userID, ok := c.Locals(auth.CtxUserIDKey).(uint)
	if !ok {
		return 0, "", fiber.NewError(fiber.StatusForbidden, "user identity missing")
	}
	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		return 0, "", fiber.NewError(fiber.StatusInternalServerError, "user not found")
	}
	return userID, user.Name, nil
}

func mapMutationError(err error) error {
	if fe, ok := validation.AsFieldError(err); ok {
		return fiber.NewError(fiber.StatusBadRequest, fe.Error())
	}
	if ce, ok := validation.AsConflictError(err); ok {
		return fiber.NewError(fiber.StatusConflict, ce.Error())
	}
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "transaction not found")
	}
	return fiber.NewError(fiber.StatusInternalServerError, "mutation failed")
}

// POST /api/transactions
func CreateTransactionHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _, err := currentUser(c)
		if err != nil {
			return err
		}

		var body CreateTransactionRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		date, err := time.Parse("2006-01-02", body.Date)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "date must be YYYY-MM-DD")
		}

		rows, err := BuildSeries(CreateInput{
			Type:               body.Type,
			Description:        body.Description,
			Amount:             body.Amount,
			CategoryID:         body.CategoryID,
			Date:               date,
			BankAccountID:      body.BankAccountID,
			PaymentMethod:      body.PaymentMethod,
			IsRecurring:        body.IsRecurring,
			RecurrenceInterval: body.RecurrenceInterval,
			InstallmentTotal:   body.InstallmentTotal,
			CreatedBy:          userID,
		})
		if err != nil {
			if fe, ok := validation.AsFieldError(err); ok {
				return fiber.NewError(fiber.StatusBadRequest, fe.Error())
			}
			return fiber.NewError(fiber.StatusInternalServerError, "could not build transaction series")
		}

		if err := database.DB.Create(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not save transactions")
		}
		return c.Status(fiber.StatusCreated).JSON(rows)
	}
}

// GET /api/transactions?type=expense&status=pending&month=2025-06&series_id=...
func ListTransactionsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		dbq := database.DB.Model(&models.Transaction{})

		if t := c.Query("type"); t != "" {
			dbq = dbq.Where("type = ?", t)
		}
		if s := c.Query("status"); s != "" {
			dbq = dbq.Where("status = ?", s)
		}
		if sid := c.Query("series_id"); sid != "" {
			dbq = dbq.Where("series_id = ?", sid)
		}
		if m := c.Query("month"); m != "" {
			start, err := time.Parse("2006-01", m)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "month must be YYYY-MM")
			}
			dbq = dbq.Where("date >= ? AND date < ?", start, start.AddDate(0, 1, 0))
		}

		var rows []models.Transaction
		if err := dbq.Order("date asc, id asc").Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not list transactions")
		}
		return c.JSON(rows)
	}
}

// POST /api/transactions/:id/liquidate
func LiquidateTransactionHandler() fiber.Handler {
	return mutationHandler(models.AuditActionLiquidate)
}

// PUT /api/transactions/:id
func EditTransactionHandler() fiber.Handler {
	return mutationHandler(models.AuditActionEdit)
}

// DELETE /api/transactions/:id
func DeleteTransactionHandler() fiber.Handler {
	return mutationHandler(models.AuditActionDelete)
}

func mutationHandler(action models.AuditAction) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := c.ParamsInt("id")
		if err != nil || id <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "invalid transaction id")
		}

		userID, userName, err := currentUser(c)
		if err != nil {
			return err
		}

		var body MutationRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}

		in := MutateInput{
			TransactionID: uint(id),
			Action:        action,
			Reason:        body.Reason,
			Changes:       body.Changes,
			UserID:        userID,
			UserName:      userName,
		}
		if body.SettlementDate != nil {
			when, err := time.Parse("2006-01-02", *body.SettlementDate)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "settlement_date must be YYYY-MM-DD")
			}
			in.SettlementDate = &when
		}

		t, err := Mutate(database.DB, in)
		if err != nil {
			return mapMutationError(err)
		}
		if action == models.AuditActionDelete {
			return c.JSON(fiber.Map{"deleted": t.ID})
		}
		return c.JSON(t)
	}
}

type MonthlySummaryItem struct {
	CategoryID   *uint           `json:"category_id"`
	CategoryName string          `json:"category_name"`
	Income       decimal.Decimal `json:"income"`
	Expense      decimal.Decimal `json:"expense"`
}

type MonthlySummaryResponse struct {
	Month        string               `json:"month"`
	Items        []MonthlySummaryItem `json:"items"`
	TotalIncome  decimal.Decimal      `json:"total_income"`
	TotalExpense decimal.Decimal      `json:"total_expense"`
}

// GET /api/transactions/summary/monthly?month=2025-06
func MonthlySummaryHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		m := c.Query("month")
		start, err := time.Parse("2006-01", m)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "month must be YYYY-MM")
		}

		var rows []models.Transaction
		if err := database.DB.Preload("Category").
			Where("date >= ? AND date < ?", start, start.AddDate(0, 1, 0)).
			Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "could not load transactions")
		}

		byCategory := map[string]*MonthlySummaryItem{}
		resp := MonthlySummaryResponse{Month: m, Items: []MonthlySummaryItem{}}
		for _, t := range rows {
			name := "uncategorized"
			if t.Category != nil {
				name = t.Category.Name
			}
			key := name
			if t.CategoryID != nil {
				key = fmt.Sprint(*t.CategoryID)
			}
			item, ok := byCategory[key]
			if !ok {
				item = &MonthlySummaryItem{CategoryID: t.CategoryID, CategoryName: name}
				byCategory[key] = item
			}
			if t.Type == models.TransactionTypeIncome {
				item.Income = item.Income.Add(t.Amount)
				resp.TotalIncome = resp.TotalIncome.Add(t.Amount)
			} else {
				item.Expense = item.Expense.Add(t.Amount)
				resp.TotalExpense = resp.TotalExpense.Add(t.Amount)
			}
		}
		for _, item := range byCategory {
			resp.Items = append(resp.Items, *item)
		}
		return c.JSON(resp)
	}
}
