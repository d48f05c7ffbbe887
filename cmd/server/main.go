package main

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/sirupsen/logrus"

	"benefits-backend/internal/adjustment"
	"benefits-backend/internal/audit"
	"benefits-backend/internal/auth"
	"benefits-backend/internal/bank"
	"benefits-backend/internal/billing"
	"benefits-backend/internal/category"
	"benefits-backend/internal/collaborator"
	"benefits-backend/internal/config"
	"benefits-backend/internal/database"
	"benefits-backend/internal/enrollment"
	"benefits-backend/internal/models"
	"benefits-backend/internal/plan"
	"benefits-backend/internal/transaction"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			logrus.WithError(err).Error("unexpected error")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "unexpected server error",
			})
		},
	})

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Admin-only routes
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	adminRoutes.Post("/users", auth.CreateUserHandler())

	adminRoutes.Post("/bank-accounts", bank.CreateBankAccountHandler())
	adminRoutes.Put("/bank-accounts/:id", bank.UpdateBankAccountHandler())
	adminRoutes.Delete("/bank-accounts/:id", bank.DeleteBankAccountHandler())

	adminRoutes.Post("/categories", category.CreateCategoryHandler())
	adminRoutes.Put("/categories/:id", category.UpdateCategoryHandler())
	adminRoutes.Delete("/categories/:id", category.DeleteCategoryHandler())

	// Benefit plan administration
	adminRoutes.Post("/plans", plan.CreatePlanHandler())
	adminRoutes.Put("/plans/:id", plan.UpdatePlanHandler())
	adminRoutes.Delete("/plans/:id", plan.DeletePlanHandler())
	adminRoutes.Post("/plans/:id/adjustments", adjustment.ApplyPlanAdjustmentHandler())
	adminRoutes.Post("/operators/adjustments", adjustment.ApplyOperatorAdjustmentHandler())

	// Billing consolidation
	adminRoutes.Post("/billing/generate", billing.GenerateBillingHandler(cfg))

	// Shared (any authenticated role)
	protected.Get("/bank-accounts", bank.ListBankAccountsHandler())
	protected.Get("/categories", category.ListCategoriesHandler())

	protected.Get("/plans", plan.ListPlansHandler())
	protected.Get("/plans/:id", plan.GetPlanHandler())
	protected.Get("/plans/:id/price", plan.ResolvePriceHandler())

	protected.Post("/collaborators", collaborator.CreateCollaboratorHandler())
	protected.Get("/collaborators", collaborator.ListCollaboratorsHandler())
	protected.Get("/collaborators/:id", collaborator.GetCollaboratorHandler())
	protected.Put("/collaborators/:id", collaborator.UpdateCollaboratorHandler())
	protected.Post("/collaborators/:id/dependents", collaborator.CreateDependentHandler())
	protected.Delete("/collaborators/:id/dependents/:depId", collaborator.DeleteDependentHandler())

	protected.Post("/enrollments", enrollment.CreateEnrollmentHandler())
	protected.Get("/enrollments", enrollment.ListEnrollmentsHandler())
	protected.Put("/enrollments/:id", enrollment.UpdateEnrollmentHandler())
	protected.Delete("/enrollments/:id", enrollment.DeleteEnrollmentHandler())

	// Financial transactions: creation builds the series, every later
	// mutation passes through the audit gate.
	protected.Post("/transactions", transaction.CreateTransactionHandler())
	protected.Get("/transactions", transaction.ListTransactionsHandler())
	protected.Get("/transactions/summary/monthly", transaction.MonthlySummaryHandler())
	protected.Post("/transactions/:id/liquidate", transaction.LiquidateTransactionHandler())
	protected.Put("/transactions/:id", transaction.EditTransactionHandler())
	protected.Delete("/transactions/:id", transaction.DeleteTransactionHandler())

	protected.Get("/audit-logs", audit.ListAuditLogsHandler())

	logrus.Infof("server listening on port %s", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		logrus.Fatal(err)
	}
}
