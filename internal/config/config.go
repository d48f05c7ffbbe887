package config

import (
	"os"

	"github.com/sirupsen/logrus"

	"benefits-backend/internal/models"
)

type Config struct {
	HTTPPort    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string

	// BillingDirection decides which side of the ledger consolidated
	// benefit billing lands on: "expense" when the company pays the
	// operator, "income" when the charge is passed on to the financial
	// responsible. A business decision, so it is configuration, not code.
	BillingDirection models.TransactionType
}

func Load() *Config {
	cfg := &Config{
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		DatabaseDSN:      getEnv("DATABASE_DSN", "host=localhost user=postgres password=postgres dbname=benefits port=5432 sslmode=disable"),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		CORSOrigins:      getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		BillingDirection: models.TransactionType(getEnv("BILLING_DIRECTION", string(models.TransactionTypeExpense))),
	}

	if cfg.JWTSecret == "" {
		logrus.Fatal("JWT_SECRET is not set; it is mandatory")
	}
	if len(cfg.JWTSecret) < 32 {
		logrus.Fatal("JWT_SECRET must be at least 32 characters")
	}
	if cfg.BillingDirection != models.TransactionTypeIncome && cfg.BillingDirection != models.TransactionTypeExpense {
		logrus.Fatalf("BILLING_DIRECTION must be %q or %q, got %q",
			models.TransactionTypeIncome, models.TransactionTypeExpense, cfg.BillingDirection)
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
