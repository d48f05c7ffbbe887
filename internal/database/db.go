package database

import (
	"hash/fnv"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"benefits-backend/internal/config"
	"benefits-backend/internal/models"
)

var DB *gorm.DB

func Init(cfg *config.Config) {
	var err error

	DB, err = gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("database connection failed: %v", err)
	}

	if err := Migrate(DB); err != nil {
		logrus.Fatalf("migration failed: %v", err)
	}

	logrus.Info("database connected, migrations applied")
}

// Migrate applies the schema. Shared with tests, which run it against an
// in-memory sqlite database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.BankAccount{},
		&models.Category{},
		&models.Collaborator{},
		&models.Dependent{},
		&models.BenefitPlan{},
		&models.PriceBand{},
		&models.Enrollment{},
		&models.Transaction{},
		&models.AuditLogEntry{},
	)
}

// AdvisoryLock serializes concurrent writers on a coarse key (operator
// name for adjustments, billing period for billing runs) for the
// lifetime of the surrounding transaction. Postgres only; other dialects
// (sqlite in tests) run single-writer anyway.
func AdvisoryLock(tx *gorm.DB, key string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	h := fnv.New64a()
	h.Write([]byte(key))
	return tx.Exec("SELECT pg_advisory_xact_lock(?)", int64(h.Sum64())).Error
}
