package transaction_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"benefits-backend/internal/database"
	"benefits-backend/internal/models"
	"benefits-backend/internal/transaction"
	"benefits-backend/internal/validation"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedTransaction(t *testing.T, db *gorm.DB) models.Transaction {
	t.Helper()
	tx := models.Transaction{
		Type:        models.TransactionTypeExpense,
		Description: "supplier invoice",
		Amount:      decimal.RequireFromString("250.00"),
		Date:        time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		Status:      models.StatusPending,
		CreatedBy:   1,
	}
	require.NoError(t, db.Create(&tx).Error)
	return tx
}

func auditEntries(t *testing.T, db *gorm.DB, txID uint) []models.AuditLogEntry {
	t.Helper()
	var entries []models.AuditLogEntry
	require.NoError(t, db.Where("transaction_id = ?", txID).Order("id asc").Find(&entries).Error)
	return entries
}

func TestMutate_ShortReasonRejectedBeforeAnyWrite(t *testing.T) {
	db := newTestDB(t)
	tx := seedTransaction(t, db)

	// "ok!" trims to 3 characters: below the gate.
	_, err := transaction.Mutate(db, transaction.MutateInput{
		TransactionID: tx.ID,
		Action:        models.AuditActionDelete,
		Reason:        "  ok!  ",
		UserID:        1, UserName: "tester",
	})
	require.Error(t, err)
	fe, ok := validation.AsFieldError(err)
	require.True(t, ok)
	assert.Equal(t, "reason", fe.Field)

	// Nothing happened: row still there, no audit entry.
	var count int64
	db.Model(&models.Transaction{}).Count(&count)
	assert.EqualValues(t, 1, count)
	assert.Empty(t, auditEntries(t, db, tx.ID))
}

func TestMutate_ReasonBoundaryExactlyFive(t *testing.T) {
	db := newTestDB(t)
	tx := seedTransaction(t, db)

	_, err := transaction.Mutate(db, transaction.MutateInput{
		TransactionID: tx.ID,
		Action:        models.AuditActionLiquidate,
		Reason:        "valid", // exactly 5
		UserID:        1, UserName: "tester",
	})
	assert.NoError(t, err)
}

func TestMutate_LiquidateSetsSettlementDate(t *testing.T) {
	db := newTestDB(t)
	tx := seedTransaction(t, db)

	got, err := transaction.Mutate(db, transaction.MutateInput{
		TransactionID: tx.ID,
		Action:        models.AuditActionLiquidate,
		Reason:        "paid via wire transfer",
		UserID:        7, UserName: "ana",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, got.Status)
	require.NotNil(t, got.SettlementDate, "paid implies a settlement date")

	entries := auditEntries(t, db, tx.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditActionLiquidate, entries[0].Action)
	assert.Equal(t, "paid via wire transfer", entries[0].Reason)
	assert.EqualValues(t, 7, entries[0].UserID)
	assert.NotEqual(t, "null", entries[0].BeforeData)
	assert.NotEqual(t, "null", entries[0].AfterData)
}

func TestMutate_LiquidateWithExplicitDate(t *testing.T) {
	db := newTestDB(t)
	tx := seedTransaction(t, db)

	when := time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC)
	got, err := transaction.Mutate(db, transaction.MutateInput{
		TransactionID:  tx.ID,
		Action:         models.AuditActionLiquidate,
		Reason:         "settled on receipt date",
		SettlementDate: &when,
		UserID:         1, UserName: "tester",
	})
	require.NoError(t, err)
	assert.True(t, got.SettlementDate.Equal(when))
}

func TestMutate_LiquidateTwiceConflicts(t *testing.T) {
	db := newTestDB(t)
	tx := seedTransaction(t, db)

	_, err := transaction.Mutate(db, transaction.MutateInput{
		TransactionID: tx.ID, Action: models.AuditActionLiquidate,
		Reason: "first settlement", UserID: 1, UserName: "tester",
	})
	require.NoError(t, err)

	_, err = transaction.Mutate(db, transaction.MutateInput{
		TransactionID: tx.ID, Action: models.AuditActionLiquidate,
		Reason: "second settlement", UserID: 1, UserName: "tester",
	})
	require.Error(t, err)
	_, ok := validation.AsConflictError(err)
	assert.True(t, ok, "re-settling is a conflict, not a validation error")

	// Only the successful mutation left a trail.
	assert.Len(t, auditEntries(t, db, tx.ID), 1)
}

func TestMutate_EditAppliesChangesAndAudits(t *testing.T) {
	db := newTestDB(t)
	tx := seedTransaction(t, db)

	newDesc := "supplier invoice (corrected)"
	newAmount := decimal.RequireFromString("199.90")
	got, err := transaction.Mutate(db, transaction.MutateInput{
		TransactionID: tx.ID,
		Action:        models.AuditActionEdit,
		Reason:        "typo in the amount",
		Changes:       &transaction.Changes{Description: &newDesc, Amount: &newAmount},
		UserID:        1, UserName: "tester",
	})
	require.NoError(t, err)
	assert.Equal(t, newDesc, got.Description)
	assert.True(t, got.Amount.Equal(newAmount))
	assert.Equal(t, models.StatusPending, got.Status, "edit does not touch status unless asked")

	entries := auditEntries(t, db, tx.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, models.AuditActionEdit, entries[0].Action)
}

func TestMutate_EditClearsCategoryReference(t *testing.T) {
	db := newTestDB(t)
	cat := models.Category{Name: "benefits"}
	require.NoError(t, db.Create(&cat).Error)
	tx := seedTransaction(t, db)
	require.NoError(t, db.Model(&models.Transaction{}).
		Where("id = ?", tx.ID).Update("category_id", cat.ID).Error)

	got, err := transaction.Mutate(db, transaction.MutateInput{
		TransactionID: tx.ID,
		Action:        models.AuditActionEdit,
		Reason:        "categorized by mistake",
		Changes:       &transaction.Changes{ClearCategory: true},
		UserID:        1, UserName: "tester",
	})
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)

	var reloaded models.Transaction
	require.NoError(t, db.First(&reloaded, tx.ID).Error)
	assert.Nil(t, reloaded.CategoryID, "the reference is gone in storage too")
}

func TestMutate_EditRejectsNonPositiveAmount(t *testing.T) {
	db := newTestDB(t)
	tx := seedTransaction(t, db)

	bad := decimal.NewFromInt(-10)
	_, err := transaction.Mutate(db, transaction.MutateInput{
		TransactionID: tx.ID,
		Action:        models.AuditActionEdit,
		Reason:        "trying a refund",
		Changes:       &transaction.Changes{Amount: &bad},
		UserID:        1, UserName: "tester",
	})
	require.Error(t, err)
	fe, ok := validation.AsFieldError(err)
	require.True(t, ok)
	assert.Equal(t, "amount", fe.Field)
	assert.Empty(t, auditEntries(t, db, tx.ID), "failed edit leaves no trail")
}

func TestMutate_EditStatusBackToPendingClearsSettlement(t *testing.T) {
	db := newTestDB(t)
	tx := seedTransaction(t, db)

	_, err := transaction.Mutate(db, transaction.MutateInput{
		TransactionID: tx.ID, Action: models.AuditActionLiquidate,
		Reason: "settled early", UserID: 1, UserName: "tester",
	})
	require.NoError(t, err)

	pending := models.StatusPending
	got, err := transaction.Mutate(db, transaction.MutateInput{
		TransactionID: tx.ID,
		Action:        models.AuditActionEdit,
		Reason:        "settlement reverted by bank",
		Changes:       &transaction.Changes{Status: &pending},
		UserID:        1, UserName: "tester",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Nil(t, got.SettlementDate)
}

func TestMutate_DeleteIsPermanentAndAudited(t *testing.T) {
	db := newTestDB(t)
	tx := seedTransaction(t, db)

	got, err := transaction.Mutate(db, transaction.MutateInput{
		TransactionID: tx.ID,
		Action:        models.AuditActionDelete,
		Reason:        "duplicate entry",
		UserID:        3, UserName: "carlos",
	})
	require.NoError(t, err)
	assert.Equal(t, tx.ID, got.ID)

	var count int64
	db.Model(&models.Transaction{}).Where("id = ?", tx.ID).Count(&count)
	assert.Zero(t, count, "row is gone")

	entries := auditEntries(t, db, tx.ID)
	require.Len(t, entries, 1, "exactly one audit entry documents the removal")
	assert.Equal(t, models.AuditActionDelete, entries[0].Action)
	assert.NotEqual(t, "null", entries[0].BeforeData)
	assert.Equal(t, "null", entries[0].AfterData, "no after-state for a delete")
}

func TestMutate_UnknownTransaction(t *testing.T) {
	db := newTestDB(t)

	_, err := transaction.Mutate(db, transaction.MutateInput{
		TransactionID: 999,
		Action:        models.AuditActionDelete,
		Reason:        "cleanup attempt",
		UserID:        1, UserName: "tester",
	})
	require.ErrorIs(t, err, transaction.ErrNotFound)
}

func TestMutate_UnknownAction(t *testing.T) {
	db := newTestDB(t)
	tx := seedTransaction(t, db)

	_, err := transaction.Mutate(db, transaction.MutateInput{
		TransactionID: tx.ID,
		Action:        "archive",
		Reason:        "not a real action",
		UserID:        1, UserName: "tester",
	})
	require.Error(t, err)
	fe, ok := validation.AsFieldError(err)
	require.True(t, ok)
	assert.Equal(t, "action", fe.Field)
}
