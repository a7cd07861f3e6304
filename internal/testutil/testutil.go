// Package testutil builds throwaway in-memory databases and fixtures for
// service tests.
package testutil

import (
	"io"
	"testing"

	"go-pos-ledger/internal/database"
	"go-pos-ledger/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated, isolated in-memory SQLite database. The pool
// is pinned to a single connection so the named memory DB survives and
// writes are serialized.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// NewLogger returns a logger that discards output.
func NewLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// DecPtr is Dec returning a pointer.
func DecPtr(s string) *decimal.Decimal {
	d := Dec(s)
	return &d
}

// AssertDec compares decimals by value, ignoring representation.
func AssertDec(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	assert.Truef(t, Dec(expected).Equal(actual), "expected %s, got %s %v", expected, actual.String(), msgAndArgs)
}

// CreateProduct stores an active product with USD prices.
func CreateProduct(t *testing.T, db *gorm.DB, name, purchase, selling, stock string) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:              name,
		PurchasePrice:     Dec(purchase),
		SellingPrice:      Dec(selling),
		CurrentStock:      Dec(stock),
		LowStockThreshold: Dec("2"),
		IsActive:          true,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func CreateCustomer(t *testing.T, db *gorm.DB, name string) *models.Customer {
	t.Helper()
	c := &models.Customer{Name: name, IsActive: true}
	require.NoError(t, db.Create(c).Error)
	return c
}

// SaveRates stores the currency settings row.
func SaveRates(t *testing.T, db *gorm.DB, sos, etb string) {
	t.Helper()
	require.NoError(t, db.Create(&models.CurrencySettings{
		USDToSOSRate: Dec(sos),
		USDToETBRate: Dec(etb),
	}).Error)
}

// Reload fetches a fresh copy of a model by primary key.
func Reload[T any](t *testing.T, db *gorm.DB, id uint) *T {
	t.Helper()
	var out T
	require.NoError(t, db.First(&out, id).Error)
	return &out
}

func CountAudit(t *testing.T, db *gorm.DB, action string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&models.AuditLog{}).Where("action = ?", action).Count(&n).Error)
	return n
}
