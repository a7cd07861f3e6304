package ledger_test

import (
	"context"
	"errors"
	"testing"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/currency"
	"go-pos-ledger/internal/ledger"
	"go-pos-ledger/internal/models"
	"go-pos-ledger/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// debtSale creates a USD sale of total 24 paid 20 for c.
func debtSale(t *testing.T, l *ledger.Ledger, db *gorm.DB, c *models.Customer) (*models.Sale, *models.Product) {
	t.Helper()
	p := testutil.CreateProduct(t, db, "P-"+c.Name, "5", "8", "10")
	sale, err := l.CreateSale(context.Background(), ledger.CreateSaleInput{
		Currency:   currency.USD,
		CustomerID: &c.ID,
		AmountPaid: testutil.Dec("20"),
		Items:      []ledger.LineInput{line(p.ID, "3")},
	})
	require.NoError(t, err)
	return sale, p
}

func assertDebtInvariant(t *testing.T, db *gorm.DB, saleID uint) {
	t.Helper()
	s := testutil.Reload[models.Sale](t, db, saleID)
	assert.True(t, s.DebtAmount.Equal(currency.DebtFor(s.TotalAmount, s.AmountPaid)),
		"debt %s, total %s, paid %s", s.DebtAmount, s.TotalAmount, s.AmountPaid)
}

func TestEditSaleSameCustomerAppliesDelta(t *testing.T) {
	l, db := newLedger(t)
	c := testutil.CreateCustomer(t, db, "Idil")
	sale, _ := debtSale(t, l, db, c)

	edited, err := l.EditSale(context.Background(), currency.USD, sale.ID, ledger.EditSaleInput{AmountPaid: testutil.DecPtr("22.50")})
	require.NoError(t, err)
	testutil.AssertDec(t, "1.50", edited.DebtAmount)
	require.NotNil(t, edited.CustomerID)
	testutil.AssertDec(t, "1.50", testutil.Reload[models.Customer](t, db, c.ID).TotalDebtUSD)
	assertDebtInvariant(t, db, sale.ID)
	assert.Equal(t, int64(1), testutil.CountAudit(t, db, models.AuditSaleEdited))
}

func TestEditSaleFullyPaidClearsCustomer(t *testing.T) {
	l, db := newLedger(t)
	c := testutil.CreateCustomer(t, db, "Sagal")
	sale, _ := debtSale(t, l, db, c)

	edited, err := l.EditSale(context.Background(), currency.USD, sale.ID, ledger.EditSaleInput{AmountPaid: testutil.DecPtr("30")})
	require.NoError(t, err)
	assert.True(t, edited.DebtAmount.IsZero())
	assert.Nil(t, edited.CustomerID)
	assert.Nil(t, testutil.Reload[models.Sale](t, db, sale.ID).CustomerID)
	testutil.AssertDec(t, "0", testutil.Reload[models.Customer](t, db, c.ID).TotalDebtUSD)
	assert.True(t, edited.Overpayment().Equal(testutil.Dec("6")))
	assertDebtInvariant(t, db, sale.ID)
}

func TestEditSaleMovesDebtToNewCustomer(t *testing.T) {
	l, db := newLedger(t)
	oldOwner := testutil.CreateCustomer(t, db, "Old")
	newOwner := testutil.CreateCustomer(t, db, "New")
	sale, _ := debtSale(t, l, db, oldOwner)

	edited, err := l.EditSale(context.Background(), currency.USD, sale.ID, ledger.EditSaleInput{
		AmountPaid: testutil.DecPtr("14"),
		CustomerID: &newOwner.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, edited.CustomerID)
	assert.Equal(t, newOwner.ID, *edited.CustomerID)

	testutil.AssertDec(t, "0", testutil.Reload[models.Customer](t, db, oldOwner.ID).TotalDebtUSD)
	testutil.AssertDec(t, "10", testutil.Reload[models.Customer](t, db, newOwner.ID).TotalDebtUSD)
	assertDebtInvariant(t, db, sale.ID)
}

func TestEditSaleRequiresCustomerForDebt(t *testing.T) {
	l, db := newLedger(t)
	p := testutil.CreateProduct(t, db, "Rice", "1", "2", "10")
	sale, err := l.CreateSale(context.Background(), ledger.CreateSaleInput{
		Currency:   currency.USD,
		AmountPaid: testutil.Dec("2"),
		Items:      []ledger.LineInput{line(p.ID, "1")},
	})
	require.NoError(t, err)

	_, err = l.EditSale(context.Background(), currency.USD, sale.ID, ledger.EditSaleInput{AmountPaid: testutil.DecPtr("1")})
	assert.True(t, errors.Is(err, apperr.ErrCustomerRequired))
	testutil.AssertDec(t, "2", testutil.Reload[models.Sale](t, db, sale.ID).AmountPaid)

	_, err = l.EditSale(context.Background(), currency.USD, 9999, ledger.EditSaleInput{})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestAddSaleItemExistingLine(t *testing.T) {
	l, db := newLedger(t)
	c := testutil.CreateCustomer(t, db, "Nimco")
	sale, p := debtSale(t, l, db, c)

	item, err := l.AddSaleItem(context.Background(), currency.USD, sale.ID, p.ID, testutil.Dec("2"))
	require.NoError(t, err)
	testutil.AssertDec(t, "5", item.Quantity)
	testutil.AssertDec(t, "40", item.TotalPrice)

	s := testutil.Reload[models.Sale](t, db, sale.ID)
	testutil.AssertDec(t, "40", s.TotalAmount)
	testutil.AssertDec(t, "20", s.DebtAmount)
	testutil.AssertDec(t, "20", testutil.Reload[models.Customer](t, db, c.ID).TotalDebtUSD)
	testutil.AssertDec(t, "5", testutil.Reload[models.Product](t, db, p.ID).CurrentStock)

	var n int64
	db.Model(&models.SaleItem{}).Where("sale_id = ?", sale.ID).Count(&n)
	assert.Equal(t, int64(1), n)
	var added int64
	db.Model(&models.InventoryLog{}).Where("action = ?", models.StockSaleItemAdded).Count(&added)
	assert.Equal(t, int64(1), added)
}

func TestAddSaleItemNewLineUsesSnapshot(t *testing.T) {
	l, db := newLedger(t)
	testutil.SaveRates(t, db, "8000", "120")
	first := testutil.CreateProduct(t, db, "First", "1", "1", "10")
	second := testutil.CreateProduct(t, db, "Second", "1", "2", "10")

	sale, err := l.CreateSale(context.Background(), ledger.CreateSaleInput{
		Currency:   currency.ETB,
		AmountPaid: testutil.Dec("120"),
		Items:      []ledger.LineInput{line(first.ID, "1")},
	})
	require.NoError(t, err)

	// live rate moves; the sale keeps its snapshot
	require.NoError(t, db.Model(&models.CurrencySettings{}).Where("1 = 1").Update("usd_to_etb_rate", testutil.Dec("150")).Error)

	item, err := l.AddSaleItem(context.Background(), currency.ETB, sale.ID, second.ID, testutil.Dec("1"))
	require.NoError(t, err)
	testutil.AssertDec(t, "240", item.UnitPrice)
	testutil.AssertDec(t, "360", testutil.Reload[models.Sale](t, db, sale.ID).TotalAmount)
}

func TestAddSaleItemRejectsOutOfStock(t *testing.T) {
	l, db := newLedger(t)
	c := testutil.CreateCustomer(t, db, "Hibo")
	sale, p := debtSale(t, l, db, c)

	_, err := l.AddSaleItem(context.Background(), currency.USD, sale.ID, p.ID, testutil.Dec("8"))
	assert.True(t, errors.Is(err, apperr.ErrOutOfStock))

	_, err = l.AddSaleItem(context.Background(), currency.USD, sale.ID, p.ID, testutil.Dec("0"))
	assert.True(t, errors.Is(err, apperr.ErrInvalidQuantity))

	testutil.AssertDec(t, "24", testutil.Reload[models.Sale](t, db, sale.ID).TotalAmount)
	testutil.AssertDec(t, "7", testutil.Reload[models.Product](t, db, p.ID).CurrentStock)
}
