package debt_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/audit"
	"go-pos-ledger/internal/cache"
	"go-pos-ledger/internal/currency"
	"go-pos-ledger/internal/debt"
	"go-pos-ledger/internal/models"
	"go-pos-ledger/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newService(t *testing.T) (*debt.Service, *gorm.DB) {
	db := testutil.NewDB(t)
	return debt.NewService(db, audit.NewTrail(testutil.NewLogger()), cache.New(nil)), db
}

// owe creates a sale for c with the given debt, created age ago, and
// adds the debt to c's balance.
func owe(t *testing.T, db *gorm.DB, c *models.Customer, code currency.Code, amount string, age time.Duration) *models.Sale {
	t.Helper()
	s := &models.Sale{
		Currency:    code,
		CustomerID:  &c.ID,
		TotalAmount: testutil.Dec(amount),
		AmountPaid:  testutil.Dec("0"),
		CreatedAt:   time.Now().Add(-age),
	}
	require.NoError(t, db.Create(s).Error)
	c.SetDebt(code, c.DebtIn(code).Add(testutil.Dec(amount)))
	require.NoError(t, db.Model(c).Update(models.DebtColumn(code), c.DebtIn(code)).Error)
	return s
}

func TestRecordPaymentFIFO(t *testing.T) {
	svc, db := newService(t)
	c := testutil.CreateCustomer(t, db, "Asha")
	s1 := owe(t, db, c, currency.USD, "30", 2*time.Hour)
	s2 := owe(t, db, c, currency.USD, "20", time.Hour)

	res, err := svc.RecordPayment(context.Background(), debt.PaymentInput{
		CustomerID: c.ID, Currency: currency.USD, Amount: testutil.Dec("40"), PNO: "R-001",
	})
	require.NoError(t, err)

	testutil.AssertDec(t, "0", testutil.Reload[models.Sale](t, db, s1.ID).DebtAmount)
	testutil.AssertDec(t, "30", testutil.Reload[models.Sale](t, db, s1.ID).AmountPaid)
	testutil.AssertDec(t, "10", testutil.Reload[models.Sale](t, db, s2.ID).DebtAmount)
	testutil.AssertDec(t, "10", testutil.Reload[models.Customer](t, db, c.ID).TotalDebtUSD)

	testutil.AssertDec(t, "50", res.OldDebt)
	testutil.AssertDec(t, "10", res.NewDebt)
	require.Len(t, res.Allocations, 2)
	assert.Equal(t, s1.ID, res.Allocations[0].SaleID)
	testutil.AssertDec(t, "30", res.Allocations[0].Applied)
	testutil.AssertDec(t, "10", res.Allocations[1].Applied)
	assert.True(t, res.Unallocated.IsZero())

	var payments []models.DebtPayment
	require.NoError(t, db.Find(&payments).Error)
	require.Len(t, payments, 1)
	assert.Equal(t, "R-001", payments[0].PNO)
	assert.Equal(t, int64(1), testutil.CountAudit(t, db, models.AuditDebtPaid))
}

func TestRecordPaymentOnlyTouchesSameCurrency(t *testing.T) {
	svc, db := newService(t)
	c := testutil.CreateCustomer(t, db, "Leyla")
	sos := owe(t, db, c, currency.SOS, "50000", 2*time.Hour)
	usd := owe(t, db, c, currency.USD, "15", time.Hour)

	_, err := svc.RecordPayment(context.Background(), debt.PaymentInput{
		CustomerID: c.ID, Currency: currency.USD, Amount: testutil.Dec("5"), PNO: "R-9",
	})
	require.NoError(t, err)

	testutil.AssertDec(t, "50000", testutil.Reload[models.Sale](t, db, sos.ID).DebtAmount)
	testutil.AssertDec(t, "10", testutil.Reload[models.Sale](t, db, usd.ID).DebtAmount)
	reloaded := testutil.Reload[models.Customer](t, db, c.ID)
	testutil.AssertDec(t, "50000", reloaded.TotalDebtSOS)
	testutil.AssertDec(t, "10", reloaded.TotalDebtUSD)
}

func TestRecordPaymentUnallocatedRemainder(t *testing.T) {
	svc, db := newService(t)
	c := testutil.CreateCustomer(t, db, "Deeqa")
	s := owe(t, db, c, currency.ETB, "100", time.Hour)
	// a correction inflated the balance beyond the sales
	require.NoError(t, db.Model(c).Update("total_debt_etb", testutil.Dec("150")).Error)

	res, err := svc.RecordPayment(context.Background(), debt.PaymentInput{
		CustomerID: c.ID, Currency: currency.ETB, Amount: testutil.Dec("130"), PNO: "R-2",
	})
	require.NoError(t, err)

	testutil.AssertDec(t, "30", res.Unallocated)
	testutil.AssertDec(t, "20", res.NewDebt)
	testutil.AssertDec(t, "0", testutil.Reload[models.Sale](t, db, s.ID).DebtAmount)
	testutil.AssertDec(t, "20", testutil.Reload[models.Customer](t, db, c.ID).TotalDebtETB)
}

func TestRecordPaymentRejections(t *testing.T) {
	svc, db := newService(t)
	c := testutil.CreateCustomer(t, db, "Muna")
	owe(t, db, c, currency.USD, "10", time.Hour)

	tests := []struct {
		name string
		in   debt.PaymentInput
		want error
	}{
		{"exceeds debt", debt.PaymentInput{CustomerID: c.ID, Currency: currency.USD, Amount: testutil.Dec("10.01"), PNO: "R"}, apperr.ErrExceedsDebt},
		{"zero amount", debt.PaymentInput{CustomerID: c.ID, Currency: currency.USD, Amount: testutil.Dec("0"), PNO: "R"}, apperr.ErrValidationFailed},
		{"missing pno", debt.PaymentInput{CustomerID: c.ID, Currency: currency.USD, Amount: testutil.Dec("1"), PNO: "  "}, apperr.ErrValidationFailed},
		{"no debt in currency", debt.PaymentInput{CustomerID: c.ID, Currency: currency.SOS, Amount: testutil.Dec("1"), PNO: "R"}, apperr.ErrExceedsDebt},
		{"unknown customer", debt.PaymentInput{CustomerID: 999, Currency: currency.USD, Amount: testutil.Dec("1"), PNO: "R"}, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RecordPayment(context.Background(), tt.in)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	testutil.AssertDec(t, "10", testutil.Reload[models.Customer](t, db, c.ID).TotalDebtUSD)
	var n int64
	db.Model(&models.DebtPayment{}).Count(&n)
	assert.Zero(t, n)
}

func TestCorrectDebt(t *testing.T) {
	svc, db := newService(t)
	c := testutil.CreateCustomer(t, db, "Ifrah")
	s := owe(t, db, c, currency.SOS, "40000", time.Hour)

	uid := uint(3)
	ctx := audit.WithActor(context.Background(), audit.Actor{UserID: &uid, IP: "192.168.1.4"})
	rec, err := svc.CorrectDebt(ctx, debt.CorrectionInput{
		CustomerID: c.ID, Currency: currency.SOS, NewAmount: testutil.Dec("25000"), Reason: "counted cash drawer",
	})
	require.NoError(t, err)

	testutil.AssertDec(t, "40000", rec.OldDebtAmount)
	testutil.AssertDec(t, "25000", rec.NewDebtAmount)
	testutil.AssertDec(t, "-15000", rec.AdjustmentAmount)
	assert.Equal(t, "192.168.1.4", rec.IPAddress)
	require.NotNil(t, rec.UserID)
	assert.Equal(t, uid, *rec.UserID)

	testutil.AssertDec(t, "25000", testutil.Reload[models.Customer](t, db, c.ID).TotalDebtSOS)
	testutil.AssertDec(t, "40000", testutil.Reload[models.Sale](t, db, s.ID).DebtAmount, "sales untouched")
	assert.Equal(t, int64(1), testutil.CountAudit(t, db, models.AuditDebtCorrected))
}

func TestCorrectDebtRejectsBadInput(t *testing.T) {
	svc, db := newService(t)
	c := testutil.CreateCustomer(t, db, "Zam")

	_, err := svc.CorrectDebt(context.Background(), debt.CorrectionInput{CustomerID: c.ID, Currency: currency.USD, NewAmount: testutil.Dec("-1"), Reason: "x"})
	assert.True(t, errors.Is(err, apperr.ErrValidationFailed))

	_, err = svc.CorrectDebt(context.Background(), debt.CorrectionInput{CustomerID: c.ID, Currency: currency.USD, NewAmount: testutil.Dec("1")})
	assert.True(t, errors.Is(err, apperr.ErrValidationFailed))

	var n int64
	db.Model(&models.DebtCorrection{}).Count(&n)
	assert.Zero(t, n)
}

func TestAddDebt(t *testing.T) {
	svc, db := newService(t)
	c := testutil.CreateCustomer(t, db, "Warsan")

	updated, err := svc.AddDebt(context.Background(), debt.AddDebtInput{CustomerID: c.ID, Currency: currency.ETB, Amount: testutil.Dec("75.255")})
	require.NoError(t, err)
	testutil.AssertDec(t, "75.26", updated.TotalDebtETB)

	_, err = svc.AddDebt(context.Background(), debt.AddDebtInput{CustomerID: c.ID, Currency: currency.ETB, Amount: testutil.Dec("0")})
	assert.True(t, errors.Is(err, apperr.ErrValidationFailed))
	assert.Equal(t, int64(1), testutil.CountAudit(t, db, models.AuditDebtAdded))
}

func TestRecordPaymentAcceptsLowercaseCurrency(t *testing.T) {
	svc, db := newService(t)
	c := testutil.CreateCustomer(t, db, "Ubah")
	s := owe(t, db, c, currency.SOS, "16000", time.Hour)

	res, err := svc.RecordPayment(context.Background(), debt.PaymentInput{
		CustomerID: c.ID, Currency: "sos", Amount: testutil.Dec("6000"), PNO: "R-010",
	})
	require.NoError(t, err)
	assert.Equal(t, currency.SOS, res.Payment.Currency)
	testutil.AssertDec(t, "10000", testutil.Reload[models.Customer](t, db, c.ID).TotalDebtSOS)
	testutil.AssertDec(t, "10000", testutil.Reload[models.Sale](t, db, s.ID).DebtAmount)
}
