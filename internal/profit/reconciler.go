package profit

import (
	"context"
	"time"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/catalog"
	"go-pos-ledger/internal/currency"
	"go-pos-ledger/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// Window is a half-open reporting range [From, To).
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Day returns the calendar day containing t, in t's location.
func Day(t time.Time) Window {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return Window{From: start, To: start.AddDate(0, 0, 1)}
}

// SaleFigures is the profit picture of one sale, native and in ETB.
type SaleFigures struct {
	SaleID      uint            `json:"sale_id"`
	Currency    currency.Code   `json:"currency"`
	Expected    decimal.Decimal `json:"expected"`
	Actual      decimal.Decimal `json:"actual"`
	Overpayment decimal.Decimal `json:"overpayment"`

	RevenueETB     decimal.Decimal `json:"revenue_etb"`
	CollectedETB   decimal.Decimal `json:"collected_etb"`
	ExpectedETB    decimal.Decimal `json:"expected_etb"`
	ActualETB      decimal.Decimal `json:"actual_etb"`
	OverpaymentETB decimal.Decimal `json:"overpayment_etb"`
}

// CurrencySummary totals one currency's sales in their own currency.
type CurrencySummary struct {
	Currency    currency.Code   `json:"currency"`
	SaleCount   int             `json:"sale_count"`
	Revenue     decimal.Decimal `json:"revenue"`
	Collected   decimal.Decimal `json:"collected"`
	Expected    decimal.Decimal `json:"expected"`
	Actual      decimal.Decimal `json:"actual"`
	Overpayment decimal.Decimal `json:"overpayment"`
}

type Reconciliation struct {
	Window            Window             `json:"window"`
	Rates             currency.RateTable `json:"rates"`
	SaleCount         int                `json:"sale_count"`
	SalesRevenueETB   decimal.Decimal    `json:"sales_revenue_etb"`
	CashCollectedETB  decimal.Decimal    `json:"cash_collected_etb"`
	CollectionRate    decimal.Decimal    `json:"collection_rate"` // percent
	ExpectedProfitETB decimal.Decimal    `json:"expected_profit_etb"`
	ActualProfitETB   decimal.Decimal    `json:"actual_profit_etb"`
	ProfitVarianceETB decimal.Decimal    `json:"profit_variance_etb"`
	BonusProfitETB    decimal.Decimal    `json:"bonus_profit_etb"`
	OverpaymentCount  int                `json:"overpayment_count"`
	ByCurrency        []CurrencySummary  `json:"by_currency"`
}

type Reconciler struct {
	db    *gorm.DB
	rates catalog.RateSource
}

func NewReconciler(db *gorm.DB, rates catalog.RateSource) *Reconciler {
	return &Reconciler{db: db, rates: rates}
}

// SaleProfit computes expected profit (full payment), actual profit
// (scaled by the paid fraction, capped at 1) and overpayment for a sale.
// Items must have their Product loaded.
func SaleProfit(sale *models.Sale, live currency.RateTable) SaleFigures {
	sp := SaleFigures{SaleID: sale.ID, Currency: sale.Currency, Overpayment: sale.Overpayment()}

	expected := decimal.Zero
	for _, ip := range AllocateOverpayment(sale, live) {
		expected = expected.Add(ip.Profit)
	}
	sp.Expected = currency.Round(expected)

	if sale.TotalAmount.IsPositive() {
		fraction := decimal.Min(decimal.NewFromInt(1), sale.AmountPaid.Div(sale.TotalAmount))
		sp.Actual = currency.Round(sp.Expected.Mul(fraction))
	}

	sp.RevenueETB = reportETB(sale, live, sale.TotalAmount)
	sp.CollectedETB = reportETB(sale, live, sale.AmountPaid)
	sp.ExpectedETB = reportETB(sale, live, sp.Expected)
	sp.ActualETB = reportETB(sale, live, sp.Actual)
	sp.OverpaymentETB = reportETB(sale, live, sp.Overpayment)
	return sp
}

// reportETB converts an amount in the sale's currency into ETB at the
// live rate. ETB sales go through USD at their own snapshot first, so a
// later rate change revalues them like every other sale.
func reportETB(sale *models.Sale, live currency.RateTable, amount decimal.Decimal) decimal.Decimal {
	if sale.Currency == currency.ETB {
		usd := sale.Rates(live).ToUSD(amount, currency.ETB)
		return currency.Round(live.ToETB(usd, currency.USD))
	}
	return currency.Round(live.ToETB(amount, sale.Currency))
}

// Summarize folds per-sale figures into a reconciliation.
func Summarize(w Window, live currency.RateTable, sales []models.Sale) *Reconciliation {
	rec := &Reconciliation{Window: w, Rates: live, SaleCount: len(sales)}
	byCode := make(map[currency.Code]*CurrencySummary, len(currency.Codes))
	for _, code := range currency.Codes {
		byCode[code] = &CurrencySummary{Currency: code}
	}

	for i := range sales {
		sp := SaleProfit(&sales[i], live)

		rec.SalesRevenueETB = rec.SalesRevenueETB.Add(sp.RevenueETB)
		rec.CashCollectedETB = rec.CashCollectedETB.Add(sp.CollectedETB)
		rec.ExpectedProfitETB = rec.ExpectedProfitETB.Add(sp.ExpectedETB)
		rec.ActualProfitETB = rec.ActualProfitETB.Add(sp.ActualETB)
		if sp.Overpayment.IsPositive() {
			rec.BonusProfitETB = rec.BonusProfitETB.Add(sp.OverpaymentETB)
			rec.OverpaymentCount++
		}

		cs, ok := byCode[sp.Currency]
		if !ok {
			continue
		}
		cs.SaleCount++
		cs.Revenue = cs.Revenue.Add(sales[i].TotalAmount)
		cs.Collected = cs.Collected.Add(sales[i].AmountPaid)
		cs.Expected = cs.Expected.Add(sp.Expected)
		cs.Actual = cs.Actual.Add(sp.Actual)
		cs.Overpayment = cs.Overpayment.Add(sp.Overpayment)
	}

	rec.SalesRevenueETB = currency.Round(rec.SalesRevenueETB)
	rec.CashCollectedETB = currency.Round(rec.CashCollectedETB)
	rec.ExpectedProfitETB = currency.Round(rec.ExpectedProfitETB)
	rec.ActualProfitETB = currency.Round(rec.ActualProfitETB)
	rec.BonusProfitETB = currency.Round(rec.BonusProfitETB)
	rec.ProfitVarianceETB = currency.Round(rec.ExpectedProfitETB.Sub(rec.ActualProfitETB))
	if rec.SalesRevenueETB.IsPositive() {
		rec.CollectionRate = currency.Round(rec.CashCollectedETB.Div(rec.SalesRevenueETB).Mul(hundred))
	}
	for _, code := range currency.Codes {
		cs := byCode[code]
		cs.Revenue = currency.Round(cs.Revenue)
		cs.Collected = currency.Round(cs.Collected)
		cs.Expected = currency.Round(cs.Expected)
		cs.Actual = currency.Round(cs.Actual)
		cs.Overpayment = currency.Round(cs.Overpayment)
		rec.ByCurrency = append(rec.ByCurrency, *cs)
	}
	return rec
}

func (r *Reconciler) loadSales(ctx context.Context, w Window) ([]models.Sale, error) {
	var sales []models.Sale
	err := r.db.WithContext(ctx).
		Preload("Items.Product").
		Where("created_at >= ? AND created_at < ?", w.From, w.To).
		Order("created_at, id").
		Find(&sales).Error
	return sales, err
}

// Reconcile reports expected vs actual profit for every sale in w.
func (r *Reconciler) Reconcile(ctx context.Context, w Window) (*Reconciliation, error) {
	if !w.To.After(w.From) {
		return nil, apperr.Invalid("empty window %s - %s", w.From.Format(time.RFC3339), w.To.Format(time.RFC3339))
	}
	live, err := r.rates.Rates(ctx)
	if err != nil {
		return nil, err
	}
	sales, err := r.loadSales(ctx, w)
	if err != nil {
		return nil, err
	}
	return Summarize(w, live, sales), nil
}
