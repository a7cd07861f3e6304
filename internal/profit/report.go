package profit

import (
	"context"
	"time"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/currency"
	"go-pos-ledger/internal/models"

	"github.com/shopspring/decimal"
)

// ReportFilter narrows the transaction report. Zero fields match all.
type ReportFilter struct {
	From      time.Time     `json:"from"`
	To        time.Time     `json:"to"`
	ProductID *uint         `json:"product_id,omitempty"`
	Currency  currency.Code `json:"currency,omitempty"`
}

type ReportRow struct {
	ItemProfit
	TransactionID string    `json:"transaction_id"`
	Date          time.Time `json:"date"`
	CustomerName  string    `json:"customer_name"`
}

type ReportTotals struct {
	Currency    currency.Code   `json:"currency"`
	Lines       int             `json:"lines"`
	Revenue     decimal.Decimal `json:"revenue"`
	Profit      decimal.Decimal `json:"profit"`
	Surplus     decimal.Decimal `json:"surplus"`
	Allocated   decimal.Decimal `json:"allocated_overpayment"`
	FinalProfit decimal.Decimal `json:"final_profit"`
}

type TransactionReport struct {
	Filter      ReportFilter   `json:"filter"`
	GeneratedAt time.Time      `json:"generated_at"`
	Rows        []ReportRow    `json:"rows"`
	Totals      []ReportTotals `json:"totals"`
}

// TransactionReport lists every sold line with its profit breakdown.
// Overpayment is spread over the whole sale before the product filter
// is applied, so a filtered row keeps its true share.
func (r *Reconciler) TransactionReport(ctx context.Context, f ReportFilter) (*TransactionReport, error) {
	if f.Currency != "" && !f.Currency.Valid() {
		return nil, apperr.Invalid("unsupported currency %q", f.Currency)
	}
	live, err := r.rates.Rates(ctx)
	if err != nil {
		return nil, err
	}

	q := r.db.WithContext(ctx).Preload("Items.Product").Preload("Customer")
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("created_at < ?", f.To)
	}
	if f.Currency != "" {
		q = q.Where("currency = ?", f.Currency)
	}
	if f.ProductID != nil {
		q = q.Where("id IN (?)", r.db.Model(&models.SaleItem{}).Select("sale_id").Where("product_id = ?", *f.ProductID))
	}
	var sales []models.Sale
	if err := q.Order("created_at DESC, id DESC").Find(&sales).Error; err != nil {
		return nil, err
	}

	rep := &TransactionReport{Filter: f, GeneratedAt: time.Now()}
	totals := make(map[currency.Code]*ReportTotals, len(currency.Codes))
	for _, code := range currency.Codes {
		totals[code] = &ReportTotals{Currency: code}
	}

	for i := range sales {
		sale := &sales[i]
		name := ""
		if sale.Customer != nil {
			name = sale.Customer.Name
		}
		for _, ip := range AllocateOverpayment(sale, live) {
			if f.ProductID != nil && ip.ProductID != *f.ProductID {
				continue
			}
			rep.Rows = append(rep.Rows, ReportRow{
				ItemProfit:    ip,
				TransactionID: sale.TransactionID,
				Date:          sale.CreatedAt,
				CustomerName:  name,
			})
			t := totals[sale.Currency]
			if t == nil {
				continue
			}
			t.Lines++
			t.Revenue = t.Revenue.Add(ip.TotalPrice)
			t.Profit = t.Profit.Add(ip.Profit)
			t.Surplus = t.Surplus.Add(ip.Surplus)
			t.Allocated = t.Allocated.Add(ip.AllocatedOverpayment)
			t.FinalProfit = t.FinalProfit.Add(ip.FinalProfit)
		}
	}

	for _, code := range currency.Codes {
		t := totals[code]
		t.Revenue = currency.Round(t.Revenue)
		t.Profit = currency.Round(t.Profit)
		t.Surplus = currency.Round(t.Surplus)
		t.Allocated = currency.Round(t.Allocated)
		t.FinalProfit = currency.Round(t.FinalProfit)
		rep.Totals = append(rep.Totals, *t)
	}
	return rep, nil
}
