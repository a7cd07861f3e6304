package database

import (
	"time"

	"go-pos-ledger/internal/currency"
	"go-pos-ledger/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SalesTotals is one currency's slice of sales within a window.
type SalesTotals struct {
	Currency    currency.Code   `json:"currency"`
	SaleCount   int64           `json:"sale_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	AmountPaid  decimal.Decimal `json:"amount_paid"`
	DebtAmount  decimal.Decimal `json:"debt_amount"`
}

// GetSalesTotals sums sales in [start, end) per currency. Every supported
// currency is present in the result, zeroed when it had no sales.
func GetSalesTotals(db *gorm.DB, start, end time.Time) ([]SalesTotals, error) {
	var rows []SalesTotals

	// COALESCE ensures we get 0 instead of NULL if no sales exist
	err := db.Model(&models.Sale{}).
		Select("currency, COUNT(*) AS sale_count, " +
			"COALESCE(SUM(total_amount), 0) AS total_amount, " +
			"COALESCE(SUM(amount_paid), 0) AS amount_paid, " +
			"COALESCE(SUM(debt_amount), 0) AS debt_amount").
		Where("created_at >= ? AND created_at < ?", start, end).
		Group("currency").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byCode := make(map[currency.Code]SalesTotals, len(rows))
	for _, r := range rows {
		byCode[r.Currency] = r
	}
	out := make([]SalesTotals, 0, len(currency.Codes))
	for _, code := range currency.Codes {
		t, ok := byCode[code]
		if !ok {
			t = SalesTotals{Currency: code}
		}
		t.TotalAmount = currency.Round(t.TotalAmount)
		t.AmountPaid = currency.Round(t.AmountPaid)
		t.DebtAmount = currency.Round(t.DebtAmount)
		out = append(out, t)
	}
	return out, nil
}

// OutstandingDebt sums every customer balance per currency.
func OutstandingDebt(db *gorm.DB) (map[currency.Code]decimal.Decimal, error) {
	var row struct {
		USD decimal.Decimal
		SOS decimal.Decimal
		ETB decimal.Decimal
	}
	err := db.Model(&models.Customer{}).
		Select("COALESCE(SUM(total_debt_usd), 0) AS usd, " +
			"COALESCE(SUM(total_debt_sos), 0) AS sos, " +
			"COALESCE(SUM(total_debt_etb), 0) AS etb").
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	return map[currency.Code]decimal.Decimal{
		currency.USD: currency.Round(row.USD),
		currency.SOS: currency.Round(row.SOS),
		currency.ETB: currency.Round(row.ETB),
	}, nil
}
