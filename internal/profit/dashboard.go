package profit

import (
	"context"
	"slices"
	"time"

	"go-pos-ledger/internal/currency"
	"go-pos-ledger/internal/database"
	"go-pos-ledger/internal/models"

	"github.com/shopspring/decimal"
)

const (
	topListSize   = 5
	topSellerDays = 7
)

type TopProduct struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `gorm:"column:sold_qty" json:"quantity"`
}

type Debtor struct {
	models.Customer
	DebtETB decimal.Decimal `json:"debt_etb"`
}

type Dashboard struct {
	Date               time.Time                         `json:"date"`
	TodayRevenueETB    decimal.Decimal                   `json:"today_revenue_etb"`
	TodayCollectedETB  decimal.Decimal                   `json:"today_collected_etb"`
	CollectionRate     decimal.Decimal                   `json:"collection_rate"`
	TodayByCurrency    []database.SalesTotals            `json:"today_by_currency"`
	OutstandingDebt    map[currency.Code]decimal.Decimal `json:"outstanding_debt"`
	OutstandingDebtETB decimal.Decimal                   `json:"outstanding_debt_etb"`
	TopDebtors         []Debtor                          `json:"top_debtors"`
	TopSelling         []TopProduct                      `json:"top_selling"`
	LowStockCount      int64                             `json:"low_stock_count"`
	OutOfStockCount    int64                             `json:"out_of_stock_count"`
	LowStock           []models.Product                  `json:"low_stock"`
	// Profit is only filled for admins.
	Profit *Reconciliation `json:"profit,omitempty"`
}

// Dashboard gathers the day's headline figures as of now. lowStockLimit
// caps the low-stock product list.
func (r *Reconciler) Dashboard(ctx context.Context, now time.Time, withProfit bool, lowStockLimit int) (*Dashboard, error) {
	if lowStockLimit <= 0 {
		lowStockLimit = topListSize
	}
	live, err := r.rates.Rates(ctx)
	if err != nil {
		return nil, err
	}
	db := r.db.WithContext(ctx)
	today := Day(now)
	d := &Dashboard{Date: today.From}

	sales, err := r.loadSales(ctx, today)
	if err != nil {
		return nil, err
	}
	rec := Summarize(today, live, sales)
	d.TodayRevenueETB = rec.SalesRevenueETB
	d.TodayCollectedETB = rec.CashCollectedETB
	d.CollectionRate = rec.CollectionRate
	if withProfit {
		d.Profit = rec
	}

	if d.TodayByCurrency, err = database.GetSalesTotals(db, today.From, today.To); err != nil {
		return nil, err
	}

	if d.OutstandingDebt, err = database.OutstandingDebt(db); err != nil {
		return nil, err
	}
	total := decimal.Zero
	for code, amount := range d.OutstandingDebt {
		total = total.Add(live.ToETB(amount, code))
	}
	d.OutstandingDebtETB = currency.Round(total)

	var debtors []models.Customer
	if err := db.Where("total_debt_usd > 0 OR total_debt_sos > 0 OR total_debt_etb > 0").Find(&debtors).Error; err != nil {
		return nil, err
	}
	for _, c := range debtors {
		etb := decimal.Zero
		for _, code := range currency.Codes {
			etb = etb.Add(live.ToETB(c.DebtIn(code), code))
		}
		d.TopDebtors = append(d.TopDebtors, Debtor{Customer: c, DebtETB: currency.Round(etb)})
	}
	slices.SortFunc(d.TopDebtors, func(a, b Debtor) int { return b.DebtETB.Cmp(a.DebtETB) })
	if len(d.TopDebtors) > topListSize {
		d.TopDebtors = d.TopDebtors[:topListSize]
	}

	err = db.Table("sale_items").
		Select("sale_items.product_id, products.name, SUM(sale_items.quantity) AS sold_qty").
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Joins("JOIN products ON products.id = sale_items.product_id").
		Where("sales.created_at >= ?", today.To.AddDate(0, 0, -topSellerDays)).
		Group("sale_items.product_id, products.name").
		Order("sold_qty DESC").
		Limit(topListSize).
		Scan(&d.TopSelling).Error
	if err != nil {
		return nil, err
	}

	if err := db.Model(&models.Product{}).
		Where("current_stock <= low_stock_threshold AND current_stock > 0").
		Count(&d.LowStockCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Product{}).Where("current_stock <= 0").Count(&d.OutOfStockCount).Error; err != nil {
		return nil, err
	}
	if err := db.Where("current_stock <= low_stock_threshold").
		Order("current_stock ASC").Limit(lowStockLimit).
		Find(&d.LowStock).Error; err != nil {
		return nil, err
	}
	return d, nil
}
