// Package ledger creates and edits sales in any of the three currencies.
// Every mutation runs in one transaction: a sale is committed with all of
// its lines, its stock movements and its customer debt, or not at all.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/audit"
	"go-pos-ledger/internal/catalog"
	"go-pos-ledger/internal/currency"
	"go-pos-ledger/internal/customer"
	"go-pos-ledger/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Ledger struct {
	db    *gorm.DB
	rates catalog.RateSource
	trail *audit.Trail
}

func New(db *gorm.DB, rates catalog.RateSource, trail *audit.Trail) *Ledger {
	return &Ledger{db: db, rates: rates, trail: trail}
}

// LineInput is one requested line. A nil UnitPrice sells at the
// product's selling price converted into the sale currency.
type LineInput struct {
	ProductID uint             `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

type CreateSaleInput struct {
	Currency   currency.Code   `json:"currency" validate:"required"`
	CustomerID *uint           `json:"customer_id"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	PNO        string          `json:"pno" validate:"max=50"`
	Items      []LineInput     `json:"items" validate:"required,min=1,dive"`
}

// EditSaleInput changes the paid amount and/or the owning customer.
// Nil fields keep their current value.
type EditSaleInput struct {
	AmountPaid *decimal.Decimal `json:"amount_paid"`
	CustomerID *uint            `json:"customer_id"`
}

type ListFilter struct {
	Currency   currency.Code
	CustomerID *uint
	From       time.Time
	To         time.Time
	DebtOnly   bool
	Limit      int
}

// CreateSale commits a sale with all of its lines, or nothing.
func (l *Ledger) CreateSale(ctx context.Context, in CreateSaleInput) (*models.Sale, error) {
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}
	code, err := currency.ParseCode(string(in.Currency))
	if err != nil {
		return nil, err
	}
	in.Currency = code
	paid := currency.Round(in.AmountPaid)
	if paid.IsNegative() {
		return nil, apperr.Invalid("amount paid must not be negative")
	}
	rates, err := l.rates.Rates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rates: %w", err)
	}
	actor := audit.ActorFrom(ctx)

	sale := &models.Sale{
		Currency:   in.Currency,
		CustomerID: in.CustomerID,
		UserID:     actor.UserPtr(),
		PNO:        optional(in.PNO),
		AmountPaid: paid,
	}
	if in.Currency == currency.ETB {
		snapshot := rates.USDToETB
		sale.ExchangeRateAtSale = &snapshot
	}
	saleRates := sale.Rates(rates)

	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var buyer *models.Customer
		if in.CustomerID != nil {
			c, err := customer.Lock(tx, *in.CustomerID)
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.Invalid("customer %d does not exist", *in.CustomerID)
			}
			if err != nil {
				return err
			}
			buyer = c
		}

		if err := tx.Omit(clause.Associations).Create(sale).Error; err != nil {
			return err
		}

		for _, line := range in.Items {
			item, err := l.addLine(tx, sale, saleRates, line, actor)
			if err != nil {
				return err
			}
			sale.Items = append(sale.Items, *item)
		}

		sale.TotalAmount = sale.ItemsTotal()
		if err := tx.Omit(clause.Associations).Save(sale).Error; err != nil {
			return err
		}

		if sale.DebtAmount.IsPositive() && buyer != nil {
			old, next, err := customer.AdjustDebt(tx, buyer, sale.Currency, sale.DebtAmount)
			if err != nil {
				return err
			}
			l.trail.Record(ctx, tx, audit.Entry{
				Action:     models.AuditDebtAdded,
				ObjectType: "Customer",
				ObjectID:   buyer.ID,
				Details: map[string]string{
					"currency": string(sale.Currency),
					"amount":   sale.DebtAmount.StringFixed(2),
					"old_debt": old.StringFixed(2),
					"new_debt": next.StringFixed(2),
					"sale":     sale.TransactionID,
				},
			})
		}

		if err := checkSale(sale); err != nil {
			return err
		}

		l.trail.Record(ctx, tx, audit.Entry{
			Action:     models.AuditSaleCreated,
			ObjectType: "Sale",
			ObjectID:   sale.ID,
			Details:    saleDetails(sale),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// addLine validates and persists one line of a new sale, then moves stock.
func (l *Ledger) addLine(tx *gorm.DB, sale *models.Sale, rates currency.RateTable, line LineInput, actor audit.Actor) (*models.SaleItem, error) {
	qty := currency.Round(line.Quantity)
	if !qty.IsPositive() {
		return nil, apperr.Wrap(apperr.ErrInvalidQuantity, "product %d", line.ProductID)
	}
	product, err := catalog.LockProduct(tx, line.ProductID)
	if err != nil {
		return nil, err
	}
	if qty.GreaterThan(product.CurrentStock) {
		return nil, apperr.Wrap(apperr.ErrOutOfStock, "%s: requested %s, available %s",
			product.Name, qty.String(), product.CurrentStock.String())
	}

	var unit decimal.Decimal
	if line.UnitPrice != nil {
		unit = currency.Round(*line.UnitPrice)
	} else {
		unit = currency.Round(rates.FromUSD(product.SellingPrice, sale.Currency))
	}
	if err := checkFloor(product, unit, rates, sale.Currency); err != nil {
		return nil, err
	}

	item := &models.SaleItem{
		SaleID:    sale.ID,
		ProductID: product.ID,
		Quantity:  qty,
		UnitPrice: unit,
	}
	item.Recalculate()
	if err := tx.Omit(clause.Associations).Create(item).Error; err != nil {
		return nil, err
	}

	if err := moveStock(tx, product.ID, qty, models.StockSale, sale, actor); err != nil {
		return nil, err
	}
	item.Product = *product
	return item, nil
}

// checkFloor rejects a unit price under the product's purchase price
// converted into the sale currency.
func checkFloor(p *models.Product, unit decimal.Decimal, rates currency.RateTable, code currency.Code) error {
	if unit.IsNegative() {
		return apperr.Invalid("unit price for %s must not be negative", p.Name)
	}
	cost := currency.Round(rates.FromUSD(p.PurchasePrice, code))
	if unit.LessThan(cost) {
		return apperr.Wrap(apperr.ErrBelowCost, "%s: %s %s is below cost %s",
			p.Name, unit.StringFixed(2), code, cost.StringFixed(2))
	}
	return nil
}

func moveStock(tx *gorm.DB, productID uint, qty decimal.Decimal, action string, sale *models.Sale, actor audit.Actor) error {
	old, next, err := catalog.DecrementStock(tx, productID, qty)
	if err != nil {
		return err
	}
	saleID := sale.ID
	return catalog.LogStock(tx, &models.InventoryLog{
		ProductID:      productID,
		Action:         action,
		QuantityChange: qty.Neg(),
		OldQuantity:    old,
		NewQuantity:    next,
		SaleID:         &saleID,
		UserID:         actor.UserPtr(),
		Notes:          fmt.Sprintf("%s sale %s", sale.Currency, sale.TransactionID),
	})
}

// checkSale is the final consistency pass before commit.
func checkSale(s *models.Sale) error {
	if len(s.Items) == 0 {
		return apperr.Invalid("a sale needs at least one item")
	}
	if !s.TotalAmount.Equal(s.ItemsTotal()) {
		return apperr.Invalid("total %s does not match items %s", s.TotalAmount, s.ItemsTotal())
	}
	for _, v := range []decimal.Decimal{s.TotalAmount, s.AmountPaid, s.DebtAmount} {
		if v.IsNegative() {
			return apperr.Invalid("sale amounts must not be negative")
		}
	}
	if !s.DebtAmount.Equal(currency.DebtFor(s.TotalAmount, s.AmountPaid)) {
		return apperr.Invalid("debt %s does not match total and paid amount", s.DebtAmount)
	}
	if s.Currency == currency.ETB && (s.ExchangeRateAtSale == nil || !s.ExchangeRateAtSale.IsPositive()) {
		return apperr.Invalid("ETB sale is missing its exchange rate")
	}
	return nil
}

func saleDetails(s *models.Sale) map[string]any {
	d := map[string]any{
		"transaction_id": s.TransactionID,
		"currency":       s.Currency,
		"total":          s.TotalAmount.StringFixed(2),
		"paid":           s.AmountPaid.StringFixed(2),
		"debt":           s.DebtAmount.StringFixed(2),
		"items":          len(s.Items),
	}
	if s.CustomerID != nil {
		d["customer_id"] = *s.CustomerID
	}
	if s.ExchangeRateAtSale != nil {
		d["exchange_rate"] = s.ExchangeRateAtSale.String()
	}
	return d
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
