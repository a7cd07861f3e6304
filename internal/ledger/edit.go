package ledger

import (
	"context"
	"errors"
	"fmt"

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

func lockSale(tx *gorm.DB, code currency.Code, id uint) (*models.Sale, error) {
	var sale models.Sale
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("currency = ?", code).
		First(&sale, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(apperr.ErrNotFound, "%s sale %d", code, id)
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// AddSaleItem adds quantity of a product to an existing sale. A product
// already on the sale grows its line at the line's unit price; otherwise a
// new line is priced at the converted selling price. The change in the
// sale's debt is carried to its customer.
func (l *Ledger) AddSaleItem(ctx context.Context, code currency.Code, saleID, productID uint, quantity decimal.Decimal) (*models.SaleItem, error) {
	if !code.Valid() {
		return nil, apperr.Invalid("unsupported currency %q", code)
	}
	qty := currency.Round(quantity)
	if !qty.IsPositive() {
		return nil, apperr.Wrap(apperr.ErrInvalidQuantity, "product %d", productID)
	}
	rates, err := l.rates.Rates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rates: %w", err)
	}
	actor := audit.ActorFrom(ctx)

	var item *models.SaleItem
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sale, err := lockSale(tx, code, saleID)
		if err != nil {
			return err
		}
		product, err := catalog.LockProduct(tx, productID)
		if err != nil {
			return err
		}
		if qty.GreaterThan(product.CurrentStock) {
			return apperr.Wrap(apperr.ErrOutOfStock, "%s: requested %s, available %s",
				product.Name, qty.String(), product.CurrentStock.String())
		}

		idx := -1
		for i := range sale.Items {
			if sale.Items[i].ProductID == productID {
				idx = i
				break
			}
		}
		if idx >= 0 {
			sale.Items[idx].Quantity = currency.Round(sale.Items[idx].Quantity.Add(qty))
			sale.Items[idx].Recalculate()
			if err := tx.Omit(clause.Associations).Save(&sale.Items[idx]).Error; err != nil {
				return err
			}
		} else {
			saleRates := sale.Rates(rates)
			unit := currency.Round(saleRates.FromUSD(product.SellingPrice, code))
			if err := checkFloor(product, unit, saleRates, code); err != nil {
				return err
			}
			line := models.SaleItem{SaleID: sale.ID, ProductID: productID, Quantity: qty, UnitPrice: unit}
			line.Recalculate()
			if err := tx.Omit(clause.Associations).Create(&line).Error; err != nil {
				return err
			}
			sale.Items = append(sale.Items, line)
			idx = len(sale.Items) - 1
		}

		if err := moveStock(tx, productID, qty, models.StockSaleItemAdded, sale, actor); err != nil {
			return err
		}

		oldDebt := sale.DebtAmount
		sale.TotalAmount = sale.ItemsTotal()
		if err := tx.Omit(clause.Associations).Save(sale).Error; err != nil {
			return err
		}
		if delta := sale.DebtAmount.Sub(oldDebt); !delta.IsZero() && sale.CustomerID != nil {
			c, err := customer.Lock(tx, *sale.CustomerID)
			if err != nil {
				return err
			}
			if _, _, err := customer.AdjustDebt(tx, c, code, delta); err != nil {
				return err
			}
		}

		l.trail.Record(ctx, tx, audit.Entry{
			Action:     models.AuditSaleItemAdded,
			ObjectType: "Sale",
			ObjectID:   sale.ID,
			Details: map[string]string{
				"product":   product.Name,
				"quantity":  qty.String(),
				"new_total": sale.TotalAmount.StringFixed(2),
				"old_debt":  oldDebt.StringFixed(2),
				"new_debt":  sale.DebtAmount.StringFixed(2),
			},
		})

		it := sale.Items[idx]
		it.Product = *product
		item = &it
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// EditSale changes a sale's paid amount and/or owner and moves the debt
// between customer balances to match. A sale that no longer carries debt
// is detached from its customer.
func (l *Ledger) EditSale(ctx context.Context, code currency.Code, saleID uint, in EditSaleInput) (*models.Sale, error) {
	if !code.Valid() {
		return nil, apperr.Invalid("unsupported currency %q", code)
	}
	if in.AmountPaid != nil && in.AmountPaid.IsNegative() {
		return nil, apperr.Invalid("amount paid must not be negative")
	}

	var sale *models.Sale
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if sale, err = lockSale(tx, code, saleID); err != nil {
			return err
		}
		oldDebt := sale.DebtAmount
		oldPaid := sale.AmountPaid
		oldOwner := sale.CustomerID

		sale.TotalAmount = sale.ItemsTotal()
		if in.AmountPaid != nil {
			sale.AmountPaid = currency.Round(*in.AmountPaid)
		}
		newDebt := currency.DebtFor(sale.TotalAmount, sale.AmountPaid)

		owner := oldOwner
		if in.CustomerID != nil {
			owner = in.CustomerID
		}
		if newDebt.IsZero() {
			owner = nil
		} else if owner == nil {
			return apperr.ErrCustomerRequired
		}

		if err := moveDebt(tx, code, oldOwner, oldDebt, owner, newDebt); err != nil {
			return err
		}

		sale.CustomerID = owner
		sale.Customer = nil
		if err := tx.Omit(clause.Associations).Save(sale).Error; err != nil {
			return err
		}

		details := map[string]any{
			"old_paid": oldPaid.StringFixed(2),
			"new_paid": sale.AmountPaid.StringFixed(2),
			"old_debt": oldDebt.StringFixed(2),
			"new_debt": sale.DebtAmount.StringFixed(2),
		}
		if oldOwner != nil {
			details["old_customer_id"] = *oldOwner
		}
		if owner != nil {
			details["new_customer_id"] = *owner
		}
		l.trail.Record(ctx, tx, audit.Entry{
			Action:     models.AuditSaleEdited,
			ObjectType: "Sale",
			ObjectID:   sale.ID,
			Details:    details,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

// moveDebt reconciles customer balances after a sale's debt or owner
// changed. Same owner: only the delta moves. New owner: the old one is
// relieved of the old debt and the new one takes the new debt.
func moveDebt(tx *gorm.DB, code currency.Code, oldOwner *uint, oldDebt decimal.Decimal, newOwner *uint, newDebt decimal.Decimal) error {
	if oldOwner != nil && newOwner != nil && *oldOwner == *newOwner {
		delta := newDebt.Sub(oldDebt)
		if delta.IsZero() {
			return nil
		}
		c, err := customer.Lock(tx, *oldOwner)
		if err != nil {
			return err
		}
		_, _, err = customer.AdjustDebt(tx, c, code, delta)
		return err
	}

	if oldOwner != nil && oldDebt.IsPositive() {
		c, err := customer.Lock(tx, *oldOwner)
		if err != nil {
			return err
		}
		if _, _, err := customer.AdjustDebt(tx, c, code, oldDebt.Neg()); err != nil {
			return err
		}
	}
	if newOwner != nil && newDebt.IsPositive() {
		c, err := customer.Lock(tx, *newOwner)
		if err != nil {
			return err
		}
		if _, _, err := customer.AdjustDebt(tx, c, code, newDebt); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) GetSale(ctx context.Context, code currency.Code, id uint) (*models.Sale, error) {
	var sale models.Sale
	err := l.db.WithContext(ctx).
		Preload("Items.Product").
		Preload("Customer").
		Where("currency = ?", code).
		First(&sale, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(apperr.ErrNotFound, "%s sale %d", code, id)
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// ListSales returns sales newest first. Zero filter fields match all.
func (l *Ledger) ListSales(ctx context.Context, f ListFilter) ([]models.Sale, error) {
	q := l.db.WithContext(ctx).Model(&models.Sale{}).Preload("Customer")
	if f.Currency != "" {
		q = q.Where("currency = ?", f.Currency)
	}
	if f.CustomerID != nil {
		q = q.Where("customer_id = ?", *f.CustomerID)
	}
	if !f.From.IsZero() {
		q = q.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		q = q.Where("created_at < ?", f.To)
	}
	if f.DebtOnly {
		q = q.Where("debt_amount > 0")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	var out []models.Sale
	if err := q.Order("created_at DESC, id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
