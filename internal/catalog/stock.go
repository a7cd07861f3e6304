package catalog

import (
	"errors"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/currency"
	"go-pos-ledger/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LockProduct reads a product row for update inside tx.
func LockProduct(tx *gorm.DB, id uint) (*models.Product, error) {
	var p models.Product
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(apperr.ErrProductNotFound, "product %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DecrementStock subtracts qty from the product only if enough stock
// remains, in a single conditional UPDATE. Zero affected rows means a
// concurrent sale got there first. Returns stock before and after.
func DecrementStock(tx *gorm.DB, productID uint, qty decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	res := tx.Model(&models.Product{}).
		Where("id = ? AND current_stock >= ?", productID, qty).
		Update("current_stock", gorm.Expr("current_stock - ?", qty))
	if res.Error != nil {
		return decimal.Zero, decimal.Zero, res.Error
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, decimal.Zero, apperr.Wrap(apperr.ErrOutOfStock, "product %d, requested %s", productID, qty.String())
	}

	var after models.Product
	if err := tx.Select("current_stock").First(&after, productID).Error; err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	next := currency.Round(after.CurrentStock)
	return currency.Round(next.Add(qty)), next, nil
}

// LogStock appends an inventory movement. It is part of the caller's
// atomic unit: a failure here fails the operation.
func LogStock(tx *gorm.DB, entry *models.InventoryLog) error {
	return tx.Create(entry).Error
}
