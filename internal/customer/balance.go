package customer

import (
	"errors"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/currency"
	"go-pos-ledger/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Lock reads a customer row for update inside tx.
func Lock(tx *gorm.DB, id uint) (*models.Customer, error) {
	var c models.Customer
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&c, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(apperr.ErrNotFound, "customer %d", id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// AdjustDebt adds delta (possibly negative) to c's balance in code.
// The result is clamped at zero. Returns the balance before and after.
func AdjustDebt(tx *gorm.DB, c *models.Customer, code currency.Code, delta decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	old := c.DebtIn(code)
	next := currency.Round(old.Add(delta))
	if next.IsNegative() {
		next = decimal.Zero
	}
	if err := SetDebt(tx, c, code, next); err != nil {
		return old, old, err
	}
	return old, next, nil
}

// SetDebt overwrites c's balance in code.
func SetDebt(tx *gorm.DB, c *models.Customer, code currency.Code, amount decimal.Decimal) error {
	amount = currency.Round(amount)
	if err := tx.Model(c).Update(models.DebtColumn(code), amount).Error; err != nil {
		return err
	}
	c.SetDebt(code, amount)
	return nil
}
