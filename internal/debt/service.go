// Package debt applies payments, corrections and manual additions to
// customer balances.
package debt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go-pos-ledger/internal/apperr"
	"go-pos-ledger/internal/audit"
	"go-pos-ledger/internal/cache"
	"go-pos-ledger/internal/currency"
	"go-pos-ledger/internal/customer"
	"go-pos-ledger/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db    *gorm.DB
	trail *audit.Trail
	locks *cache.Cache
}

// NewService builds the debt service. locks serializes payments for the
// same customer and currency across instances; a disabled cache relies
// on row locks alone.
func NewService(db *gorm.DB, trail *audit.Trail, locks *cache.Cache) *Service {
	return &Service{db: db, trail: trail, locks: locks}
}

type PaymentInput struct {
	CustomerID uint            `json:"customer_id" validate:"required"`
	Currency   currency.Code   `json:"currency" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	PNO        string          `json:"pno" validate:"required,max=50"`
	Notes      string          `json:"notes"`
}

// Allocation is the share of a payment applied to one sale.
type Allocation struct {
	SaleID        uint            `json:"sale_id"`
	TransactionID string          `json:"transaction_id"`
	Applied       decimal.Decimal `json:"applied"`
	RemainingDebt decimal.Decimal `json:"remaining_debt"`
}

type PaymentResult struct {
	Payment     models.DebtPayment `json:"payment"`
	OldDebt     decimal.Decimal    `json:"old_debt"`
	NewDebt     decimal.Decimal    `json:"new_debt"`
	Allocations []Allocation       `json:"allocations"`
	// Unallocated is the part of the payment no outstanding sale absorbed.
	Unallocated decimal.Decimal `json:"unallocated"`
}

type CorrectionInput struct {
	CustomerID uint            `json:"customer_id" validate:"required"`
	Currency   currency.Code   `json:"currency" validate:"required"`
	NewAmount  decimal.Decimal `json:"new_amount"`
	Reason     string          `json:"reason" validate:"required"`
}

type AddDebtInput struct {
	CustomerID uint            `json:"customer_id" validate:"required"`
	Currency   currency.Code   `json:"currency" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	Notes      string          `json:"notes"`
}

// checkCurrency validates code and rewrites it in canonical upper case.
func checkCurrency(code *currency.Code) error {
	c, err := currency.ParseCode(string(*code))
	if err != nil {
		return err
	}
	*code = c
	return nil
}

// RecordPayment reduces a customer's balance and applies the payment to
// their outstanding sales in that currency, oldest first.
func (s *Service) RecordPayment(ctx context.Context, in PaymentInput) (*PaymentResult, error) {
	in.PNO = strings.TrimSpace(in.PNO)
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}
	if err := checkCurrency(&in.Currency); err != nil {
		return nil, err
	}
	amount := currency.Round(in.Amount)
	if !amount.IsPositive() {
		return nil, apperr.Invalid("payment amount must be greater than zero")
	}

	release, err := s.locks.Lock(ctx, fmt.Sprintf("payment:%d:%s", in.CustomerID, in.Currency))
	if err != nil {
		return nil, err
	}
	defer release()

	var current models.Customer
	err = s.db.WithContext(ctx).First(&current, in.CustomerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Wrap(apperr.ErrNotFound, "customer %d", in.CustomerID)
	}
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(current.DebtIn(in.Currency)) {
		return nil, apperr.Wrap(apperr.ErrExceedsDebt, "paying %s %s against %s",
			amount.StringFixed(2), in.Currency, current.DebtIn(in.Currency).StringFixed(2))
	}

	actor := audit.ActorFrom(ctx)
	res := &PaymentResult{}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := customer.Lock(tx, in.CustomerID)
		if err != nil {
			return err
		}
		// balance may have moved between the check and the lock
		if amount.GreaterThan(c.DebtIn(in.Currency)) {
			return apperr.Wrap(apperr.ErrExceedsDebt, "paying %s %s against %s",
				amount.StringFixed(2), in.Currency, c.DebtIn(in.Currency).StringFixed(2))
		}

		if res.OldDebt, res.NewDebt, err = customer.AdjustDebt(tx, c, in.Currency, amount.Neg()); err != nil {
			return err
		}

		if res.Allocations, res.Unallocated, err = allocateFIFO(tx, c.ID, in.Currency, amount); err != nil {
			return err
		}

		res.Payment = models.DebtPayment{
			CustomerID: c.ID,
			Currency:   in.Currency,
			Amount:     amount,
			PNO:        in.PNO,
			Notes:      in.Notes,
			UserID:     actor.UserPtr(),
		}
		if err := tx.Create(&res.Payment).Error; err != nil {
			return err
		}

		s.trail.Record(ctx, tx, audit.Entry{
			Action:     models.AuditDebtPaid,
			ObjectType: "Customer",
			ObjectID:   c.ID,
			Details: map[string]any{
				"currency":    in.Currency,
				"amount":      amount.StringFixed(2),
				"pno":         in.PNO,
				"old_debt":    res.OldDebt.StringFixed(2),
				"new_debt":    res.NewDebt.StringFixed(2),
				"sales":       len(res.Allocations),
				"unallocated": res.Unallocated.StringFixed(2),
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// allocateFIFO walks the customer's unpaid sales oldest first, moving the
// payment into amount_paid until it runs out. Returns what was left over.
func allocateFIFO(tx *gorm.DB, customerID uint, code currency.Code, amount decimal.Decimal) ([]Allocation, decimal.Decimal, error) {
	var sales []models.Sale
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ? AND currency = ? AND debt_amount > 0", customerID, code).
		Order("created_at ASC, id ASC").
		Find(&sales).Error
	if err != nil {
		return nil, decimal.Zero, err
	}

	remaining := amount
	var out []Allocation
	for i := range sales {
		if !remaining.IsPositive() {
			break
		}
		sale := &sales[i]
		applied := decimal.Min(remaining, sale.DebtAmount)
		sale.AmountPaid = currency.Round(sale.AmountPaid.Add(applied))
		if err := tx.Omit(clause.Associations).Save(sale).Error; err != nil {
			return nil, decimal.Zero, err
		}
		remaining = currency.Round(remaining.Sub(applied))
		out = append(out, Allocation{
			SaleID:        sale.ID,
			TransactionID: sale.TransactionID,
			Applied:       applied,
			RemainingDebt: sale.DebtAmount,
		})
	}
	return out, remaining, nil
}

// CorrectDebt overrides a balance with an operator-supplied amount and
// keeps a correction record. Sales are not touched.
func (s *Service) CorrectDebt(ctx context.Context, in CorrectionInput) (*models.DebtCorrection, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}
	if err := checkCurrency(&in.Currency); err != nil {
		return nil, err
	}
	target := currency.Round(in.NewAmount)
	if target.IsNegative() {
		return nil, apperr.Invalid("debt amount must not be negative")
	}
	actor := audit.ActorFrom(ctx)

	var rec models.DebtCorrection
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := customer.Lock(tx, in.CustomerID)
		if err != nil {
			return err
		}
		old := c.DebtIn(in.Currency)
		rec = models.DebtCorrection{
			CustomerID:       c.ID,
			Currency:         in.Currency,
			OldDebtAmount:    old,
			NewDebtAmount:    target,
			AdjustmentAmount: currency.Round(target.Sub(old)),
			Reason:           in.Reason,
			UserID:           actor.UserPtr(),
			IPAddress:        actor.IP,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		if err := customer.SetDebt(tx, c, in.Currency, target); err != nil {
			return err
		}

		s.trail.Record(ctx, tx, audit.Entry{
			Action:     models.AuditDebtCorrected,
			ObjectType: "Customer",
			ObjectID:   c.ID,
			Details: map[string]any{
				"currency":   in.Currency,
				"old_debt":   old.StringFixed(2),
				"new_debt":   target.StringFixed(2),
				"adjustment": rec.AdjustmentAmount.StringFixed(2),
				"reason":     in.Reason,
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// AddDebt raises a balance directly, outside any sale.
func (s *Service) AddDebt(ctx context.Context, in AddDebtInput) (*models.Customer, error) {
	if err := apperr.Validate(in); err != nil {
		return nil, err
	}
	if err := checkCurrency(&in.Currency); err != nil {
		return nil, err
	}
	amount := currency.Round(in.Amount)
	if !amount.IsPositive() {
		return nil, apperr.Invalid("debt amount must be greater than zero")
	}

	var c *models.Customer
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if c, err = customer.Lock(tx, in.CustomerID); err != nil {
			return err
		}
		old, next, err := customer.AdjustDebt(tx, c, in.Currency, amount)
		if err != nil {
			return err
		}
		s.trail.Record(ctx, tx, audit.Entry{
			Action:     models.AuditDebtAdded,
			ObjectType: "Customer",
			ObjectID:   c.ID,
			Details: map[string]any{
				"currency": in.Currency,
				"amount":   amount.StringFixed(2),
				"old_debt": old.StringFixed(2),
				"new_debt": next.StringFixed(2),
				"notes":    in.Notes,
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}
