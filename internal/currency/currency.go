package currency

import (
	"strings"

	"go-pos-ledger/internal/apperr"

	"github.com/shopspring/decimal"
)

// Code identifies one of the three currencies the shop trades in.
type Code string

const (
	USD Code = "USD"
	SOS Code = "SOS"
	ETB Code = "ETB"
)

// Codes lists every supported currency in reporting order.
var Codes = []Code{USD, SOS, ETB}

func (c Code) Valid() bool {
	switch c {
	case USD, SOS, ETB:
		return true
	}
	return false
}

func (c Code) String() string {
	return string(c)
}

// ParseCode accepts any casing and surrounding whitespace.
func ParseCode(s string) (Code, error) {
	c := Code(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", apperr.Invalid("unsupported currency %q", s)
	}
	return c, nil
}

// Round rounds a monetary value to 2 decimal places, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// DebtFor returns max(0, total - paid), rounded.
func DebtFor(total, paid decimal.Decimal) decimal.Decimal {
	debt := Round(total.Sub(paid))
	if debt.IsNegative() {
		return decimal.Zero
	}
	return debt
}

// OverpaymentFor returns max(0, paid - total), rounded.
func OverpaymentFor(total, paid decimal.Decimal) decimal.Decimal {
	over := Round(paid.Sub(total))
	if over.IsNegative() {
		return decimal.Zero
	}
	return over
}
