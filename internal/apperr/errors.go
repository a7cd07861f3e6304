// Package apperr holds the business error taxonomy shared by the core
// packages. Callers branch on the sentinels with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

// --- Sentinel Errors ---

var (
	// ErrValidationFailed covers malformed input and failed re-validation.
	ErrValidationFailed = errors.New("validation failed")

	// ErrOutOfStock is returned when a requested quantity exceeds current stock.
	ErrOutOfStock = errors.New("not enough stock")

	// ErrBelowCost is returned when a unit price is under the converted purchase price.
	ErrBelowCost = errors.New("price is below purchase price")

	ErrProductNotFound  = errors.New("product not found")
	ErrNotFound         = errors.New("record not found")
	ErrCustomerRequired = errors.New("customer is required when the sale has outstanding debt")
	ErrExceedsDebt      = errors.New("payment amount exceeds outstanding debt")
	ErrInvalidQuantity  = errors.New("quantity must be greater than zero")
	ErrProductInUse     = errors.New("product has been used in sales")
	ErrDuplicate        = errors.New("duplicate record")

	// ErrBusy means another operation holds the lock for the same resource.
	ErrBusy = errors.New("resource is busy, try again")
)

// ValidationError wraps a sentinel with human-readable details.
type ValidationError struct {
	Err     error
	Details string
}

func (e *ValidationError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Details)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Wrap attaches formatted details to a sentinel.
func Wrap(err error, format string, args ...any) error {
	return &ValidationError{Err: err, Details: fmt.Sprintf(format, args...)}
}

// Invalid is shorthand for a ValidationError on ErrValidationFailed.
func Invalid(format string, args ...any) error {
	return Wrap(ErrValidationFailed, format, args...)
}
