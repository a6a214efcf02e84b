package domain

import (
	"errors"
	"fmt"
)

// ErrValidation matches every *ValidationError via errors.Is.
var ErrValidation = errors.New("validation error")

// ValidationError reports bad input shape or range. It is always raised
// before any write is issued.
type ValidationError struct {
	Field  string
	Reason string
}

func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

var (
	ErrEmptyCart         = NewValidationError("items", "cart is empty, nothing to checkout")
	ErrAddressRequired   = NewValidationError("shippingAddress", "a shipping address is required")
	ErrInvalidTransition = errors.New("illegal transition of order status")
)
