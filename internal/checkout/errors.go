package checkout

import (
	"errors"
	"fmt"
)

var ErrTokenConflict = errors.New("checkout token already used by another user")

const (
	StepCreateOrder = "create_order"
	StepClearCart   = "clear_cart"
)

// StepError reports which checkout step failed. When Step is StepClearCart
// the order identified by OrderID was created and a retry with the same
// checkout token only repeats the cart deletion.
type StepError struct {
	Step    string
	OrderID string
	Err     error
}

func (e *StepError) Error() string {
	if e.OrderID == "" {
		return fmt.Sprintf("checkout step %s failed: %v", e.Step, e.Err)
	}
	return fmt.Sprintf("checkout step %s failed for order %s: %v", e.Step, e.OrderID, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
