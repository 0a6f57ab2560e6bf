package errors

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrAlreadyRefunded indicates that the payment has been fully refunded
	ErrAlreadyRefunded = errors.New("payment has already been fully refunded")

	// ErrPaymentNotRefundable indicates that the payment was never captured
	ErrPaymentNotRefundable = errors.New("payment has no captured transaction to refund")
)

// InvalidRefundAmountError is returned when a refund amount is not positive
// or exceeds the refundable balance of the payment.
type InvalidRefundAmountError struct {
	Requested decimal.Decimal
	Remaining decimal.Decimal
}

func (e *InvalidRefundAmountError) Error() string {
	return fmt.Sprintf("invalid refund amount: requested %s, remaining refundable balance %s",
		e.Requested.String(), e.Remaining.String())
}

// NewInvalidRefundAmountError creates a new InvalidRefundAmountError
func NewInvalidRefundAmountError(requested, remaining decimal.Decimal) *InvalidRefundAmountError {
	return &InvalidRefundAmountError{
		Requested: requested,
		Remaining: remaining,
	}
}
