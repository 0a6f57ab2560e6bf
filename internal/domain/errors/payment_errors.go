package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound indicates that no order exists for the given id
	ErrOrderNotFound = errors.New("order not found")

	// ErrPaymentNotFound indicates that no payment exists for the given order
	ErrPaymentNotFound = errors.New("no payment found for order")

	// ErrPaymentNotPending indicates that the order already has a payment in flight
	ErrPaymentNotPending = errors.New("order is not awaiting payment")

	// ErrInvalidStatusTransition indicates a transition out of a terminal order status
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
)

// UnsupportedGatewayError is returned when a request names a gateway the
// service has no provider for.
type UnsupportedGatewayError struct {
	Gateway string
}

func (e *UnsupportedGatewayError) Error() string {
	return fmt.Sprintf("unsupported payment gateway: %s", e.Gateway)
}

// NewUnsupportedGatewayError creates a new UnsupportedGatewayError
func NewUnsupportedGatewayError(gateway string) *UnsupportedGatewayError {
	return &UnsupportedGatewayError{Gateway: gateway}
}
