package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tarzihub/payment-service/internal/domain/model"
)

// RefundCommit describes the atomic outcome of a gateway refund: the refund
// record to append plus the note for the order's status event. The order
// status itself (refunded vs. partially_refunded) is derived from the
// refunded total under the row lock, never from the caller's earlier read.
type RefundCommit struct {
	Refund     *model.Refund
	StatusNote string
}

type PaymentRepository interface {
	// Create persists a new payment
	Create(ctx context.Context, payment *model.Payment) error

	// GetByID returns the payment, or (nil, nil) when it does not exist
	GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)

	// GetByOrderID returns the payment for an order with its refunds
	// preloaded, or (nil, nil) when the order has no payment
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Payment, error)

	// GetByReference returns the payment created under the gateway's
	// reference number, or (nil, nil)
	GetByReference(ctx context.Context, gateway, referenceNumber string) (*model.Payment, error)

	// Reopen moves a failed payment back to pending under a fresh gateway
	// session (gateway, reference number, gateway data), clearing the old
	// transaction id. Only a payment still in failed status is touched.
	Reopen(ctx context.Context, payment *model.Payment) error

	// MarkPaid records a successful gateway capture
	MarkPaid(ctx context.Context, id uuid.UUID, transactionID, paymentMethod string, paidAt time.Time) error

	// MarkFailed records a failed gateway capture
	MarkFailed(ctx context.Context, id uuid.UUID) error

	// CommitRefund appends the refund record, accumulates refunded_total,
	// updates the payment status, and moves the order status (appending a
	// status event) in one database transaction. The payment row is locked
	// and the balance guard re-checked under the lock, so concurrent
	// refunds cannot jointly exceed the payment amount.
	CommitRefund(ctx context.Context, commit *RefundCommit) (*model.Payment, error)

	// ListRefundsByOrder returns the refunds of the order's payment in
	// append order. The bool reports whether a payment exists at all.
	ListRefundsByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Refund, bool, error)
}
