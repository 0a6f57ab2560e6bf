package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/tarzihub/payment-service/internal/domain/model"
)

type OrderRepository interface {
	// Create persists a new order together with its seed status event
	Create(ctx context.Context, order *model.Order) error

	// GetByID returns the order, or (nil, nil) when it does not exist
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// ListByBuyer returns the buyer's orders, newest first
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]*model.Order, int64, error)

	// UpdateStatus sets the order status and appends a status event in one
	// transaction. History entries are never overwritten.
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus, note string, updatedBy *uuid.UUID) error

	// GetStatusHistory returns the order's status events in append order
	GetStatusHistory(ctx context.Context, orderID uuid.UUID) ([]model.OrderStatusEvent, error)
}
