package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	domainErrors "github.com/tarzihub/payment-service/internal/domain/errors"
	"github.com/tarzihub/payment-service/internal/domain/model"
	domainRepo "github.com/tarzihub/payment-service/internal/domain/repository"
	"github.com/tarzihub/payment-service/internal/events"
	"go.uber.org/zap"
)

const (
	defaultOrderPageSize = 10
	maxOrderPageSize     = 100
)

// OrderService manages order lifecycle outside of the money paths.
type OrderService struct {
	orderRepo domainRepo.OrderRepository
	publisher events.Publisher
	logger    *zap.Logger
}

// NewOrderService creates a new order service instance
func NewOrderService(orderRepo domainRepo.OrderRepository, publisher events.Publisher, logger *zap.Logger) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateOrderInput carries the data for a new order. The total is computed
// server-side and never accepted from the client.
type CreateOrderInput struct {
	BuyerID     uuid.UUID
	SellerID    uuid.UUID
	ListingID   uuid.UUID
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Tax         decimal.Decimal
	Currency    string
}

// CreateOrder persists a new order in pending_payment with a seed history
// entry.
func (s *OrderService) CreateOrder(ctx context.Context, input *CreateOrderInput) (*model.Order, error) {
	if input.Subtotal.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("order subtotal must be positive")
	}
	if input.DeliveryFee.IsNegative() || input.Tax.IsNegative() {
		return nil, fmt.Errorf("delivery fee and tax must not be negative")
	}

	currency := input.Currency
	if currency == "" {
		currency = "EGP"
	}

	order := &model.Order{
		ID:          uuid.New(),
		BuyerID:     input.BuyerID,
		SellerID:    input.SellerID,
		ListingID:   input.ListingID,
		Status:      model.OrderStatusPendingPayment,
		Subtotal:    input.Subtotal,
		DeliveryFee: input.DeliveryFee,
		Tax:         input.Tax,
		Total:       input.Subtotal.Add(input.DeliveryFee).Add(input.Tax),
		Currency:    currency,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	s.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("buyer_id", order.BuyerID.String()),
		zap.String("total", order.Total.String()))

	return order, nil
}

// GetOrder returns an order with its status history.
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domainErrors.ErrOrderNotFound
	}
	return order, nil
}

// ListBuyerOrders returns a page of the buyer's orders, newest first.
func (s *OrderService) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]*model.Order, int64, error) {
	if limit <= 0 {
		limit = defaultOrderPageSize
	}
	if limit > maxOrderPageSize {
		limit = maxOrderPageSize
	}
	if offset < 0 {
		offset = 0
	}

	return s.orderRepo.ListByBuyer(ctx, buyerID, limit, offset)
}

// UpdateStatus moves an order to a new fulfilment status and appends the
// transition to the history. Terminal orders cannot move, and the refund
// statuses are owned by the refund flow rather than set directly.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus, note string, updatedBy *uuid.UUID) (*model.Order, error) {
	switch status {
	case model.OrderStatusRefunded, model.OrderStatusPartiallyRefunded:
		return nil, domainErrors.ErrInvalidStatusTransition
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domainErrors.ErrOrderNotFound
	}

	if order.Status.IsTerminal() {
		return nil, domainErrors.ErrInvalidStatusTransition
	}
	if order.Status == status {
		return order, nil
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, status, note, updatedBy); err != nil {
		return nil, err
	}

	if err := s.publisher.Publish(ctx, events.EventOrderUpdated, map[string]interface{}{
		"order_id": orderID.String(),
		"status":   string(status),
		"note":     note,
	}); err != nil {
		s.logger.Warn("Failed to publish order event",
			zap.String("order_id", orderID.String()),
			zap.Error(err))
	}

	s.logger.Info("Order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("from", string(order.Status)),
		zap.String("to", string(status)))

	order.Status = status
	return order, nil
}

// GetStatusHistory returns the order's status transitions in append order.
func (s *OrderService) GetStatusHistory(ctx context.Context, orderID uuid.UUID) ([]model.OrderStatusEvent, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domainErrors.ErrOrderNotFound
	}

	return s.orderRepo.GetStatusHistory(ctx, orderID)
}
