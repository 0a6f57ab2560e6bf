package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tarzihub/payment-service/internal/domain/model"
	domainRepo "github.com/tarzihub/payment-service/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// orderRepository implements the OrderRepository interface
type orderRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewOrderRepository creates a new order repository instance
func NewOrderRepository(db *gorm.DB, logger *zap.Logger) domainRepo.OrderRepository {
	return &orderRepository{
		db:     db,
		logger: logger,
	}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.Status == "" {
		order.Status = model.OrderStatusPendingPayment
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		seed := model.OrderStatusEvent{
			OrderID:   order.ID,
			Status:    order.Status,
			Note:      "order created",
			UpdatedBy: &order.BuyerID,
		}
		if err := tx.Create(&seed).Error; err != nil {
			return fmt.Errorf("failed to create seed status event: %w", err)
		}

		return nil
	})

	if err != nil {
		r.logger.Error("Failed to create order",
			zap.String("buyer_id", order.BuyerID.String()),
			zap.Error(err))
		return err
	}

	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order

	err := r.db.WithContext(ctx).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB {
			return db.Order("order_status_events.created_at ASC, order_status_events.id ASC")
		}).
		Where("id = ?", id).
		First(&order).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get order",
			zap.String("order_id", id.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	return &order, nil
}

func (r *orderRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]*model.Order, int64, error) {
	var orders []*model.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Order{}).Where("buyer_id = ?", buyerID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	err := query.
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}

	return orders, total, nil
}

// UpdateStatus moves the order status and appends the matching history
// entry. The two writes share one transaction so history never diverges
// from the order row.
func (r *orderRepository) UpdateStatus(ctx context.Context, orderID uuid.UUID, status model.OrderStatus, note string, updatedBy *uuid.UUID) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&model.Order{}).
			Where("id = ?", orderID).
			Updates(map[string]interface{}{
				"status":     status,
				"updated_at": time.Now(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update order status: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		event := model.OrderStatusEvent{
			OrderID:   orderID,
			Status:    status,
			Note:      note,
			UpdatedBy: updatedBy,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to append status event: %w", err)
		}

		return nil
	})

	if err != nil {
		r.logger.Error("Failed to update order status",
			zap.String("order_id", orderID.String()),
			zap.String("status", string(status)),
			zap.Error(err))
		return err
	}

	return nil
}

func (r *orderRepository) GetStatusHistory(ctx context.Context, orderID uuid.UUID) ([]model.OrderStatusEvent, error) {
	var events []model.OrderStatusEvent

	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC, id ASC").
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get status history: %w", err)
	}

	return events, nil
}
