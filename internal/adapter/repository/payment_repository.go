package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	domainErrors "github.com/tarzihub/payment-service/internal/domain/errors"
	"github.com/tarzihub/payment-service/internal/domain/model"
	domainRepo "github.com/tarzihub/payment-service/internal/domain/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// paymentRepository implements the PaymentRepository interface
type paymentRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(db *gorm.DB, logger *zap.Logger) domainRepo.PaymentRepository {
	return &paymentRepository{
		db:     db,
		logger: logger,
	}
}

func (r *paymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}

	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		r.logger.Error("Failed to create payment",
			zap.String("order_id", payment.OrderID.String()),
			zap.String("gateway", payment.Gateway),
			zap.Error(err))
		return fmt.Errorf("failed to create payment: %w", err)
	}

	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var payment model.Payment

	err := r.db.WithContext(ctx).
		Preload("Refunds", func(db *gorm.DB) *gorm.DB {
			return db.Order("refunds.created_at ASC")
		}).
		Where("id = ?", id).
		First(&payment).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return &payment, nil
}

func (r *paymentRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*model.Payment, error) {
	var payment model.Payment

	err := r.db.WithContext(ctx).
		Preload("Refunds", func(db *gorm.DB) *gorm.DB {
			return db.Order("refunds.created_at ASC")
		}).
		Where("order_id = ?", orderID).
		First(&payment).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get payment by order",
			zap.String("order_id", orderID.String()),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get payment by order: %w", err)
	}

	return &payment, nil
}

func (r *paymentRepository) GetByReference(ctx context.Context, gateway, referenceNumber string) (*model.Payment, error) {
	var payment model.Payment

	err := r.db.WithContext(ctx).
		Where("gateway = ? AND reference_number = ?", gateway, referenceNumber).
		First(&payment).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payment by reference: %w", err)
	}

	return &payment, nil
}

func (r *paymentRepository) MarkPaid(ctx context.Context, id uuid.UUID, transactionID, paymentMethod string, paidAt time.Time) error {
	updates := map[string]interface{}{
		"status":         model.PaymentStatusPaid,
		"transaction_id": transactionID,
		"paid_at":        paidAt,
		"updated_at":     time.Now(),
	}
	if paymentMethod != "" {
		updates["payment_method"] = paymentMethod
	}

	result := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ? AND status = ?", id, model.PaymentStatusPending).
		Updates(updates)

	if result.Error != nil {
		r.logger.Error("Failed to mark payment paid",
			zap.String("payment_id", id.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to mark payment paid: %w", result.Error)
	}

	// Zero rows means the payment was already confirmed by a concurrent
	// verification or webhook. Not an error.
	if result.RowsAffected == 0 {
		r.logger.Debug("Payment already confirmed",
			zap.String("payment_id", id.String()))
	}

	return nil
}

// Reopen puts a failed payment back into pending with the new gateway
// session. The status guard keeps a concurrent capture from being clobbered.
func (r *paymentRepository) Reopen(ctx context.Context, payment *model.Payment) error {
	result := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ? AND status = ?", payment.ID, model.PaymentStatusFailed).
		Updates(map[string]interface{}{
			"gateway":          payment.Gateway,
			"reference_number": payment.ReferenceNumber,
			"gateway_data":     payment.GatewayData,
			"status":           model.PaymentStatusPending,
			"transaction_id":   nil,
			"payment_method":   "",
			"updated_at":       time.Now(),
		})

	if result.Error != nil {
		r.logger.Error("Failed to reopen payment",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(result.Error))
		return fmt.Errorf("failed to reopen payment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domainErrors.ErrPaymentNotPending
	}

	payment.Status = model.PaymentStatusPending
	payment.TransactionID = nil
	return nil
}

func (r *paymentRepository) MarkFailed(ctx context.Context, id uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Model(&model.Payment{}).
		Where("id = ? AND status = ?", id, model.PaymentStatusPending).
		Updates(map[string]interface{}{
			"status":     model.PaymentStatusFailed,
			"updated_at": time.Now(),
		}).Error

	if err != nil {
		return fmt.Errorf("failed to mark payment failed: %w", err)
	}

	return nil
}

// CommitRefund appends a refund and moves payment and order state in one
// database transaction. The payment row is locked for the duration and the
// balance guard re-checked under the lock, so two concurrent refunds reading
// the same stale total cannot jointly over-refund.
func (r *paymentRepository) CommitRefund(ctx context.Context, commit *domainRepo.RefundCommit) (*model.Payment, error) {
	var result *model.Payment

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment model.Payment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", commit.Refund.PaymentID).
			First(&payment).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domainErrors.ErrPaymentNotFound
			}
			return fmt.Errorf("failed to lock payment: %w", err)
		}

		newTotal := payment.RefundedTotal.Add(commit.Refund.Amount)
		if newTotal.GreaterThan(payment.Amount) {
			return domainErrors.NewInvalidRefundAmountError(
				commit.Refund.Amount, payment.RemainingBalance())
		}

		if err := tx.Create(commit.Refund).Error; err != nil {
			return fmt.Errorf("failed to create refund record: %w", err)
		}

		payment.RefundedTotal = newTotal
		orderStatus := model.OrderStatusPartiallyRefunded
		if newTotal.Equal(payment.Amount) {
			payment.Status = model.PaymentStatusRefunded
			orderStatus = model.OrderStatusRefunded
		}
		payment.UpdatedAt = time.Now()

		if err := tx.Save(&payment).Error; err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}

		err = tx.Model(&model.Order{}).
			Where("id = ?", payment.OrderID).
			Updates(map[string]interface{}{
				"status":     orderStatus,
				"updated_at": time.Now(),
			}).Error
		if err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}

		event := model.OrderStatusEvent{
			OrderID:   payment.OrderID,
			Status:    orderStatus,
			Note:      commit.StatusNote,
			UpdatedBy: commit.Refund.InitiatedBy,
		}
		if err := tx.Create(&event).Error; err != nil {
			return fmt.Errorf("failed to append status event: %w", err)
		}

		result = &payment
		return nil
	})

	if err != nil {
		return nil, err
	}

	r.logger.Info("Refund committed",
		zap.String("payment_id", result.ID.String()),
		zap.String("order_id", result.OrderID.String()),
		zap.String("refund_amount", commit.Refund.Amount.String()),
		zap.String("refunded_total", result.RefundedTotal.String()),
		zap.String("payment_status", string(result.Status)))

	return result, nil
}

func (r *paymentRepository) ListRefundsByOrder(ctx context.Context, orderID uuid.UUID) ([]model.Refund, bool, error) {
	payment, err := r.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	if payment == nil {
		return []model.Refund{}, false, nil
	}

	if payment.Refunds == nil {
		payment.Refunds = []model.Refund{}
	}
	return payment.Refunds, true, nil
}
