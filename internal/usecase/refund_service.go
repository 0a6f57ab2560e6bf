package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	domainErrors "github.com/tarzihub/payment-service/internal/domain/errors"
	"github.com/tarzihub/payment-service/internal/domain/model"
	"github.com/tarzihub/payment-service/internal/domain/provider"
	domainRepo "github.com/tarzihub/payment-service/internal/domain/repository"
	"github.com/tarzihub/payment-service/internal/events"
	"go.uber.org/zap"
)

// RefundService enforces refund correctness against a payment/order pair and
// delegates the money movement to the configured gateway.
type RefundService struct {
	paymentRepo domainRepo.PaymentRepository
	auditRepo   domainRepo.AuditLogRepository
	providers   ProviderFactory
	publisher   events.Publisher
	logger      *zap.Logger
}

// NewRefundService creates a new refund service instance
func NewRefundService(
	paymentRepo domainRepo.PaymentRepository,
	auditRepo domainRepo.AuditLogRepository,
	providers ProviderFactory,
	publisher events.Publisher,
	logger *zap.Logger,
) *RefundService {
	return &RefundService{
		paymentRepo: paymentRepo,
		auditRepo:   auditRepo,
		providers:   providers,
		publisher:   publisher,
		logger:      logger,
	}
}

// ProcessFullRefund refunds the payment's entire remaining balance.
func (s *RefundService) ProcessFullRefund(ctx context.Context, orderID uuid.UUID, reason string, adminID *uuid.UUID) (*model.Payment, error) {
	payment, err := s.loadRefundablePayment(ctx, orderID)
	if err != nil {
		return nil, err
	}

	amount := payment.RemainingBalance()
	note := fmt.Sprintf("full refund: %s", reason)

	return s.executeRefund(ctx, payment, amount, reason, note, adminID)
}

// ProcessPartialRefund refunds part of the payment. The refund fails when
// the amount is not positive or exceeds the remaining refundable balance;
// the error reports the exact remaining balance.
func (s *RefundService) ProcessPartialRefund(ctx context.Context, orderID uuid.UUID, amount decimal.Decimal, reason string, adminID *uuid.UUID) (*model.Payment, error) {
	payment, err := s.loadRefundablePayment(ctx, orderID)
	if err != nil {
		return nil, err
	}

	remaining := payment.RemainingBalance()

	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, domainErrors.NewInvalidRefundAmountError(amount, remaining)
	}
	if amount.GreaterThan(payment.Amount) {
		return nil, domainErrors.NewInvalidRefundAmountError(amount, remaining)
	}
	if payment.RefundedTotal.Add(amount).GreaterThan(payment.Amount) {
		return nil, domainErrors.NewInvalidRefundAmountError(amount, remaining)
	}

	note := fmt.Sprintf("partial refund of %s: %s", amount.StringFixed(2), reason)

	return s.executeRefund(ctx, payment, amount, reason, note, adminID)
}

// GetRefundHistory returns the refund records for an order's payment. An
// order with no payment yields an empty list, not an error; the bool lets
// the caller distinguish "no payment" from "no refunds yet".
func (s *RefundService) GetRefundHistory(ctx context.Context, orderID uuid.UUID) ([]model.Refund, bool, error) {
	return s.paymentRepo.ListRefundsByOrder(ctx, orderID)
}

// GetAuditTrail returns the refund audit entries for an order.
func (s *RefundService) GetAuditTrail(ctx context.Context, orderID uuid.UUID) ([]model.RefundAuditLog, error) {
	return s.auditRepo.ListByOrder(ctx, orderID)
}

// loadRefundablePayment loads the payment for an order and applies the
// preconditions shared by both refund paths.
func (s *RefundService) loadRefundablePayment(ctx context.Context, orderID uuid.UUID) (*model.Payment, error) {
	payment, err := s.paymentRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domainErrors.ErrPaymentNotFound
	}

	if payment.Status == model.PaymentStatusRefunded {
		return nil, domainErrors.ErrAlreadyRefunded
	}

	if payment.TransactionID == nil || *payment.TransactionID == "" {
		return nil, domainErrors.ErrPaymentNotRefundable
	}

	return payment, nil
}

// executeRefund runs the gateway call bracketed by audit events, then
// commits the refund atomically.
func (s *RefundService) executeRefund(ctx context.Context, payment *model.Payment, amount decimal.Decimal, reason, note string, adminID *uuid.UUID) (*model.Payment, error) {
	s.logger.Info("Processing refund",
		zap.String("order_id", payment.OrderID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("gateway", payment.Gateway),
		zap.String("amount", amount.String()))

	gateway, err := s.providers.GetProvider(payment.Gateway)
	if err != nil {
		return nil, err
	}

	s.audit(ctx, payment, model.AuditActionRefundAttempt, amount, reason, adminID, nil)

	resp, err := gateway.Refund(ctx, &provider.RefundRequest{
		TransactionID: *payment.TransactionID,
		Amount:        amount,
		Reason:        reason,
	})
	if err != nil {
		s.logger.Error("Gateway refund failed",
			zap.String("order_id", payment.OrderID.String()),
			zap.String("gateway", payment.Gateway),
			zap.Error(err))
		s.audit(ctx, payment, model.AuditActionRefundFailed, amount, reason, adminID,
			model.JSONB{"error": err.Error()})
		return nil, fmt.Errorf("gateway refund failed: %w", err)
	}

	commit := &domainRepo.RefundCommit{
		Refund: &model.Refund{
			PaymentID:     payment.ID,
			Amount:        amount,
			Reason:        reason,
			TransactionID: resp.RefundTransactionID,
			InitiatedBy:   adminID,
		},
		StatusNote: note,
	}

	updated, err := s.paymentRepo.CommitRefund(ctx, commit)
	if err != nil {
		// The money moved at the gateway but the commit failed. Keep the
		// audit trail so reconciliation can find it.
		s.audit(ctx, payment, model.AuditActionRefundFailed, amount, reason, adminID,
			model.JSONB{
				"error":                 err.Error(),
				"refund_transaction_id": resp.RefundTransactionID,
				"stage":                 "commit",
			})
		return nil, err
	}

	s.audit(ctx, updated, model.AuditActionRefundProcessed, amount, reason, adminID,
		model.JSONB{"refund_transaction_id": resp.RefundTransactionID})

	if err := s.publisher.Publish(ctx, events.EventRefundProcessed, map[string]interface{}{
		"order_id":              updated.OrderID.String(),
		"payment_id":            updated.ID.String(),
		"amount":                amount.String(),
		"refunded_total":        updated.RefundedTotal.String(),
		"payment_status":        string(updated.Status),
		"refund_transaction_id": resp.RefundTransactionID,
	}); err != nil {
		s.logger.Warn("Failed to publish refund event",
			zap.String("order_id", updated.OrderID.String()),
			zap.Error(err))
	}

	s.logger.Info("Refund processed",
		zap.String("order_id", updated.OrderID.String()),
		zap.String("amount", amount.String()),
		zap.String("refunded_total", updated.RefundedTotal.String()),
		zap.String("payment_status", string(updated.Status)))

	return updated, nil
}

func (s *RefundService) audit(ctx context.Context, payment *model.Payment, action string, amount decimal.Decimal, reason string, actorID *uuid.UUID, detail model.JSONB) {
	paymentID := payment.ID
	entry := &model.RefundAuditLog{
		OrderID:   payment.OrderID,
		PaymentID: &paymentID,
		Action:    action,
		Amount:    amount,
		Reason:    reason,
		ActorID:   actorID,
		Detail:    detail,
	}

	// Audit failures must not block the refund itself
	if err := s.auditRepo.Record(ctx, entry); err != nil {
		s.logger.Error("Failed to record refund audit entry",
			zap.String("order_id", payment.OrderID.String()),
			zap.String("action", action),
			zap.Error(err))
	}
}
