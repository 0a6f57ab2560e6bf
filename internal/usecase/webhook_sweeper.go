package usecase

import (
	"context"
	"time"

	"github.com/tarzihub/payment-service/internal/domain/model"
	"go.uber.org/zap"
)

const (
	defaultSweepInterval = time.Minute
	defaultSweepBatch    = 50
	maxSweepAttempts     = 5
)

// WebhookEventStore is the slice of webhook storage the sweeper needs.
type WebhookEventStore interface {
	GetPendingEvents(ctx context.Context, limit int) ([]*model.GatewayWebhookEvent, error)
	MarkProcessed(ctx context.Context, gateway, eventID string) error
	MarkFailed(ctx context.Context, gateway, eventID string, err error) error
}

// WebhookSweeper retries webhook events whose processing failed at delivery
// time. The webhook handler acknowledges every signed delivery and stores it;
// the sweeper periodically re-drives the stored pending and failed events
// through payment verification until they complete or exhaust their attempts.
type WebhookSweeper struct {
	events   WebhookEventStore
	payments *PaymentService
	interval time.Duration
	batch    int
	logger   *zap.Logger
}

// NewWebhookSweeper creates a new webhook sweeper instance
func NewWebhookSweeper(events WebhookEventStore, payments *PaymentService, logger *zap.Logger) *WebhookSweeper {
	return &WebhookSweeper{
		events:   events,
		payments: payments,
		interval: defaultSweepInterval,
		batch:    defaultSweepBatch,
		logger:   logger,
	}
}

// Run sweeps on a ticker until the context is cancelled.
func (s *WebhookSweeper) Run(ctx context.Context) {
	s.logger.Info("Webhook sweeper started",
		zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Webhook sweeper stopped")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep re-drives one batch of unprocessed webhook events. Each event either
// completes, records another failed attempt, or is dropped after exhausting
// its attempts.
func (s *WebhookSweeper) Sweep(ctx context.Context) {
	events, err := s.events.GetPendingEvents(ctx, s.batch)
	if err != nil {
		s.logger.Error("Failed to list pending webhook events", zap.Error(err))
		return
	}

	for _, event := range events {
		if event.ProcessingAttempts >= maxSweepAttempts {
			s.logger.Warn("Webhook event exhausted its attempts",
				zap.String("gateway", event.Gateway),
				zap.String("event_id", event.EventID),
				zap.Int("attempts", event.ProcessingAttempts))
			continue
		}

		// Events without a payment reference carry nothing to verify
		if event.ReferenceNumber == "" {
			if err := s.events.MarkProcessed(ctx, event.Gateway, event.EventID); err != nil {
				s.logger.Error("Failed to mark webhook event processed", zap.Error(err))
			}
			continue
		}

		if _, err := s.payments.VerifyPayment(ctx, event.Gateway, event.ReferenceNumber); err != nil {
			s.logger.Warn("Webhook retry verification failed",
				zap.String("gateway", event.Gateway),
				zap.String("event_id", event.EventID),
				zap.String("reference_number", event.ReferenceNumber),
				zap.Int("attempts", event.ProcessingAttempts),
				zap.Error(err))
			if markErr := s.events.MarkFailed(ctx, event.Gateway, event.EventID, err); markErr != nil {
				s.logger.Error("Failed to mark webhook event failed", zap.Error(markErr))
			}
			continue
		}

		if err := s.events.MarkProcessed(ctx, event.Gateway, event.EventID); err != nil {
			s.logger.Error("Failed to mark webhook event processed", zap.Error(err))
			continue
		}

		s.logger.Info("Webhook event retried successfully",
			zap.String("gateway", event.Gateway),
			zap.String("event_id", event.EventID),
			zap.String("reference_number", event.ReferenceNumber))
	}
}
