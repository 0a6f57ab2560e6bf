package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/tarzihub/payment-service/internal/domain/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WebhookRepository handles gateway webhook event storage and processing
type WebhookRepository interface {
	SaveEvent(ctx context.Context, gateway, eventID, eventType, referenceNumber string, data json.RawMessage) error
	GetEvent(ctx context.Context, gateway, eventID string) (*model.GatewayWebhookEvent, error)
	MarkProcessed(ctx context.Context, gateway, eventID string) error
	MarkFailed(ctx context.Context, gateway, eventID string, err error) error
	GetPendingEvents(ctx context.Context, limit int) ([]*model.GatewayWebhookEvent, error)
}

type webhookRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewWebhookRepository creates a new webhook repository
func NewWebhookRepository(db *gorm.DB, logger *zap.Logger) WebhookRepository {
	return &webhookRepository{
		db:     db,
		logger: logger,
	}
}

// SaveEvent saves a new webhook event. Replayed deliveries of the same
// (gateway, event id) pair are absorbed by the unique index.
func (r *webhookRepository) SaveEvent(ctx context.Context, gateway, eventID, eventType, referenceNumber string, data json.RawMessage) error {
	var eventData map[string]interface{}
	if err := json.Unmarshal(data, &eventData); err != nil {
		r.logger.Warn("Failed to parse webhook event data",
			zap.String("gateway", gateway),
			zap.String("event_id", eventID),
			zap.Error(err))
	}

	event := &model.GatewayWebhookEvent{
		Gateway:         gateway,
		EventID:         eventID,
		EventType:       eventType,
		ReferenceNumber: referenceNumber,
		Status:          model.WebhookStatusPending,
		Data:            model.JSONB(eventData),
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(event).Error

	if err != nil {
		r.logger.Error("Failed to save webhook event",
			zap.String("gateway", gateway),
			zap.String("event_id", eventID),
			zap.String("event_type", eventType),
			zap.Error(err))
		return fmt.Errorf("failed to save webhook event: %w", err)
	}

	return nil
}

// GetEvent retrieves a webhook event
func (r *webhookRepository) GetEvent(ctx context.Context, gateway, eventID string) (*model.GatewayWebhookEvent, error) {
	var event model.GatewayWebhookEvent

	err := r.db.WithContext(ctx).
		Where("gateway = ? AND event_id = ?", gateway, eventID).
		First(&event).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get webhook event: %w", err)
	}

	return &event, nil
}

// MarkProcessed marks a webhook event as completed
func (r *webhookRepository) MarkProcessed(ctx context.Context, gateway, eventID string) error {
	now := time.Now()

	err := r.db.WithContext(ctx).
		Model(&model.GatewayWebhookEvent{}).
		Where("gateway = ? AND event_id = ?", gateway, eventID).
		Updates(map[string]interface{}{
			"status":       model.WebhookStatusCompleted,
			"processed_at": now,
		}).Error

	if err != nil {
		return fmt.Errorf("failed to mark webhook event processed: %w", err)
	}

	return nil
}

// MarkFailed records a processing failure and bumps the attempt counter
func (r *webhookRepository) MarkFailed(ctx context.Context, gateway, eventID string, procErr error) error {
	msg := procErr.Error()

	err := r.db.WithContext(ctx).
		Model(&model.GatewayWebhookEvent{}).
		Where("gateway = ? AND event_id = ?", gateway, eventID).
		Updates(map[string]interface{}{
			"status":              model.WebhookStatusFailed,
			"last_error":          msg,
			"processing_attempts": gorm.Expr("processing_attempts + 1"),
		}).Error

	if err != nil {
		return fmt.Errorf("failed to mark webhook event failed: %w", err)
	}

	return nil
}

// GetPendingEvents returns unprocessed events, oldest first
func (r *webhookRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.GatewayWebhookEvent, error) {
	var events []*model.GatewayWebhookEvent

	err := r.db.WithContext(ctx).
		Where("status IN ?", []model.WebhookStatus{model.WebhookStatusPending, model.WebhookStatusFailed}).
		Order("created_at ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get pending webhook events: %w", err)
	}

	return events, nil
}
