package model

import (
	"database/sql/driver"
	"time"
)

// WebhookStatus represents the processing status of a webhook
type WebhookStatus string

const (
	WebhookStatusPending    WebhookStatus = "pending"
	WebhookStatusProcessing WebhookStatus = "processing"
	WebhookStatusCompleted  WebhookStatus = "completed"
	WebhookStatusFailed     WebhookStatus = "failed"
)

// Scan implements sql.Scanner interface
func (w *WebhookStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*w = WebhookStatus(v)
	case []byte:
		*w = WebhookStatus(v)
	default:
		*w = WebhookStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (w WebhookStatus) Value() (driver.Value, error) {
	return string(w), nil
}

// GatewayWebhookEvent represents a callback received from a payment gateway.
// The (gateway, event_id) pair is unique so replayed deliveries are absorbed.
type GatewayWebhookEvent struct {
	ID                 int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Gateway            string        `gorm:"not null;size:50;uniqueIndex:idx_gateway_event,priority:1" json:"gateway"`
	EventID            string        `gorm:"not null;size:255;uniqueIndex:idx_gateway_event,priority:2" json:"event_id"`
	EventType          string        `gorm:"not null;size:100;index" json:"event_type"`
	ReferenceNumber    string        `gorm:"size:100" json:"reference_number,omitempty"`
	Status             WebhookStatus `gorm:"type:webhook_status;default:'pending';index" json:"status"`
	ProcessedAt        *time.Time    `json:"processed_at,omitempty"`
	Data               JSONB         `gorm:"type:jsonb;not null" json:"data"`
	ProcessingAttempts int           `gorm:"default:0" json:"processing_attempts"`
	LastError          *string       `json:"last_error,omitempty"`
	CreatedAt          time.Time     `gorm:"default:now()" json:"created_at"`
}

// TableName specifies the table name for GORM
func (GatewayWebhookEvent) TableName() string {
	return "gateway_webhook_events"
}
