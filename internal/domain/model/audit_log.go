package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Refund audit actions
const (
	AuditActionRefundAttempt   = "refund_attempt"
	AuditActionRefundProcessed = "refund_processed"
	AuditActionRefundFailed    = "refund_failed"
)

// RefundAuditLog records every refund attempt before and after the gateway
// call. Rows are append-only.
type RefundAuditLog struct {
	ID        int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	PaymentID *uuid.UUID      `gorm:"type:uuid;index" json:"payment_id,omitempty"`
	Action    string          `gorm:"not null;size:50;index" json:"action"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2)" json:"amount"`
	Reason    string          `gorm:"size:500" json:"reason,omitempty"`
	ActorID   *uuid.UUID      `gorm:"type:uuid" json:"actor_id,omitempty"`
	Detail    JSONB           `gorm:"type:jsonb;default:'{}'" json:"detail"`
	CreatedAt time.Time       `gorm:"default:now();index" json:"created_at"`
}

// TableName specifies the table name for GORM
func (RefundAuditLog) TableName() string {
	return "refund_audit_logs"
}
