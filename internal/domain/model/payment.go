package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the state of a payment
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// Scan implements sql.Scanner interface
func (s *PaymentStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = PaymentStatus(v)
	case []byte:
		*s = PaymentStatus(v)
	default:
		*s = PaymentStatusPending
	}
	return nil
}

// Value implements driver.Valuer interface
func (s PaymentStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// Payment represents money collected for an order. One payment per order.
type Payment struct {
	ID            uuid.UUID       `gorm:"primaryKey;type:uuid" json:"id"`
	OrderID       uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"order_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency      string          `gorm:"size:3;default:'EGP'" json:"currency"`
	PaymentMethod string          `gorm:"size:50" json:"payment_method,omitempty"`
	Gateway       string          `gorm:"size:50;not null;index" json:"gateway"`
	// ReferenceNumber is the gateway's identifier for the payment session,
	// returned at creation and used to verify it later.
	ReferenceNumber string        `gorm:"size:100;index" json:"reference_number,omitempty"`
	TransactionID   *string       `gorm:"size:100;index" json:"transaction_id,omitempty"`
	Status          PaymentStatus `gorm:"type:payment_status;not null;default:'pending'" json:"status"`
	// RefundedTotal accumulates monotonically; the refund commit enforces
	// refunded_total + refund <= amount under a row lock.
	RefundedTotal decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"refunded_total"`
	GatewayData   JSONB           `gorm:"type:jsonb" json:"gateway_data,omitempty"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `gorm:"default:now()" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"default:now()" json:"updated_at"`

	// Relations
	Refunds []Refund `gorm:"foreignKey:PaymentID" json:"refunds,omitempty"`
}

// TableName specifies the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// RemainingBalance returns the amount still refundable.
func (p *Payment) RemainingBalance() decimal.Decimal {
	return p.Amount.Sub(p.RefundedTotal)
}

// Refund is an append-only child record of a payment.
type Refund struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	PaymentID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"payment_id"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	Reason        string          `gorm:"size:500" json:"reason,omitempty"`
	TransactionID string          `gorm:"size:100" json:"transaction_id,omitempty"`
	InitiatedBy   *uuid.UUID      `gorm:"type:uuid" json:"initiated_by,omitempty"`
	CreatedAt     time.Time       `gorm:"default:now();index" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Refund) TableName() string {
	return "refunds"
}
