package model

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPendingPayment    OrderStatus = "pending_payment"
	OrderStatusProcessing        OrderStatus = "processing"
	OrderStatusInTailoring       OrderStatus = "in_tailoring"
	OrderStatusReadyForDelivery  OrderStatus = "ready_for_delivery"
	OrderStatusDelivered         OrderStatus = "delivered"
	OrderStatusCompleted         OrderStatus = "completed"
	OrderStatusPartiallyRefunded OrderStatus = "partially_refunded"
	OrderStatusRefunded          OrderStatus = "refunded"
	OrderStatusCancelled         OrderStatus = "cancelled"
)

// Scan implements sql.Scanner interface
func (s *OrderStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = OrderStatus(v)
	case []byte:
		*s = OrderStatus(v)
	default:
		*s = OrderStatusPendingPayment
	}
	return nil
}

// Value implements driver.Valuer interface
func (s OrderStatus) Value() (driver.Value, error) {
	return string(s), nil
}

// IsTerminal reports whether the status permits no further transitions
// outside the refund flow.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusRefunded, OrderStatusCancelled:
		return true
	}
	return false
}

// Order represents a purchase of a tailoring listing
type Order struct {
	ID          uuid.UUID       `gorm:"primaryKey;type:uuid" json:"id"`
	BuyerID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"buyer_id"`
	SellerID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"seller_id"`
	ListingID   uuid.UUID       `gorm:"type:uuid;not null" json:"listing_id"`
	Status      OrderStatus     `gorm:"type:order_status;not null;default:'pending_payment'" json:"status"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	DeliveryFee decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"delivery_fee"`
	Tax         decimal.Decimal `gorm:"type:decimal(12,2);default:0" json:"tax"`
	Total       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total"`
	Currency    string          `gorm:"size:3;default:'EGP'" json:"currency"`
	CreatedAt   time.Time       `gorm:"default:now()" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"default:now()" json:"updated_at"`

	// Relations
	StatusHistory []OrderStatusEvent `gorm:"foreignKey:OrderID" json:"status_history,omitempty"`
}

// TableName specifies the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// OrderStatusEvent is an append-only record of a status transition.
// Entries are never updated or deleted.
type OrderStatusEvent struct {
	ID        int64       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   uuid.UUID   `gorm:"type:uuid;not null;index" json:"order_id"`
	Status    OrderStatus `gorm:"type:order_status;not null" json:"status"`
	Note      string      `gorm:"size:500" json:"note,omitempty"`
	UpdatedBy *uuid.UUID  `gorm:"type:uuid" json:"updated_by,omitempty"`
	CreatedAt time.Time   `gorm:"default:now();index" json:"created_at"`
}

// TableName specifies the table name for GORM
func (OrderStatusEvent) TableName() string {
	return "order_status_events"
}
