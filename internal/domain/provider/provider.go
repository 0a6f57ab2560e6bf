package provider

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentProvider defines the interface for payment gateways
// (Fawry, PayMob, PayTabs, Stripe).
type PaymentProvider interface {
	// CreatePayment registers a payment with the gateway and returns the
	// reference the client uses to complete it
	CreatePayment(ctx context.Context, req *CreatePaymentRequest) (*CreatePaymentResponse, error)

	// VerifyPayment polls the gateway for the state of a payment reference
	VerifyPayment(ctx context.Context, referenceNumber string) (*VerifyPaymentResponse, error)

	// Refund moves money back to the customer for a captured transaction
	Refund(ctx context.Context, req *RefundRequest) (*RefundResponse, error)

	// GetProviderName returns the gateway name
	GetProviderName() string
}

// Known gateway names
const (
	GatewayFawry   = "fawry"
	GatewayPayMob  = "paymob"
	GatewayPayTabs = "paytabs"
	GatewayStripe  = "stripe"
)

// CreatePaymentRequest represents a gateway-agnostic payment initialization request
type CreatePaymentRequest struct {
	OrderID       string                 `json:"order_id"`
	Amount        decimal.Decimal        `json:"amount"`
	Currency      string                 `json:"currency"`
	Description   string                 `json:"description"`
	CustomerName  string                 `json:"customer_name"`
	CustomerEmail string                 `json:"customer_email"`
	CustomerPhone string                 `json:"customer_phone"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// CreatePaymentResponse represents the response from payment initialization
type CreatePaymentResponse struct {
	ReferenceNumber string                 `json:"reference_number"`
	RedirectURL     string                 `json:"redirect_url,omitempty"`
	ClientSecret    string                 `json:"client_secret,omitempty"`
	Status          string                 `json:"status"`
	ProviderData    map[string]interface{} `json:"provider_data,omitempty"`
}

// VerifyPaymentResponse represents the gateway's view of a payment
type VerifyPaymentResponse struct {
	ReferenceNumber string                 `json:"reference_number"`
	TransactionID   string                 `json:"transaction_id,omitempty"`
	Status          PaymentStatus          `json:"status"`
	Amount          decimal.Decimal        `json:"amount"`
	Currency        string                 `json:"currency"`
	PaymentMethod   string                 `json:"payment_method,omitempty"`
	PaidAt          *time.Time             `json:"paid_at,omitempty"`
	ProviderData    map[string]interface{} `json:"provider_data,omitempty"`
}

// RefundRequest represents a refund of a captured transaction
type RefundRequest struct {
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        string          `json:"reason,omitempty"`
}

// RefundResponse represents the gateway's answer to a refund request
type RefundResponse struct {
	RefundTransactionID string                 `json:"refund_transaction_id"`
	Status              string                 `json:"status"`
	ProviderData        map[string]interface{} `json:"provider_data,omitempty"`
}

// PaymentStatus represents the status of a payment at the gateway
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCancelled PaymentStatus = "cancelled"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// ProviderError carries a gateway failure back to the caller
type ProviderError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *ProviderError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}
