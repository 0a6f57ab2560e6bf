package stripe

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
	"github.com/stripe/stripe-go/v79/refund"
	"github.com/tarzihub/payment-service/internal/domain/provider"
	"go.uber.org/zap"
)

// StripeProvider implements the PaymentProvider interface for Stripe.
// Used for international cards; the reference number is the payment
// intent id.
type StripeProvider struct {
	secretKey string
	logger    *zap.Logger
}

// NewStripeProvider creates a new Stripe provider instance
func NewStripeProvider(secretKey string, logger *zap.Logger) *StripeProvider {
	stripe.Key = secretKey

	return &StripeProvider{
		secretKey: secretKey,
		logger:    logger,
	}
}

// GetProviderName returns the gateway name
func (s *StripeProvider) GetProviderName() string {
	return provider.GatewayStripe
}

// CreatePayment creates a payment intent and hands its client secret back
// for the card flow.
func (s *StripeProvider) CreatePayment(ctx context.Context, req *provider.CreatePaymentRequest) (*provider.CreatePaymentResponse, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(req.Amount.Mul(decimal.NewFromInt(100)).IntPart()),
		Currency:    stripe.String(strings.ToLower(req.Currency)),
		Description: stripe.String(req.Description),
		Metadata: map[string]string{
			"order_id": req.OrderID,
		},
	}
	params.Context = ctx

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, wrapStripeError(err, "Stripe payment intent creation failed")
	}

	s.logger.Info("StripeProvider: Payment intent created",
		zap.String("order_id", req.OrderID),
		zap.String("intent_id", intent.ID))

	return &provider.CreatePaymentResponse{
		ReferenceNumber: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Status:          string(intent.Status),
	}, nil
}

// VerifyPayment fetches the payment intent and maps its status.
func (s *StripeProvider) VerifyPayment(ctx context.Context, referenceNumber string) (*provider.VerifyPaymentResponse, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	intent, err := paymentintent.Get(referenceNumber, params)
	if err != nil {
		return nil, wrapStripeError(err, "Stripe payment intent lookup failed")
	}

	resp := &provider.VerifyPaymentResponse{
		ReferenceNumber: intent.ID,
		TransactionID:   intent.ID,
		Status:          mapIntentStatus(intent.Status),
		Amount:          decimal.NewFromInt(intent.Amount).Div(decimal.NewFromInt(100)),
		Currency:        strings.ToUpper(string(intent.Currency)),
		PaymentMethod:   "card",
	}
	if intent.Status == stripe.PaymentIntentStatusSucceeded && intent.Created > 0 {
		t := time.Unix(intent.Created, 0)
		resp.PaidAt = &t
	}

	return resp, nil
}

// Refund refunds a captured payment intent, fully or partially.
func (s *StripeProvider) Refund(ctx context.Context, req *provider.RefundRequest) (*provider.RefundResponse, error) {
	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.TransactionID),
		Amount:        stripe.Int64(req.Amount.Mul(decimal.NewFromInt(100)).IntPart()),
	}
	if req.Reason != "" {
		params.Metadata = map[string]string{"reason": req.Reason}
	}
	params.Context = ctx

	ref, err := refund.New(params)
	if err != nil {
		s.logger.Error("StripeProvider: Refund failed",
			zap.String("transaction_id", req.TransactionID),
			zap.Error(err))
		return nil, wrapStripeError(err, "Stripe refund failed")
	}

	s.logger.Info("StripeProvider: Refund accepted",
		zap.String("transaction_id", req.TransactionID),
		zap.String("refund_id", ref.ID))

	return &provider.RefundResponse{
		RefundTransactionID: ref.ID,
		Status:              string(ref.Status),
	}, nil
}

func mapIntentStatus(status stripe.PaymentIntentStatus) provider.PaymentStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return provider.PaymentStatusCompleted
	case stripe.PaymentIntentStatusCanceled:
		return provider.PaymentStatusCancelled
	default:
		return provider.PaymentStatusPending
	}
}

func wrapStripeError(err error, message string) error {
	if stripeErr, ok := err.(*stripe.Error); ok {
		return &provider.ProviderError{
			Code:    string(stripeErr.Code),
			Message: message,
			Details: stripeErr.Msg,
		}
	}
	return &provider.ProviderError{
		Code:    "API_ERROR",
		Message: message,
		Details: err.Error(),
	}
}
