package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	domainErrors "github.com/tarzihub/payment-service/internal/domain/errors"
	"github.com/tarzihub/payment-service/internal/domain/model"
	"github.com/tarzihub/payment-service/internal/domain/provider"
	domainRepo "github.com/tarzihub/payment-service/internal/domain/repository"
	"github.com/tarzihub/payment-service/internal/events"
	"github.com/tarzihub/payment-service/internal/singleflight"
	"go.uber.org/zap"
)

// verifiedResultTTL bounds how long a terminal verification result is
// served from cache before the gateway is asked again.
const verifiedResultTTL = 5 * time.Minute

// PaymentService creates payments against the configured gateways and
// verifies their outcome.
type PaymentService struct {
	paymentRepo domainRepo.PaymentRepository
	orderRepo   domainRepo.OrderRepository
	cacheRepo   domainRepo.CacheRepository
	providers   ProviderFactory
	publisher   events.Publisher
	flight      *singleflight.Group
	logger      *zap.Logger
}

// NewPaymentService creates a new payment service instance. cacheRepo may
// be nil when no cache is configured.
func NewPaymentService(
	paymentRepo domainRepo.PaymentRepository,
	orderRepo domainRepo.OrderRepository,
	cacheRepo domainRepo.CacheRepository,
	providers ProviderFactory,
	publisher events.Publisher,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		cacheRepo:   cacheRepo,
		providers:   providers,
		publisher:   publisher,
		flight:      singleflight.New(),
		logger:      logger,
	}
}

// CreatePaymentInput carries the checkout data for a new payment.
type CreatePaymentInput struct {
	OrderID       uuid.UUID
	Gateway       string
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
}

// CreatePaymentResult is returned to the client to complete the payment.
type CreatePaymentResult struct {
	Payment         *model.Payment `json:"payment"`
	ReferenceNumber string         `json:"reference_number"`
	RedirectURL     string         `json:"redirect_url,omitempty"`
	ClientSecret    string         `json:"client_secret,omitempty"`
}

// CreatePayment registers a payment for an order with the named gateway and
// persists the pending payment record. Calling it again while a payment is
// pending returns the stored gateway data instead of opening a second one.
func (s *PaymentService) CreatePayment(ctx context.Context, input *CreatePaymentInput) (*CreatePaymentResult, error) {
	order, err := s.orderRepo.GetByID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domainErrors.ErrOrderNotFound
	}
	if order.Status != model.OrderStatusPendingPayment {
		return nil, domainErrors.ErrPaymentNotPending
	}

	existing, err := s.paymentRepo.GetByOrderID(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	var retrying *model.Payment
	if existing != nil {
		switch existing.Status {
		case model.PaymentStatusPending:
			s.logger.Info("Returning existing pending payment",
				zap.String("order_id", input.OrderID.String()),
				zap.String("payment_id", existing.ID.String()))
			return resultFromPayment(existing), nil
		case model.PaymentStatusFailed:
			// A declined capture does not burn the order; open a fresh
			// gateway session over the same payment row.
			retrying = existing
		default:
			return nil, domainErrors.ErrPaymentNotPending
		}
	}

	gateway, err := s.providers.GetProvider(input.Gateway)
	if err != nil {
		return nil, err
	}

	resp, err := gateway.CreatePayment(ctx, &provider.CreatePaymentRequest{
		OrderID:       order.ID.String(),
		Amount:        order.Total,
		Currency:      order.Currency,
		Description:   fmt.Sprintf("tailoring order %s", order.ID),
		CustomerName:  input.CustomerName,
		CustomerEmail: input.CustomerEmail,
		CustomerPhone: input.CustomerPhone,
	})
	if err != nil {
		s.logger.Error("Gateway payment creation failed",
			zap.String("order_id", order.ID.String()),
			zap.String("gateway", input.Gateway),
			zap.Error(err))
		return nil, fmt.Errorf("gateway payment creation failed: %w", err)
	}

	gatewayData := model.JSONB{
		"redirect_url":  resp.RedirectURL,
		"client_secret": resp.ClientSecret,
	}

	var payment *model.Payment
	if retrying != nil {
		retrying.Gateway = input.Gateway
		retrying.ReferenceNumber = resp.ReferenceNumber
		retrying.GatewayData = gatewayData
		if err := s.paymentRepo.Reopen(ctx, retrying); err != nil {
			return nil, err
		}
		payment = retrying

		s.logger.Info("Reopened failed payment for retry",
			zap.String("order_id", order.ID.String()),
			zap.String("payment_id", payment.ID.String()),
			zap.String("gateway", input.Gateway))
	} else {
		payment = &model.Payment{
			OrderID:         order.ID,
			Amount:          order.Total,
			Currency:        order.Currency,
			Gateway:         input.Gateway,
			ReferenceNumber: resp.ReferenceNumber,
			Status:          model.PaymentStatusPending,
			GatewayData:     gatewayData,
		}
		if err := s.paymentRepo.Create(ctx, payment); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Payment created",
		zap.String("order_id", order.ID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("gateway", input.Gateway),
		zap.String("reference_number", resp.ReferenceNumber))

	return &CreatePaymentResult{
		Payment:         payment,
		ReferenceNumber: resp.ReferenceNumber,
		RedirectURL:     resp.RedirectURL,
		ClientSecret:    resp.ClientSecret,
	}, nil
}

// VerifyPayment asks the gateway for the state of a payment reference and,
// on a completed capture, marks the payment paid and moves the order along.
// Concurrent verifications of the same reference are coalesced into one
// gateway call; terminal results are cached briefly.
func (s *PaymentService) VerifyPayment(ctx context.Context, gatewayName, referenceNumber string) (*provider.VerifyPaymentResponse, error) {
	if _, err := s.providers.GetProvider(gatewayName); err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("payment:verified:%s:%s", gatewayName, referenceNumber)
	if s.cacheRepo != nil {
		var cached provider.VerifyPaymentResponse
		if hit, err := s.cacheRepo.Get(ctx, cacheKey, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	flightKey := fmt.Sprintf("verify:%s:%s", gatewayName, referenceNumber)
	v, shared, err := s.flight.Do(flightKey, func() (interface{}, error) {
		return s.verifyAtGateway(ctx, gatewayName, referenceNumber, cacheKey)
	})
	if err != nil {
		return nil, err
	}

	if shared {
		s.logger.Debug("Verification result shared with concurrent caller",
			zap.String("gateway", gatewayName),
			zap.String("reference_number", referenceNumber))
	}

	return v.(*provider.VerifyPaymentResponse), nil
}

func (s *PaymentService) verifyAtGateway(ctx context.Context, gatewayName, referenceNumber, cacheKey string) (*provider.VerifyPaymentResponse, error) {
	gateway, err := s.providers.GetProvider(gatewayName)
	if err != nil {
		return nil, err
	}

	resp, err := gateway.VerifyPayment(ctx, referenceNumber)
	if err != nil {
		return nil, fmt.Errorf("gateway verification failed: %w", err)
	}

	switch resp.Status {
	case provider.PaymentStatusCompleted:
		if err := s.applyCapture(ctx, gatewayName, referenceNumber, resp); err != nil {
			return nil, err
		}
	case provider.PaymentStatusFailed, provider.PaymentStatusCancelled:
		payment, err := s.paymentRepo.GetByReference(ctx, gatewayName, referenceNumber)
		if err != nil {
			return nil, err
		}
		if payment != nil {
			if err := s.paymentRepo.MarkFailed(ctx, payment.ID); err != nil {
				return nil, err
			}
		}
	}

	if s.cacheRepo != nil && resp.Status != provider.PaymentStatusPending {
		if err := s.cacheRepo.Set(ctx, cacheKey, resp, verifiedResultTTL); err != nil {
			s.logger.Warn("Failed to cache verification result",
				zap.String("reference_number", referenceNumber),
				zap.Error(err))
		}
	}

	return resp, nil
}

// applyCapture records a confirmed payment and advances the order.
func (s *PaymentService) applyCapture(ctx context.Context, gatewayName, referenceNumber string, resp *provider.VerifyPaymentResponse) error {
	payment, err := s.paymentRepo.GetByReference(ctx, gatewayName, referenceNumber)
	if err != nil {
		return err
	}
	if payment == nil {
		s.logger.Warn("Verified payment has no local record",
			zap.String("gateway", gatewayName),
			zap.String("reference_number", referenceNumber))
		return nil
	}
	if payment.Status != model.PaymentStatusPending {
		return nil
	}

	paidAt := time.Now()
	if resp.PaidAt != nil {
		paidAt = *resp.PaidAt
	}

	if err := s.paymentRepo.MarkPaid(ctx, payment.ID, resp.TransactionID, resp.PaymentMethod, paidAt); err != nil {
		return err
	}

	note := fmt.Sprintf("payment confirmed via %s", gatewayName)
	if err := s.orderRepo.UpdateStatus(ctx, payment.OrderID, model.OrderStatusProcessing, note, nil); err != nil {
		return err
	}

	if err := s.publisher.Publish(ctx, events.EventPaymentConfirmed, map[string]interface{}{
		"order_id":       payment.OrderID.String(),
		"payment_id":     payment.ID.String(),
		"gateway":        gatewayName,
		"transaction_id": resp.TransactionID,
		"amount":         payment.Amount.String(),
	}); err != nil {
		s.logger.Warn("Failed to publish payment event",
			zap.String("payment_id", payment.ID.String()),
			zap.Error(err))
	}

	s.logger.Info("Payment confirmed",
		zap.String("order_id", payment.OrderID.String()),
		zap.String("payment_id", payment.ID.String()),
		zap.String("gateway", gatewayName),
		zap.String("transaction_id", resp.TransactionID))

	return nil
}

// GetPayment returns a payment by id.
func (s *PaymentService) GetPayment(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, domainErrors.ErrPaymentNotFound
	}
	return payment, nil
}

func resultFromPayment(payment *model.Payment) *CreatePaymentResult {
	result := &CreatePaymentResult{
		Payment:         payment,
		ReferenceNumber: payment.ReferenceNumber,
	}
	if payment.GatewayData != nil {
		if u, ok := payment.GatewayData["redirect_url"].(string); ok {
			result.RedirectURL = u
		}
		if cs, ok := payment.GatewayData["client_secret"].(string); ok {
			result.ClientSecret = cs
		}
	}
	return result
}
