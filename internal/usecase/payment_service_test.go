package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	domainErrors "github.com/tarzihub/payment-service/internal/domain/errors"
	"github.com/tarzihub/payment-service/internal/domain/model"
	"github.com/tarzihub/payment-service/internal/domain/provider"
	"github.com/tarzihub/payment-service/internal/events"
	"github.com/tarzihub/payment-service/internal/usecase"
)

func pendingOrder() *model.Order {
	return &model.Order{
		ID:       uuid.New(),
		BuyerID:  uuid.New(),
		SellerID: uuid.New(),
		Subtotal: decimal.RequireFromString("120.00"),
		Total:    decimal.RequireFromString("150.50"),
		Currency: "EGP",
		Status:   model.OrderStatusPendingPayment,
	}
}

func TestPaymentService_CreatePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("creates a pending payment through the gateway", func(t *testing.T) {
		paymentRepo := new(MockPaymentRepository)
		orderRepo := new(MockOrderRepository)
		factory := new(MockProviderFactory)
		gateway := new(MockPaymentProvider)
		publisher := new(MockPublisher)
		service := usecase.NewPaymentService(paymentRepo, orderRepo, nil, factory, publisher, zap.NewNop())

		order := pendingOrder()
		orderRepo.On("GetByID", ctx, order.ID).Return(order, nil).Once()
		paymentRepo.On("GetByOrderID", ctx, order.ID).Return(nil, nil).Once()
		factory.On("GetProvider", provider.GatewayFawry).Return(gateway, nil).Once()

		gateway.On("CreatePayment", ctx, mock.MatchedBy(func(req *provider.CreatePaymentRequest) bool {
			return req.OrderID == order.ID.String() &&
				req.Amount.Equal(order.Total) &&
				req.Currency == "EGP" &&
				req.CustomerName == "Mona Hassan"
		})).Return(&provider.CreatePaymentResponse{
			ReferenceNumber: "931045682",
			RedirectURL:     "https://atfawry.fawrystaging.com/pay/931045682",
		}, nil).Once()

		paymentRepo.On("Create", ctx, mock.MatchedBy(func(p *model.Payment) bool {
			return p.OrderID == order.ID &&
				p.Amount.Equal(order.Total) &&
				p.Gateway == provider.GatewayFawry &&
				p.ReferenceNumber == "931045682" &&
				p.Status == model.PaymentStatusPending
		})).Return(nil).Once()

		result, err := service.CreatePayment(ctx, &usecase.CreatePaymentInput{
			OrderID:       order.ID,
			Gateway:       provider.GatewayFawry,
			CustomerName:  "Mona Hassan",
			CustomerEmail: "mona@example.com",
			CustomerPhone: "+201001234567",
		})
		assert.NoError(t, err)
		assert.Equal(t, "931045682", result.ReferenceNumber)
		assert.Equal(t, "https://atfawry.fawrystaging.com/pay/931045682", result.RedirectURL)

		paymentRepo.AssertExpectations(t)
		gateway.AssertExpectations(t)
	})

	t.Run("missing order yields not found", func(t *testing.T) {
		paymentRepo := new(MockPaymentRepository)
		orderRepo := new(MockOrderRepository)
		service := usecase.NewPaymentService(paymentRepo, orderRepo, nil, new(MockProviderFactory), new(MockPublisher), zap.NewNop())

		orderID := uuid.New()
		orderRepo.On("GetByID", ctx, orderID).Return(nil, nil).Once()

		_, err := service.CreatePayment(ctx, &usecase.CreatePaymentInput{OrderID: orderID, Gateway: provider.GatewayFawry})
		assert.ErrorIs(t, err, domainErrors.ErrOrderNotFound)
	})

	t.Run("order past pending_payment cannot start a payment", func(t *testing.T) {
		paymentRepo := new(MockPaymentRepository)
		orderRepo := new(MockOrderRepository)
		factory := new(MockProviderFactory)
		service := usecase.NewPaymentService(paymentRepo, orderRepo, nil, factory, new(MockPublisher), zap.NewNop())

		order := pendingOrder()
		order.Status = model.OrderStatusProcessing
		orderRepo.On("GetByID", ctx, order.ID).Return(order, nil).Once()

		_, err := service.CreatePayment(ctx, &usecase.CreatePaymentInput{OrderID: order.ID, Gateway: provider.GatewayFawry})
		assert.ErrorIs(t, err, domainErrors.ErrPaymentNotPending)

		factory.AssertNotCalled(t, "GetProvider", mock.Anything)
	})

	t.Run("second call returns the existing pending payment", func(t *testing.T) {
		paymentRepo := new(MockPaymentRepository)
		orderRepo := new(MockOrderRepository)
		factory := new(MockProviderFactory)
		service := usecase.NewPaymentService(paymentRepo, orderRepo, nil, factory, new(MockPublisher), zap.NewNop())

		order := pendingOrder()
		existing := &model.Payment{
			ID:              uuid.New(),
			OrderID:         order.ID,
			Amount:          order.Total,
			Currency:        "EGP",
			Gateway:         provider.GatewayFawry,
			ReferenceNumber: "931045682",
			Status:          model.PaymentStatusPending,
			GatewayData:     model.JSONB{"redirect_url": "https://atfawry.fawrystaging.com/pay/931045682"},
		}

		orderRepo.On("GetByID", ctx, order.ID).Return(order, nil).Once()
		paymentRepo.On("GetByOrderID", ctx, order.ID).Return(existing, nil).Once()

		result, err := service.CreatePayment(ctx, &usecase.CreatePaymentInput{OrderID: order.ID, Gateway: provider.GatewayFawry})
		assert.NoError(t, err)
		assert.Equal(t, existing.ID, result.Payment.ID)
		assert.Equal(t, "931045682", result.ReferenceNumber)
		assert.Equal(t, "https://atfawry.fawrystaging.com/pay/931045682", result.RedirectURL)

		// No new gateway session was opened
		factory.AssertNotCalled(t, "GetProvider", mock.Anything)
		paymentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("failed payment can be retried with a fresh gateway session", func(t *testing.T) {
		paymentRepo := new(MockPaymentRepository)
		orderRepo := new(MockOrderRepository)
		factory := new(MockProviderFactory)
		gateway := new(MockPaymentProvider)
		service := usecase.NewPaymentService(paymentRepo, orderRepo, nil, factory, new(MockPublisher), zap.NewNop())

		order := pendingOrder()
		failed := &model.Payment{
			ID:              uuid.New(),
			OrderID:         order.ID,
			Amount:          order.Total,
			Currency:        "EGP",
			Gateway:         provider.GatewayFawry,
			ReferenceNumber: "931045682",
			Status:          model.PaymentStatusFailed,
		}

		orderRepo.On("GetByID", ctx, order.ID).Return(order, nil).Once()
		paymentRepo.On("GetByOrderID", ctx, order.ID).Return(failed, nil).Once()
		factory.On("GetProvider", provider.GatewayPayMob).Return(gateway, nil).Once()
		gateway.On("CreatePayment", ctx, mock.Anything).Return(&provider.CreatePaymentResponse{
			ReferenceNumber: "88201",
			RedirectURL:     "https://accept.paymob.com/api/acceptance/iframes/1?payment_token=tok",
		}, nil).Once()

		paymentRepo.On("Reopen", ctx, mock.MatchedBy(func(p *model.Payment) bool {
			return p.ID == failed.ID &&
				p.Gateway == provider.GatewayPayMob &&
				p.ReferenceNumber == "88201"
		})).Return(nil).Once()

		result, err := service.CreatePayment(ctx, &usecase.CreatePaymentInput{
			OrderID:       order.ID,
			Gateway:       provider.GatewayPayMob,
			CustomerName:  "Mona Hassan",
			CustomerEmail: "mona@example.com",
			CustomerPhone: "+201001234567",
		})
		assert.NoError(t, err)
		assert.Equal(t, failed.ID, result.Payment.ID)
		assert.Equal(t, "88201", result.ReferenceNumber)

		// The failed row was reused, not duplicated
		paymentRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		paymentRepo.AssertExpectations(t)
	})

	t.Run("paid payment cannot be recreated", func(t *testing.T) {
		paymentRepo := new(MockPaymentRepository)
		orderRepo := new(MockOrderRepository)
		factory := new(MockProviderFactory)
		service := usecase.NewPaymentService(paymentRepo, orderRepo, nil, factory, new(MockPublisher), zap.NewNop())

		order := pendingOrder()
		paid := &model.Payment{
			ID:      uuid.New(),
			OrderID: order.ID,
			Status:  model.PaymentStatusPaid,
		}
		orderRepo.On("GetByID", ctx, order.ID).Return(order, nil).Once()
		paymentRepo.On("GetByOrderID", ctx, order.ID).Return(paid, nil).Once()

		_, err := service.CreatePayment(ctx, &usecase.CreatePaymentInput{OrderID: order.ID, Gateway: provider.GatewayFawry})
		assert.ErrorIs(t, err, domainErrors.ErrPaymentNotPending)

		factory.AssertNotCalled(t, "GetProvider", mock.Anything)
	})

	t.Run("unsupported gateway is rejected", func(t *testing.T) {
		paymentRepo := new(MockPaymentRepository)
		orderRepo := new(MockOrderRepository)
		factory := new(MockProviderFactory)
		service := usecase.NewPaymentService(paymentRepo, orderRepo, nil, factory, new(MockPublisher), zap.NewNop())

		order := pendingOrder()
		orderRepo.On("GetByID", ctx, order.ID).Return(order, nil).Once()
		paymentRepo.On("GetByOrderID", ctx, order.ID).Return(nil, nil).Once()
		factory.On("GetProvider", "square").Return(nil, domainErrors.NewUnsupportedGatewayError("square")).Once()

		_, err := service.CreatePayment(ctx, &usecase.CreatePaymentInput{OrderID: order.ID, Gateway: "square"})
		var unsupportedErr *domainErrors.UnsupportedGatewayError
		assert.ErrorAs(t, err, &unsupportedErr)
	})
}

func TestPaymentService_VerifyPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("completed verification captures the payment and advances the order", func(t *testing.T) {
		paymentRepo := new(MockPaymentRepository)
		orderRepo := new(MockOrderRepository)
		factory := new(MockProviderFactory)
		gateway := new(MockPaymentProvider)
		publisher := new(MockPublisher)
		service := usecase.NewPaymentService(paymentRepo, orderRepo, nil, factory, publisher, zap.NewNop())

		orderID := uuid.New()
		paidAt := time.Now().Add(-time.Minute)
		payment := &model.Payment{
			ID:              uuid.New(),
			OrderID:         orderID,
			Amount:          decimal.RequireFromString("150.50"),
			Gateway:         provider.GatewayFawry,
			ReferenceNumber: "931045682",
			Status:          model.PaymentStatusPending,
		}

		factory.On("GetProvider", provider.GatewayFawry).Return(gateway, nil)
		gateway.On("VerifyPayment", ctx, "931045682").Return(&provider.VerifyPaymentResponse{
			ReferenceNumber: "931045682",
			TransactionID:   "TXN-1001",
			Status:          provider.PaymentStatusCompleted,
			PaymentMethod:   "PAYATFAWRY",
			PaidAt:          &paidAt,
		}, nil).Once()

		paymentRepo.On("GetByReference", ctx, provider.GatewayFawry, "931045682").Return(payment, nil).Once()
		paymentRepo.On("MarkPaid", ctx, payment.ID, "TXN-1001", "PAYATFAWRY", paidAt).Return(nil).Once()
		orderRepo.On("UpdateStatus", ctx, orderID, model.OrderStatusProcessing, "payment confirmed via fawry", (*uuid.UUID)(nil)).Return(nil).Once()
		publisher.On("Publish", ctx, events.EventPaymentConfirmed, mock.Anything).Return(nil).Once()

		resp, err := service.VerifyPayment(ctx, provider.GatewayFawry, "931045682")
		assert.NoError(t, err)
		assert.Equal(t, provider.PaymentStatusCompleted, resp.Status)

		paymentRepo.AssertExpectations(t)
		orderRepo.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("failed verification marks the payment failed", func(t *testing.T) {
		paymentRepo := new(MockPaymentRepository)
		orderRepo := new(MockOrderRepository)
		factory := new(MockProviderFactory)
		gateway := new(MockPaymentProvider)
		service := usecase.NewPaymentService(paymentRepo, orderRepo, nil, factory, new(MockPublisher), zap.NewNop())

		payment := &model.Payment{
			ID:              uuid.New(),
			OrderID:         uuid.New(),
			Gateway:         provider.GatewayFawry,
			ReferenceNumber: "931045682",
			Status:          model.PaymentStatusPending,
		}

		factory.On("GetProvider", provider.GatewayFawry).Return(gateway, nil)
		gateway.On("VerifyPayment", ctx, "931045682").Return(&provider.VerifyPaymentResponse{
			ReferenceNumber: "931045682",
			Status:          provider.PaymentStatusFailed,
		}, nil).Once()
		paymentRepo.On("GetByReference", ctx, provider.GatewayFawry, "931045682").Return(payment, nil).Once()
		paymentRepo.On("MarkFailed", ctx, payment.ID).Return(nil).Once()

		resp, err := service.VerifyPayment(ctx, provider.GatewayFawry, "931045682")
		assert.NoError(t, err)
		assert.Equal(t, provider.PaymentStatusFailed, resp.Status)

		paymentRepo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		orderRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("pending verification changes nothing locally", func(t *testing.T) {
		paymentRepo := new(MockPaymentRepository)
		orderRepo := new(MockOrderRepository)
		factory := new(MockProviderFactory)
		gateway := new(MockPaymentProvider)
		service := usecase.NewPaymentService(paymentRepo, orderRepo, nil, factory, new(MockPublisher), zap.NewNop())

		factory.On("GetProvider", provider.GatewayFawry).Return(gateway, nil)
		gateway.On("VerifyPayment", ctx, "931045682").Return(&provider.VerifyPaymentResponse{
			ReferenceNumber: "931045682",
			Status:          provider.PaymentStatusPending,
		}, nil).Once()

		resp, err := service.VerifyPayment(ctx, provider.GatewayFawry, "931045682")
		assert.NoError(t, err)
		assert.Equal(t, provider.PaymentStatusPending, resp.Status)

		paymentRepo.AssertNotCalled(t, "GetByReference", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("cached terminal result skips the gateway", func(t *testing.T) {
		paymentRepo := new(MockPaymentRepository)
		orderRepo := new(MockOrderRepository)
		cacheRepo := new(MockCacheRepository)
		factory := new(MockProviderFactory)
		gateway := new(MockPaymentProvider)
		service := usecase.NewPaymentService(paymentRepo, orderRepo, cacheRepo, factory, new(MockPublisher), zap.NewNop())

		factory.On("GetProvider", provider.GatewayFawry).Return(gateway, nil)
		cacheRepo.On("Get", ctx, "payment:verified:fawry:931045682", mock.Anything).
			Run(func(args mock.Arguments) {
				dest := args.Get(2).(*provider.VerifyPaymentResponse)
				dest.ReferenceNumber = "931045682"
				dest.TransactionID = "TXN-1001"
				dest.Status = provider.PaymentStatusCompleted
			}).
			Return(true, nil).Once()

		resp, err := service.VerifyPayment(ctx, provider.GatewayFawry, "931045682")
		assert.NoError(t, err)
		assert.Equal(t, provider.PaymentStatusCompleted, resp.Status)
		assert.Equal(t, "TXN-1001", resp.TransactionID)

		gateway.AssertNotCalled(t, "VerifyPayment", mock.Anything, mock.Anything)
	})

	t.Run("terminal result is written to the cache", func(t *testing.T) {
		paymentRepo := new(MockPaymentRepository)
		orderRepo := new(MockOrderRepository)
		cacheRepo := new(MockCacheRepository)
		factory := new(MockProviderFactory)
		gateway := new(MockPaymentProvider)
		service := usecase.NewPaymentService(paymentRepo, orderRepo, cacheRepo, factory, new(MockPublisher), zap.NewNop())

		factory.On("GetProvider", provider.GatewayFawry).Return(gateway, nil)
		cacheRepo.On("Get", ctx, "payment:verified:fawry:931045682", mock.Anything).Return(false, nil).Once()
		gateway.On("VerifyPayment", ctx, "931045682").Return(&provider.VerifyPaymentResponse{
			ReferenceNumber: "931045682",
			Status:          provider.PaymentStatusFailed,
		}, nil).Once()
		paymentRepo.On("GetByReference", ctx, provider.GatewayFawry, "931045682").Return(nil, nil).Once()
		cacheRepo.On("Set", ctx, "payment:verified:fawry:931045682", mock.Anything, 5*time.Minute).Return(nil).Once()

		_, err := service.VerifyPayment(ctx, provider.GatewayFawry, "931045682")
		assert.NoError(t, err)
		cacheRepo.AssertExpectations(t)
	})

	t.Run("unknown gateway fails before any network call", func(t *testing.T) {
		factory := new(MockProviderFactory)
		service := usecase.NewPaymentService(new(MockPaymentRepository), new(MockOrderRepository), nil, factory, new(MockPublisher), zap.NewNop())

		factory.On("GetProvider", "square").Return(nil, domainErrors.NewUnsupportedGatewayError("square")).Once()

		_, err := service.VerifyPayment(ctx, "square", "931045682")
		var unsupportedErr *domainErrors.UnsupportedGatewayError
		assert.ErrorAs(t, err, &unsupportedErr)
	})

	t.Run("verification of an already paid payment is a no-op", func(t *testing.T) {
		paymentRepo := new(MockPaymentRepository)
		orderRepo := new(MockOrderRepository)
		factory := new(MockProviderFactory)
		gateway := new(MockPaymentProvider)
		service := usecase.NewPaymentService(paymentRepo, orderRepo, nil, factory, new(MockPublisher), zap.NewNop())

		paid := &model.Payment{
			ID:              uuid.New(),
			OrderID:         uuid.New(),
			Gateway:         provider.GatewayFawry,
			ReferenceNumber: "931045682",
			Status:          model.PaymentStatusPaid,
		}

		factory.On("GetProvider", provider.GatewayFawry).Return(gateway, nil)
		gateway.On("VerifyPayment", ctx, "931045682").Return(&provider.VerifyPaymentResponse{
			ReferenceNumber: "931045682",
			TransactionID:   "TXN-1001",
			Status:          provider.PaymentStatusCompleted,
		}, nil).Once()
		paymentRepo.On("GetByReference", ctx, provider.GatewayFawry, "931045682").Return(paid, nil).Once()

		_, err := service.VerifyPayment(ctx, provider.GatewayFawry, "931045682")
		assert.NoError(t, err)

		paymentRepo.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		orderRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestPaymentService_GetPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the payment by id", func(t *testing.T) {
		paymentRepo := new(MockPaymentRepository)
		service := usecase.NewPaymentService(paymentRepo, new(MockOrderRepository), nil, new(MockProviderFactory), new(MockPublisher), zap.NewNop())

		payment := &model.Payment{ID: uuid.New(), Status: model.PaymentStatusPaid}
		paymentRepo.On("GetByID", ctx, payment.ID).Return(payment, nil).Once()

		got, err := service.GetPayment(ctx, payment.ID)
		assert.NoError(t, err)
		assert.Equal(t, payment.ID, got.ID)
	})

	t.Run("missing payment yields not found", func(t *testing.T) {
		paymentRepo := new(MockPaymentRepository)
		service := usecase.NewPaymentService(paymentRepo, new(MockOrderRepository), nil, new(MockProviderFactory), new(MockPublisher), zap.NewNop())

		id := uuid.New()
		paymentRepo.On("GetByID", ctx, id).Return(nil, nil).Once()

		_, err := service.GetPayment(ctx, id)
		assert.ErrorIs(t, err, domainErrors.ErrPaymentNotFound)
	})
}
