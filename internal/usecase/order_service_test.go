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
	"github.com/tarzihub/payment-service/internal/events"
	"github.com/tarzihub/payment-service/internal/usecase"
)

func TestOrderService_CreateOrder(t *testing.T) {
	ctx := context.Background()

	t.Run("computes the total server-side", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		service := usecase.NewOrderService(orderRepo, new(MockPublisher), zap.NewNop())

		orderRepo.On("Create", ctx, mock.MatchedBy(func(order *model.Order) bool {
			return order.Total.Equal(decimal.RequireFromString("150.50")) &&
				order.Status == model.OrderStatusPendingPayment &&
				order.Currency == "EGP"
		})).Return(nil).Once()

		order, err := service.CreateOrder(ctx, &usecase.CreateOrderInput{
			BuyerID:     uuid.New(),
			SellerID:    uuid.New(),
			ListingID:   uuid.New(),
			Subtotal:    decimal.RequireFromString("120.00"),
			DeliveryFee: decimal.RequireFromString("25.00"),
			Tax:         decimal.RequireFromString("5.50"),
		})
		assert.NoError(t, err)
		assert.True(t, order.Total.Equal(decimal.RequireFromString("150.50")))
		assert.NotEqual(t, uuid.Nil, order.ID)

		orderRepo.AssertExpectations(t)
	})

	t.Run("rejects a non-positive subtotal", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		service := usecase.NewOrderService(orderRepo, new(MockPublisher), zap.NewNop())

		_, err := service.CreateOrder(ctx, &usecase.CreateOrderInput{
			Subtotal: decimal.Zero,
		})
		assert.Error(t, err)

		orderRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("rejects negative fee or tax", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		service := usecase.NewOrderService(orderRepo, new(MockPublisher), zap.NewNop())

		_, err := service.CreateOrder(ctx, &usecase.CreateOrderInput{
			Subtotal:    decimal.RequireFromString("100.00"),
			DeliveryFee: decimal.RequireFromString("-1.00"),
		})
		assert.Error(t, err)

		orderRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("defaults the currency", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		service := usecase.NewOrderService(orderRepo, new(MockPublisher), zap.NewNop())

		orderRepo.On("Create", ctx, mock.Anything).Return(nil).Once()

		order, err := service.CreateOrder(ctx, &usecase.CreateOrderInput{
			Subtotal: decimal.RequireFromString("100.00"),
			Currency: "",
		})
		assert.NoError(t, err)
		assert.Equal(t, "EGP", order.Currency)
	})
}

func TestOrderService_ListBuyerOrders(t *testing.T) {
	ctx := context.Background()
	buyerID := uuid.New()

	t.Run("clamps the page size", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		service := usecase.NewOrderService(orderRepo, new(MockPublisher), zap.NewNop())

		orderRepo.On("ListByBuyer", ctx, buyerID, 100, 0).Return([]*model.Order{}, int64(0), nil).Once()

		_, _, err := service.ListBuyerOrders(ctx, buyerID, 500, -3)
		assert.NoError(t, err)
		orderRepo.AssertExpectations(t)
	})

	t.Run("applies the default page size", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		service := usecase.NewOrderService(orderRepo, new(MockPublisher), zap.NewNop())

		orders := []*model.Order{{ID: uuid.New(), BuyerID: buyerID}}
		orderRepo.On("ListByBuyer", ctx, buyerID, 10, 0).Return(orders, int64(1), nil).Once()

		got, total, err := service.ListBuyerOrders(ctx, buyerID, 0, 0)
		assert.NoError(t, err)
		assert.Len(t, got, 1)
		assert.Equal(t, int64(1), total)
	})
}

func TestOrderService_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()

	activeOrder := func(status model.OrderStatus) *model.Order {
		return &model.Order{
			ID:       orderID,
			BuyerID:  uuid.New(),
			Status:   status,
			Total:    decimal.RequireFromString("150.50"),
			Currency: "EGP",
		}
	}

	t.Run("moves the order and publishes the transition", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		publisher := new(MockPublisher)
		service := usecase.NewOrderService(orderRepo, publisher, zap.NewNop())

		orderRepo.On("GetByID", ctx, orderID).Return(activeOrder(model.OrderStatusProcessing), nil).Once()
		orderRepo.On("UpdateStatus", ctx, orderID, model.OrderStatusInTailoring, "fabric cut started", (*uuid.UUID)(nil)).Return(nil).Once()
		publisher.On("Publish", ctx, events.EventOrderUpdated, mock.Anything).Return(nil).Once()

		order, err := service.UpdateStatus(ctx, orderID, model.OrderStatusInTailoring, "fabric cut started", nil)
		assert.NoError(t, err)
		assert.Equal(t, model.OrderStatusInTailoring, order.Status)

		orderRepo.AssertExpectations(t)
		publisher.AssertExpectations(t)
	})

	t.Run("refund statuses cannot be set directly", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		service := usecase.NewOrderService(orderRepo, new(MockPublisher), zap.NewNop())

		for _, status := range []model.OrderStatus{model.OrderStatusRefunded, model.OrderStatusPartiallyRefunded} {
			_, err := service.UpdateStatus(ctx, orderID, status, "", nil)
			assert.ErrorIs(t, err, domainErrors.ErrInvalidStatusTransition)
		}

		orderRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("terminal orders cannot move", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		service := usecase.NewOrderService(orderRepo, new(MockPublisher), zap.NewNop())

		orderRepo.On("GetByID", ctx, orderID).Return(activeOrder(model.OrderStatusCancelled), nil).Once()

		_, err := service.UpdateStatus(ctx, orderID, model.OrderStatusProcessing, "", nil)
		assert.ErrorIs(t, err, domainErrors.ErrInvalidStatusTransition)

		orderRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		publisher := new(MockPublisher)
		service := usecase.NewOrderService(orderRepo, publisher, zap.NewNop())

		orderRepo.On("GetByID", ctx, orderID).Return(activeOrder(model.OrderStatusProcessing), nil).Once()

		order, err := service.UpdateStatus(ctx, orderID, model.OrderStatusProcessing, "", nil)
		assert.NoError(t, err)
		assert.Equal(t, model.OrderStatusProcessing, order.Status)

		orderRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing order yields not found", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		service := usecase.NewOrderService(orderRepo, new(MockPublisher), zap.NewNop())

		orderRepo.On("GetByID", ctx, orderID).Return(nil, nil).Once()

		_, err := service.UpdateStatus(ctx, orderID, model.OrderStatusProcessing, "", nil)
		assert.ErrorIs(t, err, domainErrors.ErrOrderNotFound)
	})
}

func TestOrderService_GetStatusHistory(t *testing.T) {
	ctx := context.Background()
	orderID := uuid.New()

	t.Run("returns transitions in append order", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		service := usecase.NewOrderService(orderRepo, new(MockPublisher), zap.NewNop())

		now := time.Now()
		history := []model.OrderStatusEvent{
			{ID: 1, OrderID: orderID, Status: model.OrderStatusPendingPayment, CreatedAt: now.Add(-time.Hour)},
			{ID: 2, OrderID: orderID, Status: model.OrderStatusProcessing, CreatedAt: now},
		}

		orderRepo.On("GetByID", ctx, orderID).Return(&model.Order{ID: orderID}, nil).Once()
		orderRepo.On("GetStatusHistory", ctx, orderID).Return(history, nil).Once()

		got, err := service.GetStatusHistory(ctx, orderID)
		assert.NoError(t, err)
		assert.Len(t, got, 2)
		assert.Equal(t, model.OrderStatusPendingPayment, got[0].Status)
	})

	t.Run("missing order yields not found", func(t *testing.T) {
		orderRepo := new(MockOrderRepository)
		service := usecase.NewOrderService(orderRepo, new(MockPublisher), zap.NewNop())

		orderRepo.On("GetByID", ctx, orderID).Return(nil, nil).Once()

		_, err := service.GetStatusHistory(ctx, orderID)
		assert.ErrorIs(t, err, domainErrors.ErrOrderNotFound)

		orderRepo.AssertNotCalled(t, "GetStatusHistory", mock.Anything, mock.Anything)
	})
}
