package http

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/tarzihub/payment-service/internal/domain/model"
	"github.com/tarzihub/payment-service/internal/middleware/auth"
	"github.com/tarzihub/payment-service/internal/usecase"
	"go.uber.org/zap"
)

type OrderHandler struct {
	orders *usecase.OrderService
	logger *zap.Logger
}

func NewOrderHandler(orders *usecase.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orders: orders,
		logger: logger,
	}
}

type createOrderRequest struct {
	SellerID    string          `json:"seller_id" validate:"required,uuid4"`
	ListingID   string          `json:"listing_id" validate:"required,uuid4"`
	Subtotal    decimal.Decimal `json:"subtotal" validate:"required"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Tax         decimal.Decimal `json:"tax"`
	Currency    string          `json:"currency" validate:"omitempty,len=3"`
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, http.StatusBadRequest, err.Error())
	}

	sellerID, err := uuid.Parse(req.SellerID)
	if err != nil {
		return respondError(c, http.StatusBadRequest, "invalid seller id")
	}
	listingID, err := uuid.Parse(req.ListingID)
	if err != nil {
		return respondError(c, http.StatusBadRequest, "invalid listing id")
	}

	order, err := h.orders.CreateOrder(c.Request().Context(), &usecase.CreateOrderInput{
		BuyerID:     user.UserID,
		SellerID:    sellerID,
		ListingID:   listingID,
		Subtotal:    req.Subtotal,
		DeliveryFee: req.DeliveryFee,
		Tax:         req.Tax,
		Currency:    req.Currency,
	})
	if err != nil {
		h.logger.Error("Failed to create order",
			zap.String("buyer_id", user.UserID.String()),
			zap.Error(err))
		return respondDomainError(c, err)
	}

	return respondCreated(c, order)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	if _, err := auth.RequireAuth(c); err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "invalid order id")
	}

	order, err := h.orders.GetOrder(c.Request().Context(), id)
	if err != nil {
		return respondDomainError(c, err)
	}

	return respondOK(c, order)
}

func (h *OrderHandler) ListOrders(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	orders, total, err := h.orders.ListBuyerOrders(c.Request().Context(), user.UserID, limit, offset)
	if err != nil {
		h.logger.Error("Failed to list orders",
			zap.String("buyer_id", user.UserID.String()),
			zap.Error(err))
		return respondDomainError(c, err)
	}

	return respondOK(c, echo.Map{
		"orders": orders,
		"total":  total,
	})
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Note   string `json:"note" validate:"max=500"`
}

func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "invalid order id")
	}

	var req updateOrderStatusRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, http.StatusBadRequest, err.Error())
	}

	userID := user.UserID
	order, err := h.orders.UpdateStatus(c.Request().Context(), id, model.OrderStatus(req.Status), req.Note, &userID)
	if err != nil {
		return respondDomainError(c, err)
	}

	return respondOK(c, order)
}

func (h *OrderHandler) GetStatusHistory(c echo.Context) error {
	if _, err := auth.RequireAuth(c); err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "invalid order id")
	}

	history, err := h.orders.GetStatusHistory(c.Request().Context(), id)
	if err != nil {
		return respondDomainError(c, err)
	}

	return respondOK(c, history)
}
