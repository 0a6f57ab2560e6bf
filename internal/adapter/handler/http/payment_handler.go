package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/tarzihub/payment-service/internal/middleware/auth"
	"github.com/tarzihub/payment-service/internal/usecase"
	"go.uber.org/zap"
)

type PaymentHandler struct {
	payments *usecase.PaymentService
	logger   *zap.Logger
}

func NewPaymentHandler(payments *usecase.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		logger:   logger,
	}
}

type createPaymentRequest struct {
	OrderID       string `json:"order_id" validate:"required,uuid4"`
	Gateway       string `json:"gateway" validate:"required,oneof=fawry paymob paytabs stripe"`
	CustomerName  string `json:"customer_name" validate:"required,max=200"`
	CustomerEmail string `json:"customer_email" validate:"required,email"`
	CustomerPhone string `json:"customer_phone" validate:"required,max=20"`
}

func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	var req createPaymentRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return respondError(c, http.StatusBadRequest, err.Error())
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return respondError(c, http.StatusBadRequest, "invalid order id")
	}

	result, err := h.payments.CreatePayment(c.Request().Context(), &usecase.CreatePaymentInput{
		OrderID:       orderID,
		Gateway:       req.Gateway,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
	})
	if err != nil {
		h.logger.Error("Failed to create payment",
			zap.String("order_id", req.OrderID),
			zap.String("gateway", req.Gateway),
			zap.String("user_id", user.UserID.String()),
			zap.Error(err))
		return respondDomainError(c, err)
	}

	return respondCreated(c, result)
}

func (h *PaymentHandler) VerifyPayment(c echo.Context) error {
	if _, err := auth.RequireAuth(c); err != nil {
		return err
	}

	gateway := c.Param("gateway")
	reference := c.Param("reference")
	if gateway == "" || reference == "" {
		return respondError(c, http.StatusBadRequest, "gateway and reference are required")
	}

	result, err := h.payments.VerifyPayment(c.Request().Context(), gateway, reference)
	if err != nil {
		h.logger.Error("Failed to verify payment",
			zap.String("gateway", gateway),
			zap.String("reference", reference),
			zap.Error(err))
		return respondDomainError(c, err)
	}

	return respondOK(c, result)
}

func (h *PaymentHandler) GetPayment(c echo.Context) error {
	if _, err := auth.RequireAuth(c); err != nil {
		return err
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "invalid payment id")
	}

	payment, err := h.payments.GetPayment(c.Request().Context(), id)
	if err != nil {
		return respondDomainError(c, err)
	}

	return respondOK(c, payment)
}
