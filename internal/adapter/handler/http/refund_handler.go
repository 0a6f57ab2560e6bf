package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/tarzihub/payment-service/internal/middleware/auth"
	"github.com/tarzihub/payment-service/internal/usecase"
	apperrors "github.com/tarzihub/payment-service/pkg/errors"
	"go.uber.org/zap"
)

type RefundHandler struct {
	refunds *usecase.RefundService
	logger  *zap.Logger
}

func NewRefundHandler(refunds *usecase.RefundService, logger *zap.Logger) *RefundHandler {
	return &RefundHandler{
		refunds: refunds,
		logger:  logger,
	}
}

type fullRefundRequest struct {
	OrderID string `json:"order_id" validate:"required,uuid4"`
	Reason  string `json:"reason" validate:"required,max=500"`
}

func (h *RefundHandler) ProcessFullRefund(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	var req fullRefundRequest
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

	adminID := user.UserID
	payment, err := h.refunds.ProcessFullRefund(c.Request().Context(), orderID, req.Reason, &adminID)
	if err != nil {
		apperrors.LogError(h.logger, err, "Full refund failed",
			zap.String("order_id", req.OrderID),
			zap.String("admin_id", adminID.String()))
		return respondDomainError(c, err)
	}

	return respondOK(c, payment)
}

type partialRefundRequest struct {
	OrderID string          `json:"order_id" validate:"required,uuid4"`
	Amount  decimal.Decimal `json:"amount" validate:"required"`
	Reason  string          `json:"reason" validate:"required,max=500"`
}

func (h *RefundHandler) ProcessPartialRefund(c echo.Context) error {
	user, err := auth.RequireAuth(c)
	if err != nil {
		return err
	}

	var req partialRefundRequest
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

	adminID := user.UserID
	payment, err := h.refunds.ProcessPartialRefund(c.Request().Context(), orderID, req.Amount, req.Reason, &adminID)
	if err != nil {
		apperrors.LogError(h.logger, err, "Partial refund failed",
			zap.String("order_id", req.OrderID),
			zap.String("amount", req.Amount.String()),
			zap.String("admin_id", adminID.String()))
		return respondDomainError(c, err)
	}

	return respondOK(c, payment)
}

func (h *RefundHandler) GetRefundHistory(c echo.Context) error {
	if _, err := auth.RequireAuth(c); err != nil {
		return err
	}

	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "invalid order id")
	}

	refunds, paymentExists, err := h.refunds.GetRefundHistory(c.Request().Context(), orderID)
	if err != nil {
		return respondDomainError(c, err)
	}

	return respondOK(c, echo.Map{
		"refunds":        refunds,
		"payment_exists": paymentExists,
	})
}

// GetAuditTrail returns the refund audit entries for an order, attempts and
// failures included.
func (h *RefundHandler) GetAuditTrail(c echo.Context) error {
	if _, err := auth.RequireAuth(c); err != nil {
		return err
	}

	orderID, err := uuid.Parse(c.Param("orderId"))
	if err != nil {
		return respondError(c, http.StatusBadRequest, "invalid order id")
	}

	entries, err := h.refunds.GetAuditTrail(c.Request().Context(), orderID)
	if err != nil {
		return respondDomainError(c, err)
	}

	return respondOK(c, echo.Map{"entries": entries})
}
