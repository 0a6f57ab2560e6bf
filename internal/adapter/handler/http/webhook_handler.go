package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"github.com/tarzihub/payment-service/internal/adapter/repository"
	"github.com/tarzihub/payment-service/internal/config"
	"github.com/tarzihub/payment-service/internal/domain/provider"
	"github.com/tarzihub/payment-service/internal/usecase"
	"go.uber.org/zap"
)

// WebhookHandler receives gateway callbacks. Every delivery is persisted
// before processing; replays of the same (gateway, event id) are absorbed by
// the store and acknowledged without side effects.
type WebhookHandler struct {
	webhooks repository.WebhookRepository
	payments *usecase.PaymentService
	cfg      *config.ServiceConfig
	logger   *zap.Logger
}

func NewWebhookHandler(
	webhooks repository.WebhookRepository,
	payments *usecase.PaymentService,
	cfg *config.ServiceConfig,
	logger *zap.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		webhooks: webhooks,
		payments: payments,
		cfg:      cfg,
		logger:   logger,
	}
}

// webhookEvent is the gateway-agnostic shape extracted from a callback.
type webhookEvent struct {
	EventID         string
	EventType       string
	ReferenceNumber string
}

func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	gateway := c.Param("gateway")

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.logger.Error("Error reading webhook body", zap.Error(err))
		return respondError(c, http.StatusBadRequest, "error reading request body")
	}

	var event *webhookEvent
	switch gateway {
	case provider.GatewayStripe:
		event, err = h.parseStripeEvent(body, c.Request().Header.Get("Stripe-Signature"))
	case provider.GatewayFawry:
		event, err = h.parseFawryEvent(body)
	case provider.GatewayPayMob:
		event, err = h.parsePayMobEvent(body, c.QueryParam("hmac"))
	case provider.GatewayPayTabs:
		event, err = h.parsePayTabsEvent(body, c.Request().Header.Get("Signature"))
	default:
		return respondError(c, http.StatusBadRequest, "unsupported payment gateway: "+gateway)
	}
	if err != nil {
		h.logger.Warn("Webhook rejected",
			zap.String("gateway", gateway),
			zap.Error(err))
		return respondError(c, http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()

	existing, err := h.webhooks.GetEvent(ctx, gateway, event.EventID)
	if err != nil {
		return respondError(c, http.StatusInternalServerError, "internal server error")
	}
	if existing != nil {
		h.logger.Info("Duplicate webhook delivery ignored",
			zap.String("gateway", gateway),
			zap.String("event_id", event.EventID))
		return respondOK(c, echo.Map{"received": true, "duplicate": true})
	}

	if err := h.webhooks.SaveEvent(ctx, gateway, event.EventID, event.EventType, event.ReferenceNumber, body); err != nil {
		return respondError(c, http.StatusInternalServerError, "internal server error")
	}

	h.logger.Info("Webhook event received",
		zap.String("gateway", gateway),
		zap.String("event_id", event.EventID),
		zap.String("event_type", event.EventType),
		zap.String("reference_number", event.ReferenceNumber))

	if event.ReferenceNumber != "" {
		// The verify path owns all state changes; the webhook only nudges it.
		if _, err := h.payments.VerifyPayment(ctx, gateway, event.ReferenceNumber); err != nil {
			h.logger.Error("Webhook-triggered verification failed",
				zap.String("gateway", gateway),
				zap.String("reference_number", event.ReferenceNumber),
				zap.Error(err))
			if markErr := h.webhooks.MarkFailed(ctx, gateway, event.EventID, err); markErr != nil {
				h.logger.Error("Failed to mark webhook event failed", zap.Error(markErr))
			}
			// Acknowledge anyway; the pending-event sweep retries later.
			return respondOK(c, echo.Map{"received": true})
		}
	}

	if err := h.webhooks.MarkProcessed(ctx, gateway, event.EventID); err != nil {
		h.logger.Error("Failed to mark webhook event processed", zap.Error(err))
	}

	return respondOK(c, echo.Map{"received": true})
}

func (h *WebhookHandler) parseStripeEvent(body []byte, signature string) (*webhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(
		body,
		signature,
		h.cfg.Stripe.WebhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("webhook signature verification failed")
	}

	parsed := &webhookEvent{
		EventID:   event.ID,
		EventType: string(event.Type),
	}

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded, stripe.EventTypePaymentIntentPaymentFailed:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, fmt.Errorf("error parsing payment intent")
		}
		parsed.ReferenceNumber = intent.ID
	}

	return parsed, nil
}

func (h *WebhookHandler) parseFawryEvent(body []byte) (*webhookEvent, error) {
	var payload struct {
		RequestID         string `json:"requestId"`
		FawryRefNumber    string `json:"fawryRefNumber"`
		MerchantRefNumber string `json:"merchantRefNumber"`
		OrderStatus       string `json:"orderStatus"`
		MessageSignature  string `json:"messageSignature"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("invalid webhook payload")
	}
	if payload.FawryRefNumber == "" {
		return nil, fmt.Errorf("missing fawry reference number")
	}

	expected := sha256.Sum256([]byte(payload.FawryRefNumber + payload.MerchantRefNumber +
		payload.OrderStatus + h.cfg.Fawry.SecureKey))
	if payload.MessageSignature != hex.EncodeToString(expected[:]) {
		return nil, fmt.Errorf("webhook signature verification failed")
	}

	eventID := payload.RequestID
	if eventID == "" {
		eventID = payload.FawryRefNumber + ":" + payload.OrderStatus
	}

	return &webhookEvent{
		EventID:         eventID,
		EventType:       payload.OrderStatus,
		ReferenceNumber: payload.FawryRefNumber,
	}, nil
}

func (h *WebhookHandler) parsePayMobEvent(body []byte, hmacParam string) (*webhookEvent, error) {
	if hmacParam == "" {
		return nil, fmt.Errorf("missing hmac")
	}

	mac := hmac.New(sha512.New, []byte(h.cfg.PayMob.HMACSecret))
	mac.Write(body)
	if !hmac.Equal([]byte(hex.EncodeToString(mac.Sum(nil))), []byte(hmacParam)) {
		return nil, fmt.Errorf("webhook signature verification failed")
	}

	var payload struct {
		Type string `json:"type"`
		Obj  struct {
			ID    int64 `json:"id"`
			Order struct {
				ID int64 `json:"id"`
			} `json:"order"`
		} `json:"obj"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("invalid webhook payload")
	}
	if payload.Obj.ID == 0 {
		return nil, fmt.Errorf("missing transaction id")
	}

	return &webhookEvent{
		EventID:         fmt.Sprintf("%d", payload.Obj.ID),
		EventType:       payload.Type,
		ReferenceNumber: fmt.Sprintf("%d", payload.Obj.Order.ID),
	}, nil
}

func (h *WebhookHandler) parsePayTabsEvent(body []byte, signature string) (*webhookEvent, error) {
	mac := hmac.New(sha256.New, []byte(h.cfg.PayTabs.ServerKey))
	mac.Write(body)
	if !hmac.Equal([]byte(hex.EncodeToString(mac.Sum(nil))), []byte(signature)) {
		return nil, fmt.Errorf("webhook signature verification failed")
	}

	var payload struct {
		TranRef       string `json:"tran_ref"`
		TranType      string `json:"tran_type"`
		PaymentResult struct {
			ResponseStatus string `json:"response_status"`
		} `json:"payment_result"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("invalid webhook payload")
	}
	if payload.TranRef == "" {
		return nil, fmt.Errorf("missing transaction reference")
	}

	return &webhookEvent{
		EventID:         payload.TranRef + ":" + payload.PaymentResult.ResponseStatus,
		EventType:       payload.TranType,
		ReferenceNumber: payload.TranRef,
	}, nil
}
