package fawry

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tarzihub/payment-service/internal/domain/provider"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://atfawry.fawrystaging.com"

// FawryProvider implements the PaymentProvider interface for Fawry
type FawryProvider struct {
	baseURL      string
	merchantCode string
	secureKey    string
	client       *http.Client
	logger       *zap.Logger
}

// NewFawryProvider creates a new Fawry provider instance
func NewFawryProvider(baseURL, merchantCode, secureKey string, logger *zap.Logger) *FawryProvider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &FawryProvider{
		baseURL:      baseURL,
		merchantCode: merchantCode,
		secureKey:    secureKey,
		client:       &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
	}
}

// GetProviderName returns the gateway name
func (p *FawryProvider) GetProviderName() string {
	return provider.GatewayFawry
}

// createSignature builds the SHA-256 charge signature over
// merchantCode + merchantRefNum + customerProfileId + paymentMethod +
// amount + secureKey.
func (p *FawryProvider) createSignature(merchantRefNum, customerProfileID, paymentMethod string, amount decimal.Decimal) string {
	payload := p.merchantCode + merchantRefNum + customerProfileID + paymentMethod + amount.StringFixed(2) + p.secureKey
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// statusSignature builds the SHA-256 status signature over
// merchantCode + merchantRefNum + secureKey.
func (p *FawryProvider) statusSignature(merchantRefNum string) string {
	sum := sha256.Sum256([]byte(p.merchantCode + merchantRefNum + p.secureKey))
	return hex.EncodeToString(sum[:])
}

// refundSignature builds the SHA-256 refund signature over
// merchantCode + referenceNumber + amount + reason + secureKey.
func (p *FawryProvider) refundSignature(referenceNumber string, amount decimal.Decimal, reason string) string {
	payload := p.merchantCode + referenceNumber + amount.StringFixed(2) + reason + p.secureKey
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// CreatePayment registers a charge with Fawry and returns the reference
// number the customer pays against.
// POST /ECommerceWeb/Fawry/payments/charge
func (p *FawryProvider) CreatePayment(ctx context.Context, req *provider.CreatePaymentRequest) (*provider.CreatePaymentResponse, error) {
	paymentMethod := "PAYATFAWRY"

	body := map[string]interface{}{
		"merchantCode":      p.merchantCode,
		"merchantRefNum":    req.OrderID,
		"customerProfileId": req.CustomerPhone,
		"customerName":      req.CustomerName,
		"customerMobile":    req.CustomerPhone,
		"customerEmail":     req.CustomerEmail,
		"paymentMethod":     paymentMethod,
		"amount":            req.Amount.StringFixed(2),
		"currencyCode":      req.Currency,
		"description":       req.Description,
		"chargeItems": []map[string]interface{}{
			{
				"itemId":   req.OrderID,
				"price":    req.Amount.StringFixed(2),
				"quantity": 1,
			},
		},
		"signature": p.createSignature(req.OrderID, req.CustomerPhone, paymentMethod, req.Amount),
	}

	respBody, err := p.post(ctx, "/ECommerceWeb/Fawry/payments/charge", body)
	if err != nil {
		return nil, err
	}

	var result struct {
		Type            string `json:"type"`
		ReferenceNumber string `json:"referenceNumber"`
		StatusCode      int    `json:"statusCode"`
		StatusDesc      string `json:"statusDescription"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Failed to parse response",
			Details: err.Error(),
		}
	}

	if result.StatusCode != 200 {
		p.logger.Error("FawryProvider: Charge rejected",
			zap.Int("status_code", result.StatusCode),
			zap.String("description", result.StatusDesc))
		return nil, &provider.ProviderError{
			Code:    fmt.Sprintf("FAWRY_%d", result.StatusCode),
			Message: result.StatusDesc,
			Details: string(respBody),
		}
	}

	p.logger.Info("FawryProvider: Charge created",
		zap.String("order_id", req.OrderID),
		zap.String("reference_number", result.ReferenceNumber))

	return &provider.CreatePaymentResponse{
		ReferenceNumber: result.ReferenceNumber,
		Status:          "pending",
		ProviderData: map[string]interface{}{
			"payment_method": paymentMethod,
		},
	}, nil
}

// VerifyPayment queries Fawry for the state of a charge.
// GET /ECommerceWeb/Fawry/payments/status/v2
func (p *FawryProvider) VerifyPayment(ctx context.Context, referenceNumber string) (*provider.VerifyPaymentResponse, error) {
	url := fmt.Sprintf("%s/ECommerceWeb/Fawry/payments/status/v2?merchantCode=%s&merchantRefNumber=%s&signature=%s",
		p.baseURL, p.merchantCode, referenceNumber, p.statusSignature(referenceNumber))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &provider.ProviderError{
			Code:    "REQUEST_ERROR",
			Message: "Failed to create request",
			Details: err.Error(),
		}
	}

	respBody, err := p.do(httpReq)
	if err != nil {
		return nil, err
	}

	var result struct {
		MerchantRefNumber string `json:"merchantRefNumber"`
		FawryRefNumber    string `json:"fawryRefNumber"`
		OrderStatus       string `json:"orderStatus"`
		PaymentAmount     string `json:"paymentAmount"`
		PaymentMethod     string `json:"paymentMethod"`
		PaymentTime       int64  `json:"paymentTime"`
		StatusCode        int    `json:"statusCode"`
		StatusDesc        string `json:"statusDescription"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Failed to parse response",
			Details: err.Error(),
		}
	}

	if result.StatusCode != 200 {
		return nil, &provider.ProviderError{
			Code:    fmt.Sprintf("FAWRY_%d", result.StatusCode),
			Message: result.StatusDesc,
			Details: string(respBody),
		}
	}

	amount, _ := decimal.NewFromString(result.PaymentAmount)

	resp := &provider.VerifyPaymentResponse{
		ReferenceNumber: referenceNumber,
		TransactionID:   result.FawryRefNumber,
		Status:          mapOrderStatus(result.OrderStatus),
		Amount:          amount,
		Currency:        "EGP",
		PaymentMethod:   result.PaymentMethod,
	}
	if result.PaymentTime > 0 {
		t := time.UnixMilli(result.PaymentTime)
		resp.PaidAt = &t
	}

	return resp, nil
}

// Refund moves money back to the customer for a paid Fawry reference.
// POST /ECommerceWeb/Fawry/payments/refund
func (p *FawryProvider) Refund(ctx context.Context, req *provider.RefundRequest) (*provider.RefundResponse, error) {
	body := map[string]interface{}{
		"merchantCode":    p.merchantCode,
		"referenceNumber": req.TransactionID,
		"refundAmount":    req.Amount.StringFixed(2),
		"reason":          req.Reason,
		"signature":       p.refundSignature(req.TransactionID, req.Amount, req.Reason),
	}

	respBody, err := p.post(ctx, "/ECommerceWeb/Fawry/payments/refund", body)
	if err != nil {
		return nil, err
	}

	var result struct {
		FawryRefNumber string `json:"fawryRefNumber"`
		StatusCode     int    `json:"statusCode"`
		StatusDesc     string `json:"statusDescription"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Failed to parse response",
			Details: err.Error(),
		}
	}

	if result.StatusCode != 200 {
		p.logger.Error("FawryProvider: Refund rejected",
			zap.Int("status_code", result.StatusCode),
			zap.String("description", result.StatusDesc))
		return nil, &provider.ProviderError{
			Code:    fmt.Sprintf("FAWRY_%d", result.StatusCode),
			Message: result.StatusDesc,
			Details: string(respBody),
		}
	}

	p.logger.Info("FawryProvider: Refund accepted",
		zap.String("transaction_id", req.TransactionID),
		zap.String("amount", req.Amount.String()))

	refundID := result.FawryRefNumber
	if refundID == "" {
		refundID = req.TransactionID
	}

	return &provider.RefundResponse{
		RefundTransactionID: refundID,
		Status:              "refunded",
	}, nil
}

func (p *FawryProvider) post(ctx context.Context, path string, body interface{}) ([]byte, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, &provider.ProviderError{
			Code:    "MARSHAL_ERROR",
			Message: "Failed to prepare request",
			Details: err.Error(),
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, &provider.ProviderError{
			Code:    "REQUEST_ERROR",
			Message: "Failed to create request",
			Details: err.Error(),
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	return p.do(httpReq)
}

func (p *FawryProvider) do(httpReq *http.Request) ([]byte, error) {
	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.logger.Error("FawryProvider: API request failed", zap.Error(err))
		return nil, &provider.ProviderError{
			Code:    "API_ERROR",
			Message: "Fawry API request failed",
			Details: err.Error(),
		}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &provider.ProviderError{
			Code:    "RESPONSE_ERROR",
			Message: "Failed to read response",
			Details: err.Error(),
		}
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, &provider.ProviderError{
			Code:    fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message: "Fawry API request failed",
			Details: string(respBody),
		}
	}

	return respBody, nil
}

func mapOrderStatus(status string) provider.PaymentStatus {
	switch status {
	case "PAID", "DELIVERED":
		return provider.PaymentStatusCompleted
	case "FAILED", "EXPIRED":
		return provider.PaymentStatusFailed
	case "CANCELLED":
		return provider.PaymentStatusCancelled
	case "REFUNDED", "PARTIAL_REFUNDED":
		return provider.PaymentStatusRefunded
	default:
		return provider.PaymentStatusPending
	}
}
