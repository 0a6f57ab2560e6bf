package paytabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tarzihub/payment-service/internal/domain/provider"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://secure-egypt.paytabs.com"

// PayTabsProvider implements the PaymentProvider interface for PayTabs
type PayTabsProvider struct {
	baseURL   string
	profileID int
	serverKey string
	returnURL string
	client    *http.Client
	logger    *zap.Logger
}

// NewPayTabsProvider creates a new PayTabs provider instance
func NewPayTabsProvider(baseURL string, profileID int, serverKey, returnURL string, logger *zap.Logger) *PayTabsProvider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &PayTabsProvider{
		baseURL:   baseURL,
		profileID: profileID,
		serverKey: serverKey,
		returnURL: returnURL,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
	}
}

// GetProviderName returns the gateway name
func (p *PayTabsProvider) GetProviderName() string {
	return provider.GatewayPayTabs
}

// CreatePayment opens a hosted payment page and returns its redirect URL.
// POST /payment/request
func (p *PayTabsProvider) CreatePayment(ctx context.Context, req *provider.CreatePaymentRequest) (*provider.CreatePaymentResponse, error) {
	amount, _ := req.Amount.Float64()

	body := map[string]interface{}{
		"profile_id":       p.profileID,
		"tran_type":        "sale",
		"tran_class":       "ecom",
		"cart_id":          req.OrderID,
		"cart_description": req.Description,
		"cart_currency":    req.Currency,
		"cart_amount":      amount,
		"return":           p.returnURL,
		"customer_details": map[string]string{
			"name":  req.CustomerName,
			"email": req.CustomerEmail,
			"phone": req.CustomerPhone,
		},
	}

	respBody, err := p.post(ctx, "/payment/request", body)
	if err != nil {
		return nil, err
	}

	var result struct {
		TranRef     string `json:"tran_ref"`
		RedirectURL string `json:"redirect_url"`
		Code        int    `json:"code"`
		Message     string `json:"message"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Failed to parse response",
			Details: err.Error(),
		}
	}

	if result.TranRef == "" {
		p.logger.Error("PayTabsProvider: Page creation rejected",
			zap.Int("code", result.Code),
			zap.String("message", result.Message))
		return nil, &provider.ProviderError{
			Code:    fmt.Sprintf("PAYTABS_%d", result.Code),
			Message: result.Message,
			Details: string(respBody),
		}
	}

	p.logger.Info("PayTabsProvider: Payment page created",
		zap.String("order_id", req.OrderID),
		zap.String("tran_ref", result.TranRef))

	return &provider.CreatePaymentResponse{
		ReferenceNumber: result.TranRef,
		RedirectURL:     result.RedirectURL,
		Status:          "pending",
	}, nil
}

// VerifyPayment queries the state of a transaction reference.
// POST /payment/query
func (p *PayTabsProvider) VerifyPayment(ctx context.Context, referenceNumber string) (*provider.VerifyPaymentResponse, error) {
	body := map[string]interface{}{
		"profile_id": p.profileID,
		"tran_ref":   referenceNumber,
	}

	respBody, err := p.post(ctx, "/payment/query", body)
	if err != nil {
		return nil, err
	}

	var result struct {
		TranRef      string `json:"tran_ref"`
		CartCurrency string `json:"cart_currency"`
		CartAmount   string `json:"cart_amount"`
		PaymentInfo  struct {
			PaymentMethod string `json:"payment_method"`
		} `json:"payment_info"`
		PaymentResult struct {
			ResponseStatus  string `json:"response_status"`
			ResponseMessage string `json:"response_message"`
			TransactionTime string `json:"transaction_time"`
		} `json:"payment_result"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Failed to parse response",
			Details: err.Error(),
		}
	}

	amount, _ := decimal.NewFromString(result.CartAmount)

	resp := &provider.VerifyPaymentResponse{
		ReferenceNumber: referenceNumber,
		TransactionID:   result.TranRef,
		Status:          mapResponseStatus(result.PaymentResult.ResponseStatus),
		Amount:          amount,
		Currency:        result.CartCurrency,
		PaymentMethod:   result.PaymentInfo.PaymentMethod,
	}
	if resp.Status == provider.PaymentStatusCompleted {
		if parsed, err := time.Parse(time.RFC3339, result.PaymentResult.TransactionTime); err == nil {
			resp.PaidAt = &parsed
		}
	}

	return resp, nil
}

// Refund issues a follow-up refund transaction against the original sale.
// POST /payment/request with tran_type refund
func (p *PayTabsProvider) Refund(ctx context.Context, req *provider.RefundRequest) (*provider.RefundResponse, error) {
	amount, _ := req.Amount.Float64()

	body := map[string]interface{}{
		"profile_id":       p.profileID,
		"tran_type":        "refund",
		"tran_class":       "ecom",
		"tran_ref":         req.TransactionID,
		"cart_id":          req.TransactionID,
		"cart_description": req.Reason,
		"cart_amount":      amount,
	}

	respBody, err := p.post(ctx, "/payment/request", body)
	if err != nil {
		return nil, err
	}

	var result struct {
		TranRef       string `json:"tran_ref"`
		Code          int    `json:"code"`
		Message       string `json:"message"`
		PaymentResult struct {
			ResponseStatus  string `json:"response_status"`
			ResponseMessage string `json:"response_message"`
		} `json:"payment_result"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Failed to parse response",
			Details: err.Error(),
		}
	}

	if result.TranRef == "" || result.PaymentResult.ResponseStatus != "A" {
		p.logger.Error("PayTabsProvider: Refund rejected",
			zap.String("transaction_id", req.TransactionID),
			zap.String("response_status", result.PaymentResult.ResponseStatus),
			zap.String("message", result.PaymentResult.ResponseMessage))
		return nil, &provider.ProviderError{
			Code:    "REFUND_ERROR",
			Message: "PayTabs refund rejected",
			Details: string(respBody),
		}
	}

	p.logger.Info("PayTabsProvider: Refund accepted",
		zap.String("transaction_id", req.TransactionID),
		zap.String("refund_tran_ref", result.TranRef))

	return &provider.RefundResponse{
		RefundTransactionID: result.TranRef,
		Status:              "refunded",
	}, nil
}

func (p *PayTabsProvider) post(ctx context.Context, path string, body interface{}) ([]byte, error) {
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
	httpReq.Header.Set("Authorization", p.serverKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.logger.Error("PayTabsProvider: API request failed", zap.Error(err))
		return nil, &provider.ProviderError{
			Code:    "API_ERROR",
			Message: "PayTabs API request failed",
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
			Message: "PayTabs API request failed",
			Details: string(respBody),
		}
	}

	return respBody, nil
}

// mapResponseStatus maps PayTabs single-letter result codes. A is
// authorized, H is hold, P is pending, C is cancelled, D and E are
// declined/error, V is voided.
func mapResponseStatus(status string) provider.PaymentStatus {
	switch status {
	case "A":
		return provider.PaymentStatusCompleted
	case "H", "P":
		return provider.PaymentStatusPending
	case "C", "V":
		return provider.PaymentStatusCancelled
	case "D", "E":
		return provider.PaymentStatusFailed
	default:
		return provider.PaymentStatusPending
	}
}
