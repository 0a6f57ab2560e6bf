package paymob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tarzihub/payment-service/internal/domain/provider"
	"go.uber.org/zap"
)

const defaultBaseURL = "https://accept.paymob.com/api"

// PayMobProvider implements the PaymentProvider interface for PayMob
// (Accept). Every call starts with an auth-token exchange; the token is
// short-lived and never cached.
type PayMobProvider struct {
	baseURL       string
	apiKey        string
	integrationID int
	iframeID      string
	client        *http.Client
	logger        *zap.Logger
}

// NewPayMobProvider creates a new PayMob provider instance
func NewPayMobProvider(baseURL, apiKey string, integrationID int, iframeID string, logger *zap.Logger) *PayMobProvider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &PayMobProvider{
		baseURL:       baseURL,
		apiKey:        apiKey,
		integrationID: integrationID,
		iframeID:      iframeID,
		client:        &http.Client{Timeout: 30 * time.Second},
		logger:        logger,
	}
}

// GetProviderName returns the gateway name
func (p *PayMobProvider) GetProviderName() string {
	return provider.GatewayPayMob
}

// authenticate exchanges the API key for a short-lived auth token.
// POST /auth/tokens
func (p *PayMobProvider) authenticate(ctx context.Context) (string, error) {
	respBody, err := p.post(ctx, "/auth/tokens", map[string]string{"api_key": p.apiKey}, "")
	if err != nil {
		return "", err
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Failed to parse response",
			Details: err.Error(),
		}
	}
	if result.Token == "" {
		return "", &provider.ProviderError{
			Code:    "AUTH_ERROR",
			Message: "PayMob authentication failed",
		}
	}

	return result.Token, nil
}

// CreatePayment runs PayMob's three-step flow: auth token, order
// registration, then payment key. The payment key is what the iframe needs.
func (p *PayMobProvider) CreatePayment(ctx context.Context, req *provider.CreatePaymentRequest) (*provider.CreatePaymentResponse, error) {
	token, err := p.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	amountCents := req.Amount.Mul(decimal.NewFromInt(100)).IntPart()

	// Step 2: order registration
	orderBody := map[string]interface{}{
		"auth_token":        token,
		"delivery_needed":   false,
		"amount_cents":      amountCents,
		"currency":          req.Currency,
		"merchant_order_id": req.OrderID,
		"items":             []interface{}{},
	}
	respBody, err := p.post(ctx, "/ecommerce/orders", orderBody, "")
	if err != nil {
		return nil, err
	}

	var orderResp struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal(respBody, &orderResp); err != nil || orderResp.ID == 0 {
		return nil, &provider.ProviderError{
			Code:    "ORDER_ERROR",
			Message: "PayMob order registration failed",
			Details: string(respBody),
		}
	}

	// Step 3: payment key
	keyBody := map[string]interface{}{
		"auth_token":     token,
		"amount_cents":   amountCents,
		"expiration":     3600,
		"order_id":       orderResp.ID,
		"currency":       req.Currency,
		"integration_id": p.integrationID,
		"billing_data": map[string]string{
			"first_name":   req.CustomerName,
			"last_name":    "NA",
			"email":        req.CustomerEmail,
			"phone_number": req.CustomerPhone,
			"apartment":    "NA",
			"floor":        "NA",
			"street":       "NA",
			"building":     "NA",
			"city":         "NA",
			"country":      "EG",
		},
	}
	respBody, err = p.post(ctx, "/acceptance/payment_keys", keyBody, "")
	if err != nil {
		return nil, err
	}

	var keyResp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(respBody, &keyResp); err != nil || keyResp.Token == "" {
		return nil, &provider.ProviderError{
			Code:    "PAYMENT_KEY_ERROR",
			Message: "PayMob payment key creation failed",
			Details: string(respBody),
		}
	}

	referenceNumber := strconv.FormatInt(orderResp.ID, 10)

	p.logger.Info("PayMobProvider: Payment created",
		zap.String("order_id", req.OrderID),
		zap.String("reference_number", referenceNumber))

	return &provider.CreatePaymentResponse{
		ReferenceNumber: referenceNumber,
		RedirectURL: fmt.Sprintf("https://accept.paymob.com/api/acceptance/iframes/%s?payment_token=%s",
			p.iframeID, keyResp.Token),
		Status: "pending",
		ProviderData: map[string]interface{}{
			"paymob_order_id": orderResp.ID,
		},
	}, nil
}

// VerifyPayment looks up the transaction registered under the PayMob order.
// GET /ecommerce/orders/{id}
func (p *PayMobProvider) VerifyPayment(ctx context.Context, referenceNumber string) (*provider.VerifyPaymentResponse, error) {
	token, err := p.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/ecommerce/orders/%s", p.baseURL, referenceNumber)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &provider.ProviderError{
			Code:    "REQUEST_ERROR",
			Message: "Failed to create request",
			Details: err.Error(),
		}
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)

	respBody, err := p.do(httpReq)
	if err != nil {
		return nil, err
	}

	var result struct {
		ID            int64  `json:"id"`
		AmountCents   int64  `json:"amount_cents"`
		Currency      string `json:"currency"`
		PaymentStatus string `json:"payment_status"`
		Transactions  []struct {
			ID        int64  `json:"id"`
			Success   bool   `json:"success"`
			Pending   bool   `json:"pending"`
			CreatedAt string `json:"created_at"`
			SourceData struct {
				Type string `json:"type"`
			} `json:"source_data"`
		} `json:"transactions"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Failed to parse response",
			Details: err.Error(),
		}
	}

	resp := &provider.VerifyPaymentResponse{
		ReferenceNumber: referenceNumber,
		Status:          provider.PaymentStatusPending,
		Amount:          decimal.NewFromInt(result.AmountCents).Div(decimal.NewFromInt(100)),
		Currency:        result.Currency,
	}

	for _, tx := range result.Transactions {
		if tx.Pending {
			continue
		}
		resp.TransactionID = strconv.FormatInt(tx.ID, 10)
		resp.PaymentMethod = tx.SourceData.Type
		if tx.Success {
			resp.Status = provider.PaymentStatusCompleted
			if parsed, err := time.Parse(time.RFC3339, tx.CreatedAt); err == nil {
				resp.PaidAt = &parsed
			}
		} else {
			resp.Status = provider.PaymentStatusFailed
		}
		break
	}

	return resp, nil
}

// Refund voids or refunds a captured PayMob transaction.
// POST /acceptance/void_refund/refund
func (p *PayMobProvider) Refund(ctx context.Context, req *provider.RefundRequest) (*provider.RefundResponse, error) {
	token, err := p.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]interface{}{
		"auth_token":     token,
		"transaction_id": req.TransactionID,
		"amount_cents":   req.Amount.Mul(decimal.NewFromInt(100)).IntPart(),
	}

	respBody, err := p.post(ctx, "/acceptance/void_refund/refund", body, "")
	if err != nil {
		return nil, err
	}

	var result struct {
		ID      int64 `json:"id"`
		Success bool  `json:"success"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &provider.ProviderError{
			Code:    "PARSE_ERROR",
			Message: "Failed to parse response",
			Details: err.Error(),
		}
	}

	if !result.Success {
		p.logger.Error("PayMobProvider: Refund rejected",
			zap.String("transaction_id", req.TransactionID),
			zap.String("response", string(respBody)))
		return nil, &provider.ProviderError{
			Code:    "REFUND_ERROR",
			Message: "PayMob refund rejected",
			Details: string(respBody),
		}
	}

	p.logger.Info("PayMobProvider: Refund accepted",
		zap.String("transaction_id", req.TransactionID),
		zap.Int64("refund_id", result.ID))

	return &provider.RefundResponse{
		RefundTransactionID: strconv.FormatInt(result.ID, 10),
		Status:              "refunded",
	}, nil
}

func (p *PayMobProvider) post(ctx context.Context, path string, body interface{}, bearer string) ([]byte, error) {
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
	if bearer != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearer)
	}

	return p.do(httpReq)
}

func (p *PayMobProvider) do(httpReq *http.Request) ([]byte, error) {
	resp, err := p.client.Do(httpReq)
	if err != nil {
		p.logger.Error("PayMobProvider: API request failed", zap.Error(err))
		return nil, &provider.ProviderError{
			Code:    "API_ERROR",
			Message: "PayMob API request failed",
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

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &provider.ProviderError{
			Code:    fmt.Sprintf("HTTP_%d", resp.StatusCode),
			Message: "PayMob API request failed",
			Details: string(respBody),
		}
	}

	return respBody, nil
}
