package braintree

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/payment-dispatch/internal/adapter"
	"github.com/yourorg/payment-dispatch/internal/payment"
)

const braintreeAPIBaseURL = "https://payments.braintree-api.com"

// BraintreeAdapter implements adapter.ProviderAdapter against the
// Braintree transaction API. Single attempt per Charge call.
type BraintreeAdapter struct {
	httpClient *http.Client
	apiBaseURL string
	apiKey     string
	supported  map[string]bool
}

// NewBraintreeAdapter creates a BraintreeAdapter.
func NewBraintreeAdapter(client *http.Client, apiKey string) *BraintreeAdapter {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &BraintreeAdapter{
		httpClient: client,
		apiBaseURL: braintreeAPIBaseURL,
		apiKey:     apiKey,
		supported:  adapter.CurrencySet("USD", "EUR", "GBP", "AUD", "NZD"),
	}
}

// WithBaseURL overrides the API endpoint, for tests.
func (b *BraintreeAdapter) WithBaseURL(u string) *BraintreeAdapter {
	b.apiBaseURL = strings.TrimRight(u, "/")
	return b
}

// Name implements adapter.ProviderAdapter.
func (b *BraintreeAdapter) Name() string { return "braintree" }

type transactionRequest struct {
	Amount         string            `json:"amount"`
	CurrencyISO    string            `json:"currencyIsoCode"`
	OrderID        string            `json:"orderId"`
	IdempotencyKey string            `json:"idempotencyKey"`
	CustomFields   map[string]string `json:"customFields,omitempty"`
}

type transactionResponse struct {
	Transaction struct {
		ID     string `json:"id"`
		Status string `json:"status"` // "submitted_for_settlement", "processor_declined", ...
	} `json:"transaction"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// Charge implements adapter.ProviderAdapter.
func (b *BraintreeAdapter) Charge(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
	if err := adapter.ValidateRequest(req, b.supported); err != nil {
		return payment.ChargeResult{}, err
	}

	start := time.Now()
	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	// Braintree takes the amount as a decimal string of major units.
	body, err := json.Marshal(transactionRequest{
		Amount:         fmt.Sprintf("%d.%02d", req.Amount/100, req.Amount%100),
		CurrencyISO:    strings.ToUpper(req.Currency),
		OrderID:        req.OrderRef,
		IdempotencyKey: key,
		CustomFields:   req.Metadata,
	})
	if err != nil {
		return adapter.Failure(b.Name(), payment.CodeNetworkError,
			fmt.Sprintf("failed to encode transaction request: %v", err), start), nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.apiBaseURL+"/transactions", bytes.NewReader(body))
	if err != nil {
		return adapter.Failure(b.Name(), payment.CodeNetworkError,
			fmt.Sprintf("failed to create http request: %v", err), start), nil
	}
	httpReq.Header.Set("Authorization", "Basic "+b.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		code := payment.CodeNetworkError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			code = payment.CodeTimeout
		}
		return adapter.Failure(b.Name(), code, fmt.Sprintf("braintree http call failed: %v", err), start), nil
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return adapter.Failure(b.Name(), payment.CodeMalformedResponse,
			fmt.Sprintf("failed to read braintree response: %v", readErr), start), nil
	}

	var txResp transactionResponse
	if err := json.Unmarshal(bodyBytes, &txResp); err != nil {
		return adapter.Failure(b.Name(), payment.CodeMalformedResponse,
			fmt.Sprintf("unparseable braintree response (HTTP %d)", resp.StatusCode), start), nil
	}

	result := payment.ChargeResult{
		Provider:      b.Name(),
		TransactionID: txResp.Transaction.ID,
		LatencyMs:     time.Since(start).Milliseconds(),
		Details:       map[string]string{"braintree_status": txResp.Transaction.Status},
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300 && txResp.Transaction.Status != "processor_declined":
		result.Status = payment.StatusSucceeded
	case txResp.Transaction.Status == "processor_declined" || resp.StatusCode == http.StatusPaymentRequired:
		result.Status = payment.StatusDeclined
		result.ErrorCode = "processor_declined"
		if len(txResp.Errors) > 0 {
			result.ErrorCode = txResp.Errors[0].Code
			result.ErrorMessage = txResp.Errors[0].Message
		}
	default:
		result.Status = payment.StatusFailed
		result.ErrorCode = fmt.Sprintf("BRAINTREE_HTTP_%d", resp.StatusCode)
		result.ErrorMessage = fmt.Sprintf("braintree request failed with HTTP %d", resp.StatusCode)
		if len(txResp.Errors) > 0 {
			result.ErrorCode = txResp.Errors[0].Code
			result.ErrorMessage = txResp.Errors[0].Message
		}
	}
	return result, nil
}

var _ adapter.ProviderAdapter = (*BraintreeAdapter)(nil)
