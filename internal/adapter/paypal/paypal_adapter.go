package paypal

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

const paypalAPIBaseURL = "https://api-m.paypal.com"

// PayPalAdapter implements adapter.ProviderAdapter against the PayPal
// orders capture API. Single attempt per Charge call; the
// PayPal-Request-Id header carries the idempotency key.
type PayPalAdapter struct {
	httpClient  *http.Client
	apiBaseURL  string
	accessToken string
	supported   map[string]bool
}

// NewPayPalAdapter creates a PayPalAdapter. accessToken is the OAuth
// bearer token obtained out of band and supplied via configuration.
func NewPayPalAdapter(client *http.Client, accessToken string) *PayPalAdapter {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &PayPalAdapter{
		httpClient:  client,
		apiBaseURL:  paypalAPIBaseURL,
		accessToken: accessToken,
		supported:   adapter.CurrencySet("USD", "EUR", "GBP", "JPY", "BRL"),
	}
}

// WithBaseURL overrides the API endpoint, for tests.
func (p *PayPalAdapter) WithBaseURL(u string) *PayPalAdapter {
	p.apiBaseURL = strings.TrimRight(u, "/")
	return p
}

// Name implements adapter.ProviderAdapter.
func (p *PayPalAdapter) Name() string { return "paypal" }

type captureRequest struct {
	Intent        string `json:"intent"`
	PurchaseUnits []struct {
		ReferenceID string `json:"reference_id"`
		Amount      struct {
			CurrencyCode string `json:"currency_code"`
			Value        string `json:"value"`
		} `json:"amount"`
	} `json:"purchase_units"`
}

type captureResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"` // "COMPLETED", "DECLINED", ...
	Name    string `json:"name"`   // error name on failures
	Message string `json:"message"`
	Details []struct {
		Issue       string `json:"issue"`
		Description string `json:"description"`
	} `json:"details"`
}

func buildCaptureRequest(req payment.ChargeRequest) captureRequest {
	var cr captureRequest
	cr.Intent = "CAPTURE"
	cr.PurchaseUnits = make([]struct {
		ReferenceID string `json:"reference_id"`
		Amount      struct {
			CurrencyCode string `json:"currency_code"`
			Value        string `json:"value"`
		} `json:"amount"`
	}, 1)
	cr.PurchaseUnits[0].ReferenceID = req.OrderRef
	cr.PurchaseUnits[0].Amount.CurrencyCode = strings.ToUpper(req.Currency)
	cr.PurchaseUnits[0].Amount.Value = fmt.Sprintf("%d.%02d", req.Amount/100, req.Amount%100)
	return cr
}

// Charge implements adapter.ProviderAdapter.
func (p *PayPalAdapter) Charge(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
	if err := adapter.ValidateRequest(req, p.supported); err != nil {
		return payment.ChargeResult{}, err
	}

	start := time.Now()
	body, err := json.Marshal(buildCaptureRequest(req))
	if err != nil {
		return adapter.Failure(p.Name(), payment.CodeNetworkError,
			fmt.Sprintf("failed to encode capture request: %v", err), start), nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBaseURL+"/v2/checkout/orders", bytes.NewReader(body))
	if err != nil {
		return adapter.Failure(p.Name(), payment.CodeNetworkError,
			fmt.Sprintf("failed to create http request: %v", err), start), nil
	}
	requestID := req.IdempotencyKey
	if requestID == "" {
		requestID = uuid.NewString()
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.accessToken)
	httpReq.Header.Set("PayPal-Request-Id", requestID)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		code := payment.CodeNetworkError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			code = payment.CodeTimeout
		}
		return adapter.Failure(p.Name(), code, fmt.Sprintf("paypal http call failed: %v", err), start), nil
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return adapter.Failure(p.Name(), payment.CodeMalformedResponse,
			fmt.Sprintf("failed to read paypal response: %v", readErr), start), nil
	}

	var capResp captureResponse
	if err := json.Unmarshal(bodyBytes, &capResp); err != nil {
		return adapter.Failure(p.Name(), payment.CodeMalformedResponse,
			fmt.Sprintf("unparseable paypal response (HTTP %d)", resp.StatusCode), start), nil
	}

	result := payment.ChargeResult{
		Provider:      p.Name(),
		TransactionID: capResp.ID,
		LatencyMs:     time.Since(start).Milliseconds(),
		Details:       map[string]string{"paypal_status": capResp.Status},
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300 && capResp.Status != "DECLINED":
		result.Status = payment.StatusSucceeded
	case capResp.Status == "DECLINED" || instrumentDeclined(capResp):
		result.Status = payment.StatusDeclined
		result.ErrorCode = "INSTRUMENT_DECLINED"
		result.ErrorMessage = capResp.Message
		if len(capResp.Details) > 0 {
			result.ErrorCode = capResp.Details[0].Issue
			result.ErrorMessage = capResp.Details[0].Description
		}
	default:
		result.Status = payment.StatusFailed
		result.ErrorCode = capResp.Name
		result.ErrorMessage = capResp.Message
		if result.ErrorCode == "" {
			result.ErrorCode = fmt.Sprintf("PAYPAL_HTTP_%d", resp.StatusCode)
			result.ErrorMessage = fmt.Sprintf("paypal request failed with HTTP %d", resp.StatusCode)
		}
	}
	return result, nil
}

func instrumentDeclined(r captureResponse) bool {
	for _, d := range r.Details {
		if d.Issue == "INSTRUMENT_DECLINED" {
			return true
		}
	}
	return false
}

var _ adapter.ProviderAdapter = (*PayPalAdapter)(nil)
