// Package adapter defines the interface for payment provider adapters
// and shared validation helpers. Adapters handle all provider-specific
// API calls, including serialization, idempotency headers, and error
// mapping, normalizing raw provider responses into a common
// payment.ChargeResult. Retries are the caller's responsibility: an
// adapter performs exactly one external attempt per invocation.
package adapter

import (
	"context"
	"strings"
	"time"

	"github.com/yourorg/payment-dispatch/internal/payment"
)

// ProviderAdapter is the interface implemented by each payment gateway
// adapter.
//
// Error-return discipline: a non-nil error is reserved for caller-input
// problems (invalid amount, unsupported currency) detected before any
// network call. Provider-side conditions (success, decline, timeout,
// transport failure, malformed response) are reported inside the
// ChargeResult with a nil error, so they never escape the adapter
// boundary as panics or errors.
type ProviderAdapter interface {
	// Name returns the stable provider identifier (e.g. "stripe").
	Name() string

	// Charge submits a single charge attempt to the external provider.
	// The context carries the caller's timeout/cancellation; a cancelled
	// call maps to StatusFailed and the provider's ledger remains the
	// source of truth for the ambiguous outcome.
	Charge(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error)
}

// ValidateRequest runs the pre-flight checks every adapter performs
// before contacting its provider: amount positivity and currency support.
// supported is the adapter's accepted set of upper-case ISO-4217 codes.
func ValidateRequest(req payment.ChargeRequest, supported map[string]bool) error {
	if err := req.Validate(); err != nil {
		return err
	}
	cur := strings.ToUpper(strings.TrimSpace(req.Currency))
	if !supported[cur] {
		return &payment.Error{
			Code:    payment.CodeUnsupportedCurrency,
			Message: "currency " + cur + " is not supported by this provider",
			Err:     payment.ErrUnsupportedCurrency,
		}
	}
	return nil
}

// Failure builds the StatusFailed result adapters return for transport
// and response-shape problems, stamping the elapsed latency.
func Failure(provider, code, msg string, start time.Time) payment.ChargeResult {
	return payment.ChargeResult{
		Status:       payment.StatusFailed,
		Provider:     provider,
		ErrorCode:    code,
		ErrorMessage: msg,
		LatencyMs:    time.Since(start).Milliseconds(),
	}
}

// CurrencySet builds the supported-currency lookup from a code list.
func CurrencySet(codes ...string) map[string]bool {
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[strings.ToUpper(strings.TrimSpace(c))] = true
	}
	return set
}
