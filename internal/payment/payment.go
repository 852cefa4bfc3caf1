// Package payment defines the normalized charge request/result types
// exchanged between the checkout flow and provider adapters, plus the
// error taxonomy shared across the dispatch core.
package payment

// Status is the terminal outcome of a charge attempt.
type Status string

const (
	// StatusSucceeded means the provider confirmed the charge.
	StatusSucceeded Status = "SUCCEEDED"
	// StatusDeclined means the provider answered and refused the charge
	// (insufficient funds, fraud block, ...). Not a system error.
	StatusDeclined Status = "DECLINED"
	// StatusFailed means the charge outcome could not be obtained
	// (timeout, transport failure, malformed provider response).
	StatusFailed Status = "FAILED"
)

// ChargeRequest carries everything an adapter needs for one charge attempt.
// Amounts are in minor units (cents). Construct a fresh value per attempt;
// the request is never mutated by the core.
type ChargeRequest struct {
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	OrderRef       string            `json:"orderRef"`
	IdempotencyKey string            `json:"idempotencyKey,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Validate checks the caller-supplied fields before any provider contact.
func (r ChargeRequest) Validate() error {
	if r.Amount <= 0 {
		return &Error{Code: CodeInvalidAmount, Message: "amount must be positive", Err: ErrInvalidAmount}
	}
	if r.Currency == "" {
		return &Error{Code: CodeUnsupportedCurrency, Message: "currency is required", Err: ErrUnsupportedCurrency}
	}
	if r.OrderRef == "" {
		return &Error{Code: "MISSING_ORDER_REF", Message: "order reference is required"}
	}
	return nil
}

// ChargeResult is the normalized outcome of a charge attempt.
// TransactionID is present when the provider answered (Succeeded or
// Declined); ErrorCode/ErrorMessage are present when it is Declined or
// Failed. Produced exactly once per dispatch and never altered afterwards.
type ChargeResult struct {
	Status        Status            `json:"status"`
	Provider      string            `json:"provider"`
	TransactionID string            `json:"providerTransactionId,omitempty"`
	ErrorCode     string            `json:"errorCode,omitempty"`
	ErrorMessage  string            `json:"errorMessage,omitempty"`
	LatencyMs     int64             `json:"latencyMs"`
	Details       map[string]string `json:"details,omitempty"`
}

// Terminal reports whether the provider gave a definitive answer.
// Failed results are the only ones a caller may reasonably retry.
func (r ChargeResult) Terminal() bool {
	return r.Status == StatusSucceeded || r.Status == StatusDeclined
}
