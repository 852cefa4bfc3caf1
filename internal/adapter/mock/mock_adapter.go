// Package mock provides a ProviderAdapter test double that records the
// requests it receives and lets tests script arbitrary outcomes.
package mock

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/yourorg/payment-dispatch/internal/adapter"
	"github.com/yourorg/payment-dispatch/internal/payment"
)

// MockAdapter is a mock implementation of adapter.ProviderAdapter.
// When ChargeFunc is nil it returns a successful result with a fresh
// transaction id. Received requests and the call count are recorded for
// assertions; the recorder is safe for concurrent use.
type MockAdapter struct {
	ProviderName string
	ChargeFunc   func(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error)

	mu       sync.Mutex
	received []payment.ChargeRequest
}

// NewMockAdapter creates a MockAdapter with the given provider name.
func NewMockAdapter(name string) *MockAdapter {
	return &MockAdapter{ProviderName: name}
}

// Name implements adapter.ProviderAdapter.
func (m *MockAdapter) Name() string { return m.ProviderName }

// Charge implements adapter.ProviderAdapter.
func (m *MockAdapter) Charge(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
	m.mu.Lock()
	m.received = append(m.received, req)
	m.mu.Unlock()

	if m.ChargeFunc != nil {
		return m.ChargeFunc(ctx, req)
	}

	return payment.ChargeResult{
		Status:        payment.StatusSucceeded,
		Provider:      m.ProviderName,
		TransactionID: uuid.NewString(),
		Details:       map[string]string{"mock_processed": "true"},
	}, nil
}

// CallCount returns how many times Charge was invoked.
func (m *MockAdapter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.received)
}

// Received returns a copy of the recorded requests in arrival order.
func (m *MockAdapter) Received() []payment.ChargeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]payment.ChargeRequest, len(m.received))
	copy(out, m.received)
	return out
}

var _ adapter.ProviderAdapter = (*MockAdapter)(nil)
