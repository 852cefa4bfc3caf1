// Package dispatcher routes a charge request to a provider adapter.
// It owns routing only: provider-level outcomes pass through unchanged.
package dispatcher

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yourorg/payment-dispatch/internal/adapter"
	"github.com/yourorg/payment-dispatch/internal/payment"
	"github.com/yourorg/payment-dispatch/internal/registry"
)

// Dispatcher has two states: Unconfigured (no adapter selected) and
// Configured (exactly one). The selected-strategy slot is mutex-guarded,
// but under concurrent checkouts callers should prefer ExecuteWith, which
// resolves the adapter per request and never reads the shared slot.
type Dispatcher struct {
	registry *registry.Registry

	mu      sync.RWMutex
	current adapter.ProviderAdapter
}

// New creates an Unconfigured Dispatcher backed by the given registry.
// The registry may be nil when only SetStrategy/Execute are used.
func New(reg *registry.Registry) *Dispatcher {
	return &Dispatcher{registry: reg}
}

// SetStrategy selects the adapter used by Execute. A nil adapter is
// rejected with ErrInvalidStrategy and leaves the current state untouched;
// otherwise the call always succeeds, replacing any previous selection.
func (d *Dispatcher) SetStrategy(a adapter.ProviderAdapter) error {
	if a == nil {
		return &payment.Error{
			Code:    payment.CodeInvalidStrategy,
			Message: "strategy adapter must not be nil",
			Err:     payment.ErrInvalidStrategy,
		}
	}
	d.mu.Lock()
	d.current = a
	d.mu.Unlock()
	return nil
}

// Execute delegates the charge to the currently selected adapter and
// returns its ChargeResult unchanged. In the Unconfigured state it fails
// with ErrNoStrategySelected before any network activity. Intended for
// single-threaded use; concurrent checkouts should use ExecuteWith.
func (d *Dispatcher) Execute(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
	d.mu.RLock()
	a := d.current
	d.mu.RUnlock()
	if a == nil {
		return payment.ChargeResult{}, &payment.Error{
			Code:    payment.CodeNoStrategySelected,
			Message: "executePayment called on an unconfigured dispatcher",
			Err:     payment.ErrNoStrategySelected,
		}
	}
	return d.dispatch(ctx, a, req)
}

// ExecuteWith resolves providerID through the registry and dispatches the
// charge to that adapter, request-scoped. Concurrent calls with distinct
// provider selections never observe each other's adapter.
func (d *Dispatcher) ExecuteWith(ctx context.Context, providerID string, req payment.ChargeRequest) (payment.ChargeResult, error) {
	if d.registry == nil {
		return payment.ChargeResult{}, &payment.Error{
			Code:    payment.CodeUnknownProvider,
			Message: "dispatcher has no registry configured",
			Err:     payment.ErrUnknownProvider,
		}
	}
	a, err := d.registry.Resolve(providerID)
	if err != nil {
		return payment.ChargeResult{}, err
	}
	return d.dispatch(ctx, a, req)
}

func (d *Dispatcher) dispatch(ctx context.Context, a adapter.ProviderAdapter, req payment.ChargeRequest) (payment.ChargeResult, error) {
	tracer := otel.Tracer("dispatcher")
	ctx, span := tracer.Start(ctx, "Dispatcher.dispatch")
	span.SetAttributes(
		attribute.String("payment.provider", a.Name()),
		attribute.String("payment.order_ref", req.OrderRef),
	)
	defer span.End()

	start := time.Now()
	result, err := a.Charge(ctx, req)
	observeDispatch(a.Name(), statusLabel(result, err), time.Since(start).Seconds())
	return result, err
}

func statusLabel(res payment.ChargeResult, err error) string {
	if err != nil {
		return "rejected"
	}
	return string(res.Status)
}
