// Package registry holds the set of available provider adapters keyed by
// provider identifier. Built once at startup, read-mostly thereafter.
package registry

import (
	"strings"
	"sync"

	"github.com/yourorg/payment-dispatch/internal/adapter"
	"github.com/yourorg/payment-dispatch/internal/payment"
)

// Registry maps provider identifiers to adapters. Keys are normalized
// (trimmed, lowercased) so "Stripe" and "stripe" resolve to the same
// adapter. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]adapter.ProviderAdapter
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{adapters: make(map[string]adapter.ProviderAdapter)}
}

func normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Register adds or replaces the adapter for id. Registration is
// idempotent per id: a later call with the same id replaces the earlier
// adapter, so providers can be swapped without touching call sites.
// A nil adapter or empty id is rejected with ErrInvalidStrategy.
func (r *Registry) Register(id string, a adapter.ProviderAdapter) error {
	key := normalize(id)
	if a == nil || key == "" {
		return &payment.Error{
			Code:    payment.CodeInvalidStrategy,
			Message: "registration requires a provider id and a non-nil adapter",
			Err:     payment.ErrInvalidStrategy,
		}
	}
	r.mu.Lock()
	r.adapters[key] = a
	r.mu.Unlock()
	return nil
}

// Resolve returns the adapter registered under id, or ErrUnknownProvider.
func (r *Registry) Resolve(id string) (adapter.ProviderAdapter, error) {
	r.mu.RLock()
	a, ok := r.adapters[normalize(id)]
	r.mu.RUnlock()
	if !ok {
		return nil, &payment.Error{
			Code:    payment.CodeUnknownProvider,
			Message: "no adapter registered for provider: " + id,
			Err:     payment.ErrUnknownProvider,
		}
	}
	return a, nil
}

// Providers lists the registered provider identifiers, for diagnostics.
func (r *Registry) Providers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	return ids
}
