// Package health guards provider calls with per-provider circuit
// breakers so a flapping gateway stops receiving traffic until it
// recovers.
package health

import (
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yourorg/payment-dispatch/internal/payment"
)

// CodeCircuitOpen is surfaced when the breaker short-circuits a provider.
const CodeCircuitOpen = "CIRCUIT_OPEN"

// errProviderFailure feeds StatusFailed results into the breaker as
// failures without leaking an error to the caller. Declines do not count:
// the provider answered, so the circuit stays healthy.
var errProviderFailure = errors.New("provider reported a transport failure")

// Guard lazily creates one gobreaker.CircuitBreaker per provider.
type Guard struct {
	mu       sync.Mutex
	breakers map[string]*gobreaker.CircuitBreaker
	settings func(name string) gobreaker.Settings
}

// NewGuard creates a Guard with default breaker settings: trip after 5
// consecutive failures, stay open 30s, probe with up to 2 requests.
func NewGuard() *Guard {
	return &Guard{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		settings: func(name string) gobreaker.Settings {
			return gobreaker.Settings{
				Name:        name,
				MaxRequests: 2,
				Timeout:     30 * time.Second,
				ReadyToTrip: func(c gobreaker.Counts) bool {
					return c.ConsecutiveFailures >= 5
				},
			}
		},
	}
}

// NewGuardWithSettings creates a Guard building breakers from the given
// settings factory, for tests that need tighter thresholds.
func NewGuardWithSettings(settings func(name string) gobreaker.Settings) *Guard {
	return &Guard{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		settings: settings,
	}
}

func (g *Guard) breaker(provider string) *gobreaker.CircuitBreaker {
	g.mu.Lock()
	defer g.mu.Unlock()
	cb, ok := g.breakers[provider]
	if !ok {
		cb = gobreaker.NewCircuitBreaker(g.settings(provider))
		g.breakers[provider] = cb
	}
	return cb
}

// Do runs fn under the provider's breaker. An open circuit returns a
// coded error without invoking fn. A ChargeResult with StatusFailed
// counts as a breaker failure but is still returned to the caller with a
// nil error, preserving the adapter contract.
func (g *Guard) Do(provider string, fn func() (payment.ChargeResult, error)) (payment.ChargeResult, error) {
	cb := g.breaker(provider)

	out, err := cb.Execute(func() (interface{}, error) {
		res, err := fn()
		if err != nil {
			return res, err
		}
		if res.Status == payment.StatusFailed {
			return res, errProviderFailure
		}
		return res, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return payment.ChargeResult{}, &payment.Error{
			Code:    CodeCircuitOpen,
			Message: "circuit open for provider: " + provider,
			Err:     err,
		}
	}
	res, _ := out.(payment.ChargeResult)
	if errors.Is(err, errProviderFailure) {
		return res, nil
	}
	return res, err
}

// State reports the breaker state for a provider, for diagnostics.
func (g *Guard) State(provider string) gobreaker.State {
	return g.breaker(provider).State()
}
