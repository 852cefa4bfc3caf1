package health_test

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"

	"github.com/yourorg/payment-dispatch/internal/health"
	"github.com/yourorg/payment-dispatch/internal/payment"
)

func tightGuard(failures uint32) *health.Guard {
	return health.NewGuardWithSettings(func(name string) gobreaker.Settings {
		return gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     50 * time.Millisecond,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= failures
			},
		}
	})
}

func succeeded() (payment.ChargeResult, error) {
	return payment.ChargeResult{Status: payment.StatusSucceeded, TransactionID: "txn-1"}, nil
}

func failed() (payment.ChargeResult, error) {
	return payment.ChargeResult{Status: payment.StatusFailed, ErrorCode: payment.CodeTimeout}, nil
}

func declined() (payment.ChargeResult, error) {
	return payment.ChargeResult{Status: payment.StatusDeclined, ErrorCode: "card_declined"}, nil
}

func TestGuard_PassesResultsThrough(t *testing.T) {
	g := tightGuard(3)

	res, err := g.Do("stripe", succeeded)
	assert.NoError(t, err)
	assert.Equal(t, payment.StatusSucceeded, res.Status)

	res, err = g.Do("stripe", failed)
	assert.NoError(t, err, "a transport failure is a result, not an error")
	assert.Equal(t, payment.StatusFailed, res.Status)
}

func TestGuard_TripsOnConsecutiveFailures(t *testing.T) {
	g := tightGuard(2)

	_, _ = g.Do("stripe", failed)
	_, _ = g.Do("stripe", failed)
	assert.Equal(t, gobreaker.StateOpen, g.State("stripe"))

	_, err := g.Do("stripe", succeeded)
	assert.Error(t, err)
	assert.Equal(t, health.CodeCircuitOpen, payment.CodeOf(err))
}

func TestGuard_DeclinesDoNotTrip(t *testing.T) {
	g := tightGuard(2)

	for i := 0; i < 5; i++ {
		res, err := g.Do("stripe", declined)
		assert.NoError(t, err)
		assert.Equal(t, payment.StatusDeclined, res.Status)
	}
	assert.Equal(t, gobreaker.StateClosed, g.State("stripe"))
}

func TestGuard_BreakersAreIndependentPerProvider(t *testing.T) {
	g := tightGuard(1)

	_, _ = g.Do("stripe", failed)
	assert.Equal(t, gobreaker.StateOpen, g.State("stripe"))

	res, err := g.Do("paypal", succeeded)
	assert.NoError(t, err)
	assert.Equal(t, payment.StatusSucceeded, res.Status)
}

func TestGuard_RecoversAfterTimeout(t *testing.T) {
	g := tightGuard(1)

	_, _ = g.Do("stripe", failed)
	assert.Equal(t, gobreaker.StateOpen, g.State("stripe"))

	time.Sleep(60 * time.Millisecond)

	res, err := g.Do("stripe", succeeded)
	assert.NoError(t, err)
	assert.Equal(t, payment.StatusSucceeded, res.Status)
	assert.Equal(t, gobreaker.StateClosed, g.State("stripe"))
}

func TestGuard_AdapterErrorsCountAsFailures(t *testing.T) {
	g := tightGuard(1)
	boom := errors.New("boom")

	_, err := g.Do("stripe", func() (payment.ChargeResult, error) {
		return payment.ChargeResult{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, gobreaker.StateOpen, g.State("stripe"))
}
