package adapter_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/yourorg/payment-dispatch/internal/adapter"
	"github.com/yourorg/payment-dispatch/internal/payment"
)

func TestValidateRequest(t *testing.T) {
	supported := adapter.CurrencySet("usd", "EUR")
	valid := payment.ChargeRequest{Amount: 100, Currency: "USD", OrderRef: "order-1"}

	t.Run("accepts supported currency regardless of case", func(t *testing.T) {
		assert.NoError(t, adapter.ValidateRequest(valid, supported))

		req := valid
		req.Currency = "eur"
		assert.NoError(t, adapter.ValidateRequest(req, supported))
	})

	t.Run("rejects unsupported currency", func(t *testing.T) {
		req := valid
		req.Currency = "JPY"
		err := adapter.ValidateRequest(req, supported)
		assert.ErrorIs(t, err, payment.ErrUnsupportedCurrency)
		assert.Equal(t, payment.CodeUnsupportedCurrency, payment.CodeOf(err))
	})

	t.Run("rejects non-positive amount before currency check", func(t *testing.T) {
		req := valid
		req.Amount = 0
		assert.ErrorIs(t, adapter.ValidateRequest(req, supported), payment.ErrInvalidAmount)
	})
}

func TestFailure(t *testing.T) {
	res := adapter.Failure("stripe", payment.CodeTimeout, "deadline exceeded", time.Now().Add(-20*time.Millisecond))
	assert.Equal(t, payment.StatusFailed, res.Status)
	assert.Equal(t, "stripe", res.Provider)
	assert.Equal(t, payment.CodeTimeout, res.ErrorCode)
	assert.GreaterOrEqual(t, res.LatencyMs, int64(0))
}
