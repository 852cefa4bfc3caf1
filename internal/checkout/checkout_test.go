package checkout_test

import (
	"context"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"

	adaptermock "github.com/yourorg/payment-dispatch/internal/adapter/mock"
	"github.com/yourorg/payment-dispatch/internal/checkout"
	"github.com/yourorg/payment-dispatch/internal/dispatcher"
	"github.com/yourorg/payment-dispatch/internal/health"
	"github.com/yourorg/payment-dispatch/internal/payment"
	"github.com/yourorg/payment-dispatch/internal/policy"
	"github.com/yourorg/payment-dispatch/internal/registry"
	"github.com/yourorg/payment-dispatch/internal/reporting"
)

type fixture struct {
	service  *checkout.Service
	registry *registry.Registry
	store    *checkout.MemoryStore
	recorder *reporting.Recorder
}

func newFixture(t *testing.T, adapters ...*adaptermock.MockAdapter) *fixture {
	t.Helper()
	reg := registry.New()
	for _, a := range adapters {
		assert.NoError(t, reg.Register(a.ProviderName, a))
	}

	enforcer, err := policy.NewEnforcer([]policy.RuleConfig{
		{Name: "RetryTransportFailures", Expression: "attempt_number < 3 && status == 'FAILED'"},
	})
	assert.NoError(t, err)

	guard := health.NewGuardWithSettings(func(name string) gobreaker.Settings {
		return gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Timeout:     time.Second,
			ReadyToTrip: func(c gobreaker.Counts) bool { return c.ConsecutiveFailures >= 100 },
		}
	})

	store := checkout.NewMemoryStore()
	recorder := reporting.NewRecorder()
	svc := checkout.NewService(dispatcher.New(reg), guard, enforcer, store, recorder)
	return &fixture{service: svc, registry: reg, store: store, recorder: recorder}
}

func chargeRequest(orderRef, key string) payment.ChargeRequest {
	return payment.ChargeRequest{Amount: 100, Currency: "USD", OrderRef: orderRef, IdempotencyKey: key}
}

func TestService_Pay_Success(t *testing.T) {
	stripeMock := adaptermock.NewMockAdapter("stripe")
	f := newFixture(t, stripeMock)

	res, err := f.service.Pay(context.Background(), "stripe", chargeRequest("order-1", "key-1"))

	assert.NoError(t, err)
	assert.Equal(t, payment.StatusSucceeded, res.Status)
	assert.NotEmpty(t, res.TransactionID)
	assert.Equal(t, 1, stripeMock.CallCount())

	entries := f.recorder.Entries()
	assert.Len(t, entries, 1)
	assert.Equal(t, "SUCCEEDED", entries[0].Status)
	assert.Equal(t, "stripe", entries[0].Provider)
}

func TestService_Pay_RetriesTransportFailuresWithSameKey(t *testing.T) {
	attempts := 0
	flaky := adaptermock.NewMockAdapter("flaky")
	flaky.ChargeFunc = func(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
		attempts++
		if attempts < 3 {
			return payment.ChargeResult{
				Status: payment.StatusFailed, Provider: "flaky", ErrorCode: payment.CodeTimeout,
			}, nil
		}
		return payment.ChargeResult{
			Status: payment.StatusSucceeded, Provider: "flaky", TransactionID: "txn-ok",
		}, nil
	}
	f := newFixture(t, flaky)

	res, err := f.service.Pay(context.Background(), "flaky", chargeRequest("order-2", "key-2"))

	assert.NoError(t, err)
	assert.Equal(t, payment.StatusSucceeded, res.Status)
	assert.Equal(t, 3, flaky.CallCount())
	for _, req := range flaky.Received() {
		assert.Equal(t, "key-2", req.IdempotencyKey, "retries must reuse the idempotency key")
	}
}

func TestService_Pay_NeverRetriesDeclines(t *testing.T) {
	declining := adaptermock.NewMockAdapter("declining")
	declining.ChargeFunc = func(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
		return payment.ChargeResult{
			Status: payment.StatusDeclined, Provider: "declining",
			TransactionID: "txn-d", ErrorCode: "card_declined",
		}, nil
	}
	f := newFixture(t, declining)

	res, err := f.service.Pay(context.Background(), "declining", chargeRequest("order-3", "key-3"))

	assert.NoError(t, err)
	assert.Equal(t, payment.StatusDeclined, res.Status)
	assert.Equal(t, 1, declining.CallCount())
}

func TestService_Pay_FailureStaysFailure(t *testing.T) {
	down := adaptermock.NewMockAdapter("down")
	down.ChargeFunc = func(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
		return payment.ChargeResult{
			Status: payment.StatusFailed, Provider: "down", ErrorCode: payment.CodeNetworkError,
		}, nil
	}
	f := newFixture(t, down)

	res, err := f.service.Pay(context.Background(), "down", chargeRequest("order-4", "key-4"))

	assert.NoError(t, err)
	// retried to the rule budget, then surfaced as Failed, not Declined
	assert.Equal(t, payment.StatusFailed, res.Status)
	assert.Equal(t, 3, down.CallCount())
}

func TestService_Pay_DuplicateIdempotencyKey(t *testing.T) {
	stripeMock := adaptermock.NewMockAdapter("stripe")
	f := newFixture(t, stripeMock)

	_, err := f.service.Pay(context.Background(), "stripe", chargeRequest("order-5", "key-5"))
	assert.NoError(t, err)

	_, err = f.service.Pay(context.Background(), "stripe", chargeRequest("order-5", "key-5"))
	assert.Error(t, err)
	assert.Equal(t, checkout.CodeDuplicateRequest, payment.CodeOf(err))
	assert.Equal(t, 1, stripeMock.CallCount(), "duplicate submissions must not reach the provider")
}

func TestService_Pay_GeneratesKeyWhenMissing(t *testing.T) {
	stripeMock := adaptermock.NewMockAdapter("stripe")
	f := newFixture(t, stripeMock)

	_, err := f.service.Pay(context.Background(), "stripe", chargeRequest("order-6", ""))
	assert.NoError(t, err)

	received := stripeMock.Received()
	assert.Len(t, received, 1)
	assert.NotEmpty(t, received[0].IdempotencyKey)
}

func TestService_Pay_UnknownProvider(t *testing.T) {
	f := newFixture(t, adaptermock.NewMockAdapter("stripe"))

	_, err := f.service.Pay(context.Background(), "adyen", chargeRequest("order-7", "key-7"))

	assert.ErrorIs(t, err, payment.ErrUnknownProvider)
}

func TestService_Pay_ValidationBeforeIdempotencyClaim(t *testing.T) {
	stripeMock := adaptermock.NewMockAdapter("stripe")
	f := newFixture(t, stripeMock)

	req := chargeRequest("order-8", "key-8")
	req.Amount = -1
	_, err := f.service.Pay(context.Background(), "stripe", req)
	assert.ErrorIs(t, err, payment.ErrInvalidAmount)

	// the key was never claimed, so a corrected resubmit goes through
	req.Amount = 100
	res, err := f.service.Pay(context.Background(), "stripe", req)
	assert.NoError(t, err)
	assert.Equal(t, payment.StatusSucceeded, res.Status)
}
