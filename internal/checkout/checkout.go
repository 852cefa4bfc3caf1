// Package checkout is the consumer side of the dispatch core: it selects
// a provider per request, dedupes submissions by idempotency key, applies
// the retry policy to transport failures, and records outcomes for
// reporting. Retrying is legal here and nowhere else; adapters perform a
// single attempt, and retries reuse the same idempotency key so the
// provider can collapse duplicates.
package checkout

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yourorg/payment-dispatch/internal/dispatcher"
	"github.com/yourorg/payment-dispatch/internal/health"
	"github.com/yourorg/payment-dispatch/internal/payment"
	"github.com/yourorg/payment-dispatch/internal/policy"
	"github.com/yourorg/payment-dispatch/internal/reporting"
)

// CodeDuplicateRequest is surfaced when an idempotency key was already
// used for an in-flight or completed charge.
const CodeDuplicateRequest = "DUPLICATE_REQUEST"

// maxAttempts caps the retry loop regardless of what the policy allows.
const maxAttempts = 5

// Service drives one checkout payment end to end.
type Service struct {
	dispatcher *dispatcher.Dispatcher
	guard      *health.Guard
	enforcer   *policy.Enforcer
	idem       IdempotencyStore
	recorder   *reporting.Recorder
}

// NewService wires the checkout flow. All collaborators are required.
func NewService(
	d *dispatcher.Dispatcher,
	g *health.Guard,
	e *policy.Enforcer,
	idem IdempotencyStore,
	rec *reporting.Recorder,
) *Service {
	if d == nil || g == nil || e == nil || idem == nil || rec == nil {
		panic("checkout: all collaborators are required")
	}
	return &Service{dispatcher: d, guard: g, enforcer: e, idem: idem, recorder: rec}
}

// Pay charges req via the provider selected for this request. The
// provider id travels with the call, never through shared dispatcher
// state, so concurrent checkouts cannot cross-contaminate.
//
// A non-nil error means the charge was not submitted (validation,
// unknown provider, duplicate key, open circuit). Otherwise the returned
// ChargeResult carries the terminal Succeeded/Declined/Failed outcome;
// a Failed transport outcome is never presented as a decline.
func (s *Service) Pay(ctx context.Context, providerID string, req payment.ChargeRequest) (payment.ChargeResult, error) {
	tracer := otel.Tracer("checkout")
	ctx, span := tracer.Start(ctx, "Checkout.Pay")
	span.SetAttributes(attribute.String("payment.provider", providerID))
	defer span.End()

	if err := req.Validate(); err != nil {
		return payment.ChargeResult{}, err
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}
	duplicate, err := s.idem.Begin(ctx, req.IdempotencyKey)
	if err != nil {
		return payment.ChargeResult{}, err
	}
	if duplicate {
		return payment.ChargeResult{}, &payment.Error{
			Code:    CodeDuplicateRequest,
			Message: "charge with idempotency key " + req.IdempotencyKey + " is already in flight or completed",
		}
	}

	var result payment.ChargeResult
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err = s.guard.Do(providerID, func() (payment.ChargeResult, error) {
			return s.dispatcher.ExecuteWith(ctx, providerID, req)
		})
		if err != nil {
			s.record(providerID, req, result, err)
			return payment.ChargeResult{}, err
		}
		if result.Status != payment.StatusFailed {
			break
		}

		decision, policyErr := s.enforcer.Evaluate(providerID, attempt, result)
		if policyErr != nil {
			log.Printf("checkout: policy evaluation failed for order %s: %v", req.OrderRef, policyErr)
			break
		}
		if !decision.AllowRetry {
			break
		}
		log.Printf("checkout: retrying order %s via %s (attempt %d, %s)",
			req.OrderRef, providerID, attempt+1, decision.Reason)
	}

	if result.Status == payment.StatusSucceeded {
		if err := s.idem.Complete(ctx, req.IdempotencyKey); err != nil {
			// The charge went through; a dedupe bookkeeping failure must
			// not turn it into an error for the shopper.
			log.Printf("checkout: failed to mark idempotency key complete for order %s: %v", req.OrderRef, err)
		}
	}

	s.record(providerID, req, result, nil)
	return result, nil
}

func (s *Service) record(providerID string, req payment.ChargeRequest, res payment.ChargeResult, callErr error) {
	entry := reporting.ChargeLog{
		Timestamp:    time.Now(),
		OrderRef:     req.OrderRef,
		Provider:     providerID,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Status:       string(res.Status),
		ErrorCode:    res.ErrorCode,
		ErrorMessage: res.ErrorMessage,
	}
	if callErr != nil {
		entry.Status = "REJECTED"
		entry.ErrorCode = payment.CodeOf(callErr)
		entry.ErrorMessage = callErr.Error()
	}
	s.recorder.Append(entry)
}
