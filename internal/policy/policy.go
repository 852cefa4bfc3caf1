// Package policy decides whether a failed charge attempt may be retried.
// Rules are merchant-configurable govaluate expressions over the attempt
// parameters, so retry behavior changes without code changes.
package policy

import (
	"fmt"

	"github.com/Knetic/govaluate"

	"github.com/yourorg/payment-dispatch/internal/payment"
)

// RuleConfig is one named retry rule. Expressions see the parameters
// attempt_number (int), status, error_code and provider (strings), e.g.
// "attempt_number < 3 && status == 'FAILED'".
type RuleConfig struct {
	Name       string
	Expression string
}

// Decision is the outcome of a policy evaluation.
type Decision struct {
	AllowRetry bool
	Reason     string
}

type compiledRule struct {
	name string
	expr *govaluate.EvaluableExpression
}

// Enforcer evaluates retry rules against charge outcomes.
type Enforcer struct {
	rules []compiledRule
}

// NewEnforcer compiles the rule expressions up front so malformed rules
// fail at startup, not mid-checkout.
func NewEnforcer(rules []RuleConfig) (*Enforcer, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, rc := range rules {
		expr, err := govaluate.NewEvaluableExpression(rc.Expression)
		if err != nil {
			return nil, fmt.Errorf("policy: compiling rule %q: %w", rc.Name, err)
		}
		compiled = append(compiled, compiledRule{name: rc.Name, expr: expr})
	}
	return &Enforcer{rules: compiled}, nil
}

// Evaluate decides whether the attempt that produced result may be
// retried. Declines are terminal regardless of rules: a decline is a
// deliberate provider answer, and retrying it would re-submit a charge
// the provider already refused.
func (e *Enforcer) Evaluate(provider string, attempt int, result payment.ChargeResult) (Decision, error) {
	if result.Status != payment.StatusFailed {
		return Decision{AllowRetry: false, Reason: "terminal status " + string(result.Status)}, nil
	}

	params := map[string]interface{}{
		"attempt_number": attempt,
		"status":         string(result.Status),
		"error_code":     result.ErrorCode,
		"provider":       provider,
	}

	for _, rule := range e.rules {
		out, err := rule.expr.Evaluate(params)
		if err != nil {
			return Decision{}, fmt.Errorf("policy: evaluating rule %q: %w", rule.name, err)
		}
		if allow, ok := out.(bool); ok && allow {
			return Decision{AllowRetry: true, Reason: "matched rule " + rule.name}, nil
		}
	}
	return Decision{AllowRetry: false, Reason: "no rule allowed a retry"}, nil
}
