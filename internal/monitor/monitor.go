// Package monitor validates incoming checkout requests against a JSON
// schema before they reach the payment core.
package monitor

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// chargeRequestSchema is the contract for POST /v1/checkout bodies.
// It ships with the binary so validation needs no filesystem access.
const chargeRequestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["provider", "amount", "currency", "orderRef"],
  "properties": {
    "provider": {"type": "string", "minLength": 1},
    "amount": {"type": "integer", "minimum": 1},
    "currency": {"type": "string", "pattern": "^[A-Za-z]{3}$"},
    "orderRef": {"type": "string", "minLength": 1},
    "idempotencyKey": {"type": "string", "maxLength": 255},
    "metadata": {
      "type": "object",
      "additionalProperties": {"type": "string"}
    }
  },
  "additionalProperties": false
}`

// ContractMonitor validates request bodies against the checkout schema.
type ContractMonitor struct {
	schema *gojsonschema.Schema
}

// NewContractMonitor compiles the embedded checkout schema.
func NewContractMonitor() (*ContractMonitor, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(chargeRequestSchema))
	if err != nil {
		return nil, fmt.Errorf("monitor: compiling checkout schema: %w", err)
	}
	return &ContractMonitor{schema: schema}, nil
}

// Validate checks the given request body against the schema. It returns
// true if valid, or false and the list of violation messages.
func (cm *ContractMonitor) Validate(requestBody []byte) (bool, []string, error) {
	result, err := cm.schema.Validate(gojsonschema.NewBytesLoader(requestBody))
	if err != nil {
		return false, nil, fmt.Errorf("monitor: validation error: %w", err)
	}
	if result.Valid() {
		return true, nil, nil
	}
	var violations []string
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return false, violations, nil
}

// FormatErrors joins violation messages into one reportable string.
func FormatErrors(violations []string) string {
	if len(violations) == 0 {
		return ""
	}
	return "Validation errors: " + strings.Join(violations, "; ")
}
