package payment

import (
	"errors"
	"fmt"
)

// Sentinel errors for the dispatch core. Validation errors are detected
// before any external call; configuration errors are non-recoverable for
// the current request.
var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrInvalidStrategy     = errors.New("invalid strategy")
	ErrUnknownProvider     = errors.New("unknown provider")
	ErrNoStrategySelected  = errors.New("no strategy selected")
)

// Stable error codes surfaced in ChargeResult.ErrorCode and API responses.
const (
	CodeInvalidAmount       = "INVALID_AMOUNT"
	CodeUnsupportedCurrency = "UNSUPPORTED_CURRENCY"
	CodeInvalidStrategy     = "INVALID_STRATEGY"
	CodeUnknownProvider     = "UNKNOWN_PROVIDER"
	CodeNoStrategySelected  = "NO_STRATEGY_SELECTED"
	CodeTimeout             = "TIMEOUT"
	CodeNetworkError        = "NETWORK_ERROR"
	CodeMalformedResponse   = "MALFORMED_RESPONSE"
)

// Error is a coded error carrying a machine-readable code alongside the
// human-readable message and an optional wrapped cause.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap builds a coded error around a cause.
func Wrap(code, msg string, err error) error {
	return &Error{Code: code, Message: msg, Err: err}
}

// CodeOf extracts the stable code from an error, or "" if it carries none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
