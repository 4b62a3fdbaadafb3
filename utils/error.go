package utils

import (
	"errors"
	"fmt"
)

// Error taxonomy for the fulfillment/receiving engine. Handlers map these to
// HTTP status codes with errors.Is; everything else surfaces as
// ErrOperationFailed so callers can retry without seeing storage internals.
var (
	ErrValidation             = errors.New("validation error")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrForbidden              = errors.New("forbidden")
	ErrRecordNotFound         = errors.New("record not found")
	ErrOperationFailed        = errors.New("operation failed")
)

func ValidationErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func InsufficientStockErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInsufficientStock, fmt.Sprintf(format, args...))
}

func InvalidStateTransitionErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidStateTransition, fmt.Sprintf(format, args...))
}

// OperationFailed wraps a persistence-layer failure. The cause stays in the
// chain for logging but the caller-facing identity is ErrOperationFailed.
func OperationFailed(cause error) error {
	if cause == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrOperationFailed, cause)
}
