package apperrors

import (
	"errors"
	"fmt"
)

var (
	ErrUserNotFound        = errors.New("user not found")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAccountNotFound     = errors.New("mobile money account not found")

	ErrTransactionTerminal = errors.New("transaction already in terminal state")
	ErrTransactionInvalid  = errors.New("transaction failed validation")

	ErrUnsupportedAction   = errors.New("unsupported message action")
	ErrUnsupportedProvider = errors.New("unsupported mobile money provider")
	ErrUnsupportedType     = errors.New("unsupported transaction type")
)

// PermanentError marks a failure that redelivery can never fix: missing
// entities, unsupported actions or providers, illegal state transitions.
// Everything not wrapped in PermanentError is considered transient and
// is retried by the message bus.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// Permanent wraps err so the message bus will not retry it
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// Permanentf is Permanent over a formatted error
func Permanentf(format string, args ...any) error {
	return &PermanentError{Err: fmt.Errorf(format, args...)}
}

func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
