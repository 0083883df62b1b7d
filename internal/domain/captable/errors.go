package captable

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput indicates a write request is missing a required field.
	ErrInvalidInput = errors.New("invalid cap table input")
	// ErrCompanyNotFound indicates the company is not in the current snapshot.
	ErrCompanyNotFound = errors.New("company not found")
	// ErrFractionalValue indicates an amount cannot be sent as a whole value.
	ErrFractionalValue = errors.New("amount must be a non-negative whole number")
)

// WriteError wraps a failure from the external write path.
type WriteError struct {
	Op  string
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// Cause returns the message of the underlying failure, unprefixed.
func (e *WriteError) Cause() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}
