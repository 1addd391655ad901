package payment

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when no payment exists for the given id.
	ErrNotFound = errors.New("payment not found")

	// ErrStoreUnavailable wraps persistence-layer failures.
	ErrStoreUnavailable = errors.New("payment store unavailable")
)

// ValidationError rejects an intent before it reaches the store.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func storeError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStoreUnavailable, op, err)
}
