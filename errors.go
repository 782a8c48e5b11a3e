package propshare

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios. Every precondition
// violation is caller-visible and distinguishable by kind; nothing is
// locally recovered or retried.
var (
	// General errors
	ErrNotFound        = errors.New("propshare: not found")
	ErrAlreadyExists   = errors.New("propshare: already exists")
	ErrInvalidArgument = errors.New("propshare: invalid argument")
	ErrUnauthorized    = errors.New("propshare: unauthorized")

	// Lifecycle errors
	ErrObsolete          = errors.New("propshare: ledger is obsolete")
	ErrRentUpdateTooSoon = errors.New("propshare: rent rate updated too recently")

	// Property errors
	ErrPropertyNotFound = errors.New("propshare: property not found")

	// Trading errors
	ErrInsufficientSupply  = errors.New("propshare: not enough shares in the pool")
	ErrInsufficientBalance = errors.New("propshare: holder balance too low")
	ErrInsufficientPayment = errors.New("propshare: payment below amount charged")

	// Rent and distribution errors
	ErrInvalidPayment    = errors.New("propshare: payment does not match rent due")
	ErrNoAvailableShares = errors.New("propshare: no shares available in the pool")

	// Collaborator errors
	ErrTransferFailed = errors.New("propshare: value transfer failed")

	// Store errors
	ErrStoreNotReady   = errors.New("propshare: store not ready")
	ErrStoreClosed     = errors.New("propshare: store is closed")
	ErrMigrationFailed = errors.New("propshare: migration failed")
	ErrBalanceOverflow = errors.New("propshare: balance arithmetic overflow")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("propshare: validation failed for %s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match ValidationError against ErrInvalidArgument.
func (e ValidationError) Unwrap() error {
	return ErrInvalidArgument
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "propshare: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("propshare: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrPropertyNotFound)
}

// IsPaymentError returns true if the error is a payment contract violation.
func IsPaymentError(err error) bool {
	return errors.Is(err, ErrInsufficientPayment) ||
		errors.Is(err, ErrInvalidPayment)
}

// IsShareError returns true if the error is a share supply/balance violation.
func IsShareError(err error) bool {
	return errors.Is(err, ErrInsufficientSupply) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrNoAvailableShares) ||
		errors.Is(err, ErrBalanceOverflow)
}

// IsLifecycleError returns true if the error is a lifecycle gate rejection.
func IsLifecycleError(err error) bool {
	return errors.Is(err, ErrObsolete) ||
		errors.Is(err, ErrRentUpdateTooSoon)
}
