/*
errors.go - Centralized error types for the ledger engine

ERROR CATEGORIES:
  1. Referential - an operation needs a selected area and none is set
  2. Validation  - malformed amounts or terms, rejected before any append
  3. Not found   - a referenced area/village/customer/event does not exist
  4. Store       - persistence failures

USAGE:
  if errors.Is(err, ledger.ErrInvalidAmount) { ... }
  if ledger.IsClientError(err) { ... 400 ... }

SEE ALSO:
  - lending/validate.go: Produces ValidationError values
  - api/handlers.go: Maps categories to HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoAreaSelected is returned by mutations that need a current area.
	ErrNoAreaSelected = errors.New("no area selected")

	// ErrInvalidInput is the parent of every validation failure.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidAmount is returned for non-positive or missing amounts.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrZeroAmount is returned for adjustments that change nothing.
	ErrZeroAmount = errors.New("amount can't be zero")

	// ErrInvalidInstallments is returned when the installment count is not positive.
	ErrInvalidInstallments = errors.New("installments must be positive")

	// ErrPayableBelowPrincipal is returned when total payable < loan amount.
	ErrPayableBelowPrincipal = errors.New("total payable must be at least the loan amount")

	// ErrEmptyName is returned when a required name is blank.
	ErrEmptyName = errors.New("name can't be empty")

	// ErrInvalidDateFilter is returned for an unknown filter mode or bad date.
	ErrInvalidDateFilter = errors.New("invalid date filter")

	// ErrUnknownEventType is returned when decoding an unrecognized event type.
	ErrUnknownEventType = errors.New("unknown event type")

	ErrAreaNotFound     = errors.New("area not found")
	ErrVillageNotFound  = errors.New("village not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrEventNotFound    = errors.New("event not found")

	// ErrDuplicateEvent is returned when an event id is written twice.
	ErrDuplicateEvent = errors.New("duplicate event id")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError names the offending field. It unwraps to both the
// specific cause and ErrInvalidInput.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() []error {
	return []error{e.Err, ErrInvalidInput}
}

// Invalid builds a ValidationError for field.
func Invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidDateFilter) ||
		errors.Is(err, ErrUnknownEventType)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrAreaNotFound) ||
		errors.Is(err, ErrVillageNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrEventNotFound)
}
