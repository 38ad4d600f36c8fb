// Package errors defines the error taxonomy of the accounting core.
//
// Recoverable conditions (reverted reads, missing prices, negative running
// balances) are absorbed inside handlers with a documented fallback and never
// reach callers as errors. What remains is either a structural violation of
// the ledger's invariants, which must abort the indexing run, or an
// infrastructure failure from the entity store.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	// CategoryStructural represents invariant violations; fatal for the run
	CategoryStructural ErrorCategory = "structural"
	// CategoryStore represents entity store failures
	CategoryStore ErrorCategory = "store"
	// CategoryDecode represents undecodable event payloads
	CategoryDecode ErrorCategory = "decode"
	// CategorySystem represents everything else
	CategorySystem ErrorCategory = "system"
)

// CategorizedError is an error with category and stable code
type CategorizedError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
}

// Error implements the error interface
func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// NewStructuralError creates a fatal invariant-violation error
func NewStructuralError(message string, details map[string]interface{}) *CategorizedError {
	return &CategorizedError{
		Category: CategoryStructural,
		Code:     "STRUCTURAL_VIOLATION",
		Message:  message,
		Details:  details,
	}
}

// NewStoreError creates an entity store error
func NewStoreError(operation string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryStore,
		Code:     "STORE_ERROR",
		Message:  fmt.Sprintf("entity store error during %s", operation),
		Cause:    cause,
		Details: map[string]interface{}{
			"operation": operation,
		},
	}
}

// NewDecodeError creates an event decode error
func NewDecodeError(event string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategoryDecode,
		Code:     "DECODE_ERROR",
		Message:  fmt.Sprintf("cannot decode %s event", event),
		Cause:    cause,
		Details: map[string]interface{}{
			"event": event,
		},
	}
}

// NewInternalError creates a generic system error
func NewInternalError(message string, cause error) *CategorizedError {
	return &CategorizedError{
		Category: CategorySystem,
		Code:     "INTERNAL_ERROR",
		Message:  message,
		Cause:    cause,
	}
}

// IsStructural reports whether err is (or wraps) an invariant violation
func IsStructural(err error) bool {
	var cat *CategorizedError
	if errors.As(err, &cat) {
		return cat.Category == CategoryStructural
	}
	return false
}
