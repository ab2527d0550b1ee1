/*
errors.go - Centralized error types for the reconciliation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The engine recovers business-level failures locally and records them in
  the Report; callers use these sentinels with errors.Is to classify them.

ERROR CATEGORIES:
  1. Configuration errors - catalog/store config lookups failed (fail closed)
  2. Validation errors    - quantities outside the sanity ceiling
  3. Mutation errors      - the host cart rejected a line write

PROPAGATION POLICY:
  Reconcile never returns an error for business conditions. A failure on
  one product lands in Report.Errors and the other products proceed. Only
  programming-contract violations (an unknown cart identity, a nil
  collaborator) are unrecoverable.

SEE ALSO:
  - engine.go: records ProductError values in the Report
  - eligibility.go: maps lookup failures to "not eligible"
*/
package promo

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrConfigUnavailable is returned when a catalog or store-config lookup
	// fails. The product is treated as not eligible for the pass (fail
	// closed); this is never surfaced as a hard failure.
	ErrConfigUnavailable = errors.New("promotion configuration unavailable")

	// ErrQuantityOutOfBounds is returned when a paid line's quantity exceeds
	// the sanity ceiling. The product's free-line sync is skipped for the
	// pass rather than silently processed.
	ErrQuantityOutOfBounds = errors.New("paid quantity out of bounds")

	// ErrLineMutationRejected is returned when the host cart rejects a
	// free-line create, resize, or delete (stock or validation failure
	// downstream).
	ErrLineMutationRejected = errors.New("cart rejected line mutation")

	// ErrUnknownLine is returned by the host cart for an unknown line ID.
	ErrUnknownLine = errors.New("unknown cart line")

	// ErrUnknownCart indicates an invalid cart identity. This is a
	// programming-contract violation, not a recoverable condition.
	ErrUnknownCart = errors.New("unknown cart")
)

// =============================================================================
// STRUCTURED ERRORS - Carry per-product context
// =============================================================================

// ProductError records a recoverable failure for one product during a pass.
type ProductError struct {
	ProductID ProductID
	Op        string // "validate", "create", "resize", "remove", "config"
	Err       error
}

func (e *ProductError) Error() string {
	return fmt.Sprintf("product %s: %s: %v", e.ProductID, e.Op, e.Err)
}

func (e *ProductError) Unwrap() error {
	return e.Err
}

// QuantityOutOfBoundsError carries the offending line and ceiling.
type QuantityOutOfBoundsError struct {
	LineID   LineID
	Quantity Qty
	Ceiling  Qty
}

func (e *QuantityOutOfBoundsError) Error() string {
	return fmt.Sprintf("line %d quantity %s exceeds ceiling %s",
		e.LineID, e.Quantity, e.Ceiling)
}

func (e *QuantityOutOfBoundsError) Unwrap() error {
	return ErrQuantityOutOfBounds
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRecoverable returns true if the error is one the engine handles
// per-product without aborting the pass.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrConfigUnavailable) ||
		errors.Is(err, ErrQuantityOutOfBounds) ||
		errors.Is(err, ErrLineMutationRejected)
}

// IsContractViolation returns true for unrecoverable caller mistakes.
func IsContractViolation(err error) bool {
	return errors.Is(err, ErrUnknownCart)
}
