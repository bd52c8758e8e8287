/*
errors.go - Centralized error types for the batch engine

PURPOSE:
  All fatal (whole-call) error types in one place. Contract packages wrap
  these with additional context where useful.

ERROR CLASSES:
  1. Fatal / whole-call - abort the batch call before or during processing
     with no counter mutation. Checked with errors.Is().
  2. Item-level - everything validated per item. These are NOT Go errors:
     they are contract-local Codes recorded in Results and never abort
     the batch. See types.go.

USAGE:
  Contract packages surface these directly:

    if errors.Is(err, batch.ErrUnauthorized) {
        // 403 at the API boundary
    }

SEE ALSO:
  - processor.go: Raises these from preconditions
  - types.go: Item-level Code and Outcome
*/
package batch

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotInitialized is returned when an admin-gated contract is called
	// before Initialize.
	ErrNotInitialized = errors.New("contract not initialized")

	// ErrAlreadyInitialized is returned on a second Initialize call.
	ErrAlreadyInitialized = errors.New("contract already initialized")

	// ErrUnauthorized is returned when the caller fails the contract's
	// authorization policy.
	ErrUnauthorized = errors.New("caller not authorized")

	// ErrEmptyBatch is returned for a batch with no items.
	ErrEmptyBatch = errors.New("empty batch")

	// ErrBatchTooLarge is returned for a batch exceeding MaxBatchSize.
	ErrBatchTooLarge = errors.New("batch exceeds maximum size")

	// ErrExecutionFailed is returned when a validated item fails at the
	// execution step for a reason validation could not foresee, such as a
	// downstream settlement rejection. Value-moving contracts treat this
	// as fatal to the whole call.
	ErrExecutionFailed = errors.New("item execution failed")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ExecutionError reports which item aborted the call and why.
type ExecutionError struct {
	Contract string
	Index    int
	Account  Account
	Cause    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: execution failed at item %d (account %s): %v",
		e.Contract, e.Index, e.Account, e.Cause)
}

func (e *ExecutionError) Unwrap() error { return ErrExecutionFailed }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsPrecondition reports whether the error aborted the call before any item
// was touched (no events, no state change).
func IsPrecondition(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrNotInitialized) ||
		errors.Is(err, ErrEmptyBatch) ||
		errors.Is(err, ErrBatchTooLarge)
}

// IsClientError reports whether the error is due to invalid caller input
// rather than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrEmptyBatch) ||
		errors.Is(err, ErrBatchTooLarge) ||
		errors.Is(err, ErrAlreadyInitialized)
}
