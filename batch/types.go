/*
Package batch provides the core batch operation processing engine.

PURPOSE:
  This package contains the domain-agnostic pipeline for applying a bounded
  batch of per-account requests against shared persistent state. Whether the
  batch transfers tokens, creates wallets, or generates financial
  recommendations, the same engine handles authorization, two-pass
  validate/execute processing, per-item failure isolation, monotonic
  identifier allocation, and counter bookkeeping.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account: A ledger account identifier
  - Amount: A signed ledger amount in minor units, with saturating arithmetic
  - Code: A contract-local item error code (small dense enum per contract)
  - Outcome: The result of validating a single item
  - Counters: Contract-wide persisted running totals

DESIGN PRINCIPLES:
  1. Partial failure: item failures are recorded, never raised
  2. Order preservation: results[i] always corresponds to items[i]
  3. One counter write per batch, never per item
  4. Saturating aggregation: totals clamp at the numeric maximum

SEE ALSO:
  - processor.go: The two-pass pipeline
  - state.go: Counter and entity persistence
  - errors.go: Fatal (whole-call) error types
*/
package batch

import "math"

// MaxBatchSize is the fixed upper bound on items per batch call.
const MaxBatchSize = 100

// =============================================================================
// ACCOUNT - Ledger account identifier
// =============================================================================

type Account string

// IsZero reports whether the account identifier is empty.
func (a Account) IsZero() bool { return a == "" }

// =============================================================================
// AMOUNT - Signed ledger amount in minor units
// =============================================================================

// Amount is a signed amount in the ledger's minor unit (stroops, cents).
// All aggregation uses saturating arithmetic: sums clamp at the numeric
// bounds instead of wrapping.
type Amount int64

// MaxAmount is the saturation ceiling for aggregated totals.
const MaxAmount Amount = math.MaxInt64

// MinAmount is the saturation floor.
const MinAmount Amount = math.MinInt64

// SaturatingAdd returns a+b, clamped to [MinAmount, MaxAmount] on overflow.
func (a Amount) SaturatingAdd(b Amount) Amount {
	sum := a + b
	if a > 0 && b > 0 && sum < 0 {
		return MaxAmount
	}
	if a < 0 && b < 0 && sum >= 0 {
		return MinAmount
	}
	return sum
}

// IsNegative reports whether the amount is below zero.
func (a Amount) IsNegative() bool { return a < 0 }

// IsPositive reports whether the amount is above zero.
func (a Amount) IsPositive() bool { return a > 0 }

// =============================================================================
// VALIDATION OUTCOME
// =============================================================================

// Code is a contract-local item error code. The code space is a small dense
// enum per contract; codes are not comparable across contracts.
type Code uint32

// Outcome is the result of validating (or executing) a single item.
type Outcome struct {
	Valid bool
	Code  Code
}

// OK returns a valid outcome.
func OK() Outcome { return Outcome{Valid: true} }

// Fail returns an invalid outcome carrying the contract-local error code.
func Fail(code Code) Outcome { return Outcome{Valid: false, Code: code} }

// =============================================================================
// COUNTERS - Contract-wide persisted running totals
// =============================================================================

// Counters are the contract-wide totals surviving across batches. They are
// mutated only by the Processor, exactly once at the end of a batch: a read
// issued while a batch is in flight sees the pre-batch values, even from the
// last item of the batch.
type Counters struct {
	// LastBatchID is monotonic and starts at 0. It advances once per
	// accepted batch call, and is never reused even when every item in
	// the batch failed.
	LastBatchID uint64 `json:"last_batch_id"`

	// LastItemID is the high-water mark for allocated entity identifiers
	// (wallet ids, goal ids). Monotonic across batches.
	LastItemID uint64 `json:"last_item_id"`

	// ItemsProcessed counts every item ever submitted past preconditions,
	// successful or failed.
	ItemsProcessed uint64 `json:"items_processed"`

	// Volume is the saturating lifetime sum of per-batch aggregates.
	Volume Amount `json:"volume"`
}
