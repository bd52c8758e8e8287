/*
processor.go - The generic two-pass batch pipeline

PURPOSE:
  One parametrized Processor replaces the near-duplicate loops the original
  contracts each carried. A contract plugs in its Validator/Executor pair
  (the Contract interface) and an authorization policy; the engine owns
  everything else: preconditions, the validation pass, the execution pass,
  event emission, and the single end-of-batch counter write.

PIPELINE:
  1. Preconditions (fatal, atomic): authorization policy, non-empty batch,
     batch <= MaxBatchSize. No events, no state change on failure.
  2. Allocate batch_id = persisted LastBatchID + 1 (not persisted yet).
  3. Emit BatchStarted.
  4. Validation pass: contract.Validate per item, in input order. Reads
     item fields and item-independent stored state only; writes nothing.
  5. Execution pass: invalid items become Failure results; valid items run
     contract.Execute, which may allocate ids, write entities, and move
     value. Item-level execution failures (Outcome) are recorded and the
     batch continues; an error return is fatal to the whole call.
  6. Re-read counters, add this batch's deltas, write once.
  7. Emit BatchCompleted, return the Summary.

FAILURE SEMANTICS:
  Item failures never abort the batch. A fatal execution error aborts the
  call without advancing counters; entity writes from earlier items remain,
  because the Store boundary has no transactions. Each item commits
  independently - a partially applied batch is a permanent, visible
  outcome, not a transient state.

CONCURRENCY:
  The host serializes calls per contract; outside a host, the Processor's
  own mutex enforces the same run-to-completion discipline. Items are
  processed strictly sequentially because later items may depend on state
  mutated by earlier ones (running balances, id allocation).
*/
package batch

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// CONTRACT - Pluggable validation/execution strategies
// =============================================================================

// Contract supplies the per-contract strategies the pipeline is
// parametrized over. R is the request type, D the success detail type.
type Contract[R any, D any] interface {
	// Name is the storage namespace and event category for this contract.
	Name() string

	// AccountOf returns the account a request acts on, echoed in results
	// and events.
	AccountOf(req R) Account

	// Validate checks one item. It may read stored state (duplicate-key
	// checks) but must not write. Called once per item, in input order,
	// before any item executes.
	Validate(ctx context.Context, pass *Pass, req R) Outcome

	// Execute applies one validated item. The returned Amount is the
	// item's contribution to the batch aggregate. A failed Outcome
	// records an item failure and the batch continues; a non-nil error
	// aborts the whole call.
	Execute(ctx context.Context, pass *Pass, req R) (D, Amount, Outcome, error)
}

// BatchHook is implemented by contracts needing per-batch setup, such as
// loading a spendable balance once at batch entry. An error is fatal.
type BatchHook interface {
	BeginBatch(ctx context.Context, pass *Pass) error
}

// =============================================================================
// PASS - Per-batch execution context
// =============================================================================

// Pass carries the batch-scoped context shared by every item: the batch id,
// the sequence/timestamp read once at entry, and the contract's scratch
// state for the duration of the run.
type Pass struct {
	BatchID  uint64
	Caller   Account
	Sequence uint64
	Now      time.Time
	State    *State

	// Scratch holds contract-private per-batch state (running balances).
	// Set in BeginBatch, discarded when the run returns.
	Scratch any

	sink   Sink
	itemID uint64
}

// NextItemID allocates the next monotonic entity identifier. Ids are
// assigned in input order and persist through the end-of-batch counter
// write.
func (p *Pass) NextItemID() uint64 {
	p.itemID++
	return p.itemID
}

// Emit publishes a contract-specific secondary event (e.g. a high-value
// goal marker) under this contract's category.
func (p *Pass) Emit(action string, payload map[string]any) {
	p.sink.Emit(newEvent(p.State.Contract(), action, p.BatchID, p.Now, payload))
}

// =============================================================================
// PROCESSOR
// =============================================================================

// Processor runs batches for one contract instance.
type Processor[R any, D any] struct {
	Contract Contract[R, D]
	State    *State
	Auth     AuthPolicy
	Authn    Authenticator
	Clock    Clock
	Sink     Sink

	// MaxBatch overrides MaxBatchSize when positive. Tests only.
	MaxBatch int

	mu sync.Mutex
}

// New assembles a Processor. Sink and Clock default to DiscardSink and
// SystemClock when nil.
func New[R any, D any](c Contract[R, D], st *State, auth AuthPolicy, authn Authenticator, clock Clock, sink Sink) *Processor[R, D] {
	if clock == nil {
		clock = SystemClock{}
	}
	if sink == nil {
		sink = DiscardSink{}
	}
	return &Processor[R, D]{
		Contract: c,
		State:    st,
		Auth:     auth,
		Authn:    authn,
		Clock:    clock,
		Sink:     sink,
	}
}

// Run processes one batch to completion. See the file header for the
// pipeline and failure semantics.
func (p *Processor[R, D]) Run(ctx context.Context, caller Account, items []R) (*Summary[R, D], error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Preconditions. Each failure aborts with no state change and no
	// events - the only place true atomicity applies.
	if err := p.Auth.Authorize(ctx, p.State, p.Authn, caller); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyBatch
	}
	max := p.MaxBatch
	if max <= 0 {
		max = MaxBatchSize
	}
	if len(items) > max {
		return nil, ErrBatchTooLarge
	}

	counters, err := p.State.Counters(ctx)
	if err != nil {
		return nil, err
	}
	batchID := counters.LastBatchID + 1

	pass := &Pass{
		BatchID:  batchID,
		Caller:   caller,
		Sequence: p.Clock.Sequence(ctx),
		Now:      p.Clock.Now(ctx),
		State:    p.State,
		sink:     p.Sink,
		itemID:   counters.LastItemID,
	}

	if hook, ok := any(p.Contract).(BatchHook); ok {
		if err := hook.BeginBatch(ctx, pass); err != nil {
			return nil, err
		}
	}

	p.Sink.Emit(newEvent(p.Contract.Name(), ActionBatchStarted, batchID, pass.Now, map[string]any{
		"item_count": len(items),
	}))

	// Validation pass.
	outcomes := make([]Outcome, len(items))
	for i, item := range items {
		outcomes[i] = p.Contract.Validate(ctx, pass, item)
	}

	// Execution pass.
	summary := &Summary[R, D]{
		BatchID: batchID,
		Total:   len(items),
		Results: make([]Result[R, D], 0, len(items)),
	}
	for i, item := range items {
		account := p.Contract.AccountOf(item)

		if !outcomes[i].Valid {
			p.recordFailure(summary, account, item, outcomes[i].Code, pass)
			continue
		}

		detail, delta, outcome, err := p.Contract.Execute(ctx, pass, item)
		if err != nil {
			return nil, &ExecutionError{
				Contract: p.Contract.Name(),
				Index:    i,
				Account:  account,
				Cause:    err,
			}
		}
		if !outcome.Valid {
			p.recordFailure(summary, account, item, outcome.Code, pass)
			continue
		}

		summary.Results = append(summary.Results, Result[R, D]{
			Account: account,
			Request: item,
			Success: true,
			Detail:  detail,
		})
		summary.Successful++
		summary.Aggregate = summary.Aggregate.SaturatingAdd(delta)
		p.Sink.Emit(newEvent(p.Contract.Name(), ActionItemSuccess, batchID, pass.Now, map[string]any{
			"account": account,
			"delta":   delta,
			"detail":  detail,
		}))
	}

	// One counter write per batch, from freshly read pre-batch values.
	counters, err = p.State.Counters(ctx)
	if err != nil {
		return nil, err
	}
	counters.LastBatchID = batchID
	counters.LastItemID = pass.itemID
	counters.ItemsProcessed += uint64(len(items))
	counters.Volume = counters.Volume.SaturatingAdd(summary.Aggregate)
	if err := p.State.SetCounters(ctx, counters); err != nil {
		return nil, err
	}

	p.Sink.Emit(newEvent(p.Contract.Name(), ActionBatchCompleted, batchID, pass.Now, map[string]any{
		"successful": summary.Successful,
		"failed":     summary.Failed,
		"aggregate":  summary.Aggregate,
	}))

	return summary, nil
}

func (p *Processor[R, D]) recordFailure(s *Summary[R, D], account Account, item R, code Code, pass *Pass) {
	var zero D
	s.Results = append(s.Results, Result[R, D]{
		Account: account,
		Request: item,
		Success: false,
		Detail:  zero,
		Code:    code,
	})
	s.Failed++
	p.Sink.Emit(newEvent(p.Contract.Name(), ActionItemFailure, pass.BatchID, pass.Now, map[string]any{
		"account": account,
		"code":    code,
		"request": item,
	}))
}
