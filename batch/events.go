/*
events.go - Append-only event trail

PURPOSE:
  Every batch call past preconditions leaves a structured event trail for
  off-chain observability: BatchStarted, one ItemSuccess/ItemFailure per
  item in order, contract-specific secondary events (e.g. a high-value
  goal), then BatchCompleted. Events are keyed by (category, action,
  batch_id) and are never read back by the contracts themselves.

DELIVERY:
  Emission is fire-and-forget. A Sink must not fail the batch: the SQLite
  sink logs write errors instead of returning them, and the engine ignores
  nothing because there is nothing to ignore.

SEE ALSO:
  - store/sqlite/sqlite.go: EventLog sink
*/
package batch

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event actions used by the engine. Contracts add their own actions for
// secondary events via Pass.Emit.
const (
	ActionBatchStarted   = "batch_started"
	ActionBatchCompleted = "batch_completed"
	ActionItemSuccess    = "item_success"
	ActionItemFailure    = "item_failure"
)

// Event is one append-only observability record.
type Event struct {
	ID       string         `json:"id"`
	Category string         `json:"category"` // contract name
	Action   string         `json:"action"`
	BatchID  uint64         `json:"batch_id"`
	Payload  map[string]any `json:"payload,omitempty"`
	At       time.Time      `json:"at"`
}

// Sink receives events. Implementations must tolerate concurrent Emit calls
// from different contract instances.
type Sink interface {
	Emit(e Event)
}

func newEvent(category, action string, batchID uint64, at time.Time, payload map[string]any) Event {
	return Event{
		ID:       uuid.NewString(),
		Category: category,
		Action:   action,
		BatchID:  batchID,
		Payload:  payload,
		At:       at,
	}
}

// =============================================================================
// MEMORY SINK - For tests and dev
// =============================================================================

// MemorySink records events in order of emission.
type MemorySink struct {
	mu     sync.Mutex
	events []Event
}

func NewMemorySink() *MemorySink { return &MemorySink{} }

func (m *MemorySink) Emit(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

// Events returns a copy of everything emitted so far.
func (m *MemorySink) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// ByAction filters recorded events by category and action.
func (m *MemorySink) ByAction(category, action string) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Event
	for _, e := range m.events {
		if e.Category == category && e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of recorded events.
func (m *MemorySink) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

// DiscardSink drops every event. Useful when a contract is exercised
// without observability wiring.
type DiscardSink struct{}

func (DiscardSink) Emit(Event) {}
