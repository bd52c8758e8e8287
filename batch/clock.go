/*
clock.go - Monotonic sequence/timestamp source

The host ledger exposes a sequence number and wall-clock timestamp. The
engine reads both exactly once per batch and hands the values to the
contract through the Pass, so created_at fields and deadline validation
inside one batch always agree.
*/
package batch

import (
	"context"
	"time"
)

// Clock is the host's sequence/timestamp source.
type Clock interface {
	// Sequence returns the current monotonic ledger sequence.
	Sequence(ctx context.Context) uint64

	// Now returns the current wall-clock time.
	Now(ctx context.Context) time.Time
}

// SystemClock derives the sequence from Unix time. Good enough outside a
// real ledger host: it is monotonic at second granularity and calls are
// serialized per contract anyway.
type SystemClock struct{}

func (SystemClock) Sequence(ctx context.Context) uint64 { return uint64(time.Now().Unix()) }
func (SystemClock) Now(ctx context.Context) time.Time   { return time.Now().UTC() }

// ManualClock is a settable Clock for tests.
type ManualClock struct {
	Seq  uint64
	Time time.Time
}

func (m *ManualClock) Sequence(ctx context.Context) uint64 { return m.Seq }
func (m *ManualClock) Now(ctx context.Context) time.Time   { return m.Time }

// Advance moves the sequence forward by n.
func (m *ManualClock) Advance(n uint64) { m.Seq += n }
