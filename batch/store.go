/*
store.go - Persistence interface for contract state

PURPOSE:
  Defines the narrow key/value capability the engine consumes from the host
  ledger runtime. Keeping the surface this small makes the core testable
  without a real ledger: nothing in the engine uses transactions or range
  queries.

SCOPES:
  Storage is partitioned into two scopes, mirroring the host's layout:
  - ScopeInstance: small contract-wide values (admin account, counters)
  - ScopeEntity:   per-entity records (wallets, goals, budgets), keyed by
                   account or by an allocated numeric id

IMPLEMENTATIONS:
  - batch/store/memory.go: In-memory for testing/dev
  - store/sqlite/sqlite.go: Production SQLite

SEE ALSO:
  - state.go: Typed helpers layered on this interface
*/
package batch

import "context"

// Scope selects the storage partition.
type Scope string

const (
	ScopeInstance Scope = "instance"
	ScopeEntity   Scope = "entity"
)

// Store is the persistent key/value boundary consumed from the host.
// Keys are namespaced by contract name so contract instances never observe
// each other's state.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, contract string, scope Scope, key string) ([]byte, bool, error)

	// Set writes the value for key, overwriting any previous value.
	Set(ctx context.Context, contract string, scope Scope, key string, value []byte) error

	// Has reports whether key exists without loading the value.
	Has(ctx context.Context, contract string, scope Scope, key string) (bool, error)
}
