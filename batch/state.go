/*
state.go - Typed contract state over the Store capability

PURPOSE:
  State is the explicit, passed-by-reference object through which every
  storage access flows. It replaces the ambient environment the ledger host
  exposes to contracts, so the engine and the contract packages can be
  exercised against an in-memory Store.

LAYOUT:
  Instance scope:
    "admin"    -> Account (JSON string)
    "counters" -> Counters (JSON object)
  Entity scope:
    contract-chosen keys -> contract-chosen JSON records

INITIALIZATION:
  Admin-gated contracts call Initialize exactly once. A second call fails
  with ErrAlreadyInitialized; reading the admin before the first call fails
  with ErrNotInitialized. Self-authorized contracts never initialize and
  never read the admin key.

SEE ALSO:
  - store.go: The underlying capability interface
  - processor.go: Reads and writes Counters once per batch
*/
package batch

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	keyAdmin    = "admin"
	keyCounters = "counters"
)

// State gives one contract instance typed access to its slice of the Store.
type State struct {
	contract string
	store    Store
}

// NewState binds a contract name to a Store.
func NewState(contract string, store Store) *State {
	return &State{contract: contract, store: store}
}

// Contract returns the contract name this state is namespaced under.
func (s *State) Contract() string { return s.contract }

// =============================================================================
// ADMIN IDENTITY
// =============================================================================

// Initialize records the admin account. Fails if already initialized.
func (s *State) Initialize(ctx context.Context, admin Account) error {
	ok, err := s.store.Has(ctx, s.contract, ScopeInstance, keyAdmin)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialized
	}
	if err := s.putInstance(ctx, keyAdmin, admin); err != nil {
		return err
	}
	// Counters start at zero from the first batch.
	return s.SetCounters(ctx, Counters{})
}

// Initialized reports whether Initialize has been called.
func (s *State) Initialized(ctx context.Context) (bool, error) {
	return s.store.Has(ctx, s.contract, ScopeInstance, keyAdmin)
}

// Admin returns the admin account, or ErrNotInitialized.
func (s *State) Admin(ctx context.Context) (Account, error) {
	var admin Account
	ok, err := s.getInstance(ctx, keyAdmin, &admin)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotInitialized
	}
	return admin, nil
}

// ReplaceAdmin swaps the admin account. The current admin must pass the
// host authorization check and match the stored admin.
func (s *State) ReplaceAdmin(ctx context.Context, authn Authenticator, current, next Account) error {
	if err := authn.RequireAuth(ctx, current); err != nil {
		return err
	}
	admin, err := s.Admin(ctx)
	if err != nil {
		return err
	}
	if current != admin {
		return ErrUnauthorized
	}
	return s.putInstance(ctx, keyAdmin, next)
}

// =============================================================================
// COUNTERS
// =============================================================================

// Counters returns the persisted running totals; zero values before the
// first batch.
func (s *State) Counters(ctx context.Context) (Counters, error) {
	var c Counters
	if _, err := s.getInstance(ctx, keyCounters, &c); err != nil {
		return Counters{}, err
	}
	return c, nil
}

// SetCounters overwrites the persisted totals. Called by the Processor once
// per batch, never per item.
func (s *State) SetCounters(ctx context.Context, c Counters) error {
	return s.putInstance(ctx, keyCounters, c)
}

// =============================================================================
// ENTITY SCOPE
// =============================================================================

// GetEntity unmarshals the entity record at key into v. Returns false when
// the key does not exist.
func (s *State) GetEntity(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := s.store.Get(ctx, s.contract, ScopeEntity, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("%s: decode entity %q: %w", s.contract, key, err)
	}
	return true, nil
}

// PutEntity writes the entity record at key. Last write wins.
func (s *State) PutEntity(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s: encode entity %q: %w", s.contract, key, err)
	}
	return s.store.Set(ctx, s.contract, ScopeEntity, key, raw)
}

// HasEntity reports whether an entity record exists at key.
func (s *State) HasEntity(ctx context.Context, key string) (bool, error) {
	return s.store.Has(ctx, s.contract, ScopeEntity, key)
}

// =============================================================================
// INTERNAL
// =============================================================================

func (s *State) getInstance(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := s.store.Get(ctx, s.contract, ScopeInstance, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("%s: decode %q: %w", s.contract, key, err)
	}
	return true, nil
}

func (s *State) putInstance(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%s: encode %q: %w", s.contract, key, err)
	}
	return s.store.Set(ctx, s.contract, ScopeInstance, key, raw)
}
