package transfer

import (
	"context"
	"fmt"
	"sync"

	"github.com/warp/batch-engine/batch"
)

// =============================================================================
// MEMORY TOKEN - In-memory TokenClient (for testing/dev)
// =============================================================================

// MemoryToken is a TokenClient backed by a balance map. It exists so the
// contract can run outside a real ledger host; Mint seeds balances.
type MemoryToken struct {
	mu       sync.Mutex
	balances map[batch.Account]batch.Amount

	// FailFor makes Transfer reject a specific recipient, simulating a
	// downstream settlement failure after validation passed.
	FailFor batch.Account
}

func NewMemoryToken() *MemoryToken {
	return &MemoryToken{balances: make(map[batch.Account]batch.Amount)}
}

// Mint credits an account out of thin air.
func (m *MemoryToken) Mint(account batch.Account, amount batch.Amount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[account] = m.balances[account].SaturatingAdd(amount)
}

func (m *MemoryToken) Balance(_ context.Context, account batch.Account) (batch.Amount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[account], nil
}

func (m *MemoryToken) Transfer(_ context.Context, from, to batch.Account, amount batch.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.FailFor.IsZero() && to == m.FailFor {
		return fmt.Errorf("settlement rejected for %s", to)
	}
	if m.balances[from] < amount {
		return fmt.Errorf("balance of %s below %d", from, amount)
	}
	m.balances[from] -= amount
	m.balances[to] = m.balances[to].SaturatingAdd(amount)
	return nil
}
