// Package store provides batch.Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/warp/batch-engine/batch"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu   sync.RWMutex
	data map[memKey][]byte
}

type memKey struct {
	Contract string
	Scope    batch.Scope
	Key      string
}

func NewMemory() *Memory {
	return &Memory{data: make(map[memKey][]byte)}
}

func (m *Memory) Get(_ context.Context, contract string, scope batch.Scope, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	raw, ok := m.data[memKey{contract, scope, key}]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, true, nil
}

func (m *Memory) Set(_ context.Context, contract string, scope batch.Scope, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw := make([]byte, len(value))
	copy(raw, value)
	m.data[memKey{contract, scope, key}] = raw
	return nil
}

func (m *Memory) Has(_ context.Context, contract string, scope batch.Scope, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.data[memKey{contract, scope, key}]
	return ok, nil
}

// Len returns the number of stored keys. Tests use this to assert that a
// rejected batch wrote nothing.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
