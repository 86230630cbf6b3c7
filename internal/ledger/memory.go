package ledger

import (
	"context"
	"sync"
)

// MemoryKV is a mutex-guarded map implementation of KV. Used in tests and as
// the fallback when Redis is not configured; entries do not survive restarts.
type MemoryKV struct {
	mu      sync.Mutex
	entries map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{entries: make(map[string]string)}
}

func (m *MemoryKV) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok, nil
}

func (m *MemoryKV) Set(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.entries[key]; exists {
		return nil
	}
	m.entries[key] = value
	return nil
}
