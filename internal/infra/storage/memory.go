// Package storage holds the persistence backends for the trial counter.
package storage

import (
	"context"
	"sync"
)

// MemoryStore keeps the counter in process memory. It forgets everything on
// restart and is meant for tests and throwaway runs.
type MemoryStore struct {
	mu   sync.Mutex
	used int
}

func NewMemoryStore(initial int) *MemoryStore {
	return &MemoryStore{used: initial}
}

func (m *MemoryStore) Load(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used, nil
}

func (m *MemoryStore) Save(_ context.Context, used int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.used = used
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}
