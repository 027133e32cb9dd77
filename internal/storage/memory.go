package storage

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a SnapshotStore kept in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[string][]byte
	leases map[string]lease
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data:   make(map[string][]byte),
		leases: make(map[string]lease),
		now:    time.Now,
	}
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *MemoryStore) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}
