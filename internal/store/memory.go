package store

import (
	"context"
	"maps"
	"sync"
)

// MemoryStore is an in-process Store backed by a nested map, guarded by a
// single mutex. It exists for tests, which have no durability requirement;
// grounded on the original's InMemoryStorage (storage/in_memory.rs), which
// exists for the same reason.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]map[string][]byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, namespace, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns, ok := m.data[namespace]
	if !ok {
		return nil, false, nil
	}
	value, ok := ns[key]
	return value, ok, nil
}

func (m *MemoryStore) GetAll(_ context.Context, namespace string) (map[string][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns, ok := m.data[namespace]
	if !ok {
		return map[string][]byte{}, nil
	}
	return maps.Clone(ns), nil
}

func (m *MemoryStore) Save(_ context.Context, namespace, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns, ok := m.data[namespace]
	if !ok {
		ns = make(map[string][]byte)
		m.data[namespace] = ns
	}
	ns[key] = value
	return nil
}

func (m *MemoryStore) ListNamespaces(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	namespaces := make([]string, 0, len(m.data))
	for ns := range m.data {
		namespaces = append(namespaces, ns)
	}
	return namespaces, nil
}

func (m *MemoryStore) Delete(_ context.Context, namespace, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ns, ok := m.data[namespace]
	if !ok {
		return nil
	}
	delete(ns, key)
	if len(ns) == 0 {
		delete(m.data, namespace)
	}
	return nil
}
