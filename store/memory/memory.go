// Package memory provides an in-process loader.Cache.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/pos-analytics/loader"
)

var _ loader.Cache = (*Memory)(nil)

// =============================================================================
// MEMORY CACHE - In-memory implementation (for tests and single-instance use)
// =============================================================================

type Memory struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func New() *Memory {
	return &Memory{docs: make(map[string][]byte)}
}

// Get returns a copy of the cached document.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.docs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), data...), true, nil
}

// Put stores a copy of data.
func (m *Memory) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs[key] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.docs = make(map[string][]byte)
	return nil
}

// Keys returns the cached paths, sorted.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.docs))
	for k := range m.docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}
