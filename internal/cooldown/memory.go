package cooldown

import (
	"context"
	"sync"
	"time"
)

type Memory struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]Entry)}
}

func (m *Memory) Get(_ context.Context, id string) (*Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *Memory) Set(_ context.Context, id string, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[id] = e
	return nil
}

func (m *Memory) EvictOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, e := range m.entries {
		if e.ScannedAt.Before(cutoff) {
			delete(m.entries, id)
			n++
		}
	}
	return n, nil
}
