package config

import (
	"maps"
	"sync"
)

// ContextStore is the mutable mapping middleware factories receive a snapshot
// of. It is safe for concurrent use.
type ContextStore struct {
	mu     sync.RWMutex
	values map[string]any
}

// NewContextStore creates a store seeded with a copy of initial.
func NewContextStore(initial map[string]any) *ContextStore {
	s := &ContextStore{values: make(map[string]any, len(initial))}
	maps.Copy(s.values, initial)
	return s
}

// Set merges values into the store; existing keys are overwritten.
func (s *ContextStore) Set(values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.values, values)
}

// Snapshot returns a copy of the current values. A nil store yields an empty map.
func (s *ContextStore) Snapshot() map[string]any {
	if s == nil {
		return map[string]any{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.values)
}

// Reset removes every value.
func (s *ContextStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.values)
}
