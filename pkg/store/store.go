// Package store holds the narrow settings persistence contract the session
// core depends on: string keys mapped to string values, used for the usage
// counter and persona state.
package store

import (
	"context"
	"sync"
)

// Settings is the persistence collaborator.
type Settings interface {
	// Load returns the stored value for key and whether it exists.
	Load(ctx context.Context, key string) (string, bool, error)
	// Save stores value under key, replacing any previous value.
	Save(ctx context.Context, key string, value string) error
}

// Memory is an in-process Settings implementation for tests and demos.
// Thread-safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
}

// Compile-time interface check.
var _ Settings = (*Memory)(nil)

// NewMemory creates an empty in-memory settings store.
func NewMemory() *Memory {
	return &Memory{values: map[string]string{}}
}

func (m *Memory) Load(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.values[key]
	return value, ok, nil
}

func (m *Memory) Save(_ context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
