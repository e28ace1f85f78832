package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// MemoryBackend is an in-memory implementation of NetworkStore for testing.
//
// Records are kept in their JSON form so callers never share state with the
// store.
type MemoryBackend struct {
	mu        sync.RWMutex
	networks  map[string][]byte
	summaries map[string]Summary
}

// NewMemoryBackend creates a new in-memory storage backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		networks:  make(map[string][]byte),
		summaries: make(map[string]Summary),
	}
}

// Initialize implements NetworkStore.
func (m *MemoryBackend) Initialize(path string, readOnly bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.networks == nil {
		m.networks = make(map[string][]byte)
		m.summaries = make(map[string]Summary)
	}
	return nil
}

// Close implements NetworkStore.
func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.networks = nil
	m.summaries = nil
	return nil
}

// Save implements NetworkStore.
func (m *MemoryBackend) Save(ctx context.Context, rec *NetworkRecord) error {
	if err := ValidateName(rec.Name); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling network: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.networks == nil {
		return ErrNotInitialized
	}
	m.networks[rec.Name] = data
	m.summaries[rec.Name] = rec.Summary()
	return nil
}

// Load implements NetworkStore.
func (m *MemoryBackend) Load(ctx context.Context, name string) (*NetworkRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.networks == nil {
		return nil, ErrNotInitialized
	}

	data, ok := m.networks[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	var rec NetworkRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling network %s: %w", name, err)
	}
	return &rec, nil
}

// List implements NetworkStore.
func (m *MemoryBackend) List(ctx context.Context) ([]Summary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.networks == nil {
		return nil, ErrNotInitialized
	}

	summaries := make([]Summary, 0, len(m.summaries))
	for _, s := range m.summaries {
		summaries = append(summaries, s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].Name < summaries[j].Name
	})
	return summaries, nil
}

// Delete implements NetworkStore.
func (m *MemoryBackend) Delete(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.networks == nil {
		return ErrNotInitialized
	}
	if _, ok := m.networks[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(m.networks, name)
	delete(m.summaries, name)
	return nil
}
