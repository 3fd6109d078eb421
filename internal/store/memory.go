// internal/store/memory.go
//
// In-memory implementation of the Store interface.
// This is the lightweight persistence layer for ephemeral quiz sessions:
// state lives for the process lifetime (or until swept as idle).
//
// Characteristics:
//   - Stores values keyed by ID in a map.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - Tracks last access per key so idle sessions can be evicted.
//   - ErrNotFound is returned for missing IDs on Get().

package store

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when no value is stored under an ID.
var ErrNotFound = errors.New("not found")

// Store defines the persistence interface for sessions.
type Store[T any] interface {
	// Save persists or updates a value under id.
	Save(ctx context.Context, id string, v T) error

	// Get retrieves a value by id, refreshing its last-access time.
	Get(ctx context.Context, id string) (T, error)

	// Delete removes id; missing ids are not an error.
	Delete(ctx context.Context, id string) error

	// Sweep removes entries not accessed since cutoff and returns them.
	Sweep(ctx context.Context, cutoff time.Time) []T
}

type entry[T any] struct {
	v    T
	seen time.Time
}

// memory is an in-memory map-based Store implementation.
type memory[T any] struct {
	mu    sync.RWMutex // guards items
	items map[string]*entry[T]
	now   func() time.Time
}

// NewMemoryStore constructs a new in-memory Store.
func NewMemoryStore[T any]() Store[T] {
	return &memory[T]{items: make(map[string]*entry[T]), now: time.Now}
}

// Save adds or updates the value in the map.
func (m *memory[T]) Save(ctx context.Context, id string, v T) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[id] = &entry[T]{v: v, seen: m.now()}
	return nil
}

// Get looks up a value by id.
func (m *memory[T]) Get(ctx context.Context, id string) (T, error) {
	// Write lock: Get refreshes the access time.
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.items[id]; ok {
		e.seen = m.now()
		return e.v, nil
	}
	var zero T
	return zero, ErrNotFound
}

// Delete removes id.
func (m *memory[T]) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

// Sweep evicts entries idle since before cutoff.
func (m *memory[T]) Sweep(ctx context.Context, cutoff time.Time) []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []T
	for id, e := range m.items {
		if e.seen.Before(cutoff) {
			out = append(out, e.v)
			delete(m.items, id)
		}
	}
	return out
}

// Len reports the number of stored entries (diagnostics).
func Len[T any](s Store[T]) int {
	m, ok := s.(*memory[T])
	if !ok {
		return -1
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
