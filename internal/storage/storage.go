// Package storage defines the local persistence contract used by the key
// stores and session cache, plus an in-memory implementation suitable for
// tests and for clients that do not need persistence across restarts.
package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by Get when no value exists for the key.
var ErrNotFound = errors.New("storage: not found")

// Table names used by the client's stores.
const (
	TableResourceKeys = "resource_keys"
	TableGroups       = "groups"
	TableSessions     = "transparent_sessions"
)

// Store is the minimal key-value contract the client needs. Implementations
// must be safe for concurrent use. Values handed to Put and returned from
// Get belong to the caller; implementations must copy.
type Store interface {
	Get(ctx context.Context, table, key string) ([]byte, error)
	Put(ctx context.Context, table, key string, value []byte) error
}

// MemoryStore is an in-process Store. The zero value is not usable; call
// NewMemoryStore.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]map[string][]byte)}
}

// Get returns a copy of the stored value, or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, table, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.tables[table][key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// Put stores a copy of value under (table, key), overwriting any previous
// value.
func (s *MemoryStore) Put(ctx context.Context, table, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[table]
	if !ok {
		t = make(map[string][]byte)
		s.tables[table] = t
	}
	t[key] = append([]byte(nil), value...)
	return nil
}
