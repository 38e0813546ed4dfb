// Package memory stores article records in-memory for tests and dry runs.
package memory

import (
	"context"
	"sort"
	"sync"
)

// Store keeps records in a map keyed by object name.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewStore creates an empty in-memory record store.
func NewStore() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Save persists a copy of the record.
func (s *Store) Save(_ context.Context, objectName string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[objectName] = append([]byte(nil), data...)
	return nil
}

// Object returns the stored record for a name.
func (s *Store) Object(objectName string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[objectName]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Names returns every stored object name, sorted.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports how many records are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
