package cache

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  map[string]string
	size     int
	capacity int
}

// NewMemoryStore creates a memory store. capacity bounds the total number of
// key and value bytes held; zero means unbounded.
func NewMemoryStore(capacity int) *MemoryStore {
	return &MemoryStore{
		entries:  make(map[string]string),
		capacity: capacity,
	}
}

// Get returns the value stored under key.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	v, ok := s.entries[key]
	s.mu.RUnlock()
	return v, ok, nil
}

// Set stores value under key. Returns ErrStoreFull when capacity would be exceeded.
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	size := s.size + len(key) + len(value)
	if old, ok := s.entries[key]; ok {
		size -= len(key) + len(old)
	}
	if s.capacity > 0 && size > s.capacity {
		return ErrStoreFull
	}

	s.entries[key] = value
	s.size = size
	return nil
}

// Remove deletes key. Idempotent - no error on miss.
func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	if old, ok := s.entries[key]; ok {
		s.size -= len(key) + len(old)
		delete(s.entries, key)
	}
	s.mu.Unlock()
	return nil
}

// RemoveIf deletes key only while it holds value.
func (s *MemoryStore) RemoveIf(_ context.Context, key, value string) error {
	s.mu.Lock()
	if old, ok := s.entries[key]; ok && old == value {
		s.size -= len(key) + len(old)
		delete(s.entries, key)
	}
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Reset drops every key, as an external "clear site data" would.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	s.entries = make(map[string]string)
	s.size = 0
	s.mu.Unlock()
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Ensure MemoryStore implements Store
var (
	_ Store          = (*MemoryStore)(nil)
	_ CompareRemover = (*MemoryStore)(nil)
	_ Pinger         = (*MemoryStore)(nil)
)
