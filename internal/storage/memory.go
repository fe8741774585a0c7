package storage

import (
	"context"
	"sync"
)

type MemoryStorage struct {
	mu     sync.RWMutex
	values map[string]map[string][]byte
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		values: make(map[string]map[string][]byte),
	}
}

func (s *MemoryStorage) Get(ctx context.Context, scope, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if value, exists := s.values[scope][key]; exists {
		return append([]byte(nil), value...), nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStorage) Put(ctx context.Context, scope, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, exists := s.values[scope]
	if !exists {
		entries = make(map[string][]byte)
		s.values[scope] = entries
	}
	entries[key] = append([]byte(nil), value...)
	return nil
}

func (s *MemoryStorage) Delete(ctx context.Context, scope, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values[scope], key)
	if len(s.values[scope]) == 0 {
		delete(s.values, scope)
	}
	return nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
