package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryKeyValueStore keeps values in process memory
type MemoryKeyValueStore struct {
	data map[string]string
	m    sync.RWMutex
}

func NewMemoryKeyValueStore() *MemoryKeyValueStore {
	return &MemoryKeyValueStore{data: make(map[string]string)}
}

func (s *MemoryKeyValueStore) Get(_ context.Context, key string) (string, bool, error) {
	s.m.RLock()
	defer s.m.RUnlock()

	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryKeyValueStore) Set(_ context.Context, key, value string) error {
	s.m.Lock()
	defer s.m.Unlock()

	s.data[key] = value
	return nil
}

func (s *MemoryKeyValueStore) Delete(_ context.Context, key string) error {
	s.m.Lock()
	defer s.m.Unlock()

	delete(s.data, key)
	return nil
}

// Keys returns the keys with the given prefix in lexical order
func (s *MemoryKeyValueStore) Keys(_ context.Context, prefix string) ([]string, error) {
	s.m.RLock()
	defer s.m.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
