package testing

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/amirphl/avax-blinks/models"
)

// TestAddress is a well-formed wallet address used across tests
const TestAddress = "0xABC0000000000000000000000000000000001234"

// FixedClock returns a clock that always reports t
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// ErrStoreDown is returned by FailingKeyValueStore
var ErrStoreDown = errors.New("store down")

// FailingKeyValueStore fails every operation selected by its flags
type FailingKeyValueStore struct {
	FailGet    bool
	FailSet    bool
	FailDelete bool

	mu   sync.Mutex
	data map[string]string
	sets int
}

func NewFailingKeyValueStore(failGet, failSet bool) *FailingKeyValueStore {
	return &FailingKeyValueStore{FailGet: failGet, FailSet: failSet, data: map[string]string{}}
}

func (s *FailingKeyValueStore) Get(_ context.Context, key string) (string, bool, error) {
	if s.FailGet {
		return "", false, ErrStoreDown
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *FailingKeyValueStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets++
	if s.FailSet {
		return ErrStoreDown
	}
	s.data[key] = value
	return nil
}

func (s *FailingKeyValueStore) Delete(_ context.Context, key string) error {
	if s.FailDelete {
		return ErrStoreDown
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Seed stores a raw value, bypassing failure flags
func (s *FailingKeyValueStore) Seed(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Raw returns the raw stored value
func (s *FailingKeyValueStore) Raw(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

// SetCalls reports how many Set calls were attempted
func (s *FailingKeyValueStore) SetCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

// NewTestRecord builds a record for platform created at ts
func NewTestRecord(platform string, ts time.Time) models.LinkRecord {
	stamp := ts.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	return models.LinkRecord{
		Platform:  platform,
		Timestamp: stamp,
		Display:   "https://example.com/dapp/nav1?url=https://dest.example/" + platform + "&t=0",
		Actual:    "https://example.com/dapp/nav1?url=https%3A%2F%2Fdest.example%2F" + platform + "&t=0",
	}
}
