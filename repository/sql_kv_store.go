package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/avax-blinks/models"
	"gorm.io/gorm"
)

// SQLKeyValueStore is a KeyValueStore over the kv_entries table (Postgres or SQLite)
type SQLKeyValueStore struct {
	db      *gorm.DB
	entries KVEntryRepository
}

func NewSQLKeyValueStore(db *gorm.DB) *SQLKeyValueStore {
	return &SQLKeyValueStore{db: db, entries: NewKVEntryRepository(db)}
}

// RunInTx runs fn in a database transaction; fn's error rolls it back
func (s *SQLKeyValueStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return WithTransaction(ctx, s.db, fn)
}

// MigrateKeyValueSchema creates or updates the kv_entries table
func MigrateKeyValueSchema(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.KVEntry{}); err != nil {
		return fmt.Errorf("migrating kv_entries: %w", err)
	}
	return nil
}

func (s *SQLKeyValueStore) Get(ctx context.Context, key string) (string, bool, error) {
	entry, err := s.entries.ByKey(ctx, key)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err)
	}
	if entry == nil {
		return "", false, nil
	}
	return entry.Value, true, nil
}

func (s *SQLKeyValueStore) Set(ctx context.Context, key, value string) error {
	if err := s.entries.Upsert(ctx, &models.KVEntry{Key: key, Value: value}); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err)
	}
	return nil
}

func (s *SQLKeyValueStore) Delete(ctx context.Context, key string) error {
	if err := s.entries.DeleteByKey(ctx, key); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err)
	}
	return nil
}

// Keys lists stored keys with the given prefix, most recently updated first
func (s *SQLKeyValueStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.entries.ByFilter(ctx, models.KVEntryFilter{KeyPrefix: &prefix}, "", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err)
	}
	keys := make([]string, 0, len(rows))
	for _, row := range rows {
		keys = append(keys, row.Key)
	}
	return keys, nil
}
