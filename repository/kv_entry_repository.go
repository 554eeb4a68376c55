package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/avax-blinks/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// KVEntryRepositoryImpl implements KVEntryRepository on top of GORM
type KVEntryRepositoryImpl struct {
	*BaseRepository[models.KVEntry, models.KVEntryFilter]
}

func NewKVEntryRepository(db *gorm.DB) KVEntryRepository {
	return &KVEntryRepositoryImpl{BaseRepository: NewBaseRepository[models.KVEntry, models.KVEntryFilter](db)}
}

// ByKey returns nil, nil when the key does not exist
func (r *KVEntryRepositoryImpl) ByKey(ctx context.Context, key string) (*models.KVEntry, error) {
	db := r.getDB(ctx)

	var entry models.KVEntry
	err := db.Where(map[string]any{"key": key}).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find kv entry by key %s: %w", key, err)
	}

	return &entry, nil
}

// Upsert inserts the entry or overwrites the value of an existing key
func (r *KVEntryRepositoryImpl) Upsert(ctx context.Context, entry *models.KVEntry) error {
	db := r.getDB(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(entry).Error
	if err != nil {
		return fmt.Errorf("failed to upsert kv entry %s: %w", entry.Key, err)
	}
	return nil
}

func (r *KVEntryRepositoryImpl) DeleteByKey(ctx context.Context, key string) error {
	db := r.getDB(ctx)
	if err := db.Where(map[string]any{"key": key}).Delete(&models.KVEntry{}).Error; err != nil {
		return fmt.Errorf("failed to delete kv entry %s: %w", key, err)
	}
	return nil
}

func (r *KVEntryRepositoryImpl) ByFilter(ctx context.Context, filter models.KVEntryFilter, orderBy string, limit, offset int) ([]*models.KVEntry, error) {
	db := r.applyFilter(r.getDB(ctx), filter)
	if orderBy == "" {
		orderBy = "updated_at DESC"
	}
	db = db.Order(orderBy)
	if limit > 0 {
		db = db.Limit(limit)
	}
	if offset > 0 {
		db = db.Offset(offset)
	}

	var rows []*models.KVEntry
	if err := db.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to find kv entries by filter: %w", err)
	}
	return rows, nil
}

func (r *KVEntryRepositoryImpl) applyFilter(db *gorm.DB, filter models.KVEntryFilter) *gorm.DB {
	if filter.Key != nil {
		db = db.Where(map[string]any{"key": *filter.Key})
	}
	if filter.KeyPrefix != nil {
		// exact prefix match, LIKE would treat "_" in "blinks_" as a wildcard
		db = db.Where("substr(key, 1, ?) = ?", len(*filter.KeyPrefix), *filter.KeyPrefix)
	}
	return db
}
