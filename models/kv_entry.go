package models

import "time"

// KVEntry stores one key-value pair for the SQL-backed key-value store
type KVEntry struct {
	Key       string    `gorm:"primaryKey;size:191" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (KVEntry) TableName() string { return "kv_entries" }

// KVEntryFilter provides filter fields for repository queries
type KVEntryFilter struct {
	Key       *string
	KeyPrefix *string
}
