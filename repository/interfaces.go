// Package repository provides key-value storage backends and the per-wallet link record store
package repository

import (
	"context"
	"errors"

	"github.com/amirphl/avax-blinks/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

// Storage errors surfaced to the record store
var (
	ErrPersistenceUnavailable = errors.New("persistence unavailable")
	ErrMalformedStoredData    = errors.New("malformed stored data")
)

type Repository[T any, F any] interface {
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
}

// KeyValueStore is a string key-value store. Get reports whether the key exists.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// KeyLister is implemented by stores that can enumerate their keys
type KeyLister interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Transactor is implemented by stores that can run a read-modify-write as one transaction.
// Calls made with the ctx passed to fn join the transaction.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// KVEntryRepository defines operations for SQL-backed key-value rows
type KVEntryRepository interface {
	Repository[models.KVEntry, models.KVEntryFilter]
	ByKey(ctx context.Context, key string) (*models.KVEntry, error)
	Upsert(ctx context.Context, entry *models.KVEntry) error
	DeleteByKey(ctx context.Context, key string) error
}

// LinkRecordRepository keeps each wallet's link records, most recent first.
// Load and Append never fail; storage problems degrade to an empty sequence.
type LinkRecordRepository interface {
	Load(ctx context.Context, address string) []models.LinkRecord
	Append(ctx context.Context, address string, record models.LinkRecord) []models.LinkRecord
	Clear(ctx context.Context, address string) error
	Addresses(ctx context.Context) ([]string, error)
}

// ErrListingUnsupported is returned by Addresses when the backing store cannot enumerate keys
var ErrListingUnsupported = errors.New("store does not support key listing")
