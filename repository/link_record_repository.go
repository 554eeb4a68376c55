package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/amirphl/avax-blinks/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const tracerName = "github.com/amirphl/avax-blinks/repository"

// StoreErrorHook is notified whenever the record store recovers from a storage error
type StoreErrorHook func(op string, err error)

// LinkRecordRepositoryImpl stores each wallet's records as one JSON array under models.LinkRecordKey
type LinkRecordRepositoryImpl struct {
	store   KeyValueStore
	logger  *zap.Logger
	onError StoreErrorHook
}

func NewLinkRecordRepository(store KeyValueStore, logger *zap.Logger, onError StoreErrorHook) LinkRecordRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LinkRecordRepositoryImpl{store: store, logger: logger, onError: onError}
}

// Load returns the persisted records, or an empty slice when none exist or the data cannot be read
func (r *LinkRecordRepositoryImpl) Load(ctx context.Context, address string) []models.LinkRecord {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "LinkRecordRepository.Load")
	defer span.End()
	span.SetAttributes(attribute.String("wallet.address", address))

	records, err := r.read(ctx, address)
	if err != nil {
		span.RecordError(err)
		r.degrade("load", address, err)
		return []models.LinkRecord{}
	}
	return records
}

// Append prepends record and writes the whole sequence back, inside one transaction on SQL
// stores. Last writer wins.
// A failed write is logged and the in-memory sequence is still returned.
func (r *LinkRecordRepositoryImpl) Append(ctx context.Context, address string, record models.LinkRecord) []models.LinkRecord {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "LinkRecordRepository.Append")
	defer span.End()
	span.SetAttributes(attribute.String("wallet.address", address), attribute.String("blink.platform", record.Platform))

	var records []models.LinkRecord
	err := r.atomically(ctx, func(ctx context.Context) error {
		existing, err := r.read(ctx, address)
		if err != nil {
			span.RecordError(err)
			r.degrade("append_read", address, err)
			existing = nil
		}

		records = make([]models.LinkRecord, 0, len(existing)+1)
		records = append(records, record)
		records = append(records, existing...)

		payload, err := json.Marshal(records)
		if err != nil {
			r.degrade("append_encode", address, err)
			return nil
		}
		return r.store.Set(ctx, models.LinkRecordKey(address), string(payload))
	})
	if err != nil {
		span.RecordError(err)
		r.degrade("append_write", address, err)
	}
	return records
}

// atomically runs fn in a store transaction when the store supports one
func (r *LinkRecordRepositoryImpl) atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx, ok := r.store.(Transactor); ok {
		return tx.RunInTx(ctx, fn)
	}
	return fn(ctx)
}

// Clear removes the wallet's partition
func (r *LinkRecordRepositoryImpl) Clear(ctx context.Context, address string) error {
	if err := r.store.Delete(ctx, models.LinkRecordKey(address)); err != nil {
		return fmt.Errorf("failed to clear records for %s: %w", address, err)
	}
	return nil
}

// Addresses lists the wallets that have a stored partition
func (r *LinkRecordRepositoryImpl) Addresses(ctx context.Context) ([]string, error) {
	lister, ok := r.store.(KeyLister)
	if !ok {
		return nil, ErrListingUnsupported
	}
	keys, err := lister.Keys(ctx, models.LinkRecordKeyPrefix)
	if err != nil {
		return nil, err
	}
	addresses := make([]string, 0, len(keys))
	for _, k := range keys {
		addresses = append(addresses, strings.TrimPrefix(k, models.LinkRecordKeyPrefix))
	}
	return addresses, nil
}

func (r *LinkRecordRepositoryImpl) read(ctx context.Context, address string) ([]models.LinkRecord, error) {
	raw, ok, err := r.store.Get(ctx, models.LinkRecordKey(address))
	if err != nil {
		if errors.Is(err, ErrMalformedStoredData) || errors.Is(err, ErrPersistenceUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistenceUnavailable, err)
	}
	if !ok {
		return []models.LinkRecord{}, nil
	}

	var records []models.LinkRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedStoredData, err)
	}
	if records == nil {
		records = []models.LinkRecord{}
	}
	return records, nil
}

func (r *LinkRecordRepositoryImpl) degrade(op, address string, err error) {
	r.logger.Warn("link record store degraded",
		zap.String("op", op),
		zap.String("address", address),
		zap.Error(err),
	)
	if r.onError != nil {
		r.onError(op, err)
	}
}
