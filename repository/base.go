package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// BaseRepository provides the connection lookup shared by GORM repositories; a transaction
// opened by WithTransaction travels in the context
type BaseRepository[T any, F any] struct {
	DB *gorm.DB
}

// NewBaseRepository creates a new base repository instance
func NewBaseRepository[T any, F any](db *gorm.DB) *BaseRepository[T, F] {
	return &BaseRepository[T, F]{
		DB: db,
	}
}

// getDB returns the appropriate database connection (with or without transaction)
func (r *BaseRepository[T, F]) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return tx.WithContext(ctx)
	}
	return r.DB.WithContext(ctx)
}

// WithTransaction runs fn with a transaction stored in its context. When ctx already carries
// one, fn joins it and the outer caller decides the outcome. Begin and commit failures wrap
// ErrPersistenceUnavailable; a panic in fn rolls back and is returned as an error.
func WithTransaction(ctx context.Context, db *gorm.DB, fn func(context.Context) error) (err error) {
	if tx, ok := ctx.Value(TxContextKey).(*gorm.DB); ok && tx != nil {
		return fn(ctx)
	}

	tx := db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return fmt.Errorf("%w: begin transaction: %v", ErrPersistenceUnavailable, tx.Error)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			err = fmt.Errorf("transaction aborted by panic: %v", p)
		}
	}()

	if err = fn(context.WithValue(ctx, TxContextKey, tx)); err != nil {
		tx.Rollback()
		return err
	}
	if cerr := tx.Commit().Error; cerr != nil {
		return fmt.Errorf("%w: commit transaction: %v", ErrPersistenceUnavailable, cerr)
	}
	return nil
}
