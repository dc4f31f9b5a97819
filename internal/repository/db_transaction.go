package repository

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

func (r *Repository) BeginTransaction(ctx context.Context) (*gorm.DB, error) {
	r.logger.Debug("Starting transaction...")
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		r.logger.Errorf("Failed to start transaction: %v", tx.Error)
		return nil, tx.Error
	}
	return tx, nil
}

func (r *Repository) Commit(tx *gorm.DB) error {
	r.logger.Debug("Committing transaction...")
	if err := tx.Commit().Error; err != nil {
		r.logger.Errorf("Failed to commit transaction: %v", err)
		return err
	}
	return nil
}

func (r *Repository) Rollback(tx *gorm.DB) {
	r.logger.Debug("Rolling back transaction...")
	_ = tx.Rollback().Error
}

// Transaction runs fn with a ctx that carries one database transaction.
// Every repository call made with that ctx joins it. fn returning an error
// (or panicking) rolls everything back. Nested calls reuse the outer transaction.
func (r *Repository) Transaction(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if _, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}

	tx, err := r.BeginTransaction(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Errorf("Panic occurred: %v", p)
			r.Rollback(tx)
			panic(p)
		}
		if err != nil {
			r.Rollback(tx)
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	return r.Commit(tx)
}
