package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("record not found")

// UnitOfWork scopes a group of writes to a single database transaction.
// Repositories receive the tx handle; nothing outside fn observes the writes
// until Do returns nil.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(tx *gorm.DB) error) error
	// Savepoint runs fn inside a nested scope of tx. When fn fails only its
	// writes are undone and tx stays usable.
	Savepoint(ctx context.Context, tx *gorm.DB, fn func(tx *gorm.DB) error) error
}

type gormUnitOfWork struct{ db *gorm.DB }

func NewUnitOfWork(db *gorm.DB) UnitOfWork { return &gormUnitOfWork{db: db} }

func (u *gormUnitOfWork) Do(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return u.db.WithContext(ctx).Transaction(fn)
}

// Savepoint relies on gorm issuing SAVEPOINT / ROLLBACK TO for nested transactions.
func (u *gormUnitOfWork) Savepoint(ctx context.Context, tx *gorm.DB, fn func(tx *gorm.DB) error) error {
	return tx.WithContext(ctx).Transaction(fn)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
