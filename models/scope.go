package models

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/payables_backend/config"
	"bitbucket.org/mmdatafocus/payables_backend/utils"
	"gorm.io/gorm"
)

// WithTransaction runs fn inside one database transaction.
// fn's error (or a panic) rolls everything back; a nil return commits.
// Errors that are not already classified come back as StoreError.
func WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	db := config.GetDB()
	if db == nil {
		return utils.StoreError(errors.New("db is nil"))
	}
	err := db.WithContext(ctx).Transaction(fn)
	return utils.StoreError(err)
}

// notFoundOr maps gorm.ErrRecordNotFound to a NotFound error for resource.
func notFoundOr(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.NotFoundError(resource)
	}
	return utils.StoreError(err)
}

func readDB(ctx context.Context) (*gorm.DB, error) {
	db := config.GetDB()
	if db == nil {
		return nil, utils.StoreError(errors.New("db is nil"))
	}
	return db.WithContext(ctx), nil
}
