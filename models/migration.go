package models

import (
	"errors"

	"bitbucket.org/mmdatafocus/payables_backend/config"
)

func MigrateTable() error {
	db := config.GetDB()
	if db == nil {
		return errors.New("db is nil")
	}

	return db.AutoMigrate(
		&Supplier{},
		&Transaction{},
		&Invoice{},
		&User{},
	)
}
