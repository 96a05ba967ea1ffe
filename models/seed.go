package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/payables_backend/config"
	"bitbucket.org/mmdatafocus/payables_backend/ledger"
	"bitbucket.org/mmdatafocus/payables_backend/utils"
	"github.com/bsm/redislock"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type seedSupplier struct {
	supplier     Supplier
	transactions []Transaction
	invoices     []Invoice
}

// The seeded balances are the current balances; opening balances are
// chosen so that opening + transactions lands on them.
func seedSuppliers() []seedSupplier {
	date := func(year int, month time.Month, day int) Date {
		return NewDate(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
	}
	return []seedSupplier{
		{
			supplier: Supplier{ID: 1, Name: "Proveedor A", OpeningBalance: decimal.NewFromInt(1100), Balance: decimal.NewFromInt(2600)},
			transactions: []Transaction{
				{SupplierId: 1, Kind: ledger.Credit, Amount: decimal.NewFromInt(1500)},
			},
			invoices: []Invoice{
				{ID: 1, SupplierId: 1, Amount: decimal.NewFromInt(1000), Description: "Compra de insumos", IssueDate: date(2024, 1, 1), DueDate: date(2024, 1, 15)},
			},
		},
		{
			supplier: Supplier{ID: 2, Name: "Proveedor B", OpeningBalance: decimal.NewFromInt(4000), Balance: decimal.NewFromInt(3500)},
			transactions: []Transaction{
				{SupplierId: 2, Kind: ledger.Debit, Amount: decimal.NewFromInt(500)},
			},
			invoices: []Invoice{
				{ID: 2, SupplierId: 2, Amount: decimal.NewFromInt(2000), Description: "Servicios contratados", IssueDate: date(2024, 1, 10), DueDate: date(2024, 1, 20)},
			},
		},
	}
}

var seedUsers = []NewUser{
	{Username: "admin", Password: "admin123", Role: string(UserRoleAdmin)},
	{Username: "user", Password: "user123", Role: string(UserRoleUser)},
}

// Seed inserts the initial data set. A supplier that already exists is skipped
// together with its transactions and invoices, so running it twice is a no-op.
// When Redis is connected the run holds a lock so two instances don't seed at once.
func Seed(ctx context.Context) error {
	logger := config.GetLogger()
	if locker := config.GetRedisLock(); locker != nil {
		lock, err := locker.Obtain(ctx, "lock:seed", 30*time.Second, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			logger.Info("seed already running elsewhere, skipping")
			return nil
		}
		if err != nil {
			config.LogError(logger, "models", "Seed", "obtaining seed lock", nil, err)
		} else {
			defer lock.Release(context.Background())
		}
	}

	for _, s := range seedSuppliers() {
		err := WithTransaction(ctx, func(tx *gorm.DB) error {
			var count int64
			if err := tx.Model(&Supplier{}).Where("id = ? OR name = ?", s.supplier.ID, s.supplier.Name).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return nil
			}
			supplier := s.supplier
			if err := tx.Create(&supplier).Error; err != nil {
				return err
			}
			for _, t := range s.transactions {
				if err := tx.Create(&t).Error; err != nil {
					return err
				}
			}
			for _, inv := range s.invoices {
				var exists int64
				if err := tx.Model(&Invoice{}).Where("id = ?", inv.ID).Count(&exists).Error; err != nil {
					return err
				}
				if exists > 0 {
					inv.ID = 0
				}
				if err := tx.Omit("SupplierName").Create(&inv).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	for _, u := range seedUsers {
		input := u
		if _, err := CreateUser(ctx, &input); err != nil {
			if utils.IsValidation(err) {
				continue
			}
			return err
		}
	}
	return nil
}
