package models_test

import (
	"context"
	"testing"

	"bitbucket.org/mmdatafocus/payables_backend/config"
	"bitbucket.org/mmdatafocus/payables_backend/models"
	"bitbucket.org/mmdatafocus/payables_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

// openTestDB installs a fresh in-memory SQLite database as the global DB.
// One connection only: every connection to ":memory:" is a separate database.
func openTestDB(t *testing.T) context.Context {
	t.Helper()
	t.Setenv("DB_MAX_OPEN_CONNS", "1")
	t.Setenv("DB_CONN_MAX_LIFETIME_SECONDS", "0")
	t.Setenv("DB_CONN_MAX_IDLE_TIME_SECONDS", "0")
	require.NoError(t, config.OpenDatabase(sqlite.Open(":memory:")))
	t.Cleanup(config.CloseDatabase)
	require.NoError(t, models.MigrateTable())
	return context.Background()
}

func ptr[T any](v T) *T {
	return &v
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func addSupplier(t *testing.T, ctx context.Context, name string, opening string) *models.Supplier {
	t.Helper()
	s, err := models.CreateSupplier(ctx, &models.NewSupplier{Name: name, OpeningBalance: utils.NumberString(opening)})
	require.NoError(t, err)
	return s
}

func addTransaction(t *testing.T, ctx context.Context, supplierId int, kind string, amount string) *models.Transaction {
	t.Helper()
	tr, err := models.CreateTransaction(ctx, &models.NewTransaction{SupplierId: supplierId, Kind: kind, Amount: utils.NumberString(amount)})
	require.NoError(t, err)
	return tr
}

func addInvoice(t *testing.T, ctx context.Context, supplierId int, amount string) *models.Invoice {
	t.Helper()
	inv, err := models.CreateInvoice(ctx, &models.NewInvoice{
		SupplierId: supplierId,
		Amount:     utils.NumberString(amount),
		IssueDate:  "2024-01-01",
		DueDate:    "2024-01-15",
	})
	require.NoError(t, err)
	return inv
}

func balanceOf(t *testing.T, ctx context.Context, id int) decimal.Decimal {
	t.Helper()
	s, err := models.GetSupplier(ctx, id)
	require.NoError(t, err)
	return s.Balance
}

// requireBalance compares decimals by value so "1000" and "1000.0000" are equal.
func requireBalance(t *testing.T, ctx context.Context, id int, expected string) {
	t.Helper()
	got := balanceOf(t, ctx, id)
	require.Truef(t, got.Equal(dec(expected)), "supplier %d balance: expected %s, got %s", id, expected, got)
}

func requireConsistent(t *testing.T, ctx context.Context, id int) {
	t.Helper()
	check, err := models.ReconcileSupplier(ctx, id)
	require.NoError(t, err)
	require.Truef(t, check.Consistent, "supplier %d: stored %s, expected %s", id, check.StoredBalance, check.ExpectedBalance)
}
