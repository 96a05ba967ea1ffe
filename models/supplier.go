package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/payables_backend/config"
	"bitbucket.org/mmdatafocus/payables_backend/ledger"
	"bitbucket.org/mmdatafocus/payables_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Supplier struct {
	ID             int             `gorm:"primary_key" json:"id"`
	Name           string          `gorm:"size:100;not null;uniqueIndex" json:"name"`
	Phone          string          `gorm:"size:20" json:"phone"`
	OpeningBalance decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"opening_balance"`
	Balance        decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"balance"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSupplier struct {
	ID             int                `json:"id" form:"id"`
	Name           string             `json:"name" form:"name" binding:"required,max=100"`
	Phone          *string            `json:"phone" form:"phone"`
	OpeningBalance utils.NumberString `json:"opening_balance" form:"opening_balance"`
}

// Balance rules:
// - balance starts at opening_balance and from then on only moves through transactions
// - editing opening_balance shifts balance by the same difference
// - a supplier referenced by transactions or invoices can't be deleted
// - on update, a field left out keeps its stored value; phone "" clears it

type supplierInput struct {
	name           string
	phone          string
	openingBalance decimal.Decimal
}

// validate input for both create & update. (current = nil for create)
func (input *NewSupplier) validate(tx *gorm.DB, current *Supplier) (*supplierInput, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, utils.ValidationError("name is required")
	}

	var count int64
	q := tx.Model(&Supplier{}).Where("name = ?", name)
	if current != nil {
		q = q.Where("id <> ?", current.ID)
	}
	if err := q.Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, utils.ValidationError("supplier name %q already exists", name)
	}

	result := supplierInput{name: name, openingBalance: decimal.Zero}
	if current != nil {
		result.phone = current.Phone
		result.openingBalance = current.OpeningBalance
	}
	if input.Phone != nil {
		result.phone = ""
		if phone := strings.TrimSpace(*input.Phone); phone != "" {
			formatted, err := utils.FormatPhoneNumber(phone, config.DefaultPhoneRegion())
			if err != nil {
				return nil, err
			}
			result.phone = formatted
		}
	}
	if strings.TrimSpace(input.OpeningBalance.String()) != "" {
		balance, err := utils.ParseDecimal("opening_balance", input.OpeningBalance.String())
		if err != nil {
			return nil, err
		}
		result.openingBalance = balance
	}
	return &result, nil
}

func CreateSupplier(ctx context.Context, input *NewSupplier) (*Supplier, error) {
	if input.ID < 0 {
		return nil, utils.ValidationError("id must be positive")
	}

	var supplier Supplier
	err := WithTransaction(ctx, func(tx *gorm.DB) error {
		valid, err := input.validate(tx, nil)
		if err != nil {
			return err
		}
		if input.ID > 0 {
			var count int64
			if err := tx.Model(&Supplier{}).Where("id = ?", input.ID).Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				return utils.ValidationError("supplier id %d already exists", input.ID)
			}
		}

		supplier = Supplier{
			ID:             input.ID,
			Name:           valid.name,
			Phone:          valid.phone,
			OpeningBalance: valid.openingBalance,
			Balance:        valid.openingBalance,
		}
		return tx.Create(&supplier).Error
	})
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

func UpdateSupplier(ctx context.Context, id int, input *NewSupplier) (*Supplier, error) {
	var supplier Supplier
	err := WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&supplier, id).Error; err != nil {
			return notFoundOr(err, "supplier")
		}
		valid, err := input.validate(tx, &supplier)
		if err != nil {
			return err
		}

		diff := valid.openingBalance.Sub(supplier.OpeningBalance)
		updates := map[string]interface{}{
			"name":            valid.name,
			"phone":           valid.phone,
			"opening_balance": valid.openingBalance,
		}
		if !diff.IsZero() {
			updates["balance"] = balanceExpr(diff)
		}
		if err := tx.Model(&Supplier{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&supplier, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

func DeleteSupplier(ctx context.Context, id int) (*Supplier, error) {
	var supplier Supplier
	err := WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&supplier, id).Error; err != nil {
			return notFoundOr(err, "supplier")
		}
		var count int64
		if err := tx.Model(&Transaction{}).Where("supplier_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return utils.ValidationError("supplier %d has %d transaction(s) and can't be deleted", id, count)
		}
		if err := tx.Model(&Invoice{}).Where("supplier_id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return utils.ValidationError("supplier %d has %d invoice(s) and can't be deleted", id, count)
		}
		return tx.Delete(&Supplier{}, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

func GetSupplier(ctx context.Context, id int) (*Supplier, error) {
	db, err := readDB(ctx)
	if err != nil {
		return nil, err
	}
	var result Supplier
	if err := db.First(&result, id).Error; err != nil {
		return nil, notFoundOr(err, "supplier")
	}
	return &result, nil
}

func ListSuppliers(ctx context.Context) ([]*Supplier, error) {
	db, err := readDB(ctx)
	if err != nil {
		return nil, err
	}
	var results []*Supplier
	if err := db.Order("id").Find(&results).Error; err != nil {
		return nil, utils.StoreError(err)
	}
	return results, nil
}

// BalanceCheck compares the stored balance with one recomputed from the ledger.
type BalanceCheck struct {
	SupplierId       int             `json:"supplier_id"`
	OpeningBalance   decimal.Decimal `json:"opening_balance"`
	StoredBalance    decimal.Decimal `json:"stored_balance"`
	ExpectedBalance  decimal.Decimal `json:"expected_balance"`
	TransactionCount int             `json:"transaction_count"`
	Consistent       bool            `json:"consistent"`
}

// ReconcileSupplier is a diagnostic: normal reads never recompute balances.
func ReconcileSupplier(ctx context.Context, id int) (*BalanceCheck, error) {
	var check BalanceCheck
	err := WithTransaction(ctx, func(tx *gorm.DB) error {
		var supplier Supplier
		if err := tx.First(&supplier, id).Error; err != nil {
			return notFoundOr(err, "supplier")
		}
		var transactions []*Transaction
		if err := tx.Where("supplier_id = ?", id).Order("id").Find(&transactions).Error; err != nil {
			return err
		}
		entries := make([]ledger.Entry, 0, len(transactions))
		for _, t := range transactions {
			entries = append(entries, t.entry())
		}
		expected := ledger.Replay(supplier.OpeningBalance, entries)
		check = BalanceCheck{
			SupplierId:       supplier.ID,
			OpeningBalance:   supplier.OpeningBalance,
			StoredBalance:    supplier.Balance,
			ExpectedBalance:  expected,
			TransactionCount: len(transactions),
			Consistent:       expected.Equal(supplier.Balance),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &check, nil
}

// ReconcileAllSuppliers runs ReconcileSupplier for every supplier, in id order.
func ReconcileAllSuppliers(ctx context.Context) ([]*BalanceCheck, error) {
	suppliers, err := ListSuppliers(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]*BalanceCheck, 0, len(suppliers))
	for _, s := range suppliers {
		check, err := ReconcileSupplier(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		results = append(results, check)
	}
	return results, nil
}

func ensureSupplierExists(tx *gorm.DB, id int) error {
	var count int64
	if err := tx.Model(&Supplier{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return utils.NotFoundError("supplier")
	}
	return nil
}

// balanceExpr is the atomic `balance + delta` update; the cast keeps MySQL in DECIMAL arithmetic.
func balanceExpr(delta decimal.Decimal) clause.Expr {
	return gorm.Expr("balance + CAST(? AS DECIMAL(20,4))", delta)
}

// adjustSupplierBalance applies one ledger adjustment without reading the balance first.
func adjustSupplierBalance(tx *gorm.DB, adj ledger.Adjustment) error {
	if adj.Delta.IsZero() {
		return nil
	}
	result := tx.Model(&Supplier{}).Where("id = ?", adj.SupplierId).Update("balance", balanceExpr(adj.Delta))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return utils.NotFoundError("supplier")
	}
	return nil
}
