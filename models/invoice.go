package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/payables_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Invoice struct {
	ID           int             `gorm:"primary_key" json:"id"`
	SupplierId   int             `gorm:"index;not null" json:"supplier_id"`
	SupplierName string          `gorm:"->;-:migration" json:"supplier_name,omitempty"`
	Amount       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	Description  string          `gorm:"size:255" json:"description"`
	IssueDate    Date            `gorm:"type:date;not null" json:"issue_date"`
	DueDate      Date            `gorm:"type:date;not null" json:"due_date"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewInvoice struct {
	SupplierId  int                `json:"supplier_id" form:"supplier_id" binding:"required"`
	Amount      utils.NumberString `json:"amount" form:"amount" binding:"required"`
	Description string             `json:"description" form:"description" binding:"max=255"`
	IssueDate   string             `json:"issue_date" form:"issue_date" binding:"required"`
	DueDate     string             `json:"due_date" form:"due_date" binding:"required"`
}

type invoiceInput struct {
	amount    decimal.Decimal
	issueDate Date
	dueDate   Date
}

func (input *NewInvoice) validate(tx *gorm.DB) (*invoiceInput, error) {
	if input.SupplierId <= 0 {
		return nil, utils.ValidationError("supplier_id is required")
	}
	amount, err := utils.ParseAmount("amount", input.Amount.String())
	if err != nil {
		return nil, err
	}
	issueDate, err := ParseDate("issue_date", input.IssueDate)
	if err != nil {
		return nil, err
	}
	dueDate, err := ParseDate("due_date", input.DueDate)
	if err != nil {
		return nil, err
	}
	if dueDate.Before(issueDate) {
		return nil, utils.ValidationError("due_date must not be before issue_date")
	}
	if err := ensureSupplierExists(tx, input.SupplierId); err != nil {
		return nil, err
	}
	return &invoiceInput{amount: amount, issueDate: issueDate, dueDate: dueDate}, nil
}

func CreateInvoice(ctx context.Context, input *NewInvoice) (*Invoice, error) {
	var invoice Invoice
	err := WithTransaction(ctx, func(tx *gorm.DB) error {
		valid, err := input.validate(tx)
		if err != nil {
			return err
		}
		invoice = Invoice{
			SupplierId:  input.SupplierId,
			Amount:      valid.amount,
			Description: strings.TrimSpace(input.Description),
			IssueDate:   valid.issueDate,
			DueDate:     valid.dueDate,
		}
		return tx.Omit("SupplierName").Create(&invoice).Error
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func UpdateInvoice(ctx context.Context, id int, input *NewInvoice) (*Invoice, error) {
	var invoice Invoice
	err := WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&invoice, id).Error; err != nil {
			return notFoundOr(err, "invoice")
		}
		valid, err := input.validate(tx)
		if err != nil {
			return err
		}
		if err := tx.Model(&Invoice{}).Where("id = ?", id).Updates(map[string]interface{}{
			"supplier_id": input.SupplierId,
			"amount":      valid.amount,
			"description": strings.TrimSpace(input.Description),
			"issue_date":  valid.issueDate,
			"due_date":    valid.dueDate,
		}).Error; err != nil {
			return err
		}
		return tx.First(&invoice, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func DeleteInvoice(ctx context.Context, id int) (*Invoice, error) {
	var invoice Invoice
	err := WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&invoice, id).Error; err != nil {
			return notFoundOr(err, "invoice")
		}
		return tx.Delete(&Invoice{}, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func invoiceWithSupplier(db *gorm.DB) *gorm.DB {
	return db.Model(&Invoice{}).
		Select("invoices.*, suppliers.name AS supplier_name").
		Joins("LEFT JOIN suppliers ON suppliers.id = invoices.supplier_id")
}

func GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	db, err := readDB(ctx)
	if err != nil {
		return nil, err
	}
	var result Invoice
	if err := invoiceWithSupplier(db).Where("invoices.id = ?", id).First(&result).Error; err != nil {
		return nil, notFoundOr(err, "invoice")
	}
	return &result, nil
}

func ListInvoices(ctx context.Context) ([]*Invoice, error) {
	db, err := readDB(ctx)
	if err != nil {
		return nil, err
	}
	var results []*Invoice
	if err := invoiceWithSupplier(db).Order("invoices.id").Find(&results).Error; err != nil {
		return nil, utils.StoreError(err)
	}
	return results, nil
}

// settleMatchingInvoice deletes the lowest-id invoice of supplierId whose amount equals amount.
// Returns the deleted id, or nil when nothing matched.
func settleMatchingInvoice(tx *gorm.DB, supplierId int, amount decimal.Decimal) (*int, error) {
	var invoice Invoice
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("supplier_id = ? AND amount = CAST(? AS DECIMAL(20,4))", supplierId, amount).
		Order("id").
		Limit(1).
		Find(&invoice).Error
	if err != nil {
		return nil, err
	}
	if invoice.ID == 0 {
		return nil, nil
	}
	result := tx.Delete(&Invoice{}, invoice.ID)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	id := invoice.ID
	return &id, nil
}
