package models

import (
	"context"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/payables_backend/ledger"
	"bitbucket.org/mmdatafocus/payables_backend/utils"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var tracer = otel.Tracer("payables_backend/models")

type Transaction struct {
	ID               int             `gorm:"primary_key" json:"id"`
	SupplierId       int             `gorm:"index;not null" json:"supplier_id"`
	Kind             ledger.Kind     `gorm:"size:2;not null;check:kind IN ('CR','DB')" json:"kind"`
	Amount           decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	SettledInvoiceId *int            `gorm:"-" json:"settled_invoice_id,omitempty"`
}

type NewTransaction struct {
	SupplierId int                `json:"supplier_id" form:"supplier_id" binding:"required"`
	Kind       string             `json:"kind" form:"kind" binding:"required"`
	Amount     utils.NumberString `json:"amount" form:"amount" binding:"required"`
}

// TransactionFilter narrows ListTransactions. Empty fields are ignored.
type TransactionFilter struct {
	Id         string `form:"id"`
	SupplierId string `form:"supplier_id"`
	Kind       string `form:"kind"`
	Amount     string `form:"amount"`
}

func (t *Transaction) entry() ledger.Entry {
	return ledger.Entry{SupplierId: t.SupplierId, Kind: t.Kind, Amount: t.Amount}
}

func (input *NewTransaction) entry() (ledger.Entry, error) {
	kind, err := ledger.ParseKind(input.Kind)
	if err != nil {
		return ledger.Entry{}, err
	}
	amount, err := utils.ParseAmount("amount", input.Amount.String())
	if err != nil {
		return ledger.Entry{}, err
	}
	e := ledger.Entry{SupplierId: input.SupplierId, Kind: kind, Amount: amount}
	if err := e.Validate(); err != nil {
		return ledger.Entry{}, err
	}
	return e, nil
}

func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func applyAdjustments(tx *gorm.DB, adjustments []ledger.Adjustment) error {
	for _, adj := range adjustments {
		if err := adjustSupplierBalance(tx, adj); err != nil {
			return err
		}
	}
	return nil
}

// CreateTransaction records the transaction, moves the supplier balance and,
// for a credit, settles the lowest-id invoice with the same supplier and amount.
func CreateTransaction(ctx context.Context, input *NewTransaction) (result *Transaction, err error) {
	ctx, span := startSpan(ctx, "models.CreateTransaction", attribute.Int("supplier_id", input.SupplierId))
	defer func() { endSpan(span, err) }()

	e, err := input.entry()
	if err != nil {
		return nil, err
	}

	var transaction Transaction
	err = WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := ensureSupplierExists(tx, e.SupplierId); err != nil {
			return err
		}
		transaction = Transaction{SupplierId: e.SupplierId, Kind: e.Kind, Amount: e.Amount}
		if err := tx.Create(&transaction).Error; err != nil {
			return err
		}
		if err := applyAdjustments(tx, ledger.CreateAdjustments(e)); err != nil {
			return err
		}
		if e.Kind == ledger.Credit {
			settled, err := settleMatchingInvoice(tx, e.SupplierId, e.Amount)
			if err != nil {
				return err
			}
			transaction.SettledInvoiceId = settled
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if transaction.SettledInvoiceId != nil {
		span.SetAttributes(attribute.Int("settled_invoice_id", *transaction.SettledInvoiceId))
	}
	return &transaction, nil
}

// UpdateTransaction reverses the stored effect and applies the new one.
// Editing never settles invoices.
func UpdateTransaction(ctx context.Context, id int, input *NewTransaction) (result *Transaction, err error) {
	ctx, span := startSpan(ctx, "models.UpdateTransaction", attribute.Int("transaction_id", id))
	defer func() { endSpan(span, err) }()

	e, err := input.entry()
	if err != nil {
		return nil, err
	}

	var transaction Transaction
	err = WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&transaction, id).Error; err != nil {
			return notFoundOr(err, "transaction")
		}
		if err := ensureSupplierExists(tx, e.SupplierId); err != nil {
			return err
		}
		if err := applyAdjustments(tx, ledger.EditAdjustments(transaction.entry(), e)); err != nil {
			return err
		}
		if err := tx.Model(&Transaction{}).Where("id = ?", id).Updates(map[string]interface{}{
			"supplier_id": e.SupplierId,
			"kind":        e.Kind,
			"amount":      e.Amount,
		}).Error; err != nil {
			return err
		}
		return tx.First(&transaction, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &transaction, nil
}

func DeleteTransaction(ctx context.Context, id int) (result *Transaction, err error) {
	ctx, span := startSpan(ctx, "models.DeleteTransaction", attribute.Int("transaction_id", id))
	defer func() { endSpan(span, err) }()

	var transaction Transaction
	err = WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&transaction, id).Error; err != nil {
			return notFoundOr(err, "transaction")
		}
		if err := applyAdjustments(tx, ledger.DeleteAdjustments(transaction.entry())); err != nil {
			return err
		}
		return tx.Delete(&Transaction{}, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &transaction, nil
}

func GetTransaction(ctx context.Context, id int) (*Transaction, error) {
	db, err := readDB(ctx)
	if err != nil {
		return nil, err
	}
	var result Transaction
	if err := db.First(&result, id).Error; err != nil {
		return nil, notFoundOr(err, "transaction")
	}
	return &result, nil
}

func ListTransactions(ctx context.Context, filter *TransactionFilter) ([]*Transaction, error) {
	db, err := readDB(ctx)
	if err != nil {
		return nil, err
	}
	if filter != nil {
		if s := strings.TrimSpace(filter.Id); s != "" {
			db = db.Where("CAST(id AS CHAR) LIKE ?", "%"+s+"%")
		}
		if s := strings.TrimSpace(filter.SupplierId); s != "" {
			db = db.Where("CAST(supplier_id AS CHAR) LIKE ?", "%"+s+"%")
		}
		if s := strings.TrimSpace(filter.Kind); s != "" {
			kind, err := ledger.ParseKind(s)
			if err != nil {
				return nil, err
			}
			db = db.Where("kind = ?", kind)
		}
		if s := strings.TrimSpace(filter.Amount); s != "" {
			amount, err := utils.ParseDecimal("amount", s)
			if err != nil {
				return nil, err
			}
			db = db.Where("amount = CAST(? AS DECIMAL(20,4))", amount)
		}
	}

	var results []*Transaction
	if err := db.Order("id").Find(&results).Error; err != nil {
		return nil, utils.StoreError(err)
	}
	return results, nil
}
