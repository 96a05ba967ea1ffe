// Package ledger holds the balance rules that keep a supplier's stored balance
// equal to its opening balance plus the signed sum of its transactions.
//
// Everything here is pure: callers turn the returned adjustments into
// `balance = balance + delta` statements inside one store transaction.
package ledger

import (
	"strings"

	"bitbucket.org/mmdatafocus/payables_backend/utils"
	"github.com/shopspring/decimal"
)

type Kind string

const (
	Debit  Kind = "DB"
	Credit Kind = "CR"
)

func (k Kind) Valid() bool {
	return k == Debit || k == Credit
}

// ParseKind accepts the stored codes (CR, DB) and their long names, case-insensitive.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DB", "DEBIT":
		return Debit, nil
	case "CR", "CREDIT":
		return Credit, nil
	}
	return "", utils.ValidationError("invalid transaction kind %q", s)
}

// Entry is the part of a transaction that affects a balance.
type Entry struct {
	SupplierId int
	Kind       Kind
	Amount     decimal.Decimal
}

// Delta is the signed change the entry makes to its supplier's balance.
func (e Entry) Delta() decimal.Decimal {
	if e.Kind == Debit {
		return e.Amount.Neg()
	}
	return e.Amount
}

// Reversal undoes Delta.
func (e Entry) Reversal() decimal.Decimal {
	return e.Delta().Neg()
}

func (e Entry) Validate() error {
	if e.SupplierId <= 0 {
		return utils.ValidationError("supplier_id is required")
	}
	if !e.Kind.Valid() {
		return utils.ValidationError("invalid transaction kind %q", string(e.Kind))
	}
	if !e.Amount.IsPositive() {
		return utils.ValidationError("amount must be greater than zero")
	}
	return nil
}

// Apply returns the balance after the entry is recorded.
func Apply(balance decimal.Decimal, e Entry) decimal.Decimal {
	return balance.Add(e.Delta())
}

// Replay folds entries over an opening balance.
func Replay(opening decimal.Decimal, entries []Entry) decimal.Decimal {
	balance := opening
	for _, e := range entries {
		balance = Apply(balance, e)
	}
	return balance
}

// Adjustment is one `balance = balance + Delta` update on a supplier.
type Adjustment struct {
	SupplierId int
	Delta      decimal.Decimal
}

func CreateAdjustments(e Entry) []Adjustment {
	return []Adjustment{{SupplierId: e.SupplierId, Delta: e.Delta()}}
}

func DeleteAdjustments(e Entry) []Adjustment {
	return []Adjustment{{SupplierId: e.SupplierId, Delta: e.Reversal()}}
}

// EditAdjustments reverses old and applies updated.
// When both touch the same supplier the two deltas are netted into a single
// adjustment, and a zero net change yields no adjustment at all.
// The old supplier's adjustment always comes first.
func EditAdjustments(old, updated Entry) []Adjustment {
	if old.SupplierId == updated.SupplierId {
		net := old.Reversal().Add(updated.Delta())
		if net.IsZero() {
			return nil
		}
		return []Adjustment{{SupplierId: old.SupplierId, Delta: net}}
	}
	return []Adjustment{
		{SupplierId: old.SupplierId, Delta: old.Reversal()},
		{SupplierId: updated.SupplierId, Delta: updated.Delta()},
	}
}
