package utils

import (
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Money columns are decimal(20,4).
const MoneyScale = 4

var maxMoney = decimal.New(1, 20-MoneyScale)

// ParseDecimal reads a user-typed money value.
// Accepts plain numbers and thousands separators ("20,000", "1,234.50") with an
// optional leading '-'. Anything else is a validation error, and so is a value
// the money columns can't hold exactly.
func ParseDecimal(field string, raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, ValidationError("%s is required", field)
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = strings.TrimSpace(strings.TrimPrefix(s, "-"))
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return decimal.Zero, ValidationError("%s must be a number", field)
		}
	}
	if neg {
		s = "-" + s
	}
	val, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ValidationError("%s must be a number", field)
	}
	if !val.Equal(val.Truncate(MoneyScale)) {
		return decimal.Zero, ValidationError("%s can have at most %d decimal places", field, MoneyScale)
	}
	if val.Abs().GreaterThanOrEqual(maxMoney) {
		return decimal.Zero, ValidationError("%s is too large", field)
	}
	return val, nil
}

// ParseAmount is ParseDecimal restricted to strictly positive values.
func ParseAmount(field string, raw string) (decimal.Decimal, error) {
	val, err := ParseDecimal(field, raw)
	if err != nil {
		return decimal.Zero, err
	}
	if !val.IsPositive() {
		return decimal.Zero, ValidationError("%s must be greater than zero", field)
	}
	return val, nil
}

// NumberString binds a money field sent either as a JSON number or as a string
// (JSON body or form value) without going through float64.
type NumberString string

func (n *NumberString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*n = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*n = NumberString(str)
		return nil
	}
	*n = NumberString(s)
	return nil
}

func (n NumberString) String() string {
	return string(n)
}
