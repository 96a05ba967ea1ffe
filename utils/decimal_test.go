package utils

import (
	"encoding/json"
	"testing"
)

func TestParseDecimal_AcceptsFormattedStrings(t *testing.T) {
	cases := []struct {
		in       string
		expected string
	}{
		{"20000", "20000"},
		{"20,000", "20000"},
		{"-20,000", "-20000"},
		{"  1,234.50  ", "1234.5"},
		{"0.1", "0.1"},
	}
	for _, tc := range cases {
		d, err := ParseDecimal("amount", tc.in)
		if err != nil {
			t.Fatalf("ParseDecimal(%q) error: %v", tc.in, err)
		}
		if d.String() != tc.expected {
			t.Fatalf("ParseDecimal(%q) expected %s, got %s", tc.in, tc.expected, d.String())
		}
	}
}

func TestParseDecimal_RejectsNonNumeric(t *testing.T) {
	for _, in := range []string{"", "abc", "12a", "1.2.3", "MMK 10"} {
		_, err := ParseDecimal("amount", in)
		if err == nil {
			t.Fatalf("ParseDecimal(%q) expected error", in)
		}
		if !IsValidation(err) {
			t.Fatalf("ParseDecimal(%q) expected validation error, got %v", in, err)
		}
	}
}

func TestParseAmount_RequiresPositive(t *testing.T) {
	for _, in := range []string{"0", "-5", "0.00"} {
		if _, err := ParseAmount("amount", in); !IsValidation(err) {
			t.Fatalf("ParseAmount(%q) expected validation error, got %v", in, err)
		}
	}
	d, err := ParseAmount("amount", "1,000.00")
	if err != nil {
		t.Fatalf("ParseAmount: %v", err)
	}
	if d.String() != "1000" {
		t.Fatalf("expected 1000, got %s", d.String())
	}
}

func TestParseDecimal_RejectsWhatMoneyColumnsCantHold(t *testing.T) {
	for _, in := range []string{"0.00001", "1000.00004", "10000000000000000", "-10000000000000000"} {
		if _, err := ParseDecimal("amount", in); !IsValidation(err) {
			t.Fatalf("ParseDecimal(%q) expected validation error, got %v", in, err)
		}
	}
	if _, err := ParseAmount("amount", "0.00001"); !IsValidation(err) {
		t.Fatalf("ParseAmount(0.00001) expected validation error, got %v", err)
	}

	for _, in := range []string{"0.0001", "1.50000", "9999999999999999.9999", "-9999999999999999.9999"} {
		if _, err := ParseDecimal("amount", in); err != nil {
			t.Fatalf("ParseDecimal(%q) error: %v", in, err)
		}
	}
}

func TestNumberString_AcceptsNumbersAndStrings(t *testing.T) {
	var payload struct {
		A NumberString `json:"a"`
		B NumberString `json:"b"`
		C NumberString `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": 1000.10, "b": "1,000.10", "c": null}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.A != "1000.10" || payload.B != "1,000.10" || payload.C != "" {
		t.Fatalf("unexpected values: %+v", payload)
	}
}
