package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ttacon/libphonenumber"
)

const DateLayout = "2006-01-02"

// BindingError turns gin/validator binding failures into a ValidationError with a readable message.
func BindingError(err error) error {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		msgs := make([]string, 0, len(ve))
		for _, fe := range ve {
			msgs = append(msgs, fieldErrorMessage(fe))
		}
		return ValidationError("%s", strings.Join(msgs, "; "))
	}
	return ValidationError("invalid request")
}

func fieldErrorMessage(fe validator.FieldError) string {
	field := toSnakeCase(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	}
	return field + " is invalid"
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ValidatePhoneNumber accepts numbers in international form or local to the given region.
func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	p, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return ValidationError("phone number is not valid")
	}
	if !libphonenumber.IsValidNumber(p) {
		return ValidationError("phone number is not valid")
	}
	return nil
}

// FormatPhoneNumber normalizes a valid phone number to E.164.
func FormatPhoneNumber(phoneNumber, countryCode string) (string, error) {
	if err := ValidatePhoneNumber(phoneNumber, countryCode); err != nil {
		return "", err
	}
	p, _ := libphonenumber.Parse(phoneNumber, countryCode)
	return libphonenumber.Format(p, libphonenumber.E164), nil
}

// ParseDate reads a YYYY-MM-DD calendar date.
func ParseDate(field string, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ValidationError("%s is required", field)
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return time.Time{}, ValidationError("%s must be a date (YYYY-MM-DD)", field)
	}
	return t, nil
}
