package utils

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindingError_ReadableMessages(t *testing.T) {
	type input struct {
		SupplierId int    `validate:"required"`
		Kind       string `validate:"required,oneof=CR DB"`
	}
	err := validator.New().Struct(input{Kind: "XX"})
	require.Error(t, err)

	got := BindingError(err)
	assert.True(t, IsValidation(got))
	assert.Equal(t, "supplier_id is required; kind must be one of [CR DB]", got.Error())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("issue_date", "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, 15, d.Day())

	_, err = ParseDate("issue_date", "15/01/2024")
	assert.True(t, IsValidation(err))
	assert.Equal(t, "issue_date must be a date (YYYY-MM-DD)", err.Error())
}

func TestFormatPhoneNumber(t *testing.T) {
	got, err := FormatPhoneNumber("+1 650-253-0000", "MM")
	require.NoError(t, err)
	assert.Equal(t, "+16502530000", got)

	_, err = FormatPhoneNumber("12", "MM")
	assert.True(t, IsValidation(err))
}
