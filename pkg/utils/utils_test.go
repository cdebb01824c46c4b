package utils

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name     string  `json:"name" validate:"required,max=5"`
	Currency *string `json:"currency,omitempty" validate:"omitempty,len=3"`
	Hidden   string  `json:"-" validate:"omitempty,email"`
}

func TestValidateStruct(t *testing.T) {
	usd := "USD"
	assert.NoError(t, ValidateStruct(sample{Name: "Acme", Currency: &usd}))
	assert.NoError(t, ValidateStruct(sample{Name: "Acme"}))

	bad := "dollars"
	err := ValidateStruct(sample{Name: "", Currency: &bad})

	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, map[string]string{"name": "required", "currency": "len"}, ve.Fields)
	assert.Equal(t, "validation failed: currency: len, name: required", err.Error())
}

func TestValidateAmount(t *testing.T) {
	assert.NoError(t, ValidateAmount(decimal.Zero))
	assert.NoError(t, ValidateAmount(decimal.NewFromInt(10)))
	assert.Error(t, ValidateAmount(decimal.NewFromInt(-1)))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "Acme\tInc\nLtd", SanitizeString("Ac\x00me\tInc\nLtd\x7f"))
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	logger, err := NewLogger(LoggerConfig{Level: "debug", OutputPath: path, Format: "json"})
	require.NoError(t, err)

	kv := NewKVLogger(logger)
	kv.Info("Invoice processed", "invoice_id", "abc")
	kv.Error("Extraction failed", "error", "timeout")
	assert.NoError(t, logger.Sync())
	assert.FileExists(t, path)
}
