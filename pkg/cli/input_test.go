package cli

import (
	"strings"
	"testing"

	apperrors "dex_trader/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid input", "orderbook.json", false},
		{"empty input", "", false},
		{"input with spaces", "btc usdt perp", false},
		{"command injection", "ls; rm -rf /", true},
		{"chained command", "a && b", true},
		{"path traversal", "../../../etc/passwd", true},
		{"sql injection", "'; DROP TABLE users; --", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateInput(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseDecimal(t *testing.T) {
	v, err := ParseDecimal("amount", "1.25")
	require.NoError(t, err)
	assert.Equal(t, "1.25", v.String())

	_, err = ParseDecimal("amount", "-1")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = ParseDecimal("amount", "1;2")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestValidateMarketID(t *testing.T) {
	assert.NoError(t, ValidateMarketID("0x"+strings.Repeat("ab", 32)))
	assert.Error(t, ValidateMarketID("0x1234"))
	assert.Error(t, ValidateMarketID(strings.Repeat("ab", 32)))
}
