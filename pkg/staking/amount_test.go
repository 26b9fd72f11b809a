package staking

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("1000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000", v.String())

	_, err = ParseAmount("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be empty")

	_, err = ParseAmount("-5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be non-negative")

	_, err = ParseAmount("abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be a valid integer")
}

func TestParseUnits(t *testing.T) {
	tests := []struct {
		in       string
		decimals uint8
		want     string
		wantErr  bool
	}{
		{"1", 18, "1000000000000000000", false},
		{"1.5", 18, "1500000000000000000", false},
		{".25", 2, "25", false},
		{"0.000000000000000001", 18, "1", false},
		{"12", 0, "12", false},
		{"1.", 18, "", true},
		{"1.123", 2, "", true},
		{"1.10", 1, "11", false},
		{"2e3", 0, "2000", false},
		{"abc", 18, "", true},
		{"-1", 18, "", true},
		{"", 18, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseUnits(tt.in, tt.decimals)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestFormatUnits(t *testing.T) {
	v, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Equal(t, "1.5", FormatUnits(v, 18))
	assert.Equal(t, "0.000000000000000001", FormatUnits(big.NewInt(1), 18))
	assert.Equal(t, "42", FormatUnits(big.NewInt(42), 0))
	assert.Equal(t, "-0.5", FormatUnits(big.NewInt(-5), 1))
	assert.Equal(t, "0", FormatUnits(nil, 18))
	assert.Equal(t, "0", FormatUnits(big.NewInt(0), 18))
	assert.Equal(t, "1000", FormatUnits(big.NewInt(1000), 0))
}
