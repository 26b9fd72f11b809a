package staking

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a non-negative integer amount in base units.
func ParseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("invalid amount: %s (must be non-negative)", s)
	}

	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount: %s (must be a valid integer)", s)
	}

	return amount, nil
}

// ParseUnits parses a decimal amount such as "1.5" into base units with the
// given number of decimals.
func ParseUnits(s string, decimals uint8) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}
	if strings.HasSuffix(s, ".") {
		return nil, fmt.Errorf("invalid amount: %s", s)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %s (must be a decimal number)", s)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("invalid amount: %s (must be non-negative)", s)
	}

	units := d.Shift(int32(decimals))
	if !units.IsInteger() {
		return nil, fmt.Errorf("invalid amount: %s (more than %d decimals)", s, decimals)
	}
	return units.BigInt(), nil
}

// FormatUnits renders base units as a decimal string with trailing zeros trimmed.
func FormatUnits(v *big.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -int32(decimals)).String()
}
