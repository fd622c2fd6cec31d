package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// TokenDecimals is the base-unit scale of both tokens
const TokenDecimals = 18

// ParseEther converts a human decimal string ("10", "0.5") into base units.
// Inputs with more than 18 fractional digits are rejected rather than rounded.
func ParseEther(amount string) (*big.Int, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return nil, fmt.Errorf("amount is required")
	}

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q", amount)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("amount must not be negative")
	}
	if d.Exponent() < -TokenDecimals && !d.Equal(d.Truncate(TokenDecimals)) {
		return nil, fmt.Errorf("amount %q has more than %d decimal places", amount, TokenDecimals)
	}

	return d.Shift(TokenDecimals).BigInt(), nil
}

// FormatEther renders base units as a decimal string with at least one
// fractional digit: 10e18 is "10.0", 15e17 is "1.5".
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0.0"
	}

	s := decimal.NewFromBigInt(wei, -TokenDecimals).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
