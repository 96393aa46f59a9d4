// Package units converts between human decimal amounts and integer token units.
package units

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"yieldSpace/internal/fixedpoint"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrTooPrecise    = errors.New("amount has more decimals than the asset")
)

// ParseAmount parses a non-negative decimal string into integer units with
// the given number of decimals. "1.5" with 18 decimals is 1.5e18 units.
func ParseAmount(s string, decimals int32) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}
	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("%w: %q with %d decimals", ErrTooPrecise, s, decimals)
	}
	return scaled.BigInt(), nil
}

// FormatAmount renders integer units as a decimal string with trailing zeros trimmed.
func FormatAmount(v *big.Int, decimals int32) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -decimals).String()
}

// FormatQ64 renders a Q64.64 value with the given number of places.
func FormatQ64(v *big.Int, places int32) string {
	if v == nil {
		return "0"
	}
	num := decimal.NewFromBigInt(v, 0)
	den := decimal.NewFromBigInt(fixedpoint.One, 0)
	return num.DivRound(den, places).StringFixed(places)
}

// Ratio divides two integer amounts and returns the quotient with the given places.
// It returns false when den is zero.
func Ratio(num, den *big.Int, places int32) (decimal.Decimal, bool) {
	if num == nil || den == nil || den.Sign() == 0 {
		return decimal.Zero, false
	}
	return decimal.NewFromBigInt(num, 0).DivRound(decimal.NewFromBigInt(den, 0), places), true
}
