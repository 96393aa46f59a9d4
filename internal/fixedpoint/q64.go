// Package fixedpoint implements signed Q64.64 arithmetic over math/big with the
// fractional powers needed by the invariant. All operations are integer only.
package fixedpoint

import (
	"errors"
	"math/big"
)

// Resolution is the number of fractional bits.
const Resolution = 64

// internal precision used by Log2 and Exp2
const precision = 192

var (
	ErrDomain   = errors.New("fixedpoint: value out of domain")
	ErrOverflow = errors.New("fixedpoint: overflow")
)

// Rounding selects the direction of the final rounding step.
type Rounding int

const (
	RoundingDown Rounding = iota
	RoundingUp
)

var (
	// One is 1.0 in Q64.64. Treat as read-only.
	One = new(big.Int).Lsh(big.NewInt(1), Resolution)

	oneMinusUlp = new(big.Int).Sub(One, big.NewInt(1))
	precOne     = new(big.Int).Lsh(big.NewInt(1), precision)
	precTwo     = new(big.Int).Lsh(big.NewInt(2), precision)

	// roots[i] = 2^(2^-(i+1)) in Q192, rounded down.
	roots = buildRoots()
)

func buildRoots() []*big.Int {
	out := make([]*big.Int, Resolution)
	out[0] = new(big.Int).Sqrt(new(big.Int).Lsh(big.NewInt(2), 2*precision))
	for i := 1; i < Resolution; i++ {
		out[i] = new(big.Int).Sqrt(new(big.Int).Lsh(out[i-1], precision))
	}
	return out
}

// FromInt converts an integer amount into Q64.64.
func FromInt(n *big.Int) *big.Int {
	return new(big.Int).Lsh(n, Resolution)
}

// Frac returns num/den in Q64.64, rounded down. den must be positive.
func Frac(num, den int64) *big.Int {
	v := new(big.Int).Lsh(big.NewInt(num), Resolution)
	return v.Div(v, big.NewInt(den))
}

// ToInt converts a Q64.64 value back to an integer amount.
func ToInt(v *big.Int, rounding Rounding) *big.Int {
	out := new(big.Int).Set(v)
	if rounding == RoundingUp {
		out.Add(out, oneMinusUlp)
	}
	// Rsh floors negative values as well.
	return out.Rsh(out, Resolution)
}

// Log2 returns log2(x) for a positive Q64.64 x, rounded down.
func Log2(x *big.Int) (*big.Int, error) {
	if x == nil || x.Sign() <= 0 {
		return nil, ErrDomain
	}

	msb := x.BitLen() - 1
	result := big.NewInt(int64(msb - Resolution))
	result.Lsh(result, Resolution)

	// mantissa in [1, 2) with precision fractional bits
	m := new(big.Int).Set(x)
	if msb < precision {
		m.Lsh(m, uint(precision-msb))
	} else {
		m.Rsh(m, uint(msb-precision))
	}

	bit := new(big.Int).Lsh(big.NewInt(1), Resolution-1)
	for i := 0; i < Resolution; i++ {
		m.Mul(m, m)
		m.Rsh(m, precision)
		if m.Cmp(precTwo) >= 0 {
			m.Rsh(m, 1)
			result.Add(result, bit)
		}
		bit.Rsh(bit, 1)
	}
	return result, nil
}

// Exp2 returns 2^y for a signed Q64.64 y, rounded down.
func Exp2(y *big.Int) (*big.Int, error) {
	if y == nil {
		return nil, ErrDomain
	}

	// Euclidean division keeps frac in [0, One).
	intPart, frac := new(big.Int).DivMod(y, One, new(big.Int))
	if intPart.Cmp(big.NewInt(255)) > 0 {
		return nil, ErrOverflow
	}
	if intPart.Cmp(big.NewInt(-Resolution-1)) < 0 {
		return new(big.Int), nil
	}

	r := new(big.Int).Set(precOne)
	for i := 0; i < Resolution; i++ {
		if frac.Bit(Resolution-1-i) == 1 {
			r.Mul(r, roots[i])
			r.Rsh(r, precision)
		}
	}

	shift := precision - Resolution - int(intPart.Int64())
	if shift >= 0 {
		r.Rsh(r, uint(shift))
	} else {
		r.Lsh(r, uint(-shift))
	}
	return r, nil
}

// Pow returns x^(num/den) for a non-negative Q64.64 x and a positive ratio.
// RoundingDown never exceeds the real value and RoundingUp is never below it.
func Pow(x, num, den *big.Int, rounding Rounding) (*big.Int, error) {
	if x == nil || x.Sign() < 0 || num.Sign() <= 0 || den.Sign() <= 0 {
		return nil, ErrDomain
	}
	if x.Sign() == 0 {
		return new(big.Int), nil
	}
	if num.Cmp(den) == 0 {
		return new(big.Int).Set(x), nil
	}

	l, err := Log2(x)
	if err != nil {
		return nil, err
	}
	e := l.Mul(l, num)
	e.Div(e, den)

	v, err := Exp2(e)
	if err != nil {
		return nil, err
	}
	if rounding == RoundingDown {
		return v, nil
	}

	// Log2 loses at most one ulp and the ratio scales it, Exp2 loses one more.
	ratio := new(big.Int).Add(num, den)
	ratio.Sub(ratio, big.NewInt(1))
	ratio.Div(ratio, den)
	ratio.Add(ratio, big.NewInt(1))
	margin := new(big.Int).Mul(v, ratio)
	margin.Rsh(margin, Resolution-4)
	v.Add(v, margin)
	return v.Add(v, big.NewInt(2)), nil
}
