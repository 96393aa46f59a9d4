// Package curve holds the protocol constants of the invariant and derives the
// time dependent exponent for each trade direction.
package curve

import (
	"errors"
	"fmt"
	"math/big"

	"yieldSpace/internal/fixedpoint"
)

// SecondsPerFourYears is 4 * 365 days. The curve is linear once k*T reaches 1/g.
const SecondsPerFourYears = 126_144_000

var (
	ErrPoolExpired       = errors.New("pool expired")
	ErrInvalidCurveState = errors.New("invalid curve state")
)

// G is a fee multiplier expressed as a ratio.
type G struct {
	Num int64
	Den int64
}

var (
	// GSell applies when the pool absorbs maturing asset.
	GSell = G{Num: 950, Den: 1000}
	// GBuy applies when the pool supplies maturing asset.
	GBuy = G{Num: 1000, Den: 950}
)

var (
	fee = big.NewInt(1_000_000_000_000)
	k   = new(big.Int).Div(fixedpoint.One, big.NewInt(SecondsPerFourYears))
)

// Fee returns the fixed per trade fee in smallest units.
func Fee() *big.Int {
	return new(big.Int).Set(fee)
}

// K returns 1/SecondsPerFourYears in Q64.64, rounded down.
func K() *big.Int {
	return new(big.Int).Set(k)
}

// Direction identifies one of the four pricing functions.
type Direction int

const (
	SellBase Direction = iota
	BuyBase
	SellMaturing
	BuyMaturing
)

func (d Direction) String() string {
	switch d {
	case SellBase:
		return "sell_base"
	case BuyBase:
		return "buy_base"
	case SellMaturing:
		return "sell_maturing"
	case BuyMaturing:
		return "buy_maturing"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// G returns the fee multiplier for the direction.
func (d Direction) G() G {
	switch d {
	case SellBase, BuyMaturing:
		return GSell
	default:
		return GBuy
	}
}

// Exponent returns a = 1 - g*k*T in Q64.64.
func Exponent(timeTillMaturity uint64, g G) (*big.Int, error) {
	if g.Num <= 0 || g.Den <= 0 {
		return nil, fmt.Errorf("%w: g %d/%d", ErrInvalidCurveState, g.Num, g.Den)
	}
	if timeTillMaturity == 0 {
		return new(big.Int).Set(fixedpoint.One), nil
	}

	t := new(big.Int).Mul(k, new(big.Int).SetUint64(timeTillMaturity))
	t.Mul(t, big.NewInt(g.Num))
	t.Div(t, big.NewInt(g.Den))

	a := t.Sub(fixedpoint.One, t)
	if a.Sign() <= 0 {
		return nil, fmt.Errorf("%w: exponent not positive at %d seconds to maturity", ErrInvalidCurveState, timeTillMaturity)
	}
	return a, nil
}

// ExponentFor is Exponent with the multiplier selected by direction.
func ExponentFor(timeTillMaturity uint64, d Direction) (*big.Int, error) {
	return Exponent(timeTillMaturity, d.G())
}
