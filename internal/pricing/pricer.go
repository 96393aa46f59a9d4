// Package pricing solves the invariant Z^a + Y^a = const for the four trade
// directions. Z is the base reserve and Y the virtual maturing reserve.
package pricing

import (
	"fmt"
	"math/big"

	"yieldSpace/internal/curve"
	"yieldSpace/internal/fixedpoint"
)

// SellBase returns the maturing asset paid out for baseIn base asset in.
func SellBase(baseReserves, maturingReserves, baseIn *big.Int, timeTillMaturity uint64) (*big.Int, error) {
	if err := checkInputs(baseReserves, maturingReserves, baseIn); err != nil {
		return nil, err
	}
	moved := new(big.Int).Add(baseReserves, baseIn)
	root, err := solve(baseReserves, maturingReserves, moved, timeTillMaturity, curve.SellBase)
	if err != nil {
		return nil, err
	}
	out := new(big.Int).Sub(maturingReserves, root)
	return out.Sub(out, curve.Fee()), nil
}

// BuyBase returns the maturing asset required in for baseOut base asset out.
func BuyBase(baseReserves, maturingReserves, baseOut *big.Int, timeTillMaturity uint64) (*big.Int, error) {
	if err := checkInputs(baseReserves, maturingReserves, baseOut); err != nil {
		return nil, err
	}
	moved := new(big.Int).Sub(baseReserves, baseOut)
	if moved.Sign() <= 0 {
		return nil, fmt.Errorf("%w: base out %s exhausts reserves %s", curve.ErrInvalidCurveState, baseOut, baseReserves)
	}
	root, err := solve(baseReserves, maturingReserves, moved, timeTillMaturity, curve.BuyBase)
	if err != nil {
		return nil, err
	}
	in := root.Sub(root, maturingReserves)
	return in.Add(in, curve.Fee()), nil
}

// SellMaturing returns the base asset paid out for maturingIn maturing asset in.
func SellMaturing(baseReserves, maturingReserves, maturingIn *big.Int, timeTillMaturity uint64) (*big.Int, error) {
	if err := checkInputs(baseReserves, maturingReserves, maturingIn); err != nil {
		return nil, err
	}
	moved := new(big.Int).Add(maturingReserves, maturingIn)
	root, err := solve(maturingReserves, baseReserves, moved, timeTillMaturity, curve.SellMaturing)
	if err != nil {
		return nil, err
	}
	out := new(big.Int).Sub(baseReserves, root)
	return out.Sub(out, curve.Fee()), nil
}

// BuyMaturing returns the base asset required in for maturingOut maturing asset out.
func BuyMaturing(baseReserves, maturingReserves, maturingOut *big.Int, timeTillMaturity uint64) (*big.Int, error) {
	if err := checkInputs(baseReserves, maturingReserves, maturingOut); err != nil {
		return nil, err
	}
	moved := new(big.Int).Sub(maturingReserves, maturingOut)
	if moved.Sign() <= 0 {
		return nil, fmt.Errorf("%w: maturing out %s exhausts reserves %s", curve.ErrInvalidCurveState, maturingOut, maturingReserves)
	}
	root, err := solve(maturingReserves, baseReserves, moved, timeTillMaturity, curve.BuyMaturing)
	if err != nil {
		return nil, err
	}
	in := root.Sub(root, baseReserves)
	return in.Add(in, curve.Fee()), nil
}

// Price dispatches to the pricing function of the direction.
func Price(d curve.Direction, baseReserves, maturingReserves, amount *big.Int, timeTillMaturity uint64) (*big.Int, error) {
	switch d {
	case curve.SellBase:
		return SellBase(baseReserves, maturingReserves, amount, timeTillMaturity)
	case curve.BuyBase:
		return BuyBase(baseReserves, maturingReserves, amount, timeTillMaturity)
	case curve.SellMaturing:
		return SellMaturing(baseReserves, maturingReserves, amount, timeTillMaturity)
	case curve.BuyMaturing:
		return BuyMaturing(baseReserves, maturingReserves, amount, timeTillMaturity)
	default:
		return nil, fmt.Errorf("unknown direction %s", d)
	}
}

// solve returns ((known^a + other^a) - moved^a)^(1/a) in integer units rounded
// up, where known is the reserve the trade moves and other the one solved for.
func solve(known, other, moved *big.Int, timeTillMaturity uint64, d curve.Direction) (*big.Int, error) {
	a, err := curve.ExponentFor(timeTillMaturity, d)
	if err != nil {
		return nil, err
	}
	one := fixedpoint.One

	knownA, err := fixedpoint.Pow(fixedpoint.FromInt(known), a, one, fixedpoint.RoundingUp)
	if err != nil {
		return nil, curveErr(err)
	}
	otherA, err := fixedpoint.Pow(fixedpoint.FromInt(other), a, one, fixedpoint.RoundingUp)
	if err != nil {
		return nil, curveErr(err)
	}
	movedA, err := fixedpoint.Pow(fixedpoint.FromInt(moved), a, one, fixedpoint.RoundingDown)
	if err != nil {
		return nil, curveErr(err)
	}

	sum := knownA.Add(knownA, otherA)
	sum.Sub(sum, movedA)
	if sum.Sign() <= 0 {
		return nil, fmt.Errorf("%w: %s trade leaves no reserves", curve.ErrInvalidCurveState, d)
	}

	root, err := fixedpoint.Pow(sum, one, a, fixedpoint.RoundingUp)
	if err != nil {
		return nil, curveErr(err)
	}
	return fixedpoint.ToInt(root, fixedpoint.RoundingUp), nil
}

func checkInputs(baseReserves, maturingReserves, amount *big.Int) error {
	if baseReserves == nil || maturingReserves == nil || amount == nil {
		return fmt.Errorf("%w: missing input", curve.ErrInvalidCurveState)
	}
	if baseReserves.Sign() <= 0 || maturingReserves.Sign() <= 0 {
		return fmt.Errorf("%w: reserves %s/%s", curve.ErrInvalidCurveState, baseReserves, maturingReserves)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("%w: negative amount %s", curve.ErrInvalidCurveState, amount)
	}
	return nil
}

func curveErr(err error) error {
	return fmt.Errorf("%w: %v", curve.ErrInvalidCurveState, err)
}
