package pricing

import (
	"math/big"

	"yieldSpace/internal/curve"
	"yieldSpace/internal/fixedpoint"
)

// Quote holds the result of one direction; Err is set when the direction
// cannot be priced for the given reserves.
type Quote struct {
	Direction curve.Direction
	Amount    *big.Int
	Result    *big.Int
	Err       error
}

// QuoteAll prices amount in all four directions.
func QuoteAll(baseReserves, maturingReserves, amount *big.Int, timeTillMaturity uint64) []Quote {
	directions := []curve.Direction{curve.SellBase, curve.BuyBase, curve.SellMaturing, curve.BuyMaturing}
	out := make([]Quote, 0, len(directions))
	for _, d := range directions {
		res, err := Price(d, baseReserves, maturingReserves, amount, timeTillMaturity)
		out = append(out, Quote{Direction: d, Amount: amount, Result: res, Err: err})
	}
	return out
}

// SpotPrice returns the marginal price of one maturing unit in base units,
// (Z/Y)^(1-a) with a taken at g = 1, as a Q64.64 value rounded down.
func SpotPrice(baseReserves, maturingReserves *big.Int, timeTillMaturity uint64) (*big.Int, error) {
	if err := checkInputs(baseReserves, maturingReserves, new(big.Int)); err != nil {
		return nil, err
	}
	a, err := curve.Exponent(timeTillMaturity, curve.G{Num: 1, Den: 1})
	if err != nil {
		return nil, err
	}
	ratio := fixedpoint.FromInt(baseReserves)
	ratio.Div(ratio, maturingReserves)
	if ratio.Sign() == 0 {
		return new(big.Int), nil
	}

	exp := new(big.Int).Sub(fixedpoint.One, a)
	if exp.Sign() == 0 {
		return new(big.Int).Set(fixedpoint.One), nil
	}
	p, err := fixedpoint.Pow(ratio, exp, fixedpoint.One, fixedpoint.RoundingDown)
	if err != nil {
		return nil, curveErr(err)
	}
	return p, nil
}
