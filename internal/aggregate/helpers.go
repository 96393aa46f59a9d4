package aggregate

import (
	"math/big"
	"time"
)

const ratioScale = 18

var yearSeconds = big.NewRat(int64(365*24*time.Hour/time.Second), 1)

func formatTokenAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	rat := new(big.Rat).SetFrac(abs, denom)
	text := rat.FloatString(int(decimals))
	if sign < 0 {
		return "-" + text
	}
	return text
}

// computePrice returns the volume weighted base per maturing price.
func computePrice(baseVolume, maturingVolume *big.Int) *big.Rat {
	if baseVolume == nil || maturingVolume == nil || baseVolume.Sign() == 0 || maturingVolume.Sign() == 0 {
		return nil
	}
	return new(big.Rat).SetFrac(baseVolume, maturingVolume)
}

// computeImpliedRate annualises the discount of price over the volume
// weighted time till maturity: (1/price - 1) * year / T.
func computeImpliedRate(price *big.Rat, timeWeight, maturingVolume *big.Int) *big.Rat {
	if price == nil || price.Sign() == 0 || timeWeight == nil || timeWeight.Sign() == 0 {
		return nil
	}
	ttm := new(big.Rat).SetFrac(timeWeight, maturingVolume)

	rate := new(big.Rat).Inv(price)
	rate.Sub(rate, big.NewRat(1, 1))
	rate.Mul(rate, yearSeconds)
	return rate.Quo(rate, ttm)
}

func ratString(v *big.Rat) *string {
	if v == nil {
		return nil
	}
	s := v.FloatString(ratioScale)
	return &s
}
