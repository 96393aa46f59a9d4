package curve

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"yieldSpace/internal/fixedpoint"
)

func TestK(t *testing.T) {
	want := new(big.Int).Div(fixedpoint.One, big.NewInt(126144000))
	require.Equal(t, 0, K().Cmp(want))

	maxUint64, ok := new(big.Int).SetString("18446744073709551615", 10)
	require.True(t, ok)
	require.Equal(t, 0, K().Cmp(maxUint64.Div(maxUint64, big.NewInt(126144000))))
}

// exactExponent is 1 - g*T/SecondsPerFourYears scaled by 2^64, without rounding.
func exactExponent(ttm uint64, g G) *big.Rat {
	t := new(big.Rat).SetFrac(
		new(big.Int).Mul(new(big.Int).SetUint64(ttm), big.NewInt(g.Num)),
		new(big.Int).Mul(big.NewInt(SecondsPerFourYears), big.NewInt(g.Den)),
	)
	one := new(big.Rat).SetInt(fixedpoint.One)
	return one.Sub(one, t.Mul(t, one))
}

// requireTruncationBound checks that a rounds up from the exact exponent by at
// most g*T+1 units, the error carried by the truncated k.
func requireTruncationBound(t *testing.T, a *big.Int, ttm uint64, g G) {
	t.Helper()
	diff := new(big.Rat).Sub(new(big.Rat).SetInt(a), exactExponent(ttm, g))
	require.True(t, diff.Sign() >= 0, "exponent below exact value by %s", diff.FloatString(6))

	bound := new(big.Rat).SetFrac(
		new(big.Int).Mul(new(big.Int).SetUint64(ttm), big.NewInt(g.Num)),
		big.NewInt(g.Den),
	)
	bound.Add(bound, big.NewRat(1, 1))
	require.True(t, diff.Cmp(bound) <= 0, "exponent above exact value by %s", diff.FloatString(6))
}

func TestDirectionMultiplier(t *testing.T) {
	req := require.New(t)
	req.Equal(GSell, SellBase.G())
	req.Equal(GSell, BuyMaturing.G())
	req.Equal(GBuy, BuyBase.G())
	req.Equal(GBuy, SellMaturing.G())
	req.Equal("sell_maturing", SellMaturing.String())
}

func TestExponentAtMaturityIsOne(t *testing.T) {
	for _, d := range []Direction{SellBase, BuyBase, SellMaturing, BuyMaturing} {
		a, err := ExponentFor(0, d)
		require.NoError(t, err)
		require.Equal(t, 0, a.Cmp(fixedpoint.One), d.String())
	}
}

func TestExponentDecaysWithTime(t *testing.T) {
	req := require.New(t)

	oneYear := uint64(365 * 24 * 60 * 60)
	sell, err := Exponent(oneYear, GSell)
	req.NoError(err)
	buy, err := Exponent(oneYear, GBuy)
	req.NoError(err)

	req.True(sell.Cmp(fixedpoint.One) < 0)
	req.True(buy.Cmp(sell) < 0, "buy side curvature must be stronger")

	f, _ := new(big.Rat).SetFrac(sell, fixedpoint.One).Float64()
	req.InDelta(1-0.95/4, f, 1e-10)
	f, _ = new(big.Rat).SetFrac(buy, fixedpoint.One).Float64()
	req.InDelta(1-1/(0.95*4), f, 1e-10)

	requireTruncationBound(t, sell, oneYear, GSell)
	requireTruncationBound(t, buy, oneYear, GBuy)
}

func TestExponentTruncationBound(t *testing.T) {
	for _, ttm := range []uint64{1, 60, 86_400, 7_776_000, 31_536_000, 100_000_000, SecondsPerFourYears} {
		a, err := Exponent(ttm, GSell)
		require.NoError(t, err)
		requireTruncationBound(t, a, ttm, GSell)
	}
	for _, ttm := range []uint64{1, 60, 86_400, 7_776_000, 31_536_000, 100_000_000} {
		a, err := Exponent(ttm, GBuy)
		require.NoError(t, err)
		requireTruncationBound(t, a, ttm, GBuy)
	}
}

func TestExponentFourYears(t *testing.T) {
	req := require.New(t)

	a, err := Exponent(SecondsPerFourYears, GSell)
	req.NoError(err)
	f, _ := new(big.Rat).SetFrac(a, fixedpoint.One).Float64()
	req.InDelta(0.05, f, 1e-10)
	requireTruncationBound(t, a, SecondsPerFourYears, GSell)

	_, err = Exponent(SecondsPerFourYears, GBuy)
	req.ErrorIs(err, ErrInvalidCurveState)
}

func TestFeeIsCopied(t *testing.T) {
	f := Fee()
	f.SetInt64(0)
	require.Equal(t, int64(1_000_000_000_000), Fee().Int64())
}
