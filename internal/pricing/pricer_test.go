package pricing

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"yieldSpace/internal/curve"
)

const (
	fourYears = uint64(curve.SecondsPerFourYears)
	ninetyDay = uint64(90 * 24 * 60 * 60)
	feeUnits  = 1e12
)

func wad(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

func bf(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}

// reference is the real number solution evaluated in float64.
func reference(d curve.Direction, z, y, x float64, timeTillMaturity uint64) float64 {
	g := float64(d.G().Num) / float64(d.G().Den)
	a := 1 - g*float64(timeTillMaturity)/float64(curve.SecondsPerFourYears)
	za, ya := math.Pow(z, a), math.Pow(y, a)
	switch d {
	case curve.SellBase:
		return y - math.Pow(za+ya-math.Pow(z+x, a), 1/a) - feeUnits
	case curve.BuyBase:
		return math.Pow(za+ya-math.Pow(z-x, a), 1/a) - y + feeUnits
	case curve.SellMaturing:
		return z - math.Pow(za+ya-math.Pow(y+x, a), 1/a) - feeUnits
	default:
		return math.Pow(za+ya-math.Pow(y-x, a), 1/a) - z + feeUnits
	}
}

func TestPricingMatchesReference(t *testing.T) {
	cases := []struct {
		name string
		z, y *big.Int
		x    *big.Int
		ttm  uint64
	}{
		{"balanced 90d", wad(1_000_000), wad(1_000_000), wad(1), ninetyDay},
		{"virtual heavy 90d", wad(1_000_000), wad(1_100_030), wad(1), ninetyDay},
		{"one year", wad(500_000), wad(650_000), wad(1_000), 365 * 24 * 60 * 60},
		{"short dated", wad(1_000), wad(1_001), wad(10), 3600},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tolerance := bf(tc.x) / 1e6
			for _, d := range []curve.Direction{curve.SellBase, curve.BuyBase, curve.SellMaturing, curve.BuyMaturing} {
				got, err := Price(d, tc.z, tc.y, tc.x, tc.ttm)
				require.NoError(t, err, d.String())
				want := reference(d, bf(tc.z), bf(tc.y), bf(tc.x), tc.ttm)
				require.InDelta(t, want, bf(got), tolerance, d.String())
			}
		})
	}
}

func TestPricingFavorsPool(t *testing.T) {
	z, y, x := wad(1_000_000), wad(1_100_000), wad(5)

	sell, err := SellBase(z, y, x, ninetyDay)
	require.NoError(t, err)
	buy, err := BuyMaturing(z, y, sell, ninetyDay)
	require.NoError(t, err)
	// buying back what was sold costs at least what was paid, less one fee of slack
	require.True(t, new(big.Int).Add(buy, curve.Fee()).Cmp(x) >= 0)
}

func TestRoundTrip(t *testing.T) {
	req := require.New(t)
	z, y := wad(1_000_000), wad(1_050_000)
	slack := new(big.Int).Mul(curve.Fee(), big.NewInt(2))

	for _, x := range []*big.Int{wad(1), wad(100), wad(10_000)} {
		out, err := SellBase(z, y, x, ninetyDay)
		req.NoError(err)
		back, err := BuyMaturing(z, y, out, ninetyDay)
		req.NoError(err)
		diff := new(big.Int).Sub(back, x)
		req.True(diff.CmpAbs(slack) <= 0, "sell base/buy maturing drift %s", diff)

		again, err := SellBase(z, y, back, ninetyDay)
		req.NoError(err)
		diff = new(big.Int).Sub(again, out)
		req.True(diff.CmpAbs(slack) <= 0, "sell base drift %s", diff)

		outBase, err := SellMaturing(z, y, x, ninetyDay)
		req.NoError(err)
		backIn, err := BuyBase(z, y, outBase, ninetyDay)
		req.NoError(err)
		diff = new(big.Int).Sub(backIn, x)
		req.True(diff.CmpAbs(slack) <= 0, "sell maturing/buy base drift %s", diff)
	}
}

func TestLinearAtMaturity(t *testing.T) {
	req := require.New(t)
	z, y, x := wad(1_000_000), wad(1_200_000), wad(3)
	fee := curve.Fee()

	minusFee := new(big.Int).Sub(x, fee)
	plusFee := new(big.Int).Add(x, fee)

	got, err := SellBase(z, y, x, 0)
	req.NoError(err)
	req.Equal(minusFee.String(), got.String())

	got, err = BuyBase(z, y, x, 0)
	req.NoError(err)
	req.Equal(plusFee.String(), got.String())

	got, err = SellMaturing(z, y, x, 0)
	req.NoError(err)
	req.Equal(minusFee.String(), got.String())

	got, err = BuyMaturing(z, y, x, 0)
	req.NoError(err)
	req.Equal(plusFee.String(), got.String())
}

func TestSmallPoolFourYears(t *testing.T) {
	z, y := big.NewInt(1_000_000), big.NewInt(1_000_000)

	got, err := SellBase(z, y, big.NewInt(1), fourYears)
	require.NoError(t, err)

	lower := new(big.Int).Sub(big.NewInt(1), new(big.Int).Mul(curve.Fee(), big.NewInt(2)))
	require.True(t, got.Cmp(big.NewInt(1)) < 0, "got %s", got)
	require.True(t, got.Cmp(lower) > 0, "got %s", got)
}

func TestSellBaseMonotonic(t *testing.T) {
	z, y := wad(1_000), wad(1_100)
	prev, err := SellBase(z, y, wad(1), ninetyDay)
	require.NoError(t, err)
	for i := int64(2); i <= 20; i++ {
		cur, err := SellBase(z, y, wad(i), ninetyDay)
		require.NoError(t, err)
		require.True(t, cur.Cmp(prev) > 0)
		prev = cur
	}
}

func TestInvalidCurveState(t *testing.T) {
	z, y := wad(100), wad(110)
	cases := []struct {
		name string
		fn   func() (*big.Int, error)
	}{
		{"buy all base", func() (*big.Int, error) { return BuyBase(z, y, z, ninetyDay) }},
		{"buy too much base", func() (*big.Int, error) { return BuyBase(z, y, wad(101), ninetyDay) }},
		{"buy all maturing", func() (*big.Int, error) { return BuyMaturing(z, y, y, ninetyDay) }},
		{"negative amount", func() (*big.Int, error) { return SellBase(z, y, big.NewInt(-1), ninetyDay) }},
		{"empty base", func() (*big.Int, error) { return SellMaturing(new(big.Int), y, wad(1), ninetyDay) }},
		{"empty maturing", func() (*big.Int, error) { return SellBase(z, new(big.Int), wad(1), ninetyDay) }},
		{"flat buy curve", func() (*big.Int, error) { return SellMaturing(z, y, wad(1), fourYears) }},
		{"nil amount", func() (*big.Int, error) { return BuyMaturing(z, y, nil, ninetyDay) }},
	}
	for _, tc := range cases {
		_, err := tc.fn()
		require.ErrorIs(t, err, curve.ErrInvalidCurveState, tc.name)
	}
}

func TestQuoteAll(t *testing.T) {
	quotes := QuoteAll(wad(1_000), wad(1_100), wad(1), ninetyDay)
	require.Len(t, quotes, 4)
	for _, q := range quotes {
		require.NoError(t, q.Err, q.Direction.String())
		want, err := Price(q.Direction, wad(1_000), wad(1_100), wad(1), ninetyDay)
		require.NoError(t, err)
		require.Equal(t, want.String(), q.Result.String())
	}
}

func TestSpotPrice(t *testing.T) {
	p, err := SpotPrice(wad(1_000), wad(1_000), ninetyDay)
	require.NoError(t, err)
	f, _ := new(big.Rat).SetFrac(p, new(big.Int).Lsh(big.NewInt(1), 64)).Float64()
	require.InDelta(t, 1.0, f, 1e-9)

	p, err = SpotPrice(wad(1_000), wad(1_100), ninetyDay)
	require.NoError(t, err)
	f, _ = new(big.Rat).SetFrac(p, new(big.Int).Lsh(big.NewInt(1), 64)).Float64()
	want := math.Pow(1000.0/1100.0, float64(ninetyDay)/float64(curve.SecondsPerFourYears))
	require.InDelta(t, want, f, 1e-9)
	require.Less(t, f, 1.0)
}
