package fixedpoint

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func q(n int64) *big.Int {
	return FromInt(big.NewInt(n))
}

func toFloat(v *big.Int) float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(v), new(big.Float).SetInt(One)).Float64()
	return f
}

func TestLog2Exact(t *testing.T) {
	req := require.New(t)

	l, err := Log2(One)
	req.NoError(err)
	req.Zero(l.Sign())

	l, err = Log2(q(8))
	req.NoError(err)
	req.Equal(0, l.Cmp(q(3)))

	half := new(big.Int).Rsh(One, 1)
	l, err = Log2(half)
	req.NoError(err)
	req.Equal(0, l.Cmp(q(-1)))
}

func TestLog2RoundsDown(t *testing.T) {
	req := require.New(t)

	for _, n := range []int64{3, 5, 10, 1_000_000, 123456789} {
		l, err := Log2(q(n))
		req.NoError(err)
		want := math.Log2(float64(n))
		got := toFloat(l)
		req.InDelta(want, got, 1e-12, "log2(%d)", n)
	}
}

func TestLog2Domain(t *testing.T) {
	_, err := Log2(big.NewInt(0))
	require.ErrorIs(t, err, ErrDomain)
	_, err = Log2(big.NewInt(-5))
	require.ErrorIs(t, err, ErrDomain)
}

func TestExp2(t *testing.T) {
	req := require.New(t)

	v, err := Exp2(new(big.Int))
	req.NoError(err)
	req.Equal(0, v.Cmp(One))

	v, err = Exp2(q(5))
	req.NoError(err)
	req.Equal(0, v.Cmp(q(32)))

	v, err = Exp2(q(-2))
	req.NoError(err)
	req.Equal(0, v.Cmp(new(big.Int).Rsh(One, 2)))

	// 2^0.5 against the integer square root of 2 in Q64.64
	v, err = Exp2(new(big.Int).Rsh(One, 1))
	req.NoError(err)
	sqrt2 := new(big.Int).Sqrt(new(big.Int).Lsh(big.NewInt(2), 2*Resolution))
	diff := new(big.Int).Sub(sqrt2, v)
	req.True(diff.Sign() >= 0 && diff.Cmp(big.NewInt(2)) <= 0, "diff %s", diff)

	_, err = Exp2(q(300))
	req.ErrorIs(err, ErrOverflow)
}

func TestPowExactCases(t *testing.T) {
	req := require.New(t)

	x := q(4)
	v, err := Pow(x, big.NewInt(7), big.NewInt(7), RoundingUp)
	req.NoError(err)
	req.Equal(0, v.Cmp(x))

	v, err = Pow(x, big.NewInt(1), big.NewInt(2), RoundingDown)
	req.NoError(err)
	req.Equal(0, v.Cmp(q(2)))

	v, err = Pow(new(big.Int), big.NewInt(1), big.NewInt(3), RoundingUp)
	req.NoError(err)
	req.Zero(v.Sign())

	_, err = Pow(x, big.NewInt(0), big.NewInt(1), RoundingUp)
	req.ErrorIs(err, ErrDomain)
}

func TestPowBracketsRealValue(t *testing.T) {
	req := require.New(t)

	cases := []struct {
		x        int64
		num, den int64
	}{
		{1_000_000, 1, 20},
		{1_000, 20, 1},
		{999_999, 95, 100},
		{123_456_789, 100, 95},
		{2, 3, 7},
		{10_000_000_000, 1, 3},
	}

	for _, tc := range cases {
		x := q(tc.x)
		down, err := Pow(x, big.NewInt(tc.num), big.NewInt(tc.den), RoundingDown)
		req.NoError(err)
		up, err := Pow(x, big.NewInt(tc.num), big.NewInt(tc.den), RoundingUp)
		req.NoError(err)
		req.True(down.Cmp(up) < 0, "down must stay below up for %+v", tc)

		want := math.Pow(float64(tc.x), float64(tc.num)/float64(tc.den))
		req.InEpsilon(want, toFloat(down), 1e-12, "%+v", tc)
		req.InEpsilon(want, toFloat(up), 1e-12, "%+v", tc)
	}
}

func TestPowMonotonic(t *testing.T) {
	req := require.New(t)

	num, den := big.NewInt(19), big.NewInt(20)
	prev, err := Pow(q(1000), num, den, RoundingDown)
	req.NoError(err)
	for n := int64(1001); n < 1100; n++ {
		v, err := Pow(q(n), num, den, RoundingDown)
		req.NoError(err)
		req.True(v.Cmp(prev) > 0, "not increasing at %d", n)
		prev = v
	}
}

func TestToInt(t *testing.T) {
	req := require.New(t)

	v := new(big.Int).Add(q(7), big.NewInt(1))
	req.Equal(int64(7), ToInt(v, RoundingDown).Int64())
	req.Equal(int64(8), ToInt(v, RoundingUp).Int64())
	req.Equal(int64(7), ToInt(q(7), RoundingUp).Int64())
	req.Equal(int64(-8), ToInt(new(big.Int).Sub(q(-7), big.NewInt(1)), RoundingDown).Int64())
}

func TestFrac(t *testing.T) {
	half := Frac(1, 2)
	require.Equal(t, 0, half.Cmp(new(big.Int).Rsh(One, 1)))
}
