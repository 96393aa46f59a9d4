package liquidity

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"yieldSpace/internal/curve"
)

const ninetyDays = uint64(90 * 24 * 60 * 60)

func wad(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

func bf(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}

// pool after the initial deposit and a 30 unit maturing sale
func seeded() Reserves {
	return Reserves{
		Base:         new(big.Int).Sub(wad(1_000_000), wad(29)),
		MaturingReal: wad(30),
		Supply:       wad(1_000_000),
	}
}

func exponent(g curve.G, ttm uint64) float64 {
	return 1 - float64(g.Num)/float64(g.Den)*float64(ttm)/curve.SecondsPerFourYears
}

func refBuyMaturing(z, y, x float64, ttm uint64) float64 {
	a := exponent(curve.GSell, ttm)
	return math.Pow(math.Pow(z, a)+math.Pow(y, a)-math.Pow(y-x, a), 1/a) - z + 1e12
}

func refSellMaturing(z, y, x float64, ttm uint64) float64 {
	a := exponent(curve.GBuy, ttm)
	return z - math.Pow(math.Pow(z, a)+math.Pow(y, a)-math.Pow(y+x, a), 1/a) - 1e12
}

func TestMintBootstrap(t *testing.T) {
	res, err := Mint(Reserves{Base: new(big.Int), MaturingReal: new(big.Int), Supply: new(big.Int)}, big.NewInt(1_000_000))
	require.NoError(t, err)
	require.Equal(t, "1000000", res.Minted.String())
	require.Equal(t, "1000000", res.BaseIn.String())
	require.Zero(t, res.MaturingIn.Sign())
}

func TestMintProportional(t *testing.T) {
	r := seeded()
	baseIn := wad(1)

	res, err := Mint(r, baseIn)
	require.NoError(t, err)

	wantMinted := bf(r.Supply) * bf(baseIn) / bf(r.Base)
	wantMaturing := bf(r.MaturingReal) * wantMinted / bf(r.Supply)
	tolerance := bf(baseIn) / 1e4
	require.InDelta(t, wantMinted, bf(res.Minted), tolerance)
	require.InDelta(t, wantMaturing, bf(res.MaturingIn), tolerance)
}

func TestBurnProportional(t *testing.T) {
	r := seeded()
	tokens := wad(1)

	res, err := Burn(r, tokens)
	require.NoError(t, err)
	require.InDelta(t, bf(tokens)*bf(r.Base)/bf(r.Supply), bf(res.BaseOut), bf(res.BaseOut)/1e4)
	require.InDelta(t, bf(tokens)*bf(r.MaturingReal)/bf(r.Supply), bf(res.MaturingOut), bf(res.MaturingOut)/1e4)
}

func TestMintThenBurnReturnsDeposit(t *testing.T) {
	req := require.New(t)
	r := seeded()

	for _, baseIn := range []*big.Int{big.NewInt(12345), wad(1), wad(5_000)} {
		minted, err := Mint(r, baseIn)
		req.NoError(err)

		after := Reserves{
			Base:         new(big.Int).Add(r.Base, minted.BaseIn),
			MaturingReal: new(big.Int).Add(r.MaturingReal, minted.MaturingIn),
			Supply:       new(big.Int).Add(r.Supply, minted.Minted),
		}
		burned, err := Burn(after, minted.Minted)
		req.NoError(err)

		baseLoss := new(big.Int).Sub(minted.BaseIn, burned.BaseOut)
		maturingLoss := new(big.Int).Sub(minted.MaturingIn, burned.MaturingOut)
		req.True(baseLoss.Sign() >= 0 && baseLoss.Cmp(big.NewInt(3)) <= 0, "base loss %s", baseLoss)
		req.True(maturingLoss.Sign() >= 0 && maturingLoss.Cmp(big.NewInt(3)) <= 0, "maturing loss %s", maturingLoss)
	}
}

func TestMintWithMaturingAsset(t *testing.T) {
	r := seeded()
	toBuy := new(big.Int).Div(wad(1), big.NewInt(1000))

	res, err := MintWithMaturingAsset(r, toBuy, ninetyDays)
	require.NoError(t, err)
	require.Zero(t, res.MaturingIn.Sign())

	z, yv, yr, s, y := bf(r.Base), bf(r.MaturingVirtual()), bf(r.MaturingReal), bf(r.Supply), bf(toBuy)
	z1 := refBuyMaturing(z, yv, y, ninetyDays)
	m := s * y / (yr - y)
	z2 := (z + z1) * m / s

	require.InDelta(t, m, bf(res.Minted), bf(res.Minted)/1e4)
	require.InDelta(t, z1+z2, bf(res.BaseIn), bf(res.BaseIn)/1e4)
}

func TestMintWithMaturingAssetRejects(t *testing.T) {
	r := seeded()

	_, err := MintWithMaturingAsset(r, wad(30), ninetyDays)
	require.ErrorIs(t, err, curve.ErrInvalidCurveState)

	empty := Reserves{Base: new(big.Int), MaturingReal: new(big.Int), Supply: new(big.Int)}
	_, err = MintWithMaturingAsset(empty, wad(1), ninetyDays)
	require.ErrorIs(t, err, curve.ErrInvalidCurveState)

	_, err = MintWithMaturingAsset(r, new(big.Int), ninetyDays)
	require.ErrorIs(t, err, curve.ErrInvalidCurveState)
}

func TestBurnForBaseAsset(t *testing.T) {
	r := seeded()
	tokens := wad(2)

	res, err := BurnForBaseAsset(r, tokens, ninetyDays)
	require.NoError(t, err)
	require.Zero(t, res.MaturingOut.Sign())
	require.Equal(t, tokens.String(), res.Burned.String())

	z, yv, yr, s, x := bf(r.Base), bf(r.MaturingVirtual()), bf(r.MaturingReal), bf(r.Supply), bf(tokens)
	z1 := x * z / s
	y := x * yr / s
	want := z1 + refSellMaturing(z, yv, y, ninetyDays)
	require.InDelta(t, want, bf(res.BaseOut), bf(res.BaseOut)/1e4)

	plain, err := Burn(r, tokens)
	require.NoError(t, err)
	require.True(t, res.BaseOut.Cmp(plain.BaseOut) > 0)
}

func TestBurnForBaseAssetBelowFee(t *testing.T) {
	_, err := BurnForBaseAsset(seeded(), big.NewInt(1_000_000_000_000_000), ninetyDays)
	require.ErrorIs(t, err, curve.ErrInvalidCurveState)
}

func TestBurnRejects(t *testing.T) {
	r := seeded()

	_, err := Burn(r, new(big.Int).Add(r.Supply, big.NewInt(1)))
	require.ErrorIs(t, err, curve.ErrInvalidCurveState)

	_, err = Burn(r, big.NewInt(-1))
	require.ErrorIs(t, err, curve.ErrInvalidCurveState)

	_, err = Mint(Reserves{Base: nil, MaturingReal: new(big.Int), Supply: new(big.Int)}, wad(1))
	require.ErrorIs(t, err, curve.ErrInvalidCurveState)
}

func TestBurnEverything(t *testing.T) {
	r := seeded()
	res, err := Burn(r, r.Supply)
	require.NoError(t, err)
	require.Equal(t, r.Base.String(), res.BaseOut.String())
	require.Equal(t, r.MaturingReal.String(), res.MaturingOut.String())
}
