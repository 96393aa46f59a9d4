// Package liquidity translates deposits and withdrawals into liquidity token
// amounts. Two sided operations are proportional to real reserves, one sided
// operations add a priced trade against the virtual reserves.
package liquidity

import (
	"fmt"
	"math/big"

	"yieldSpace/internal/curve"
	"yieldSpace/internal/fixedpoint"
	"yieldSpace/internal/pricing"
)

// Reserves is the state the accountant works from.
type Reserves struct {
	Base         *big.Int
	MaturingReal *big.Int
	Supply       *big.Int
}

// MaturingVirtual is the real maturing balance plus the token supply.
func (r Reserves) MaturingVirtual() *big.Int {
	return new(big.Int).Add(r.MaturingReal, r.Supply)
}

// MintResult is the outcome of a deposit.
type MintResult struct {
	Minted     *big.Int
	BaseIn     *big.Int
	MaturingIn *big.Int
}

// BurnResult is the outcome of a withdrawal.
type BurnResult struct {
	Burned      *big.Int
	BaseOut     *big.Int
	MaturingOut *big.Int
}

// Mint prices a proportional deposit of baseIn. The first deposit into an
// empty pool mints baseIn tokens and takes no maturing asset.
func Mint(r Reserves, baseIn *big.Int) (MintResult, error) {
	if err := checkReserves(r); err != nil {
		return MintResult{}, err
	}
	if baseIn == nil || baseIn.Sign() <= 0 {
		return MintResult{}, fmt.Errorf("%w: base in must be positive", curve.ErrInvalidCurveState)
	}

	if r.Supply.Sign() == 0 {
		return MintResult{
			Minted:     new(big.Int).Set(baseIn),
			BaseIn:     new(big.Int).Set(baseIn),
			MaturingIn: new(big.Int),
		}, nil
	}
	if r.Base.Sign() == 0 {
		return MintResult{}, fmt.Errorf("%w: no base reserves for supply %s", curve.ErrInvalidCurveState, r.Supply)
	}

	minted := mulDiv(r.Supply, baseIn, r.Base, fixedpoint.RoundingDown)
	if minted.Sign() == 0 {
		return MintResult{}, fmt.Errorf("%w: deposit %s mints no tokens", curve.ErrInvalidCurveState, baseIn)
	}
	return MintResult{
		Minted:     minted,
		BaseIn:     new(big.Int).Set(baseIn),
		MaturingIn: mulDiv(r.MaturingReal, minted, r.Supply, fixedpoint.RoundingUp),
	}, nil
}

// Burn prices a proportional withdrawal of tokens.
func Burn(r Reserves, tokens *big.Int) (BurnResult, error) {
	if err := checkReserves(r); err != nil {
		return BurnResult{}, err
	}
	if tokens == nil || tokens.Sign() <= 0 {
		return BurnResult{}, fmt.Errorf("%w: tokens must be positive", curve.ErrInvalidCurveState)
	}
	if tokens.Cmp(r.Supply) > 0 {
		return BurnResult{}, fmt.Errorf("%w: burn %s exceeds supply %s", curve.ErrInvalidCurveState, tokens, r.Supply)
	}

	return BurnResult{
		Burned:      new(big.Int).Set(tokens),
		BaseOut:     mulDiv(tokens, r.Base, r.Supply, fixedpoint.RoundingDown),
		MaturingOut: mulDiv(tokens, r.MaturingReal, r.Supply, fixedpoint.RoundingDown),
	}, nil
}

// MintWithMaturingAsset prices a deposit paid in base asset only. The pool
// sells maturingToBuy to the depositor at curve price and mints against it.
func MintWithMaturingAsset(r Reserves, maturingToBuy *big.Int, timeTillMaturity uint64) (MintResult, error) {
	if err := checkReserves(r); err != nil {
		return MintResult{}, err
	}
	if maturingToBuy == nil || maturingToBuy.Sign() <= 0 {
		return MintResult{}, fmt.Errorf("%w: maturing amount must be positive", curve.ErrInvalidCurveState)
	}
	if r.Supply.Sign() == 0 {
		return MintResult{}, fmt.Errorf("%w: pool has no liquidity", curve.ErrInvalidCurveState)
	}
	remaining := new(big.Int).Sub(r.MaturingReal, maturingToBuy)
	if remaining.Sign() <= 0 {
		return MintResult{}, fmt.Errorf("%w: maturing %s exceeds real reserves %s", curve.ErrInvalidCurveState, maturingToBuy, r.MaturingReal)
	}

	tradeIn, err := pricing.BuyMaturing(r.Base, r.MaturingVirtual(), maturingToBuy, timeTillMaturity)
	if err != nil {
		return MintResult{}, err
	}

	minted := mulDiv(r.Supply, maturingToBuy, remaining, fixedpoint.RoundingDown)
	if minted.Sign() == 0 {
		return MintResult{}, fmt.Errorf("%w: deposit mints no tokens", curve.ErrInvalidCurveState)
	}
	baseAfterTrade := new(big.Int).Add(r.Base, tradeIn)
	proportionalIn := mulDiv(baseAfterTrade, minted, r.Supply, fixedpoint.RoundingUp)

	return MintResult{
		Minted:     minted,
		BaseIn:     proportionalIn.Add(proportionalIn, tradeIn),
		MaturingIn: new(big.Int),
	}, nil
}

// BurnForBaseAsset prices a withdrawal paid in base asset only. The maturing
// share of the burn is sold back to the pool at curve price.
func BurnForBaseAsset(r Reserves, tokens *big.Int, timeTillMaturity uint64) (BurnResult, error) {
	burned, err := Burn(r, tokens)
	if err != nil {
		return BurnResult{}, err
	}

	baseOut := burned.BaseOut
	if burned.MaturingOut.Sign() > 0 {
		tradeOut, err := pricing.SellMaturing(r.Base, r.MaturingVirtual(), burned.MaturingOut, timeTillMaturity)
		if err != nil {
			return BurnResult{}, err
		}
		if tradeOut.Sign() < 0 {
			return BurnResult{}, fmt.Errorf("%w: maturing share %s below trade fee", curve.ErrInvalidCurveState, burned.MaturingOut)
		}
		baseOut.Add(baseOut, tradeOut)
	}
	if baseOut.Cmp(r.Base) > 0 {
		return BurnResult{}, fmt.Errorf("%w: base out %s exceeds reserves %s", curve.ErrInvalidCurveState, baseOut, r.Base)
	}

	return BurnResult{
		Burned:      burned.Burned,
		BaseOut:     baseOut,
		MaturingOut: new(big.Int),
	}, nil
}

func checkReserves(r Reserves) error {
	if r.Base == nil || r.MaturingReal == nil || r.Supply == nil {
		return fmt.Errorf("%w: missing reserves", curve.ErrInvalidCurveState)
	}
	if r.Base.Sign() < 0 || r.MaturingReal.Sign() < 0 || r.Supply.Sign() < 0 {
		return fmt.Errorf("%w: negative reserves", curve.ErrInvalidCurveState)
	}
	return nil
}

func mulDiv(x, y, denominator *big.Int, rounding fixedpoint.Rounding) *big.Int {
	prod := new(big.Int).Mul(x, y)
	quo, rem := new(big.Int).QuoRem(prod, denominator, new(big.Int))
	if rounding == fixedpoint.RoundingUp && rem.Sign() > 0 {
		quo.Add(quo, big.NewInt(1))
	}
	return quo
}
