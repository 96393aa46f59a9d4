package pool

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"yieldSpace/internal/liquidity"
)

// LiquidityResult is returned by the liquidity entry points. Deltas are signed
// from the pool's side and TokenDelta is the change in supply.
type LiquidityResult struct {
	Action        Action
	BaseDelta     *big.Int
	MaturingDelta *big.Int
	TokenDelta    *big.Int
}

// Mint deposits baseIn plus the proportional maturing asset from `from` and
// mints tokens to `to`. Allowed after maturity.
func (p *Pool) Mint(ctx context.Context, from, to common.Address, baseIn *big.Int) (LiquidityResult, error) {
	snap, res, err := p.priceMint(ctx, baseIn)
	if err != nil {
		return LiquidityResult{}, err
	}

	if err := p.requireBalance(ctx, p.base, from, res.BaseIn, "base"); err != nil {
		return LiquidityResult{}, err
	}
	if res.MaturingIn.Sign() > 0 {
		if err := p.requireBalance(ctx, p.maturing, from, res.MaturingIn, "maturing"); err != nil {
			return LiquidityResult{}, err
		}
	}

	if err := p.base.TransferIn(ctx, from, res.BaseIn); err != nil {
		return LiquidityResult{}, fmt.Errorf("mint base transfer: %w", err)
	}
	if res.MaturingIn.Sign() > 0 {
		if err := p.maturing.TransferIn(ctx, from, res.MaturingIn); err != nil {
			return LiquidityResult{}, fmt.Errorf("mint maturing transfer: %w", err)
		}
	}
	if err := p.token.Mint(ctx, to, res.Minted); err != nil {
		return LiquidityResult{}, fmt.Errorf("mint tokens: %w", err)
	}

	return p.settleLiquidity(ctx, snap, ActionMint, from, to, LiquidityResult{
		BaseDelta:     new(big.Int).Set(res.BaseIn),
		MaturingDelta: new(big.Int).Set(res.MaturingIn),
		TokenDelta:    new(big.Int).Set(res.Minted),
	}), nil
}

// MintPreview prices Mint without moving funds.
func (p *Pool) MintPreview(ctx context.Context, baseIn *big.Int) (liquidity.MintResult, error) {
	_, res, err := p.priceMint(ctx, baseIn)
	return res, err
}

func (p *Pool) priceMint(ctx context.Context, baseIn *big.Int) (Snapshot, liquidity.MintResult, error) {
	snap, err := p.Snapshot(ctx)
	if err != nil {
		return Snapshot{}, liquidity.MintResult{}, err
	}
	res, err := liquidity.Mint(snap.reserves(), baseIn)
	if err != nil {
		return Snapshot{}, liquidity.MintResult{}, err
	}
	return snap, res, nil
}

// Burn burns tokens held by `from` and pays the proportional reserves to `to`.
// Allowed after maturity.
func (p *Pool) Burn(ctx context.Context, from, to common.Address, tokens *big.Int) (LiquidityResult, error) {
	snap, res, err := p.priceBurn(ctx, tokens)
	if err != nil {
		return LiquidityResult{}, err
	}

	if err := p.token.Burn(ctx, from, res.Burned); err != nil {
		return LiquidityResult{}, fmt.Errorf("burn tokens: %w", err)
	}
	if res.BaseOut.Sign() > 0 {
		if err := p.base.TransferOut(ctx, to, res.BaseOut); err != nil {
			return LiquidityResult{}, fmt.Errorf("burn base transfer: %w", err)
		}
	}
	if res.MaturingOut.Sign() > 0 {
		if err := p.maturing.TransferOut(ctx, to, res.MaturingOut); err != nil {
			return LiquidityResult{}, fmt.Errorf("burn maturing transfer: %w", err)
		}
	}

	return p.settleLiquidity(ctx, snap, ActionBurn, from, to, LiquidityResult{
		BaseDelta:     new(big.Int).Neg(res.BaseOut),
		MaturingDelta: new(big.Int).Neg(res.MaturingOut),
		TokenDelta:    new(big.Int).Neg(res.Burned),
	}), nil
}

// BurnPreview prices Burn without moving funds.
func (p *Pool) BurnPreview(ctx context.Context, tokens *big.Int) (liquidity.BurnResult, error) {
	_, res, err := p.priceBurn(ctx, tokens)
	return res, err
}

func (p *Pool) priceBurn(ctx context.Context, tokens *big.Int) (Snapshot, liquidity.BurnResult, error) {
	snap, err := p.Snapshot(ctx)
	if err != nil {
		return Snapshot{}, liquidity.BurnResult{}, err
	}
	res, err := liquidity.Burn(snap.reserves(), tokens)
	if err != nil {
		return Snapshot{}, liquidity.BurnResult{}, err
	}
	return snap, res, nil
}

// MintWithMaturingAsset takes base asset only from `from`: enough to buy
// maturingToBuy from the pool and deposit it with the proportional base.
func (p *Pool) MintWithMaturingAsset(ctx context.Context, from, to common.Address, maturingToBuy *big.Int) (LiquidityResult, error) {
	snap, res, err := p.priceMintWithMaturingAsset(ctx, maturingToBuy)
	if err != nil {
		return LiquidityResult{}, err
	}

	if err := p.base.TransferIn(ctx, from, res.BaseIn); err != nil {
		return LiquidityResult{}, fmt.Errorf("mint base transfer: %w", err)
	}
	if err := p.token.Mint(ctx, to, res.Minted); err != nil {
		return LiquidityResult{}, fmt.Errorf("mint tokens: %w", err)
	}

	return p.settleLiquidity(ctx, snap, ActionMintWithMaturingAsset, from, to, LiquidityResult{
		BaseDelta:     new(big.Int).Set(res.BaseIn),
		MaturingDelta: new(big.Int),
		TokenDelta:    new(big.Int).Set(res.Minted),
	}), nil
}

// MintWithMaturingAssetPreview prices MintWithMaturingAsset without moving funds.
func (p *Pool) MintWithMaturingAssetPreview(ctx context.Context, maturingToBuy *big.Int) (liquidity.MintResult, error) {
	_, res, err := p.priceMintWithMaturingAsset(ctx, maturingToBuy)
	return res, err
}

func (p *Pool) priceMintWithMaturingAsset(ctx context.Context, maturingToBuy *big.Int) (Snapshot, liquidity.MintResult, error) {
	snap, err := p.activeSnapshot(ctx)
	if err != nil {
		return Snapshot{}, liquidity.MintResult{}, err
	}
	res, err := liquidity.MintWithMaturingAsset(snap.reserves(), maturingToBuy, snap.TimeTillMaturity)
	if err != nil {
		return Snapshot{}, liquidity.MintResult{}, err
	}
	return snap, res, nil
}

// BurnForBaseAsset burns tokens held by `from` and pays base asset only to `to`.
func (p *Pool) BurnForBaseAsset(ctx context.Context, from, to common.Address, tokens *big.Int) (LiquidityResult, error) {
	snap, res, err := p.priceBurnForBaseAsset(ctx, tokens)
	if err != nil {
		return LiquidityResult{}, err
	}

	if err := p.token.Burn(ctx, from, res.Burned); err != nil {
		return LiquidityResult{}, fmt.Errorf("burn tokens: %w", err)
	}
	if err := p.base.TransferOut(ctx, to, res.BaseOut); err != nil {
		return LiquidityResult{}, fmt.Errorf("burn base transfer: %w", err)
	}

	return p.settleLiquidity(ctx, snap, ActionBurnForBaseAsset, from, to, LiquidityResult{
		BaseDelta:     new(big.Int).Neg(res.BaseOut),
		MaturingDelta: new(big.Int),
		TokenDelta:    new(big.Int).Neg(res.Burned),
	}), nil
}

// BurnForBaseAssetPreview prices BurnForBaseAsset without moving funds.
func (p *Pool) BurnForBaseAssetPreview(ctx context.Context, tokens *big.Int) (liquidity.BurnResult, error) {
	_, res, err := p.priceBurnForBaseAsset(ctx, tokens)
	return res, err
}

func (p *Pool) priceBurnForBaseAsset(ctx context.Context, tokens *big.Int) (Snapshot, liquidity.BurnResult, error) {
	snap, err := p.activeSnapshot(ctx)
	if err != nil {
		return Snapshot{}, liquidity.BurnResult{}, err
	}
	res, err := liquidity.BurnForBaseAsset(snap.reserves(), tokens, snap.TimeTillMaturity)
	if err != nil {
		return Snapshot{}, liquidity.BurnResult{}, err
	}
	return snap, res, nil
}

func (p *Pool) settleLiquidity(ctx context.Context, snap Snapshot, action Action, from, to common.Address, result LiquidityResult) LiquidityResult {
	result.Action = action

	p.logger.Debug("liquidity",
		zap.String("action", string(action)),
		zap.String("from", from.Hex()),
		zap.String("to", to.Hex()),
		zap.String("base_delta", result.BaseDelta.String()),
		zap.String("maturing_delta", result.MaturingDelta.String()),
		zap.String("token_delta", result.TokenDelta.String()),
	)

	p.notifyLiquidity(ctx, LiquidityEvent{
		Maturity:         p.maturity,
		Timestamp:        snap.Timestamp,
		TimeTillMaturity: snap.TimeTillMaturity,
		Action:           action,
		From:             from,
		To:               to,
		BaseDelta:        result.BaseDelta,
		MaturingDelta:    result.MaturingDelta,
		TokenDelta:       result.TokenDelta,
	})
	return result
}
