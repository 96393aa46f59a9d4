package pool

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"yieldSpace/internal/curve"
	"yieldSpace/internal/pricing"
)

// TradeResult is returned by the trading entry points. Amount is the computed
// counter amount, the deltas are signed from the pool's side.
type TradeResult struct {
	Direction     curve.Direction
	Amount        *big.Int
	BaseDelta     *big.Int
	MaturingDelta *big.Int
}

// SellBaseAsset takes baseIn from `from` and pays maturing asset to `to`.
func (p *Pool) SellBaseAsset(ctx context.Context, from, to common.Address, baseIn *big.Int) (TradeResult, error) {
	return p.trade(ctx, curve.SellBase, from, to, baseIn)
}

// SellBaseAssetPreview returns the maturing asset SellBaseAsset would pay.
func (p *Pool) SellBaseAssetPreview(ctx context.Context, baseIn *big.Int) (*big.Int, error) {
	_, out, err := p.priceTrade(ctx, curve.SellBase, baseIn)
	return out, err
}

// BuyBaseAsset pays baseOut to `to` and takes the maturing asset owed from `from`.
func (p *Pool) BuyBaseAsset(ctx context.Context, from, to common.Address, baseOut *big.Int) (TradeResult, error) {
	return p.trade(ctx, curve.BuyBase, from, to, baseOut)
}

// BuyBaseAssetPreview returns the maturing asset BuyBaseAsset would take.
func (p *Pool) BuyBaseAssetPreview(ctx context.Context, baseOut *big.Int) (*big.Int, error) {
	_, in, err := p.priceTrade(ctx, curve.BuyBase, baseOut)
	return in, err
}

// SellMaturingAsset takes maturingIn from `from` and pays base asset to `to`.
func (p *Pool) SellMaturingAsset(ctx context.Context, from, to common.Address, maturingIn *big.Int) (TradeResult, error) {
	return p.trade(ctx, curve.SellMaturing, from, to, maturingIn)
}

// SellMaturingAssetPreview returns the base asset SellMaturingAsset would pay.
func (p *Pool) SellMaturingAssetPreview(ctx context.Context, maturingIn *big.Int) (*big.Int, error) {
	_, out, err := p.priceTrade(ctx, curve.SellMaturing, maturingIn)
	return out, err
}

// BuyMaturingAsset pays maturingOut to `to` and takes the base asset owed from `from`.
func (p *Pool) BuyMaturingAsset(ctx context.Context, from, to common.Address, maturingOut *big.Int) (TradeResult, error) {
	return p.trade(ctx, curve.BuyMaturing, from, to, maturingOut)
}

// BuyMaturingAssetPreview returns the base asset BuyMaturingAsset would take.
func (p *Pool) BuyMaturingAssetPreview(ctx context.Context, maturingOut *big.Int) (*big.Int, error) {
	_, in, err := p.priceTrade(ctx, curve.BuyMaturing, maturingOut)
	return in, err
}

// priceTrade is shared by previews and execution.
func (p *Pool) priceTrade(ctx context.Context, d curve.Direction, amount *big.Int) (Snapshot, *big.Int, error) {
	snap, err := p.activeSnapshot(ctx)
	if err != nil {
		return Snapshot{}, nil, err
	}
	if err := p.requirePositive(amount, d.String()+" amount"); err != nil {
		return Snapshot{}, nil, err
	}

	res, err := pricing.Price(d, snap.Base, snap.MaturingVirtual(), amount, snap.TimeTillMaturity)
	if err != nil {
		return Snapshot{}, nil, err
	}
	if res.Sign() <= 0 {
		return Snapshot{}, nil, fmt.Errorf("%w: %s of %s prices to %s", ErrInvalidCurveState, d, amount, res)
	}
	return snap, res, nil
}

// legs maps a direction to the asset the pool receives and the one it pays.
func (p *Pool) legs(d curve.Direction, amount, res *big.Int, snap Snapshot) (in Asset, inAmt *big.Int, out Asset, outAmt *big.Int, outReserve *big.Int) {
	switch d {
	case curve.SellBase:
		return p.base, amount, p.maturing, res, snap.MaturingReal
	case curve.BuyBase:
		return p.maturing, res, p.base, amount, snap.Base
	case curve.SellMaturing:
		return p.maturing, amount, p.base, res, snap.Base
	default:
		return p.base, res, p.maturing, amount, snap.MaturingReal
	}
}

func (p *Pool) trade(ctx context.Context, d curve.Direction, from, to common.Address, amount *big.Int) (TradeResult, error) {
	snap, res, err := p.priceTrade(ctx, d, amount)
	if err != nil {
		return TradeResult{}, err
	}

	in, inAmt, out, outAmt, outReserve := p.legs(d, amount, res, snap)
	if err := p.requireReserve(outAmt, outReserve, d.String()); err != nil {
		return TradeResult{}, err
	}
	if err := in.TransferIn(ctx, from, inAmt); err != nil {
		return TradeResult{}, fmt.Errorf("%s transfer in: %w", d, err)
	}
	if err := out.TransferOut(ctx, to, outAmt); err != nil {
		return TradeResult{}, fmt.Errorf("%s transfer out: %w", d, err)
	}

	result := TradeResult{Direction: d, Amount: new(big.Int).Set(res)}
	if d == curve.SellBase || d == curve.BuyMaturing {
		result.BaseDelta = new(big.Int).Set(inAmt)
		result.MaturingDelta = new(big.Int).Neg(outAmt)
	} else {
		result.BaseDelta = new(big.Int).Neg(outAmt)
		result.MaturingDelta = new(big.Int).Set(inAmt)
	}

	p.logger.Debug("trade",
		zap.Stringer("direction", d),
		zap.String("from", from.Hex()),
		zap.String("to", to.Hex()),
		zap.String("base_delta", result.BaseDelta.String()),
		zap.String("maturing_delta", result.MaturingDelta.String()),
		zap.Uint64("time_till_maturity", snap.TimeTillMaturity),
	)

	p.notifyTrade(ctx, TradeEvent{
		Maturity:         p.maturity,
		Timestamp:        snap.Timestamp,
		TimeTillMaturity: snap.TimeTillMaturity,
		Direction:        d,
		From:             from,
		To:               to,
		BaseDelta:        result.BaseDelta,
		MaturingDelta:    result.MaturingDelta,
	})
	return result, nil
}

func (p *Pool) notifyTrade(ctx context.Context, ev TradeEvent) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Trade(ctx, ev); err != nil {
		p.logger.Warn("trade notification failed", zap.Error(err), zap.Stringer("direction", ev.Direction))
	}
}

func (p *Pool) notifyLiquidity(ctx context.Context, ev LiquidityEvent) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Liquidity(ctx, ev); err != nil {
		p.logger.Warn("liquidity notification failed", zap.Error(err), zap.String("action", string(ev.Action)))
	}
}
