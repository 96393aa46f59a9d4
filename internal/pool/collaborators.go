package pool

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"yieldSpace/internal/curve"
)

var (
	ErrPoolExpired                    = curve.ErrPoolExpired
	ErrInvalidCurveState              = curve.ErrInvalidCurveState
	ErrInsufficientBalanceOrAllowance = errors.New("insufficient balance or allowance")
	ErrInsufficientPoolReserve        = errors.New("insufficient pool reserve")
)

// Asset moves one token in and out of the pool. Implementations are bound to
// the pool address.
type Asset interface {
	// TransferIn pulls amount from the holder into the pool. It fails with
	// ErrInsufficientBalanceOrAllowance.
	TransferIn(ctx context.Context, from common.Address, amount *big.Int) error
	// TransferOut pays amount from the pool. It fails with ErrInsufficientPoolReserve.
	TransferOut(ctx context.Context, to common.Address, amount *big.Int) error
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
}

// LiquidityToken tracks holder balances of the pool's liquidity token.
type LiquidityToken interface {
	Mint(ctx context.Context, to common.Address, amount *big.Int) error
	Burn(ctx context.Context, from common.Address, amount *big.Int) error
	TotalSupply(ctx context.Context) (*big.Int, error)
	BalanceOf(ctx context.Context, holder common.Address) (*big.Int, error)
}

// Clock returns the current unix time in seconds.
type Clock interface {
	Now(ctx context.Context) (uint64, error)
}

// Notifier receives a record after every successful mutating call.
type Notifier interface {
	Trade(ctx context.Context, ev TradeEvent) error
	Liquidity(ctx context.Context, ev LiquidityEvent) error
}

// TradeEvent deltas are signed from the pool's side: positive means the pool received.
type TradeEvent struct {
	Maturity         uint64
	Timestamp        uint64
	TimeTillMaturity uint64
	Direction        curve.Direction
	From             common.Address
	To               common.Address
	BaseDelta        *big.Int
	MaturingDelta    *big.Int
}

// LiquidityEvent deltas are signed like TradeEvent. TokenDelta is the change in supply.
type LiquidityEvent struct {
	Maturity         uint64
	Timestamp        uint64
	TimeTillMaturity uint64
	Action           Action
	From             common.Address
	To               common.Address
	BaseDelta        *big.Int
	MaturingDelta    *big.Int
	TokenDelta       *big.Int
}

// Action names a liquidity operation.
type Action string

const (
	ActionMint                  Action = "mint"
	ActionBurn                  Action = "burn"
	ActionMintWithMaturingAsset Action = "mint_with_maturing"
	ActionBurnForBaseAsset      Action = "burn_for_base"
)
