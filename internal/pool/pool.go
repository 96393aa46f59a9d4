// Package pool holds the state of one base/maturing pair and routes every
// entry point through the pricing and liquidity packages.
//
// A Pool is not safe for concurrent use. Callers serialize mutating calls.
package pool

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"yieldSpace/internal/liquidity"
)

// State is the lifecycle stage of a pool.
type State int

const (
	Active State = iota
	Matured
)

func (s State) String() string {
	if s == Matured {
		return "matured"
	}
	return "active"
}

// Config wires a pool to its collaborators.
type Config struct {
	Address  common.Address
	Maturity uint64
	Base     Asset
	Maturing Asset
	Token    LiquidityToken
	Clock    Clock
	Notifier Notifier
	Logger   *zap.Logger
}

// Pool prices trades and liquidity actions for one maturity.
type Pool struct {
	address  common.Address
	maturity uint64
	base     Asset
	maturing Asset
	token    LiquidityToken
	clock    Clock
	notifier Notifier
	logger   *zap.Logger
}

// New validates cfg and builds a Pool.
func New(cfg Config) (*Pool, error) {
	if cfg.Base == nil || cfg.Maturing == nil {
		return nil, fmt.Errorf("base and maturing assets are required")
	}
	if cfg.Token == nil {
		return nil, fmt.Errorf("liquidity token is required")
	}
	if cfg.Clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if cfg.Maturity == 0 {
		return nil, fmt.Errorf("maturity is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Pool{
		address:  cfg.Address,
		maturity: cfg.Maturity,
		base:     cfg.Base,
		maturing: cfg.Maturing,
		token:    cfg.Token,
		clock:    cfg.Clock,
		notifier: cfg.Notifier,
		logger:   logger.With(zap.String("pool", cfg.Address.Hex()), zap.Uint64("maturity", cfg.Maturity)),
	}, nil
}

// Snapshot is a consistent read of time and reserves.
type Snapshot struct {
	Timestamp        uint64
	TimeTillMaturity uint64
	Base             *big.Int
	MaturingReal     *big.Int
	Supply           *big.Int
}

// MaturingVirtual is the real maturing balance plus the token supply.
func (s Snapshot) MaturingVirtual() *big.Int {
	return new(big.Int).Add(s.MaturingReal, s.Supply)
}

func (s Snapshot) reserves() liquidity.Reserves {
	return liquidity.Reserves{Base: s.Base, MaturingReal: s.MaturingReal, Supply: s.Supply}
}

// Address returns the pool address.
func (p *Pool) Address() common.Address {
	return p.address
}

// Maturity returns the fixed maturity timestamp.
func (p *Pool) Maturity() uint64 {
	return p.maturity
}

// TimeTillMaturity returns seconds left, zero once matured.
func (p *Pool) TimeTillMaturity(ctx context.Context) (uint64, error) {
	now, err := p.clock.Now(ctx)
	if err != nil {
		return 0, fmt.Errorf("read clock: %w", err)
	}
	if now >= p.maturity {
		return 0, nil
	}
	return p.maturity - now, nil
}

// State reports whether the pool still trades.
func (p *Pool) State(ctx context.Context) (State, error) {
	ttm, err := p.TimeTillMaturity(ctx)
	if err != nil {
		return Active, err
	}
	if ttm == 0 {
		return Matured, nil
	}
	return Active, nil
}

// GetBaseReserves returns the pool's base balance.
func (p *Pool) GetBaseReserves(ctx context.Context) (*big.Int, error) {
	bal, err := p.base.BalanceOf(ctx, p.address)
	if err != nil {
		return nil, fmt.Errorf("base balance: %w", err)
	}
	return bal, nil
}

// GetMaturingAssetReserves returns the virtual maturing reserve.
func (p *Pool) GetMaturingAssetReserves(ctx context.Context) (*big.Int, error) {
	held, err := p.maturing.BalanceOf(ctx, p.address)
	if err != nil {
		return nil, fmt.Errorf("maturing balance: %w", err)
	}
	supply, err := p.TotalSupply(ctx)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Add(held, supply), nil
}

// TotalSupply returns the liquidity token supply.
func (p *Pool) TotalSupply(ctx context.Context) (*big.Int, error) {
	supply, err := p.token.TotalSupply(ctx)
	if err != nil {
		return nil, fmt.Errorf("total supply: %w", err)
	}
	return supply, nil
}

// Snapshot reads time and reserves without checking maturity.
func (p *Pool) Snapshot(ctx context.Context) (Snapshot, error) {
	now, err := p.clock.Now(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read clock: %w", err)
	}
	return p.readReserves(ctx, now)
}

// activeSnapshot fails with ErrPoolExpired before touching reserves.
func (p *Pool) activeSnapshot(ctx context.Context) (Snapshot, error) {
	now, err := p.clock.Now(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read clock: %w", err)
	}
	if now >= p.maturity {
		return Snapshot{}, ErrPoolExpired
	}
	return p.readReserves(ctx, now)
}

func (p *Pool) readReserves(ctx context.Context, now uint64) (Snapshot, error) {
	base, err := p.GetBaseReserves(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	held, err := p.maturing.BalanceOf(ctx, p.address)
	if err != nil {
		return Snapshot{}, fmt.Errorf("maturing balance: %w", err)
	}
	supply, err := p.TotalSupply(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	var ttm uint64
	if now < p.maturity {
		ttm = p.maturity - now
	}
	return Snapshot{
		Timestamp:        now,
		TimeTillMaturity: ttm,
		Base:             base,
		MaturingReal:     held,
		Supply:           supply,
	}, nil
}

func (p *Pool) requirePositive(amount *big.Int, what string) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: %s must be positive", ErrInvalidCurveState, what)
	}
	return nil
}

func (p *Pool) requireReserve(amount, reserve *big.Int, what string) error {
	if amount.Cmp(reserve) > 0 {
		return fmt.Errorf("%w: %s out %s exceeds reserve %s", ErrInsufficientPoolReserve, what, amount, reserve)
	}
	return nil
}

func (p *Pool) requireBalance(ctx context.Context, asset Asset, holder common.Address, amount *big.Int, what string) error {
	bal, err := asset.BalanceOf(ctx, holder)
	if err != nil {
		return fmt.Errorf("%s balance: %w", what, err)
	}
	if bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s balance %s below %s", ErrInsufficientBalanceOrAllowance, what, bal, amount)
	}
	return nil
}
