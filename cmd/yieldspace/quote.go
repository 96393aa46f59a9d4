package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yieldSpace/internal/chain"
	"yieldSpace/internal/config"
	"yieldSpace/internal/curve"
	"yieldSpace/internal/ledger"
	"yieldSpace/internal/pool"
	"yieldSpace/internal/pricing"
	"yieldSpace/internal/simulate"
	"yieldSpace/internal/units"
)

const defaultQuotePool = "0x00000000000000000000000000000000000000ff"

var directions = map[string]curve.Direction{
	curve.SellBase.String():     curve.SellBase,
	curve.BuyBase.String():      curve.BuyBase,
	curve.SellMaturing.String(): curve.SellMaturing,
	curve.BuyMaturing.String():  curve.BuyMaturing,
}

type quoteLine struct {
	Direction string `json:"direction"`
	Amount    string `json:"amount"`
	Result    string `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
}

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Amount == "" {
		return fmt.Errorf("amount is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var p *pool.Pool
	if cfg.RPCURL != "" {
		var closeFn func()
		p, closeFn, err = chainPool(ctx, &cfg, logger)
		if err != nil {
			return err
		}
		defer closeFn()
	} else {
		p, err = offlinePool(cfg, logger)
		if err != nil {
			return err
		}
	}

	amount, err := units.ParseAmount(cfg.Amount, cfg.Decimals)
	if err != nil {
		return fmt.Errorf("parse amount: %w", err)
	}

	logger.Info("quote",
		zap.String("pool", p.Address().Hex()),
		zap.Uint64("maturity", p.Maturity()),
		zap.String("direction", cfg.Direction),
		zap.Stringer("amount", amount),
	)

	lines, err := quote(ctx, p, cfg.Direction, amount, cfg.Decimals)
	if err != nil {
		return err
	}
	return writeQuotes(cmd.OutOrStdout(), lines)
}

// quote previews amount in one direction, or in all four against a single
// reserve snapshot.
func quote(ctx context.Context, p *pool.Pool, direction string, amount *big.Int, decimals int32) ([]quoteLine, error) {
	direction = strings.ToLower(strings.TrimSpace(direction))
	if direction == "all" {
		state, err := p.State(ctx)
		if err != nil {
			return nil, err
		}
		if state == pool.Matured {
			return nil, pool.ErrPoolExpired
		}
		snap, err := p.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		quotes := pricing.QuoteAll(snap.Base, snap.MaturingVirtual(), amount, snap.TimeTillMaturity)
		lines := make([]quoteLine, 0, len(quotes))
		for _, q := range quotes {
			lines = append(lines, newQuoteLine(q.Direction, amount, q.Result, q.Err, decimals))
		}
		return lines, nil
	}

	d, ok := directions[direction]
	if !ok {
		return nil, fmt.Errorf("unknown direction %q", direction)
	}

	var (
		res *big.Int
		err error
	)
	switch d {
	case curve.SellBase:
		res, err = p.SellBaseAssetPreview(ctx, amount)
	case curve.BuyBase:
		res, err = p.BuyBaseAssetPreview(ctx, amount)
	case curve.SellMaturing:
		res, err = p.SellMaturingAssetPreview(ctx, amount)
	case curve.BuyMaturing:
		res, err = p.BuyMaturingAssetPreview(ctx, amount)
	}
	if errors.Is(err, pool.ErrPoolExpired) {
		return nil, err
	}
	return []quoteLine{newQuoteLine(d, amount, res, err, decimals)}, nil
}

func newQuoteLine(d curve.Direction, amount, res *big.Int, err error, decimals int32) quoteLine {
	line := quoteLine{Direction: d.String(), Amount: units.FormatAmount(amount, decimals)}
	if err != nil {
		line.Error = err.Error()
		return line
	}
	line.Result = units.FormatAmount(res, decimals)
	return line
}

func writeQuotes(w io.Writer, lines []quoteLine) error {
	enc := json.NewEncoder(w)
	for _, line := range lines {
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("write quote: %w", err)
		}
	}
	return nil
}

// offlinePool builds a ledger backed pool holding the reserves given on the
// command line.
func offlinePool(cfg config.QuoteConfig, logger *zap.Logger) (*pool.Pool, error) {
	if cfg.Maturity == "" {
		return nil, fmt.Errorf("maturity is required")
	}
	maturity, err := config.ParseTimestamp(cfg.Maturity)
	if err != nil {
		return nil, fmt.Errorf("parse maturity: %w", err)
	}
	now := uint64(time.Now().Unix())
	if cfg.Now != "" {
		if now, err = config.ParseTimestamp(cfg.Now); err != nil {
			return nil, fmt.Errorf("parse now: %w", err)
		}
	}

	addrInput := cfg.Pool
	if addrInput == "" {
		addrInput = defaultQuotePool
	}
	addr, err := simulate.ParseAddress(addrInput)
	if err != nil {
		return nil, err
	}

	reserves := make([]*big.Int, 3)
	for i, in := range []struct{ name, value string }{
		{"base-reserves", cfg.BaseReserves},
		{"maturing-reserves", cfg.MaturingReserves},
		{"supply", cfg.Supply},
	} {
		if in.value == "" {
			reserves[i] = new(big.Int)
			continue
		}
		if reserves[i], err = units.ParseAmount(in.value, cfg.Decimals); err != nil {
			return nil, fmt.Errorf("parse %s: %w", in.name, err)
		}
	}

	ctx := context.Background()
	base := ledger.NewToken("base")
	maturing := ledger.NewToken("maturing")
	lp := ledger.NewToken("lp")
	if err := base.Mint(ctx, addr, reserves[0]); err != nil {
		return nil, err
	}
	if err := maturing.Mint(ctx, addr, reserves[1]); err != nil {
		return nil, err
	}
	if err := lp.Mint(ctx, addr, reserves[2]); err != nil {
		return nil, err
	}

	return pool.New(pool.Config{
		Address:  addr,
		Maturity: maturity,
		Base:     base.Account(addr),
		Maturing: maturing.Account(addr),
		Token:    lp,
		Clock:    ledger.NewManualClock(now),
		Logger:   logger.Named("pool"),
	})
}

// chainPool builds a read-only pool over a deployed contract. Decimals are
// taken from the base token so amounts are parsed in its units.
func chainPool(ctx context.Context, cfg *config.QuoteConfig, logger *zap.Logger) (*pool.Pool, func(), error) {
	addresses := make([]common.Address, 3)
	for i, in := range []struct{ name, value string }{
		{"pool", cfg.Pool},
		{"base-token", cfg.BaseToken},
		{"maturing-token", cfg.MaturingToken},
	} {
		if in.value == "" {
			return nil, nil, fmt.Errorf("%s is required in rpc mode", in.name)
		}
		addr, err := simulate.ParseAddress(in.value)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", in.name, err)
		}
		addresses[i] = addr
	}

	client, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect rpc: %w", err)
	}

	backend := chain.RetryingClient{
		Backend:    client,
		MaxRetries: cfg.MaxRetries,
		BaseDelay:  cfg.RetryBackoff,
		Logger:     logger,
	}
	var block *big.Int
	if cfg.Block > 0 {
		block = new(big.Int).SetUint64(cfg.Block)
	}

	poolContract := chain.NewContract(backend, addresses[0], block)
	baseContract := chain.NewContract(backend, addresses[1], block)
	maturingContract := chain.NewContract(backend, addresses[2], block)

	maturity, err := config.ParseTimestamp(cfg.Maturity)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("parse maturity: %w", err)
	}
	if maturity == 0 {
		if maturity, err = poolContract.Maturity(ctx); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("read maturity: %w", err)
		}
	}

	decimals, err := baseContract.Decimals(ctx)
	if err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("read decimals: %w", err)
	}
	if int32(decimals) != cfg.Decimals {
		logger.Info("using base token decimals", zap.Uint8("decimals", decimals), zap.Int32("configured", cfg.Decimals))
		cfg.Decimals = int32(decimals)
	}

	p, err := pool.New(pool.Config{
		Address:  addresses[0],
		Maturity: maturity,
		Base:     chain.ERC20Asset{Contract: baseContract},
		Maturing: chain.ERC20Asset{Contract: maturingContract},
		Token:    chain.ERC20Token{Contract: poolContract},
		Clock:    chain.HeadClock{Headers: backend, Block: block},
		Logger:   logger.Named("pool"),
	})
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return p, client.Close, nil
}
