// Package simulate replays a JSONL file of operations against an in-memory pool.
package simulate

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"yieldSpace/internal/ledger"
	"yieldSpace/internal/liquidity"
	"yieldSpace/internal/model"
	"yieldSpace/internal/pool"
	"yieldSpace/internal/storage"
	"yieldSpace/internal/units"
)

// RunConfig holds runtime settings for a simulation.
type RunConfig struct {
	RunID        string
	Pool         common.Address
	Maturity     uint64
	Start        uint64
	Decimals     int32
	Accounts     map[string]common.Address
	SnapshotPath string
}

// RejectionSink stores operations the pool refused.
type RejectionSink interface {
	PutRejections(rejections []model.Rejection) error
}

// PreviewSink stores preview results.
type PreviewSink interface {
	PutPreviews(previews []model.Preview) error
}

// SnapshotSink stores the final pool snapshot.
type SnapshotSink interface {
	UpsertSnapshot(ctx context.Context, snap model.PoolSnapshot) error
}

// Sinks groups the outputs of a run. Only Events is required.
type Sinks struct {
	Events     storage.Storage
	Rejections RejectionSink
	Previews   PreviewSink
	Snapshots  SnapshotSink
}

// Summary reports the outcome of a run.
type Summary struct {
	RunID     string
	Processed uint64
	Applied   uint64
	Previewed uint64
	Rejected  uint64
	Events    uint64
	Snapshot  model.PoolSnapshot
}

// Runner drives a ledger-backed pool from an operations stream.
type Runner struct {
	cfg     RunConfig
	sinks   Sinks
	metrics *Metrics
	logger  *zap.Logger

	base     *ledger.Token
	maturing *ledger.Token
	lp       *ledger.Token
	clock    *ledger.ManualClock
	pool     *pool.Pool
	notifier *sinkNotifier

	summary Summary
}

// NewRunner builds a Runner and the pool it drives.
func NewRunner(cfg RunConfig, sinks Sinks, metrics *Metrics, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sinks.Events == nil {
		return nil, fmt.Errorf("event storage is nil")
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	if cfg.Start == 0 {
		cfg.Start = uint64(time.Now().Unix())
	}
	if cfg.Maturity == 0 {
		return nil, fmt.Errorf("maturity is required")
	}
	if cfg.Accounts == nil {
		cfg.Accounts = map[string]common.Address{}
	}

	r := &Runner{
		cfg:      cfg,
		sinks:    sinks,
		metrics:  metrics,
		logger:   logger.With(zap.String("run_id", cfg.RunID)),
		base:     ledger.NewToken("base"),
		maturing: ledger.NewToken("maturing"),
		lp:       ledger.NewToken("lp"),
		clock:    ledger.NewManualClock(cfg.Start),
		notifier: &sinkNotifier{Notifier: storage.NewNotifier(sinks.Events, cfg.Pool, cfg.RunID)},
		summary:  Summary{RunID: cfg.RunID},
	}

	p, err := pool.New(pool.Config{
		Address:  cfg.Pool,
		Maturity: cfg.Maturity,
		Base:     r.base.Account(cfg.Pool),
		Maturing: r.maturing.Account(cfg.Pool),
		Token:    r.lp,
		Clock:    r.clock,
		Notifier: r.notifier,
		Logger:   r.logger.Named("pool"),
	})
	if err != nil {
		return nil, err
	}
	r.pool = p
	return r, nil
}

// Pool exposes the simulated pool.
func (r *Runner) Pool() *pool.Pool {
	return r.pool
}

// RunFile replays the operations in path.
func (r *Runner) RunFile(ctx context.Context, path string) (Summary, error) {
	file, err := os.Open(path)
	if err != nil {
		return Summary{}, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()
	return r.Run(ctx, file)
}

// Run replays one operation per line. Rejected operations are recorded and
// skipped; sink failures stop the run.
func (r *Runner) Run(ctx context.Context, in io.Reader) (Summary, error) {
	scanner := bufio.NewScanner(in)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	var line uint64
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return r.summary, ctx.Err()
		default:
		}

		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		if err := r.Apply(ctx, line, raw); err != nil {
			return r.summary, err
		}
	}
	if err := scanner.Err(); err != nil {
		return r.summary, fmt.Errorf("scan input: %w", err)
	}

	snap, err := r.Snapshot(ctx)
	if err != nil {
		return r.summary, err
	}
	r.summary.Snapshot = snap
	r.summary.Events = r.notifier.Seq()

	if r.cfg.SnapshotPath != "" {
		if err := SaveSnapshot(r.cfg.SnapshotPath, snap); err != nil {
			return r.summary, err
		}
	}
	if r.sinks.Snapshots != nil {
		if err := r.sinks.Snapshots.UpsertSnapshot(ctx, snap); err != nil {
			return r.summary, fmt.Errorf("store snapshot: %w", err)
		}
	}

	r.logger.Info("simulation complete",
		zap.Uint64("processed", r.summary.Processed),
		zap.Uint64("applied", r.summary.Applied),
		zap.Uint64("previewed", r.summary.Previewed),
		zap.Uint64("rejected", r.summary.Rejected),
		zap.Uint64("events", r.summary.Events),
		zap.String("state", snap.State),
	)
	return r.summary, nil
}

// Apply replays a single raw operation. It returns an error only when a sink fails.
func (r *Runner) Apply(ctx context.Context, line uint64, raw []byte) error {
	r.summary.Processed++

	op, err := decodeOperation(raw)
	if err != nil {
		return r.reject(line, "", err)
	}

	preview, err := r.apply(ctx, line, op)
	if r.notifier.err != nil {
		return fmt.Errorf("store events: %w", r.notifier.err)
	}
	if err != nil {
		return r.reject(line, op.Op, err)
	}

	if preview != nil {
		r.summary.Previewed++
		r.metrics.observe(op.Op, outcomePreviewed)
		if r.sinks.Previews != nil {
			if err := r.sinks.Previews.PutPreviews([]model.Preview{*preview}); err != nil {
				return fmt.Errorf("store preview: %w", err)
			}
		}
		return nil
	}

	r.summary.Applied++
	r.metrics.observe(op.Op, outcomeApplied)
	return nil
}

func (r *Runner) reject(line uint64, op string, cause error) error {
	reason := rejectionReason(cause)
	r.summary.Rejected++
	r.metrics.reject(op, reason)
	r.logger.Debug("operation rejected",
		zap.Uint64("line", line),
		zap.String("op", op),
		zap.String("reason", reason),
		zap.Error(cause),
	)

	if r.sinks.Rejections == nil {
		return nil
	}
	err := r.sinks.Rejections.PutRejections([]model.Rejection{{
		RunID:  r.cfg.RunID,
		Line:   line,
		Op:     op,
		Reason: reason,
		Error:  cause.Error(),
	}})
	if err != nil {
		return fmt.Errorf("store rejection: %w", err)
	}
	return nil
}

// apply returns a non-nil preview for preview-only operations.
func (r *Runner) apply(ctx context.Context, line uint64, op model.Operation) (*model.Preview, error) {
	switch op.Op {
	case model.OpFund:
		return nil, r.fund(ctx, op)
	case model.OpAdvance:
		if op.Seconds == 0 {
			return nil, fmt.Errorf("advance needs seconds")
		}
		r.clock.Advance(op.Seconds)
		return nil, nil
	case model.OpSetTime:
		now, err := r.clock.Now(ctx)
		if err != nil {
			return nil, err
		}
		if op.Timestamp < now {
			return nil, fmt.Errorf("clock cannot move back from %d to %d", now, op.Timestamp)
		}
		r.clock.Set(op.Timestamp)
		return nil, nil
	}

	amount, err := units.ParseAmount(op.Amount, r.cfg.Decimals)
	if err != nil {
		return nil, err
	}

	if op.Preview {
		result, err := r.preview(ctx, op.Op, amount)
		if err != nil {
			return nil, err
		}
		now, err := r.clock.Now(ctx)
		if err != nil {
			return nil, err
		}
		return &model.Preview{
			RunID:     r.cfg.RunID,
			Line:      line,
			Op:        op.Op,
			Timestamp: now,
			Amount:    amount.String(),
			Result:    result,
		}, nil
	}

	from, err := resolve(r.cfg.Accounts, op.From)
	if err != nil {
		return nil, fmt.Errorf("from: %w", err)
	}
	to := from
	if op.To != "" {
		if to, err = resolve(r.cfg.Accounts, op.To); err != nil {
			return nil, fmt.Errorf("to: %w", err)
		}
	}
	return nil, r.execute(ctx, op.Op, from, to, amount)
}

func (r *Runner) fund(ctx context.Context, op model.Operation) error {
	to, err := resolve(r.cfg.Accounts, op.To)
	if err != nil {
		return fmt.Errorf("to: %w", err)
	}
	amount, err := units.ParseAmount(op.Amount, r.cfg.Decimals)
	if err != nil {
		return err
	}
	switch op.Asset {
	case "base":
		return r.base.Mint(ctx, to, amount)
	case "maturing":
		return r.maturing.Mint(ctx, to, amount)
	default:
		return fmt.Errorf("unknown asset %q", op.Asset)
	}
}

func (r *Runner) execute(ctx context.Context, op string, from, to common.Address, amount *big.Int) error {
	var err error
	switch op {
	case model.OpMint:
		_, err = r.pool.Mint(ctx, from, to, amount)
	case model.OpBurn:
		_, err = r.pool.Burn(ctx, from, to, amount)
	case model.OpMintWithMaturing:
		_, err = r.pool.MintWithMaturingAsset(ctx, from, to, amount)
	case model.OpBurnForBase:
		_, err = r.pool.BurnForBaseAsset(ctx, from, to, amount)
	case model.OpSellBase:
		_, err = r.pool.SellBaseAsset(ctx, from, to, amount)
	case model.OpBuyBase:
		_, err = r.pool.BuyBaseAsset(ctx, from, to, amount)
	case model.OpSellMaturing:
		_, err = r.pool.SellMaturingAsset(ctx, from, to, amount)
	case model.OpBuyMaturing:
		_, err = r.pool.BuyMaturingAsset(ctx, from, to, amount)
	default:
		err = fmt.Errorf("unknown op %q", op)
	}
	return err
}

func (r *Runner) preview(ctx context.Context, op string, amount *big.Int) (map[string]string, error) {
	switch op {
	case model.OpMint:
		res, err := r.pool.MintPreview(ctx, amount)
		return mintResult(res), err
	case model.OpBurn:
		res, err := r.pool.BurnPreview(ctx, amount)
		return burnResult(res), err
	case model.OpMintWithMaturing:
		res, err := r.pool.MintWithMaturingAssetPreview(ctx, amount)
		return mintResult(res), err
	case model.OpBurnForBase:
		res, err := r.pool.BurnForBaseAssetPreview(ctx, amount)
		return burnResult(res), err
	case model.OpSellBase:
		out, err := r.pool.SellBaseAssetPreview(ctx, amount)
		return tradeResult("maturing_out", out), err
	case model.OpBuyBase:
		in, err := r.pool.BuyBaseAssetPreview(ctx, amount)
		return tradeResult("maturing_in", in), err
	case model.OpSellMaturing:
		out, err := r.pool.SellMaturingAssetPreview(ctx, amount)
		return tradeResult("base_out", out), err
	case model.OpBuyMaturing:
		in, err := r.pool.BuyMaturingAssetPreview(ctx, amount)
		return tradeResult("base_in", in), err
	default:
		return nil, fmt.Errorf("unknown op %q", op)
	}
}

// Snapshot reads the current pool state and holder balances.
func (r *Runner) Snapshot(ctx context.Context) (model.PoolSnapshot, error) {
	snap, err := r.pool.Snapshot(ctx)
	if err != nil {
		return model.PoolSnapshot{}, err
	}
	state := pool.Active
	if snap.Timestamp >= r.cfg.Maturity {
		state = pool.Matured
	}
	virtual := snap.MaturingVirtual()
	r.metrics.setReserves(snap.Base, virtual, snap.Supply)

	return model.PoolSnapshot{
		RunID:            r.cfg.RunID,
		Pool:             r.cfg.Pool.Hex(),
		Maturity:         r.cfg.Maturity,
		Timestamp:        snap.Timestamp,
		TimeTillMaturity: snap.TimeTillMaturity,
		State:            state.String(),
		BaseReserves:     snap.Base.String(),
		MaturingReserves: snap.MaturingReal.String(),
		VirtualReserves:  virtual.String(),
		TotalSupply:      snap.Supply.String(),
		Balances: map[string]map[string]string{
			r.base.Name():     r.base.Balances(),
			r.maturing.Name(): r.maturing.Balances(),
			r.lp.Name():       r.lp.Balances(),
		},
		Processed: r.summary.Processed,
		Rejected:  r.summary.Rejected,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}, nil
}

func mintResult(res liquidity.MintResult) map[string]string {
	if res.Minted == nil {
		return nil
	}
	return map[string]string{
		"minted":      res.Minted.String(),
		"base_in":     res.BaseIn.String(),
		"maturing_in": res.MaturingIn.String(),
	}
}

func burnResult(res liquidity.BurnResult) map[string]string {
	if res.Burned == nil {
		return nil
	}
	return map[string]string{
		"burned":       res.Burned.String(),
		"base_out":     res.BaseOut.String(),
		"maturing_out": res.MaturingOut.String(),
	}
}

func tradeResult(key string, v *big.Int) map[string]string {
	if v == nil {
		return nil
	}
	return map[string]string{key: v.String()}
}

// sinkNotifier keeps the first storage failure so the run can stop on it.
type sinkNotifier struct {
	*storage.Notifier
	err error
}

func (n *sinkNotifier) Trade(ctx context.Context, ev pool.TradeEvent) error {
	err := n.Notifier.Trade(ctx, ev)
	if err != nil && n.err == nil {
		n.err = err
	}
	return err
}

func (n *sinkNotifier) Liquidity(ctx context.Context, ev pool.LiquidityEvent) error {
	err := n.Notifier.Liquidity(ctx, ev)
	if err != nil && n.err == nil {
		n.err = err
	}
	return err
}
