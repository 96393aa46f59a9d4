package aggregate

import (
	"context"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"yieldSpace/internal/model"
)

const (
	poolA = "0x00000000000000000000000000000000000000aa"
	poolB = "0x00000000000000000000000000000000000000bb"
)

type memorySink struct {
	calls   int
	metrics []model.WindowMetrics
}

func (m *memorySink) UpsertWindowMetrics(_ context.Context, metrics []model.WindowMetrics) error {
	m.calls++
	m.metrics = append(m.metrics, metrics...)
	return nil
}

func trade(pool string, ts, ttm uint64, base, maturing string) model.EventRecord {
	return model.EventRecord{
		Kind:             model.KindTrade,
		Pool:             pool,
		Maturity:         ts + ttm,
		Timestamp:        ts,
		TimeTillMaturity: ttm,
		Action:           "sell_base",
		BaseDelta:        base,
		MaturingDelta:    maturing,
	}
}

func liquidity(pool string, ts uint64, tokens string) model.EventRecord {
	return model.EventRecord{
		Kind:       model.KindLiquidity,
		Pool:       pool,
		Timestamp:  ts,
		Action:     "mint",
		BaseDelta:  "0",
		TokenDelta: tokens,
	}
}

func TestAccumulatorTotals(t *testing.T) {
	first := trade(poolA, 36005, 1000, "-100", "110")
	acc := NewAccumulator(first, 36000, 39600)

	require.NoError(t, acc.AddEvent(first))
	require.NoError(t, acc.AddEvent(trade(poolA, 36010, 500, "90", "-100")))
	require.NoError(t, acc.AddEvent(liquidity(poolA, 36020, "1000")))
	require.NoError(t, acc.AddEvent(liquidity(poolA, 36030, "-400")))

	require.Equal(t, uint64(2), acc.TradeCount)
	require.Equal(t, uint64(2), acc.LiquidityCount)
	require.Equal(t, "190", acc.BaseVolume.String())
	require.Equal(t, "210", acc.MaturingVolume.String())
	require.Equal(t, "600", acc.NetSupply.String())
	require.Equal(t, "160000", acc.TimeWeight.String())
	require.Equal(t, uint64(36030), acc.LastTS)
}

func TestAccumulatorRejectsMalformed(t *testing.T) {
	first := trade(poolA, 36005, 1000, "-100", "110")
	acc := NewAccumulator(first, 36000, 39600)

	require.Error(t, acc.AddEvent(trade(poolA, 36005, 1000, "100", "110")))
	require.Error(t, acc.AddEvent(trade(poolA, 36005, 1000, "x", "110")))
	require.Error(t, acc.AddEvent(model.EventRecord{Kind: "swap"}))
	require.Zero(t, acc.TradeCount)
}

func TestPriceAndImpliedRate(t *testing.T) {
	price := computePrice(big.NewInt(190), big.NewInt(210))
	require.Zero(t, price.Cmp(big.NewRat(19, 21)))

	rate := computeImpliedRate(price, big.NewInt(160000), big.NewInt(210))
	// (21/19 - 1) * 31536000 / (160000/210)
	expected := new(big.Rat).Mul(big.NewRat(2, 19), big.NewRat(31536000*210, 160000))
	require.Zero(t, rate.Cmp(expected))

	require.Nil(t, computePrice(big.NewInt(0), big.NewInt(210)))
	require.Nil(t, computeImpliedRate(nil, big.NewInt(1), big.NewInt(1)))
	require.Nil(t, computeImpliedRate(price, big.NewInt(0), big.NewInt(210)))
}

func TestFormatTokenAmount(t *testing.T) {
	require.Equal(t, "1.500000", formatTokenAmount(big.NewInt(1_500_000), 6))
	require.Equal(t, "-0.000001", formatTokenAmount(big.NewInt(-1), 6))
	require.Equal(t, "42", formatTokenAmount(big.NewInt(42), 0))
	require.Equal(t, "0", formatTokenAmount(nil, 18))
}

func writeEvents(t *testing.T, path string, lines ...any) {
	t.Helper()
	var sb strings.Builder
	for _, line := range lines {
		switch v := line.(type) {
		case string:
			sb.WriteString(v)
		default:
			data, err := json.Marshal(v)
			require.NoError(t, err)
			sb.Write(data)
		}
		sb.WriteByte('\n')
	}
	require.NoError(t, os.WriteFile(path, []byte(sb.String()), 0o644))
}

func TestAggregatorRun(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "events.jsonl")
	writeEvents(t, input,
		trade(poolA, 36005, 1000, "-100", "110"),
		trade(poolB, 36006, 1000, "-5", "6"),
		"not json",
		trade(poolA, 36010, 500, "90", "-100"),
		"",
		liquidity(poolA, 36020, "1000"),
		liquidity(poolA, 39601, "-400"),
	)

	state := &FileStateStore{Path: filepath.Join(dir, "state", "aggregate.json")}
	sink := &memorySink{}
	agg := NewAggregator(Config{
		WindowSeconds: 3600,
		Pools:         []string{"0x00000000000000000000000000000000000000AA"},
		StateStore:    state,
	}, sink, nil)

	stats, err := agg.Run(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, Stats{Total: 6, Windows: 2, Filtered: 1, Failed: 1}, stats)

	require.Equal(t, 1, sink.calls)
	require.Len(t, sink.metrics, 2)

	first := sink.metrics[0]
	require.Equal(t, poolA, first.Pool)
	require.Equal(t, int64(3600), first.WindowSizeSecs)
	require.Equal(t, int64(36000), first.WindowStart.Unix())
	require.Equal(t, int64(39600), first.WindowEnd.Unix())
	require.Equal(t, uint64(2), first.TradeCount)
	require.Equal(t, uint64(1), first.LiquidityCount)
	require.Equal(t, "190", first.BaseVolume)
	require.Equal(t, "210", first.MaturingVolume)
	require.Equal(t, "1000", first.NetSupply)
	require.NotNil(t, first.Price)
	require.Equal(t, "0.904761904761904762", *first.Price)
	require.NotNil(t, first.ImpliedRate)
	require.Equal(t, "4356.947368421052631579", *first.ImpliedRate)

	second := sink.metrics[1]
	require.Equal(t, int64(39600), second.WindowStart.Unix())
	require.Zero(t, second.TradeCount)
	require.Equal(t, uint64(1), second.LiquidityCount)
	require.Equal(t, "-400", second.NetSupply)
	require.Nil(t, second.Price)
	require.Nil(t, second.ImpliedRate)

	last, ok, err := state.Load(context.Background(), NewStream(3600, []string{poolA}))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(39601), last)

	rerun := NewAggregator(Config{WindowSeconds: 3600, Pools: []string{poolA}, StateStore: state}, sink, nil)
	stats, err = rerun.Run(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, Stats{Total: 6, Skipped: 4, Filtered: 1, Failed: 1}, stats)
	require.Equal(t, 1, sink.calls)
}

func TestAggregatorRecomputeFrom(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "events.jsonl")
	writeEvents(t, input,
		trade(poolA, 36005, 1000, "-100", "110"),
		trade(poolA, 39700, 1000, "-50", "55"),
	)

	state := &FileStateStore{Path: filepath.Join(dir, "state.json")}
	require.NoError(t, state.Save(context.Background(), NewStream(3600, nil), 50000))

	sink := &memorySink{}
	agg := NewAggregator(Config{WindowSeconds: 3600, RecomputeFrom: 39600, Decimals: 1, StateStore: state}, sink, nil)
	stats, err := agg.Run(context.Background(), input)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Skipped)
	require.Len(t, sink.metrics, 1)
	require.Equal(t, "5.0", sink.metrics[0].BaseVolume)
	require.Equal(t, "5.5", sink.metrics[0].MaturingVolume)
}

func TestAggregatorRequiresWindow(t *testing.T) {
	_, err := NewAggregator(Config{}, &memorySink{}, nil).Run(context.Background(), "missing.jsonl")
	require.Error(t, err)

	_, err = NewAggregator(Config{WindowSeconds: 60}, nil, nil).Run(context.Background(), "missing.jsonl")
	require.Error(t, err)
}

func TestFileStateStoreMissing(t *testing.T) {
	state := &FileStateStore{Path: filepath.Join(t.TempDir(), "none.json")}
	_, ok, err := state.Load(context.Background(), NewStream(3600, nil))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStreamKey(t *testing.T) {
	req := require.New(t)
	req.Equal("aggregator:3600", NewStream(3600, nil).Key())
	req.Equal("aggregator:60:"+poolA+","+poolB,
		NewStream(60, []string{poolB, strings.ToUpper(poolA), poolA}).Key())
	req.Equal(NewStream(60, []string{poolA, poolB}), NewStream(60, []string{poolB, poolA}))
}

func TestFileStateStoreRejectsOtherWindow(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	input := filepath.Join(dir, "events.jsonl")
	writeEvents(t, input,
		trade(poolA, 36005, 1000, "-100", "110"),
		trade(poolA, 39700, 1000, "-50", "55"),
	)
	path := filepath.Join(dir, "state.json")
	state := &FileStateStore{Path: path}

	_, err := NewAggregator(Config{WindowSeconds: 3600, StateStore: state}, &memorySink{}, nil).Run(ctx, input)
	require.NoError(t, err)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	var stored map[string]any
	require.NoError(t, json.Unmarshal(before, &stored))
	require.Equal(t, "aggregator:3600", stored["stream"])
	require.EqualValues(t, 3600, stored["window_seconds"])
	require.EqualValues(t, 39700, stored["last_processed_ts"])

	sink := &memorySink{}
	_, err = NewAggregator(Config{WindowSeconds: 60, StateStore: state}, sink, nil).Run(ctx, input)
	require.ErrorIs(t, err, ErrStateMismatch)
	require.ErrorContains(t, err, "stored window 3600s, run uses 60s")
	require.Zero(t, sink.calls)

	_, err = NewAggregator(Config{WindowSeconds: 60, RecomputeFrom: 36000, StateStore: state}, sink, nil).Run(ctx, input)
	require.ErrorIs(t, err, ErrStateMismatch)
	require.Zero(t, sink.calls)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestFileStateStoreRejectsOtherPoolFilter(t *testing.T) {
	ctx := context.Background()
	state := &FileStateStore{Path: filepath.Join(t.TempDir(), "state.json")}
	require.NoError(t, state.Save(ctx, NewStream(3600, []string{poolA}), 100))

	_, _, err := state.Load(ctx, NewStream(3600, nil))
	require.ErrorIs(t, err, ErrStateMismatch)
	require.ErrorIs(t, state.Save(ctx, NewStream(3600, []string{poolB}), 200), ErrStateMismatch)

	last, ok, err := state.Load(ctx, NewStream(3600, []string{strings.ToUpper(poolA)}))
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, uint64(100), last)
}
