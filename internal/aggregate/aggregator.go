package aggregate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"yieldSpace/internal/model"
)

// MetricsSink receives flushed window metrics.
type MetricsSink interface {
	UpsertWindowMetrics(ctx context.Context, metrics []model.WindowMetrics) error
}

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds uint64
	BatchSize     int
	RecomputeFrom uint64
	Decimals      uint8
	// Pools restricts aggregation to the listed addresses when non-empty.
	Pools      []string
	StateStore StateStore
}

// Stats summarises an aggregation run.
type Stats struct {
	Total    int
	Windows  int
	Skipped  int
	Filtered int
	Failed   int
}

// Aggregator folds pool event records into windowed metrics.
type Aggregator struct {
	cfg          Config
	sink         MetricsSink
	logger       *zap.Logger
	stream       Stream
	pools        map[string]struct{}
	accumulators map[string]*Accumulator
}

func NewAggregator(cfg Config, sink MetricsSink, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}

	var pools map[string]struct{}
	if len(cfg.Pools) > 0 {
		pools = make(map[string]struct{}, len(cfg.Pools))
		for _, p := range cfg.Pools {
			pools[poolKey(p)] = struct{}{}
		}
	}

	return &Aggregator{
		cfg:          cfg,
		sink:         sink,
		logger:       logger,
		stream:       NewStream(cfg.WindowSeconds, cfg.Pools),
		pools:        pools,
		accumulators: make(map[string]*Accumulator),
	}
}

// Run executes aggregation over an event JSONL file.
func (a *Aggregator) Run(ctx context.Context, inputPath string) (Stats, error) {
	var stats Stats
	if a.sink == nil {
		return stats, fmt.Errorf("metrics sink is nil")
	}
	if a.cfg.WindowSeconds == 0 {
		return stats, fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return stats, err
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return stats, fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	batch := make([]model.WindowMetrics, 0, a.cfg.BatchSize)
	maxTs := startTs

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		stats.Total++

		if !gjson.ValidBytes(line) {
			stats.Failed++
			a.logger.Warn("invalid event line", zap.Int("line", stats.Total))
			continue
		}
		fields := gjson.GetManyBytes(line, "pool", "timestamp")
		if a.pools != nil {
			if _, ok := a.pools[poolKey(fields[0].String())]; !ok {
				stats.Filtered++
				continue
			}
		}
		if fields[1].Uint() <= startTs {
			stats.Skipped++
			continue
		}

		var record model.EventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			stats.Failed++
			a.logger.Warn("decode event", zap.Error(err))
			continue
		}

		windowStart := windowStart(record.Timestamp, a.cfg.WindowSeconds)
		windowEnd := windowStart + a.cfg.WindowSeconds

		accKey := poolKey(record.Pool)
		acc := a.accumulators[accKey]
		if acc == nil {
			acc = NewAccumulator(record, windowStart, windowEnd)
			a.accumulators[accKey] = acc
		} else if acc.WindowStart != windowStart {
			batch = append(batch, a.flushAccumulator(acc))
			stats.Windows++
			acc = NewAccumulator(record, windowStart, windowEnd)
			a.accumulators[accKey] = acc
		}

		if err := acc.AddEvent(record); err != nil {
			stats.Failed++
			a.logger.Warn("aggregate event", zap.Error(err), zap.String("pool", record.Pool), zap.String("action", record.Action))
			continue
		}

		if record.Timestamp > maxTs {
			maxTs = record.Timestamp
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.sink.UpsertWindowMetrics(ctx, batch); err != nil {
				return stats, err
			}
			batch = batch[:0]

			if err := a.saveState(ctx); err != nil {
				return stats, err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan input: %w", err)
	}

	for _, acc := range a.accumulators {
		batch = append(batch, a.flushAccumulator(acc))
		stats.Windows++
	}
	a.accumulators = make(map[string]*Accumulator)

	if len(batch) > 0 {
		if err := a.sink.UpsertWindowMetrics(ctx, batch); err != nil {
			return stats, err
		}
	}

	a.cfg.RecomputeFrom = maxTs
	if err := a.saveState(ctx); err != nil {
		return stats, err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", stats.Total),
		zap.Int("windows", stats.Windows),
		zap.Int("skipped", stats.Skipped),
		zap.Int("filtered", stats.Filtered),
		zap.Int("failed", stats.Failed),
	)

	return stats, nil
}

// loadStartTimestamp validates the checkpoint even when RecomputeFrom overrides it.
func (a *Aggregator) loadStartTimestamp(ctx context.Context) (uint64, error) {
	var last uint64
	if a.cfg.StateStore != nil {
		ts, ok, err := a.cfg.StateStore.Load(ctx, a.stream)
		if err != nil {
			return 0, err
		}
		if ok {
			last = ts
		}
	}
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	return last, nil
}

func (a *Aggregator) saveState(ctx context.Context) error {
	if a.cfg.StateStore == nil {
		return nil
	}

	if len(a.accumulators) == 0 {
		return a.cfg.StateStore.Save(ctx, a.stream, a.cfg.RecomputeFrom)
	}

	safeTs := minOpenWindowStart(a.accumulators)
	if safeTs > 0 {
		safeTs = safeTs - 1
	}
	if safeTs == 0 {
		safeTs = a.cfg.RecomputeFrom
	}
	return a.cfg.StateStore.Save(ctx, a.stream, safeTs)
}

func (a *Aggregator) flushAccumulator(acc *Accumulator) model.WindowMetrics {
	price := computePrice(acc.BaseVolume, acc.MaturingVolume)
	rate := computeImpliedRate(price, acc.TimeWeight, acc.MaturingVolume)

	return model.WindowMetrics{
		Pool:           acc.PoolAddress,
		Maturity:       acc.Maturity,
		WindowSizeSecs: int64(a.cfg.WindowSeconds),
		WindowStart:    time.Unix(int64(acc.WindowStart), 0).UTC(),
		WindowEnd:      time.Unix(int64(acc.WindowEnd), 0).UTC(),
		TradeCount:     acc.TradeCount,
		LiquidityCount: acc.LiquidityCount,
		BaseVolume:     formatTokenAmount(acc.BaseVolume, a.cfg.Decimals),
		MaturingVolume: formatTokenAmount(acc.MaturingVolume, a.cfg.Decimals),
		NetSupply:      formatTokenAmount(acc.NetSupply, a.cfg.Decimals),
		Price:          ratString(price),
		ImpliedRate:    ratString(rate),
	}
}

func windowStart(ts uint64, windowSec uint64) uint64 {
	return ts - (ts % windowSec)
}

func poolKey(address string) string {
	return strings.ToLower(address)
}

func minOpenWindowStart(acc map[string]*Accumulator) uint64 {
	var lowest uint64
	for _, entry := range acc {
		if entry == nil {
			continue
		}
		if lowest == 0 || entry.WindowStart < lowest {
			lowest = entry.WindowStart
		}
	}
	return lowest
}
