package storage

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"yieldSpace/internal/model"
	"yieldSpace/internal/pool"
)

// Notifier turns pool events into event records and writes them to a sink.
// It is not safe for concurrent use, like the pool that drives it.
type Notifier struct {
	sink  Storage
	pool  common.Address
	runID string
	seq   uint64
	now   func() time.Time
}

var _ pool.Notifier = (*Notifier)(nil)

func NewNotifier(sink Storage, poolAddr common.Address, runID string) *Notifier {
	return &Notifier{
		sink:  sink,
		pool:  poolAddr,
		runID: runID,
		now:   time.Now,
	}
}

// Seq returns the number of records emitted so far.
func (n *Notifier) Seq() uint64 {
	return n.seq
}

func (n *Notifier) Trade(ctx context.Context, ev pool.TradeEvent) error {
	return n.put(ctx, model.EventRecord{
		Kind:             model.KindTrade,
		Maturity:         ev.Maturity,
		Timestamp:        ev.Timestamp,
		TimeTillMaturity: ev.TimeTillMaturity,
		Action:           ev.Direction.String(),
		From:             ev.From.Hex(),
		To:               ev.To.Hex(),
		BaseDelta:        amountString(ev.BaseDelta),
		MaturingDelta:    amountString(ev.MaturingDelta),
	})
}

func (n *Notifier) Liquidity(ctx context.Context, ev pool.LiquidityEvent) error {
	return n.put(ctx, model.EventRecord{
		Kind:             model.KindLiquidity,
		Maturity:         ev.Maturity,
		Timestamp:        ev.Timestamp,
		TimeTillMaturity: ev.TimeTillMaturity,
		Action:           string(ev.Action),
		From:             ev.From.Hex(),
		To:               ev.To.Hex(),
		BaseDelta:        amountString(ev.BaseDelta),
		MaturingDelta:    amountString(ev.MaturingDelta),
		TokenDelta:       amountString(ev.TokenDelta),
	})
}

func (n *Notifier) put(ctx context.Context, record model.EventRecord) error {
	n.seq++
	record.RunID = n.runID
	record.Seq = n.seq
	record.Pool = n.pool.Hex()
	record.RecordedAt = n.now().UTC().Format(time.RFC3339)
	return n.sink.PutEvents(ctx, []model.EventRecord{record})
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
