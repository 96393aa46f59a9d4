package aggregate

import (
	"fmt"
	"math/big"

	"yieldSpace/internal/model"
)

// Accumulator holds aggregate values for a pool window.
type Accumulator struct {
	PoolAddress    string
	Maturity       uint64
	WindowStart    uint64
	WindowEnd      uint64
	TradeCount     uint64
	LiquidityCount uint64
	BaseVolume     *big.Int
	MaturingVolume *big.Int
	NetSupply      *big.Int
	// TimeWeight sums maturing volume times time till maturity, so that
	// TimeWeight / MaturingVolume is the volume weighted time till maturity.
	TimeWeight *big.Int
	LastTS     uint64
}

func NewAccumulator(record model.EventRecord, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		PoolAddress:    record.Pool,
		Maturity:       record.Maturity,
		WindowStart:    windowStart,
		WindowEnd:      windowEnd,
		BaseVolume:     big.NewInt(0),
		MaturingVolume: big.NewInt(0),
		NetSupply:      big.NewInt(0),
		TimeWeight:     big.NewInt(0),
		LastTS:         record.Timestamp,
	}
}

func (a *Accumulator) AddEvent(record model.EventRecord) error {
	if record.Timestamp >= a.LastTS {
		a.LastTS = record.Timestamp
	}

	switch record.Kind {
	case model.KindTrade:
		return a.applyTrade(record)
	case model.KindLiquidity:
		return a.applyLiquidity(record)
	default:
		return fmt.Errorf("unknown event kind %q", record.Kind)
	}
}

func (a *Accumulator) applyTrade(record model.EventRecord) error {
	base, err := parseBigInt(record.BaseDelta)
	if err != nil {
		return err
	}
	maturing, err := parseBigInt(record.MaturingDelta)
	if err != nil {
		return err
	}
	if base.Sign() == maturing.Sign() {
		return fmt.Errorf("trade deltas %s/%s must have opposite signs", record.BaseDelta, record.MaturingDelta)
	}

	absAdd(a.BaseVolume, base)
	absAdd(a.MaturingVolume, maturing)

	weight := new(big.Int).Abs(maturing)
	weight.Mul(weight, new(big.Int).SetUint64(record.TimeTillMaturity))
	a.TimeWeight.Add(a.TimeWeight, weight)

	a.TradeCount++
	return nil
}

func (a *Accumulator) applyLiquidity(record model.EventRecord) error {
	tokens, err := parseBigInt(record.TokenDelta)
	if err != nil {
		return err
	}
	a.NetSupply.Add(a.NetSupply, tokens)
	a.LiquidityCount++
	return nil
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	return parsed, nil
}

func absAdd(target *big.Int, value *big.Int) {
	if value == nil || target == nil {
		return
	}
	abs := new(big.Int).Abs(value)
	target.Add(target, abs)
}
