package simulate

import (
	"errors"
	"math/big"

	"github.com/prometheus/client_golang/prometheus"

	"yieldSpace/internal/pool"
)

const (
	outcomeApplied   = "applied"
	outcomePreviewed = "previewed"
	outcomeRejected  = "rejected"
)

// Metrics counts replayed operations and tracks the final reserves.
type Metrics struct {
	operations *prometheus.CounterVec
	rejections *prometheus.CounterVec

	baseReserves     prometheus.Gauge
	maturingReserves prometheus.Gauge
	totalSupply      prometheus.Gauge
}

// NewMetrics registers the simulator metrics with r.
func NewMetrics(r prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "yieldspace",
			Subsystem: "simulate",
			Name:      "operations_total",
			Help:      "number of operations replayed by outcome",
		}, []string{"op", "outcome"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "yieldspace",
			Subsystem: "simulate",
			Name:      "rejections_total",
			Help:      "number of rejected operations by reason",
		}, []string{"op", "reason"}),
		baseReserves: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "yieldspace",
			Subsystem: "pool",
			Name:      "base_reserves",
			Help:      "base asset held by the pool in integer units",
		}),
		maturingReserves: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "yieldspace",
			Subsystem: "pool",
			Name:      "maturing_reserves",
			Help:      "virtual maturing asset reserves in integer units",
		}),
		totalSupply: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "yieldspace",
			Subsystem: "pool",
			Name:      "total_supply",
			Help:      "liquidity token supply in integer units",
		}),
	}
	collectors := []prometheus.Collector{
		m.operations,
		m.rejections,
		m.baseReserves,
		m.maturingReserves,
		m.totalSupply,
	}
	for _, c := range collectors {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(op, outcome string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) reject(op, reason string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcomeRejected).Inc()
	m.rejections.WithLabelValues(op, reason).Inc()
}

func (m *Metrics) setReserves(base, maturingVirtual, supply *big.Int) {
	if m == nil {
		return
	}
	m.baseReserves.Set(toFloat(base))
	m.maturingReserves.Set(toFloat(maturingVirtual))
	m.totalSupply.Set(toFloat(supply))
}

func toFloat(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}

// rejectionReason maps an operation error to a metric label.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, pool.ErrPoolExpired):
		return "pool_expired"
	case errors.Is(err, pool.ErrInvalidCurveState):
		return "invalid_curve_state"
	case errors.Is(err, pool.ErrInsufficientBalanceOrAllowance):
		return "insufficient_balance"
	case errors.Is(err, pool.ErrInsufficientPoolReserve):
		return "insufficient_reserve"
	default:
		return "invalid_operation"
	}
}
