package model

import "time"

// WindowMetrics stores aggregated metrics for a pool window. Volumes are
// formatted with the asset decimals.
type WindowMetrics struct {
	Pool           string    `json:"pool"`
	Maturity       uint64    `json:"maturity"`
	WindowSizeSecs int64     `json:"window_size_seconds"`
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	TradeCount     uint64    `json:"trade_count"`
	LiquidityCount uint64    `json:"liquidity_count"`
	BaseVolume     string    `json:"base_volume"`
	MaturingVolume string    `json:"maturing_volume"`
	NetSupply      string    `json:"net_supply"`
	// Price is base per maturing unit, nil when the window has no trades.
	Price       *string `json:"price,omitempty"`
	ImpliedRate *string `json:"implied_rate,omitempty"`
}
