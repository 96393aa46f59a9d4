package model

// PoolSnapshot captures pool reserves and holder balances at a point in time.
type PoolSnapshot struct {
	RunID            string `json:"run_id"`
	Pool             string `json:"pool"`
	Maturity         uint64 `json:"maturity"`
	Timestamp        uint64 `json:"timestamp"`
	TimeTillMaturity uint64 `json:"time_till_maturity"`
	State            string `json:"state"`
	BaseReserves     string `json:"base_reserves"`
	MaturingReserves string `json:"maturing_reserves"`
	// VirtualReserves is MaturingReserves plus TotalSupply.
	VirtualReserves string `json:"virtual_reserves"`
	TotalSupply     string `json:"total_supply"`
	// Balances is keyed by asset name then holder address.
	Balances  map[string]map[string]string `json:"balances,omitempty"`
	Processed uint64                       `json:"processed"`
	Rejected  uint64                       `json:"rejected"`
	UpdatedAt string                       `json:"updated_at"`
}
