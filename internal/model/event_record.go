package model

const (
	KindTrade     = "trade"
	KindLiquidity = "liquidity"
)

// EventRecord is the normalized representation of a pool event for storage.
// Deltas are signed from the pool's side and encoded as decimal strings.
type EventRecord struct {
	RunID            string `json:"run_id"`
	Seq              uint64 `json:"seq"`
	Kind             string `json:"kind"`
	Pool             string `json:"pool"`
	Maturity         uint64 `json:"maturity"`
	Timestamp        uint64 `json:"timestamp"`
	TimeTillMaturity uint64 `json:"time_till_maturity"`
	// Action is the trade direction for trades and the liquidity action otherwise.
	Action        string `json:"action"`
	From          string `json:"from"`
	To            string `json:"to"`
	BaseDelta     string `json:"base_delta"`
	MaturingDelta string `json:"maturing_delta"`
	TokenDelta    string `json:"token_delta,omitempty"`
	RecordedAt    string `json:"recorded_at"`
}

func (r EventRecord) IsTrade() bool {
	return r.Kind == KindTrade
}
