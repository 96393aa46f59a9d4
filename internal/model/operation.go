package model

// Operation names accepted by the simulator.
const (
	OpFund             = "fund"
	OpMint             = "mint"
	OpBurn             = "burn"
	OpMintWithMaturing = "mint_with_maturing"
	OpBurnForBase      = "burn_for_base"
	OpSellBase         = "sell_base"
	OpBuyBase          = "buy_base"
	OpSellMaturing     = "sell_maturing"
	OpBuyMaturing      = "buy_maturing"
	OpAdvance          = "advance"
	OpSetTime          = "set_time"
)

// Operation is one line of a simulation input file.
type Operation struct {
	Op      string `json:"op"`
	From    string `json:"from,omitempty"`
	To      string `json:"to,omitempty"`
	Amount  string `json:"amount,omitempty"`
	Preview bool   `json:"preview,omitempty"`
	// Asset selects "base" or "maturing" for fund operations.
	Asset     string `json:"asset,omitempty"`
	Seconds   uint64 `json:"seconds,omitempty"`
	Timestamp uint64 `json:"timestamp,omitempty"`
}

// Rejection records an operation the pool refused.
type Rejection struct {
	RunID  string `json:"run_id"`
	Line   uint64 `json:"line"`
	Op     string `json:"op"`
	Reason string `json:"reason"`
	Error  string `json:"error"`
}

// Preview records the result of a preview-only operation. Result is keyed by
// quantity name, e.g. "amount_out" or "minted".
type Preview struct {
	RunID     string            `json:"run_id"`
	Line      uint64            `json:"line"`
	Op        string            `json:"op"`
	Timestamp uint64            `json:"timestamp"`
	Amount    string            `json:"amount"`
	Result    map[string]string `json:"result"`
}
