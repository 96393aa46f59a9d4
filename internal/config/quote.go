package config

import (
	"time"

	"github.com/spf13/pflag"
)

// QuoteConfig holds configuration for the quote and curve commands. Reserves
// come from flags unless RPCURL is set, in which case they are read on chain.
type QuoteConfig struct {
	Common
	RPCURL        string
	Pool          string
	BaseToken     string
	MaturingToken string
	Block         uint64
	MaxRetries    int
	RetryBackoff  time.Duration

	BaseReserves     string
	MaturingReserves string
	Supply           string
	Maturity         string
	Now              string
	Direction        string
	Amount           string
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"direction":     "all",
		"max-retries":   3,
		"retry-backoff": 500 * time.Millisecond,
	})
	if err != nil {
		return QuoteConfig{}, err
	}
	common, err := loadCommon(v)
	if err != nil {
		return QuoteConfig{}, err
	}

	return QuoteConfig{
		Common:           common,
		RPCURL:           v.GetString("rpc"),
		Pool:             v.GetString("pool"),
		BaseToken:        v.GetString("base-token"),
		MaturingToken:    v.GetString("maturing-token"),
		Block:            v.GetUint64("block"),
		MaxRetries:       v.GetInt("max-retries"),
		RetryBackoff:     v.GetDuration("retry-backoff"),
		BaseReserves:     v.GetString("base-reserves"),
		MaturingReserves: v.GetString("maturing-reserves"),
		Supply:           v.GetString("supply"),
		Maturity:         v.GetString("maturity"),
		Now:              v.GetString("now"),
		Direction:        v.GetString("direction"),
		Amount:           v.GetString("amount"),
	}, nil
}
