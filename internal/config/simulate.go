package config

import (
	"github.com/spf13/pflag"
)

// SimulateConfig holds configuration for replaying an operations file.
type SimulateConfig struct {
	Common
	Input       string
	Events      string
	Errors      string
	Previews    string
	Snapshot    string
	PGDSN       string
	Pool        string
	Maturity    string
	Start       string
	RunID       string
	Accounts    map[string]string
	MetricsAddr string
}

// LoadSimulate merges config file, environment variables, and flags into SimulateConfig.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"in":       "./data/operations.jsonl",
		"events":   "./data/events.jsonl",
		"errors":   "./data/rejections.jsonl",
		"previews": "./data/previews.jsonl",
		"snapshot": "./data/snapshot.json",
		"pool":     "0x00000000000000000000000000000000000000ff",
	})
	if err != nil {
		return SimulateConfig{}, err
	}
	common, err := loadCommon(v)
	if err != nil {
		return SimulateConfig{}, err
	}

	return SimulateConfig{
		Common:      common,
		Input:       v.GetString("in"),
		Events:      v.GetString("events"),
		Errors:      v.GetString("errors"),
		Previews:    v.GetString("previews"),
		Snapshot:    v.GetString("snapshot"),
		PGDSN:       v.GetString("pg-dsn"),
		Pool:        v.GetString("pool"),
		Maturity:    v.GetString("maturity"),
		Start:       v.GetString("start"),
		RunID:       v.GetString("run-id"),
		Accounts:    getStringMap(v, "accounts"),
		MetricsAddr: v.GetString("metrics-addr"),
	}, nil
}
