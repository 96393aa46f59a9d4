package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func TestLoadQuoteFlagsAndDefaults(t *testing.T) {
	fs := pflag.NewFlagSet("quote", pflag.ContinueOnError)
	fs.String("amount", "", "")
	fs.Int("decimals", 18, "")
	fs.String("log-level", "info", "")
	require.NoError(t, fs.Parse([]string{"--amount", "1.5", "--decimals", "6"}))

	t.Setenv("YIELDSPACE_LOG_LEVEL", "debug")

	cfg, err := LoadQuote("", fs)
	require.NoError(t, err)
	require.Equal(t, "1.5", cfg.Amount)
	require.Equal(t, int32(6), cfg.Decimals)
	require.Equal(t, "all", cfg.Direction)
	require.Equal(t, "debug", cfg.LogLevel)
	require.Equal(t, 3, cfg.MaxRetries)
	require.Equal(t, 500*time.Millisecond, cfg.RetryBackoff)
}

func TestLoadSimulateFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sim.yaml")
	content := []byte(`in: ops.jsonl
maturity: "2024-01-01T00:00:00Z"
accounts:
  alice: "0x0000000000000000000000000000000000000001"
  bob: "0x0000000000000000000000000000000000000002"
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	cfg, err := LoadSimulate(path, nil)
	require.NoError(t, err)
	require.Equal(t, "ops.jsonl", cfg.Input)
	require.Equal(t, "./data/events.jsonl", cfg.Events)
	require.Equal(t, "2024-01-01T00:00:00Z", cfg.Maturity)
	require.Equal(t, map[string]string{
		"alice": "0x0000000000000000000000000000000000000001",
		"bob":   "0x0000000000000000000000000000000000000002",
	}, cfg.Accounts)
}

func TestLoadSimulateAccountsFromEnv(t *testing.T) {
	t.Setenv("YIELDSPACE_ACCOUNTS", "alice=0x01, bob=0x02,broken")
	cfg, err := LoadSimulate("", nil)
	require.NoError(t, err)
	require.Equal(t, map[string]string{"alice": "0x01", "bob": "0x02"}, cfg.Accounts)
}

func TestLoadAggregatePools(t *testing.T) {
	t.Setenv("YIELDSPACE_POOL", "0xaa, ,0xbb")
	cfg, err := LoadAggregate("", nil)
	require.NoError(t, err)
	require.Equal(t, []string{"0xaa", "0xbb"}, cfg.Pools)
	require.Equal(t, "1h", cfg.Window)
	require.Equal(t, 1000, cfg.BatchSize)
}

func TestLoadRejectsDecimals(t *testing.T) {
	t.Setenv("YIELDSPACE_DECIMALS", "90")
	_, err := LoadQuote("", nil)
	require.Error(t, err)
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("1700000000")
	require.NoError(t, err)
	require.Equal(t, uint64(1700000000), ts)

	ts, err = ParseTimestamp("2024-01-01T00:00:00Z")
	require.NoError(t, err)
	require.Equal(t, uint64(1704067200), ts)

	ts, err = ParseTimestamp("  ")
	require.NoError(t, err)
	require.Zero(t, ts)

	_, err = ParseTimestamp("yesterday")
	require.Error(t, err)
}
