package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	root := &cobra.Command{
		Use:          "yieldspace",
		Short:        "Fixed maturity AMM pricing, simulation and analytics",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().String("log-file", "", "optional rotating log file")
	root.PersistentFlags().Int32("decimals", 18, "asset decimals for human amounts")

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Preview trades against flag reserves or a deployed pool",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("rpc", "", "RPC URL; reserves are read on chain when set")
	quoteCmd.Flags().String("pool", "", "pool address")
	quoteCmd.Flags().String("base-token", "", "base asset token address (rpc mode)")
	quoteCmd.Flags().String("maturing-token", "", "maturing asset token address (rpc mode)")
	quoteCmd.Flags().Uint64("block", 0, "block to read (rpc mode), 0 means latest")
	quoteCmd.Flags().Int("max-retries", 3, "maximum retry attempts for rpc calls")
	quoteCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	quoteCmd.Flags().String("base-reserves", "", "base reserves (offline mode)")
	quoteCmd.Flags().String("maturing-reserves", "", "maturing asset held by the pool, excluding supply (offline mode)")
	quoteCmd.Flags().String("supply", "", "liquidity token supply (offline mode)")
	quoteCmd.Flags().String("maturity", "", "maturity (unix seconds or RFC3339), read from the pool in rpc mode when empty")
	quoteCmd.Flags().String("now", "", "current time (unix seconds or RFC3339), defaults to wall clock offline")
	quoteCmd.Flags().String("direction", "all", "sell_base, buy_base, sell_maturing, buy_maturing or all")
	quoteCmd.Flags().String("amount", "", "trade amount")

	root.AddCommand(quoteCmd)

	curveCmd := &cobra.Command{
		Use:   "curve",
		Short: "Print curve parameters for the given reserves and time",
		RunE:  runCurve,
	}

	curveCmd.Flags().String("base-reserves", "", "base reserves")
	curveCmd.Flags().String("maturing-reserves", "", "virtual maturing reserves")
	curveCmd.Flags().String("maturity", "", "maturity (unix seconds or RFC3339)")
	curveCmd.Flags().String("now", "", "current time (unix seconds or RFC3339), defaults to wall clock")

	root.AddCommand(curveCmd)

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay an operations file against an in-memory pool",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("in", "./data/operations.jsonl", "input operations JSONL")
	simulateCmd.Flags().String("events", "./data/events.jsonl", "output events JSONL")
	simulateCmd.Flags().String("errors", "./data/rejections.jsonl", "rejected operations JSONL")
	simulateCmd.Flags().String("previews", "./data/previews.jsonl", "preview results JSONL")
	simulateCmd.Flags().String("snapshot", "./data/snapshot.json", "final pool snapshot path")
	simulateCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for events and snapshots")
	simulateCmd.Flags().String("pool", "0x00000000000000000000000000000000000000ff", "simulated pool address")
	simulateCmd.Flags().String("maturity", "", "maturity (unix seconds or RFC3339)")
	simulateCmd.Flags().String("start", "", "start time (unix seconds or RFC3339), defaults to wall clock")
	simulateCmd.Flags().String("run-id", "", "run identifier, random when empty")
	simulateCmd.Flags().StringToString("accounts", nil, "account aliases (name=address, comma-separated)")
	simulateCmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address")

	root.AddCommand(simulateCmd)

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate pool events into window metrics",
		RunE:  runAggregate,
	}

	aggregateCmd.Flags().String("in", "./data/events.jsonl", "input events JSONL")
	aggregateCmd.Flags().String("out", "", "output metrics JSONL when no pg dsn is given")
	aggregateCmd.Flags().String("window", "1h", "aggregation window (e.g. 1m, 5m, 1h)")
	aggregateCmd.Flags().StringSlice("pool", nil, "only aggregate these pool addresses (comma-separated)")
	aggregateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	aggregateCmd.Flags().Int("batch-size", 1000, "batch size for metric writes")
	aggregateCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	aggregateCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")

	root.AddCommand(aggregateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level, file string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if file == "" {
		return logger, nil
	}

	rotating := zapcore.AddSync(&lumberjack.Logger{
		Filename:   file,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     28,
	})
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(cfg.EncoderConfig), rotating, cfg.Level)
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
