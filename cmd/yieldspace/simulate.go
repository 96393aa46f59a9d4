package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yieldSpace/internal/config"
	"yieldSpace/internal/simulate"
	"yieldSpace/internal/storage"
	"yieldSpace/internal/storage/postgres"
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.Events == "" {
		return fmt.Errorf("events path is required")
	}
	if cfg.Maturity == "" {
		return fmt.Errorf("maturity is required")
	}

	maturity, err := config.ParseTimestamp(cfg.Maturity)
	if err != nil {
		return fmt.Errorf("parse maturity: %w", err)
	}
	start, err := config.ParseTimestamp(cfg.Start)
	if err != nil {
		return fmt.Errorf("parse start: %w", err)
	}
	poolAddr, err := simulate.ParseAddress(cfg.Pool)
	if err != nil {
		return err
	}
	accounts, err := simulate.ParseAccounts(cfg.Accounts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	events := storage.NewJsonlStorage(cfg.Events)
	sinks := simulate.Sinks{Events: events}
	if cfg.Errors != "" {
		sinks.Rejections = storage.NewJsonlStorage(cfg.Errors)
	}
	if cfg.Previews != "" {
		sinks.Previews = storage.NewJsonlStorage(cfg.Previews)
	}

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks.Events = storage.Fanout{events, store}
		sinks.Snapshots = store
	}

	registry := prometheus.NewRegistry()
	metrics, err := simulate.NewMetrics(registry)
	if err != nil {
		return err
	}
	if cfg.MetricsAddr != "" {
		if err := serveMetrics(ctx, cfg.MetricsAddr, registry, logger); err != nil {
			return fmt.Errorf("serve metrics: %w", err)
		}
	}

	runner, err := simulate.NewRunner(simulate.RunConfig{
		RunID:        cfg.RunID,
		Pool:         poolAddr,
		Maturity:     maturity,
		Start:        start,
		Decimals:     cfg.Decimals,
		Accounts:     accounts,
		SnapshotPath: cfg.Snapshot,
	}, sinks, metrics, logger)
	if err != nil {
		return err
	}

	logger.Info("simulate start",
		zap.String("in", cfg.Input),
		zap.String("events", cfg.Events),
		zap.String("errors", cfg.Errors),
		zap.String("previews", cfg.Previews),
		zap.String("snapshot", cfg.Snapshot),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("pool", poolAddr.Hex()),
		zap.Uint64("maturity", maturity),
		zap.Int("accounts", len(accounts)),
	)

	summary, err := runner.RunFile(ctx, cfg.Input)
	if err != nil {
		return err
	}

	logger.Info("simulate complete",
		zap.String("run_id", summary.RunID),
		zap.Uint64("processed", summary.Processed),
		zap.Uint64("applied", summary.Applied),
		zap.Uint64("previewed", summary.Previewed),
		zap.Uint64("rejected", summary.Rejected),
		zap.Uint64("events", summary.Events),
		zap.String("state", summary.Snapshot.State),
	)
	return nil
}

// serveMetrics exposes the registry on /metrics until ctx is done.
func serveMetrics(ctx context.Context, addr string, registry *prometheus.Registry, logger *zap.Logger) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", zap.String("addr", ln.Addr().String()))
	return nil
}
