package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "metrics",
		Short:        "Metronome on-chain metrics",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	dailyCmd := &cobra.Command{
		Use:   "daily",
		Short: "Compute the daily metrics dataset",
		RunE:  runDaily,
	}
	addCommonFlags(dailyCmd.Flags())
	dailyCmd.Flags().String("from", "", "first day (YYYY-MM-DD, RFC3339 or unix seconds), default 2018-06-25")
	dailyCmd.Flags().String("to", "", "end day, exclusive (default today UTC)")
	dailyCmd.Flags().Int("day-concurrency", 4, "days computed concurrently")
	dailyCmd.Flags().String("out", "./data/met-daily.csv", "output file path")
	dailyCmd.Flags().String("format", "csv", "output format (csv, jsonl)")
	dailyCmd.Flags().String("pg-dsn", "", "Postgres DSN; rows are upserted instead of written to a file")
	dailyCmd.Flags().String("checkpoint", "", "checkpoint file path (default derived from --out and --network-id)")
	dailyCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	root.AddCommand(dailyCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Compute transfer stats over a time or block range",
		RunE:  runStats,
	}
	addCommonFlags(statsCmd.Flags())
	statsCmd.Flags().String("from-time", "", "range start (RFC3339, YYYY-MM-DD or unix seconds)")
	statsCmd.Flags().String("to-time", "", "range end, exclusive")
	statsCmd.Flags().Uint64("from-block", 0, "first block (inclusive)")
	statsCmd.Flags().Uint64("to-block", 0, "last block (inclusive)")
	statsCmd.Flags().Bool("collect-failures", false, "report failed items instead of aborting")
	statsCmd.Flags().String("out", "", "output JSON path (default stdout)")
	root.AddCommand(statsCmd)

	findCmd := &cobra.Command{
		Use:   "find-block",
		Short: "Find the first block at or after a time",
		RunE:  runFindBlock,
	}
	addCommonFlags(findCmd.Flags())
	findCmd.Flags().String("at", "", "target time (RFC3339, YYYY-MM-DD or unix seconds)")
	root.AddCommand(findCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addCommonFlags(flags *pflag.FlagSet) {
	flags.String("rpc", "", "Ethereum RPC URL")
	flags.Uint64("network-id", 1, "expected chain id, 0 skips the check")
	flags.Duration("timeout", 30*time.Second, "per-call RPC timeout")
	flags.Int("retries", 15, "retries per RPC call after the first attempt")
	flags.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	flags.Duration("retry-max-backoff", 10*time.Second, "maximum retry backoff")
	flags.Int("concurrency", 10, "concurrent transaction lookups")
	flags.Duration("block-period", 15*time.Second, "nominal block interval used by the block search")
	flags.Int("max-search-steps", 10000, "maximum blocks fetched by one block search")
	flags.Float64("rps", 0, "RPC requests per second, 0 means unlimited")
	flags.String("token-address", "", "MET token contract address")
	flags.String("converter-address", "", "autonomous converter contract address")
	flags.Int("token-decimals", 18, "token fixed-point decimals")
	flags.Bool("detect-decimals", false, "read token decimals from the token contract")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("metrics-addr", "", "serve Prometheus metrics on this address")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func startMetricsServer(ctx context.Context, addr string, logger *zap.Logger) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting metrics server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", zap.Error(err))
		}
	}()
}
