package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/config"
	"github.com/autonomoussoftware/metronome-data-analysis/internal/enrich"
	"github.com/autonomoussoftware/metronome-data-analysis/internal/events"
	"github.com/autonomoussoftware/metronome-data-analysis/internal/report"
	"github.com/autonomoussoftware/metronome-data-analysis/internal/stats"
)

func runStats(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadStats(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetricsServer(ctx, cfg.MetricsAddr, logger)

	p, err := newPipeline(ctx, cfg.Common, true, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	runner := report.NewStatsRunner(
		p.blocks,
		events.NewFetcher(p.ledger, logger),
		enrich.NewEnricher(p.ledger, cfg.Concurrency, logger),
		stats.NewAggregator(p.decimals),
		logger,
	)

	logger.Info("stats start",
		zap.String("rpc", cfg.RPCURL),
		zap.Bool("use_blocks", cfg.UseBlocks),
		zap.Int("concurrency", cfg.Concurrency),
		zap.Bool("collect_failures", cfg.CollectFailures),
	)

	result, err := runner.Run(ctx, report.StatsQuery{
		FromTime:        cfg.FromTime,
		ToTime:          cfg.ToTime,
		FromBlock:       cfg.FromBlock,
		ToBlock:         cfg.ToBlock,
		UseBlocks:       cfg.UseBlocks,
		CollectFailures: cfg.CollectFailures,
	})
	if err != nil {
		return err
	}

	return writeJSON(cfg.Out, result)
}

func writeJSON(path string, value any) error {
	var out io.Writer = os.Stdout
	if path != "" {
		file, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(value); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
