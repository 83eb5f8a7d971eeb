package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/config"
	"github.com/autonomoussoftware/metronome-data-analysis/internal/events"
	"github.com/autonomoussoftware/metronome-data-analysis/internal/report"
	"github.com/autonomoussoftware/metronome-data-analysis/internal/stats"
	"github.com/autonomoussoftware/metronome-data-analysis/internal/storage"
	"github.com/autonomoussoftware/metronome-data-analysis/internal/storage/postgres"
)

func runDaily(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadDaily(cfgFile, cmd.Flags(), time.Now())
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

	var sink storage.Sink
	var checkpoint report.Checkpoint
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN, cfg.NetworkID)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sink = store
		if cfg.CheckpointEnabled {
			checkpoint = &report.DBCheckpoint{Store: store, Name: report.StateName("met-daily", cfg.NetworkID)}
		}
	} else {
		if cfg.Format == "jsonl" {
			sink = storage.NewJsonlStorage(cfg.Out)
		} else {
			sink = storage.NewCsvStorage(cfg.Out)
		}
		checkpoint = report.NewFileCheckpoint(cfg.Checkpoint, cfg.CheckpointEnabled)
	}

	runner := report.NewDailyRunner(
		report.DailyConfig{
			From:           cfg.From,
			To:             cfg.To,
			DayConcurrency: cfg.DayConcurrency,
		},
		p.blocks,
		events.NewFetcher(p.ledger, logger),
		stats.NewDailyAggregator(p.contracts.Converter, p.decimals),
		sink,
		checkpoint,
		logger,
	)

	logger.Info("daily metrics start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("from", cfg.From.Format(time.DateOnly)),
		zap.String("to", cfg.To.Format(time.DateOnly)),
		zap.Int("day_concurrency", cfg.DayConcurrency),
		zap.String("format", cfg.Format),
		zap.String("out", cfg.Out),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	if err := runner.Run(ctx); err != nil {
		return err
	}
	logger.Info("daily metrics done", zap.Int("resolved_boundaries", p.blocks.Len()))
	return nil
}
