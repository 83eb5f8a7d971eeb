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
)

type foundBlock struct {
	Target time.Time `json:"target"`
	Block  uint64    `json:"block"`
}

func runFindBlock(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFindBlock(cfgFile, cmd.Flags())
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

	p, err := newPipeline(ctx, cfg.Common, false, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	block, err := p.blocks.Resolve(ctx, cfg.At)
	if err != nil {
		return err
	}
	logger.Info("block found", zap.Time("target", cfg.At), zap.Uint64("block", block))

	return writeJSON("", foundBlock{Target: cfg.At, Block: block})
}
