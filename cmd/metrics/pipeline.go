package main

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/blocktime"
	"github.com/autonomoussoftware/metronome-data-analysis/internal/chain"
	"github.com/autonomoussoftware/metronome-data-analysis/internal/config"
	"github.com/autonomoussoftware/metronome-data-analysis/internal/ledger"
	"github.com/autonomoussoftware/metronome-data-analysis/internal/metronome"
)

// pipeline holds the ledger client stack shared by every command.
type pipeline struct {
	chain     *chain.Client
	contracts metronome.Contracts
	decimals  uint8
	ledger    *ledger.RetryingClient
	blocks    *blocktime.Cache
}

// newPipeline connects to the node and builds the retrying client and the
// memoized block resolver. Event decoding is only set up when withEvents.
func newPipeline(ctx context.Context, cfg config.Common, withEvents bool, logger *zap.Logger) (*pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var contracts metronome.Contracts
	var decoder *metronome.Decoder
	if withEvents {
		var err error
		if contracts, err = metronome.ParseContracts(cfg.TokenAddress, cfg.ConverterAddress); err != nil {
			return nil, err
		}
		if decoder, err = metronome.NewDecoder(contracts); err != nil {
			return nil, err
		}
	}

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL, chain.WithRateLimit(cfg.RPS))
	if err != nil {
		return nil, fmt.Errorf("connect rpc: %w", err)
	}

	source := ledger.NewEthSource(chainClient, decoder)
	if err := source.VerifyNetwork(ctx, cfg.NetworkID); err != nil {
		chainClient.Close()
		return nil, err
	}

	policy := ledger.RetryPolicy{
		Retries:        cfg.Retries,
		BaseDelay:      cfg.RetryBackoff,
		MaxDelay:       cfg.RetryMaxBackoff,
		AttemptTimeout: cfg.Timeout,
	}

	decimals := cfg.TokenDecimals
	if withEvents {
		caller := ledger.NewRetryingCaller(chainClient, policy, logger)
		if decimals, err = tokenDecimals(ctx, caller, contracts.Token, cfg, logger); err != nil {
			chainClient.Close()
			return nil, err
		}
	}

	client := ledger.NewRetryingClient(source, policy, logger)

	resolver := blocktime.NewResolver(client, blocktime.Config{
		BlockPeriod: cfg.BlockPeriod,
		MaxSteps:    cfg.MaxSearchSteps,
	}, logger)

	return &pipeline{
		chain:     chainClient,
		contracts: contracts,
		decimals:  decimals,
		ledger:    client,
		blocks:    blocktime.NewCache(resolver, logger),
	}, nil
}

func (p *pipeline) Close() {
	p.chain.Close()
}

// tokenDecimals returns the configured decimals, or the on-chain value when
// detection is enabled. A failed lookup is fatal only with detection.
func tokenDecimals(ctx context.Context, caller metronome.ContractCaller, token common.Address, cfg config.Common, logger *zap.Logger) (uint8, error) {
	meta, err := metronome.FetchTokenMeta(ctx, caller, token)
	if err != nil {
		if cfg.DetectDecimals {
			return 0, fmt.Errorf("detect token decimals: %w", err)
		}
		logger.Warn("token metadata fetch failed", zap.String("token", token.Hex()), zap.Error(err))
		return cfg.TokenDecimals, nil
	}
	logger.Info("token metadata",
		zap.String("token", token.Hex()),
		zap.String("symbol", meta.Symbol),
		zap.Uint8("decimals", meta.Decimals),
	)
	if cfg.DetectDecimals {
		return meta.Decimals, nil
	}
	if meta.Decimals != cfg.TokenDecimals {
		logger.Warn("configured decimals differ from token contract",
			zap.Uint8("configured", cfg.TokenDecimals),
			zap.Uint8("on_chain", meta.Decimals),
		)
	}
	return cfg.TokenDecimals, nil
}
