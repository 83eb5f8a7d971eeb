package report

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/blocktime"
	"github.com/autonomoussoftware/metronome-data-analysis/internal/model"
	"github.com/autonomoussoftware/metronome-data-analysis/internal/stats"
)

// TransferFetcher fetches one kind of event over a block range.
type TransferFetcher interface {
	Fetch(ctx context.Context, kind model.EventKind, r model.BlockRange) ([]model.EventRecord, error)
}

// RecordEnricher joins events with transaction and receipt data.
type RecordEnricher interface {
	Enrich(ctx context.Context, events []model.EventRecord) ([]model.EnrichedRecord, error)
	EnrichCollect(ctx context.Context, events []model.EventRecord) ([]model.EnrichedRecord, []model.ItemFailure, error)
}

// StatsQuery selects the block range of a stats run. Explicit blocks take
// precedence over times. Times select [resolve(FromTime), resolve(ToTime) - 1].
type StatsQuery struct {
	FromTime  time.Time
	ToTime    time.Time
	FromBlock uint64
	ToBlock   uint64
	UseBlocks bool

	CollectFailures bool
}

// StatsReport is the output of a stats run.
type StatsReport struct {
	Blocks   model.BlockRange    `json:"blocks"`
	Stats    model.StatsResult   `json:"stats"`
	Failures []model.ItemFailure `json:"failures,omitempty"`
}

// StatsRunner computes transfer stats over a range.
type StatsRunner struct {
	resolver   blocktime.TimeResolver
	fetcher    TransferFetcher
	enricher   RecordEnricher
	aggregator *stats.Aggregator
	logger     *zap.Logger
}

func NewStatsRunner(
	resolver blocktime.TimeResolver,
	fetcher TransferFetcher,
	enricher RecordEnricher,
	aggregator *stats.Aggregator,
	logger *zap.Logger,
) *StatsRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsRunner{
		resolver:   resolver,
		fetcher:    fetcher,
		enricher:   enricher,
		aggregator: aggregator,
		logger:     logger,
	}
}

// Run resolves the range, fetches transfers, enriches and aggregates them.
func (r *StatsRunner) Run(ctx context.Context, query StatsQuery) (StatsReport, error) {
	blocks, err := r.blockRange(ctx, query)
	if err != nil {
		return StatsReport{}, err
	}

	r.logger.Info("starting to calculate stats", zap.Uint64("from", blocks.From), zap.Uint64("to", blocks.To))

	transfers, err := r.fetcher.Fetch(ctx, model.KindTransfer, blocks)
	if err != nil {
		return StatsReport{}, err
	}
	r.logger.Info("transfer events found, requesting transactions and receipts", zap.Int("transfers", len(transfers)))

	report := StatsReport{Blocks: blocks}
	var records []model.EnrichedRecord
	if query.CollectFailures {
		records, report.Failures, err = r.enricher.EnrichCollect(ctx, transfers)
	} else {
		records, err = r.enricher.Enrich(ctx, transfers)
	}
	if err != nil {
		return StatsReport{}, err
	}

	r.logger.Info("calculating stats", zap.Int("transfers", len(records)), zap.Int("failures", len(report.Failures)))
	report.Stats = r.aggregator.Aggregate(records)
	return report, nil
}

func (r *StatsRunner) blockRange(ctx context.Context, query StatsQuery) (model.BlockRange, error) {
	if query.UseBlocks {
		if query.ToBlock < query.FromBlock {
			return model.BlockRange{}, fmt.Errorf("to block must be >= from block")
		}
		return model.BlockRange{From: query.FromBlock, To: query.ToBlock}, nil
	}

	if !query.ToTime.After(query.FromTime) {
		return model.BlockRange{}, fmt.Errorf("to time must be after from time")
	}
	from, err := r.resolver.Resolve(ctx, query.FromTime)
	if err != nil {
		return model.BlockRange{}, fmt.Errorf("resolve from time: %w", err)
	}
	next, err := r.resolver.Resolve(ctx, query.ToTime)
	if err != nil {
		return model.BlockRange{}, fmt.Errorf("resolve to time: %w", err)
	}
	if next <= from {
		return model.BlockRange{From: from + 1, To: from}, nil
	}
	return model.BlockRange{From: from, To: next - 1}, nil
}
