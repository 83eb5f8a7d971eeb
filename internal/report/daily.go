// Package report runs the daily dataset and range stats pipelines.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/blocktime"
	"github.com/autonomoussoftware/metronome-data-analysis/internal/model"
	"github.com/autonomoussoftware/metronome-data-analysis/internal/stats"
	"github.com/autonomoussoftware/metronome-data-analysis/internal/storage"
)

// DefaultDayConcurrency bounds how many days are computed at once.
const DefaultDayConcurrency = 4

// EventFetcher fetches several kinds of events over one block range.
type EventFetcher interface {
	FetchAll(ctx context.Context, r model.BlockRange, kinds ...model.EventKind) (map[model.EventKind][]model.EventRecord, error)
}

// DailyConfig holds runtime settings for the daily dataset.
type DailyConfig struct {
	From           time.Time
	To             time.Time
	DayConcurrency int
}

// DailyRunner computes one metrics row per UTC day and writes the rows in
// date order.
type DailyRunner struct {
	cfg        DailyConfig
	resolver   blocktime.TimeResolver
	fetcher    EventFetcher
	aggregator *stats.DailyAggregator
	sink       storage.Sink
	checkpoint Checkpoint
	logger     *zap.Logger
}

// NewDailyRunner builds a DailyRunner. resolver should be memoized since
// every inner day boundary is shared by two days.
func NewDailyRunner(
	cfg DailyConfig,
	resolver blocktime.TimeResolver,
	fetcher EventFetcher,
	aggregator *stats.DailyAggregator,
	sink storage.Sink,
	checkpoint Checkpoint,
	logger *zap.Logger,
) *DailyRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DayConcurrency <= 0 {
		cfg.DayConcurrency = DefaultDayConcurrency
	}
	return &DailyRunner{
		cfg:        cfg,
		resolver:   resolver,
		fetcher:    fetcher,
		aggregator: aggregator,
		sink:       sink,
		checkpoint: checkpoint,
		logger:     logger,
	}
}

type dayResult struct {
	row    model.DayStats
	future bool
}

// Run computes and writes every day in [From, To). It stops without error
// at the first day whose end is not yet on the ledger.
func (r *DailyRunner) Run(ctx context.Context) error {
	if r.resolver == nil || r.fetcher == nil || r.aggregator == nil {
		return fmt.Errorf("daily runner is missing dependencies")
	}
	if r.sink == nil {
		return fmt.Errorf("storage is nil")
	}

	from := StartOfDay(r.cfg.From)
	if r.checkpoint != nil {
		last, ok, err := r.checkpoint.Load(ctx)
		if err != nil {
			return err
		}
		if ok && !last.Before(from) {
			from = StartOfDay(last).Add(Day)
			r.logger.Info("resume from checkpoint", zap.Time("last_day", last), zap.Time("from", from))
			if !from.Before(StartOfDay(r.cfg.To)) {
				r.logger.Info("nothing to compute", zap.Time("from", from), zap.Time("to", r.cfg.To))
				return nil
			}
		}
	}

	days, err := SplitDays(from, r.cfg.To)
	if err != nil {
		return err
	}
	if len(days) == 0 {
		r.logger.Info("nothing to compute", zap.Time("from", from), zap.Time("to", r.cfg.To))
		return nil
	}

	for start := 0; start < len(days); start += r.cfg.DayConcurrency {
		end := start + r.cfg.DayConcurrency
		if end > len(days) {
			end = len(days)
		}

		results, err := r.computeBatch(ctx, days[start:end])
		if err != nil {
			return err
		}

		rows := make([]model.DayStats, 0, len(results))
		stopped := false
		for _, res := range results {
			if res.future {
				stopped = true
				break
			}
			rows = append(rows, res.row)
		}

		if len(rows) > 0 {
			if err := r.sink.PutDays(ctx, rows); err != nil {
				return fmt.Errorf("store days: %w", err)
			}
			last := rows[len(rows)-1].Date
			if r.checkpoint != nil {
				if err := r.checkpoint.Save(ctx, last); err != nil {
					return err
				}
			}
			r.logger.Info("days complete",
				zap.Int("days", len(rows)),
				zap.String("first", rows[0].Date.Format(time.DateOnly)),
				zap.String("last", last.Format(time.DateOnly)),
			)
		}

		if stopped {
			r.logger.Warn("stopping at incomplete day", zap.Int("written", start+len(rows)), zap.Int("requested", len(days)))
			return nil
		}
	}

	return nil
}

func (r *DailyRunner) computeBatch(ctx context.Context, days []time.Time) ([]dayResult, error) {
	results := make([]dayResult, len(days))

	g, gctx := errgroup.WithContext(ctx)
	for i, day := range days {
		i, day := i, day
		g.Go(func() error {
			row, err := r.computeDay(gctx, day)
			if errors.Is(err, blocktime.ErrResolutionFuture) {
				results[i].future = true
				return nil
			}
			if err != nil {
				return fmt.Errorf("day %s: %w", day.Format(time.DateOnly), err)
			}
			results[i].row = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *DailyRunner) computeDay(ctx context.Context, day time.Time) (model.DayStats, error) {
	blocks, err := r.blocksForDay(ctx, day)
	if err != nil {
		return model.DayStats{}, err
	}

	r.logger.Debug("getting events for day",
		zap.String("day", day.Format(time.DateOnly)),
		zap.Uint64("from", blocks.From),
		zap.Uint64("to", blocks.To),
	)

	events, err := r.fetcher.FetchAll(ctx, blocks,
		model.KindTransfer,
		model.KindConvertEthToMet,
		model.KindConvertMetToEth,
	)
	if err != nil {
		return model.DayStats{}, err
	}

	conversions := make([]model.EventRecord, 0, len(events[model.KindConvertEthToMet])+len(events[model.KindConvertMetToEth]))
	conversions = append(conversions, events[model.KindConvertEthToMet]...)
	conversions = append(conversions, events[model.KindConvertMetToEth]...)

	return r.aggregator.Aggregate(stats.DayEvents{
		Date:        day,
		Blocks:      blocks,
		Transfers:   events[model.KindTransfer],
		Conversions: conversions,
	}), nil
}

// blocksForDay returns [resolve(day), resolve(day+1) - 1].
func (r *DailyRunner) blocksForDay(ctx context.Context, day time.Time) (model.BlockRange, error) {
	var start, next uint64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		start, err = r.resolver.Resolve(gctx, day)
		return err
	})
	g.Go(func() error {
		var err error
		next, err = r.resolver.Resolve(gctx, day.Add(Day))
		return err
	})
	if err := g.Wait(); err != nil {
		return model.BlockRange{}, err
	}

	if next <= start {
		return model.BlockRange{From: start + 1, To: start}, nil
	}
	return model.BlockRange{From: start, To: next - 1}, nil
}
