// Package blocktime resolves wall-clock times to block indexes.
package blocktime

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/metrics"
	"github.com/autonomoussoftware/metronome-data-analysis/internal/model"
)

const (
	// coarseTolerance is the estimated block distance at which the coarse
	// phase stops.
	coarseTolerance = 3
	// refineMargin is how far past the coarse estimate refinement starts.
	refineMargin = 3

	DefaultBlockPeriod = 15 * time.Second
	DefaultMaxSteps    = 10000
)

// BlockSource provides block metadata.
type BlockSource interface {
	BlockByIndex(ctx context.Context, index uint64) (model.BlockRef, error)
	HeadIndex(ctx context.Context) (uint64, error)
}

// Config controls the search.
type Config struct {
	// BlockPeriod is the nominal average interval between blocks.
	BlockPeriod time.Duration
	// MaxSteps bounds the number of blocks fetched by one resolution.
	MaxSteps int
}

// Phase is the current stage of a search.
type Phase string

const (
	PhaseCoarse Phase = "coarse"
	PhaseRefine Phase = "refine"
)

// SearchState is the mutable state of a single resolution.
type SearchState struct {
	Hint  uint64
	Phase Phase
	Steps int
}

// Resolver finds the first block at or after a point in time.
type Resolver struct {
	source   BlockSource
	periodMs int64
	maxSteps int
	logger   *zap.Logger
}

// NewResolver builds a Resolver. Zero config values fall back to defaults.
func NewResolver(source BlockSource, cfg Config, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BlockPeriod <= 0 {
		cfg.BlockPeriod = DefaultBlockPeriod
	}
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = DefaultMaxSteps
	}
	periodMs := cfg.BlockPeriod.Milliseconds()
	if periodMs <= 0 {
		periodMs = 1
	}
	return &Resolver{
		source:   source,
		periodMs: periodMs,
		maxSteps: cfg.MaxSteps,
		logger:   logger,
	}
}

// Resolve returns the smallest block index whose timestamp is at or after
// target. The block before it, if any, is strictly before target.
func (r *Resolver) Resolve(ctx context.Context, target time.Time) (uint64, error) {
	targetMs := target.UnixMilli()

	head, err := r.source.HeadIndex(ctx)
	if err != nil {
		return 0, fmt.Errorf("get head index: %w", err)
	}
	r.logger.Debug("starting search", zap.Uint64("head", head), zap.Time("target", target))

	state := &SearchState{Hint: head, Phase: PhaseCoarse}
	headBlock, err := r.fetch(ctx, state)
	if err != nil {
		return 0, err
	}
	if toMs(headBlock) < targetMs {
		return 0, fmt.Errorf("%w: target %s, head block %d at %s",
			ErrResolutionFuture, target.UTC().Format(time.RFC3339), head, headBlock.Time().Format(time.RFC3339))
	}

	coarse, err := r.coarse(ctx, state, headBlock, head, targetMs)
	if err != nil {
		return 0, err
	}
	coarseSteps := state.Steps
	metrics.ObserveSearch(string(PhaseCoarse), coarseSteps)

	r.logger.Debug("refining search", zap.Uint64("block", coarse))
	index, err := r.refine(ctx, state, coarse, head, targetMs)
	metrics.ObserveSearch(string(PhaseRefine), state.Steps-coarseSteps)
	if err != nil {
		return 0, err
	}

	r.logger.Debug("search complete",
		zap.Uint64("block", index),
		zap.Int("steps", state.Steps),
		zap.Time("target", target),
	)
	return index, nil
}

// coarse moves the hint by the block distance estimated from the timestamp
// gap until the estimate is within coarseTolerance blocks. Every fetched
// block narrows a bracket around the boundary; an estimate that falls
// outside the bracket ends the phase at the current hint.
func (r *Resolver) coarse(ctx context.Context, state *SearchState, block model.BlockRef, head uint64, targetMs int64) (uint64, error) {
	// lo is the highest index seen before the target, hi the lowest at or
	// after it. The head block is at or after the target.
	var lo uint64
	hasLo := false
	hi := head
	for {
		if toMs(block) < targetMs {
			if !hasLo || state.Hint > lo {
				lo, hasLo = state.Hint, true
			}
		} else if state.Hint < hi {
			hi = state.Hint
		}

		diff := ceilDiv(toMs(block)-targetMs, r.periodMs)
		r.logger.Debug("checking block",
			zap.String("phase", string(state.Phase)),
			zap.Uint64("block", block.Index),
			zap.Int64("diff", diff),
		)
		if abs(diff) <= coarseTolerance {
			return state.Hint, nil
		}

		next := clamp(int64(state.Hint)-diff, head)
		if next == state.Hint || next >= hi || (hasLo && next <= lo) {
			r.logger.Debug("estimate left bracket",
				zap.Uint64("block", state.Hint),
				zap.Uint64("next", next),
				zap.Uint64("lo", lo),
				zap.Uint64("hi", hi),
			)
			return state.Hint, nil
		}
		state.Hint = next

		var err error
		block, err = r.fetch(ctx, state)
		if err != nil {
			return 0, err
		}
	}
}

// refine scans one block at a time from just past the coarse estimate to
// the exact boundary.
func (r *Resolver) refine(ctx context.Context, state *SearchState, coarse, head uint64, targetMs int64) (uint64, error) {
	state.Phase = PhaseRefine
	state.Hint = coarse + refineMargin
	if state.Hint > head || state.Hint < coarse {
		state.Hint = head
	}

	block, err := r.fetch(ctx, state)
	if err != nil {
		return 0, err
	}

	// The estimate undershot: walk forward to the first block at or after
	// the target. The head is at or after the target, so this terminates.
	if toMs(block) < targetMs {
		for toMs(block) < targetMs {
			if state.Hint >= head {
				return 0, fmt.Errorf("%w: block %d", ErrResolutionFuture, state.Hint)
			}
			state.Hint++
			if block, err = r.fetch(ctx, state); err != nil {
				return 0, err
			}
		}
		return state.Hint, nil
	}

	for {
		if state.Hint == 0 {
			if toMs(block) == targetMs {
				return 0, nil
			}
			return 0, fmt.Errorf("%w: genesis block at %s", ErrResolutionUnderflow, block.Time().Format(time.RFC3339))
		}

		candidate := state.Hint
		state.Hint--
		if block, err = r.fetch(ctx, state); err != nil {
			return 0, err
		}
		r.logger.Debug("checking block",
			zap.String("phase", string(state.Phase)),
			zap.Uint64("block", block.Index),
			zap.Time("time", block.Time()),
		)
		if toMs(block) < targetMs {
			return candidate, nil
		}
	}
}

func (r *Resolver) fetch(ctx context.Context, state *SearchState) (model.BlockRef, error) {
	if state.Steps >= r.maxSteps {
		return model.BlockRef{}, fmt.Errorf("%w: %d blocks fetched in %s phase at block %d",
			ErrSearchExhausted, state.Steps, state.Phase, state.Hint)
	}
	state.Steps++

	block, err := r.source.BlockByIndex(ctx, state.Hint)
	if err != nil {
		return model.BlockRef{}, fmt.Errorf("fetch block %d: %w", state.Hint, err)
	}
	return block, nil
}

func toMs(block model.BlockRef) int64 {
	return int64(block.Timestamp) * int64(time.Second/time.Millisecond)
}

// ceilDiv rounds a/b toward positive infinity for b > 0.
func ceilDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && a > 0 {
		q++
	}
	return q
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func clamp(v int64, head uint64) uint64 {
	if v < 0 {
		return 0
	}
	if uint64(v) > head {
		return head
	}
	return uint64(v)
}
