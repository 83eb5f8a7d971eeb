// Package events fetches contract events over resolved block ranges.
package events

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/model"
)

// Source returns events of a kind within an inclusive block range.
type Source interface {
	EventsInRange(ctx context.Context, kind model.EventKind, from, to uint64) ([]model.EventRecord, error)
}

// Fetcher issues one request per kind per range. Ranges are never split,
// so a provider limit surfaces to the caller as an error.
type Fetcher struct {
	source Source
	logger *zap.Logger
}

// NewFetcher builds a Fetcher.
func NewFetcher(source Source, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{source: source, logger: logger}
}

// Fetch returns events of kind in blocks [r.From, r.To] in chain order.
func (f *Fetcher) Fetch(ctx context.Context, kind model.EventKind, r model.BlockRange) ([]model.EventRecord, error) {
	if r.Empty() {
		return nil, nil
	}

	f.logger.Debug("getting events", zap.String("kind", string(kind)), zap.Uint64("from", r.From), zap.Uint64("to", r.To))
	records, err := f.source.EventsInRange(ctx, kind, r.From, r.To)
	if err != nil {
		return nil, fmt.Errorf("fetch %s events %d-%d: %w", kind, r.From, r.To, err)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].BlockNumber != records[j].BlockNumber {
			return records[i].BlockNumber < records[j].BlockNumber
		}
		return records[i].LogIndex < records[j].LogIndex
	})
	return records, nil
}

// FetchAll fetches each kind over the same range, keyed by kind.
func (f *Fetcher) FetchAll(ctx context.Context, r model.BlockRange, kinds ...model.EventKind) (map[model.EventKind][]model.EventRecord, error) {
	out := make(map[model.EventKind][]model.EventRecord, len(kinds))
	for _, kind := range kinds {
		records, err := f.Fetch(ctx, kind, r)
		if err != nil {
			return nil, err
		}
		out[kind] = records
	}
	return out, nil
}
