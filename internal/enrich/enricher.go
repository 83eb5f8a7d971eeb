// Package enrich joins events with their transaction and receipt data.
package enrich

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/model"
)

const DefaultConcurrency = 10

// Source looks up transactions and receipts. Implementations are expected
// to retry and time-box each call.
type Source interface {
	TransactionByHash(ctx context.Context, hash common.Hash) (model.TxInfo, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (model.ReceiptInfo, error)
}

// Enricher enriches events on a bounded worker pool.
type Enricher struct {
	source      Source
	concurrency int
	logger      *zap.Logger
}

// NewEnricher builds an Enricher running at most concurrency items at once.
func NewEnricher(source Source, concurrency int, logger *zap.Logger) *Enricher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Enricher{source: source, concurrency: concurrency, logger: logger}
}

// Enrich returns one record per event, in input order. The first item that
// fails after its retries fails the whole call and cancels the rest.
func (e *Enricher) Enrich(ctx context.Context, events []model.EventRecord) ([]model.EnrichedRecord, error) {
	out := make([]model.EnrichedRecord, len(events))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i := range events {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			record, err := e.enrichOne(gctx, events[i], i, len(events))
			if err != nil {
				return fmt.Errorf("enrich event %d (tx %s): %w", i, events[i].TxHash.Hex(), err)
			}
			out[i] = record
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// EnrichCollect enriches every event it can. Successful records keep their
// relative input order; failures are reported per item instead of aborting.
func (e *Enricher) EnrichCollect(ctx context.Context, events []model.EventRecord) ([]model.EnrichedRecord, []model.ItemFailure, error) {
	results := make([]model.EnrichedRecord, len(events))
	ok := make([]bool, len(events))

	var mu sync.Mutex
	var failures []model.ItemFailure

	g := new(errgroup.Group)
	g.SetLimit(e.concurrency)

	for i := range events {
		if ctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			record, err := e.enrichOne(ctx, events[i], i, len(events))
			if err != nil {
				e.logger.Warn("enrich failed", zap.Int("index", i), zap.String("tx", events[i].TxHash.Hex()), zap.Error(err))
				mu.Lock()
				failures = append(failures, model.ItemFailure{Index: i, TxHash: events[i].TxHash.Hex(), Error: err.Error()})
				mu.Unlock()
				return nil
			}
			results[i] = record
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	records := make([]model.EnrichedRecord, 0, len(events))
	for i := range results {
		if ok[i] {
			records = append(records, results[i])
		}
	}
	sort.Slice(failures, func(i, j int) bool { return failures[i].Index < failures[j].Index })
	return records, failures, nil
}

func (e *Enricher) enrichOne(ctx context.Context, event model.EventRecord, index, total int) (model.EnrichedRecord, error) {
	e.logger.Debug("getting transaction and receipt",
		zap.String("tx", event.TxHash.Hex()),
		zap.String("progress", fmt.Sprintf("%d/%d", index+1, total)),
	)

	var tx model.TxInfo
	var receipt model.ReceiptInfo

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tx, err = e.source.TransactionByHash(gctx, event.TxHash)
		if err != nil {
			return fmt.Errorf("transaction: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		receipt, err = e.source.TransactionReceipt(gctx, event.TxHash)
		if err != nil {
			return fmt.Errorf("receipt: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return model.EnrichedRecord{}, err
	}

	return model.EnrichedRecord{
		Event:    event,
		GasPrice: tx.GasPrice,
		GasUsed:  receipt.GasUsed,
		Sender:   receipt.From,
	}, nil
}
