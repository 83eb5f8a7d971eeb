// Package ledgertest provides a deterministic in-memory ledger for tests.
package ledgertest

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/model"
)

// Operation names used for call counting and failure injection.
const (
	OpBlock       = "BlockByIndex"
	OpHead        = "HeadIndex"
	OpEvents      = "EventsInRange"
	OpTransaction = "TransactionByHash"
	OpReceipt     = "TransactionReceipt"
)

// ErrInjected is returned by calls failed through FailNext.
var ErrInjected = errors.New("injected failure")

// Hook runs before every call; a non-nil error fails the call.
type Hook func(ctx context.Context, op string, key string) error

// Ledger is an in-memory ledger.Source with call counters.
type Ledger struct {
	mu         sync.Mutex
	timestamps []uint64
	events     map[model.EventKind][]model.EventRecord
	txs        map[common.Hash]model.TxInfo
	receipts   map[common.Hash]model.ReceiptInfo
	calls      map[string]int
	failures   map[string]int
	maxRange   uint64
	hook       Hook
}

// New builds a ledger whose block i has timestamps[i].
func New(timestamps []uint64) *Ledger {
	ts := make([]uint64, len(timestamps))
	copy(ts, timestamps)
	return &Ledger{
		timestamps: ts,
		events:     make(map[model.EventKind][]model.EventRecord),
		txs:        make(map[common.Hash]model.TxInfo),
		receipts:   make(map[common.Hash]model.ReceiptInfo),
		calls:      make(map[string]int),
		failures:   make(map[string]int),
	}
}

// NewUniform builds a ledger with head+1 blocks spaced period seconds apart.
func NewUniform(genesis, period, head uint64) *Ledger {
	ts := make([]uint64, head+1)
	for i := range ts {
		ts[i] = genesis + uint64(i)*period
	}
	return New(ts)
}

// Timestamp returns the timestamp of block index.
func (l *Ledger) Timestamp(index uint64) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.timestamps[index]
}

// Head returns the head index.
func (l *Ledger) Head() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.timestamps) - 1)
}

// AddEvent registers an event.
func (l *Ledger) AddEvent(event model.EventRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events[event.Kind] = append(l.events[event.Kind], event)
}

// AddTransaction registers transaction and receipt data for hash.
func (l *Ledger) AddTransaction(hash common.Hash, gasPrice int64, gasUsed uint64, from common.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.txs[hash] = model.TxInfo{Hash: hash, GasPrice: big.NewInt(gasPrice)}
	l.receipts[hash] = model.ReceiptInfo{Hash: hash, GasUsed: gasUsed, From: from}
}

// SetMaxRange makes event queries wider than n blocks fail the way
// public providers reject them.
func (l *Ledger) SetMaxRange(n uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.maxRange = n
}

// SetHook installs a hook run before every call.
func (l *Ledger) SetHook(hook Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hook = hook
}

// FailNext makes the next n calls of op fail with ErrInjected.
func (l *Ledger) FailNext(op string, n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[op] = n
}

// Calls returns how many times op was invoked.
func (l *Ledger) Calls(op string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[op]
}

// TotalCalls returns the number of calls across all operations.
func (l *Ledger) TotalCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for _, n := range l.calls {
		total += n
	}
	return total
}

func (l *Ledger) enter(ctx context.Context, op, key string) error {
	l.mu.Lock()
	l.calls[op]++
	hook := l.hook
	failing := l.failures[op] > 0
	if failing {
		l.failures[op]--
	}
	l.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, op, key); err != nil {
			return err
		}
	}
	if failing {
		return ErrInjected
	}
	return ctx.Err()
}

func (l *Ledger) BlockByIndex(ctx context.Context, index uint64) (model.BlockRef, error) {
	if err := l.enter(ctx, OpBlock, fmt.Sprint(index)); err != nil {
		return model.BlockRef{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if index >= uint64(len(l.timestamps)) {
		return model.BlockRef{}, fmt.Errorf("block %d not found", index)
	}
	return model.BlockRef{Index: index, Timestamp: l.timestamps[index]}, nil
}

func (l *Ledger) HeadIndex(ctx context.Context) (uint64, error) {
	if err := l.enter(ctx, OpHead, ""); err != nil {
		return 0, err
	}
	return l.Head(), nil
}

func (l *Ledger) EventsInRange(ctx context.Context, kind model.EventKind, from, to uint64) ([]model.EventRecord, error) {
	if err := l.enter(ctx, OpEvents, string(kind)); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.maxRange > 0 && to >= from && to-from+1 > l.maxRange {
		return nil, fmt.Errorf("query returned more than 10000 results")
	}
	var out []model.EventRecord
	for _, event := range l.events[kind] {
		if event.BlockNumber >= from && event.BlockNumber <= to {
			out = append(out, event)
		}
	}
	return out, nil
}

func (l *Ledger) TransactionByHash(ctx context.Context, hash common.Hash) (model.TxInfo, error) {
	if err := l.enter(ctx, OpTransaction, hash.Hex()); err != nil {
		return model.TxInfo{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	tx, ok := l.txs[hash]
	if !ok {
		return model.TxInfo{}, fmt.Errorf("transaction %s not found", hash.Hex())
	}
	return tx, nil
}

func (l *Ledger) TransactionReceipt(ctx context.Context, hash common.Hash) (model.ReceiptInfo, error) {
	if err := l.enter(ctx, OpReceipt, hash.Hex()); err != nil {
		return model.ReceiptInfo{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	receipt, ok := l.receipts[hash]
	if !ok {
		return model.ReceiptInfo{}, fmt.Errorf("receipt %s not found", hash.Hex())
	}
	return receipt, nil
}
