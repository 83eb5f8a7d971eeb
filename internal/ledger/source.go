// Package ledger provides access to the block ledger over unreliable RPC.
package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/model"
)

// Source is the upstream ledger RPC surface.
type Source interface {
	BlockByIndex(ctx context.Context, index uint64) (model.BlockRef, error)
	HeadIndex(ctx context.Context) (uint64, error)
	EventsInRange(ctx context.Context, kind model.EventKind, from, to uint64) ([]model.EventRecord, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (model.TxInfo, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (model.ReceiptInfo, error)
}
