package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/chain"
	"github.com/autonomoussoftware/metronome-data-analysis/internal/model"
)

// RetryingClient wraps a Source and retries every call independently
// under the same policy. Budgets are not shared across calls.
type RetryingClient struct {
	source Source
	policy RetryPolicy
	logger *zap.Logger
}

// NewRetryingClient builds a RetryingClient around source.
func NewRetryingClient(source Source, policy RetryPolicy, logger *zap.Logger) *RetryingClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingClient{source: source, policy: policy, logger: logger}
}

// BlockByIndex fetches block metadata by index.
func (c *RetryingClient) BlockByIndex(ctx context.Context, index uint64) (model.BlockRef, error) {
	var block model.BlockRef
	err := withRetry(ctx, c.policy, "get_block", c.logger.With(zap.Uint64("block", index)), func(ctx context.Context) error {
		var err error
		block, err = c.source.BlockByIndex(ctx, index)
		return err
	})
	return block, err
}

// HeadIndex fetches the current head block index.
func (c *RetryingClient) HeadIndex(ctx context.Context) (uint64, error) {
	var head uint64
	err := withRetry(ctx, c.policy, "get_head", c.logger, func(ctx context.Context) error {
		var err error
		head, err = c.source.HeadIndex(ctx)
		return err
	})
	return head, err
}

// EventsInRange fetches all events of kind within [from, to]. A provider
// rejection of the range fails immediately with RangeTooLargeError.
func (c *RetryingClient) EventsInRange(ctx context.Context, kind model.EventKind, from, to uint64) ([]model.EventRecord, error) {
	var events []model.EventRecord
	logger := c.logger.With(zap.String("kind", string(kind)), zap.Uint64("from", from), zap.Uint64("to", to))
	err := withRetry(ctx, c.policy, "get_events", logger, func(ctx context.Context) error {
		var err error
		events, err = c.source.EventsInRange(ctx, kind, from, to)
		if chain.IsRangeTooLarge(err) {
			return &RangeTooLargeError{Kind: kind, From: from, To: to, Err: err}
		}
		return err
	})
	return events, err
}

// TransactionByHash fetches the gas price of a transaction.
func (c *RetryingClient) TransactionByHash(ctx context.Context, hash common.Hash) (model.TxInfo, error) {
	var tx model.TxInfo
	err := withRetry(ctx, c.policy, "get_transaction", c.logger.With(zap.String("tx", hash.Hex())), func(ctx context.Context) error {
		var err error
		tx, err = c.source.TransactionByHash(ctx, hash)
		return err
	})
	return tx, err
}

// TransactionReceipt fetches gas used and sender of a transaction.
func (c *RetryingClient) TransactionReceipt(ctx context.Context, hash common.Hash) (model.ReceiptInfo, error) {
	var receipt model.ReceiptInfo
	err := withRetry(ctx, c.policy, "get_receipt", c.logger.With(zap.String("tx", hash.Hex())), func(ctx context.Context) error {
		var err error
		receipt, err = c.source.TransactionReceipt(ctx, hash)
		return err
	})
	return receipt, err
}
