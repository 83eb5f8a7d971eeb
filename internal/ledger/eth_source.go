package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/chain"
	"github.com/autonomoussoftware/metronome-data-analysis/internal/metronome"
	"github.com/autonomoussoftware/metronome-data-analysis/internal/model"
)

// EthSource implements Source on top of an Ethereum JSON-RPC node.
type EthSource struct {
	chain   *chain.Client
	decoder *metronome.Decoder
}

// NewEthSource builds a source reading blocks and Metronome events.
func NewEthSource(chainClient *chain.Client, decoder *metronome.Decoder) *EthSource {
	return &EthSource{chain: chainClient, decoder: decoder}
}

// VerifyNetwork fails when the node serves a chain other than networkID.
// A zero networkID skips the check.
func (s *EthSource) VerifyNetwork(ctx context.Context, networkID uint64) error {
	if networkID == 0 {
		return nil
	}
	chainID, err := s.chain.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() || chainID.Uint64() != networkID {
		return fmt.Errorf("rpc serves chain %s, expected %d", chainID, networkID)
	}
	return nil
}

func (s *EthSource) BlockByIndex(ctx context.Context, index uint64) (model.BlockRef, error) {
	ts, err := s.chain.BlockTimestamp(ctx, index)
	if err != nil {
		return model.BlockRef{}, err
	}
	return model.BlockRef{Index: index, Timestamp: ts}, nil
}

func (s *EthSource) HeadIndex(ctx context.Context) (uint64, error) {
	return s.chain.LatestBlockNumber(ctx)
}

func (s *EthSource) EventsInRange(ctx context.Context, kind model.EventKind, from, to uint64) ([]model.EventRecord, error) {
	if s.decoder == nil {
		return nil, fmt.Errorf("no contracts configured for %s events", kind)
	}
	address, topic0, err := s.decoder.Filter(kind)
	if err != nil {
		return nil, err
	}

	logs, err := s.chain.FilterLogs(ctx, from, to, []common.Address{address}, []common.Hash{topic0})
	if err != nil {
		return nil, err
	}

	records := make([]model.EventRecord, 0, len(logs))
	for _, log := range logs {
		if log.Removed {
			continue
		}
		record, err := s.decoder.Decode(kind, log)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func (s *EthSource) TransactionByHash(ctx context.Context, hash common.Hash) (model.TxInfo, error) {
	tx, err := s.chain.TransactionByHash(ctx, hash)
	if err != nil {
		return model.TxInfo{}, err
	}
	return model.TxInfo{Hash: hash, GasPrice: new(big.Int).Set(tx.GasPrice())}, nil
}

func (s *EthSource) TransactionReceipt(ctx context.Context, hash common.Hash) (model.ReceiptInfo, error) {
	receipt, err := s.chain.TransactionReceipt(ctx, hash)
	if err != nil {
		return model.ReceiptInfo{}, err
	}
	return model.ReceiptInfo{Hash: hash, GasUsed: uint64(receipt.GasUsed), From: receipt.From}, nil
}
