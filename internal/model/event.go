package model

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EventKind names a decoded contract event.
type EventKind string

const (
	KindTransfer        EventKind = "Transfer"
	KindConvertEthToMet EventKind = "ConvertEthToMet"
	KindConvertMetToEth EventKind = "ConvertMetToEth"
)

// EventRecord is a raw ledger event reduced to the fields used by metrics.
type EventRecord struct {
	Kind        EventKind      `json:"kind"`
	BlockNumber uint64         `json:"block_number"`
	LogIndex    uint64         `json:"log_index"`
	From        common.Address `json:"from"`
	To          common.Address `json:"to"`
	Amount      *big.Int       `json:"amount"`
	TxHash      common.Hash    `json:"tx_hash"`
}

// TxInfo is the subset of a transaction needed for fee computation.
type TxInfo struct {
	Hash     common.Hash `json:"hash"`
	GasPrice *big.Int    `json:"gas_price"`
}

// ReceiptInfo is the subset of a receipt needed for fee and sender stats.
type ReceiptInfo struct {
	Hash    common.Hash    `json:"hash"`
	GasUsed uint64         `json:"gas_used"`
	From    common.Address `json:"from"`
}

// EnrichedRecord joins an event with its transaction and receipt data.
type EnrichedRecord struct {
	Event    EventRecord    `json:"event"`
	GasPrice *big.Int       `json:"gas_price"`
	GasUsed  uint64         `json:"gas_used"`
	Sender   common.Address `json:"sender"`
}

// Fee returns gasUsed * gasPrice in wei.
func (r EnrichedRecord) Fee() *big.Int {
	if r.GasPrice == nil {
		return new(big.Int)
	}
	return new(big.Int).Mul(r.GasPrice, new(big.Int).SetUint64(r.GasUsed))
}
