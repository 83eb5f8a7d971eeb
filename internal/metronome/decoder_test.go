package metronome

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/model"
)

var (
	tokenAddr     = common.HexToAddress("0x1111111111111111111111111111111111111111")
	converterAddr = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func newTestDecoder(t *testing.T) *Decoder {
	t.Helper()
	decoder, err := NewDecoder(Contracts{Token: tokenAddr, Converter: converterAddr})
	if err != nil {
		t.Fatalf("decoder: %v", err)
	}
	return decoder
}

func TestDecodeTransfer(t *testing.T) {
	decoder := newTestDecoder(t)
	tokenABI, err := TokenABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	from := common.HexToAddress("0x3333333333333333333333333333333333333333")
	to := common.HexToAddress("0x4444444444444444444444444444444444444444")
	value, _ := new(big.Int).SetString("2500000000000000000", 10)

	data, err := tokenABI.Events["Transfer"].Inputs.NonIndexed().Pack(value)
	if err != nil {
		t.Fatalf("pack transfer: %v", err)
	}

	log := types.Log{
		Address:     tokenAddr,
		Topics:      []common.Hash{tokenABI.Events["Transfer"].ID, topicFromAddress(from), topicFromAddress(to)},
		Data:        data,
		BlockNumber: 6000000,
		TxHash:      common.HexToHash("0xabc"),
		Index:       3,
	}

	record, err := decoder.Decode(model.KindTransfer, log)
	if err != nil {
		t.Fatalf("decode transfer: %v", err)
	}
	if record.From != from || record.To != to {
		t.Fatalf("address mismatch: %+v", record)
	}
	if record.Amount.Cmp(value) != 0 {
		t.Fatalf("amount mismatch: %s", record.Amount)
	}
	if record.BlockNumber != 6000000 || record.LogIndex != 3 || record.TxHash != log.TxHash {
		t.Fatalf("position mismatch: %+v", record)
	}
}

func TestDecodeConvert(t *testing.T) {
	decoder := newTestDecoder(t)
	converterABI, err := ConverterABI()
	if err != nil {
		t.Fatalf("abi parse: %v", err)
	}

	buyer := common.HexToAddress("0x5555555555555555555555555555555555555555")
	event := converterABI.Events["ConvertEthToMet"]
	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(10), big.NewInt(42))
	if err != nil {
		t.Fatalf("pack convert: %v", err)
	}

	record, err := decoder.Decode(model.KindConvertEthToMet, types.Log{
		Address: converterAddr,
		Topics:  []common.Hash{event.ID, topicFromAddress(buyer)},
		Data:    data,
	})
	if err != nil {
		t.Fatalf("decode convert: %v", err)
	}
	if record.Amount.Int64() != 42 {
		t.Fatalf("met amount mismatch: %s", record.Amount)
	}
	if record.From != buyer || record.To != converterAddr {
		t.Fatalf("address mismatch: %+v", record)
	}
}

func TestDecodeRejectsMismatchedTopic(t *testing.T) {
	decoder := newTestDecoder(t)
	converterABI, _ := ConverterABI()

	_, err := decoder.Decode(model.KindTransfer, types.Log{
		Topics: []common.Hash{converterABI.Events["ConvertMetToEth"].ID, {}},
	})
	if err == nil {
		t.Fatalf("expected error for mismatched topic0")
	}
}

func TestFilter(t *testing.T) {
	decoder := newTestDecoder(t)
	converterABI, _ := ConverterABI()

	addr, topic0, err := decoder.Filter(model.KindConvertMetToEth)
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if addr != converterAddr || topic0 != converterABI.Events["ConvertMetToEth"].ID {
		t.Fatalf("filter mismatch: %s %s", addr.Hex(), topic0.Hex())
	}
	if _, _, err := decoder.Filter("Approval"); err == nil {
		t.Fatalf("expected error for unsupported kind")
	}
}

func TestParseContracts(t *testing.T) {
	if _, err := ParseContracts("0xnothex", converterAddr.Hex()); err == nil {
		t.Fatalf("expected error for invalid token address")
	}
	contracts, err := ParseContracts(tokenAddr.Hex(), converterAddr.Hex())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if contracts.Token != tokenAddr || contracts.Converter != converterAddr {
		t.Fatalf("contracts mismatch: %+v", contracts)
	}
}

func topicFromAddress(addr common.Address) common.Hash {
	return common.BytesToHash(addr.Bytes())
}
