package metronome

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/model"
)

// Contracts holds the deployed addresses the decoder filters on.
type Contracts struct {
	Token     common.Address
	Converter common.Address
}

// Validate checks that both contract addresses are set.
func (c Contracts) Validate() error {
	if c.Token == (common.Address{}) {
		return fmt.Errorf("token address is required")
	}
	if c.Converter == (common.Address{}) {
		return fmt.Errorf("converter address is required")
	}
	return nil
}

// ParseContracts converts hex addresses into Contracts.
func ParseContracts(token, converter string) (Contracts, error) {
	if !common.IsHexAddress(token) {
		return Contracts{}, fmt.Errorf("invalid token address: %q", token)
	}
	if !common.IsHexAddress(converter) {
		return Contracts{}, fmt.Errorf("invalid converter address: %q", converter)
	}
	return Contracts{
		Token:     common.HexToAddress(token),
		Converter: common.HexToAddress(converter),
	}, nil
}

type eventSpec struct {
	address common.Address
	event   abi.Event
	amount  string
}

// Decoder maps contract logs of the supported kinds to EventRecords.
type Decoder struct {
	contracts Contracts
	specs     map[model.EventKind]eventSpec
}

// NewDecoder builds a decoder for the given deployment.
func NewDecoder(contracts Contracts) (*Decoder, error) {
	if err := contracts.Validate(); err != nil {
		return nil, err
	}
	token, err := TokenABI()
	if err != nil {
		return nil, fmt.Errorf("parse token abi: %w", err)
	}
	converter, err := ConverterABI()
	if err != nil {
		return nil, fmt.Errorf("parse converter abi: %w", err)
	}

	return &Decoder{
		contracts: contracts,
		specs: map[model.EventKind]eventSpec{
			model.KindTransfer:        {address: contracts.Token, event: token.Events["Transfer"], amount: "_value"},
			model.KindConvertEthToMet: {address: contracts.Converter, event: converter.Events["ConvertEthToMet"], amount: "met"},
			model.KindConvertMetToEth: {address: contracts.Converter, event: converter.Events["ConvertMetToEth"], amount: "met"},
		},
	}, nil
}

// Contracts returns the deployment the decoder was built for.
func (d *Decoder) Contracts() Contracts {
	return d.contracts
}

// Filter returns the contract address and topic0 to query for kind.
func (d *Decoder) Filter(kind model.EventKind) (common.Address, common.Hash, error) {
	spec, ok := d.specs[kind]
	if !ok {
		return common.Address{}, common.Hash{}, fmt.Errorf("unsupported event kind: %s", kind)
	}
	return spec.address, spec.event.ID, nil
}

// Decode converts a log of the given kind into an EventRecord.
func (d *Decoder) Decode(kind model.EventKind, log types.Log) (model.EventRecord, error) {
	spec, ok := d.specs[kind]
	if !ok {
		return model.EventRecord{}, fmt.Errorf("unsupported event kind: %s", kind)
	}
	if len(log.Topics) == 0 || log.Topics[0] != spec.event.ID {
		return model.EventRecord{}, fmt.Errorf("log %s:%d is not a %s event", log.TxHash.Hex(), log.Index, kind)
	}

	indexed := indexedArguments(spec.event.Inputs)
	if len(log.Topics)-1 != len(indexed) {
		return model.EventRecord{}, fmt.Errorf("%s: expected %d indexed topics, got %d", kind, len(indexed), len(log.Topics)-1)
	}

	values := make(map[string]interface{})
	if err := spec.event.Inputs.NonIndexed().UnpackIntoMap(values, log.Data); err != nil {
		return model.EventRecord{}, fmt.Errorf("unpack %s: %w", kind, err)
	}
	amount, ok := values[spec.amount].(*big.Int)
	if !ok {
		return model.EventRecord{}, fmt.Errorf("%s: unexpected %s type %T", kind, spec.amount, values[spec.amount])
	}

	record := model.EventRecord{
		Kind:        kind,
		BlockNumber: log.BlockNumber,
		LogIndex:    uint64(log.Index),
		Amount:      amount,
		TxHash:      log.TxHash,
	}

	switch kind {
	case model.KindTransfer:
		record.From = common.BytesToAddress(log.Topics[1].Bytes())
		record.To = common.BytesToAddress(log.Topics[2].Bytes())
	default:
		record.From = common.BytesToAddress(log.Topics[1].Bytes())
		record.To = log.Address
	}

	return record, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	out := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			out = append(out, arg)
		}
	}
	return out
}
