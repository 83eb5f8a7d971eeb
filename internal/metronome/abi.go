package metronome

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const tokenABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "_from", "type": "address"},
      {"indexed": true, "name": "_to", "type": "address"},
      {"indexed": false, "name": "_value", "type": "uint256"}
    ],
    "name": "Transfer",
    "type": "event"
  }
]`

const converterABIJSON = `[
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "from", "type": "address"},
      {"indexed": false, "name": "eth", "type": "uint256"},
      {"indexed": false, "name": "met", "type": "uint256"}
    ],
    "name": "ConvertEthToMet",
    "type": "event"
  },
  {
    "anonymous": false,
    "inputs": [
      {"indexed": true, "name": "from", "type": "address"},
      {"indexed": false, "name": "eth", "type": "uint256"},
      {"indexed": false, "name": "met", "type": "uint256"}
    ],
    "name": "ConvertMetToEth",
    "type": "event"
  }
]`

var (
	tokenABI         abi.ABI
	tokenABIOnce     sync.Once
	tokenABIErr      error
	converterABI     abi.ABI
	converterABIOnce sync.Once
	converterABIErr  error
)

// TokenABI returns the parsed MET token event ABI.
func TokenABI() (abi.ABI, error) {
	tokenABIOnce.Do(func() {
		tokenABI, tokenABIErr = abi.JSON(strings.NewReader(tokenABIJSON))
	})
	return tokenABI, tokenABIErr
}

// ConverterABI returns the parsed autonomous converter event ABI.
func ConverterABI() (abi.ABI, error) {
	converterABIOnce.Do(func() {
		converterABI, converterABIErr = abi.JSON(strings.NewReader(converterABIJSON))
	})
	return converterABI, converterABIErr
}
