package main

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/config"
	"github.com/autonomoussoftware/metronome-data-analysis/internal/metronome"
)

var metToken = common.HexToAddress("0xa3d58c4E56fedCae3a7c43A725aeE9A71F0ece4e")

// decimalsCaller answers decimals() with a fixed value, or fails every call
// when decimals is nil.
type decimalsCaller struct {
	decimals *uint8
}

func (c decimalsCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	parsed, err := metronome.ERC20ABI()
	if err != nil {
		return nil, err
	}
	if c.decimals == nil {
		return nil, errors.New("connection refused")
	}
	method := parsed.Methods["decimals"]
	if !bytes.Equal(msg.Data, method.ID) {
		return nil, errors.New("execution reverted")
	}
	return method.Outputs.Pack(*c.decimals)
}

func TestTokenDecimals(t *testing.T) {
	eight := uint8(8)
	cases := []struct {
		name    string
		caller  decimalsCaller
		detect  bool
		want    uint8
		wantErr bool
	}{
		{"detected", decimalsCaller{decimals: &eight}, true, 8, false},
		{"configured wins", decimalsCaller{decimals: &eight}, false, 18, false},
		{"fallback without detection", decimalsCaller{}, false, 18, false},
		{"detection failure", decimalsCaller{}, true, 0, true},
	}

	for _, tc := range cases {
		cfg := config.Common{TokenDecimals: 18, DetectDecimals: tc.detect}
		got, err := tokenDecimals(context.Background(), tc.caller, metToken, cfg, zap.NewNop())
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%s: expected error, got decimals %d", tc.name, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: decimals = %d, want %d", tc.name, got, tc.want)
		}
	}
}
