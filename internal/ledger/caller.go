package ledger

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"go.uber.org/zap"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/metronome"
)

// RetryingCaller wraps a contract caller with the same retry policy as
// RetryingClient. Reverted calls fail immediately.
type RetryingCaller struct {
	caller metronome.ContractCaller
	policy RetryPolicy
	logger *zap.Logger
}

func NewRetryingCaller(caller metronome.ContractCaller, policy RetryPolicy, logger *zap.Logger) *RetryingCaller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RetryingCaller{caller: caller, policy: policy, logger: logger}
}

// CallContract executes a read-only call against blockNumber, or the
// latest block when nil.
func (c *RetryingCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	logger := c.logger
	if msg.To != nil {
		logger = logger.With(zap.String("to", msg.To.Hex()))
	}

	var out []byte
	err := withRetry(ctx, c.policy, "call_contract", logger, func(ctx context.Context) error {
		var err error
		out, err = c.caller.CallContract(ctx, msg, blockNumber)
		if err != nil && strings.Contains(strings.ToLower(err.Error()), "execution reverted") {
			return &CallRevertedError{Err: err}
		}
		return err
	})
	return out, err
}
