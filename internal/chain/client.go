package chain

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/time/rate"

	"github.com/autonomoussoftware/metronome-data-analysis/internal/metrics"
)

// Client wraps go-ethereum RPC and provides helper methods.
type Client struct {
	rpcClient *rpc.Client
	ethClient *ethclient.Client
	limiter   *rate.Limiter

	mu      sync.RWMutex
	tsCache map[uint64]uint64
}

// Option configures a Client.
type Option func(*Client)

// WithRateLimit caps outgoing requests per second. Zero disables limiting.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			burst := int(rps)
			if burst < 1 {
				burst = 1
			}
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// NewClient creates a new chain client from the RPC URL.
func NewClient(ctx context.Context, rpcURL string, opts ...Option) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		rpcClient: rpcClient,
		ethClient: ethclient.NewClient(rpcClient),
		tsCache:   make(map[uint64]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close closes the underlying RPC client.
func (c *Client) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// GetChainID returns the chain ID.
func (c *Client) GetChainID(ctx context.Context) (id *big.Int, err error) {
	started := time.Now()
	defer func() { metrics.ObserveRPC("eth_chainId", err, started) }()
	if err = c.wait(ctx); err != nil {
		return nil, err
	}
	return c.ethClient.ChainID(ctx)
}

// LatestBlockNumber returns the latest block number.
func (c *Client) LatestBlockNumber(ctx context.Context) (number uint64, err error) {
	started := time.Now()
	defer func() { metrics.ObserveRPC("eth_blockNumber", err, started) }()
	if err = c.wait(ctx); err != nil {
		return 0, err
	}
	return c.ethClient.BlockNumber(ctx)
}

// HeaderByNumber returns the block header by number.
func (c *Client) HeaderByNumber(ctx context.Context, number *big.Int) (header *types.Header, err error) {
	started := time.Now()
	defer func() { metrics.ObserveRPC("eth_getBlockByNumber", err, started) }()
	if err = c.wait(ctx); err != nil {
		return nil, err
	}
	return c.ethClient.HeaderByNumber(ctx, number)
}

// BlockTimestamp returns the block timestamp, using an in-memory cache.
func (c *Client) BlockTimestamp(ctx context.Context, number uint64) (uint64, error) {
	c.mu.RLock()
	ts, ok := c.tsCache[number]
	c.mu.RUnlock()
	if ok {
		return ts, nil
	}

	header, err := c.HeaderByNumber(ctx, new(big.Int).SetUint64(number))
	if err != nil {
		return 0, err
	}

	ts = header.Time
	c.mu.Lock()
	c.tsCache[number] = ts
	c.mu.Unlock()

	return ts, nil
}

// FilterLogs returns logs in the given range for addresses and topic0 filters.
func (c *Client) FilterLogs(
	ctx context.Context,
	fromBlock uint64,
	toBlock uint64,
	addresses []common.Address,
	topic0 []common.Hash,
) (logs []types.Log, err error) {
	started := time.Now()
	defer func() { metrics.ObserveRPC("eth_getLogs", err, started) }()
	if err = c.wait(ctx); err != nil {
		return nil, err
	}

	query := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(fromBlock),
		ToBlock:   new(big.Int).SetUint64(toBlock),
		Addresses: addresses,
	}
	if len(topic0) > 0 {
		query.Topics = [][]common.Hash{topic0}
	}
	return c.ethClient.FilterLogs(ctx, query)
}

// TransactionByHash returns the transaction by hash.
func (c *Client) TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, err error) {
	started := time.Now()
	defer func() { metrics.ObserveRPC("eth_getTransactionByHash", err, started) }()
	if err = c.wait(ctx); err != nil {
		return nil, err
	}
	tx, _, err = c.ethClient.TransactionByHash(ctx, hash)
	return tx, err
}

// ReceiptSummary holds the receipt fields the node reports for a transaction.
type ReceiptSummary struct {
	TxHash  common.Hash    `json:"transactionHash"`
	From    common.Address `json:"from"`
	GasUsed hexutil.Uint64 `json:"gasUsed"`
}

// TransactionReceipt returns the receipt summary of a mined transaction.
// It calls eth_getTransactionReceipt directly because types.Receipt drops
// the sender field.
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (receipt *ReceiptSummary, err error) {
	started := time.Now()
	defer func() { metrics.ObserveRPC("eth_getTransactionReceipt", err, started) }()
	if err = c.wait(ctx); err != nil {
		return nil, err
	}
	if err = c.rpcClient.CallContext(ctx, &receipt, "eth_getTransactionReceipt", hash); err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

// CallContract executes a read-only contract call at blockNumber (nil for latest).
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) (out []byte, err error) {
	started := time.Now()
	defer func() { metrics.ObserveRPC("eth_call", err, started) }()
	if err = c.wait(ctx); err != nil {
		return nil, err
	}
	return c.ethClient.CallContract(ctx, msg, blockNumber)
}
