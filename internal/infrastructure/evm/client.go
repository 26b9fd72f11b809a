// Package evm provides the execution-layer client used to estimate, send and
// track staking transactions.
package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"cosmossdk.io/log"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/altuslabsxyz/stakekit/internal/application/ports"
)

var (
	// ErrNotConnected is returned when a call is made before Connect.
	ErrNotConnected = errors.New("client not connected")

	// ErrReceiptTimeout is returned when a receipt is not found in time.
	ErrReceiptTimeout = errors.New("timeout waiting for transaction receipt")
)

const (
	defaultPollInterval   = 2 * time.Second
	defaultReceiptTimeout = 5 * time.Minute

	// gasBufferPercent is added on top of the estimate when building.
	gasBufferPercent = 20
)

// Backend is the subset of ethclient.Client used by Client.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	BlockNumber(ctx context.Context) (uint64, error)
	Close()
}

// Options tunes receipt polling.
type Options struct {
	PollInterval   time.Duration
	ReceiptTimeout time.Duration
}

// Client implements ports.ChainClient using go-ethereum.
type Client struct {
	rpcURL string
	opts   Options
	logger log.Logger

	mu      sync.RWMutex
	backend Backend
	chainID *big.Int
}

// Ensure Client implements ports.ChainClient.
var _ ports.ChainClient = (*Client)(nil)

// NewClient creates a new EVM client. Call Connect before use.
func NewClient(rpcURL string, opts Options, logger log.Logger) *Client {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.ReceiptTimeout <= 0 {
		opts.ReceiptTimeout = defaultReceiptTimeout
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Client{
		rpcURL: rpcURL,
		opts:   opts,
		logger: logger.With("module", "evm"),
	}
}

// NewClientWithBackend wraps an already connected backend.
func NewClientWithBackend(backend Backend, opts Options, logger log.Logger) *Client {
	c := NewClient("", opts, logger)
	c.backend = backend
	return c
}

// Connect establishes a connection to the EVM RPC endpoint.
func (c *Client) Connect(ctx context.Context) error {
	client, err := ethclient.DialContext(ctx, c.rpcURL)
	if err != nil {
		return fmt.Errorf("failed to connect to EVM RPC: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to get chain ID: %w", err)
	}

	c.mu.Lock()
	c.backend = client
	c.chainID = chainID
	c.mu.Unlock()

	c.logger.Debug("connected", "url", c.rpcURL, "chain_id", chainID.String())
	return nil
}

func (c *Client) get() (Backend, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.backend == nil {
		return nil, ErrNotConnected
	}
	return c.backend, nil
}

// ChainID returns the chain ID, cached after the first call.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	c.mu.RLock()
	cached := c.chainID
	c.mu.RUnlock()
	if cached != nil {
		return new(big.Int).Set(cached), nil
	}

	b, err := c.get()
	if err != nil {
		return nil, err
	}
	chainID, err := b.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	c.mu.Lock()
	c.chainID = chainID
	c.mu.Unlock()
	return new(big.Int).Set(chainID), nil
}

// EstimateGas estimates gas for msg.
func (c *Client) EstimateGas(ctx context.Context, msg ports.CallMsg) (uint64, error) {
	b, err := c.get()
	if err != nil {
		return 0, err
	}

	to := msg.To
	gas, err := b.EstimateGas(ctx, ethereum.CallMsg{
		From: msg.From,
		To:   &to,
		Data: msg.Data,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to estimate gas: %w", err)
	}
	return gas, nil
}

// SuggestGasPrice returns a suggested gas price.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	b, err := c.get()
	if err != nil {
		return nil, err
	}
	price, err := b.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest gas price: %w", err)
	}
	return price, nil
}

// NextNonce retrieves the pending nonce for an address.
func (c *Client) NextNonce(ctx context.Context, address common.Address) (uint64, error) {
	b, err := c.get()
	if err != nil {
		return 0, err
	}
	nonce, err := b.PendingNonceAt(ctx, address)
	if err != nil {
		return 0, fmt.Errorf("failed to get nonce: %w", err)
	}
	return nonce, nil
}

// Balance retrieves the latest native balance of an address.
func (c *Client) Balance(ctx context.Context, address common.Address) (*big.Int, error) {
	b, err := c.get()
	if err != nil {
		return nil, err
	}
	balance, err := b.BalanceAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// BuildTransaction creates an unsigned legacy transaction for msg. The gas
// limit is the estimate plus a buffer; the price is the suggested price.
func (c *Client) BuildTransaction(ctx context.Context, msg ports.CallMsg, nonce uint64) (*types.Transaction, error) {
	gas, err := c.EstimateGas(ctx, msg)
	if err != nil {
		return nil, err
	}
	price, err := c.SuggestGasPrice(ctx)
	if err != nil {
		return nil, err
	}

	gasLimit := gas + gas*gasBufferPercent/100
	return types.NewTransaction(nonce, msg.To, big.NewInt(0), gasLimit, price, msg.Data), nil
}

// SendTransaction broadcasts a signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) (common.Hash, error) {
	b, err := c.get()
	if err != nil {
		return common.Hash{}, err
	}
	if err := b.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	c.logger.Info("transaction sent", "hash", tx.Hash().Hex(), "nonce", tx.Nonce())
	return tx.Hash(), nil
}

// WaitForReceipt polls until hash has a receipt whose block has at least
// confirmations blocks counted from it. Zero is treated as one.
func (c *Client) WaitForReceipt(ctx context.Context, hash common.Hash, confirmations uint64) (*ports.Receipt, error) {
	b, err := c.get()
	if err != nil {
		return nil, err
	}
	if confirmations == 0 {
		confirmations = 1
	}

	ticker := time.NewTicker(c.opts.PollInterval)
	defer ticker.Stop()

	timer := time.NewTimer(c.opts.ReceiptTimeout)
	defer timer.Stop()

	for {
		receipt, err := c.checkReceipt(ctx, b, hash, confirmations)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
			return nil, fmt.Errorf("%w %s", ErrReceiptTimeout, hash.Hex())
		case <-ticker.C:
		}
	}
}

// checkReceipt returns nil, nil while the receipt is missing or not yet deep
// enough.
func (c *Client) checkReceipt(ctx context.Context, b Backend, hash common.Hash, confirmations uint64) (*ports.Receipt, error) {
	receipt, err := b.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// Transient RPC failure, keep polling
		c.logger.Debug("receipt query failed", "hash", hash.Hex(), "error", err)
		return nil, nil
	}

	var included uint64
	if receipt.BlockNumber != nil {
		included = receipt.BlockNumber.Uint64()
	}

	depth := uint64(1)
	if confirmations > 1 {
		head, err := b.BlockNumber(ctx)
		if err != nil {
			c.logger.Debug("block number query failed", "error", err)
			return nil, nil
		}
		if head < included {
			return nil, nil
		}
		depth = head - included + 1
		if depth < confirmations {
			return nil, nil
		}
	}

	return &ports.Receipt{
		TxHash:        receipt.TxHash,
		BlockNumber:   included,
		Success:       receipt.Status == types.ReceiptStatusSuccessful,
		GasUsed:       receipt.GasUsed,
		Confirmations: depth,
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backend != nil {
		c.backend.Close()
		c.backend = nil
	}
	return nil
}
