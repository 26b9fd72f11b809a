package evm

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altuslabsxyz/stakekit/internal/application/ports"
)

type mockBackend struct {
	mu sync.Mutex

	chainID  *big.Int
	gas      uint64
	gasErr   error
	price    *big.Int
	nonce    uint64
	balance  *big.Int
	sent     []*types.Transaction
	sendErr  error
	receipts map[common.Hash]*types.Receipt
	head     uint64
	closed   bool

	lastCall ethereum.CallMsg
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		chainID:  big.NewInt(420420),
		gas:      100_000,
		price:    big.NewInt(1_000_000_000),
		nonce:    7,
		balance:  big.NewInt(5),
		receipts: make(map[common.Hash]*types.Receipt),
	}
}

func (m *mockBackend) ChainID(ctx context.Context) (*big.Int, error) { return m.chainID, nil }

func (m *mockBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastCall = msg
	return m.gas, m.gasErr
}

func (m *mockBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) { return m.price, nil }

func (m *mockBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return m.nonce, nil
}

func (m *mockBackend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return m.balance, nil
}

func (m *mockBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, tx)
	return nil
}

func (m *mockBackend) TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return r, nil
}

func (m *mockBackend) BlockNumber(ctx context.Context) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.head, nil
}

func (m *mockBackend) Close() { m.closed = true }

func (m *mockBackend) include(hash common.Hash, block uint64, status uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts[hash] = &types.Receipt{
		TxHash:      hash,
		BlockNumber: new(big.Int).SetUint64(block),
		Status:      status,
		GasUsed:     21_000,
	}
	if m.head < block {
		m.head = block
	}
}

func (m *mockBackend) setHead(head uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.head = head
}

var fastOpts = Options{PollInterval: 5 * time.Millisecond, ReceiptTimeout: time.Second}

func TestClient_NotConnected(t *testing.T) {
	c := NewClient("http://localhost:8545", Options{}, nil)

	_, err := c.NextNonce(context.Background(), common.Address{})
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = c.ChainID(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
	_, err = c.WaitForReceipt(context.Background(), common.Hash{}, 1)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.NoError(t, c.Close())
}

func TestClient_Queries(t *testing.T) {
	m := newMockBackend()
	c := NewClientWithBackend(m, fastOpts, nil)
	ctx := context.Background()

	chainID, err := c.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(420420), chainID.Int64())

	nonce, err := c.NextNonce(ctx, common.HexToAddress("0x01"))
	require.NoError(t, err)
	assert.Equal(t, uint64(7), nonce)

	bal, err := c.Balance(ctx, common.HexToAddress("0x01"))
	require.NoError(t, err)
	assert.Equal(t, "5", bal.String())

	to := common.HexToAddress("0x0800")
	gas, err := c.EstimateGas(ctx, ports.CallMsg{From: common.HexToAddress("0x01"), To: to, Data: []byte{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000), gas)
	require.NotNil(t, m.lastCall.To)
	assert.Equal(t, to, *m.lastCall.To)
	assert.Equal(t, []byte{1, 2}, m.lastCall.Data)
}

func TestClient_EstimateGasError(t *testing.T) {
	m := newMockBackend()
	m.gasErr = errors.New("execution reverted")
	c := NewClientWithBackend(m, fastOpts, nil)

	_, err := c.EstimateGas(context.Background(), ports.CallMsg{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execution reverted")
}

func TestClient_BuildAndSend(t *testing.T) {
	m := newMockBackend()
	c := NewClientWithBackend(m, fastOpts, nil)
	ctx := context.Background()

	to := common.HexToAddress("0x0800")
	tx, err := c.BuildTransaction(ctx, ports.CallMsg{To: to, Data: []byte{0xaa}}, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), tx.Nonce())
	assert.Equal(t, uint64(120_000), tx.Gas())
	assert.Equal(t, "1000000000", tx.GasPrice().String())
	assert.Equal(t, to, *tx.To())
	assert.Equal(t, []byte{0xaa}, tx.Data())
	assert.Zero(t, tx.Value().Sign())

	hash, err := c.SendTransaction(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, tx.Hash(), hash)
	require.Len(t, m.sent, 1)

	m.sendErr = errors.New("nonce too low")
	_, err = c.SendTransaction(ctx, tx)
	assert.ErrorContains(t, err, "nonce too low")
}

func TestClient_WaitForReceipt(t *testing.T) {
	m := newMockBackend()
	c := NewClientWithBackend(m, fastOpts, nil)
	hash := common.HexToHash("0xabc")

	go func() {
		time.Sleep(20 * time.Millisecond)
		m.include(hash, 10, types.ReceiptStatusSuccessful)
	}()

	receipt, err := c.WaitForReceipt(context.Background(), hash, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), receipt.BlockNumber)
	assert.True(t, receipt.Success)
	assert.Equal(t, uint64(1), receipt.Confirmations)
}

func TestClient_WaitForConfirmations(t *testing.T) {
	m := newMockBackend()
	c := NewClientWithBackend(m, fastOpts, nil)
	hash := common.HexToHash("0xdef")
	m.include(hash, 10, types.ReceiptStatusFailed)

	go func() {
		time.Sleep(20 * time.Millisecond)
		m.setHead(11)
		time.Sleep(20 * time.Millisecond)
		m.setHead(12)
	}()

	receipt, err := c.WaitForReceipt(context.Background(), hash, 3)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), receipt.Confirmations)
	assert.False(t, receipt.Success)
}

func TestClient_WaitForReceiptTimeout(t *testing.T) {
	c := NewClientWithBackend(newMockBackend(), Options{PollInterval: time.Millisecond, ReceiptTimeout: 20 * time.Millisecond}, nil)

	_, err := c.WaitForReceipt(context.Background(), common.HexToHash("0x1"), 1)
	assert.ErrorIs(t, err, ErrReceiptTimeout)
}

func TestClient_WaitForReceiptCancelled(t *testing.T) {
	c := NewClientWithBackend(newMockBackend(), fastOpts, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.WaitForReceipt(ctx, common.HexToHash("0x1"), 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_Close(t *testing.T) {
	m := newMockBackend()
	c := NewClientWithBackend(m, fastOpts, nil)

	require.NoError(t, c.Close())
	assert.True(t, m.closed)
	_, err := c.SuggestGasPrice(context.Background())
	assert.ErrorIs(t, err, ErrNotConnected)
}
