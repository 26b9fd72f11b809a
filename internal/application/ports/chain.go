package ports

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// CallMsg is a prospective call used for gas simulation.
type CallMsg struct {
	From common.Address
	To   common.Address
	Data []byte
}

// GasOracle quotes the cost of a call.
type GasOracle interface {
	// EstimateGas simulates msg and returns the gas it consumes.
	EstimateGas(ctx context.Context, msg CallMsg) (uint64, error)

	// SuggestGasPrice returns the current gas price.
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// Receipt is the outcome of an included transaction.
type Receipt struct {
	TxHash        common.Hash
	BlockNumber   uint64
	Success       bool
	GasUsed       uint64
	Confirmations uint64
}

// ChainClient is the execution-layer client used to build, send and track
// transactions.
type ChainClient interface {
	GasOracle

	// ChainID returns the chain ID used for signing.
	ChainID(ctx context.Context) (*big.Int, error)

	// NextNonce returns the pending nonce of address.
	NextNonce(ctx context.Context, address common.Address) (uint64, error)

	// Balance returns the native balance of address.
	Balance(ctx context.Context, address common.Address) (*big.Int, error)

	// BuildTransaction creates an unsigned legacy transaction for msg at nonce.
	BuildTransaction(ctx context.Context, msg CallMsg, nonce uint64) (*types.Transaction, error)

	// SendTransaction broadcasts a signed transaction and returns its hash.
	SendTransaction(ctx context.Context, tx *types.Transaction) (common.Hash, error)

	// WaitForReceipt blocks until hash is included with at least
	// confirmations blocks on top of (and including) its block.
	WaitForReceipt(ctx context.Context, hash common.Hash, confirmations uint64) (*Receipt, error)
}

// Signer is the connected wallet. It never exposes key material.
type Signer interface {
	// IsConnected reports whether the wallet is available for signing.
	IsConnected() bool

	// Address returns the connected account.
	Address() common.Address

	// SignTx signs tx for chainID.
	SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error)
}

// Notification is a user-visible toast.
type Notification struct {
	Title    string
	Subtitle string
}

// Notifier is a fire-and-forget sink for user notifications.
type Notifier interface {
	Notify(n Notification)
}

// Confirmer asks the user to approve a pending action.
type Confirmer interface {
	Confirm(message string) (bool, error)
}
