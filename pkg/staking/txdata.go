// Package staking builds call data for the staking and fast-unstake precompiles
// and batches several calls into a single Multicall3 aggregate call.
//
// Everything in this package is pure: no I/O, and identical inputs always
// produce identical call data.
package staking

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Default protocol addresses.
var (
	DefaultStakingAddress     = common.HexToAddress("0x0000000000000000000000000000000000000800")
	DefaultFastUnstakeAddress = common.HexToAddress("0x0000000000000000000000000000000000000801")
	DefaultMulticallAddress   = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")
)

// TxData is one ABI-encoded call. It is treated as immutable once built.
type TxData struct {
	To       common.Address `json:"to"`
	Calldata []byte         `json:"calldata"`
}

// Equal reports whether both calls target the same address with the same data.
func (t TxData) Equal(other TxData) bool {
	return t.To == other.To && bytes.Equal(t.Calldata, other.Calldata)
}

// Selector returns the 4-byte method selector, or nil for short call data.
func (t TxData) Selector() []byte {
	if len(t.Calldata) < 4 {
		return nil
	}
	return t.Calldata[:4]
}

// String renders the call as "to:0x...".
func (t TxData) String() string {
	return fmt.Sprintf("%s:%s", t.To.Hex(), hexutil.Encode(t.Calldata))
}

// Call3 is a single entry of a Multicall3 aggregate3 batch.
type Call3 struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// Addresses holds the contract addresses the encoder targets.
type Addresses struct {
	Staking     common.Address
	FastUnstake common.Address
	Multicall   common.Address
}

// DefaultAddresses returns the built-in protocol addresses.
func DefaultAddresses() Addresses {
	return Addresses{
		Staking:     DefaultStakingAddress,
		FastUnstake: DefaultFastUnstakeAddress,
		Multicall:   DefaultMulticallAddress,
	}
}

// EncodingError reports arguments that do not match a method's declared
// parameter types. It indicates a programming error in the caller.
type EncodingError struct {
	Contract string
	Method   string
	Err      error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode %s.%s: %v", e.Contract, e.Method, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}
