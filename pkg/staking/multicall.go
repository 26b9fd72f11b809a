package staking

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"

	"github.com/ethereum/go-ethereum/common"
)

// ErrNotBatch is returned by DecodeBatch for calls that are not aggregate3
// calls to the multicall address.
var ErrNotBatch = errors.New("not a multicall batch")

// Compose merges txs into a single call. One transaction is returned
// unchanged. Several are wrapped as aggregate3 entries with allowFailure
// false, in order. An empty input reports false.
func (e *Encoder) Compose(txs ...TxData) (TxData, bool) {
	switch len(txs) {
	case 0:
		return TxData{}, false
	case 1:
		return txs[0], true
	}

	calls := make([]Call3, len(txs))
	for i, tx := range txs {
		calls[i] = Call3{
			Target:       tx.To,
			AllowFailure: false,
			CallData:     tx.Calldata,
		}
	}

	data, err := multicallABI.Pack(aggregate3, calls)
	if err != nil {
		// Call3 always matches the built-in aggregate3 tuple.
		panic(fmt.Sprintf("pack aggregate3: %v", err))
	}
	return TxData{To: e.addresses.Multicall, Calldata: data}, true
}

// IsBatch reports whether tx is an aggregate3 call to the multicall address.
func (e *Encoder) IsBatch(tx TxData) bool {
	return tx.To == e.addresses.Multicall &&
		bytes.Equal(tx.Selector(), multicallABI.Methods[aggregate3].ID)
}

// DecodeBatch returns the inner calls of an aggregate3 batch in order.
func (e *Encoder) DecodeBatch(tx TxData) ([]TxData, error) {
	if !e.IsBatch(tx) {
		return nil, ErrNotBatch
	}
	calls, err := decodeCall3s(tx.Calldata[4:])
	if err != nil {
		return nil, err
	}
	out := make([]TxData, len(calls))
	for i, c := range calls {
		out[i] = TxData{To: c.Target, Calldata: c.CallData}
	}
	return out, nil
}

// Calls returns the calls tx executes: the inner calls of a batch, or tx itself.
func (e *Encoder) Calls(tx TxData) ([]TxData, error) {
	inner, err := e.DecodeBatch(tx)
	if errors.Is(err, ErrNotBatch) {
		return []TxData{tx}, nil
	}
	return inner, err
}

func decodeCall3s(args []byte) ([]Call3, error) {
	values, err := multicallABI.Methods[aggregate3].Inputs.Unpack(args)
	if err != nil {
		return nil, fmt.Errorf("decode aggregate3: %w", err)
	}
	if len(values) != 1 {
		return nil, fmt.Errorf("decode aggregate3: expected 1 value, got %d", len(values))
	}

	// The unpacker produces a slice of anonymous structs.
	rv := reflect.ValueOf(values[0])
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("decode aggregate3: unexpected %T", values[0])
	}
	calls := make([]Call3, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i)
		target, ok := elem.FieldByName("Target").Interface().(common.Address)
		if !ok {
			return nil, fmt.Errorf("decode aggregate3: call %d has no target", i)
		}
		calls[i] = Call3{
			Target:       target,
			AllowFailure: elem.FieldByName("AllowFailure").Bool(),
			CallData:     elem.FieldByName("CallData").Bytes(),
		}
	}
	return calls, nil
}
