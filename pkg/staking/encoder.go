package staking

import (
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"

	sdkmath "cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Contract names a protocol contract the encoder knows about.
type Contract string

const (
	ContractStaking     Contract = "staking"
	ContractFastUnstake Contract = "fast-unstake"
	ContractMulticall   Contract = "multicall"
)

// Staking and fast-unstake method names.
const (
	MethodBond                = "bond"
	MethodBondExtra           = "bondExtra"
	MethodUnbond              = "unbond"
	MethodRebond              = "rebond"
	MethodWithdrawUnbonded    = "withdrawUnbonded"
	MethodChill               = "chill"
	MethodNominate            = "nominate"
	MethodSetPayee            = "setPayee"
	MethodPayoutStakersByPage = "payoutStakersByPage"
	MethodRegisterFastUnstake = "registerFastUnstake"
	MethodDeregister          = "deregister"
)

type boundContract struct {
	address common.Address
	abi     abi.ABI
}

// Encoder maps staking operations to call data against static interface
// definitions. It is safe for concurrent use once constructed.
type Encoder struct {
	addresses Addresses
	contracts map[Contract]boundContract
}

// Option customizes an Encoder.
type Option func(*encoderOptions)

type encoderOptions struct {
	stakingABI     string
	fastUnstakeABI string
}

// WithStakingABI replaces the built-in staking interface definition.
func WithStakingABI(definition string) Option {
	return func(o *encoderOptions) {
		if definition != "" {
			o.stakingABI = definition
		}
	}
}

// WithFastUnstakeABI replaces the built-in fast-unstake interface definition.
func WithFastUnstakeABI(definition string) Option {
	return func(o *encoderOptions) {
		if definition != "" {
			o.fastUnstakeABI = definition
		}
	}
}

// NewEncoder creates an Encoder for the given contract addresses.
func NewEncoder(addresses Addresses, opts ...Option) (*Encoder, error) {
	options := encoderOptions{
		stakingABI:     StakingABI,
		fastUnstakeABI: FastUnstakeABI,
	}
	for _, opt := range opts {
		opt(&options)
	}

	stakingABI, err := parseABI(string(ContractStaking), options.stakingABI)
	if err != nil {
		return nil, err
	}
	fastUnstakeABI, err := parseABI(string(ContractFastUnstake), options.fastUnstakeABI)
	if err != nil {
		return nil, err
	}

	return &Encoder{
		addresses: addresses,
		contracts: map[Contract]boundContract{
			ContractStaking:     {address: addresses.Staking, abi: stakingABI},
			ContractFastUnstake: {address: addresses.FastUnstake, abi: fastUnstakeABI},
			ContractMulticall:   {address: addresses.Multicall, abi: multicallABI},
		},
	}, nil
}

// MustNewEncoder is NewEncoder with the built-in definitions. It panics on error.
func MustNewEncoder(addresses Addresses) *Encoder {
	enc, err := NewEncoder(addresses)
	if err != nil {
		panic(err)
	}
	return enc
}

// Addresses returns the contract addresses this encoder targets.
func (e *Encoder) Addresses() Addresses {
	return e.addresses
}

// Methods lists the method names of a contract in alphabetical order.
func (e *Encoder) Methods(contract Contract) []string {
	bound, ok := e.contracts[contract]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(bound.abi.Methods))
	for name := range bound.abi.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ContractFor returns the contract that declares method, preferring staking.
func (e *Encoder) ContractFor(method string) (Contract, bool) {
	for _, c := range []Contract{ContractStaking, ContractFastUnstake} {
		if _, ok := e.contracts[c].abi.Methods[method]; ok {
			return c, true
		}
	}
	return "", false
}

// Encode ABI-encodes a call to method on contract. Arguments are coerced to
// the declared parameter types: decimal strings and math.Int to integers, hex
// strings to addresses and bytes, and string slices to address arrays.
func (e *Encoder) Encode(contract Contract, method string, args ...any) (TxData, error) {
	bound, ok := e.contracts[contract]
	if !ok {
		return TxData{}, &EncodingError{Contract: string(contract), Method: method, Err: fmt.Errorf("unknown contract")}
	}
	m, ok := bound.abi.Methods[method]
	if !ok {
		return TxData{}, &EncodingError{Contract: string(contract), Method: method, Err: fmt.Errorf("unknown method")}
	}
	if len(args) != len(m.Inputs) {
		return TxData{}, &EncodingError{
			Contract: string(contract),
			Method:   method,
			Err:      fmt.Errorf("expected %d arguments, got %d", len(m.Inputs), len(args)),
		}
	}

	values := make([]any, len(args))
	for i, arg := range args {
		v, err := coerce(m.Inputs[i].Type, arg)
		if err != nil {
			return TxData{}, &EncodingError{
				Contract: string(contract),
				Method:   method,
				Err:      fmt.Errorf("argument %d (%s): %w", i, m.Inputs[i].Name, err),
			}
		}
		values[i] = v
	}

	data, err := bound.abi.Pack(method, values...)
	if err != nil {
		return TxData{}, &EncodingError{Contract: string(contract), Method: method, Err: err}
	}
	return TxData{To: bound.address, Calldata: data}, nil
}

// Bond locks value toward staking.
func (e *Encoder) Bond(value *big.Int, restakeRewards bool) (TxData, error) {
	return e.Encode(ContractStaking, MethodBond, value, restakeRewards)
}

// BondExtra adds value to an existing bond.
func (e *Encoder) BondExtra(value *big.Int) (TxData, error) {
	return e.Encode(ContractStaking, MethodBondExtra, value)
}

// Unbond schedules value for unlocking.
func (e *Encoder) Unbond(value *big.Int) (TxData, error) {
	return e.Encode(ContractStaking, MethodUnbond, value)
}

// Rebond moves value from unlocking chunks back to active.
func (e *Encoder) Rebond(value *big.Int) (TxData, error) {
	return e.Encode(ContractStaking, MethodRebond, value)
}

// WithdrawUnbonded releases fully unlocked chunks.
func (e *Encoder) WithdrawUnbonded(numSlashingSpans uint32) (TxData, error) {
	return e.Encode(ContractStaking, MethodWithdrawUnbonded, numSlashingSpans)
}

// Chill stops nominating.
func (e *Encoder) Chill() (TxData, error) {
	return e.Encode(ContractStaking, MethodChill)
}

// Nominate selects the validators to back.
func (e *Encoder) Nominate(targets []common.Address) (TxData, error) {
	return e.Encode(ContractStaking, MethodNominate, targets)
}

// SetPayee sets whether rewards are restaked or paid to the stash.
func (e *Encoder) SetPayee(restakeRewards bool) (TxData, error) {
	return e.Encode(ContractStaking, MethodSetPayee, restakeRewards)
}

// PayoutStakersByPage claims one page of era rewards for a validator.
func (e *Encoder) PayoutStakersByPage(validatorStash common.Address, era, page uint32) (TxData, error) {
	return e.Encode(ContractStaking, MethodPayoutStakersByPage, validatorStash, era, page)
}

// RegisterFastUnstake enters the fast-unstake queue.
func (e *Encoder) RegisterFastUnstake() (TxData, error) {
	return e.Encode(ContractFastUnstake, MethodRegisterFastUnstake)
}

// Deregister leaves the fast-unstake queue.
func (e *Encoder) Deregister() (TxData, error) {
	return e.Encode(ContractFastUnstake, MethodDeregister)
}

func coerce(t abi.Type, arg any) (any, error) {
	switch t.T {
	case abi.UintTy, abi.IntTy:
		n, err := toBigInt(arg)
		if err != nil {
			return nil, err
		}
		return sizedInt(t, n)
	case abi.BoolTy:
		switch v := arg.(type) {
		case bool:
			return v, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("invalid bool %q", v)
			}
			return b, nil
		}
		return nil, fmt.Errorf("cannot use %T as bool", arg)
	case abi.AddressTy:
		return toAddress(arg)
	case abi.BytesTy:
		switch v := arg.(type) {
		case []byte:
			return v, nil
		case string:
			b, err := hexutil.Decode(v)
			if err != nil {
				return nil, fmt.Errorf("invalid bytes %q: %w", v, err)
			}
			return b, nil
		}
		return nil, fmt.Errorf("cannot use %T as bytes", arg)
	case abi.SliceTy:
		if t.Elem.T != abi.AddressTy {
			return arg, nil
		}
		switch v := arg.(type) {
		case []common.Address:
			return v, nil
		case string:
			return coerce(t, strings.Split(strings.Trim(v, "[]"), ","))
		case []string:
			out := make([]common.Address, len(v))
			for i, s := range v {
				addr, err := toAddress(s)
				if err != nil {
					return nil, fmt.Errorf("element %d: %w", i, err)
				}
				out[i] = addr
			}
			return out, nil
		}
		return nil, fmt.Errorf("cannot use %T as address[]", arg)
	default:
		return arg, nil
	}
}

func toBigInt(arg any) (*big.Int, error) {
	switch v := arg.(type) {
	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return v, nil
	case sdkmath.Int:
		if v.IsNil() {
			return nil, fmt.Errorf("nil integer")
		}
		return v.BigInt(), nil
	case string:
		return ParseAmount(v)
	case int:
		return big.NewInt(int64(v)), nil
	case int64:
		return big.NewInt(v), nil
	case uint:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(v)), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	}
	return nil, fmt.Errorf("cannot use %T as integer", arg)
}

// sizedInt converts n to the Go type the ABI packer expects for t.
func sizedInt(t abi.Type, n *big.Int) (any, error) {
	if t.T == abi.UintTy {
		if n.Sign() < 0 {
			return nil, fmt.Errorf("negative value %s for %s", n, t)
		}
		if n.BitLen() > t.Size {
			return nil, fmt.Errorf("value %s overflows %s", n, t)
		}
		switch t.Size {
		case 8:
			return uint8(n.Uint64()), nil
		case 16:
			return uint16(n.Uint64()), nil
		case 32:
			return uint32(n.Uint64()), nil
		case 64:
			return n.Uint64(), nil
		}
		return n, nil
	}
	if n.BitLen() >= t.Size {
		return nil, fmt.Errorf("value %s overflows %s", n, t)
	}
	switch t.Size {
	case 8:
		return int8(n.Int64()), nil
	case 16:
		return int16(n.Int64()), nil
	case 32:
		return int32(n.Int64()), nil
	case 64:
		return n.Int64(), nil
	}
	return n, nil
}

func toAddress(arg any) (common.Address, error) {
	switch v := arg.(type) {
	case common.Address:
		return v, nil
	case string:
		if !common.IsHexAddress(v) {
			return common.Address{}, fmt.Errorf("invalid address %q", v)
		}
		return common.HexToAddress(v), nil
	}
	return common.Address{}, fmt.Errorf("cannot use %T as address", arg)
}

// Arg is one decoded call argument.
type Arg struct {
	Name  string `json:"name" yaml:"name"`
	Type  string `json:"type" yaml:"type"`
	Value string `json:"value" yaml:"value"`
}

// Call is a human-readable view of a TxData.
type Call struct {
	Contract Contract       `json:"contract" yaml:"contract"`
	To       common.Address `json:"to" yaml:"to"`
	Method   string         `json:"method" yaml:"method"`
	Args     []Arg          `json:"args,omitempty" yaml:"args,omitempty"`
	Inner    []Call         `json:"inner,omitempty" yaml:"inner,omitempty"`
}

// Describe decodes tx against the contract its address belongs to. Batches
// are expanded into their inner calls.
func (e *Encoder) Describe(tx TxData) (Call, error) {
	var contract Contract
	for name, bound := range e.contracts {
		if bound.address == tx.To {
			contract = name
			break
		}
	}
	if contract == "" {
		return Call{}, fmt.Errorf("unknown contract address %s", tx.To.Hex())
	}

	if contract == ContractMulticall {
		inner, err := e.DecodeBatch(tx)
		if err != nil {
			return Call{}, err
		}
		call := Call{Contract: contract, To: tx.To, Method: aggregate3}
		for _, in := range inner {
			desc, err := e.Describe(in)
			if err != nil {
				return Call{}, err
			}
			call.Inner = append(call.Inner, desc)
		}
		return call, nil
	}

	selector := tx.Selector()
	if selector == nil {
		return Call{}, fmt.Errorf("call data too short")
	}
	m, err := e.contracts[contract].abi.MethodById(selector)
	if err != nil {
		return Call{}, err
	}
	values, err := m.Inputs.Unpack(tx.Calldata[4:])
	if err != nil {
		return Call{}, fmt.Errorf("decode %s arguments: %w", m.Name, err)
	}

	call := Call{Contract: contract, To: tx.To, Method: m.Name}
	for i, v := range values {
		call.Args = append(call.Args, Arg{
			Name:  m.Inputs[i].Name,
			Type:  m.Inputs[i].Type.String(),
			Value: formatValue(v),
		})
	}
	return call, nil
}

func formatValue(v any) string {
	switch val := v.(type) {
	case common.Address:
		return val.Hex()
	case []common.Address:
		parts := make([]string, len(val))
		for i, a := range val {
			parts[i] = a.Hex()
		}
		return "[" + strings.Join(parts, ",") + "]"
	case []byte:
		return hexutil.Encode(val)
	case *big.Int:
		return val.String()
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
		return hexutil.Encode(rv.Bytes())
	}
	return fmt.Sprint(v)
}
