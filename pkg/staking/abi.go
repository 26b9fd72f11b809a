package staking

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// StakingABI is the interface of the native staking precompile.
const StakingABI = `[
	{"type":"function","name":"bond","stateMutability":"nonpayable","inputs":[{"name":"value","type":"uint256"},{"name":"restakeRewards","type":"bool"}],"outputs":[]},
	{"type":"function","name":"bondExtra","stateMutability":"nonpayable","inputs":[{"name":"value","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"unbond","stateMutability":"nonpayable","inputs":[{"name":"value","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"rebond","stateMutability":"nonpayable","inputs":[{"name":"value","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"withdrawUnbonded","stateMutability":"nonpayable","inputs":[{"name":"numSlashingSpans","type":"uint32"}],"outputs":[]},
	{"type":"function","name":"chill","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"nominate","stateMutability":"nonpayable","inputs":[{"name":"targets","type":"address[]"}],"outputs":[]},
	{"type":"function","name":"setPayee","stateMutability":"nonpayable","inputs":[{"name":"restakeRewards","type":"bool"}],"outputs":[]},
	{"type":"function","name":"payoutStakersByPage","stateMutability":"nonpayable","inputs":[{"name":"validatorStash","type":"address"},{"name":"era","type":"uint32"},{"name":"page","type":"uint32"}],"outputs":[]}
]`

// FastUnstakeABI is the interface of the native fast-unstake precompile.
const FastUnstakeABI = `[
	{"type":"function","name":"registerFastUnstake","stateMutability":"nonpayable","inputs":[],"outputs":[]},
	{"type":"function","name":"deregister","stateMutability":"nonpayable","inputs":[],"outputs":[]}
]`

// Multicall3ABI covers the single aggregate3 entry point used for batching.
const Multicall3ABI = `[
	{"type":"function","name":"aggregate3","stateMutability":"payable",
	 "inputs":[{"name":"calls","type":"tuple[]","components":[
		{"name":"target","type":"address"},
		{"name":"allowFailure","type":"bool"},
		{"name":"callData","type":"bytes"}]}],
	 "outputs":[{"name":"returnData","type":"tuple[]","components":[
		{"name":"success","type":"bool"},
		{"name":"returnData","type":"bytes"}]}]}
]`

// aggregate3 is the multicall method name.
const aggregate3 = "aggregate3"

// parseABI parses a JSON interface definition.
func parseABI(name, definition string) (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(definition))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("parse %s ABI: %w", name, err)
	}
	return parsed, nil
}

// mustParseABI is used for the built-in definitions, which are constants.
func mustParseABI(name, definition string) abi.ABI {
	parsed, err := parseABI(name, definition)
	if err != nil {
		panic(err)
	}
	return parsed
}

var multicallABI = mustParseABI("multicall3", Multicall3ABI)
