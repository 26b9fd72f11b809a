// Package config loads stakectl configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/altuslabsxyz/stakekit/pkg/staking"
)

// Config is the effective stakectl configuration.
// Priority: defaults < config file < environment variables < CLI flags
type Config struct {
	Network   NetworkConfig   `toml:"network"`
	Contracts ContractsConfig `toml:"contracts"`
	Staking   StakingConfig   `toml:"staking"`
	Timeouts  TimeoutConfig   `toml:"timeouts"`
	Wallet    WalletConfig    `toml:"wallet"`
	Log       LogConfig       `toml:"log"`
}

// NetworkConfig identifies the chain and its endpoints.
type NetworkConfig struct {
	Name        string `toml:"name"`
	ChainID     uint64 `toml:"chain_id"`
	EVMRPC      string `toml:"evm_rpc"`
	SubstrateWS string `toml:"substrate_ws"`
	Unit        string `toml:"unit"`
	Decimals    uint8  `toml:"decimals"`
}

// ContractsConfig holds the precompile addresses and optional ABI overrides.
type ContractsConfig struct {
	Staking        string `toml:"staking"`
	FastUnstake    string `toml:"fast_unstake"`
	Multicall      string `toml:"multicall"`
	StakingABI     string `toml:"staking_abi"`
	FastUnstakeABI string `toml:"fast_unstake_abi"`
}

// StakingConfig holds balance rules. Amounts are in display units.
type StakingConfig struct {
	ExistentialDeposit string `toml:"existential_deposit"`
	FeeReserve         string `toml:"fee_reserve"`
	Confirmations      uint64 `toml:"confirmations"`
}

// TimeoutConfig holds RPC and receipt timeouts.
type TimeoutConfig struct {
	RPC          time.Duration `toml:"rpc"`
	Receipt      time.Duration `toml:"receipt"`
	PollInterval time.Duration `toml:"poll_interval"`
}

// WalletConfig locates the signing key.
type WalletConfig struct {
	Keystore string `toml:"keystore"`
	Address  string `toml:"address"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
	Color bool   `toml:"color"`
}

// DefaultHomeDir returns ~/.stakekit.
func DefaultHomeDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".stakekit")
}

// DefaultConfig returns configuration for the ZenChain testnet.
func DefaultConfig() *Config {
	addrs := staking.DefaultAddresses()
	return &Config{
		Network: NetworkConfig{
			Name:        "zenchain_testnet",
			ChainID:     8408,
			EVMRPC:      "http://localhost:9944",
			SubstrateWS: "ws://localhost:9944",
			Unit:        "ZCX",
			Decimals:    18,
		},
		Contracts: ContractsConfig{
			Staking:     addrs.Staking.Hex(),
			FastUnstake: addrs.FastUnstake.Hex(),
			Multicall:   addrs.Multicall.Hex(),
		},
		Staking: StakingConfig{
			ExistentialDeposit: "0",
			FeeReserve:         "0.05",
			Confirmations:      1,
		},
		Timeouts: TimeoutConfig{
			RPC:          30 * time.Second,
			Receipt:      5 * time.Minute,
			PollInterval: 2 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
			Color: true,
		},
	}
}

// Addresses returns the configured contract addresses.
func (c *Config) Addresses() staking.Addresses {
	return staking.Addresses{
		Staking:     common.HexToAddress(c.Contracts.Staking),
		FastUnstake: common.HexToAddress(c.Contracts.FastUnstake),
		Multicall:   common.HexToAddress(c.Contracts.Multicall),
	}
}

// ExistentialDeposit returns the existential deposit in base units.
func (c *Config) ExistentialDeposit() (math.Int, error) {
	return c.baseUnits("existential_deposit", c.Staking.ExistentialDeposit)
}

// FeeReserve returns the fee reserve in base units.
func (c *Config) FeeReserve() (math.Int, error) {
	return c.baseUnits("fee_reserve", c.Staking.FeeReserve)
}

func (c *Config) baseUnits(name, value string) (math.Int, error) {
	v, err := staking.ParseUnits(value, c.Network.Decimals)
	if err != nil {
		return math.Int{}, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	return math.NewIntFromBigInt(v), nil
}
