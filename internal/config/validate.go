package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ValidLogLevels are the allowed log level values.
var ValidLogLevels = []string{"trace", "debug", "info", "warn", "error"}

// Validate validates the configuration and returns an error if invalid.
func Validate(cfg *Config) error {
	var errs []string

	if !slices.Contains(ValidLogLevels, cfg.Log.Level) {
		errs = append(errs, fmt.Sprintf("invalid log level %q (must be one of: %s)",
			cfg.Log.Level, strings.Join(ValidLogLevels, ", ")))
	}

	if cfg.Network.ChainID == 0 {
		errs = append(errs, "chain_id must be set")
	}
	if err := validateURL(cfg.Network.EVMRPC, "http", "https", "ws", "wss"); err != nil {
		errs = append(errs, fmt.Sprintf("evm_rpc: %v", err))
	}
	if err := validateURL(cfg.Network.SubstrateWS, "ws", "wss"); err != nil {
		errs = append(errs, fmt.Sprintf("substrate_ws: %v", err))
	}
	if cfg.Network.Decimals > 36 {
		errs = append(errs, "decimals must be at most 36")
	}

	for name, addr := range map[string]string{
		"contracts.staking":      cfg.Contracts.Staking,
		"contracts.fast_unstake": cfg.Contracts.FastUnstake,
		"contracts.multicall":    cfg.Contracts.Multicall,
	} {
		if !common.IsHexAddress(addr) {
			errs = append(errs, fmt.Sprintf("%s is not a valid address: %q", name, addr))
		}
	}
	for name, path := range map[string]string{
		"contracts.staking_abi":      cfg.Contracts.StakingABI,
		"contracts.fast_unstake_abi": cfg.Contracts.FastUnstakeABI,
	} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			errs = append(errs, fmt.Sprintf("%s file not found: %s", name, path))
		}
	}

	if _, err := cfg.ExistentialDeposit(); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := cfg.FeeReserve(); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.Staking.Confirmations < 1 {
		errs = append(errs, "confirmations must be at least 1")
	}

	if cfg.Timeouts.RPC <= 0 {
		errs = append(errs, "rpc timeout must be positive")
	}
	if cfg.Timeouts.Receipt <= 0 {
		errs = append(errs, "receipt timeout must be positive")
	}
	if cfg.Timeouts.PollInterval <= 0 {
		errs = append(errs, "poll_interval must be positive")
	}

	if cfg.Wallet.Address != "" && !common.IsHexAddress(cfg.Wallet.Address) {
		errs = append(errs, fmt.Sprintf("wallet address is not valid: %q", cfg.Wallet.Address))
	}

	if len(errs) > 0 {
		slices.Sort(errs)
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateURL(raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if !slices.Contains(schemes, u.Scheme) || u.Host == "" {
		return fmt.Errorf("unsupported endpoint %q", raw)
	}
	return nil
}
