package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ConfigFileName is the default config file name.
const ConfigFileName = "stakectl.toml"

// Environment variable names
const (
	EnvNetwork       = "STAKEKIT_NETWORK"
	EnvChainID       = "STAKEKIT_CHAIN_ID"
	EnvEVMRPC        = "STAKEKIT_EVM_RPC"
	EnvSubstrateWS   = "STAKEKIT_SUBSTRATE_WS"
	EnvKeystore      = "STAKEKIT_KEYSTORE"
	EnvAddress       = "STAKEKIT_ADDRESS"
	EnvLogLevel      = "STAKEKIT_LOG_LEVEL"
	EnvNoColor       = "NO_COLOR"
	EnvConfirmations = "STAKEKIT_CONFIRMATIONS"
	EnvFeeReserve    = "STAKEKIT_FEE_RESERVE"
)

// Loader loads configuration from file, environment, and applies defaults.
type Loader struct {
	homeDir    string
	configPath string // explicit config path (empty = use default)
}

// NewLoader creates a new config loader. configPath overrides
// homeDir/stakectl.toml when set.
func NewLoader(homeDir, configPath string) *Loader {
	if homeDir == "" {
		homeDir = DefaultHomeDir()
	}
	return &Loader{homeDir: homeDir, configPath: configPath}
}

// Path returns the config file path the loader reads.
func (l *Loader) Path() string {
	if l.configPath != "" {
		return l.configPath
	}
	return filepath.Join(l.homeDir, ConfigFileName)
}

// Load loads configuration with priority: defaults < file < env.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	fileCfg, err := l.loadFile()
	if err != nil {
		return nil, err
	}
	if fileCfg != nil {
		if err := mergeFileConfig(cfg, fileCfg); err != nil {
			return nil, fmt.Errorf("invalid config in %s: %w", l.Path(), err)
		}
	}

	if err := applyEnvVars(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile returns nil if no config file exists.
func (l *Loader) loadFile() (*FileConfig, error) {
	data, err := os.ReadFile(l.Path())
	if err != nil {
		if os.IsNotExist(err) && l.configPath == "" {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fileCfg FileConfig
	if err := toml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("invalid TOML in %s: %w", l.Path(), err)
	}
	return &fileCfg, nil
}

// mergeFileConfig merges non-nil FileConfig values into Config.
func mergeFileConfig(cfg *Config, file *FileConfig) error {
	setString(&cfg.Network.Name, file.Network.Name)
	if file.Network.ChainID != nil {
		cfg.Network.ChainID = *file.Network.ChainID
	}
	setString(&cfg.Network.EVMRPC, file.Network.EVMRPC)
	setString(&cfg.Network.SubstrateWS, file.Network.SubstrateWS)
	setString(&cfg.Network.Unit, file.Network.Unit)
	if file.Network.Decimals != nil {
		cfg.Network.Decimals = *file.Network.Decimals
	}

	setString(&cfg.Contracts.Staking, file.Contracts.Staking)
	setString(&cfg.Contracts.FastUnstake, file.Contracts.FastUnstake)
	setString(&cfg.Contracts.Multicall, file.Contracts.Multicall)
	setString(&cfg.Contracts.StakingABI, file.Contracts.StakingABI)
	setString(&cfg.Contracts.FastUnstakeABI, file.Contracts.FastUnstakeABI)

	setString(&cfg.Staking.ExistentialDeposit, file.Staking.ExistentialDeposit)
	setString(&cfg.Staking.FeeReserve, file.Staking.FeeReserve)
	if file.Staking.Confirmations != nil {
		cfg.Staking.Confirmations = *file.Staking.Confirmations
	}

	for _, d := range []struct {
		name string
		src  *string
		dst  *time.Duration
	}{
		{"timeouts.rpc", file.Timeouts.RPC, &cfg.Timeouts.RPC},
		{"timeouts.receipt", file.Timeouts.Receipt, &cfg.Timeouts.Receipt},
		{"timeouts.poll_interval", file.Timeouts.PollInterval, &cfg.Timeouts.PollInterval},
	} {
		if d.src == nil {
			continue
		}
		v, err := time.ParseDuration(*d.src)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = v
	}

	setString(&cfg.Wallet.Keystore, file.Wallet.Keystore)
	setString(&cfg.Wallet.Address, file.Wallet.Address)

	setString(&cfg.Log.Level, file.Log.Level)
	if file.Log.Color != nil {
		cfg.Log.Color = *file.Log.Color
	}
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// applyEnvVars applies environment variable overrides to config.
func applyEnvVars(cfg *Config) error {
	if v := os.Getenv(EnvNetwork); v != "" {
		cfg.Network.Name = v
	}
	if v := os.Getenv(EnvChainID); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvChainID, err)
		}
		cfg.Network.ChainID = id
	}
	if v := os.Getenv(EnvEVMRPC); v != "" {
		cfg.Network.EVMRPC = v
	}
	if v := os.Getenv(EnvSubstrateWS); v != "" {
		cfg.Network.SubstrateWS = v
	}
	if v := os.Getenv(EnvKeystore); v != "" {
		cfg.Wallet.Keystore = v
	}
	if v := os.Getenv(EnvAddress); v != "" {
		cfg.Wallet.Address = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if _, ok := os.LookupEnv(EnvNoColor); ok {
		cfg.Log.Color = false
	}
	if v := os.Getenv(EnvConfirmations); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvConfirmations, err)
		}
		cfg.Staking.Confirmations = n
	}
	if v := os.Getenv(EnvFeeReserve); v != "" {
		cfg.Staking.FeeReserve = v
	}
	return nil
}

// Render returns cfg as TOML.
func Render(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	enc.SetIndentTables(true)
	if err := enc.Encode(cfg.ToFile()); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	return buf.Bytes(), nil
}

// Write saves cfg to path, creating parent directories.
func Write(path string, cfg *Config) error {
	data, err := Render(cfg)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	header := []byte("# stakectl configuration\n# Priority: default < stakectl.toml < environment < CLI flag\n\n")
	if err := os.WriteFile(path, append(header, data...), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
