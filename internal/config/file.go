package config

// FileConfig represents the raw stakectl.toml file contents.
// All fields are pointers to distinguish "not set" from "set to zero/false".
type FileConfig struct {
	Network   FileNetworkConfig   `toml:"network"`
	Contracts FileContractsConfig `toml:"contracts"`
	Staking   FileStakingConfig   `toml:"staking"`
	Timeouts  FileTimeoutConfig   `toml:"timeouts"`
	Wallet    FileWalletConfig    `toml:"wallet"`
	Log       FileLogConfig       `toml:"log"`
}

// FileNetworkConfig is the TOML representation of NetworkConfig.
type FileNetworkConfig struct {
	Name        *string `toml:"name"`
	ChainID     *uint64 `toml:"chain_id"`
	EVMRPC      *string `toml:"evm_rpc"`
	SubstrateWS *string `toml:"substrate_ws"`
	Unit        *string `toml:"unit"`
	Decimals    *uint8  `toml:"decimals"`
}

// FileContractsConfig is the TOML representation of ContractsConfig.
type FileContractsConfig struct {
	Staking        *string `toml:"staking"`
	FastUnstake    *string `toml:"fast_unstake"`
	Multicall      *string `toml:"multicall"`
	StakingABI     *string `toml:"staking_abi"`
	FastUnstakeABI *string `toml:"fast_unstake_abi"`
}

// FileStakingConfig is the TOML representation of StakingConfig.
type FileStakingConfig struct {
	ExistentialDeposit *string `toml:"existential_deposit"`
	FeeReserve         *string `toml:"fee_reserve"`
	Confirmations      *uint64 `toml:"confirmations"`
}

// FileTimeoutConfig is the TOML representation of TimeoutConfig.
// Durations are strings such as "30s".
type FileTimeoutConfig struct {
	RPC          *string `toml:"rpc"`
	Receipt      *string `toml:"receipt"`
	PollInterval *string `toml:"poll_interval"`
}

// FileWalletConfig is the TOML representation of WalletConfig.
type FileWalletConfig struct {
	Keystore *string `toml:"keystore"`
	Address  *string `toml:"address"`
}

// FileLogConfig is the TOML representation of LogConfig.
type FileLogConfig struct {
	Level *string `toml:"level"`
	Color *bool   `toml:"color"`
}

// ToFile renders cfg with every field set, for display and for writing.
func (c *Config) ToFile() *FileConfig {
	str := func(s string) *string { return &s }
	return &FileConfig{
		Network: FileNetworkConfig{
			Name:        str(c.Network.Name),
			ChainID:     &c.Network.ChainID,
			EVMRPC:      str(c.Network.EVMRPC),
			SubstrateWS: str(c.Network.SubstrateWS),
			Unit:        str(c.Network.Unit),
			Decimals:    &c.Network.Decimals,
		},
		Contracts: FileContractsConfig{
			Staking:        str(c.Contracts.Staking),
			FastUnstake:    str(c.Contracts.FastUnstake),
			Multicall:      str(c.Contracts.Multicall),
			StakingABI:     str(c.Contracts.StakingABI),
			FastUnstakeABI: str(c.Contracts.FastUnstakeABI),
		},
		Staking: FileStakingConfig{
			ExistentialDeposit: str(c.Staking.ExistentialDeposit),
			FeeReserve:         str(c.Staking.FeeReserve),
			Confirmations:      &c.Staking.Confirmations,
		},
		Timeouts: FileTimeoutConfig{
			RPC:          str(c.Timeouts.RPC.String()),
			Receipt:      str(c.Timeouts.Receipt.String()),
			PollInterval: str(c.Timeouts.PollInterval.String()),
		},
		Wallet: FileWalletConfig{
			Keystore: str(c.Wallet.Keystore),
			Address:  str(c.Wallet.Address),
		},
		Log: FileLogConfig{
			Level: str(c.Log.Level),
			Color: &c.Log.Color,
		},
	}
}
