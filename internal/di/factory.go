package di

import (
	"context"
	"fmt"
	"os"

	"cosmossdk.io/log"

	"github.com/altuslabsxyz/stakekit/internal/config"
	"github.com/altuslabsxyz/stakekit/internal/domain/common"
	"github.com/altuslabsxyz/stakekit/internal/infrastructure/evm"
	"github.com/altuslabsxyz/stakekit/internal/infrastructure/substrate"
	"github.com/altuslabsxyz/stakekit/pkg/staking"
)

// InfrastructureFactory builds and connects chain clients from config.
type InfrastructureFactory struct {
	cfg    *config.Config
	logger log.Logger
}

// NewInfrastructureFactory creates a factory for cfg.
func NewInfrastructureFactory(cfg *config.Config, logger log.Logger) *InfrastructureFactory {
	return &InfrastructureFactory{cfg: cfg, logger: logger}
}

// ConnectEVM dials the execution RPC and checks the chain ID.
func (f *InfrastructureFactory) ConnectEVM(ctx context.Context) (*evm.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeouts.RPC)
	defer cancel()

	client := evm.NewClient(f.cfg.Network.EVMRPC, evm.Options{
		PollInterval:   f.cfg.Timeouts.PollInterval,
		ReceiptTimeout: f.cfg.Timeouts.Receipt,
	}, f.logger)
	if err := client.Connect(ctx); err != nil {
		return nil, &common.ConnectionError{Endpoint: f.cfg.Network.EVMRPC, Err: err}
	}

	id, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, err
	}
	if id.Uint64() != f.cfg.Network.ChainID {
		client.Close()
		return nil, &common.ConfigError{
			Err: fmt.Errorf("endpoint %s reports chain ID %s, expected %d", f.cfg.Network.EVMRPC, id, f.cfg.Network.ChainID),
		}
	}
	return client, nil
}

// ConnectSubstrate dials the substrate websocket.
func (f *InfrastructureFactory) ConnectSubstrate(ctx context.Context) (*substrate.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeouts.RPC)
	defer cancel()

	client := substrate.NewClient(f.cfg.Network.SubstrateWS, f.logger)
	if err := client.Connect(ctx); err != nil {
		return nil, &common.ConnectionError{Endpoint: f.cfg.Network.SubstrateWS, Err: err}
	}
	return client, nil
}

// Encoder builds the staking encoder, loading ABI overrides from disk.
func (f *InfrastructureFactory) Encoder() (*staking.Encoder, error) {
	var opts []staking.Option
	if path := f.cfg.Contracts.StakingABI; path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &common.ConfigError{Err: fmt.Errorf("read staking ABI: %w", err)}
		}
		opts = append(opts, staking.WithStakingABI(string(data)))
	}
	if path := f.cfg.Contracts.FastUnstakeABI; path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &common.ConfigError{Err: fmt.Errorf("read fast unstake ABI: %w", err)}
		}
		opts = append(opts, staking.WithFastUnstakeABI(string(data)))
	}
	return staking.NewEncoder(f.cfg.Addresses(), opts...)
}
