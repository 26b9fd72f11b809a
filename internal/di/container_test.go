package di

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altuslabsxyz/stakekit/internal/application/ports"
	"github.com/altuslabsxyz/stakekit/internal/config"
	domaincommon "github.com/altuslabsxyz/stakekit/internal/domain/common"
	"github.com/altuslabsxyz/stakekit/internal/infrastructure/notify"
	"github.com/altuslabsxyz/stakekit/internal/submit"
)

type stubChain struct{}

func (stubChain) EstimateGas(context.Context, ports.CallMsg) (uint64, error) { return 21_000, nil }
func (stubChain) SuggestGasPrice(context.Context) (*big.Int, error)          { return big.NewInt(2), nil }
func (stubChain) ChainID(context.Context) (*big.Int, error)                  { return big.NewInt(8408), nil }
func (stubChain) NextNonce(context.Context, common.Address) (uint64, error)  { return 0, nil }
func (stubChain) Balance(context.Context, common.Address) (*big.Int, error)  { return big.NewInt(0), nil }

func (stubChain) BuildTransaction(_ context.Context, msg ports.CallMsg, nonce uint64) (*types.Transaction, error) {
	return types.NewTransaction(nonce, msg.To, big.NewInt(0), 21_000, big.NewInt(2), msg.Data), nil
}

func (stubChain) SendTransaction(_ context.Context, tx *types.Transaction) (common.Hash, error) {
	return tx.Hash(), nil
}

func (stubChain) WaitForReceipt(context.Context, common.Hash, uint64) (*ports.Receipt, error) {
	return &ports.Receipt{Success: true}, nil
}

type stubAccounts struct {
	subscribed []string
}

func (s *stubAccounts) SubscribeAccount(_ context.Context, address string, _ func(ports.AccountState)) (func(), error) {
	s.subscribed = append(s.subscribed, address)
	return func() {}, nil
}

func (s *stubAccounts) ActiveEra(context.Context) (uint32, bool, error) { return 3, true, nil }

func TestContainer_Wiring(t *testing.T) {
	rec := &notify.Recorder{}
	accounts := &stubAccounts{}
	c := New(config.DefaultConfig(),
		WithChainClient(stubChain{}),
		WithAccountSource(accounts),
		WithNotifier(rec),
	)
	defer c.Close()
	ctx := context.Background()

	enc, err := c.Encoder()
	require.NoError(t, err)
	again, err := c.Encoder()
	require.NoError(t, err)
	assert.Same(t, enc, again)

	sync, err := c.Synchronizer(ctx)
	require.NoError(t, err)
	require.NoError(t, sync.Sync(ctx, []string{"0x1111111111111111111111111111111111111111"}))
	assert.Equal(t, []string{"0x1111111111111111111111111111111111111111"}, accounts.subscribed)

	meta, err := c.TxMeta()
	require.NoError(t, err)
	assert.NotNil(t, meta)

	est, err := c.Estimator(ctx)
	require.NoError(t, err)
	tx, err := enc.Chill()
	require.NoError(t, err)
	fee, ok := est.Estimate(ctx, tx, common.Address{})
	require.True(t, ok)
	assert.Equal(t, "42000", fee.String())

	ctrl, err := c.Controller(ctx, submit.Options{})
	require.NoError(t, err)
	ctrl.Update(ctx, tx, common.HexToAddress("0x1111111111111111111111111111111111111111"))
	_, err = ctrl.Submit(ctx)
	assert.ErrorIs(t, err, submit.ErrSignerMismatch)
	require.NotEmpty(t, rec.All())
	assert.Equal(t, submit.NotifyWalletNotFound, rec.All()[0])
}

func TestContainer_EncoderABIOverride(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Contracts.StakingABI = filepath.Join(t.TempDir(), "missing.json")
	c := New(cfg)
	defer c.Close()

	_, err := c.Encoder()
	require.Error(t, err)
	assert.True(t, domaincommon.ShouldSilenceUsage(err))

	path := filepath.Join(t.TempDir(), "staking.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"type":"function","name":"chill","inputs":[],"outputs":[]}]`), 0o644))
	cfg.Contracts.StakingABI = path
	c2 := New(cfg)
	defer c2.Close()

	enc, err := c2.Encoder()
	require.NoError(t, err)
	_, err = enc.Chill()
	assert.NoError(t, err)
	_, err = enc.Unbond(big.NewInt(1))
	assert.Error(t, err)
}
