package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altuslabsxyz/stakekit/internal/application/ports"
	"github.com/altuslabsxyz/stakekit/internal/config"
	"github.com/altuslabsxyz/stakekit/internal/di"
	"github.com/altuslabsxyz/stakekit/internal/infrastructure/wallet"
	"github.com/altuslabsxyz/stakekit/internal/submit"
	"github.com/altuslabsxyz/stakekit/pkg/staking"
)

const sender = "0x1111111111111111111111111111111111111111"

type stubChain struct {
	mu   sync.Mutex
	sent []*types.Transaction
}

func (c *stubChain) EstimateGas(context.Context, ports.CallMsg) (uint64, error) { return 50_000, nil }
func (c *stubChain) SuggestGasPrice(context.Context) (*big.Int, error)          { return big.NewInt(10), nil }
func (c *stubChain) ChainID(context.Context) (*big.Int, error)                  { return big.NewInt(8408), nil }
func (c *stubChain) NextNonce(context.Context, common.Address) (uint64, error)  { return 3, nil }
func (c *stubChain) Balance(context.Context, common.Address) (*big.Int, error)  { return big.NewInt(0), nil }

func (c *stubChain) BuildTransaction(_ context.Context, msg ports.CallMsg, nonce uint64) (*types.Transaction, error) {
	return types.NewTransaction(nonce, msg.To, big.NewInt(0), 60_000, big.NewInt(10), msg.Data), nil
}

func (c *stubChain) SendTransaction(_ context.Context, tx *types.Transaction) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, tx)
	return tx.Hash(), nil
}

func (c *stubChain) WaitForReceipt(_ context.Context, hash common.Hash, confirmations uint64) (*ports.Receipt, error) {
	return &ports.Receipt{TxHash: hash, BlockNumber: 7, Success: true, GasUsed: 45_000, Confirmations: confirmations}, nil
}

func (c *stubChain) sentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

// stubAccounts reports every address as bonded and nominating. A non-empty
// stash makes every ledger belong to that account.
type stubAccounts struct {
	stash string
}

func (s stubAccounts) SubscribeAccount(_ context.Context, address string, handler func(ports.AccountState)) (func(), error) {
	stash := address
	if s.stash != "" {
		stash = s.stash
	}
	handler(ports.AccountState{
		Account: &ports.RawAccountInfo{
			Nonce:    3,
			Free:     big.NewInt(5_000_000_000_000_000_000),
			Reserved: big.NewInt(0),
			Frozen:   big.NewInt(1_000_000_000_000_000_000),
		},
		Ledger: &ports.RawLedger{
			Stash:  stash,
			Total:  big.NewInt(1_000_000_000_000_000_000),
			Active: big.NewInt(1_000_000_000_000_000_000),
		},
		Locks:      []ports.RawLock{{ID: "staking ", Amount: big.NewInt(1_000_000_000_000_000_000), Reasons: "All"}},
		Payee:      "Staked",
		Nominators: &ports.RawNominations{Targets: []string{"0x2222222222222222222222222222222222222222"}, SubmittedIn: 2},
	})
	return func() {}, nil
}

func (stubAccounts) ActiveEra(context.Context) (uint32, bool, error) { return 4, true, nil }

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		config.EnvNetwork, config.EnvChainID, config.EnvEVMRPC, config.EnvSubstrateWS,
		config.EnvKeystore, config.EnvAddress, config.EnvLogLevel, config.EnvConfirmations,
		config.EnvFeeReserve, wallet.EnvPrivateKey, wallet.EnvKeystorePassword,
	} {
		t.Setenv(k, "")
	}
}

// lockedBuffer is written by the spinner and the notifier concurrently.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func execute(t *testing.T, opts []di.Option, args ...string) (string, string, error) {
	t.Helper()
	clearEnv(t)

	cmd := NewRootCmd(opts...)
	var out bytes.Buffer
	var errOut lockedBuffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--home", t.TempDir(), "--no-color"}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestCalldata(t *testing.T) {
	out, _, err := execute(t, nil, "calldata", "chill")
	require.NoError(t, err)
	assert.Contains(t, out, "staking.chill")
	assert.Contains(t, out, hexutil.Encode(crypto.Keccak256([]byte("chill()"))[:4]))
}

func TestCalldata_BatchJSON(t *testing.T) {
	out, _, err := execute(t, nil, "calldata", "-o", "json",
		"--batch", "bond 1000 true",
		"--batch", "nominate 0x2222222222222222222222222222222222222222,0x3333333333333333333333333333333333333333",
	)
	require.NoError(t, err)

	var view calldataView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, staking.DefaultMulticallAddress.Hex(), view.To)
	require.Len(t, view.Call.Inner, 2)
	assert.Equal(t, staking.MethodBond, view.Call.Inner[0].Method)
	assert.Equal(t, staking.MethodNominate, view.Call.Inner[1].Method)
}

func TestCalldata_UnknownMethod(t *testing.T) {
	_, errOut, err := execute(t, nil, "calldata", "transfer", "1")
	require.Error(t, err)
	assert.Contains(t, errOut, `unknown method "transfer"`)
}

func TestConfigShowAndInit(t *testing.T) {
	out, _, err := execute(t, nil, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "zenchain_testnet")
	assert.Contains(t, out, "chain_id = 8408")

	clearEnv(t)
	home := t.TempDir()
	run := func(args ...string) error {
		cmd := NewRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs(append([]string{"--home", home}, args...))
		return cmd.Execute()
	}
	require.NoError(t, run("config", "init"))
	_, err = os.Stat(filepath.Join(home, config.ConfigFileName))
	require.NoError(t, err)
	assert.Error(t, run("config", "init"))
	assert.NoError(t, run("config", "init", "--force"))
}

func TestInvalidConfig(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, config.ConfigFileName), []byte("[log]\nlevel = \"loud\"\n"), 0o644))

	cmd := NewRootCmd()
	var errOut bytes.Buffer
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"--home", home, "calldata", "chill"})
	require.Error(t, cmd.Execute())
	assert.Contains(t, errOut.String(), "invalid log level")
	assert.Contains(t, errOut.String(), "Hint:")
}

func TestBond_DryRun(t *testing.T) {
	chain := &stubChain{}
	opts := []di.Option{di.WithChainClient(chain), di.WithAccountSource(stubAccounts{})}

	out, _, err := execute(t, opts, "bond", "1.5", "--nominate", "0x2222222222222222222222222222222222222222",
		"--from", sender, "--dry-run", "-o", "json")
	require.NoError(t, err)

	var result txResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "aggregate3", result.Call.Method)
	require.Len(t, result.Call.Inner, 2)
	assert.Equal(t, "1500000000000000000", result.Call.Inner[0].Args[0].Value)
	assert.True(t, result.FeeKnown)
	assert.Equal(t, "500000", result.Fee)
	assert.True(t, result.Funds)
	assert.False(t, result.Submitted)
	assert.Zero(t, chain.sentCount())
}

func TestChill_Submit(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	signer := wallet.NewLocalSigner(key)
	chain := &stubChain{}
	opts := []di.Option{
		di.WithChainClient(chain),
		di.WithAccountSource(stubAccounts{}),
		di.WithSigner(signer),
	}

	out, errOut, err := execute(t, opts, "chill", "--yes", "-o", "json")
	require.NoError(t, err, errOut)

	var result txResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.True(t, result.Submitted)
	assert.Equal(t, submit.StateFinalized, result.State)
	assert.Equal(t, uint64(7), result.Block)
	assert.Equal(t, signer.Address().Hex(), result.From)
	assert.Equal(t, 1, chain.sentCount())
	assert.Contains(t, errOut, "[Finalized]")
}

func TestSubmit_WrongSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	opts := []di.Option{
		di.WithChainClient(&stubChain{}),
		di.WithAccountSource(stubAccounts{}),
		di.WithSigner(wallet.NewLocalSigner(key)),
	}

	_, errOut, err := execute(t, opts, "chill", "--yes", "--from", sender)
	require.Error(t, err)
	assert.ErrorIs(t, err, submit.ErrSignerMismatch)
	assert.Contains(t, errOut, "[Wallet Not Found]")
}

func TestUnstake_BatchesChillAndUnbond(t *testing.T) {
	opts := []di.Option{di.WithChainClient(&stubChain{}), di.WithAccountSource(stubAccounts{})}

	out, _, err := execute(t, opts, "unstake", "--from", sender, "--dry-run", "-o", "json")
	require.NoError(t, err)

	var result txResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Call.Inner, 2)
	assert.Equal(t, staking.MethodChill, result.Call.Inner[0].Method)
	assert.Equal(t, staking.MethodUnbond, result.Call.Inner[1].Method)
	assert.Equal(t, "1000000000000000000", result.Call.Inner[1].Args[0].Value)
}

func TestBalances(t *testing.T) {
	opts := []di.Option{di.WithChainClient(&stubChain{}), di.WithAccountSource(stubAccounts{})}

	out, _, err := execute(t, opts, "balances", sender, "-o", "json")
	require.NoError(t, err)

	var view map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, sender, view["address"])
	assert.Equal(t, "nominating", view["status"])
	assert.EqualValues(t, 4, view["activeEra"])

	text, _, err := execute(t, opts, "balances", sender)
	require.NoError(t, err)
	assert.Contains(t, text, "Transferrable")
	assert.True(t, strings.Contains(text, "5 ZCX"), text)
}

func TestBalances_WatchReportsDiscoveredStash(t *testing.T) {
	clearEnv(t)
	const stash = "0x4444444444444444444444444444444444444444"

	cmd := NewRootCmd(di.WithChainClient(&stubChain{}), di.WithAccountSource(stubAccounts{stash: stash}))
	var errOut lockedBuffer
	cmd.SetOut(&lockedBuffer{})
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"--home", t.TempDir(), "--no-color", "balances", sender, "--watch"})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(errOut.String(), "[Discovered Stash] "+stash)
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("balances --watch did not stop")
	}
}
