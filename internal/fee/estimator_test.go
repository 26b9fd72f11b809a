package fee

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altuslabsxyz/stakekit/internal/application/ports"
	"github.com/altuslabsxyz/stakekit/pkg/staking"
)

type mockOracle struct {
	gas      uint64
	price    *big.Int
	gasErr   error
	priceErr error

	lastMsg ports.CallMsg
	calls   int
}

func (m *mockOracle) EstimateGas(ctx context.Context, msg ports.CallMsg) (uint64, error) {
	m.calls++
	m.lastMsg = msg
	if m.gasErr != nil {
		return 0, m.gasErr
	}
	return m.gas, nil
}

func (m *mockOracle) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if m.priceErr != nil {
		return nil, m.priceErr
	}
	return m.price, nil
}

var sender = common.HexToAddress("0x1234567890123456789012345678901234567890")

func TestEstimate(t *testing.T) {
	enc := staking.MustNewEncoder(staking.DefaultAddresses())
	tx, err := enc.Encode(staking.ContractStaking, staking.MethodBond, "1000000000000000000", false)
	require.NoError(t, err)

	oracle := &mockOracle{gas: 50_000, price: big.NewInt(1_000_000_000)}
	est := NewEstimator(oracle, log.NewNopLogger())

	fee, ok := est.Estimate(context.Background(), tx, sender)
	require.True(t, ok)
	assert.True(t, fee.IsPositive())
	assert.Equal(t, "50000000000000", fee.String())

	assert.Equal(t, sender, oracle.lastMsg.From)
	assert.Equal(t, staking.DefaultStakingAddress, oracle.lastMsg.To)
	assert.Equal(t, tx.Calldata, oracle.lastMsg.Data)
}

func TestEstimate_FailuresAreUnknown(t *testing.T) {
	enc := staking.MustNewEncoder(staking.DefaultAddresses())
	tx, err := enc.Chill()
	require.NoError(t, err)

	tests := []struct {
		name   string
		oracle *mockOracle
	}{
		{"gas simulation fails", &mockOracle{gasErr: errors.New("execution reverted")}},
		{"gas price fails", &mockOracle{gas: 21000, priceErr: errors.New("connection refused")}},
		{"nil gas price", &mockOracle{gas: 21000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := NewEstimator(tt.oracle, nil)
			assert.NotPanics(t, func() {
				_, ok := est.Estimate(context.Background(), tx, sender)
				assert.False(t, ok)
			})
		})
	}
}

func TestLargestBondFee(t *testing.T) {
	enc := staking.MustNewEncoder(staking.DefaultAddresses())
	oracle := &mockOracle{gas: 10, price: big.NewInt(3)}
	est := NewEstimator(oracle, nil)

	fee := est.LargestBondFee(context.Background(), enc, sender, math.NewInt(100), math.NewInt(40))
	assert.Equal(t, "30", fee.String())

	expected, err := enc.BondExtra(big.NewInt(60))
	require.NoError(t, err)
	assert.Equal(t, expected.Calldata, oracle.lastMsg.Data)

	// reserve above transferrable bonds zero
	est.LargestBondFee(context.Background(), enc, sender, math.NewInt(10), math.NewInt(40))
	expected, err = enc.BondExtra(big.NewInt(0))
	require.NoError(t, err)
	assert.Equal(t, expected.Calldata, oracle.lastMsg.Data)

	failing := NewEstimator(&mockOracle{gasErr: errors.New("boom")}, nil)
	assert.True(t, failing.LargestBondFee(context.Background(), enc, sender, math.NewInt(100), math.ZeroInt()).IsZero())
}
