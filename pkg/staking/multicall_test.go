package staking

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompose_Empty(t *testing.T) {
	enc := newTestEncoder(t)

	_, ok := enc.Compose()
	assert.False(t, ok)
}

func TestCompose_SinglePassthrough(t *testing.T) {
	enc := newTestEncoder(t)

	bond, err := enc.Encode(ContractStaking, MethodBond, "1000000000000000000", false)
	require.NoError(t, err)

	composed, ok := enc.Compose(bond)
	require.True(t, ok)
	assert.Equal(t, DefaultStakingAddress, composed.To)
	assert.Equal(t, bond.Calldata, composed.Calldata)
	assert.False(t, enc.IsBatch(composed))
}

func TestCompose_PreservesOrder(t *testing.T) {
	enc := newTestEncoder(t)

	tx1, err := enc.BondExtra(big.NewInt(1))
	require.NoError(t, err)
	tx2, err := enc.Chill()
	require.NoError(t, err)
	tx3, err := enc.RegisterFastUnstake()
	require.NoError(t, err)

	composed, ok := enc.Compose(tx1, tx2, tx3)
	require.True(t, ok)
	assert.Equal(t, DefaultMulticallAddress, composed.To)
	assert.Equal(t, selector("aggregate3((address,bool,bytes)[])"), composed.Selector())

	inner, err := enc.DecodeBatch(composed)
	require.NoError(t, err)
	require.Len(t, inner, 3)
	assert.True(t, inner[0].Equal(tx1))
	assert.True(t, inner[1].Equal(tx2))
	assert.True(t, inner[2].Equal(tx3))
}

func TestCompose_BondAndNominate(t *testing.T) {
	enc := newTestEncoder(t)

	bond, err := enc.Encode(ContractStaking, MethodBond, "1000000000000000000", true)
	require.NoError(t, err)
	nominate, err := enc.Encode(ContractStaking, MethodNominate, []common.Address{validatorA, validatorB})
	require.NoError(t, err)

	composed, ok := enc.Compose(bond, nominate)
	require.True(t, ok)

	calls, err := decodeCall3s(composed.Calldata[4:])
	require.NoError(t, err)
	require.Len(t, calls, 2)
	for _, c := range calls {
		assert.False(t, c.AllowFailure)
		assert.Equal(t, DefaultStakingAddress, c.Target)
	}
	assert.Equal(t, bond.Calldata, calls[0].CallData)
	assert.Equal(t, nominate.Calldata, calls[1].CallData)

	call, err := enc.Describe(composed)
	require.NoError(t, err)
	assert.Equal(t, ContractMulticall, call.Contract)
	require.Len(t, call.Inner, 2)
	assert.Equal(t, MethodBond, call.Inner[0].Method)
	assert.Equal(t, MethodNominate, call.Inner[1].Method)
}

func TestDecodeBatch_NotBatch(t *testing.T) {
	enc := newTestEncoder(t)

	chill, err := enc.Chill()
	require.NoError(t, err)

	_, err = enc.DecodeBatch(chill)
	require.ErrorIs(t, err, ErrNotBatch)

	calls, err := enc.Calls(chill)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.True(t, calls[0].Equal(chill))
}
