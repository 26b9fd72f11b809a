package substrate

import (
	"testing"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	accountHex = "03000000000000000100000000000000" +
		"64000000000000000000000000000000" +
		"00000000000000000000000000000000" +
		"0a000000000000000000000000000000" +
		"00000000000000000000000000000000"
	ledgerHex     = "1111111111111111111111111111111111111111c8a004281c00"
	locksHex      = "047374616b696e67203200000000000000000000000000000002"
	payeeHex      = "032222222222222222222222222222222222222222"
	poolMemberHex = "05000000e8030000000000000000000000000000"
	nominatorsHex = "082222222222222222222222222222222222222222" +
		"33333333333333333333333333333333333333330400000000"
)

func TestDecodeAccountState(t *testing.T) {
	entries := make([]entry, len(accountItems))
	entries[idxLedger] = entry{seen: true, data: mustHex(t, ledgerHex)}
	entries[idxAccount] = entry{seen: true, data: mustHex(t, accountHex)}
	entries[idxLocks] = entry{seen: true, data: mustHex(t, locksHex)}
	entries[idxPayee] = entry{seen: true, data: mustHex(t, payeeHex)}
	entries[idxPoolMember] = entry{seen: true, data: mustHex(t, poolMemberHex)}
	entries[idxClaimPermission] = entry{seen: true, data: []byte{0x03}}
	entries[idxNominators] = entry{seen: true, data: mustHex(t, nominatorsHex)}

	st, err := decodeAccountState(entries)
	require.NoError(t, err)

	require.NotNil(t, st.Ledger)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", st.Ledger.Stash)
	assert.Equal(t, "50", st.Ledger.Total.String())
	assert.Equal(t, "40", st.Ledger.Active.String())
	require.Len(t, st.Ledger.Unlocking, 1)
	assert.Equal(t, "10", st.Ledger.Unlocking[0].Value.String())
	assert.Equal(t, uint32(7), st.Ledger.Unlocking[0].Era)

	require.NotNil(t, st.Account)
	assert.Equal(t, uint32(3), st.Account.Nonce)
	assert.Equal(t, "100", st.Account.Free.String())
	assert.Equal(t, "0", st.Account.Reserved.String())
	assert.Equal(t, "10", st.Account.Frozen.String())

	require.Len(t, st.Locks, 1)
	assert.Equal(t, "staking ", st.Locks[0].ID)
	assert.Equal(t, "50", st.Locks[0].Amount.String())
	assert.Equal(t, "All", st.Locks[0].Reasons)

	assert.Equal(t, map[string]string{"Account": "0x2222222222222222222222222222222222222222"}, st.Payee)

	require.NotNil(t, st.PoolMember)
	assert.Equal(t, uint32(5), st.PoolMember.PoolID)
	assert.Equal(t, "1000", st.PoolMember.Points.String())
	assert.Equal(t, "PermissionlessAll", st.ClaimPermission)

	require.NotNil(t, st.Nominators)
	assert.Equal(t, []string{
		"0x2222222222222222222222222222222222222222",
		"0x3333333333333333333333333333333333333333",
	}, st.Nominators.Targets)
	assert.Equal(t, uint32(4), st.Nominators.SubmittedIn)
}

func TestDecodeAccountState_Absent(t *testing.T) {
	entries := make([]entry, len(accountItems))

	st, err := decodeAccountState(entries)
	require.NoError(t, err)
	assert.Nil(t, st.Account)
	assert.Nil(t, st.Ledger)
	assert.Nil(t, st.Payee)
	assert.Nil(t, st.Nominators)

	// seen but empty is the zero account
	entries[idxAccount] = entry{seen: true}
	st, err = decodeAccountState(entries)
	require.NoError(t, err)
	require.NotNil(t, st.Account)
	assert.Equal(t, "0", st.Account.Free.String())
}

func TestDecodeAccountState_Corrupt(t *testing.T) {
	entries := make([]entry, len(accountItems))
	entries[idxLedger] = entry{seen: true, data: []byte{0x11, 0x11}}

	_, err := decodeAccountState(entries)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Staking.Ledger")
}

func TestRewardDestination(t *testing.T) {
	tests := []struct {
		data []byte
		want any
	}{
		{[]byte{0x00}, "Staked"},
		{[]byte{0x01}, "Stash"},
		{[]byte{0x02}, "Controller"},
		{[]byte{0x04}, "None"},
	}
	for _, tt := range tests {
		var dest RewardDestination
		require.NoError(t, codec.Decode(tt.data, &dest))
		assert.Equal(t, tt.want, dest.Human())
	}

	var dest RewardDestination
	assert.Error(t, codec.Decode([]byte{0x09}, &dest))
}
