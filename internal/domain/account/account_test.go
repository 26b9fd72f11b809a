package account

import (
	"testing"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBalances_EdReserved(t *testing.T) {
	ed := math.NewInt(10)

	tests := []struct {
		name  string
		locks []Lock
		want  int64
	}{
		{"no locks", nil, 10},
		{"lock below ed", []Lock{{ID: "staking", Amount: math.NewInt(4)}}, 6},
		{"largest lock covers ed", []Lock{{ID: "staking", Amount: math.NewInt(3)}, {ID: "vesting", Amount: math.NewInt(25)}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Balances{Free: math.NewInt(100), Locks: tt.locks}
			assert.Equal(t, math.NewInt(tt.want).String(), b.EdReserved(ed).String())
		})
	}
}

func TestBalances_Spendable(t *testing.T) {
	b := Balances{
		Free:   math.NewInt(100),
		Frozen: math.NewInt(10),
		Locks:  []Lock{{ID: "staking", Amount: math.NewInt(5)}},
	}
	// ed 10, max lock 5: edReserved 5
	assert.Equal(t, "85", b.Spendable(math.NewInt(10)).String())
}

func TestSnapshot_TransferOptions(t *testing.T) {
	s := Snapshot{
		Address: "0x01",
		Ledger: &Ledger{
			Stash:  "0x01",
			Active: math.NewInt(50),
			Total:  math.NewInt(80),
			Unlocking: []UnlockChunk{
				{Era: 5, Value: math.NewInt(10)},
				{Era: 12, Value: math.NewInt(20)},
			},
		},
		Balances: Balances{Free: math.NewInt(100), Frozen: math.NewInt(80)},
	}

	opts := s.TransferOptions(math.NewInt(1), math.NewInt(4), 10)
	assert.Equal(t, "15", opts.Transferrable.String())
	assert.Equal(t, "50", opts.Active.String())
	assert.Equal(t, "10", opts.TotalUnlocked.String())
	assert.Equal(t, "20", opts.TotalUnlocking.String())
	assert.Equal(t, 1, opts.UnlockingCount)

	poor := Snapshot{Balances: Balances{Free: math.NewInt(3), Frozen: math.ZeroInt()}}
	assert.True(t, poor.TransferOptions(math.NewInt(1), math.NewInt(10), 0).Transferrable.IsZero())
}

func TestSnapshot_Status(t *testing.T) {
	assert.Equal(t, StatusNotStaking, Snapshot{}.Status())

	nominating := Snapshot{
		Ledger:      &Ledger{Active: math.NewInt(1)},
		Nominations: Nominations{Targets: []string{"0xaa"}},
	}
	assert.Equal(t, StatusNominating, nominating.Status())

	unstaking := Snapshot{
		Ledger: &Ledger{Active: math.ZeroInt(), Unlocking: []UnlockChunk{{Era: 3, Value: math.NewInt(1)}}},
	}
	assert.Equal(t, StatusUnstaking, unstaking.Status())

	inactive := Snapshot{Ledger: &Ledger{Active: math.NewInt(5)}, Nominations: DefaultNominations()}
	assert.Equal(t, StatusInactive, inactive.Status())
}

func TestSnapshot_Clone(t *testing.T) {
	orig := Snapshot{
		Ledger:      &Ledger{Unlocking: []UnlockChunk{{Era: 1, Value: math.NewInt(1)}}},
		Payee:       &Payee{Destination: PayeeStaked},
		Nominations: Nominations{Targets: []string{"0xaa"}},
	}
	clone := orig.Clone()

	clone.Ledger.Unlocking[0].Era = 9
	clone.Payee.Destination = PayeeStash
	clone.Nominations.Targets[0] = "0xbb"

	require.NotNil(t, orig.Ledger)
	assert.Equal(t, uint32(1), orig.Ledger.Unlocking[0].Era)
	assert.Equal(t, PayeeStaked, orig.Payee.Destination)
	assert.Equal(t, "0xaa", orig.Nominations.Targets[0])
}
