package events

import (
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altuslabsxyz/stakekit/internal/domain/account"
)

func TestBus_BalanceFanOut(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	first := make(chan BalanceEvent, 1)
	second := make(chan BalanceEvent, 1)
	bus.SubscribeBalances(first)
	bus.SubscribeBalances(second)

	ev := BalanceEvent{
		Address:  "0x01",
		Snapshot: account.Snapshot{Address: "0x01", Balances: account.Balances{Free: math.NewInt(5)}},
	}
	assert.Equal(t, 2, bus.PublishBalance(ev))

	for _, ch := range []chan BalanceEvent{first, second} {
		select {
		case got := <-ch:
			assert.Equal(t, "0x01", got.Address)
			assert.Equal(t, "5", got.Snapshot.Balances.Free.String())
		case <-time.After(time.Second):
			t.Fatal("balance event not delivered")
		}
	}
}

func TestBus_KindsAreSeparate(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	notes := make(chan Notification, 1)
	bus.SubscribeNotifications(notes)

	assert.Equal(t, 0, bus.PublishSyncStatus(SyncEvent{ID: "balances", Status: "syncing"}))
	assert.Equal(t, 1, bus.PublishNotification(Notification{Title: "Pending"}))
	assert.Equal(t, "Pending", (<-notes).Title)
}

func TestBus_Close(t *testing.T) {
	bus := NewBus()

	ch := make(chan ExternalAccountEvent, 1)
	sub := bus.SubscribeExternalAccounts(ch)
	require.Equal(t, 1, bus.Subscribers())

	bus.Close()
	assert.Equal(t, 0, bus.Subscribers())

	select {
	case _, ok := <-sub.Err():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}

	assert.Equal(t, 0, bus.PublishExternalAccount(ExternalAccountEvent{Address: "0x02"}))
}
