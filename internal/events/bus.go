// Package events is the typed publish/subscribe bus that carries balance,
// account discovery, sync status and notification messages between the
// synchronizer, the metadata store and the presentation layer.
package events

import (
	"github.com/ethereum/go-ethereum/event"

	"github.com/altuslabsxyz/stakekit/internal/domain/account"
)

// Message kinds.
const (
	KindAccountBalance  = "new-account-balance"
	KindExternalAccount = "new-external-account"
	KindSyncStatus      = "new-sync-status"
	KindNotification    = "notification"
)

// BalanceEvent carries the full current snapshot of an address.
type BalanceEvent struct {
	Address  string
	Snapshot account.Snapshot
}

// ExternalAccountEvent reports a stash address seen in a ledger that is not
// tracked.
type ExternalAccountEvent struct {
	Address string
}

// SyncEvent reports a sync status change.
type SyncEvent struct {
	ID     string
	Status string
}

// Notification is a user-visible title and subtitle.
type Notification struct {
	Title    string
	Subtitle string
}

// Bus fans messages out to subscribers. Sends block until every subscriber
// has received the value, so subscribers should use buffered channels and
// keep draining them.
type Bus struct {
	balances      event.Feed
	external      event.Feed
	syncStatus    event.Feed
	notifications event.Feed
	scope         event.SubscriptionScope
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// PublishBalance sends a balance event. It returns the number of receivers.
func (b *Bus) PublishBalance(ev BalanceEvent) int {
	return b.balances.Send(ev)
}

// PublishExternalAccount sends an external account event.
func (b *Bus) PublishExternalAccount(ev ExternalAccountEvent) int {
	return b.external.Send(ev)
}

// PublishSyncStatus sends a sync status event.
func (b *Bus) PublishSyncStatus(ev SyncEvent) int {
	return b.syncStatus.Send(ev)
}

// PublishNotification sends a notification.
func (b *Bus) PublishNotification(n Notification) int {
	return b.notifications.Send(n)
}

// SubscribeBalances delivers balance events to ch.
func (b *Bus) SubscribeBalances(ch chan<- BalanceEvent) event.Subscription {
	return b.scope.Track(b.balances.Subscribe(ch))
}

// SubscribeExternalAccounts delivers external account events to ch.
func (b *Bus) SubscribeExternalAccounts(ch chan<- ExternalAccountEvent) event.Subscription {
	return b.scope.Track(b.external.Subscribe(ch))
}

// SubscribeSyncStatus delivers sync status events to ch.
func (b *Bus) SubscribeSyncStatus(ch chan<- SyncEvent) event.Subscription {
	return b.scope.Track(b.syncStatus.Subscribe(ch))
}

// SubscribeNotifications delivers notifications to ch.
func (b *Bus) SubscribeNotifications(ch chan<- Notification) event.Subscription {
	return b.scope.Track(b.notifications.Subscribe(ch))
}

// Subscribers returns the number of live subscriptions.
func (b *Bus) Subscribers() int {
	return b.scope.Count()
}

// Close unsubscribes everything. Later subscriptions are closed immediately.
func (b *Bus) Close() {
	b.scope.Close()
}
