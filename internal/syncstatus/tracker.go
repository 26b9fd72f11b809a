// Package syncstatus tracks which parts of the session are still syncing.
package syncstatus

import (
	"sync"

	"github.com/altuslabsxyz/stakekit/internal/events"
)

// ID names a syncing concern.
type ID string

const (
	IDInitialization ID = "initialization"
	IDBalances       ID = "balances"
	IDEraStakers     ID = "era-stakers"
)

// Status is the sync state of one ID.
type Status string

const (
	StatusSyncing  Status = "syncing"
	StatusComplete Status = "complete"
)

// Tracker records the latest status per ID and publishes changes on the bus.
type Tracker struct {
	bus *events.Bus

	// publishMu keeps bus order equal to store order.
	publishMu sync.Mutex

	mu       sync.RWMutex
	statuses map[ID]Status
}

// NewTracker creates a tracker. bus may be nil.
func NewTracker(bus *events.Bus) *Tracker {
	return &Tracker{
		bus:      bus,
		statuses: make(map[ID]Status),
	}
}

// Dispatch records status for id and publishes it if it changed.
func (t *Tracker) Dispatch(id ID, status Status) {
	t.publishMu.Lock()
	defer t.publishMu.Unlock()

	t.mu.Lock()
	prev, ok := t.statuses[id]
	t.statuses[id] = status
	t.mu.Unlock()

	if ok && prev == status {
		return
	}
	if t.bus != nil {
		t.bus.PublishSyncStatus(events.SyncEvent{ID: string(id), Status: string(status)})
	}
}

// Status returns the status of id, or "" if it was never dispatched.
func (t *Tracker) Status(id ID) Status {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.statuses[id]
}

// IsSyncing reports whether any of ids is syncing. With no ids, every known
// ID is considered.
func (t *Tracker) IsSyncing(ids ...ID) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(ids) == 0 {
		for _, s := range t.statuses {
			if s == StatusSyncing {
				return true
			}
		}
		return false
	}
	for _, id := range ids {
		if t.statuses[id] == StatusSyncing {
			return true
		}
	}
	return false
}
