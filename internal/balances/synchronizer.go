// Package balances keeps per-address staking state in sync with the chain and
// republishes every change on the event bus.
package balances

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"

	"cosmossdk.io/log"
	"cosmossdk.io/math"

	"github.com/altuslabsxyz/stakekit/internal/application/ports"
	"github.com/altuslabsxyz/stakekit/internal/domain/account"
	"github.com/altuslabsxyz/stakekit/internal/events"
	"github.com/altuslabsxyz/stakekit/internal/syncstatus"
)

// Synchronizer owns one subscription per tracked address. Consumers only get
// copies of the stored state.
type Synchronizer struct {
	subscriber ports.AccountSubscriber
	bus        *events.Bus
	tracker    *syncstatus.Tracker
	logger     log.Logger

	// syncMu serializes Sync and UnsubscribeAll.
	syncMu sync.Mutex

	mu          sync.RWMutex
	accounts    []string
	unsubs      map[string]func()
	ledgers     map[string]account.Ledger
	balances    map[string]account.Balances
	payees      map[string]account.Payee
	nominations map[string]account.Nominations
	pools       map[string]account.PoolMembership
}

// NewSynchronizer creates a synchronizer. bus and tracker may be nil.
func NewSynchronizer(subscriber ports.AccountSubscriber, bus *events.Bus, tracker *syncstatus.Tracker, logger log.Logger) *Synchronizer {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Synchronizer{
		subscriber:  subscriber,
		bus:         bus,
		tracker:     tracker,
		logger:      logger.With("module", "balances"),
		unsubs:      make(map[string]func()),
		ledgers:     make(map[string]account.Ledger),
		balances:    make(map[string]account.Balances),
		payees:      make(map[string]account.Payee),
		nominations: make(map[string]account.Nominations),
		pools:       make(map[string]account.PoolMembership),
	}
}

// Sync makes the tracked set equal to addresses. Removed addresses are
// unsubscribed and forgotten; new ones are subscribed. Subscription failures
// are returned together after every address was attempted.
func (s *Synchronizer) Sync(ctx context.Context, addresses []string) error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	wanted := dedupe(addresses)
	s.removeUntracked(wanted)

	s.mu.Lock()
	var added []string
	for _, addr := range wanted {
		if !containsFold(s.accounts, addr) {
			added = append(added, addr)
			s.accounts = append(s.accounts, addr)
		}
	}
	s.mu.Unlock()

	if len(added) == 0 {
		s.settle()
		return nil
	}

	s.dispatch(syncstatus.StatusSyncing)

	var errs []error
	for _, addr := range added {
		address := addr
		unsub, err := s.subscriber.SubscribeAccount(ctx, address, func(st ports.AccountState) {
			s.handle(address, st)
		})
		if err != nil {
			s.logger.Error("failed to subscribe account", "address", address, "error", err)
			s.forget(address)
			errs = append(errs, fmt.Errorf("subscribe %s: %w", address, err))
			continue
		}

		s.mu.Lock()
		s.unsubs[address] = unsub
		s.mu.Unlock()
		s.logger.Debug("subscribed account", "address", address)
	}
	s.settle()
	return errors.Join(errs...)
}

// settle marks balances complete once every tracked address has reported.
func (s *Synchronizer) settle() {
	s.mu.RLock()
	complete := len(s.balances) == len(s.accounts)
	s.mu.RUnlock()
	if complete {
		s.dispatch(syncstatus.StatusComplete)
	}
}

func (s *Synchronizer) removeUntracked(wanted []string) {
	s.mu.RLock()
	var removed []string
	for _, addr := range s.accounts {
		if !containsFold(wanted, addr) {
			removed = append(removed, addr)
		}
	}
	s.mu.RUnlock()

	for _, addr := range removed {
		s.forget(addr)
		s.logger.Debug("removed account", "address", addr)
	}
}

// forget unsubscribes addr and deletes everything stored for it.
func (s *Synchronizer) forget(addr string) {
	s.mu.Lock()
	unsub := s.unsubs[addr]
	delete(s.unsubs, addr)
	delete(s.ledgers, addr)
	delete(s.balances, addr)
	delete(s.payees, addr)
	delete(s.nominations, addr)
	delete(s.pools, addr)
	kept := s.accounts[:0]
	for _, a := range s.accounts {
		if a != addr {
			kept = append(kept, a)
		}
	}
	s.accounts = kept
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// handle applies one joined callback for address.
func (s *Synchronizer) handle(address string, st ports.AccountState) {
	var (
		external string
		snapshot account.Snapshot
		publish  bool
		complete bool
	)

	s.mu.Lock()
	if !containsFold(s.accounts, address) {
		s.mu.Unlock()
		return
	}

	if st.Ledger == nil {
		delete(s.ledgers, address)
	} else {
		ledger := convertLedger(st.Ledger)
		if !containsFold(s.accounts, ledger.Stash) {
			external = ledger.Stash
		}
		s.ledgers[address] = ledger
	}

	if st.Account != nil {
		s.balances[address] = convertBalances(st.Account, st.Locks)
	}

	if payee, ok := NormalizePayee(st.Payee); ok {
		s.payees[address] = payee
	}

	if st.Nominators == nil {
		s.nominations[address] = account.DefaultNominations()
	} else {
		s.nominations[address] = account.Nominations{
			Targets:     append([]string{}, st.Nominators.Targets...),
			SubmittedIn: st.Nominators.SubmittedIn,
		}
	}

	if st.PoolMember == nil {
		delete(s.pools, address)
	} else {
		s.pools[address] = account.PoolMembership{
			PoolID:          st.PoolMember.PoolID,
			Points:          intOf(st.PoolMember.Points),
			ClaimPermission: st.ClaimPermission,
		}
	}

	snapshot, publish = s.snapshotLocked(address)
	complete = len(s.balances) == len(s.accounts)
	s.mu.Unlock()

	if external != "" && s.bus != nil {
		s.bus.PublishExternalAccount(events.ExternalAccountEvent{Address: external})
	}
	if publish && s.bus != nil {
		s.bus.PublishBalance(events.BalanceEvent{Address: address, Snapshot: snapshot})
	}
	if complete {
		s.dispatch(syncstatus.StatusComplete)
	}
}

// Snapshot returns a copy of the state of address. It reports false until
// the account entry has been received, even if other fields have.
func (s *Synchronizer) Snapshot(address string) (account.Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if strings.EqualFold(a, address) {
			return s.snapshotLocked(a)
		}
	}
	return account.Snapshot{}, false
}

func (s *Synchronizer) snapshotLocked(address string) (account.Snapshot, bool) {
	balances, ok := s.balances[address]
	if !ok {
		return account.Snapshot{}, false
	}
	snap := account.Snapshot{
		Address:     address,
		Balances:    balances,
		Nominations: s.nominations[address],
	}
	if l, ok := s.ledgers[address]; ok {
		snap.Ledger = &l
	}
	if p, ok := s.payees[address]; ok {
		snap.Payee = &p
	}
	if p, ok := s.pools[address]; ok {
		snap.Pool = &p
	}
	return snap.Clone(), true
}

// Nonce returns the last known account nonce, or zero.
func (s *Synchronizer) Nonce(address string) uint32 {
	snap, ok := s.Snapshot(address)
	if !ok {
		return 0
	}
	return snap.Balances.Nonce
}

// Accounts returns the tracked addresses in subscription order.
func (s *Synchronizer) Accounts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.accounts...)
}

// Subscriptions returns the number of active subscriptions.
func (s *Synchronizer) Subscriptions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.unsubs)
}

// UnsubscribeAll releases every subscription and clears all state.
func (s *Synchronizer) UnsubscribeAll() {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	s.mu.Lock()
	unsubs := s.unsubs
	s.accounts = nil
	s.unsubs = make(map[string]func())
	s.ledgers = make(map[string]account.Ledger)
	s.balances = make(map[string]account.Balances)
	s.payees = make(map[string]account.Payee)
	s.nominations = make(map[string]account.Nominations)
	s.pools = make(map[string]account.PoolMembership)
	s.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}

func (s *Synchronizer) dispatch(status syncstatus.Status) {
	if s.tracker != nil {
		s.tracker.Dispatch(syncstatus.IDBalances, status)
	}
}

// NormalizePayee converts a raw payee, either a bare destination or a
// single-entry map of destination to account, to a Payee.
func NormalizePayee(raw any) (account.Payee, bool) {
	switch v := raw.(type) {
	case nil:
		return account.Payee{}, false
	case string:
		if v == "" {
			return account.Payee{}, false
		}
		return account.Payee{Destination: v}, true
	case map[string]string:
		key, ok := firstKey(v)
		if !ok {
			return account.Payee{}, false
		}
		return account.Payee{Destination: key, Account: v[key]}, true
	case map[string]any:
		key, ok := firstKey(v)
		if !ok {
			return account.Payee{}, false
		}
		return account.Payee{Destination: key, Account: fmt.Sprint(v[key])}, true
	}
	return account.Payee{}, false
}

func firstKey[V any](m map[string]V) (string, bool) {
	if len(m) == 0 {
		return "", false
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys[0], true
}

func convertLedger(raw *ports.RawLedger) account.Ledger {
	ledger := account.Ledger{
		Stash:     raw.Stash,
		Active:    intOf(raw.Active),
		Total:     intOf(raw.Total),
		Unlocking: make([]account.UnlockChunk, 0, len(raw.Unlocking)),
	}
	for _, chunk := range raw.Unlocking {
		ledger.Unlocking = append(ledger.Unlocking, account.UnlockChunk{Era: chunk.Era, Value: intOf(chunk.Value)})
	}
	return ledger
}

func convertBalances(raw *ports.RawAccountInfo, locks []ports.RawLock) account.Balances {
	b := account.Balances{
		Nonce:    raw.Nonce,
		Free:     intOf(raw.Free),
		Reserved: intOf(raw.Reserved),
		Frozen:   intOf(raw.Frozen),
		Locks:    make([]account.Lock, 0, len(locks)),
	}
	for _, l := range locks {
		b.Locks = append(b.Locks, account.Lock{
			ID:      strings.TrimSpace(strings.TrimRight(l.ID, "\x00")),
			Amount:  intOf(l.Amount),
			Reasons: l.Reasons,
		})
	}
	return b
}

func intOf(v *big.Int) math.Int {
	if v == nil {
		return math.ZeroInt()
	}
	return math.NewIntFromBigInt(v)
}

func dedupe(addresses []string) []string {
	out := make([]string, 0, len(addresses))
	for _, a := range addresses {
		if a != "" && !containsFold(out, a) {
			out = append(out, a)
		}
	}
	return out
}

func containsFold(list []string, addr string) bool {
	for _, a := range list {
		if strings.EqualFold(a, addr) {
			return true
		}
	}
	return false
}
