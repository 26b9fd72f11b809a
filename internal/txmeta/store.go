// Package txmeta holds the session-wide transaction metadata: the current fee
// estimate, the sender, pending nonces and the single signed-payload slot.
package txmeta

import (
	"strings"
	"sync"

	"cosmossdk.io/math"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"

	"github.com/altuslabsxyz/stakekit/internal/domain/account"
	"github.com/altuslabsxyz/stakekit/internal/events"
)

// Payload is an unsigned transaction waiting to be signed.
type Payload struct {
	Tx          *types.Transaction
	SigningHash common.Hash
}

// BalanceSource looks up the last synchronized snapshot of an address.
type BalanceSource interface {
	Snapshot(address string) (account.Snapshot, bool)
}

// Store is shared by every submission in a session. All methods are safe for
// concurrent use.
type Store struct {
	existentialDeposit math.Int
	balances           BalanceSource

	mu             sync.RWMutex
	fees           math.Int
	sender         *common.Address
	senderBalances *account.Balances
	notEnoughFunds bool

	payload    *Payload
	payloadUID uint64

	pendingOrder []uint64
	pending      mapset.Set[uint64]
}

// NewStore creates a store. balances may be nil, in which case the sender's
// balances are only learned from Watch.
func NewStore(existentialDeposit math.Int, balances BalanceSource) *Store {
	if existentialDeposit.IsNil() {
		existentialDeposit = math.ZeroInt()
	}
	return &Store{
		existentialDeposit: existentialDeposit,
		balances:           balances,
		fees:               math.ZeroInt(),
		pending:            mapset.NewThreadUnsafeSet[uint64](),
	}
}

// NotEnoughFunds reports whether free - edReserved - frozen - fees < 0.
func NotEnoughFunds(free, edReserved, frozen, fees math.Int) bool {
	return free.Sub(edReserved).Sub(frozen).Sub(fees).IsNegative()
}

// SetFees records the current fee estimate.
func (s *Store) SetFees(fees math.Int) {
	if fees.IsNil() {
		fees = math.ZeroInt()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fees = fees
	s.recomputeLocked()
}

// ResetFees sets the fee estimate to zero.
func (s *Store) ResetFees() {
	s.SetFees(math.ZeroInt())
}

// Fees returns the current fee estimate.
func (s *Store) Fees() math.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fees
}

// SetSender sets or, with nil, clears the sender.
func (s *Store) SetSender(sender *common.Address) {
	var snapshot *account.Balances
	if sender != nil && s.balances != nil {
		if snap, ok := s.balances.Snapshot(sender.Hex()); ok {
			b := snap.Balances
			snapshot = &b
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sender == nil {
		s.sender = nil
		s.senderBalances = nil
	} else {
		addr := *sender
		if s.sender == nil || *s.sender != addr {
			s.senderBalances = nil
		}
		s.sender = &addr
		if snapshot != nil {
			s.senderBalances = snapshot
		}
	}
	s.recomputeLocked()
}

// Sender returns the current sender.
func (s *Store) Sender() (common.Address, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sender == nil {
		return common.Address{}, false
	}
	return *s.sender, true
}

// NotEnoughFunds reports whether the sender cannot cover the current fee.
// It is false while the sender's balances are unknown.
func (s *Store) NotEnoughFunds() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notEnoughFunds
}

// TxFeesValid reports whether a non-zero fee is known and affordable. It is
// false while the sender's balances are unknown.
func (s *Store) TxFeesValid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.feesValidLocked()
}

func (s *Store) feesValidLocked() bool {
	return !s.fees.IsZero() && s.senderBalances != nil && !s.notEnoughFunds
}

// ObserveBalances updates the sender's balances if address is the sender.
func (s *Store) ObserveBalances(address string, balances account.Balances) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sender == nil || !strings.EqualFold(s.sender.Hex(), address) {
		return
	}
	b := balances
	s.senderBalances = &b
	s.recomputeLocked()
}

func (s *Store) recomputeLocked() {
	if s.senderBalances == nil {
		s.notEnoughFunds = false
		return
	}
	b := s.senderBalances
	s.notEnoughFunds = NotEnoughFunds(
		orZero(b.Free),
		b.EdReserved(s.existentialDeposit),
		orZero(b.Frozen),
		s.fees,
	)
}

// Watch keeps the sender's balances current from bus until the returned
// subscription is unsubscribed.
func (s *Store) Watch(bus *events.Bus) event.Subscription {
	ch := make(chan events.BalanceEvent, 16)
	sub := bus.SubscribeBalances(ch)
	go func() {
		for {
			select {
			case ev := <-ch:
				s.ObserveBalances(ev.Address, ev.Snapshot.Balances)
			case <-sub.Err():
				return
			}
		}
	}()
	return sub
}

// IncrementPayloadUID returns the next payload uid without storing it.
func (s *Store) IncrementPayloadUID() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.payloadUID + 1
}

// PayloadUID returns the stored uid, or 1 if none is stored.
func (s *Store) PayloadUID() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.payloadUID == 0 {
		return 1
	}
	return s.payloadUID
}

// SetPayload stores p under uid, replacing any previous payload.
func (s *Store) SetPayload(p Payload, uid uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload = &p
	s.payloadUID = uid
}

// Payload returns the stored payload and its uid.
func (s *Store) Payload() (*Payload, uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.payload == nil {
		return nil, 0, false
	}
	p := *s.payload
	return &p, s.payloadUID, true
}

// ResetPayloads clears the payload slot.
func (s *Store) ResetPayloads() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.payload = nil
	s.payloadUID = 0
}

// AddPendingNonce tracks nonce. A nonce that is already tracked is not added
// again and false is returned.
func (s *Store) AddPendingNonce(nonce uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pending.Add(nonce) {
		return false
	}
	s.pendingOrder = append(s.pendingOrder, nonce)
	return true
}

// RemovePendingNonce stops tracking nonce. Removing an untracked nonce is a no-op.
func (s *Store) RemovePendingNonce(nonce uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pending.Contains(nonce) {
		return
	}
	s.pending.Remove(nonce)
	kept := s.pendingOrder[:0]
	for _, n := range s.pendingOrder {
		if n != nonce {
			kept = append(kept, n)
		}
	}
	s.pendingOrder = kept
}

// IsPendingNonce reports whether nonce is tracked.
func (s *Store) IsPendingNonce(nonce uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending.Contains(nonce)
}

// PendingNonces returns the tracked nonces in insertion order.
func (s *Store) PendingNonces() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]uint64(nil), s.pendingOrder...)
}

// View is a point-in-time copy of the store for display.
type View struct {
	Fees           string   `json:"txFees" yaml:"txFees"`
	Sender         string   `json:"sender,omitempty" yaml:"sender,omitempty"`
	NotEnoughFunds bool     `json:"notEnoughFunds" yaml:"notEnoughFunds"`
	TxFeesValid    bool     `json:"txFeesValid" yaml:"txFeesValid"`
	PayloadUID     uint64   `json:"payloadUid" yaml:"payloadUid"`
	HasPayload     bool     `json:"hasPayload" yaml:"hasPayload"`
	PendingNonces  []uint64 `json:"pendingNonces" yaml:"pendingNonces"`
}

// Snapshot returns a View of the current state.
func (s *Store) Snapshot() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := View{
		Fees:           s.fees.String(),
		NotEnoughFunds: s.notEnoughFunds,
		TxFeesValid:    s.feesValidLocked(),
		PayloadUID:     s.payloadUID,
		HasPayload:     s.payload != nil,
		PendingNonces:  append([]uint64{}, s.pendingOrder...),
	}
	if s.sender != nil {
		v.Sender = s.sender.Hex()
	}
	return v
}

func orZero(v math.Int) math.Int {
	if v.IsNil() {
		return math.ZeroInt()
	}
	return v
}
