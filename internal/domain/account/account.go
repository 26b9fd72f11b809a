// Package account provides the per-address staking snapshot model.
package account

import (
	"sort"

	"cosmossdk.io/math"
)

// UnlockChunk is a portion of the bond that becomes withdrawable at Era.
type UnlockChunk struct {
	Era   uint32   `json:"era" yaml:"era"`
	Value math.Int `json:"value" yaml:"value"`
}

// Ledger is the staking ledger of a controller account.
type Ledger struct {
	Stash     string        `json:"stash" yaml:"stash"`
	Active    math.Int      `json:"active" yaml:"active"`
	Total     math.Int      `json:"total" yaml:"total"`
	Unlocking []UnlockChunk `json:"unlocking" yaml:"unlocking"`
}

// Lock is a balance lock. ID is trimmed of padding.
type Lock struct {
	ID      string   `json:"id" yaml:"id"`
	Amount  math.Int `json:"amount" yaml:"amount"`
	Reasons string   `json:"reasons,omitempty" yaml:"reasons,omitempty"`
}

// Balances is the account info of an address.
type Balances struct {
	Nonce    uint32   `json:"nonce" yaml:"nonce"`
	Free     math.Int `json:"free" yaml:"free"`
	Reserved math.Int `json:"reserved" yaml:"reserved"`
	Frozen   math.Int `json:"frozen" yaml:"frozen"`
	Locks    []Lock   `json:"locks" yaml:"locks"`
}

// Payee destinations.
const (
	PayeeStaked     = "Staked"
	PayeeStash      = "Stash"
	PayeeController = "Controller"
	PayeeAccount    = "Account"
	PayeeNone       = "None"
)

// Payee is the reward destination. Account is empty unless Destination is
// PayeeAccount.
type Payee struct {
	Destination string `json:"destination" yaml:"destination"`
	Account     string `json:"account,omitempty" yaml:"account,omitempty"`
}

// Nominations are the validators an account backs.
type Nominations struct {
	Targets     []string `json:"targets" yaml:"targets"`
	SubmittedIn uint32   `json:"submittedIn" yaml:"submittedIn"`
}

// DefaultNominations is the value of an account that is not nominating.
func DefaultNominations() Nominations {
	return Nominations{Targets: []string{}, SubmittedIn: 0}
}

// PoolMembership is a nomination pool membership.
type PoolMembership struct {
	PoolID          uint32   `json:"poolId" yaml:"poolId"`
	Points          math.Int `json:"points" yaml:"points"`
	ClaimPermission string   `json:"claimPermission" yaml:"claimPermission"`
}

// Snapshot is the synchronized state of one address. Ledger, Payee and Pool
// are nil when the chain holds no value for them.
type Snapshot struct {
	Address     string          `json:"address" yaml:"address"`
	Ledger      *Ledger         `json:"ledger,omitempty" yaml:"ledger,omitempty"`
	Balances    Balances        `json:"balances" yaml:"balances"`
	Payee       *Payee          `json:"payee,omitempty" yaml:"payee,omitempty"`
	Nominations Nominations     `json:"nominations" yaml:"nominations"`
	Pool        *PoolMembership `json:"pool,omitempty" yaml:"pool,omitempty"`
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Ledger != nil {
		l := *s.Ledger
		l.Unlocking = append([]UnlockChunk(nil), s.Ledger.Unlocking...)
		out.Ledger = &l
	}
	out.Balances.Locks = append([]Lock(nil), s.Balances.Locks...)
	if s.Payee != nil {
		p := *s.Payee
		out.Payee = &p
	}
	out.Nominations.Targets = append([]string{}, s.Nominations.Targets...)
	if s.Pool != nil {
		p := *s.Pool
		out.Pool = &p
	}
	return out
}

// MaxLock returns the largest lock amount, or zero.
func (b Balances) MaxLock() math.Int {
	max := math.ZeroInt()
	for _, l := range b.Locks {
		if !l.Amount.IsNil() && l.Amount.GT(max) {
			max = l.Amount
		}
	}
	return max
}

// EdReserved returns the part of the existential deposit not already covered
// by locks: max(ed - maxLock, 0).
func (b Balances) EdReserved(existentialDeposit math.Int) math.Int {
	reserved := orZero(existentialDeposit).Sub(b.MaxLock())
	if reserved.IsNegative() {
		return math.ZeroInt()
	}
	return reserved
}

// Spendable returns free - edReserved - frozen. It may be negative.
func (b Balances) Spendable(existentialDeposit math.Int) math.Int {
	return orZero(b.Free).Sub(b.EdReserved(existentialDeposit)).Sub(orZero(b.Frozen))
}

// TransferOptions summarizes the funds available to an account.
type TransferOptions struct {
	Transferrable  math.Int `json:"transferrable" yaml:"transferrable"`
	EdReserved     math.Int `json:"edReserved" yaml:"edReserved"`
	Active         math.Int `json:"active" yaml:"active"`
	TotalUnlocking math.Int `json:"totalUnlocking" yaml:"totalUnlocking"`
	TotalUnlocked  math.Int `json:"totalUnlocked" yaml:"totalUnlocked"`
	UnlockingCount int      `json:"unlockingCount" yaml:"unlockingCount"`
}

// TransferOptions computes the funds available to the account. Chunks whose
// era is at or before activeEra count as unlocked.
func (s Snapshot) TransferOptions(existentialDeposit, feeReserve math.Int, activeEra uint32) TransferOptions {
	edReserved := s.Balances.EdReserved(existentialDeposit)
	transferrable := s.Balances.Spendable(existentialDeposit).Sub(orZero(feeReserve))
	if transferrable.IsNegative() {
		transferrable = math.ZeroInt()
	}

	opts := TransferOptions{
		Transferrable:  transferrable,
		EdReserved:     edReserved,
		Active:         math.ZeroInt(),
		TotalUnlocking: math.ZeroInt(),
		TotalUnlocked:  math.ZeroInt(),
	}
	if s.Ledger == nil {
		return opts
	}

	opts.Active = orZero(s.Ledger.Active)
	for _, chunk := range s.Ledger.Unlocking {
		if chunk.Era <= activeEra {
			opts.TotalUnlocked = opts.TotalUnlocked.Add(orZero(chunk.Value))
		} else {
			opts.TotalUnlocking = opts.TotalUnlocking.Add(orZero(chunk.Value))
			opts.UnlockingCount++
		}
	}
	return opts
}

// Status is the staking status of an account.
type Status string

const (
	StatusNotStaking Status = "not-staking"
	StatusNominating Status = "nominating"
	StatusInactive   Status = "inactive"
	StatusUnstaking  Status = "unstaking"
)

// Status reports whether the account is nominating or winding down its bond.
func (s Snapshot) Status() Status {
	if s.Ledger == nil {
		return StatusNotStaking
	}
	nominating := len(s.Nominations.Targets) > 0
	active := orZero(s.Ledger.Active)
	switch {
	case nominating:
		return StatusNominating
	case active.IsZero() && len(s.Ledger.Unlocking) > 0:
		return StatusUnstaking
	case active.IsZero():
		return StatusNotStaking
	default:
		return StatusInactive
	}
}

// SortedUnlocking returns the unlocking chunks ordered by era.
func (l Ledger) SortedUnlocking() []UnlockChunk {
	out := append([]UnlockChunk(nil), l.Unlocking...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Era < out[j].Era })
	return out
}

func orZero(v math.Int) math.Int {
	if v.IsNil() {
		return math.ZeroInt()
	}
	return v
}
