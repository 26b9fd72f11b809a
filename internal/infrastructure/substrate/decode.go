package substrate

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	"github.com/ethereum/go-ethereum/common"

	"github.com/altuslabsxyz/stakekit/internal/application/ports"
)

// AccountID20 is an Ethereum-style 20-byte account.
type AccountID20 [20]byte

func (a *AccountID20) Decode(decoder scale.Decoder) error {
	return decoder.Read(a[:])
}

func (a AccountID20) Encode(encoder scale.Encoder) error {
	return encoder.Write(a[:])
}

// Hex returns the checksummed address.
func (a AccountID20) Hex() string {
	return common.Address(a).Hex()
}

type accountData struct {
	Free     types.U128
	Reserved types.U128
	Frozen   types.U128
	Flags    types.U128
}

type accountInfo struct {
	Nonce       types.U32
	Consumers   types.U32
	Providers   types.U32
	Sufficients types.U32
	Data        accountData
}

type unlockChunk struct {
	Value types.UCompact
	Era   types.UCompact
}

type stakingLedger struct {
	Stash     AccountID20
	Total     types.UCompact
	Active    types.UCompact
	Unlocking []unlockChunk
}

type balanceLock struct {
	ID      [8]byte
	Amount  types.U128
	Reasons types.U8
}

type poolMember struct {
	PoolID types.U32
	Points types.U128
}

type nominations struct {
	Targets     []AccountID20
	SubmittedIn types.U32
	Suppressed  bool
}

type activeEraInfo struct {
	Index types.U32
	Start types.OptionU64
}

var lockReasons = []string{"Fee", "Misc", "All"}

var claimPermissions = []string{
	"Permissioned",
	"PermissionlessCompound",
	"PermissionlessWithdraw",
	"PermissionlessAll",
}

// RewardDestination is the staking payee enum. Account is set only for the
// Account variant.
type RewardDestination struct {
	Variant uint8
	Account AccountID20
}

var rewardDestinations = []string{"Staked", "Stash", "Controller", "Account", "None"}

const rewardDestinationAccount = 3

func (r *RewardDestination) Decode(decoder scale.Decoder) error {
	tag, err := decoder.ReadOneByte()
	if err != nil {
		return err
	}
	if int(tag) >= len(rewardDestinations) {
		return fmt.Errorf("unknown reward destination %d", tag)
	}
	r.Variant = tag
	if tag == rewardDestinationAccount {
		return decoder.Decode(&r.Account)
	}
	return nil
}

func (r RewardDestination) Encode(encoder scale.Encoder) error {
	if err := encoder.PushByte(r.Variant); err != nil {
		return err
	}
	if r.Variant == rewardDestinationAccount {
		return encoder.Encode(r.Account)
	}
	return nil
}

// Human returns the bare destination name, or a single-entry map for the
// Account variant.
func (r RewardDestination) Human() any {
	name := rewardDestinations[r.Variant]
	if r.Variant == rewardDestinationAccount {
		return map[string]string{name: r.Account.Hex()}
	}
	return name
}

// entry is the last value seen for one storage key. A nil data on a seen
// entry means the chain holds no value.
type entry struct {
	seen bool
	data []byte
}

const (
	idxLedger = iota
	idxAccount
	idxLocks
	idxPayee
	idxPoolMember
	idxClaimPermission
	idxNominators
)

// decodeAccountState turns the joined raw entries, ordered as accountItems,
// into an AccountState.
func decodeAccountState(entries []entry) (ports.AccountState, error) {
	var st ports.AccountState

	if data := entries[idxLedger].data; data != nil {
		var l stakingLedger
		if err := codec.Decode(data, &l); err != nil {
			return st, fmt.Errorf("decode %s: %w", StakingLedger, err)
		}
		st.Ledger = &ports.RawLedger{
			Stash:     l.Stash.Hex(),
			Total:     compactInt(l.Total),
			Active:    compactInt(l.Active),
			Unlocking: make([]ports.RawUnlockChunk, 0, len(l.Unlocking)),
		}
		for _, c := range l.Unlocking {
			st.Ledger.Unlocking = append(st.Ledger.Unlocking, ports.RawUnlockChunk{
				Value: compactInt(c.Value),
				Era:   uint32(compactInt(c.Era).Uint64()),
			})
		}
	}

	if e := entries[idxAccount]; e.seen {
		// a missing account is the zero account
		var info accountInfo
		if e.data != nil {
			if err := codec.Decode(e.data, &info); err != nil {
				return st, fmt.Errorf("decode %s: %w", SystemAccount, err)
			}
		}
		st.Account = &ports.RawAccountInfo{
			Nonce:    uint32(info.Nonce),
			Free:     u128Int(info.Data.Free),
			Reserved: u128Int(info.Data.Reserved),
			Frozen:   u128Int(info.Data.Frozen),
		}
	}

	if data := entries[idxLocks].data; data != nil {
		var locks []balanceLock
		if err := codec.Decode(data, &locks); err != nil {
			return st, fmt.Errorf("decode %s: %w", BalancesLocks, err)
		}
		for _, l := range locks {
			st.Locks = append(st.Locks, ports.RawLock{
				ID:      strings.TrimRight(string(l.ID[:]), "\x00"),
				Amount:  u128Int(l.Amount),
				Reasons: enumName(lockReasons, uint8(l.Reasons)),
			})
		}
	}

	if data := entries[idxPayee].data; data != nil {
		var dest RewardDestination
		if err := codec.Decode(data, &dest); err != nil {
			return st, fmt.Errorf("decode %s: %w", StakingPayee, err)
		}
		st.Payee = dest.Human()
	}

	if data := entries[idxPoolMember].data; data != nil {
		var m poolMember
		if err := codec.Decode(data, &m); err != nil {
			return st, fmt.Errorf("decode %s: %w", PoolMembers, err)
		}
		st.PoolMember = &ports.RawPoolMember{PoolID: uint32(m.PoolID), Points: u128Int(m.Points)}
	}

	if data := entries[idxClaimPermission].data; data != nil {
		var p types.U8
		if err := codec.Decode(data, &p); err != nil {
			return st, fmt.Errorf("decode %s: %w", PoolClaimPermissions, err)
		}
		st.ClaimPermission = enumName(claimPermissions, uint8(p))
	}

	if data := entries[idxNominators].data; data != nil {
		var n nominations
		if err := codec.Decode(data, &n); err != nil {
			return st, fmt.Errorf("decode %s: %w", StakingNominators, err)
		}
		st.Nominators = &ports.RawNominations{
			Targets:     make([]string, 0, len(n.Targets)),
			SubmittedIn: uint32(n.SubmittedIn),
		}
		for _, t := range n.Targets {
			st.Nominators.Targets = append(st.Nominators.Targets, t.Hex())
		}
	}

	return st, nil
}

func compactInt(c types.UCompact) *big.Int {
	return new(big.Int).Set((*big.Int)(&c))
}

func u128Int(u types.U128) *big.Int {
	if u.Int == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(u.Int)
}

func enumName(names []string, v uint8) string {
	if int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("Unknown(%d)", v)
}
