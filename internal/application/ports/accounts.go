package ports

import (
	"context"
	"math/big"
)

// RawUnlockChunk is an unlocking chunk as stored on chain.
type RawUnlockChunk struct {
	Value *big.Int
	Era   uint32
}

// RawLedger is a staking ledger as stored on chain.
type RawLedger struct {
	Stash     string
	Total     *big.Int
	Active    *big.Int
	Unlocking []RawUnlockChunk
}

// RawAccountInfo is the system account entry of an address.
type RawAccountInfo struct {
	Nonce    uint32
	Free     *big.Int
	Reserved *big.Int
	Frozen   *big.Int
}

// RawLock is a balance lock. ID may carry trailing padding.
type RawLock struct {
	ID      string
	Amount  *big.Int
	Reasons string
}

// RawPoolMember is a nomination pool membership.
type RawPoolMember struct {
	PoolID uint32
	Points *big.Int
}

// RawNominations is a nominator entry.
type RawNominations struct {
	Targets     []string
	SubmittedIn uint32
}

// AccountState is the joined result of the per-account storage queries.
// A nil pointer means the chain holds no value, except Account, which is nil
// until the account entry has been received. Payee is either a bare
// destination string or a single-entry map of destination to account.
type AccountState struct {
	Ledger          *RawLedger
	Account         *RawAccountInfo
	Locks           []RawLock
	Payee           any
	PoolMember      *RawPoolMember
	ClaimPermission string
	Nominators      *RawNominations
}

// AccountSubscriber pushes joined account state for an address until the
// returned unsubscribe function is called.
type AccountSubscriber interface {
	SubscribeAccount(ctx context.Context, address string, handler func(AccountState)) (unsubscribe func(), err error)
}

// EraSource reports the active staking era.
type EraSource interface {
	// ActiveEra returns false when the chain has no active era yet.
	ActiveEra(ctx context.Context) (uint32, bool, error)
}
