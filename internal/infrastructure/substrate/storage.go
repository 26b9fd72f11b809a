package substrate

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/OneOfOne/xxhash"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/blake2b"
)

// Hasher hashes a map key the way a storage map declares it.
type Hasher func(data []byte) []byte

// Twox128 is the 128-bit TwoX hash used for pallet and item prefixes.
func Twox128(data []byte) []byte {
	h1 := xxhash.NewS64(0)
	h1.Write(data)
	h2 := xxhash.NewS64(1)
	h2.Write(data)

	out := make([]byte, 16)
	binary.LittleEndian.PutUint64(out[0:], h1.Sum64())
	binary.LittleEndian.PutUint64(out[8:], h2.Sum64())
	return out
}

// Twox64Concat is the TwoX 64-bit hash followed by the key itself.
func Twox64Concat(data []byte) []byte {
	h := xxhash.NewS64(0)
	h.Write(data)
	out := make([]byte, 8, 8+len(data))
	binary.LittleEndian.PutUint64(out, h.Sum64())
	return append(out, data...)
}

// Blake2_128Concat is the Blake2b 128-bit hash followed by the key itself.
func Blake2_128Concat(data []byte) []byte {
	h, err := blake2b.New(16, nil)
	if err != nil {
		// only fails for invalid sizes
		panic(err)
	}
	h.Write(data)
	return append(h.Sum(nil), data...)
}

// Item names a storage entry and its key hasher.
type Item struct {
	Pallet string
	Name   string
	Hasher Hasher
}

// Prefix returns Twox128(pallet) ++ Twox128(name).
func (i Item) Prefix() []byte {
	return append(Twox128([]byte(i.Pallet)), Twox128([]byte(i.Name))...)
}

// Key returns the full storage key for a map entry.
func (i Item) Key(key []byte) types.StorageKey {
	out := i.Prefix()
	if i.Hasher != nil {
		out = append(out, i.Hasher(key)...)
	}
	return types.NewStorageKey(out)
}

func (i Item) String() string {
	return i.Pallet + "." + i.Name
}

// Storage entries read per account.
var (
	SystemAccount        = Item{Pallet: "System", Name: "Account", Hasher: Blake2_128Concat}
	BalancesLocks        = Item{Pallet: "Balances", Name: "Locks", Hasher: Blake2_128Concat}
	StakingLedger        = Item{Pallet: "Staking", Name: "Ledger", Hasher: Blake2_128Concat}
	StakingPayee         = Item{Pallet: "Staking", Name: "Payee", Hasher: Twox64Concat}
	StakingNominators    = Item{Pallet: "Staking", Name: "Nominators", Hasher: Twox64Concat}
	StakingActiveEra     = Item{Pallet: "Staking", Name: "ActiveEra"}
	PoolMembers          = Item{Pallet: "NominationPools", Name: "PoolMembers", Hasher: Twox64Concat}
	PoolClaimPermissions = Item{Pallet: "NominationPools", Name: "ClaimPermissions", Hasher: Twox64Concat}
)

var accountItems = []Item{
	StakingLedger,
	SystemAccount,
	BalancesLocks,
	StakingPayee,
	PoolMembers,
	PoolClaimPermissions,
	StakingNominators,
}

// AccountKeys returns the storage keys queried for one account, in the order
// ledger, account, locks, payee, pool member, claim permission, nominators.
func AccountKeys(address string) ([]types.StorageKey, error) {
	id, err := ParseAccountID(address)
	if err != nil {
		return nil, err
	}
	keys := make([]types.StorageKey, len(accountItems))
	for i, item := range accountItems {
		keys[i] = item.Key(id[:])
	}
	return keys, nil
}

// ParseAccountID parses a 20-byte hex account.
func ParseAccountID(address string) (AccountID20, error) {
	if !common.IsHexAddress(address) {
		return AccountID20{}, fmt.Errorf("invalid account address %q", address)
	}
	return AccountID20(common.HexToAddress(address)), nil
}

func keyHex(k types.StorageKey) string {
	return hex.EncodeToString(k)
}
