// Package wallet provides local transaction signers.
package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/term"

	"github.com/altuslabsxyz/stakekit/internal/application/ports"
)

// Environment variables read by Resolve.
const (
	EnvPrivateKey       = "STAKEKIT_PRIVATE_KEY"
	EnvKeystorePassword = "STAKEKIT_KEYSTORE_PASSWORD"
)

// ErrDisconnected is returned when signing with a disconnected signer.
var ErrDisconnected = errors.New("wallet disconnected")

// LocalSigner signs with an in-memory key.
type LocalSigner struct {
	mu      sync.RWMutex
	key     *ecdsa.PrivateKey
	address common.Address
}

// Ensure LocalSigner implements ports.Signer.
var _ ports.Signer = (*LocalSigner)(nil)

// NewLocalSigner wraps key.
func NewLocalSigner(key *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
}

// FromHex loads a hex-encoded private key, with or without 0x.
func FromHex(hexKey string) (*LocalSigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return NewLocalSigner(key), nil
}

// FromKeystore decrypts a go-ethereum keystore file.
func FromKeystore(path, password string) (*LocalSigner, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore: %w", err)
	}
	key, err := keystore.DecryptKey(data, password)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt keystore %s: %w", path, err)
	}
	return NewLocalSigner(key.PrivateKey), nil
}

// IsConnected reports whether the key is still loaded.
func (s *LocalSigner) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key != nil
}

// Address returns the signer's account.
func (s *LocalSigner) Address() common.Address {
	return s.address
}

// SignTx signs tx with the latest signer for chainID.
func (s *LocalSigner) SignTx(ctx context.Context, tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	s.mu.RLock()
	key := s.key
	s.mu.RUnlock()
	if key == nil {
		return nil, ErrDisconnected
	}
	if chainID == nil {
		return nil, fmt.Errorf("chain ID is required")
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return signed, nil
}

// Disconnect drops the key. The address stays readable.
func (s *LocalSigner) Disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = nil
}

// Source configures where Resolve looks for a key.
type Source struct {
	PrivateKey string
	Keystore   string
	Password   string

	// Prompt reads the keystore password when none is configured.
	Prompt func(label string) (string, error)
}

// Resolve loads a signer from, in order: PrivateKey, the STAKEKIT_PRIVATE_KEY
// environment variable, Keystore. It returns nil, nil when none is set.
func Resolve(src Source) (*LocalSigner, error) {
	if src.PrivateKey != "" {
		return FromHex(src.PrivateKey)
	}
	if v := os.Getenv(EnvPrivateKey); v != "" {
		return FromHex(v)
	}
	if src.Keystore == "" {
		return nil, nil
	}

	password := src.Password
	if password == "" {
		password = os.Getenv(EnvKeystorePassword)
	}
	if password == "" && src.Prompt != nil {
		p, err := src.Prompt("keystore password")
		if err != nil {
			return nil, err
		}
		password = p
	}
	return FromKeystore(src.Keystore, password)
}

// PromptPassword reads a hidden value from the terminal.
func PromptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("cannot prompt for %s: stdin is not a terminal", label)
	}
	fmt.Fprintf(os.Stderr, "Enter %s: ", label)
	value, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read secret input: %w", err)
	}
	return string(value), nil
}

// WatchOnly is a signer for an address without a key. It never signs.
type WatchOnly struct {
	Account common.Address
}

// Ensure WatchOnly implements ports.Signer.
var _ ports.Signer = WatchOnly{}

// IsConnected always reports false.
func (WatchOnly) IsConnected() bool { return false }

// Address returns the watched account.
func (w WatchOnly) Address() common.Address { return w.Account }

// SignTx always fails with ErrDisconnected.
func (WatchOnly) SignTx(context.Context, *types.Transaction, *big.Int) (*types.Transaction, error) {
	return nil, ErrDisconnected
}
