package submit

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/altuslabsxyz/stakekit/internal/application/ports"
)

// Flight is one sent transaction being tracked to a terminal state.
type Flight struct {
	ID    string
	UID   uint64
	Hash  common.Hash
	Nonce uint64

	done chan struct{}

	mu      sync.Mutex
	state   State
	receipt *ports.Receipt
	err     error
}

func newFlight(uid uint64, hash common.Hash, nonce uint64) *Flight {
	return &Flight{
		ID:    uuid.NewString(),
		UID:   uid,
		Hash:  hash,
		Nonce: nonce,
		done:  make(chan struct{}),
		state: StatePending,
	}
}

// Done is closed once the flight reaches a terminal state.
func (f *Flight) Done() <-chan struct{} {
	return f.done
}

// State returns the flight's current state.
func (f *Flight) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Receipt returns the latest receipt, if any.
func (f *Flight) Receipt() *ports.Receipt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.receipt
}

// Err returns the failure cause of a Failed flight.
func (f *Flight) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Wait blocks until the flight is terminal or ctx is done.
func (f *Flight) Wait(ctx context.Context) (State, error) {
	select {
	case <-f.done:
		return f.State(), f.Err()
	case <-ctx.Done():
		return f.State(), ctx.Err()
	}
}

func (f *Flight) set(state State, receipt *ports.Receipt, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = state
	if receipt != nil {
		f.receipt = receipt
	}
	if err != nil {
		f.err = err
	}
}
