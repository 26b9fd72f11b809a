// Package submit drives a staking transaction from fee estimation through
// signing, inclusion and finality.
package submit

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/altuslabsxyz/stakekit/internal/application/ports"
	"github.com/altuslabsxyz/stakekit/internal/txmeta"
	"github.com/altuslabsxyz/stakekit/pkg/staking"
)

// FeeEstimator quotes a transaction. A false result means the fee is unknown.
type FeeEstimator interface {
	Estimate(ctx context.Context, tx staking.TxData, from common.Address) (math.Int, bool)
}

// Options configures a Controller. Callbacks run outside the controller's
// lock and only for the transaction that is current when they fire.
type Options struct {
	// Confirmations is the block depth treated as final. Values below 1 mean 1.
	Confirmations uint64

	OnSubmitted func(f *Flight)
	OnIncluded  func(f *Flight, receipt *ports.Receipt)
	OnFinalized func(f *Flight, success bool)
}

// Controller manages one logical transaction slot. Replacing the transaction
// with Update issues a new uid; continuations of earlier flights compare
// their uid with the current one and skip state changes, notifications and
// callbacks when they differ.
type Controller struct {
	meta      *txmeta.Store
	estimator FeeEstimator
	chain     ports.ChainClient
	signer    ports.Signer
	notifier  ports.Notifier
	logger    log.Logger
	opts      Options

	mu           sync.Mutex
	state        State
	uid          uint64
	tx           *staking.TxData
	from         common.Address
	fee          math.Int
	feeKnown     bool
	submitting   bool
	shouldSubmit bool
	flight       *Flight
}

// NewController creates a controller in the Idle state.
func NewController(
	meta *txmeta.Store,
	estimator FeeEstimator,
	chain ports.ChainClient,
	signer ports.Signer,
	notifier ports.Notifier,
	logger log.Logger,
	opts Options,
) *Controller {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if opts.Confirmations == 0 {
		opts.Confirmations = 1
	}
	return &Controller{
		meta:         meta,
		estimator:    estimator,
		chain:        chain,
		signer:       signer,
		notifier:     notifier,
		logger:       logger.With("module", "submit"),
		opts:         opts,
		state:        StateIdle,
		fee:          math.ZeroInt(),
		shouldSubmit: true,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// UID returns the uid of the current transaction.
func (c *Controller) UID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.uid
}

// Submitting reports whether a submit is between signing and the first
// status update.
func (c *Controller) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

// Fee returns the last estimate for the current transaction.
func (c *Controller) Fee() (math.Int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fee, c.feeKnown
}

// Flight returns the flight of the current transaction, if it was sent.
func (c *Controller) Flight() *Flight {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flight
}

// SetShouldSubmit enables or disables Submit.
func (c *Controller) SetShouldSubmit(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shouldSubmit = v
}

// Update replaces the transaction and sender, estimates the fee and prepares
// the unsigned payload. Earlier flights keep running but no longer affect
// this controller.
func (c *Controller) Update(ctx context.Context, tx staking.TxData, from common.Address) {
	uid := c.meta.IncrementPayloadUID()

	c.mu.Lock()
	if uid <= c.uid {
		uid = c.uid + 1
	}
	c.uid = uid
	c.tx = &tx
	c.from = from
	c.fee = math.ZeroInt()
	c.feeKnown = false
	c.submitting = false
	c.flight = nil
	c.state = StateEstimating
	c.mu.Unlock()

	c.logger.Debug("transaction updated", "uid", uid, "to", tx.To.Hex(), "from", from.Hex())
	c.meta.SetSender(&from)

	fee, ok := c.estimator.Estimate(ctx, tx, from)

	c.mu.Lock()
	if c.uid != uid {
		c.mu.Unlock()
		return
	}
	if ok {
		c.fee, c.feeKnown = fee, true
		c.meta.SetFees(fee)
	} else {
		c.meta.ResetFees()
	}
	c.mu.Unlock()

	payload, err := c.buildPayload(ctx, uid, tx, from, nil)
	if err != nil {
		c.logger.Warn("failed to build payload", "uid", uid, "error", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uid != uid {
		return
	}
	if payload != nil {
		c.meta.SetPayload(*payload, uid)
	}
	c.state = StateAwaitingConfirmation
}

// Submit signs and sends the current transaction. It returns once the
// transaction is accepted by the node; inclusion and finality are tracked in
// the background on the returned Flight until ctx is done. Submitting while
// a submission is in progress or in flight, after it finalized, or while
// submitting is disabled, returns the current flight (possibly nil) and no
// error. Call Update to submit again.
func (c *Controller) Submit(ctx context.Context) (*Flight, error) {
	c.mu.Lock()
	if c.submitting || c.state.InFlight() || c.state == StateFinalized || !c.shouldSubmit {
		f := c.flight
		c.mu.Unlock()
		return f, nil
	}
	if c.tx == nil {
		c.mu.Unlock()
		return nil, ErrNoTransaction
	}
	uid, tx, from := c.uid, *c.tx, c.from

	if !c.signer.IsConnected() || c.signer.Address() != from {
		c.mu.Unlock()
		err := &SignerMismatchError{Sender: from}
		if c.signer.IsConnected() {
			connected := c.signer.Address()
			err.Connected = &connected
		}
		c.notify(NotifyWalletNotFound)
		return nil, err
	}
	c.submitting = true
	c.mu.Unlock()

	nonce, err := c.chain.NextNonce(ctx, from)
	if err != nil {
		return nil, c.cancel(uid, &SubmissionError{Stage: "fetch nonce", Err: err})
	}

	payload, err := c.buildPayload(ctx, uid, tx, from, &nonce)
	if err != nil {
		return nil, c.cancel(uid, &SubmissionError{Stage: "build transaction", Err: err})
	}
	chainID, err := c.chain.ChainID(ctx)
	if err != nil {
		return nil, c.cancel(uid, &SubmissionError{Stage: "chain id", Err: err})
	}
	signed, err := c.signer.SignTx(ctx, payload.Tx, chainID)
	if err != nil {
		return nil, c.cancel(uid, &SubmissionError{Stage: "sign", Err: err})
	}
	hash, err := c.chain.SendTransaction(ctx, signed)
	if err != nil {
		return nil, c.cancel(uid, &SubmissionError{Stage: "send", Err: err})
	}

	f := newFlight(uid, hash, nonce)
	c.onReady(f)
	go c.track(ctx, f)
	return f, nil
}

// buildPayload reuses the stored payload when it belongs to the current uid
// and matches nonce, and builds a fresh one otherwise.
func (c *Controller) buildPayload(ctx context.Context, uid uint64, tx staking.TxData, from common.Address, nonce *uint64) (*txmeta.Payload, error) {
	if nonce != nil {
		if p, puid, ok := c.meta.Payload(); ok && puid == uid && p.Tx.Nonce() == *nonce {
			return p, nil
		}
	}

	var n uint64
	if nonce != nil {
		n = *nonce
	} else {
		var err error
		if n, err = c.chain.NextNonce(ctx, from); err != nil {
			return nil, fmt.Errorf("failed to get nonce: %w", err)
		}
	}

	unsigned, err := c.chain.BuildTransaction(ctx, ports.CallMsg{From: from, To: tx.To, Data: tx.Calldata}, n)
	if err != nil {
		return nil, err
	}
	chainID, err := c.chain.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	return &txmeta.Payload{
		Tx:          unsigned,
		SigningHash: types.LatestSignerForChainID(chainID).Hash(unsigned),
	}, nil
}

// onReady runs once the node accepted the transaction.
func (c *Controller) onReady(f *Flight) {
	// One-shot reset: the slot is only cleared if it still holds this flight's payload.
	if _, uid, ok := c.meta.Payload(); ok && uid == f.UID {
		c.meta.ResetPayloads()
	}
	c.meta.AddPendingNonce(f.Nonce)

	c.mu.Lock()
	current := c.uid == f.UID
	if current {
		c.submitting = false
		c.state = StatePending
		c.flight = f
	}
	c.mu.Unlock()

	c.logger.Info("transaction submitted", "uid", f.UID, "hash", f.Hash.Hex(), "nonce", f.Nonce, "current", current)
	if !current {
		return
	}
	c.notify(NotifyPending)
	if c.opts.OnSubmitted != nil {
		c.opts.OnSubmitted(f)
	}
}

func (c *Controller) track(ctx context.Context, f *Flight) {
	defer close(f.done)

	receipt, err := c.chain.WaitForReceipt(ctx, f.Hash, 1)
	if err != nil {
		c.fail(f, nil, fmt.Errorf("waiting for inclusion: %w", err))
		return
	}

	c.meta.RemovePendingNonce(f.Nonce)
	f.set(StateInBlock, receipt, nil)
	if c.transition(f.UID, StateInBlock) {
		c.logger.Info("transaction in block", "uid", f.UID, "hash", f.Hash.Hex(), "block", receipt.BlockNumber)
		c.notify(NotifyInBlock)
		if c.opts.OnIncluded != nil {
			c.opts.OnIncluded(f, receipt)
		}
	}

	if receipt.Success && c.opts.Confirmations > 1 {
		receipt, err = c.chain.WaitForReceipt(ctx, f.Hash, c.opts.Confirmations)
		if err != nil {
			c.fail(f, nil, fmt.Errorf("waiting for finality: %w", err))
			return
		}
	}

	if !receipt.Success {
		c.fail(f, receipt, ErrExecutionFailed)
		return
	}

	f.set(StateFinalized, receipt, nil)
	if c.transition(f.UID, StateFinalized) {
		c.logger.Info("transaction finalized", "uid", f.UID, "hash", f.Hash.Hex())
		c.notify(NotifyFinalized)
		if c.opts.OnFinalized != nil {
			c.opts.OnFinalized(f, true)
		}
	}
}

// transition moves the controller to state if uid is current.
func (c *Controller) transition(uid uint64, state State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.uid != uid {
		return false
	}
	c.state = state
	c.submitting = false
	return true
}

// fail ends a sent transaction that reverted or could not be tracked.
func (c *Controller) fail(f *Flight, receipt *ports.Receipt, cause error) {
	c.meta.RemovePendingNonce(f.Nonce)
	f.set(StateFailed, receipt, cause)

	if !c.transition(f.UID, StateFailed) {
		c.logger.Debug("ignoring stale failure", "uid", f.UID, "error", cause)
		return
	}
	c.logger.Error("transaction failed", "uid", f.UID, "hash", f.Hash.Hex(), "error", cause)
	c.notify(NotifyFailed)
	if c.opts.OnFinalized != nil {
		c.opts.OnFinalized(f, false)
	}
}

// cancel handles a submission that never reached the node.
func (c *Controller) cancel(uid uint64, cause error) error {
	c.mu.Lock()
	current := c.uid == uid
	if current {
		c.submitting = false
		c.state = StateCancelled
	}
	c.mu.Unlock()

	if !current {
		return cause
	}
	c.meta.ResetPayloads()
	c.logger.Error("transaction cancelled", "uid", uid, "error", cause)
	c.notify(NotifyCancelled)
	return cause
}

func (c *Controller) notify(n ports.Notification) {
	if c.notifier != nil {
		c.notifier.Notify(n)
	}
}

// IsCancelled reports whether err came from a submission that never reached
// the node.
func IsCancelled(err error) bool {
	var se *SubmissionError
	return errors.As(err, &se)
}
