package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/altuslabsxyz/stakekit/internal/application/ports"
	"github.com/altuslabsxyz/stakekit/internal/domain/account"
	"github.com/altuslabsxyz/stakekit/internal/events"
	"github.com/altuslabsxyz/stakekit/internal/infrastructure/interactive"
	"github.com/altuslabsxyz/stakekit/internal/infrastructure/wallet"
	"github.com/altuslabsxyz/stakekit/internal/output"
	"github.com/altuslabsxyz/stakekit/internal/submit"
	"github.com/altuslabsxyz/stakekit/internal/syncstatus"
	"github.com/altuslabsxyz/stakekit/pkg/staking"
)

// txContext is what a transaction builder may read.
type txContext struct {
	ctx  context.Context
	enc  *staking.Encoder
	from common.Address

	// snapshot of the sender, when balances could be synchronized
	snapshot *account.Snapshot
	era      uint32
}

// txBuilder encodes the transaction a command submits.
type txBuilder func(tc txContext) (staking.TxData, error)

// txResult is the document printed for --output json|yaml.
type txResult struct {
	Call      staking.Call `json:"call" yaml:"call"`
	From      string       `json:"from" yaml:"from"`
	Calldata  string       `json:"calldata" yaml:"calldata"`
	Fee       string       `json:"fee,omitempty" yaml:"fee,omitempty"`
	FeeKnown  bool         `json:"feeKnown" yaml:"feeKnown"`
	Funds     bool         `json:"enoughFunds" yaml:"enoughFunds"`
	Submitted bool         `json:"submitted" yaml:"submitted"`
	Hash      string       `json:"hash,omitempty" yaml:"hash,omitempty"`
	Block     uint64       `json:"block,omitempty" yaml:"block,omitempty"`
	GasUsed   uint64       `json:"gasUsed,omitempty" yaml:"gasUsed,omitempty"`
	State     submit.State `json:"state" yaml:"state"`
}

// submitTx runs the transaction flow: encode, estimate, confirm, submit and
// wait for finality.
func (a *app) submitTx(cmd *cobra.Command, build txBuilder) error {
	ctx := cmd.Context()
	c := a.container

	from, err := a.sender()
	if err != nil {
		return err
	}
	enc, err := c.Encoder()
	if err != nil {
		return err
	}

	tc := txContext{ctx: ctx, enc: enc, from: from}
	if snap, era, err := a.syncAccount(ctx, from); err != nil {
		a.out.Warn("Balances unavailable, fee coverage is not checked: %v", err)
	} else {
		tc.snapshot, tc.era = &snap, era
	}

	tx, err := build(tc)
	if err != nil {
		return err
	}
	call, err := enc.Describe(tx)
	if err != nil {
		return err
	}

	progress := output.NewProgress(cmd.ErrOrStderr())
	ctrl, err := c.Controller(ctx, submit.Options{
		OnIncluded: func(_ *submit.Flight, r *ports.Receipt) {
			progress.Update(fmt.Sprintf("In block %d, waiting for %d confirmations", r.BlockNumber, a.cfg.Staking.Confirmations))
		},
	})
	if err != nil {
		return err
	}
	ctrl.Update(ctx, tx, from)

	meta, err := c.TxMeta()
	if err != nil {
		return err
	}
	fee, feeKnown := ctrl.Fee()
	result := txResult{
		Call:     call,
		From:     from.Hex(),
		Calldata: hexutil.Encode(tx.Calldata),
		FeeKnown: feeKnown,
		Funds:    !meta.NotEnoughFunds(),
		State:    ctrl.State(),
	}
	if feeKnown {
		result.Fee = fee.String()
	}

	a.out.Bold("Transaction")
	a.printCall(call, "  ")
	a.out.Field("From", from.Hex())
	if feeKnown {
		a.out.Field("Estimated fee", a.amount(fee))
	} else {
		a.out.Warn("Fee could not be estimated")
	}
	if meta.NotEnoughFunds() {
		a.out.Warn("Not enough funds to cover the transaction fee")
	}

	if a.dryRun {
		a.out.Field("Calldata", result.Calldata)
		return a.render(cmd.OutOrStdout(), result, func() {})
	}

	ok, err := c.Confirmer().Confirm("Submit transaction")
	if errors.Is(err, interactive.ErrCancelled) || (err == nil && !ok) {
		a.out.Info("Cancelled.")
		return nil
	}
	if err != nil {
		return err
	}

	flight, err := ctrl.Submit(ctx)
	if err != nil {
		return err
	}
	if flight == nil {
		return fmt.Errorf("transaction was not submitted")
	}
	result.Submitted = true
	result.Hash = flight.Hash.Hex()
	a.out.Field("Hash", result.Hash)

	progress.Start("Waiting for inclusion")
	state, waitErr := flight.Wait(ctx)
	progress.Stop()

	result.State = state
	if r := flight.Receipt(); r != nil {
		result.Block, result.GasUsed = r.BlockNumber, r.GasUsed
	}
	if err := a.render(cmd.OutOrStdout(), result, func() {
		if state == submit.StateFinalized {
			a.out.Success("Finalized in block %d", result.Block)
		}
	}); err != nil {
		return err
	}
	if waitErr != nil {
		return waitErr
	}
	if state != submit.StateFinalized {
		return fmt.Errorf("transaction %s ended in state %s", result.Hash, state)
	}
	return nil
}

// sender resolves the sending account and loads its key unless this is a
// dry run with a known address.
func (a *app) sender() (common.Address, error) {
	addr := a.from
	if addr == "" {
		addr = a.cfg.Wallet.Address
	}

	if !a.dryRun || addr == "" {
		signer, err := wallet.Resolve(wallet.Source{
			Keystore: a.cfg.Wallet.Keystore,
			Prompt:   wallet.PromptPassword,
		})
		if err != nil {
			return common.Address{}, err
		}
		if signer != nil {
			a.container.SetSigner(signer)
		}
	}

	if addr == "" {
		if s := a.container.Signer(); s != nil {
			return s.Address(), nil
		}
		return common.Address{}, fmt.Errorf("no sending account: pass --from or configure [wallet] keystore")
	}
	if !common.IsHexAddress(addr) {
		return common.Address{}, fmt.Errorf("invalid sending account %q", addr)
	}
	return common.HexToAddress(addr), nil
}

// syncAccount subscribes to the balances of address and waits for the first
// complete snapshot.
func (a *app) syncAccount(ctx context.Context, address common.Address) (account.Snapshot, uint32, error) {
	snaps, era, err := a.syncAccounts(ctx, []string{address.Hex()})
	if err != nil {
		return account.Snapshot{}, 0, err
	}
	return snaps[0], era, nil
}

// syncAccounts syncs addresses and returns their snapshots in order, plus
// the active era.
func (a *app) syncAccounts(ctx context.Context, addresses []string) ([]account.Snapshot, uint32, error) {
	connectCtx, cancel := context.WithTimeout(ctx, a.cfg.Timeouts.RPC)
	defer cancel()

	synchronizer, err := a.container.Synchronizer(connectCtx)
	if err != nil {
		return nil, 0, err
	}

	bus := a.container.Bus()
	statuses := make(chan events.SyncEvent, 8)
	sub := bus.SubscribeSyncStatus(statuses)
	defer sub.Unsubscribe()

	if err := synchronizer.Sync(ctx, addresses); err != nil {
		return nil, 0, err
	}
	for a.container.Tracker().IsSyncing(syncstatus.IDBalances) {
		select {
		case <-statuses:
		case <-connectCtx.Done():
			return nil, 0, fmt.Errorf("waiting for balances: %w", connectCtx.Err())
		}
	}

	snaps := make([]account.Snapshot, 0, len(addresses))
	for _, addr := range addresses {
		snap, ok := synchronizer.Snapshot(addr)
		if !ok {
			return nil, 0, fmt.Errorf("no balances for %s", addr)
		}
		snaps = append(snaps, snap)
	}

	accounts, err := a.container.Accounts(connectCtx)
	if err != nil {
		return nil, 0, err
	}
	era, _, err := accounts.ActiveEra(connectCtx)
	if err != nil {
		return nil, 0, fmt.Errorf("active era: %w", err)
	}
	return snaps, era, nil
}
