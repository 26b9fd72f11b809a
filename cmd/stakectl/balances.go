package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/altuslabsxyz/stakekit/internal/domain/account"
	"github.com/altuslabsxyz/stakekit/internal/events"
	"github.com/altuslabsxyz/stakekit/internal/output"
)

// accountView is the document printed by the balances command.
type accountView struct {
	account.Snapshot `yaml:",inline"`
	Status           account.Status          `json:"status" yaml:"status"`
	ActiveEra        uint32                  `json:"activeEra" yaml:"activeEra"`
	Transfer         account.TransferOptions `json:"transferOptions" yaml:"transferOptions"`
}

func (a *app) newBalancesCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "balances [address]...",
		Short: "Show staking balances of accounts",
		Long: `Balances subscribes to the account, ledger, locks, payee, nominations and
pool membership of each address and prints the first complete snapshot.
With --watch it keeps printing every change until interrupted.`,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				from, err := a.watchAddress()
				if err != nil {
					return err
				}
				args = []string{from}
			}
			if _, err := parseAddresses(args); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// subscribe before syncing so no update is missed
			updates := make(chan events.BalanceEvent, 64)
			discovered := make(chan events.ExternalAccountEvent, 16)
			if watch {
				sub := a.container.Bus().SubscribeBalances(updates)
				defer sub.Unsubscribe()
				extSub := a.container.Bus().SubscribeExternalAccounts(discovered)
				defer extSub.Unsubscribe()
			}

			snaps, era, err := a.syncAccounts(ctx, args)
			if err != nil {
				return err
			}
			for _, snap := range snaps {
				if err := a.printSnapshot(cmd, snap, era); err != nil {
					return err
				}
			}
			if !watch {
				return nil
			}

			for {
				select {
				case <-ctx.Done():
					return nil
				case ev := <-updates:
					if err := a.printSnapshot(cmd, ev.Snapshot, era); err != nil {
						return err
					}
				case ev := <-discovered:
					a.out.Notice("Discovered Stash", ev.Address, output.NoticeInfo)
				}
			}
		}),
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Keep printing updates")
	return cmd
}

// watchAddress returns the account to show when none is given.
func (a *app) watchAddress() (string, error) {
	switch {
	case a.from != "":
		return a.from, nil
	case a.cfg.Wallet.Address != "":
		return a.cfg.Wallet.Address, nil
	}
	return "", fmt.Errorf("no address given: pass one or set [wallet] address")
}

func (a *app) printSnapshot(cmd *cobra.Command, snap account.Snapshot, era uint32) error {
	ed, err := a.cfg.ExistentialDeposit()
	if err != nil {
		return err
	}
	reserve, err := a.cfg.FeeReserve()
	if err != nil {
		return err
	}
	view := accountView{
		Snapshot:  snap,
		Status:    snap.Status(),
		ActiveEra: era,
		Transfer:  snap.TransferOptions(ed, reserve, era),
	}

	return a.render(cmd.OutOrStdout(), view, func() {
		a.out.Info("%s", output.Separator())
		a.out.Bold("%s", snap.Address)
		a.out.Field("Status", view.Status)
		a.out.Field("Free", a.amount(snap.Balances.Free))
		a.out.Field("Frozen", a.amount(snap.Balances.Frozen))
		a.out.Field("Reserved", a.amount(snap.Balances.Reserved))
		a.out.Field("Transferrable", a.amount(view.Transfer.Transferrable))
		a.out.Field("Bonded", a.amount(view.Transfer.Active))
		a.out.Field("Unlocking", fmt.Sprintf("%s (%d chunks)", a.amount(view.Transfer.TotalUnlocking), view.Transfer.UnlockingCount))
		a.out.Field("Withdrawable", a.amount(view.Transfer.TotalUnlocked))
		if snap.Payee != nil {
			payee := snap.Payee.Destination
			if snap.Payee.Account != "" {
				payee += " " + output.Shorten(snap.Payee.Account)
			}
			a.out.Field("Payee", payee)
		}
		if len(snap.Nominations.Targets) > 0 {
			a.out.Field("Nominations", fmt.Sprintf("%d (since era %d)", len(snap.Nominations.Targets), snap.Nominations.SubmittedIn))
			for _, target := range snap.Nominations.Targets {
				a.out.Info("    %s", target)
			}
		}
		if snap.Pool != nil {
			a.out.Field("Pool", fmt.Sprintf("#%d, %s points, %s", snap.Pool.PoolID, snap.Pool.Points, snap.Pool.ClaimPermission))
		}
		for _, lock := range snap.Balances.Locks {
			a.out.Field("Lock "+lock.ID, a.amount(lock.Amount))
		}
	})
}
