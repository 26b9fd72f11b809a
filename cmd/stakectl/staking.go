package main

import (
	"fmt"
	"math/big"
	"strconv"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/altuslabsxyz/stakekit/internal/domain/account"
	"github.com/altuslabsxyz/stakekit/pkg/staking"
)

func (a *app) stakingCommands() []*cobra.Command {
	return []*cobra.Command{
		a.newBondCmd(),
		a.newBondExtraCmd(),
		a.newAmountCmd("unbond", "Schedule part of the bond for unlocking", (*staking.Encoder).Unbond),
		a.newAmountCmd("rebond", "Move unlocking funds back to the active bond", (*staking.Encoder).Rebond),
		a.newUnstakeCmd(),
		a.newWithdrawCmd(),
		a.newSimpleCmd("chill", "Stop nominating", (*staking.Encoder).Chill),
		a.newNominateCmd(),
		a.newSetPayeeCmd(),
		a.newPayoutCmd(),
		a.newFastUnstakeCmd(),
	}
}

func (a *app) newBondCmd() *cobra.Command {
	var (
		restake  bool
		nominate []string
	)

	cmd := &cobra.Command{
		Use:   "bond <amount>",
		Short: "Bond funds, optionally nominating in the same transaction",
		Long: `Bond locks <amount> (in display units) for staking. With --nominate the bond
and the nomination are batched into one Multicall3 transaction.`,
		Args: cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			value, err := a.parseAmount(args[0])
			if err != nil {
				return err
			}
			targets, err := parseAddresses(nominate)
			if err != nil {
				return err
			}
			return a.submitTx(cmd, func(tc txContext) (staking.TxData, error) {
				bond, err := tc.enc.Bond(value.BigInt(), restake)
				if err != nil {
					return staking.TxData{}, err
				}
				txs := []staking.TxData{bond}
				if len(targets) > 0 {
					nom, err := tc.enc.Nominate(targets)
					if err != nil {
						return staking.TxData{}, err
					}
					txs = append(txs, nom)
				}
				tx, _ := tc.enc.Compose(txs...)
				return tx, nil
			})
		}),
	}

	cmd.Flags().BoolVar(&restake, "restake", false, "Add rewards to the bond instead of paying them out")
	cmd.Flags().StringSliceVar(&nominate, "nominate", nil, "Validators to nominate in the same transaction")
	return cmd
}

func (a *app) newBondExtraCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "bond-extra [amount]",
		Short: "Add funds to an existing bond",
		Long: `Bond-extra adds <amount> to the active bond. With --max it bonds everything
transferrable, keeping the configured fee reserve and the fee of this
transaction.`,
		Args: cobra.MaximumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return fmt.Errorf("pass either an amount or --max")
			}
			var value math.Int
			if !all {
				v, err := a.parseAmount(args[0])
				if err != nil {
					return err
				}
				value = v
			}
			return a.submitTx(cmd, func(tc txContext) (staking.TxData, error) {
				if !all {
					return tc.enc.BondExtra(value.BigInt())
				}
				v, err := a.maxBond(tc)
				if err != nil {
					return staking.TxData{}, err
				}
				return tc.enc.BondExtra(v.BigInt())
			})
		}),
	}

	cmd.Flags().BoolVar(&all, "max", false, "Bond all transferrable funds")
	return cmd
}

// maxBond returns transferrable - fee reserve - the fee of bonding it.
func (a *app) maxBond(tc txContext) (math.Int, error) {
	if tc.snapshot == nil {
		return math.Int{}, fmt.Errorf("--max needs the sender's balances")
	}
	ed, err := a.cfg.ExistentialDeposit()
	if err != nil {
		return math.Int{}, err
	}
	reserve, err := a.cfg.FeeReserve()
	if err != nil {
		return math.Int{}, err
	}
	estimator, err := a.container.Estimator(tc.ctx)
	if err != nil {
		return math.Int{}, err
	}

	// Transferrable already excludes the fee reserve.
	transferrable := tc.snapshot.TransferOptions(ed, reserve, tc.era).Transferrable
	fee := estimator.LargestBondFee(tc.ctx, tc.enc, tc.from, transferrable, math.ZeroInt())
	value := transferrable.Sub(fee)
	if !value.IsPositive() {
		return math.Int{}, fmt.Errorf("nothing to bond: transferrable %s, fee %s", a.amount(transferrable), a.amount(fee))
	}
	return value, nil
}

func (a *app) newAmountCmd(use, short string, encode func(*staking.Encoder, *big.Int) (staking.TxData, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <amount>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			value, err := a.parseAmount(args[0])
			if err != nil {
				return err
			}
			return a.submitTx(cmd, func(tc txContext) (staking.TxData, error) {
				return encode(tc.enc, value.BigInt())
			})
		}),
	}
}

func (a *app) newSimpleCmd(use, short string, encode func(*staking.Encoder) (staking.TxData, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			return a.submitTx(cmd, func(tc txContext) (staking.TxData, error) {
				return encode(tc.enc)
			})
		}),
	}
}

func (a *app) newUnstakeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unstake",
		Short: "Stop nominating and unbond the whole active bond",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			return a.submitTx(cmd, func(tc txContext) (staking.TxData, error) {
				if tc.snapshot == nil || tc.snapshot.Ledger == nil {
					return staking.TxData{}, fmt.Errorf("%s has no staking ledger", tc.from.Hex())
				}
				var txs []staking.TxData
				if tc.snapshot.Status() == account.StatusNominating {
					chill, err := tc.enc.Chill()
					if err != nil {
						return staking.TxData{}, err
					}
					txs = append(txs, chill)
				}
				if active := tc.snapshot.Ledger.Active; !active.IsNil() && active.IsPositive() {
					unbond, err := tc.enc.Unbond(active.BigInt())
					if err != nil {
						return staking.TxData{}, err
					}
					txs = append(txs, unbond)
				}
				tx, ok := tc.enc.Compose(txs...)
				if !ok {
					return staking.TxData{}, fmt.Errorf("nothing to unstake")
				}
				return tx, nil
			})
		}),
	}
}

func (a *app) newWithdrawCmd() *cobra.Command {
	var spans uint32

	cmd := &cobra.Command{
		Use:   "withdraw-unbonded",
		Short: "Withdraw fully unlocked funds",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			return a.submitTx(cmd, func(tc txContext) (staking.TxData, error) {
				return tc.enc.WithdrawUnbonded(spans)
			})
		}),
	}

	cmd.Flags().Uint32Var(&spans, "slashing-spans", 0, "Number of slashing spans of the stash")
	return cmd
}

func (a *app) newNominateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "nominate <validator>...",
		Short: "Nominate validators",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			targets, err := parseAddresses(args)
			if err != nil {
				return err
			}
			return a.submitTx(cmd, func(tc txContext) (staking.TxData, error) {
				return tc.enc.Nominate(targets)
			})
		}),
	}
}

func (a *app) newSetPayeeCmd() *cobra.Command {
	var restake bool

	cmd := &cobra.Command{
		Use:   "set-payee",
		Short: "Choose between restaking rewards and paying them to the stash",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			return a.submitTx(cmd, func(tc txContext) (staking.TxData, error) {
				return tc.enc.SetPayee(restake)
			})
		}),
	}

	cmd.Flags().BoolVar(&restake, "restake", false, "Add rewards to the bond")
	return cmd
}

func (a *app) newPayoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "payout <validator-stash> <era> <page>",
		Short: "Claim one page of era rewards for a validator",
		Args:  cobra.ExactArgs(3),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			stash, err := parseAddresses(args[:1])
			if err != nil {
				return err
			}
			era, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid era %q", args[1])
			}
			page, err := strconv.ParseUint(args[2], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid page %q", args[2])
			}
			return a.submitTx(cmd, func(tc txContext) (staking.TxData, error) {
				return tc.enc.PayoutStakersByPage(stash[0], uint32(era), uint32(page))
			})
		}),
	}
}

func (a *app) newFastUnstakeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fast-unstake",
		Short: "Join or leave the fast-unstake queue",
	}
	cmd.AddCommand(
		a.newSimpleCmd("register", "Register for fast unstaking", (*staking.Encoder).RegisterFastUnstake),
		a.newSimpleCmd("deregister", "Leave the fast-unstake queue", (*staking.Encoder).Deregister),
	)
	return cmd
}

func parseAddresses(values []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(values))
	for _, v := range values {
		if !common.IsHexAddress(v) {
			return nil, fmt.Errorf("invalid address %q", v)
		}
		out = append(out, common.HexToAddress(v))
	}
	return out, nil
}
