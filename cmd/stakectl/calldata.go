package main

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"

	"github.com/altuslabsxyz/stakekit/pkg/staking"
)

// calldataView is the document printed by the calldata command.
type calldataView struct {
	To       string       `json:"to" yaml:"to"`
	Calldata string       `json:"calldata" yaml:"calldata"`
	Call     staking.Call `json:"call" yaml:"call"`
}

func (a *app) newCalldataCmd() *cobra.Command {
	var batch []string

	cmd := &cobra.Command{
		Use:   "calldata <method> [arg]...",
		Short: "Encode a staking call without sending it",
		Long: `Calldata ABI-encodes a call to the staking or fast-unstake precompile.
Integer arguments are in base units; address lists are comma separated.

Use --batch to compose several calls into one Multicall3 aggregate3 call,
each given as "method arg arg ...":

  stakectl calldata --batch "bond 1000 true" --batch "nominate 0xabc...,0xdef..."`,
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			enc, err := a.container.Encoder()
			if err != nil {
				return err
			}

			var calls [][]string
			if len(args) > 0 {
				calls = append(calls, args)
			}
			for _, b := range batch {
				calls = append(calls, strings.Fields(b))
			}
			if len(calls) == 0 {
				return fmt.Errorf("no method given; known methods: %s", strings.Join(a.knownMethods(enc), ", "))
			}

			txs := make([]staking.TxData, 0, len(calls))
			for _, call := range calls {
				tx, err := encodeCall(enc, call[0], call[1:])
				if err != nil {
					return err
				}
				txs = append(txs, tx)
			}
			tx, _ := enc.Compose(txs...)

			desc, err := enc.Describe(tx)
			if err != nil {
				return err
			}
			view := calldataView{To: tx.To.Hex(), Calldata: hexutil.Encode(tx.Calldata), Call: desc}
			return a.render(cmd.OutOrStdout(), view, func() {
				a.printCall(desc, "")
				a.out.Field("To", view.To)
				a.out.Field("Calldata", view.Calldata)
			})
		}),
	}

	cmd.Flags().StringArrayVar(&batch, "batch", nil, "Call to include in a Multicall3 batch (repeatable)")
	return cmd
}

func encodeCall(enc *staking.Encoder, method string, args []string) (staking.TxData, error) {
	contract, ok := enc.ContractFor(method)
	if !ok {
		return staking.TxData{}, fmt.Errorf("unknown method %q", method)
	}
	values := make([]any, len(args))
	for i, arg := range args {
		values[i] = arg
	}
	return enc.Encode(contract, method, values...)
}

func (a *app) knownMethods(enc *staking.Encoder) []string {
	methods := enc.Methods(staking.ContractStaking)
	return append(methods, enc.Methods(staking.ContractFastUnstake)...)
}
