// Package fee quotes transaction costs.
package fee

import (
	"context"

	"cosmossdk.io/log"
	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/altuslabsxyz/stakekit/internal/application/ports"
	"github.com/altuslabsxyz/stakekit/pkg/staking"
)

// Estimator multiplies simulated gas by the current gas price. Failures are
// logged and reported as an unknown fee, never returned.
type Estimator struct {
	oracle ports.GasOracle
	logger log.Logger
}

// NewEstimator creates an Estimator. A nil logger discards output.
func NewEstimator(oracle ports.GasOracle, logger log.Logger) *Estimator {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Estimator{
		oracle: oracle,
		logger: logger.With("module", "fee"),
	}
}

// Estimate returns gas * gasPrice for tx sent from from. The second result is
// false when either remote call failed.
func (e *Estimator) Estimate(ctx context.Context, tx staking.TxData, from common.Address) (math.Int, bool) {
	gas, err := e.oracle.EstimateGas(ctx, ports.CallMsg{From: from, To: tx.To, Data: tx.Calldata})
	if err != nil {
		e.logger.Error("gas estimation failed", "to", tx.To.Hex(), "from", from.Hex(), "error", err)
		return math.Int{}, false
	}

	price, err := e.oracle.SuggestGasPrice(ctx)
	if err != nil {
		e.logger.Error("gas price query failed", "error", err)
		return math.Int{}, false
	}
	if price == nil || price.Sign() < 0 {
		e.logger.Error("invalid gas price", "price", price)
		return math.Int{}, false
	}

	fee := math.NewIntFromUint64(gas).Mul(math.NewIntFromBigInt(price))
	e.logger.Debug("estimated fee", "gas", gas, "gasPrice", price.String(), "fee", fee.String())
	return fee, true
}

// LargestBondFee estimates the fee of bonding everything transferrable
// above feeReserve. Unknown fees are reported as zero.
func (e *Estimator) LargestBondFee(ctx context.Context, enc *staking.Encoder, from common.Address, transferrable, feeReserve math.Int) math.Int {
	bond := transferrable.Sub(feeReserve)
	if bond.IsNegative() {
		bond = math.ZeroInt()
	}

	tx, err := enc.BondExtra(bond.BigInt())
	if err != nil {
		e.logger.Error("failed to encode bondExtra", "error", err)
		return math.ZeroInt()
	}

	fee, ok := e.Estimate(ctx, tx, from)
	if !ok {
		return math.ZeroInt()
	}
	return fee
}
