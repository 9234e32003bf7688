package broker

import (
	"context"
	"sort"

	"solana-swarm-lab/internal/solana"
)

const (
	// curveFeeBps is the trading fee the curve program takes on sells.
	curveFeeBps = 100

	// ammFeeBps is the pool trading fee (LP plus protocol share).
	ammFeeBps = 25

	// launchpadFeeBps is the launch-pad pool trading fee.
	launchpadFeeBps = 100

	// computeUnitLimit is the per-trade compute budget. Curve and pool
	// swaps stay well under this.
	computeUnitLimit = 200_000

	// minComputeUnitPrice is the floor price in micro-lamports per
	// compute unit; below this the fee markets ignore the transaction.
	minComputeUnitPrice = 1_000

	// microLamportsPerLamport converts the lamport fee budget into the
	// micro-lamport unit the compute-budget program expects.
	microLamportsPerLamport = 1_000_000

	// baseFeeLamports is the flat signature fee every transaction pays,
	// used when sizing spendable balances.
	baseFeeLamports = 5_000
)

// ComputeUnitPrice converts a lamport priority-fee budget into a
// micro-lamport per-unit price, floored at the minimum viable price.
func ComputeUnitPrice(priorityFeeLamports uint64) uint64 {
	price := priorityFeeLamports * microLamportsPerLamport / computeUnitLimit
	if price < minComputeUnitPrice {
		return minComputeUnitPrice
	}
	return price
}

// FeeBuffer is the lamport headroom a buy must leave untouched: the base
// fee plus the priority budget. Orchestrators subtract it before sizing a
// trade so the account can always pay for its own submission.
func FeeBuffer(priorityFeeLamports uint64) uint64 {
	return baseFeeLamports + priorityFeeLamports
}

// RecentFeeCeiling samples recent prioritization fees for the given
// writable accounts and returns the median non-zero sample, or zero when
// the network reports none. Orchestrators fetch it once per round so
// every account in the round prices against the same market.
func RecentFeeCeiling(ctx context.Context, client solana.RPCClient, accounts []string) (uint64, error) {
	samples, err := client.GetRecentPrioritizationFees(ctx, accounts)
	if err != nil {
		return 0, err
	}

	fees := make([]uint64, 0, len(samples))
	for _, s := range samples {
		if s.PrioritizationFee > 0 {
			fees = append(fees, s.PrioritizationFee)
		}
	}
	if len(fees) == 0 {
		return 0, nil
	}
	sort.Slice(fees, func(i, j int) bool { return fees[i] < fees[j] })
	return fees[len(fees)/2], nil
}
