// Package pricing computes trade quotes against bonding-curve and pool
// state snapshots. All arithmetic is integer on the smallest indivisible
// unit: reserve values routinely exceed 2^53, so no floating point is
// allowed anywhere in this package.
package pricing

import (
	"errors"
	"math/big"

	"solana-swarm-lab/internal/domain"
)

// BpsDenominator is the basis-point scale (100% = 10000 bps).
const BpsDenominator = 10_000

var (
	// ErrCurveComplete is returned when a bonding-curve trade is quoted
	// against a completed curve. The trade must route through the pool
	// broker instead.
	ErrCurveComplete = errors.New("bonding curve complete")

	// ErrNoLiquidity is returned when a reserve needed for the quote is
	// zero or the input amount is zero.
	ErrNoLiquidity = errors.New("no liquidity for quote")
)

// QuoteBuy computes the asset amount received for spending amountIn
// lamports against a bonding curve. Constant-product with the pump-style
// +1 rounding on the new virtual asset reserve; the output is capped by
// the real asset reserve.
func QuoteBuy(state *domain.CurveState, amountIn uint64) (uint64, error) {
	if state.Complete {
		return 0, ErrCurveComplete
	}
	if amountIn == 0 || state.VirtualSolReserves == 0 || state.VirtualTokenReserves == 0 {
		return 0, ErrNoLiquidity
	}

	virtualSol := new(big.Int).SetUint64(state.VirtualSolReserves)
	virtualToken := new(big.Int).SetUint64(state.VirtualTokenReserves)

	product := new(big.Int).Mul(virtualSol, virtualToken)
	newVirtualSol := new(big.Int).Add(virtualSol, new(big.Int).SetUint64(amountIn))

	newVirtualToken := new(big.Int).Quo(product, newVirtualSol)
	newVirtualToken.Add(newVirtualToken, big.NewInt(1))

	out := new(big.Int).Sub(virtualToken, newVirtualToken)
	if out.Sign() <= 0 {
		return 0, ErrNoLiquidity
	}

	assetOut := out.Uint64()
	if assetOut > state.RealTokenReserves {
		assetOut = state.RealTokenReserves
	}
	return assetOut, nil
}

// QuoteSell computes the lamports received for selling amountIn asset
// units against a bonding curve, net of the curve fee in basis points.
func QuoteSell(state *domain.CurveState, amountIn, feeBps uint64) (uint64, error) {
	if state.Complete {
		return 0, ErrCurveComplete
	}
	if amountIn == 0 || state.VirtualSolReserves == 0 || state.VirtualTokenReserves == 0 {
		return 0, ErrNoLiquidity
	}

	gross := sellGross(state, amountIn)
	fee := new(big.Int).Mul(gross, new(big.Int).SetUint64(feeBps))
	fee.Quo(fee, big.NewInt(BpsDenominator))

	net := new(big.Int).Sub(gross, fee)
	if net.Sign() < 0 {
		return 0, nil
	}
	return net.Uint64(), nil
}

// sellGross computes amountIn * virtualSol / (virtualToken + amountIn).
func sellGross(state *domain.CurveState, amountIn uint64) *big.Int {
	in := new(big.Int).SetUint64(amountIn)
	gross := new(big.Int).Mul(in, new(big.Int).SetUint64(state.VirtualSolReserves))
	denom := new(big.Int).Add(new(big.Int).SetUint64(state.VirtualTokenReserves), in)
	return gross.Quo(gross, denom)
}

// MaxCostWithSlippage bounds a buy: the most lamports the caller accepts
// paying for the quoted output, amountIn * (10000 + slippageBps) / 10000.
func MaxCostWithSlippage(amountIn, slippageBps uint64) uint64 {
	cost := new(big.Int).SetUint64(amountIn)
	cost.Mul(cost, big.NewInt(BpsDenominator+int64(slippageBps)))
	cost.Quo(cost, big.NewInt(BpsDenominator))
	return cost.Uint64()
}

// MinOutWithSlippage bounds a sell: the fewest lamports the caller accepts
// receiving, max(1, gross * (10000 - slippageBps) / 10000). The floor of 1
// keeps a rounded-to-zero output from being rejected as degenerate.
func MinOutWithSlippage(gross, slippageBps uint64) uint64 {
	if slippageBps >= BpsDenominator {
		return 1
	}
	out := new(big.Int).SetUint64(gross)
	out.Mul(out, big.NewInt(BpsDenominator-int64(slippageBps)))
	out.Quo(out, big.NewInt(BpsDenominator))
	if out.Sign() <= 0 {
		return 1
	}
	return out.Uint64()
}

// BuildBuyQuote assembles the full buy quote for amountIn lamports.
// WorstOut carries the slippage-bounded maximum cost.
func BuildBuyQuote(state *domain.CurveState, amountIn, slippageBps uint64) (*domain.Quote, error) {
	out, err := QuoteBuy(state, amountIn)
	if err != nil {
		return nil, err
	}
	return &domain.Quote{
		AmountIn:    amountIn,
		ExpectedOut: out,
		WorstOut:    MaxCostWithSlippage(amountIn, slippageBps),
	}, nil
}

// BuildSellQuote assembles the full sell quote for amountIn asset units.
// WorstOut carries the slippage-bounded minimum proceeds.
func BuildSellQuote(state *domain.CurveState, amountIn, feeBps, slippageBps uint64) (*domain.Quote, error) {
	net, err := QuoteSell(state, amountIn, feeBps)
	if err != nil {
		return nil, err
	}
	return &domain.Quote{
		AmountIn:    amountIn,
		ExpectedOut: net,
		WorstOut:    MinOutWithSlippage(net, slippageBps),
	}, nil
}

// SpotPriceLamports returns the curve's instantaneous price in lamports
// per whole token, for a token with the given number of base-unit
// decimals.
func SpotPriceLamports(state *domain.CurveState, decimals uint8) uint64 {
	if state.VirtualTokenReserves == 0 {
		return 0
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	price := new(big.Int).SetUint64(state.VirtualSolReserves)
	price.Mul(price, scale)
	price.Quo(price, new(big.Int).SetUint64(state.VirtualTokenReserves))
	return price.Uint64()
}

// MarketCapLamports returns total supply valued at the spot price.
func MarketCapLamports(state *domain.CurveState) uint64 {
	if state.VirtualTokenReserves == 0 {
		return 0
	}
	mc := new(big.Int).SetUint64(state.VirtualSolReserves)
	mc.Mul(mc, new(big.Int).SetUint64(state.TokenTotalSupply))
	mc.Quo(mc, new(big.Int).SetUint64(state.VirtualTokenReserves))
	return mc.Uint64()
}

// PoolSpotPriceLamports returns the pool's instantaneous price in
// lamports per whole token.
func PoolSpotPriceLamports(pool *domain.PoolState, decimals uint8) uint64 {
	if pool.BaseReserves == 0 {
		return 0
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	price := new(big.Int).SetUint64(pool.QuoteReserves)
	price.Mul(price, scale)
	price.Quo(price, new(big.Int).SetUint64(pool.BaseReserves))
	return price.Uint64()
}

// QuotePoolBuy computes constant-product output for a pool buy (spend
// quote/lamports, receive base/tokens), net of the pool fee taken on the
// input side.
func QuotePoolBuy(pool *domain.PoolState, lamportsIn uint64) (uint64, error) {
	if lamportsIn == 0 || pool.BaseReserves == 0 || pool.QuoteReserves == 0 {
		return 0, ErrNoLiquidity
	}

	in := new(big.Int).SetUint64(lamportsIn)
	in.Mul(in, big.NewInt(BpsDenominator-int64(pool.FeeBps)))
	in.Quo(in, big.NewInt(BpsDenominator))

	num := new(big.Int).Mul(in, new(big.Int).SetUint64(pool.BaseReserves))
	den := new(big.Int).Add(new(big.Int).SetUint64(pool.QuoteReserves), in)
	out := num.Quo(num, den)
	if out.Sign() <= 0 {
		return 0, ErrNoLiquidity
	}
	return out.Uint64(), nil
}

// QuotePoolSell computes constant-product output for a pool sell (spend
// base/tokens, receive quote/lamports), net of the pool fee on the output.
func QuotePoolSell(pool *domain.PoolState, tokensIn uint64) (uint64, error) {
	if tokensIn == 0 || pool.BaseReserves == 0 || pool.QuoteReserves == 0 {
		return 0, ErrNoLiquidity
	}

	in := new(big.Int).SetUint64(tokensIn)
	num := new(big.Int).Mul(in, new(big.Int).SetUint64(pool.QuoteReserves))
	den := new(big.Int).Add(new(big.Int).SetUint64(pool.BaseReserves), in)
	gross := num.Quo(num, den)

	fee := new(big.Int).Mul(gross, big.NewInt(int64(pool.FeeBps)))
	fee.Quo(fee, big.NewInt(BpsDenominator))
	net := gross.Sub(gross, fee)
	if net.Sign() <= 0 {
		return 0, ErrNoLiquidity
	}
	return net.Uint64(), nil
}
