// Package broker turns pricing quotes into signed, submitted ledger
// transactions. Three variants cover the venues a token can live on:
// the bonding curve, the AMM pool it graduates to, and the launch-pad
// program. Which variant handles a trade is resolved by the Selector
// from on-chain state.
package broker

import (
	"context"
	"errors"

	"solana-swarm-lab/internal/domain"
	"solana-swarm-lab/internal/solana"
	"solana-swarm-lab/internal/wallet"
)

// Acquirer hands out RPC clients in round-robin order. Satisfied by the
// endpoint pool.
type Acquirer interface {
	Acquire() (solana.RPCClient, error)
}

// Variant names a broker implementation.
type Variant string

const (
	VariantCurve     Variant = "CURVE"
	VariantAMM       Variant = "AMM"
	VariantLaunchpad Variant = "LAUNCHPAD"
)

var (
	// ErrUnsupported is returned for operations a variant does not
	// implement (bundled sells outside the curve broker).
	ErrUnsupported = errors.New("operation not supported by this broker")

	// ErrNoSigner is returned when the acting account is externally
	// signed and the swarm cannot produce a signature for it.
	ErrNoSigner = errors.New("account has no signing capability")
)

// TradeParams describes one buy or sell for one account.
type TradeParams struct {
	// Account signs and funds the trade.
	Account *wallet.Keypair

	// Mint is the traded asset, base58.
	Mint string

	// Amount is lamports to spend for a buy, token base units to sell
	// for a sell.
	Amount uint64

	// SlippageBps bounds the acceptable price movement.
	SlippageBps uint64

	// PriorityFeeLamports is the lamport budget for transaction
	// prioritization, converted to a compute-unit price at build time.
	PriorityFeeLamports uint64
}

// Broker executes trades against one venue.
//
// A nil outcome with a nil error means the submission was attempted but
// not confirmed: a soft failure. Callers log it and continue; no balance
// events are published for it.
type Broker interface {
	Variant() Variant

	Buy(ctx context.Context, p TradeParams) (*domain.TradeOutcome, error)

	Sell(ctx context.Context, p TradeParams) (*domain.TradeOutcome, error)

	// JitoSell submits the sells as one atomic bundle through a tip
	// relay. Only the bonding-curve broker implements this.
	JitoSell(ctx context.Context, ps []TradeParams, tipLamports uint64, tipRelayURL string) (*domain.TradeOutcome, error)
}
