package distribution

import (
	"context"
	"fmt"
	"log"

	"solana-swarm-lab/internal/bus"
	"solana-swarm-lab/internal/domain"
	"solana-swarm-lab/internal/solana"
	"solana-swarm-lab/internal/wallet"
)

// EndpointSource hands out RPC clients. Satisfied by the endpoint pool.
type EndpointSource interface {
	Acquire() (solana.RPCClient, error)
}

// DefaultFeePerHop is the flat lamport fee assumed per chained transfer:
// the base signature fee. The ledger's fee model is effectively flat for
// single-signature transfers, so the chain funding math treats it as a
// constant, parameterized on the engine for when that stops holding.
const DefaultFeePerHop = 5_000

// Engine executes transfer plans through the endpoint pool and reports
// every hop as a balance-delta pair on the bus.
type Engine struct {
	logger *log.Logger
	pool   EndpointSource
	bus    *bus.Bus

	// FeePerHop is the flat per-transfer fee the chain math assumes.
	FeePerHop uint64
}

// New creates a distribution engine.
func New(logger *log.Logger, pool EndpointSource, eventBus *bus.Bus) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{
		logger:    logger,
		pool:      pool,
		bus:       eventBus,
		FeePerHop: DefaultFeePerHop,
	}
}

// FanOut splits total across the destinations, evenly or randomly, and
// submits one batched multi-output transfer from the source. The even
// split ignores transfer fees; the source pays them on top.
func (e *Engine) FanOut(ctx context.Context, source *wallet.Keypair, destinations []string, total uint64, random bool) error {
	if len(destinations) == 0 {
		return ErrInvalidSplit
	}

	var shares []uint64
	var err error
	if random {
		shares, err = SplitRandom(total, len(destinations))
	} else {
		shares, err = SplitEven(total, len(destinations))
	}
	if err != nil {
		return err
	}

	instructions := make([]solana.Instruction, 0, len(destinations))
	for i, dest := range destinations {
		instructions = append(instructions, solana.SystemTransfer(source.PublicKey(), dest, shares[i]))
	}

	sig, err := e.submit(ctx, instructions, source)
	if err != nil {
		return fmt.Errorf("fan-out from %s: %w", source.PublicKey(), err)
	}

	for i, dest := range destinations {
		e.publishTransfer(source.PublicKey(), dest, shares[i], sig)
	}
	e.logger.Printf("fan-out %s: %d lamports to %d destinations", sig, total, len(destinations))
	return nil
}

// Chain moves total from the source through every destination in turn,
// inserting the given number of disposable intermediate accounts before
// each real destination. Each forwarding transfer sends the entire received amount
// minus one flat fee, so fees compound backward into the amount the
// source fronts. A failed hop ends the chain at the last funded
// destination; earlier destinations keep their shares.
func (e *Engine) Chain(ctx context.Context, source *wallet.Keypair, destinations []*wallet.Keypair, total uint64, hops int) error {
	n := len(destinations)
	if n == 0 {
		return ErrInvalidSplit
	}
	if hops < 0 {
		hops = 0
	}

	share := total / uint64(n)
	if share == 0 {
		return ErrInvalidSplit
	}
	totalFees := e.FeePerHop * uint64(hops+1) * uint64(n)

	current := source
	for i, dest := range destinations {
		// Each later destination is fronted strictly less: the prior
		// destination has already kept its share.
		fronted := total + totalFees - e.FeePerHop - share*uint64(i)

		if err := e.runChainLeg(ctx, current, dest, fronted, hops); err != nil {
			e.logger.Printf("chain broken at destination %d/%d: %v", i+1, n, err)
			return fmt.Errorf("chain leg %d: %w", i+1, err)
		}
		current = dest
	}
	e.logger.Printf("chain complete: %d lamports across %d destinations, %d hops each", total, n, hops)
	return nil
}

// runChainLeg transfers amount from source to dest through freshly
// generated intermediate accounts.
func (e *Engine) runChainLeg(ctx context.Context, source, dest *wallet.Keypair, amount uint64, hops int) error {
	current := source
	remaining := amount

	for h := 0; h < hops; h++ {
		hop, err := wallet.Generate()
		if err != nil {
			return fmt.Errorf("generate hop account: %w", err)
		}
		if err := e.transfer(ctx, current, hop.PublicKey(), remaining); err != nil {
			return fmt.Errorf("hop %d: %w", h+1, err)
		}
		current = hop
		remaining -= e.FeePerHop
	}
	if err := e.transfer(ctx, current, dest.PublicKey(), remaining); err != nil {
		return fmt.Errorf("final hop: %w", err)
	}
	return nil
}

// Collect sweeps every source account's spendable balance into the
// collector. Per-source failures are logged and do not stop the sweep.
func (e *Engine) Collect(ctx context.Context, sources []*wallet.Keypair, collector string) error {
	if len(sources) == 0 {
		return ErrInvalidSplit
	}

	client, err := e.pool.Acquire()
	if err != nil {
		return err
	}

	swept := 0
	for _, src := range sources {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if src.PublicKey() == collector {
			continue
		}

		balance, err := client.GetBalance(ctx, src.PublicKey())
		if err != nil {
			e.logger.Printf("collect %s: %v", src.PublicKey(), err)
			continue
		}
		if balance <= e.FeePerHop {
			continue
		}

		if err := e.transfer(ctx, src, collector, balance-e.FeePerHop); err != nil {
			e.logger.Printf("collect %s: %v", src.PublicKey(), err)
			continue
		}
		swept++
	}
	e.logger.Printf("collect: swept %d/%d accounts into %s", swept, len(sources), collector)
	return nil
}

// transfer submits one lamport transfer and publishes its delta pair.
func (e *Engine) transfer(ctx context.Context, from *wallet.Keypair, to string, lamports uint64) error {
	sig, err := e.submit(ctx, []solana.Instruction{
		solana.SystemTransfer(from.PublicKey(), to, lamports),
	}, from)
	if err != nil {
		return err
	}
	e.publishTransfer(from.PublicKey(), to, lamports, sig)
	return nil
}

func (e *Engine) submit(ctx context.Context, instructions []solana.Instruction, signer *wallet.Keypair) (string, error) {
	client, err := e.pool.Acquire()
	if err != nil {
		return "", err
	}
	blockhash, err := client.GetLatestBlockhash(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch blockhash: %w", err)
	}
	tx, err := solana.BuildTransaction(instructions, blockhash, signer.Signer())
	if err != nil {
		return "", err
	}
	if _, err := client.SendTransaction(ctx, tx.Base64); err != nil {
		return "", fmt.Errorf("send transfer: %w", err)
	}
	return tx.Signature, nil
}

// publishTransfer emits the delta pair for one hop: debit then credit.
func (e *Engine) publishTransfer(from, to string, lamports uint64, sig string) {
	e.bus.Publish(bus.BalanceKey(from), &domain.BalanceDelta{
		Account:   from,
		Lamports:  -int64(lamports),
		Signature: sig,
	})
	e.bus.Publish(bus.BalanceKey(to), &domain.BalanceDelta{
		Account:   to,
		Lamports:  int64(lamports),
		Signature: sig,
	})
}
