package broker

import (
	"context"
	"fmt"
	"log"

	"solana-swarm-lab/internal/bus"
	"solana-swarm-lab/internal/domain"
	"solana-swarm-lab/internal/solana"
)

// executor carries the plumbing shared by every broker variant: building
// and submitting transactions through the endpoint pool and publishing
// results on the bus.
type executor struct {
	logger *log.Logger
	pool   Acquirer
	bus    *bus.Bus
}

func newExecutor(logger *log.Logger, pool Acquirer, eventBus *bus.Bus) executor {
	if logger == nil {
		logger = log.Default()
	}
	return executor{logger: logger, pool: pool, bus: eventBus}
}

func (e *executor) buildTx(ctx context.Context, instructions []solana.Instruction, signer solana.Signer) (*solana.SignedTx, error) {
	client, err := e.pool.Acquire()
	if err != nil {
		return nil, err
	}
	blockhash, err := client.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch blockhash: %w", err)
	}
	return solana.BuildTransaction(instructions, blockhash, signer)
}

// submit sends the transaction. Send failure is a soft failure: logged,
// reported as false, never escalated.
func (e *executor) submit(ctx context.Context, tx *solana.SignedTx) bool {
	client, err := e.pool.Acquire()
	if err != nil {
		e.logger.Printf("submit %s: %v", tx.Signature, err)
		return false
	}
	if _, err := client.SendTransaction(ctx, tx.Base64); err != nil {
		e.logger.Printf("submit %s: %v", tx.Signature, err)
		return false
	}
	return true
}

func (e *executor) publishTradeInfo(info *domain.TradeInfo) {
	e.bus.Publish(bus.KindTradeInfoFetched, info)
}

// publishDeltas announces a submitted outcome, then emits its two
// balance events: the ledger delta and the asset delta, in that order.
func (e *executor) publishDeltas(o *domain.TradeOutcome) {
	e.bus.Publish(bus.KindTradeSubmitted, o)

	key := bus.BalanceKey(o.Account)
	e.bus.Publish(key, &domain.BalanceDelta{
		Account:   o.Account,
		Lamports:  o.LamportsDelta,
		Signature: o.Signature,
	})
	e.bus.Publish(key, &domain.BalanceDelta{
		Account:   o.Account,
		Tokens:    o.TokensDelta,
		Signature: o.Signature,
	})
}
