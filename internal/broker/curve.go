package broker

import (
	"context"
	"fmt"
	"log"
	"time"

	"solana-swarm-lab/internal/bus"
	"solana-swarm-lab/internal/domain"
	"solana-swarm-lab/internal/pricing"
	"solana-swarm-lab/internal/solana"
)

// CurveBroker trades against the bonding-curve program. It is the only
// variant that implements bundled sells.
type CurveBroker struct {
	executor
	fetcher *StateFetcher
	bundler *BundleClient
}

// NewCurveBroker creates a bonding-curve broker.
func NewCurveBroker(logger *log.Logger, pool Acquirer, eventBus *bus.Bus, fetcher *StateFetcher) *CurveBroker {
	return &CurveBroker{
		executor: newExecutor(logger, pool, eventBus),
		fetcher:  fetcher,
		bundler:  NewBundleClient(),
	}
}

func (b *CurveBroker) Variant() Variant { return VariantCurve }

// Buy spends p.Amount lamports on the curve.
func (b *CurveBroker) Buy(ctx context.Context, p TradeParams) (*domain.TradeOutcome, error) {
	if p.Account == nil {
		return nil, ErrNoSigner
	}

	state, err := b.fetcher.CurveState(ctx, p.Mint)
	if err != nil {
		return nil, err
	}
	b.publishTradeInfo(curveTradeInfo(p.Mint, state))

	quote, err := pricing.BuildBuyQuote(state, p.Amount, p.SlippageBps)
	if err != nil {
		return nil, err
	}

	instructions, err := b.buyInstructions(p, state, quote)
	if err != nil {
		return nil, err
	}
	instructions = append(budgetInstructions(p.PriorityFeeLamports), instructions...)

	tx, err := b.buildTx(ctx, instructions, p.Account.Signer())
	if err != nil {
		return nil, err
	}
	if !b.submit(ctx, tx) {
		return nil, nil
	}

	outcome := &domain.TradeOutcome{
		Signature:     tx.Signature,
		Account:       p.Account.PublicKey(),
		Mint:          p.Mint,
		Side:          domain.TradeBuy,
		LamportsDelta: -int64(p.Amount),
		TokensDelta:   int64(quote.ExpectedOut),
		Success:       true,
		SubmittedAt:   time.Now(),
	}
	b.publishDeltas(outcome)
	return outcome, nil
}

// Sell disposes of p.Amount token base units on the curve.
func (b *CurveBroker) Sell(ctx context.Context, p TradeParams) (*domain.TradeOutcome, error) {
	if p.Account == nil {
		return nil, ErrNoSigner
	}

	state, err := b.fetcher.CurveState(ctx, p.Mint)
	if err != nil {
		return nil, err
	}
	b.publishTradeInfo(curveTradeInfo(p.Mint, state))

	quote, err := pricing.BuildSellQuote(state, p.Amount, curveFeeBps, p.SlippageBps)
	if err != nil {
		return nil, err
	}

	instructions, err := b.sellInstructions(p, state, quote)
	if err != nil {
		return nil, err
	}
	instructions = append(budgetInstructions(p.PriorityFeeLamports), instructions...)

	tx, err := b.buildTx(ctx, instructions, p.Account.Signer())
	if err != nil {
		return nil, err
	}
	if !b.submit(ctx, tx) {
		return nil, nil
	}

	outcome := &domain.TradeOutcome{
		Signature:     tx.Signature,
		Account:       p.Account.PublicKey(),
		Mint:          p.Mint,
		Side:          domain.TradeSell,
		LamportsDelta: int64(quote.ExpectedOut),
		TokensDelta:   -int64(p.Amount),
		Success:       true,
		SubmittedAt:   time.Now(),
	}
	b.publishDeltas(outcome)
	return outcome, nil
}

// JitoSell bundles one sell per account plus a tip transfer from the
// first account, and submits the bundle atomically through the relay.
func (b *CurveBroker) JitoSell(ctx context.Context, ps []TradeParams, tipLamports uint64, tipRelayURL string) (*domain.TradeOutcome, error) {
	if len(ps) == 0 {
		return nil, fmt.Errorf("empty sell bundle")
	}
	for _, p := range ps {
		if p.Account == nil {
			return nil, ErrNoSigner
		}
	}

	state, err := b.fetcher.CurveState(ctx, ps[0].Mint)
	if err != nil {
		return nil, err
	}
	b.publishTradeInfo(curveTradeInfo(ps[0].Mint, state))

	client, err := b.pool.Acquire()
	if err != nil {
		return nil, err
	}
	blockhash, err := client.GetLatestBlockhash(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch blockhash: %w", err)
	}

	txs := make([]*solana.SignedTx, 0, len(ps))
	outcomes := make([]*domain.TradeOutcome, 0, len(ps))
	for i, p := range ps {
		quote, err := pricing.BuildSellQuote(state, p.Amount, curveFeeBps, p.SlippageBps)
		if err != nil {
			return nil, fmt.Errorf("quote %s: %w", p.Account.PublicKey(), err)
		}

		instructions, err := b.sellInstructions(p, state, quote)
		if err != nil {
			return nil, err
		}
		instructions = append(budgetInstructions(p.PriorityFeeLamports), instructions...)
		if i == 0 {
			instructions = append(instructions,
				solana.SystemTransfer(p.Account.PublicKey(), TipAccount(), tipLamports))
		}

		tx, err := solana.BuildTransaction(instructions, blockhash, p.Account.Signer())
		if err != nil {
			return nil, fmt.Errorf("build tx %s: %w", p.Account.PublicKey(), err)
		}
		txs = append(txs, tx)

		outcomes = append(outcomes, &domain.TradeOutcome{
			Signature:     tx.Signature,
			Account:       p.Account.PublicKey(),
			Mint:          p.Mint,
			Side:          domain.TradeSell,
			LamportsDelta: int64(quote.ExpectedOut),
			TokensDelta:   -int64(p.Amount),
			Success:       true,
			SubmittedAt:   time.Now(),
		})
	}

	bundleID, err := b.bundler.SendBundle(ctx, tipRelayURL, txs)
	if err != nil {
		b.logger.Printf("bundle submission failed: %v", err)
		return nil, nil
	}
	b.logger.Printf("bundle %s submitted: %d sells, tip %d", bundleID, len(ps), tipLamports)

	for _, o := range outcomes {
		b.publishDeltas(o)
	}
	// The bundle outcome reports the first (tip-paying) account; per-account
	// detail travels on the bus.
	first := *outcomes[0]
	first.Signature = bundleID
	return &first, nil
}

// buyInstructions builds the ATA-create and curve buy instructions.
func (b *CurveBroker) buyInstructions(p TradeParams, state *domain.CurveState, quote *domain.Quote) ([]solana.Instruction, error) {
	user := p.Account.PublicKey()
	curve, curveATA, userATA, vault, err := curveTradeAccounts(user, p.Mint, state.Creator)
	if err != nil {
		return nil, err
	}

	buy := solana.Instruction{
		ProgramID: CurveProgramID,
		Accounts: []solana.AccountMeta{
			{PubKey: curveGlobalAccount},
			{PubKey: curveFeeRecipient, IsWritable: true},
			{PubKey: p.Mint},
			{PubKey: curve, IsWritable: true},
			{PubKey: curveATA, IsWritable: true},
			{PubKey: userATA, IsWritable: true},
			{PubKey: user, IsSigner: true, IsWritable: true},
			{PubKey: solana.SystemProgramID},
			{PubKey: solana.TokenProgramID},
			{PubKey: vault, IsWritable: true},
			{PubKey: curveEventAuthority},
			{PubKey: CurveProgramID},
		},
		// amount of tokens out, then the slippage-bounded max cost.
		Data: u64Args(curveBuyDiscriminator, quote.ExpectedOut, quote.WorstOut),
	}

	return []solana.Instruction{
		createATAIdempotent(user, user, p.Mint, userATA),
		buy,
	}, nil
}

// sellInstructions builds the curve sell instruction.
func (b *CurveBroker) sellInstructions(p TradeParams, state *domain.CurveState, quote *domain.Quote) ([]solana.Instruction, error) {
	user := p.Account.PublicKey()
	curve, curveATA, userATA, vault, err := curveTradeAccounts(user, p.Mint, state.Creator)
	if err != nil {
		return nil, err
	}

	sell := solana.Instruction{
		ProgramID: CurveProgramID,
		Accounts: []solana.AccountMeta{
			{PubKey: curveGlobalAccount},
			{PubKey: curveFeeRecipient, IsWritable: true},
			{PubKey: p.Mint},
			{PubKey: curve, IsWritable: true},
			{PubKey: curveATA, IsWritable: true},
			{PubKey: userATA, IsWritable: true},
			{PubKey: user, IsSigner: true, IsWritable: true},
			{PubKey: solana.SystemProgramID},
			{PubKey: vault, IsWritable: true},
			{PubKey: solana.TokenProgramID},
			{PubKey: curveEventAuthority},
			{PubKey: CurveProgramID},
		},
		// amount of tokens in, then the slippage-bounded min proceeds.
		Data: u64Args(curveSellDiscriminator, p.Amount, quote.WorstOut),
	}
	return []solana.Instruction{sell}, nil
}

// curveTradeAccounts derives the per-trade addresses both curve
// instructions reference.
func curveTradeAccounts(user, mint, creator string) (curve, curveATA, userATA, vault string, err error) {
	curve, err = CurveAddress(mint)
	if err != nil {
		return
	}
	curveATA, err = solana.AssociatedTokenAddress(curve, mint)
	if err != nil {
		return
	}
	userATA, err = solana.AssociatedTokenAddress(user, mint)
	if err != nil {
		return
	}
	vault, err = creatorVaultAddress(creator)
	return
}

func curveTradeInfo(mint string, state *domain.CurveState) *domain.TradeInfo {
	return &domain.TradeInfo{
		Mint:              mint,
		PriceLamports:     pricing.SpotPriceLamports(state, 6),
		MarketCapLamports: pricing.MarketCapLamports(state),
		CurveComplete:     state.Complete,
	}
}
