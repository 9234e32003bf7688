package broker

import (
	"context"
	"log"
	"time"

	"solana-swarm-lab/internal/bus"
	"solana-swarm-lab/internal/domain"
	"solana-swarm-lab/internal/pricing"
	"solana-swarm-lab/internal/solana"
)

const (
	ammGlobalConfig      = "ADyA8hdefvWN2dbGGWFotbzWxrAvLW83WG6QCVXvJKqw"
	ammProtocolFeeWallet = "62qc2CNXwrYqQScmEdiZFFAnJR262PxWEuNQtxfafNgV"
	ammEventAuthority    = "GS4CU59F31iL7aR2Q8zVS8DRrcRnXX1yjQ66TqNVQnaR"
)

// AMMBroker trades against the pool a graduated curve migrates into.
// The pool quotes the asset against the wrapped native token, so every
// trade wraps lamports in and unwraps proceeds out within the same
// transaction.
type AMMBroker struct {
	executor
	fetcher *StateFetcher
}

// NewAMMBroker creates a pool broker.
func NewAMMBroker(logger *log.Logger, pool Acquirer, eventBus *bus.Bus, fetcher *StateFetcher) *AMMBroker {
	return &AMMBroker{executor: newExecutor(logger, pool, eventBus), fetcher: fetcher}
}

func (b *AMMBroker) Variant() Variant { return VariantAMM }

// Buy spends p.Amount lamports against the pool.
func (b *AMMBroker) Buy(ctx context.Context, p TradeParams) (*domain.TradeOutcome, error) {
	if p.Account == nil {
		return nil, ErrNoSigner
	}

	state, accounts, err := b.fetcher.PoolState(ctx, p.Mint)
	if err != nil {
		return nil, err
	}
	b.publishTradeInfo(poolTradeInfo(state))

	expectedOut, err := pricing.QuotePoolBuy(state, p.Amount)
	if err != nil {
		return nil, err
	}
	minOut := pricing.MinOutWithSlippage(expectedOut, p.SlippageBps)
	maxCost := pricing.MaxCostWithSlippage(p.Amount, p.SlippageBps)

	user := p.Account.PublicKey()
	userBaseATA, err := solana.AssociatedTokenAddress(user, p.Mint)
	if err != nil {
		return nil, err
	}
	userQuoteATA, err := solana.AssociatedTokenAddress(user, WrappedSolMint)
	if err != nil {
		return nil, err
	}

	instructions := budgetInstructions(p.PriorityFeeLamports)
	instructions = append(instructions,
		createATAIdempotent(user, user, p.Mint, userBaseATA),
		createATAIdempotent(user, user, WrappedSolMint, userQuoteATA),
		solana.SystemTransfer(user, userQuoteATA, maxCost),
		syncNative(userQuoteATA),
		b.swapInstruction(state, accounts, user, userBaseATA, userQuoteATA,
			u64Args(poolBuyDiscriminator, minOut, maxCost)),
		closeTokenAccount(userQuoteATA, user, user),
	)

	tx, err := b.buildTx(ctx, instructions, p.Account.Signer())
	if err != nil {
		return nil, err
	}
	if !b.submit(ctx, tx) {
		return nil, nil
	}

	outcome := &domain.TradeOutcome{
		Signature:     tx.Signature,
		Account:       user,
		Mint:          p.Mint,
		Side:          domain.TradeBuy,
		LamportsDelta: -int64(p.Amount),
		TokensDelta:   int64(expectedOut),
		Success:       true,
		SubmittedAt:   time.Now(),
	}
	b.publishDeltas(outcome)
	return outcome, nil
}

// Sell disposes of p.Amount token base units against the pool.
func (b *AMMBroker) Sell(ctx context.Context, p TradeParams) (*domain.TradeOutcome, error) {
	if p.Account == nil {
		return nil, ErrNoSigner
	}

	state, accounts, err := b.fetcher.PoolState(ctx, p.Mint)
	if err != nil {
		return nil, err
	}
	b.publishTradeInfo(poolTradeInfo(state))

	expectedOut, err := pricing.QuotePoolSell(state, p.Amount)
	if err != nil {
		return nil, err
	}
	minOut := pricing.MinOutWithSlippage(expectedOut, p.SlippageBps)

	user := p.Account.PublicKey()
	userBaseATA, err := solana.AssociatedTokenAddress(user, p.Mint)
	if err != nil {
		return nil, err
	}
	userQuoteATA, err := solana.AssociatedTokenAddress(user, WrappedSolMint)
	if err != nil {
		return nil, err
	}

	instructions := budgetInstructions(p.PriorityFeeLamports)
	instructions = append(instructions,
		createATAIdempotent(user, user, WrappedSolMint, userQuoteATA),
		b.swapInstruction(state, accounts, user, userBaseATA, userQuoteATA,
			u64Args(poolSellDiscriminator, p.Amount, minOut)),
		closeTokenAccount(userQuoteATA, user, user),
	)

	tx, err := b.buildTx(ctx, instructions, p.Account.Signer())
	if err != nil {
		return nil, err
	}
	if !b.submit(ctx, tx) {
		return nil, nil
	}

	outcome := &domain.TradeOutcome{
		Signature:     tx.Signature,
		Account:       user,
		Mint:          p.Mint,
		Side:          domain.TradeSell,
		LamportsDelta: int64(expectedOut),
		TokensDelta:   -int64(p.Amount),
		Success:       true,
		SubmittedAt:   time.Now(),
	}
	b.publishDeltas(outcome)
	return outcome, nil
}

// JitoSell is not implemented for pool trades.
func (b *AMMBroker) JitoSell(ctx context.Context, ps []TradeParams, tipLamports uint64, tipRelayURL string) (*domain.TradeOutcome, error) {
	return nil, ErrUnsupported
}

// swapInstruction assembles the pool swap with the shared account list;
// buy and sell differ only in discriminator and arguments.
func (b *AMMBroker) swapInstruction(state *domain.PoolState, accounts *poolAccounts, user, userBaseATA, userQuoteATA string, data []byte) solana.Instruction {
	feeATA, _ := solana.AssociatedTokenAddress(ammProtocolFeeWallet, accounts.quoteMint)

	return solana.Instruction{
		ProgramID: AMMProgramID,
		Accounts: []solana.AccountMeta{
			{PubKey: state.Address, IsWritable: true},
			{PubKey: user, IsSigner: true, IsWritable: true},
			{PubKey: ammGlobalConfig},
			{PubKey: accounts.baseMint},
			{PubKey: accounts.quoteMint},
			{PubKey: userBaseATA, IsWritable: true},
			{PubKey: userQuoteATA, IsWritable: true},
			{PubKey: accounts.baseVault, IsWritable: true},
			{PubKey: accounts.quoteVault, IsWritable: true},
			{PubKey: ammProtocolFeeWallet},
			{PubKey: feeATA, IsWritable: true},
			{PubKey: solana.TokenProgramID},
			{PubKey: solana.TokenProgramID},
			{PubKey: solana.SystemProgramID},
			{PubKey: solana.AssociatedTokenProgramID},
			{PubKey: ammEventAuthority},
			{PubKey: AMMProgramID},
		},
		Data: data,
	}
}

func poolTradeInfo(state *domain.PoolState) *domain.TradeInfo {
	return &domain.TradeInfo{
		Mint:          state.BaseMint,
		PriceLamports: pricing.PoolSpotPriceLamports(state, 6),
		CurveComplete: true,
	}
}
