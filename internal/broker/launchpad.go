package broker

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"log"
	"time"

	"github.com/mr-tron/base58"

	"solana-swarm-lab/internal/bus"
	"solana-swarm-lab/internal/domain"
	"solana-swarm-lab/internal/pricing"
	"solana-swarm-lab/internal/solana"
)

var (
	launchpadBuyDiscriminator  = []byte{250, 234, 13, 123, 213, 156, 19, 236}
	launchpadSellDiscriminator = []byte{149, 39, 222, 155, 211, 124, 152, 26}
)

// launchpadPoolMinSize covers the launch-pad pool fields the quote
// needs: discriminator, status byte, and five u64 reserve/supply fields.
const launchpadPoolMinSize = 8 + 1 + 5*8

// LaunchpadBroker trades against the launch-pad program. Its pools use
// the same constant-product family as the bonding curve, with their own
// account layout and fee schedule.
type LaunchpadBroker struct {
	executor
	fetcher *StateFetcher
}

// NewLaunchpadBroker creates a launch-pad broker.
func NewLaunchpadBroker(logger *log.Logger, pool Acquirer, eventBus *bus.Bus, fetcher *StateFetcher) *LaunchpadBroker {
	return &LaunchpadBroker{executor: newExecutor(logger, pool, eventBus), fetcher: fetcher}
}

func (b *LaunchpadBroker) Variant() Variant { return VariantLaunchpad }

// Buy spends p.Amount lamports against the launch-pad pool.
func (b *LaunchpadBroker) Buy(ctx context.Context, p TradeParams) (*domain.TradeOutcome, error) {
	if p.Account == nil {
		return nil, ErrNoSigner
	}

	state, poolAddr, err := b.fetcher.LaunchpadState(ctx, p.Mint)
	if err != nil {
		return nil, err
	}
	b.publishTradeInfo(curveTradeInfo(p.Mint, state))

	quote, err := pricing.BuildBuyQuote(state, p.Amount, p.SlippageBps)
	if err != nil {
		return nil, err
	}

	instructions, err := b.tradeInstructions(p, poolAddr, true,
		u64Args(launchpadBuyDiscriminator, p.Amount, quote.ExpectedOut, quote.WorstOut))
	if err != nil {
		return nil, err
	}

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

// Sell disposes of p.Amount token base units against the launch-pad pool.
func (b *LaunchpadBroker) Sell(ctx context.Context, p TradeParams) (*domain.TradeOutcome, error) {
	if p.Account == nil {
		return nil, ErrNoSigner
	}

	state, poolAddr, err := b.fetcher.LaunchpadState(ctx, p.Mint)
	if err != nil {
		return nil, err
	}
	b.publishTradeInfo(curveTradeInfo(p.Mint, state))

	quote, err := pricing.BuildSellQuote(state, p.Amount, launchpadFeeBps, p.SlippageBps)
	if err != nil {
		return nil, err
	}

	instructions, err := b.tradeInstructions(p, poolAddr, false,
		u64Args(launchpadSellDiscriminator, p.Amount, quote.ExpectedOut, quote.WorstOut))
	if err != nil {
		return nil, err
	}

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

// JitoSell is not implemented for launch-pad trades.
func (b *LaunchpadBroker) JitoSell(ctx context.Context, ps []TradeParams, tipLamports uint64, tipRelayURL string) (*domain.TradeOutcome, error) {
	return nil, ErrUnsupported
}

// tradeInstructions assembles the launch-pad trade with its vault and
// authority derivations. A buy wraps the native token in; both sides
// unwrap on the way out.
func (b *LaunchpadBroker) tradeInstructions(p TradeParams, poolAddr string, wrap bool, data []byte) ([]solana.Instruction, error) {
	user := p.Account.PublicKey()

	authority, err := launchpadAuthority()
	if err != nil {
		return nil, err
	}
	baseVault, quoteVault, err := launchpadVaults(poolAddr, p.Mint)
	if err != nil {
		return nil, err
	}
	userBaseATA, err := solana.AssociatedTokenAddress(user, p.Mint)
	if err != nil {
		return nil, err
	}
	userQuoteATA, err := solana.AssociatedTokenAddress(user, WrappedSolMint)
	if err != nil {
		return nil, err
	}

	trade := solana.Instruction{
		ProgramID: LaunchpadProgramID,
		Accounts: []solana.AccountMeta{
			{PubKey: user, IsSigner: true, IsWritable: true},
			{PubKey: authority},
			{PubKey: poolAddr, IsWritable: true},
			{PubKey: userBaseATA, IsWritable: true},
			{PubKey: userQuoteATA, IsWritable: true},
			{PubKey: baseVault, IsWritable: true},
			{PubKey: quoteVault, IsWritable: true},
			{PubKey: p.Mint},
			{PubKey: WrappedSolMint},
			{PubKey: solana.TokenProgramID},
			{PubKey: solana.SystemProgramID},
			{PubKey: LaunchpadProgramID},
		},
		Data: data,
	}

	instructions := budgetInstructions(p.PriorityFeeLamports)
	instructions = append(instructions,
		createATAIdempotent(user, user, p.Mint, userBaseATA),
		createATAIdempotent(user, user, WrappedSolMint, userQuoteATA),
	)
	if wrap {
		maxCost := pricing.MaxCostWithSlippage(p.Amount, p.SlippageBps)
		instructions = append(instructions,
			solana.SystemTransfer(user, userQuoteATA, maxCost),
			syncNative(userQuoteATA),
		)
	}
	instructions = append(instructions, trade, closeTokenAccount(userQuoteATA, user, user))
	return instructions, nil
}

// launchpadAuthority derives the program's vault authority.
func launchpadAuthority() (string, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("vault_auth_seed")},
		LaunchpadProgramID,
	)
	return addr, err
}

// launchpadPoolAddress derives the launch-pad pool for a mint against
// the wrapped native token.
func launchpadPoolAddress(mint string) (string, error) {
	mintRaw, err := base58.Decode(mint)
	if err != nil {
		return "", fmt.Errorf("decode mint %s: %w", mint, err)
	}
	quoteRaw, err := base58.Decode(WrappedSolMint)
	if err != nil {
		return "", err
	}
	addr, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("pool"), mintRaw, quoteRaw},
		LaunchpadProgramID,
	)
	return addr, err
}

// launchpadVaults derives the pool's base and quote vault addresses.
func launchpadVaults(poolAddr, mint string) (string, string, error) {
	poolRaw, err := base58.Decode(poolAddr)
	if err != nil {
		return "", "", fmt.Errorf("decode pool %s: %w", poolAddr, err)
	}
	mintRaw, err := base58.Decode(mint)
	if err != nil {
		return "", "", fmt.Errorf("decode mint %s: %w", mint, err)
	}
	quoteRaw, err := base58.Decode(WrappedSolMint)
	if err != nil {
		return "", "", err
	}

	base, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("pool_vault"), poolRaw, mintRaw},
		LaunchpadProgramID,
	)
	if err != nil {
		return "", "", err
	}
	quote, _, err := solana.FindProgramAddress(
		[][]byte{[]byte("pool_vault"), poolRaw, quoteRaw},
		LaunchpadProgramID,
	)
	return base, quote, err
}

// LaunchpadState fetches and decodes the launch-pad pool for a mint,
// normalized into the shared curve-state shape.
func (f *StateFetcher) LaunchpadState(ctx context.Context, mint string) (*domain.CurveState, string, error) {
	addr, err := launchpadPoolAddress(mint)
	if err != nil {
		return nil, "", err
	}

	client, err := f.pool.Acquire()
	if err != nil {
		return nil, "", err
	}

	info, err := client.GetAccountInfo(ctx, addr)
	if err != nil {
		return nil, "", fmt.Errorf("fetch launchpad pool %s: %w", addr, err)
	}
	if info == nil {
		return nil, "", ErrNoPool
	}

	state, err := parseLaunchpadPool(info.Data)
	if err != nil {
		return nil, "", err
	}
	return state, addr, nil
}

// parseLaunchpadPool decodes the launch-pad pool layout: 8-byte
// discriminator, status byte, then virtual and real reserves and supply.
func parseLaunchpadPool(dataBase64 string) (*domain.CurveState, error) {
	raw, err := base64.StdEncoding.DecodeString(dataBase64)
	if err != nil {
		return nil, fmt.Errorf("decode launchpad pool: %w", err)
	}
	if len(raw) < launchpadPoolMinSize {
		return nil, fmt.Errorf("launchpad pool too short: %d bytes", len(raw))
	}

	return &domain.CurveState{
		Complete:             raw[8] != 0,
		VirtualTokenReserves: binary.LittleEndian.Uint64(raw[9:17]),
		VirtualSolReserves:   binary.LittleEndian.Uint64(raw[17:25]),
		RealTokenReserves:    binary.LittleEndian.Uint64(raw[25:33]),
		RealSolReserves:      binary.LittleEndian.Uint64(raw[33:41]),
		TokenTotalSupply:     binary.LittleEndian.Uint64(raw[41:49]),
	}, nil
}
