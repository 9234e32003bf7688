// Package orchestrator drives buy/sell operations across the selected
// subset of swarm accounts: one-shot passes and repeated rounds that run
// until the accounts are exhausted. Accounts within a round are processed
// sequentially so submission order, and the fee ceiling fetched once per
// round, stay deterministic.
package orchestrator

import (
	"context"
	"errors"
	"log"
	"math/rand"
	"sync"
	"time"

	"solana-swarm-lab/internal/broker"
	"solana-swarm-lab/internal/bus"
	"solana-swarm-lab/internal/domain"
	"solana-swarm-lab/internal/wallet"
)

const (
	// MaxRounds is the hard ceiling on run-to-exhaustion rounds.
	MaxRounds = 10

	// SweepThresholdUnits is the asset balance below which a sell round
	// sweeps the entire remainder instead of selling a partial amount.
	SweepThresholdUnits = 500_000
)

// ErrInvalidSelection rejects an operation over zero accounts before any
// network call is made.
var ErrInvalidSelection = errors.New("no accounts selected")

// TerminalState is how a run-to-exhaustion loop ended. Only Stopped is
// externally triggered; the others are self-detected.
type TerminalState string

const (
	StateStopped           TerminalState = "STOPPED"
	StateExhausted         TerminalState = "EXHAUSTED"
	StateRoundLimitReached TerminalState = "ROUND_LIMIT_REACHED"
	StateNoProgress        TerminalState = "NO_PROGRESS"
)

// Params configures one orchestrated operation.
type Params struct {
	// Accounts is the selected subset, with last observed balances.
	Accounts []*domain.Account

	Mint string
	Side domain.TradeSide

	// BuyAmounts lists candidate lamport spends for buys.
	BuyAmounts []uint64

	// SellPercents lists candidate percentages of the asset balance to
	// sell per pass.
	SellPercents []uint64

	// UseRandomAmount picks a random list element per account instead
	// of always the first.
	UseRandomAmount bool

	// Delay is the cooperative sleep between accounts.
	Delay time.Duration

	SlippageBps         uint64
	PriorityFeeLamports uint64

	// UseJitoBundle routes sells through the bundled atomic path.
	UseJitoBundle bool
	TipLamports   uint64
	TipRelayURL   string
}

// Result is the single summary an invoked operation returns. Per-account
// detail travels through logs and bus events only, because partial
// failure is the expected common case.
type Result struct {
	State     TerminalState
	Rounds    int
	Submitted int
	Failed    int
}

// Orchestrator runs trading operations. Multiple orchestrators may share
// one pool and one bus.
type Orchestrator struct {
	logger   *log.Logger
	bus      *bus.Bus
	selector *broker.Selector
	pool     broker.Acquirer

	mu      sync.Mutex
	handles []*domain.OperationHandle
}

// New creates an orchestrator and wires its stop-signal subscription.
func New(logger *log.Logger, eventBus *bus.Bus, selector *broker.Selector, pool broker.Acquirer) *Orchestrator {
	if logger == nil {
		logger = log.Default()
	}
	o := &Orchestrator{
		logger:   logger,
		bus:      eventBus,
		selector: selector,
		pool:     pool,
	}
	eventBus.Subscribe(bus.KindStopSignal, o.onStopSignal)
	return o
}

// onStopSignal flips the stopped flag on every matching handle. The loop
// observes the flag between submissions; nothing is interrupted mid-flight.
func (o *Orchestrator) onStopSignal(payload interface{}) {
	req, ok := payload.(*bus.StopRequest)
	if !ok {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, h := range o.handles {
		if h.Matches(req.Owner, domain.OperationKind(req.Kind)) {
			h.Stop()
		}
	}
}

func (o *Orchestrator) register(h *domain.OperationHandle) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handles = append(o.handles, h)
}

func (o *Orchestrator) unregister(h *domain.OperationHandle) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, reg := range o.handles {
		if reg == h {
			o.handles = append(o.handles[:i:i], o.handles[i+1:]...)
			return
		}
	}
}

// RunPass executes one pass over the selected accounts. Per-account
// failures are logged and do not abort the batch.
func (o *Orchestrator) RunPass(ctx context.Context, p Params) (*Result, error) {
	if len(p.Accounts) == 0 {
		return nil, ErrInvalidSelection
	}

	b := o.selector.Resolve(ctx, p.Mint)
	o.logger.Printf("pass %s %s: %d accounts via %s", p.Side, p.Mint, len(p.Accounts), b.Variant())

	if p.UseJitoBundle && p.Side == domain.TradeSell {
		return o.runBundledSell(ctx, b, p)
	}

	balances := newBalanceBook(p.Accounts)
	res := &Result{Rounds: 1}
	o.runRound(ctx, b, p, balances, nil, res)
	if ctx.Err() != nil {
		res.State = StateStopped
	} else {
		res.State = StateExhausted
	}
	return res, nil
}

// RunToExhaustion repeats rounds until every account is exhausted, a
// matching stop signal arrives, the round ceiling is hit, or a round
// completes without a single successful submission.
func (o *Orchestrator) RunToExhaustion(ctx context.Context, owner string, p Params) (*Result, error) {
	if len(p.Accounts) == 0 {
		return nil, ErrInvalidSelection
	}

	kind := domain.OpBuyRunOut
	if p.Side == domain.TradeSell {
		kind = domain.OpSellRunOut
	}
	handle := domain.NewOperationHandle(owner, kind)
	o.register(handle)
	defer o.unregister(handle)

	b := o.selector.Resolve(ctx, p.Mint)
	o.logger.Printf("run-out %s %s: %d accounts via %s", p.Side, p.Mint, len(p.Accounts), b.Variant())

	balances := newBalanceBook(p.Accounts)
	res := &Result{}

	for round := 1; round <= MaxRounds; round++ {
		if handle.Stopped() || ctx.Err() != nil {
			res.State = StateStopped
			return res, nil
		}

		res.Rounds = round
		submitted := o.runRound(ctx, b, p, balances, handle, res)

		if submitted == 0 {
			// Zero successes counts as global exhaustion even when some
			// failures were transient; see the result summary for the
			// failure count.
			res.State = StateNoProgress
			return res, nil
		}
		if balances.allExhausted() {
			res.State = StateExhausted
			return res, nil
		}
		if handle.Stopped() || ctx.Err() != nil {
			res.State = StateStopped
			return res, nil
		}
	}

	res.State = StateRoundLimitReached
	return res, nil
}

// runRound processes every non-exhausted account once, sequentially.
// Returns the number of successful submissions this round.
func (o *Orchestrator) runRound(ctx context.Context, b broker.Broker, p Params, balances *balanceBook, handle *domain.OperationHandle, res *Result) int {
	ceiling := o.roundFeeCeiling(ctx, p)

	submitted := 0
	for _, acct := range p.Accounts {
		if handle != nil && handle.Stopped() {
			return submitted
		}
		if ctx.Err() != nil {
			return submitted
		}
		if balances.exhausted(acct.PublicKey) {
			continue
		}

		amount, sweep := o.tradeAmount(p, balances, acct.PublicKey)
		if amount == 0 {
			balances.markExhausted(acct.PublicKey)
			continue
		}

		kp, err := wallet.FromSecret(acct.SecretKey)
		if err != nil {
			o.logger.Printf("account %s: %v", acct.PublicKey, err)
			res.Failed++
			continue
		}

		outcome, err := o.execute(ctx, b, broker.TradeParams{
			Account:             kp,
			Mint:                p.Mint,
			Amount:              amount,
			SlippageBps:         p.SlippageBps,
			PriorityFeeLamports: max64(p.PriorityFeeLamports, ceiling),
		}, p.Side)
		switch {
		case err != nil:
			// Non-fatal: the account may succeed next round.
			o.logger.Printf("account %s: %v", acct.PublicKey, err)
			res.Failed++
		case outcome == nil:
			o.logger.Printf("account %s: submission not confirmed", acct.PublicKey)
			res.Failed++
		default:
			submitted++
			res.Submitted++
			balances.apply(outcome)
			if sweep {
				balances.markExhausted(acct.PublicKey)
			}
		}

		if !o.sleep(ctx, handle, p.Delay) {
			return submitted
		}
	}
	return submitted
}

func (o *Orchestrator) execute(ctx context.Context, b broker.Broker, tp broker.TradeParams, side domain.TradeSide) (*domain.TradeOutcome, error) {
	if side == domain.TradeBuy {
		return b.Buy(ctx, tp)
	}
	return b.Sell(ctx, tp)
}

// runBundledSell sells every selected account atomically through the tip
// relay instead of submitting sequentially.
func (o *Orchestrator) runBundledSell(ctx context.Context, b broker.Broker, p Params) (*Result, error) {
	balances := newBalanceBook(p.Accounts)
	res := &Result{Rounds: 1}

	params := make([]broker.TradeParams, 0, len(p.Accounts))
	for _, acct := range p.Accounts {
		amount, _ := o.tradeAmount(p, balances, acct.PublicKey)
		if amount == 0 {
			o.logger.Printf("account %s: nothing to sell, excluded from bundle", acct.PublicKey)
			continue
		}
		kp, err := wallet.FromSecret(acct.SecretKey)
		if err != nil {
			o.logger.Printf("account %s: %v", acct.PublicKey, err)
			res.Failed++
			continue
		}
		params = append(params, broker.TradeParams{
			Account:             kp,
			Mint:                p.Mint,
			Amount:              amount,
			SlippageBps:         p.SlippageBps,
			PriorityFeeLamports: p.PriorityFeeLamports,
		})
	}
	if len(params) == 0 {
		res.State = StateNoProgress
		return res, nil
	}

	outcome, err := b.JitoSell(ctx, params, p.TipLamports, p.TipRelayURL)
	switch {
	case err != nil:
		return nil, err
	case outcome == nil:
		res.Failed += len(params)
		res.State = StateNoProgress
	default:
		res.Submitted = len(params)
		res.State = StateExhausted
	}
	return res, nil
}

// tradeAmount sizes the next trade for one account from its tracked
// balances: a list pick capped by spendable balance for buys, a
// percentage of holdings for sells with the small-remainder sweep.
// The second return marks a sweeping sell.
func (o *Orchestrator) tradeAmount(p Params, balances *balanceBook, pubkey string) (uint64, bool) {
	if p.Side == domain.TradeBuy {
		spendable := balances.lamports(pubkey)
		buffer := broker.FeeBuffer(p.PriorityFeeLamports)
		if spendable <= buffer {
			return 0, false
		}
		spendable -= buffer

		amount := pickAmount(p.BuyAmounts, p.UseRandomAmount)
		if amount > spendable {
			amount = spendable
		}
		return amount, false
	}

	held := balances.tokens(pubkey)
	if held == 0 {
		return 0, false
	}
	if held < SweepThresholdUnits {
		return held, true
	}

	percent := pickAmount(p.SellPercents, p.UseRandomAmount)
	if percent == 0 {
		return 0, false
	}
	if percent >= 100 {
		return held, true
	}
	amount := held / 100 * percent
	if amount == 0 {
		return held, true
	}
	return amount, false
}

// pickAmount selects from the configured list: the first entry, or a
// random one when randomization is on.
func pickAmount(list []uint64, random bool) uint64 {
	if len(list) == 0 {
		return 0
	}
	if random && len(list) > 1 {
		return list[rand.Intn(len(list))]
	}
	return list[0]
}

// roundFeeCeiling samples the network fee market once per round so every
// account prices identically. Failure to sample is not fatal.
func (o *Orchestrator) roundFeeCeiling(ctx context.Context, p Params) uint64 {
	client, err := o.pool.Acquire()
	if err != nil {
		return 0
	}
	ceiling, err := broker.RecentFeeCeiling(ctx, client, nil)
	if err != nil {
		o.logger.Printf("fee ceiling sample failed: %v", err)
		return 0
	}
	return ceiling
}

// sleep waits out the configured delay cooperatively. Returns false when
// the operation should stop instead of continuing to the next account.
// A stopped operation never sleeps.
func (o *Orchestrator) sleep(ctx context.Context, handle *domain.OperationHandle, d time.Duration) bool {
	if handle != nil && handle.Stopped() {
		return false
	}
	if ctx.Err() != nil {
		return false
	}
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}
	return !(handle != nil && handle.Stopped())
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
