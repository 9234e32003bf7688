package pricing

import (
	"errors"
	"testing"

	"solana-swarm-lab/internal/domain"
)

// freshCurve returns reserves matching a newly launched curve.
func freshCurve() *domain.CurveState {
	return &domain.CurveState{
		VirtualTokenReserves: 1_000_000_000_000_000,
		VirtualSolReserves:   30_000_000_000,
		RealTokenReserves:    800_000_000_000_000,
		RealSolReserves:      0,
		TokenTotalSupply:     1_000_000_000_000_000,
	}
}

func TestQuoteBuy_FreshCurve(t *testing.T) {
	state := freshCurve()

	out, err := QuoteBuy(state, 1_000_000_000)
	if err != nil {
		t.Fatalf("QuoteBuy: %v", err)
	}

	// product = 30e9 * 1e15; new virtual sol = 31e9;
	// new virtual token = floor(product / 31e9) + 1 = 967741935483871
	if out != 32_258_064_516_129 {
		t.Errorf("expected 32258064516129 tokens out, got %d", out)
	}
	if out > state.RealTokenReserves {
		t.Errorf("output %d exceeds real reserves %d", out, state.RealTokenReserves)
	}
}

func TestQuoteBuy_Monotonic(t *testing.T) {
	state := freshCurve()

	var prev uint64
	for _, in := range []uint64{1_000, 1_000_000, 1_000_000_000, 100_000_000_000} {
		out, err := QuoteBuy(state, in)
		if err != nil {
			t.Fatalf("QuoteBuy(%d): %v", in, err)
		}
		if out < prev {
			t.Errorf("output decreased: %d lamports -> %d tokens, prev %d", in, out, prev)
		}
		prev = out
	}
}

func TestQuoteBuy_CappedByRealReserves(t *testing.T) {
	state := freshCurve()
	state.RealTokenReserves = 1_000

	out, err := QuoteBuy(state, 1_000_000_000)
	if err != nil {
		t.Fatalf("QuoteBuy: %v", err)
	}
	if out != 1_000 {
		t.Errorf("expected output capped at 1000, got %d", out)
	}
}

func TestQuoteBuy_CompleteCurve(t *testing.T) {
	state := freshCurve()
	state.Complete = true

	_, err := QuoteBuy(state, 1_000_000_000)
	if !errors.Is(err, ErrCurveComplete) {
		t.Errorf("expected ErrCurveComplete, got %v", err)
	}
}

func TestQuoteBuy_ZeroInput(t *testing.T) {
	_, err := QuoteBuy(freshCurve(), 0)
	if !errors.Is(err, ErrNoLiquidity) {
		t.Errorf("expected ErrNoLiquidity, got %v", err)
	}
}

func TestQuoteBuy_ZeroReserves(t *testing.T) {
	state := freshCurve()
	state.VirtualSolReserves = 0

	_, err := QuoteBuy(state, 1_000)
	if !errors.Is(err, ErrNoLiquidity) {
		t.Errorf("expected ErrNoLiquidity, got %v", err)
	}
}

func TestQuoteSell_FeeReducesProceeds(t *testing.T) {
	state := freshCurve()
	amount := uint64(32_258_064_516_129)

	gross, err := QuoteSell(state, amount, 0)
	if err != nil {
		t.Fatalf("QuoteSell fee 0: %v", err)
	}
	net, err := QuoteSell(state, amount, 100)
	if err != nil {
		t.Fatalf("QuoteSell fee 100: %v", err)
	}

	if net >= gross {
		t.Errorf("expected fee to reduce proceeds: gross %d, net %d", gross, net)
	}
	// 100 bps fee removes exactly gross/100, rounded down in fee favor.
	expected := gross - gross/100
	if net != expected {
		t.Errorf("expected net %d, got %d", expected, net)
	}
}

func TestQuoteSell_RoundTripLosesValue(t *testing.T) {
	state := freshCurve()
	spend := uint64(1_000_000_000)

	bought, err := QuoteBuy(state, spend)
	if err != nil {
		t.Fatalf("QuoteBuy: %v", err)
	}
	proceeds, err := QuoteSell(state, bought, 100)
	if err != nil {
		t.Fatalf("QuoteSell: %v", err)
	}

	if proceeds >= spend {
		t.Errorf("round trip must not profit: spent %d, received %d", spend, proceeds)
	}
}

func TestQuoteSell_CompleteCurve(t *testing.T) {
	state := freshCurve()
	state.Complete = true

	_, err := QuoteSell(state, 1_000, 100)
	if !errors.Is(err, ErrCurveComplete) {
		t.Errorf("expected ErrCurveComplete, got %v", err)
	}
}

func TestMaxCostWithSlippage(t *testing.T) {
	if got := MaxCostWithSlippage(1_000_000_000, 500); got != 1_050_000_000 {
		t.Errorf("expected 1050000000, got %d", got)
	}
	if got := MaxCostWithSlippage(1_000_000_000, 0); got != 1_000_000_000 {
		t.Errorf("expected unchanged cost, got %d", got)
	}
}

func TestMinOutWithSlippage(t *testing.T) {
	if got := MinOutWithSlippage(1_000, 500); got != 950 {
		t.Errorf("expected 950, got %d", got)
	}
	// Rounded-to-zero output floors at 1 instead of rejecting the trade.
	if got := MinOutWithSlippage(0, 500); got != 1 {
		t.Errorf("expected floor of 1 for zero gross, got %d", got)
	}
	if got := MinOutWithSlippage(1_000, 10_000); got != 1 {
		t.Errorf("expected floor of 1 for full slippage, got %d", got)
	}
	if got := MinOutWithSlippage(1, 9_999); got != 1 {
		t.Errorf("expected floor of 1, got %d", got)
	}
}

func TestBuildBuyQuote(t *testing.T) {
	state := freshCurve()

	q, err := BuildBuyQuote(state, 1_000_000_000, 500)
	if err != nil {
		t.Fatalf("BuildBuyQuote: %v", err)
	}

	if q.AmountIn != 1_000_000_000 {
		t.Errorf("expected AmountIn 1000000000, got %d", q.AmountIn)
	}
	if q.ExpectedOut != 32_258_064_516_129 {
		t.Errorf("expected ExpectedOut 32258064516129, got %d", q.ExpectedOut)
	}
	if q.WorstOut != 1_050_000_000 {
		t.Errorf("expected WorstOut 1050000000, got %d", q.WorstOut)
	}
}

func TestBuildSellQuote(t *testing.T) {
	state := freshCurve()

	q, err := BuildSellQuote(state, 32_258_064_516_129, 100, 500)
	if err != nil {
		t.Fatalf("BuildSellQuote: %v", err)
	}

	if q.WorstOut == 0 {
		t.Error("WorstOut must never be zero")
	}
	if q.WorstOut > q.ExpectedOut {
		t.Errorf("WorstOut %d exceeds ExpectedOut %d", q.WorstOut, q.ExpectedOut)
	}
}

func TestSpotPriceLamports(t *testing.T) {
	state := freshCurve()

	// 30e9 lamports * 10^6 base units / 1e15 tokens = 30 lamports per token.
	if got := SpotPriceLamports(state, 6); got != 30 {
		t.Errorf("expected spot price 30, got %d", got)
	}

	state.VirtualTokenReserves = 0
	if got := SpotPriceLamports(state, 6); got != 0 {
		t.Errorf("expected 0 for empty reserves, got %d", got)
	}
}

func TestMarketCapLamports(t *testing.T) {
	state := freshCurve()

	if got := MarketCapLamports(state); got != 30_000_000_000 {
		t.Errorf("expected market cap 30000000000, got %d", got)
	}
}

func TestQuotePoolBuy(t *testing.T) {
	pool := &domain.PoolState{
		BaseReserves:  1_000_000_000_000,
		QuoteReserves: 10_000_000_000,
		FeeBps:        25,
	}

	out, err := QuotePoolBuy(pool, 1_000_000_000)
	if err != nil {
		t.Fatalf("QuotePoolBuy: %v", err)
	}
	if out == 0 || out >= pool.BaseReserves {
		t.Errorf("unreasonable pool output %d", out)
	}

	// The fee is taken on the input, so a feeless pool pays out more.
	feeless := &domain.PoolState{
		BaseReserves:  pool.BaseReserves,
		QuoteReserves: pool.QuoteReserves,
	}
	more, err := QuotePoolBuy(feeless, 1_000_000_000)
	if err != nil {
		t.Fatalf("QuotePoolBuy feeless: %v", err)
	}
	if more <= out {
		t.Errorf("expected feeless output %d to exceed fee output %d", more, out)
	}
}

func TestQuotePoolSell(t *testing.T) {
	pool := &domain.PoolState{
		BaseReserves:  1_000_000_000_000,
		QuoteReserves: 10_000_000_000,
		FeeBps:        25,
	}

	out, err := QuotePoolSell(pool, 50_000_000_000)
	if err != nil {
		t.Fatalf("QuotePoolSell: %v", err)
	}
	if out == 0 || out >= pool.QuoteReserves {
		t.Errorf("unreasonable pool proceeds %d", out)
	}

	_, err = QuotePoolSell(pool, 0)
	if !errors.Is(err, ErrNoLiquidity) {
		t.Errorf("expected ErrNoLiquidity, got %v", err)
	}
}

func TestPoolSpotPriceLamports(t *testing.T) {
	pool := &domain.PoolState{
		BaseReserves:  1_000_000_000_000,
		QuoteReserves: 30_000_000_000,
	}

	// 30e9 * 10^6 / 1e12 = 30000 lamports per whole token.
	if got := PoolSpotPriceLamports(pool, 6); got != 30_000 {
		t.Errorf("expected 30000, got %d", got)
	}
}
