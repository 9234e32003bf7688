package distribution

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/mr-tron/base58"

	"solana-swarm-lab/internal/bus"
	"solana-swarm-lab/internal/domain"
	"solana-swarm-lab/internal/solana"
	"solana-swarm-lab/internal/wallet"
)

// fakeClient serves balances and accepts transfers without a network.
type fakeClient struct {
	balances   map[string]uint64
	balanceErr map[string]error
	sent       []string
}

func (f *fakeClient) GetAccountInfo(context.Context, string) (*solana.AccountInfo, error) {
	return nil, nil
}

func (f *fakeClient) GetMultipleAccounts(_ context.Context, pubkeys []string) ([]*solana.AccountInfo, error) {
	return make([]*solana.AccountInfo, len(pubkeys)), nil
}

func (f *fakeClient) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	if err := f.balanceErr[pubkey]; err != nil {
		return 0, err
	}
	return f.balances[pubkey], nil
}

func (f *fakeClient) GetTokenAccountBalance(context.Context, string) (uint64, error) {
	return 0, nil
}

func (f *fakeClient) GetLatestBlockhash(context.Context) (string, error) {
	return base58.Encode(bytes.Repeat([]byte{7}, 32)), nil
}

func (f *fakeClient) GetRecentPrioritizationFees(context.Context, []string) ([]solana.PrioritizationFee, error) {
	return nil, nil
}

func (f *fakeClient) SendTransaction(_ context.Context, txBase64 string) (string, error) {
	f.sent = append(f.sent, txBase64)
	return "sig", nil
}

var _ solana.RPCClient = (*fakeClient)(nil)

type fakeSource struct {
	client *fakeClient
	err    error
}

func (f *fakeSource) Acquire() (solana.RPCClient, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}

func testEngine(t *testing.T) (*Engine, *fakeClient, *bus.Bus) {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	client := &fakeClient{balances: make(map[string]uint64), balanceErr: make(map[string]error)}
	eventBus := bus.New(logger)
	return New(logger, &fakeSource{client: client}, eventBus), client, eventBus
}

func testKeypair(t *testing.T) *wallet.Keypair {
	t.Helper()
	kp, err := wallet.Generate()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	return kp
}

// recordCredits collects positive deltas per account as they are published.
func recordCredits(eventBus *bus.Bus, credits map[string][]int64, accounts ...string) {
	for _, acct := range accounts {
		key := acct
		eventBus.Subscribe(bus.BalanceKey(key), func(payload interface{}) {
			delta, ok := payload.(*domain.BalanceDelta)
			if !ok {
				return
			}
			if delta.Lamports > 0 {
				credits[key] = append(credits[key], delta.Lamports)
			}
		})
	}
}

func TestFanOut_EvenSplit(t *testing.T) {
	engine, client, eventBus := testEngine(t)
	source := testKeypair(t)

	dests := []string{
		testKeypair(t).PublicKey(),
		testKeypair(t).PublicKey(),
		testKeypair(t).PublicKey(),
	}
	credits := make(map[string][]int64)
	recordCredits(eventBus, credits, dests...)

	if err := engine.FanOut(context.Background(), source, dests, 10, false); err != nil {
		t.Fatalf("FanOut: %v", err)
	}

	// One batched transaction covers all destinations.
	if len(client.sent) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(client.sent))
	}

	want := []int64{4, 3, 3}
	for i, dest := range dests {
		got := credits[dest]
		if len(got) != 1 || got[0] != want[i] {
			t.Errorf("destination %d: expected credit %d, got %v", i, want[i], got)
		}
	}
}

func TestFanOut_InvalidInput(t *testing.T) {
	engine, _, _ := testEngine(t)
	source := testKeypair(t)

	if err := engine.FanOut(context.Background(), source, nil, 10, false); !errors.Is(err, ErrInvalidSplit) {
		t.Errorf("expected ErrInvalidSplit for no destinations, got %v", err)
	}
	dests := []string{testKeypair(t).PublicKey(), testKeypair(t).PublicKey()}
	if err := engine.FanOut(context.Background(), source, dests, 1, false); !errors.Is(err, ErrInvalidSplit) {
		t.Errorf("expected ErrInvalidSplit for total < n, got %v", err)
	}
}

func TestChain_FrontsFeesAndShares(t *testing.T) {
	engine, client, eventBus := testEngine(t)
	source := testKeypair(t)
	dests := []*wallet.Keypair{testKeypair(t), testKeypair(t)}

	credits := make(map[string][]int64)
	recordCredits(eventBus, credits, dests[0].PublicKey(), dests[1].PublicKey())

	if err := engine.Chain(context.Background(), source, dests, 30_000, 0); err != nil {
		t.Fatalf("Chain: %v", err)
	}

	if len(client.sent) != 2 {
		t.Fatalf("expected 2 transfers, got %d", len(client.sent))
	}

	// The first destination is fronted the whole remaining chain minus one
	// fee; the second receives its share plus its own forwarding fee.
	first := credits[dests[0].PublicKey()]
	if len(first) != 1 || first[0] != 35_000 {
		t.Errorf("expected first destination fronted 35000, got %v", first)
	}
	second := credits[dests[1].PublicKey()]
	if len(second) != 1 || second[0] != 20_000 {
		t.Errorf("expected second destination fronted 20000, got %v", second)
	}
}

func TestChain_IntermediateHops(t *testing.T) {
	engine, client, eventBus := testEngine(t)
	source := testKeypair(t)
	dest := testKeypair(t)

	credits := make(map[string][]int64)
	recordCredits(eventBus, credits, dest.PublicKey())

	if err := engine.Chain(context.Background(), source, []*wallet.Keypair{dest}, 20_000, 1); err != nil {
		t.Fatalf("Chain: %v", err)
	}

	// One intermediate plus the final transfer.
	if len(client.sent) != 2 {
		t.Fatalf("expected 2 transfers, got %d", len(client.sent))
	}
	got := credits[dest.PublicKey()]
	if len(got) != 1 || got[0] != 20_000 {
		t.Errorf("expected destination to receive its full share, got %v", got)
	}
}

func TestChain_InvalidInput(t *testing.T) {
	engine, _, _ := testEngine(t)
	source := testKeypair(t)

	if err := engine.Chain(context.Background(), source, nil, 10_000, 0); !errors.Is(err, ErrInvalidSplit) {
		t.Errorf("expected ErrInvalidSplit for no destinations, got %v", err)
	}
	dests := []*wallet.Keypair{testKeypair(t), testKeypair(t)}
	if err := engine.Chain(context.Background(), source, dests, 1, 0); !errors.Is(err, ErrInvalidSplit) {
		t.Errorf("expected ErrInvalidSplit for zero share, got %v", err)
	}
}

func TestCollect_SweepsSpendableBalances(t *testing.T) {
	engine, client, eventBus := testEngine(t)
	collector := testKeypair(t).PublicKey()

	funded := testKeypair(t)
	dust := testKeypair(t)
	broken := testKeypair(t)
	client.balances[funded.PublicKey()] = 100_000
	client.balances[dust.PublicKey()] = 4_000
	client.balanceErr[broken.PublicKey()] = errors.New("rpc down")

	credits := make(map[string][]int64)
	recordCredits(eventBus, credits, collector)

	err := engine.Collect(context.Background(), []*wallet.Keypair{funded, dust, broken}, collector)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}

	// Only the funded account is swept; the dust account cannot cover the
	// fee and the broken one is skipped.
	if len(client.sent) != 1 {
		t.Fatalf("expected 1 transfer, got %d", len(client.sent))
	}
	got := credits[collector]
	if len(got) != 1 || got[0] != 95_000 {
		t.Errorf("expected collector credit 95000, got %v", got)
	}
}

func TestCollect_SkipsCollector(t *testing.T) {
	engine, client, _ := testEngine(t)
	self := testKeypair(t)
	client.balances[self.PublicKey()] = 100_000

	err := engine.Collect(context.Background(), []*wallet.Keypair{self}, self.PublicKey())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(client.sent) != 0 {
		t.Errorf("collector must not sweep itself, got %d transfers", len(client.sent))
	}
}

func TestCollect_NoSources(t *testing.T) {
	engine, _, _ := testEngine(t)

	err := engine.Collect(context.Background(), nil, testKeypair(t).PublicKey())
	if !errors.Is(err, ErrInvalidSplit) {
		t.Errorf("expected ErrInvalidSplit, got %v", err)
	}
}

func TestCollect_PoolError(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	poolErr := errors.New("no endpoints")
	engine := New(logger, &fakeSource{err: poolErr}, bus.New(logger))

	err := engine.Collect(context.Background(), []*wallet.Keypair{testKeypair(t)}, "collector")
	if !errors.Is(err, poolErr) {
		t.Errorf("expected pool error, got %v", err)
	}
}
