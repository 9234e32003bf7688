package broker

import (
	"context"
	"io"
	"log"
	"testing"

	"solana-swarm-lab/internal/solana"
)

func testSelector(fetcher *StateFetcher) (*Selector, *fakeBroker, *fakeBroker, *fakeBroker) {
	curve := &fakeBroker{variant: VariantCurve}
	amm := &fakeBroker{variant: VariantAMM}
	launchpad := &fakeBroker{variant: VariantLaunchpad}
	s := NewSelector(log.New(io.Discard, "", 0), fetcher, curve, amm, launchpad)
	return s, curve, amm, launchpad
}

func TestSelector_ProbeFailureDefaultsToCurve(t *testing.T) {
	fetcher := NewStateFetcher(&fakeAcquirer{err: errNoEndpoints})
	s, curve, _, _ := testSelector(fetcher)

	if got := s.Resolve(context.Background(), testMint()); got != curve {
		t.Errorf("expected curve fallback, got %v", got.Variant())
	}
}

func TestSelector_LaunchpadAuthority(t *testing.T) {
	mint := testMint()
	authority, err := launchpadAuthority()
	if err != nil {
		t.Fatalf("launchpadAuthority: %v", err)
	}

	client := &fakeRPC{accounts: map[string]*solana.AccountInfo{
		mint: {Data: mintAccountData(authority)},
	}}
	s, _, _, launchpad := testSelector(NewStateFetcher(&fakeAcquirer{client: client}))

	if got := s.Resolve(context.Background(), mint); got != launchpad {
		t.Errorf("expected launchpad, got %v", got.Variant())
	}
}

func TestSelector_LiveCurve(t *testing.T) {
	mint := testMint()
	curveAddr, err := CurveAddress(mint)
	if err != nil {
		t.Fatalf("CurveAddress: %v", err)
	}

	client := &fakeRPC{accounts: map[string]*solana.AccountInfo{
		mint:      {Data: mintAccountData("")},
		curveAddr: {Data: curveAccountData(1_000, 2_000, 800, 0, 1_000, false, testCreator())},
	}}
	s, curve, _, _ := testSelector(NewStateFetcher(&fakeAcquirer{client: client}))

	if got := s.Resolve(context.Background(), mint); got != curve {
		t.Errorf("expected curve, got %v", got.Variant())
	}
}

func TestSelector_CompletedCurveRoutesToAMM(t *testing.T) {
	mint := testMint()
	curveAddr, err := CurveAddress(mint)
	if err != nil {
		t.Fatalf("CurveAddress: %v", err)
	}

	client := &fakeRPC{accounts: map[string]*solana.AccountInfo{
		mint:      {Data: mintAccountData("")},
		curveAddr: {Data: curveAccountData(1_000, 2_000, 0, 0, 1_000, true, testCreator())},
	}}
	s, _, amm, _ := testSelector(NewStateFetcher(&fakeAcquirer{client: client}))

	if got := s.Resolve(context.Background(), mint); got != amm {
		t.Errorf("expected amm, got %v", got.Variant())
	}
}

func TestSelector_MissingCurveRoutesToAMM(t *testing.T) {
	mint := testMint()

	client := &fakeRPC{accounts: map[string]*solana.AccountInfo{
		mint: {Data: mintAccountData("")},
	}}
	s, _, amm, _ := testSelector(NewStateFetcher(&fakeAcquirer{client: client}))

	if got := s.Resolve(context.Background(), mint); got != amm {
		t.Errorf("expected amm for a graduated mint, got %v", got.Variant())
	}
}
