package broker

import (
	"context"
	"errors"

	"solana-swarm-lab/internal/domain"
	"solana-swarm-lab/internal/solana"
)

// fakeRPC serves canned account state for broker tests.
type fakeRPC struct {
	accounts      map[string]*solana.AccountInfo
	tokenBalances map[string]uint64
	fees          []solana.PrioritizationFee
	blockhash     string
	sent          []string
	err           error
}

func (f *fakeRPC) GetAccountInfo(_ context.Context, pubkey string) (*solana.AccountInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.accounts[pubkey], nil
}

func (f *fakeRPC) GetMultipleAccounts(_ context.Context, pubkeys []string) ([]*solana.AccountInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	infos := make([]*solana.AccountInfo, len(pubkeys))
	for i, pk := range pubkeys {
		infos[i] = f.accounts[pk]
	}
	return infos, nil
}

func (f *fakeRPC) GetBalance(_ context.Context, pubkey string) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	if info, ok := f.accounts[pubkey]; ok {
		return info.Lamports, nil
	}
	return 0, nil
}

func (f *fakeRPC) GetTokenAccountBalance(_ context.Context, tokenAccount string) (uint64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.tokenBalances[tokenAccount], nil
}

func (f *fakeRPC) GetLatestBlockhash(_ context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.blockhash, nil
}

func (f *fakeRPC) GetRecentPrioritizationFees(_ context.Context, _ []string) ([]solana.PrioritizationFee, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.fees, nil
}

func (f *fakeRPC) SendTransaction(_ context.Context, txBase64 string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, txBase64)
	return "fakesig", nil
}

var _ solana.RPCClient = (*fakeRPC)(nil)

// fakeAcquirer hands out one fake client, or fails.
type fakeAcquirer struct {
	client solana.RPCClient
	err    error
}

func (f *fakeAcquirer) Acquire() (solana.RPCClient, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.client, nil
}

var errNoEndpoints = errors.New("no endpoints")

// fakeBroker carries only a variant tag for selector assertions.
type fakeBroker struct {
	variant Variant
}

func (f *fakeBroker) Variant() Variant { return f.variant }

func (f *fakeBroker) Buy(context.Context, TradeParams) (*domain.TradeOutcome, error) {
	return nil, ErrUnsupported
}

func (f *fakeBroker) Sell(context.Context, TradeParams) (*domain.TradeOutcome, error) {
	return nil, ErrUnsupported
}

func (f *fakeBroker) JitoSell(context.Context, []TradeParams, uint64, string) (*domain.TradeOutcome, error) {
	return nil, ErrUnsupported
}

var _ Broker = (*fakeBroker)(nil)
