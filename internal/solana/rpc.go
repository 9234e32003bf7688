package solana

import "context"

// RPCClient defines the Solana RPC HTTP surface the swarm core uses.
type RPCClient interface {
	// GetAccountInfo retrieves account info by public key. Returns nil
	// if the account does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	// GetMultipleAccounts retrieves several accounts in one call.
	GetMultipleAccounts(ctx context.Context, pubkeys []string) ([]*AccountInfo, error)

	// GetBalance retrieves the lamport balance of an account.
	GetBalance(ctx context.Context, pubkey string) (uint64, error)

	// GetTokenAccountBalance retrieves the base-unit balance of a token
	// account. A missing token account reads as zero balance.
	GetTokenAccountBalance(ctx context.Context, tokenAccount string) (uint64, error)

	// GetLatestBlockhash retrieves a recent blockhash.
	GetLatestBlockhash(ctx context.Context) (string, error)

	// GetRecentPrioritizationFees retrieves recent priority fee samples.
	GetRecentPrioritizationFees(ctx context.Context, accounts []string) ([]PrioritizationFee, error)

	// SendTransaction submits a base64-encoded signed transaction.
	SendTransaction(ctx context.Context, txBase64 string) (string, error)
}

var _ RPCClient = (*HTTPClient)(nil)
