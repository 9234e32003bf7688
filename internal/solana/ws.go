package solana

import "context"

// WSClient defines the Solana WebSocket subscription interface.
type WSClient interface {
	// SubscribeAccount subscribes to state changes of one account.
	// The returned id tears the subscription down via Unsubscribe.
	SubscribeAccount(ctx context.Context, pubkey string) (<-chan AccountNotification, int64, error)

	// Unsubscribe tears down a single subscription and closes its channel.
	Unsubscribe(ctx context.Context, subID int64) error

	// Close closes the WebSocket connection and all subscriptions.
	Close() error
}

// AccountNotification is one account-change message.
type AccountNotification struct {
	// Pubkey is the watched account, base58.
	Pubkey string

	// Lamports is the account's ledger balance after the change.
	Lamports uint64

	// Owner is the owning program, base58.
	Owner string

	// Data is the account data, base64.
	Data string

	// Slot the change was observed at.
	Slot int64
}
