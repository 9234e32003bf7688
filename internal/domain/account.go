// Package domain holds the core value types shared across the swarm:
// accounts, curve and pool snapshots, trades, and operation handles.
package domain

// Account is one swarm member: a funded keypair identified by its base58
// public key, with locally tracked balances.
type Account struct {
	// PublicKey is the base58 account identifier.
	PublicKey string

	// SecretKey is the base58 64-byte secret, empty for watch-only
	// accounts imported by address.
	SecretKey string

	// Lamports is the last observed ledger balance.
	Lamports uint64

	// TokenBalance is the last observed asset balance in base units.
	TokenBalance uint64

	// Selected marks the account as part of the active working set.
	Selected bool
}

// CanSign reports whether the account carries signing material.
func (a *Account) CanSign() bool {
	return a.SecretKey != ""
}

// BalanceDelta is the balance-changed event payload for one account.
type BalanceDelta struct {
	// Account is the base58 public key the delta applies to.
	Account string

	// Lamports is the signed ledger-amount change.
	Lamports int64

	// Tokens is the signed asset-amount change in base units.
	Tokens int64

	// Signature ties the delta to the transaction that caused it, empty
	// for deltas observed through the streaming subscription.
	Signature string
}
