package storage

import (
	"context"

	"solana-swarm-lab/internal/domain"
)

// TradeLogStore provides access to trade_log storage.
type TradeLogStore interface {
	// Insert adds a new entry. Returns ErrDuplicateKey if the signature exists.
	Insert(ctx context.Context, e *domain.TradeLogEntry) error

	// GetBySignature retrieves an entry by signature. Returns ErrNotFound if not exists.
	GetBySignature(ctx context.Context, signature string) (*domain.TradeLogEntry, error)

	// GetByAccount retrieves all entries for an account, ordered by submission time ASC.
	GetByAccount(ctx context.Context, account string) ([]*domain.TradeLogEntry, error)

	// GetByMint retrieves all entries for a mint, ordered by submission time ASC.
	GetByMint(ctx context.Context, mint string) ([]*domain.TradeLogEntry, error)
}

// BalanceEventStore provides access to balance_events storage.
type BalanceEventStore interface {
	// InsertBulk adds multiple events.
	InsertBulk(ctx context.Context, events []*domain.BalanceEvent) error

	// GetByAccount retrieves all events for an account, ordered by observation time ASC.
	GetByAccount(ctx context.Context, account string) ([]*domain.BalanceEvent, error)

	// GetByTimeRange retrieves events for an account within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, account string, start, end int64) ([]*domain.BalanceEvent, error)
}
