package clickhouse

import (
	"context"
	"fmt"
	"time"

	"solana-swarm-lab/internal/domain"
	"solana-swarm-lab/internal/storage"
)

// BalanceEventStore implements storage.BalanceEventStore using ClickHouse.
type BalanceEventStore struct {
	conn *Conn
}

// NewBalanceEventStore creates a new BalanceEventStore.
func NewBalanceEventStore(conn *Conn) *BalanceEventStore {
	return &BalanceEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BalanceEventStore = (*BalanceEventStore)(nil)

// InsertBulk adds multiple events. Balance events are an append-only
// observation stream; duplicates are not checked.
func (s *BalanceEventStore) InsertBulk(ctx context.Context, events []*domain.BalanceEvent) error {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if e == nil || e.Account == "" {
			return storage.ErrInvalidInput
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO balance_events (
			account, observed_at_ms, lamports_delta, tokens_delta, signature
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, e := range events {
		err = batch.Append(
			e.Account, uint64(e.ObservedAt.UnixMilli()),
			e.Lamports, e.Tokens, e.Signature,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByAccount retrieves all events for an account, ordered by observation time ASC.
func (s *BalanceEventStore) GetByAccount(ctx context.Context, account string) ([]*domain.BalanceEvent, error) {
	query := `
		SELECT account, observed_at_ms, lamports_delta, tokens_delta, signature
		FROM balance_events
		WHERE account = ?
		ORDER BY observed_at_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, account)
	if err != nil {
		return nil, fmt.Errorf("query by account: %w", err)
	}
	defer rows.Close()

	return scanBalanceEvents(rows)
}

// GetByTimeRange retrieves events for an account within [start, end] (inclusive),
// with bounds in unix milliseconds.
func (s *BalanceEventStore) GetByTimeRange(ctx context.Context, account string, start, end int64) ([]*domain.BalanceEvent, error) {
	query := `
		SELECT account, observed_at_ms, lamports_delta, tokens_delta, signature
		FROM balance_events
		WHERE account = ? AND observed_at_ms >= ? AND observed_at_ms <= ?
		ORDER BY observed_at_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, account, uint64(start), uint64(end))
	if err != nil {
		return nil, fmt.Errorf("query by time range: %w", err)
	}
	defer rows.Close()

	return scanBalanceEvents(rows)
}

// chRows is the row iterator shape shared by Query results.
type chRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// scanBalanceEvents scans multiple rows.
func scanBalanceEvents(rows chRows) ([]*domain.BalanceEvent, error) {
	var events []*domain.BalanceEvent

	for rows.Next() {
		var e domain.BalanceEvent
		var observedAtMs uint64

		err := rows.Scan(
			&e.Account, &observedAtMs,
			&e.Lamports, &e.Tokens, &e.Signature,
		)
		if err != nil {
			return nil, fmt.Errorf("scan balance event row: %w", err)
		}

		e.ObservedAt = time.UnixMilli(int64(observedAtMs))
		events = append(events, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate balance event rows: %w", err)
	}

	return events, nil
}
