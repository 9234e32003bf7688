package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"solana-swarm-lab/internal/domain"
	"solana-swarm-lab/internal/storage"
)

// TradeLogStore implements storage.TradeLogStore using PostgreSQL.
type TradeLogStore struct {
	pool *Pool
}

// NewTradeLogStore creates a new TradeLogStore.
func NewTradeLogStore(pool *Pool) *TradeLogStore {
	return &TradeLogStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeLogStore = (*TradeLogStore)(nil)

const tradeLogColumns = `
	signature, account, mint, side,
	lamports_delta, tokens_delta, success, submitted_at
`

// Insert adds a new entry. Returns ErrDuplicateKey if the signature exists.
func (s *TradeLogStore) Insert(ctx context.Context, e *domain.TradeLogEntry) error {
	if e == nil || e.Signature == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO trade_log (` + tradeLogColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.pool.Exec(ctx, query,
		e.Signature, e.Account, e.Mint, string(e.Side),
		e.LamportsDelta, e.TokensDelta, e.Success, e.SubmittedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade log entry: %w", err)
	}
	return nil
}

// GetBySignature retrieves an entry by signature. Returns ErrNotFound if not exists.
func (s *TradeLogStore) GetBySignature(ctx context.Context, signature string) (*domain.TradeLogEntry, error) {
	query := `
		SELECT ` + tradeLogColumns + `
		FROM trade_log
		WHERE signature = $1
	`

	row := s.pool.QueryRow(ctx, query, signature)
	e, err := scanTradeLogEntry(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade log entry by signature: %w", err)
	}
	return e, nil
}

// GetByAccount retrieves all entries for an account, ordered by submission time ASC.
func (s *TradeLogStore) GetByAccount(ctx context.Context, account string) ([]*domain.TradeLogEntry, error) {
	query := `
		SELECT ` + tradeLogColumns + `
		FROM trade_log
		WHERE account = $1
		ORDER BY submitted_at ASC, signature ASC
	`

	rows, err := s.pool.Query(ctx, query, account)
	if err != nil {
		return nil, fmt.Errorf("get trade log entries by account: %w", err)
	}
	defer rows.Close()

	return scanTradeLogEntries(rows)
}

// GetByMint retrieves all entries for a mint, ordered by submission time ASC.
func (s *TradeLogStore) GetByMint(ctx context.Context, mint string) ([]*domain.TradeLogEntry, error) {
	query := `
		SELECT ` + tradeLogColumns + `
		FROM trade_log
		WHERE mint = $1
		ORDER BY submitted_at ASC, signature ASC
	`

	rows, err := s.pool.Query(ctx, query, mint)
	if err != nil {
		return nil, fmt.Errorf("get trade log entries by mint: %w", err)
	}
	defer rows.Close()

	return scanTradeLogEntries(rows)
}

// scanTradeLogEntry scans a single row into a TradeLogEntry.
func scanTradeLogEntry(row pgx.Row) (*domain.TradeLogEntry, error) {
	var e domain.TradeLogEntry
	var side string

	err := row.Scan(
		&e.Signature, &e.Account, &e.Mint, &side,
		&e.LamportsDelta, &e.TokensDelta, &e.Success, &e.SubmittedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Side = domain.TradeSide(side)
	return &e, nil
}

// scanTradeLogEntries scans multiple rows into a slice of TradeLogEntry.
func scanTradeLogEntries(rows pgx.Rows) ([]*domain.TradeLogEntry, error) {
	var entries []*domain.TradeLogEntry

	for rows.Next() {
		var e domain.TradeLogEntry
		var side string

		err := rows.Scan(
			&e.Signature, &e.Account, &e.Mint, &side,
			&e.LamportsDelta, &e.TokensDelta, &e.Success, &e.SubmittedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade log row: %w", err)
		}

		e.Side = domain.TradeSide(side)
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade log rows: %w", err)
	}

	return entries, nil
}
