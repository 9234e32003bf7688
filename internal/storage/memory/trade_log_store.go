// Package memory provides in-memory store implementations, used in tests
// and when the journal runs without external storage.
package memory

import (
	"context"
	"sort"
	"sync"

	"solana-swarm-lab/internal/domain"
	"solana-swarm-lab/internal/storage"
)

// TradeLogStore is an in-memory implementation of storage.TradeLogStore.
type TradeLogStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeLogEntry // keyed by signature
}

// NewTradeLogStore creates a new in-memory trade log store.
func NewTradeLogStore() *TradeLogStore {
	return &TradeLogStore{
		data: make(map[string]*domain.TradeLogEntry),
	}
}

// Insert adds a new entry. Returns ErrDuplicateKey if the signature exists.
func (s *TradeLogStore) Insert(_ context.Context, e *domain.TradeLogEntry) error {
	if e == nil || e.Signature == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.Signature]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *e
	s.data[e.Signature] = &copy
	return nil
}

// GetBySignature retrieves an entry by signature. Returns ErrNotFound if not exists.
func (s *TradeLogStore) GetBySignature(_ context.Context, signature string) (*domain.TradeLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[signature]
	if !exists {
		return nil, storage.ErrNotFound
	}
	copy := *e
	return &copy, nil
}

// GetByAccount retrieves all entries for an account, ordered by submission time ASC.
func (s *TradeLogStore) GetByAccount(_ context.Context, account string) ([]*domain.TradeLogEntry, error) {
	return s.filter(func(e *domain.TradeLogEntry) bool { return e.Account == account }), nil
}

// GetByMint retrieves all entries for a mint, ordered by submission time ASC.
func (s *TradeLogStore) GetByMint(_ context.Context, mint string) ([]*domain.TradeLogEntry, error) {
	return s.filter(func(e *domain.TradeLogEntry) bool { return e.Mint == mint }), nil
}

func (s *TradeLogStore) filter(keep func(*domain.TradeLogEntry) bool) []*domain.TradeLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeLogEntry
	for _, e := range s.data {
		if keep(e) {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].SubmittedAt.Equal(result[j].SubmittedAt) {
			return result[i].SubmittedAt.Before(result[j].SubmittedAt)
		}
		return result[i].Signature < result[j].Signature
	})

	return result
}

var _ storage.TradeLogStore = (*TradeLogStore)(nil)
