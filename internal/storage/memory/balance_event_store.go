package memory

import (
	"context"
	"sort"
	"sync"

	"solana-swarm-lab/internal/domain"
	"solana-swarm-lab/internal/storage"
)

// BalanceEventStore is an in-memory implementation of storage.BalanceEventStore.
type BalanceEventStore struct {
	mu   sync.RWMutex
	data []*domain.BalanceEvent
}

// NewBalanceEventStore creates a new in-memory balance event store.
func NewBalanceEventStore() *BalanceEventStore {
	return &BalanceEventStore{}
}

// InsertBulk adds multiple events.
func (s *BalanceEventStore) InsertBulk(_ context.Context, events []*domain.BalanceEvent) error {
	if len(events) == 0 {
		return nil
	}
	for _, e := range events {
		if e == nil || e.Account == "" {
			return storage.ErrInvalidInput
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range events {
		copy := *e
		s.data = append(s.data, &copy)
	}
	return nil
}

// GetByAccount retrieves all events for an account, ordered by observation time ASC.
func (s *BalanceEventStore) GetByAccount(_ context.Context, account string) ([]*domain.BalanceEvent, error) {
	return s.filter(func(e *domain.BalanceEvent) bool { return e.Account == account }), nil
}

// GetByTimeRange retrieves events for an account within [start, end] (inclusive),
// with bounds in unix milliseconds.
func (s *BalanceEventStore) GetByTimeRange(_ context.Context, account string, start, end int64) ([]*domain.BalanceEvent, error) {
	return s.filter(func(e *domain.BalanceEvent) bool {
		ms := e.ObservedAt.UnixMilli()
		return e.Account == account && ms >= start && ms <= end
	}), nil
}

func (s *BalanceEventStore) filter(keep func(*domain.BalanceEvent) bool) []*domain.BalanceEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.BalanceEvent
	for _, e := range s.data {
		if keep(e) {
			copy := *e
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ObservedAt.Before(result[j].ObservedAt)
	})

	return result
}

var _ storage.BalanceEventStore = (*BalanceEventStore)(nil)
