package orchestrator

import "solana-swarm-lab/internal/domain"

// balanceBook tracks per-account balances and exhaustion over the life
// of one operation. It is private to the operation's goroutine; the
// authoritative balances still arrive through the bus.
type balanceBook struct {
	lamportsByKey map[string]uint64
	tokensByKey   map[string]uint64
	exhaustedKeys map[string]bool
}

func newBalanceBook(accounts []*domain.Account) *balanceBook {
	b := &balanceBook{
		lamportsByKey: make(map[string]uint64, len(accounts)),
		tokensByKey:   make(map[string]uint64, len(accounts)),
		exhaustedKeys: make(map[string]bool, len(accounts)),
	}
	for _, a := range accounts {
		b.lamportsByKey[a.PublicKey] = a.Lamports
		b.tokensByKey[a.PublicKey] = a.TokenBalance
	}
	return b
}

func (b *balanceBook) lamports(key string) uint64 { return b.lamportsByKey[key] }

func (b *balanceBook) tokens(key string) uint64 { return b.tokensByKey[key] }

func (b *balanceBook) exhausted(key string) bool { return b.exhaustedKeys[key] }

func (b *balanceBook) markExhausted(key string) { b.exhaustedKeys[key] = true }

func (b *balanceBook) allExhausted() bool {
	if len(b.lamportsByKey) == 0 {
		return true
	}
	for key := range b.lamportsByKey {
		if !b.exhaustedKeys[key] {
			return false
		}
	}
	return true
}

// apply folds a trade outcome into the tracked balances, clamping at
// zero so a pessimistic estimate never underflows.
func (b *balanceBook) apply(o *domain.TradeOutcome) {
	b.lamportsByKey[o.Account] = applyDelta(b.lamportsByKey[o.Account], o.LamportsDelta)
	b.tokensByKey[o.Account] = applyDelta(b.tokensByKey[o.Account], o.TokensDelta)
}

func applyDelta(balance uint64, delta int64) uint64 {
	if delta >= 0 {
		return balance + uint64(delta)
	}
	dec := uint64(-delta)
	if dec >= balance {
		return 0
	}
	return balance - dec
}
