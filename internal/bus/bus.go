// Package bus provides the in-process typed publish/subscribe registry
// that carries trade results and balance deltas between components.
// There is no polling fallback: the bus is the sole path from brokers to
// observers.
package bus

import (
	"log"
	"sync"
)

// Event kinds. Balance events use a per-account composite key built by
// BalanceKey so listeners do not receive irrelevant traffic.
const (
	KindTradeInfoFetched = "tradeInfoFetched"
	KindTradeSubmitted   = "tradeSubmitted"
	KindSwarmCreated     = "swarmCreated"
	KindSwarmCleared     = "swarmCleared"
	KindStopSignal       = "stopSignal"

	balanceChangedPrefix = "balanceChanged_"
)

// BalanceKey returns the composite event kind for one account's balance
// changes.
func BalanceKey(accountID string) string {
	return balanceChangedPrefix + accountID
}

// Handler receives a published payload. Handlers run synchronously on the
// publisher's goroutine, in registration order.
type Handler func(payload interface{})

// StopRequest is the StopSignal payload. Empty fields act as wildcards.
type StopRequest struct {
	Owner string
	Kind  string
}

type registration struct {
	id uint64
	fn Handler
}

// Bus is a synchronous event bus. The zero value is not usable; construct
// with New and pass by reference (multiple independent swarms may each own
// one).
type Bus struct {
	logger *log.Logger

	mu     sync.Mutex
	nextID uint64
	// handlers preserves registration order per kind.
	handlers map[string][]registration
}

// New creates an empty bus. A nil logger falls back to log.Default.
func New(logger *log.Logger) *Bus {
	if logger == nil {
		logger = log.Default()
	}
	return &Bus{
		logger:   logger,
		handlers: make(map[string][]registration),
	}
}

// Subscription identifies one registered handler for later removal.
type Subscription struct {
	kind string
	id   uint64
}

// Subscribe registers a handler for kind and returns its subscription.
// Subscribing the same function twice registers two handlers that differ
// only in identity.
func (b *Bus) Subscribe(kind string, fn Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.handlers[kind] = append(b.handlers[kind], registration{id: b.nextID, fn: fn})
	return Subscription{kind: kind, id: b.nextID}
}

// Unsubscribe removes a previously registered handler. Removing an unknown
// or already-removed subscription is a no-op.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	regs := b.handlers[sub.kind]
	for i, r := range regs {
		if r.id == sub.id {
			b.handlers[sub.kind] = append(regs[:i:i], regs[i+1:]...)
			return
		}
	}
}

// Publish invokes every handler currently registered for kind,
// synchronously and in registration order. A handler panic is recovered
// and logged; it never propagates to the publisher or sibling handlers.
func (b *Bus) Publish(kind string, payload interface{}) {
	b.mu.Lock()
	regs := make([]registration, len(b.handlers[kind]))
	copy(regs, b.handlers[kind])
	b.mu.Unlock()

	for _, r := range regs {
		b.dispatch(kind, r, payload)
	}
}

func (b *Bus) dispatch(kind string, r registration, payload interface{}) {
	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Printf("handler for %q panicked: %v", kind, rec)
		}
	}()
	r.fn(payload)
}
