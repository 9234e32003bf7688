// Package journal persists the trading record: submitted trades into the
// trade log and observed balance deltas into the balance event stream.
// The recorder listens on the bus so brokers and the distribution engine
// stay unaware of storage.
package journal

import (
	"context"
	"log"
	"sync"
	"time"

	"solana-swarm-lab/internal/bus"
	"solana-swarm-lab/internal/domain"
	"solana-swarm-lab/internal/storage"
)

const (
	// flushInterval bounds how stale a buffered balance event can get.
	flushInterval = 2 * time.Second

	// flushBatchSize flushes early when the buffer grows past it.
	flushBatchSize = 64

	// queueDepth bounds the handoff channel. Bus handlers must not
	// block on storage, so overflow drops with a log line instead.
	queueDepth = 1024
)

// Recorder journals trades and balance events. Either store may be nil,
// disabling that half of the journal.
type Recorder struct {
	logger *log.Logger
	bus    *bus.Bus
	trades storage.TradeLogStore
	events storage.BalanceEventStore

	queue chan interface{}
	done  chan struct{}
	wg    sync.WaitGroup

	mu   sync.Mutex
	subs []bus.Subscription
}

// NewRecorder creates a recorder and starts its background writer.
func NewRecorder(logger *log.Logger, eventBus *bus.Bus, trades storage.TradeLogStore, events storage.BalanceEventStore) *Recorder {
	if logger == nil {
		logger = log.Default()
	}
	r := &Recorder{
		logger: logger,
		bus:    eventBus,
		trades: trades,
		events: events,
		queue:  make(chan interface{}, queueDepth),
		done:   make(chan struct{}),
	}

	r.subs = append(r.subs,
		eventBus.Subscribe(bus.KindTradeSubmitted, r.onTrade),
		eventBus.Subscribe(bus.KindSwarmCreated, r.onSwarmCreated),
	)

	r.wg.Add(1)
	go r.writeLoop()
	return r
}

// onSwarmCreated follows the announced accounts' balance keys.
func (r *Recorder) onSwarmCreated(payload interface{}) {
	accounts, ok := payload.([]*domain.Account)
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, acct := range accounts {
		r.subs = append(r.subs, r.bus.Subscribe(bus.BalanceKey(acct.PublicKey), r.onDelta))
	}
}

func (r *Recorder) onTrade(payload interface{}) {
	outcome, ok := payload.(*domain.TradeOutcome)
	if !ok || r.trades == nil {
		return
	}
	r.enqueue(outcome.LogEntry())
}

func (r *Recorder) onDelta(payload interface{}) {
	delta, ok := payload.(*domain.BalanceDelta)
	if !ok || r.events == nil {
		return
	}
	r.enqueue(&domain.BalanceEvent{
		Account:    delta.Account,
		Lamports:   delta.Lamports,
		Tokens:     delta.Tokens,
		Signature:  delta.Signature,
		ObservedAt: time.Now(),
	})
}

func (r *Recorder) enqueue(item interface{}) {
	select {
	case r.queue <- item:
	default:
		r.logger.Printf("journal queue full, dropping record")
	}
}

// writeLoop drains the queue, batching balance events and writing trade
// entries as they arrive.
func (r *Recorder) writeLoop() {
	defer r.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	var batch []*domain.BalanceEvent
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := r.events.InsertBulk(ctx, batch); err != nil {
			r.logger.Printf("journal balance events: %v", err)
		}
		cancel()
		batch = nil
	}

	for {
		select {
		case item := <-r.queue:
			switch v := item.(type) {
			case *domain.TradeLogEntry:
				r.writeTrade(v)
			case *domain.BalanceEvent:
				batch = append(batch, v)
				if len(batch) >= flushBatchSize {
					flush()
				}
			}
		case <-ticker.C:
			flush()
		case <-r.done:
			for {
				select {
				case item := <-r.queue:
					switch v := item.(type) {
					case *domain.TradeLogEntry:
						r.writeTrade(v)
					case *domain.BalanceEvent:
						batch = append(batch, v)
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

func (r *Recorder) writeTrade(e *domain.TradeLogEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.trades.Insert(ctx, e); err != nil {
		r.logger.Printf("journal trade %s: %v", e.Signature, err)
	}
}

// Close unsubscribes, drains the queue, and stops the writer.
func (r *Recorder) Close() {
	r.mu.Lock()
	for _, sub := range r.subs {
		r.bus.Unsubscribe(sub)
	}
	r.subs = nil
	r.mu.Unlock()

	close(r.done)
	r.wg.Wait()
}
