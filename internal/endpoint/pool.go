// Package endpoint owns the set of remote ledger endpoints. It
// round-robins outbound RPC calls across the configured list and
// multiplexes account-change subscriptions over one streaming connection,
// keyed by watched account.
package endpoint

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"solana-swarm-lab/internal/solana"
)

// ErrNotConfigured is returned by every pool operation before Configure
// succeeds. It is fatal to the calling operation, not to the process.
var ErrNotConfigured = errors.New("endpoint pool not configured")

// Handler receives account notifications for one watched key.
type Handler func(solana.AccountNotification)

// wsDialer abstracts WS connection setup for tests.
type wsDialer func(ctx context.Context, endpoint string) (solana.WSClient, error)

type subscription struct {
	key   string
	subID int64
	done  chan struct{}
}

// Pool is the endpoint pool. Safe for concurrent use: two orchestrators
// on different wallet subsets share one pool.
type Pool struct {
	logger *log.Logger

	// next advances atomically so concurrent acquirers still observe a
	// strict round-robin sequence.
	next atomic.Uint64

	dial wsDialer

	mu      sync.Mutex
	clients []*solana.HTTPClient
	ws      solana.WSClient
	subs    map[string]*subscription
}

// New creates an unconfigured pool.
func New(logger *log.Logger) *Pool {
	if logger == nil {
		logger = log.Default()
	}
	return &Pool{
		logger: logger,
		subs:   make(map[string]*subscription),
		dial: func(ctx context.Context, endpoint string) (solana.WSClient, error) {
			return solana.NewWSClient(ctx, endpoint, nil)
		},
	}
}

// Configure initializes the pool with HTTP endpoints and one streaming
// endpoint. Reconfiguration first tears down every tracked subscription.
func (p *Pool) Configure(ctx context.Context, httpEndpoints []string, wsEndpoint string) error {
	if len(httpEndpoints) == 0 {
		return fmt.Errorf("at least one HTTP endpoint required")
	}
	if wsEndpoint == "" {
		return fmt.Errorf("streaming endpoint required")
	}

	p.UnsubscribeAll()

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ws != nil {
		p.ws.Close()
		p.ws = nil
	}

	ws, err := p.dial(ctx, wsEndpoint)
	if err != nil {
		return fmt.Errorf("connect streaming endpoint: %w", err)
	}

	clients := make([]*solana.HTTPClient, len(httpEndpoints))
	for i, ep := range httpEndpoints {
		clients[i] = solana.NewHTTPClient(ep)
	}

	p.clients = clients
	p.ws = ws
	p.next.Store(0)
	return nil
}

// Acquire returns the next endpoint client in strict round-robin order.
// A single-endpoint list always returns the same client.
func (p *Pool) Acquire() (solana.RPCClient, error) {
	p.mu.Lock()
	clients := p.clients
	p.mu.Unlock()

	if len(clients) == 0 {
		return nil, ErrNotConfigured
	}
	n := p.next.Add(1) - 1
	return clients[n%uint64(len(clients))], nil
}

// Subscribe watches an account key, replacing any prior subscription for
// the same key so a handler never fires twice for one change.
func (p *Pool) Subscribe(ctx context.Context, key string, handler Handler) error {
	p.mu.Lock()
	ws := p.ws
	p.mu.Unlock()

	if ws == nil {
		return ErrNotConfigured
	}

	// Silently drop the previous subscription for this key.
	p.unsubscribe(ctx, key)

	ch, subID, err := ws.SubscribeAccount(ctx, key)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", key, err)
	}

	sub := &subscription{key: key, subID: subID, done: make(chan struct{})}

	p.mu.Lock()
	p.subs[key] = sub
	p.mu.Unlock()

	go func() {
		for {
			select {
			case notif, ok := <-ch:
				if !ok {
					return
				}
				handler(notif)
			case <-sub.done:
				return
			}
		}
	}()

	return nil
}

// Unsubscribe tears down the subscription for one key. Missing keys are a
// no-op; failures are logged and do not abort sibling operations.
func (p *Pool) Unsubscribe(ctx context.Context, key string) {
	p.unsubscribe(ctx, key)
}

func (p *Pool) unsubscribe(ctx context.Context, key string) {
	p.mu.Lock()
	sub, ok := p.subs[key]
	if ok {
		delete(p.subs, key)
	}
	ws := p.ws
	p.mu.Unlock()

	if !ok {
		return
	}
	close(sub.done)

	if ws == nil {
		return
	}
	if err := ws.Unsubscribe(ctx, sub.subID); err != nil {
		p.logger.Printf("unsubscribe %s: %v", key, err)
	}
}

// UnsubscribeAll tears down every tracked subscription. Never fails, even
// when nothing is subscribed.
func (p *Pool) UnsubscribeAll() {
	p.mu.Lock()
	keys := make([]string, 0, len(p.subs))
	for key := range p.subs {
		keys = append(keys, key)
	}
	p.mu.Unlock()

	ctx := context.Background()
	for _, key := range keys {
		p.unsubscribe(ctx, key)
	}
}

// Close tears down subscriptions and the streaming connection.
func (p *Pool) Close() {
	p.UnsubscribeAll()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ws != nil {
		p.ws.Close()
		p.ws = nil
	}
	p.clients = nil
}
