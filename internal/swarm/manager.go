// Package swarm manages the set of accounts coordinated as one trading
// unit: population, selection, balance tracking, and the account-change
// subscriptions that keep balances current without polling.
package swarm

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"

	"solana-swarm-lab/internal/bus"
	"solana-swarm-lab/internal/domain"
	"solana-swarm-lab/internal/endpoint"
	"solana-swarm-lab/internal/solana"
	"solana-swarm-lab/internal/wallet"
)

// Endpoints is the slice of the endpoint pool the swarm needs: RPC
// clients for refresh and streaming subscriptions for balance tracking.
type Endpoints interface {
	Acquire() (solana.RPCClient, error)
	Subscribe(ctx context.Context, key string, handler endpoint.Handler) error
	UnsubscribeAll()
}

// Manager owns the swarm accounts. Balances mutate through bus delta
// handlers and explicit refresh only.
type Manager struct {
	logger *log.Logger
	pool   Endpoints
	bus    *bus.Bus

	mu       sync.Mutex
	accounts []*domain.Account
	keypairs map[string]*wallet.Keypair
	subs     []bus.Subscription
}

// NewManager creates an empty swarm.
func NewManager(logger *log.Logger, pool Endpoints, eventBus *bus.Bus) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		logger:   logger,
		pool:     pool,
		bus:      eventBus,
		keypairs: make(map[string]*wallet.Keypair),
	}
}

// Populate generates n fresh accounts and announces the swarm.
func (m *Manager) Populate(n int) error {
	if n <= 0 {
		return fmt.Errorf("swarm size must be positive")
	}

	pairs := make([]*wallet.Keypair, 0, n)
	for i := 0; i < n; i++ {
		kp, err := wallet.Generate()
		if err != nil {
			return err
		}
		pairs = append(pairs, kp)
	}
	m.add(pairs)
	return nil
}

// Import adds accounts from a secrets reader, one base58 secret per
// line.
func (m *Manager) Import(r io.Reader) error {
	pairs, err := wallet.ReadSecrets(r)
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return fmt.Errorf("no secrets to import")
	}
	m.add(pairs)
	return nil
}

// add registers keypairs as selected accounts and publishes SwarmCreated
// with the new account list.
func (m *Manager) add(pairs []*wallet.Keypair) {
	m.mu.Lock()
	for _, kp := range pairs {
		pub := kp.PublicKey()
		if _, exists := m.keypairs[pub]; exists {
			continue
		}
		m.keypairs[pub] = kp
		acct := &domain.Account{
			PublicKey: pub,
			SecretKey: kp.Secret(),
			Selected:  true,
		}
		m.accounts = append(m.accounts, acct)
		m.subs = append(m.subs, m.bus.Subscribe(bus.BalanceKey(pub), m.onDelta))
	}
	accounts := m.snapshotLocked()
	m.mu.Unlock()

	m.bus.Publish(bus.KindSwarmCreated, accounts)
}

// onDelta applies a published balance delta to the tracked account.
func (m *Manager) onDelta(payload interface{}) {
	delta, ok := payload.(*domain.BalanceDelta)
	if !ok {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, acct := range m.accounts {
		if acct.PublicKey != delta.Account {
			continue
		}
		acct.Lamports = applyDelta(acct.Lamports, delta.Lamports)
		acct.TokenBalance = applyDelta(acct.TokenBalance, delta.Tokens)
		return
	}
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

// Accounts returns a snapshot of every account.
func (m *Manager) Accounts() []*domain.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Selected returns a snapshot of the selected subset.
func (m *Manager) Selected() []*domain.Account {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*domain.Account
	for _, acct := range m.accounts {
		if acct.Selected {
			copied := *acct
			out = append(out, &copied)
		}
	}
	return out
}

func (m *Manager) snapshotLocked() []*domain.Account {
	out := make([]*domain.Account, len(m.accounts))
	for i, acct := range m.accounts {
		copied := *acct
		out[i] = &copied
	}
	return out
}

// Select flips one account's selection flag.
func (m *Manager) Select(pubkey string, selected bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, acct := range m.accounts {
		if acct.PublicKey == pubkey {
			acct.Selected = selected
			return nil
		}
	}
	return fmt.Errorf("unknown account %s", pubkey)
}

// Keypair returns the signing keypair for an account.
func (m *Manager) Keypair(pubkey string) (*wallet.Keypair, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kp, ok := m.keypairs[pubkey]
	return kp, ok
}

// Refresh re-reads every account's ledger and asset balance from chain.
func (m *Manager) Refresh(ctx context.Context, mint string) error {
	client, err := m.pool.Acquire()
	if err != nil {
		return err
	}

	for _, acct := range m.Accounts() {
		lamports, err := client.GetBalance(ctx, acct.PublicKey)
		if err != nil {
			return fmt.Errorf("refresh %s: %w", acct.PublicKey, err)
		}

		var tokens uint64
		if mint != "" {
			ata, err := solana.AssociatedTokenAddress(acct.PublicKey, mint)
			if err != nil {
				return err
			}
			tokens, err = client.GetTokenAccountBalance(ctx, ata)
			if err != nil {
				return fmt.Errorf("refresh %s tokens: %w", acct.PublicKey, err)
			}
		}

		m.setBalances(acct.PublicKey, lamports, tokens)
	}
	return nil
}

func (m *Manager) setBalances(pubkey string, lamports, tokens uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, acct := range m.accounts {
		if acct.PublicKey == pubkey {
			acct.Lamports = lamports
			acct.TokenBalance = tokens
			return
		}
	}
}

// Watch subscribes every account to the streaming endpoint. Observed
// lamport changes are published as balance deltas against the last
// tracked value; the bus handler then folds them back into the account.
func (m *Manager) Watch(ctx context.Context) error {
	for _, acct := range m.Accounts() {
		pub := acct.PublicKey
		err := m.pool.Subscribe(ctx, pub, func(notif solana.AccountNotification) {
			m.onNotification(pub, notif)
		})
		if err != nil {
			return fmt.Errorf("watch %s: %w", pub, err)
		}
	}
	return nil
}

func (m *Manager) onNotification(pubkey string, notif solana.AccountNotification) {
	m.mu.Lock()
	var last uint64
	found := false
	for _, acct := range m.accounts {
		if acct.PublicKey == pubkey {
			last = acct.Lamports
			found = true
			break
		}
	}
	m.mu.Unlock()

	if !found || notif.Lamports == last {
		return
	}
	m.bus.Publish(bus.BalanceKey(pubkey), &domain.BalanceDelta{
		Account:  pubkey,
		Lamports: int64(notif.Lamports) - int64(last),
	})
}

// Clear tears down subscriptions, forgets every account, and announces
// the cleared swarm.
func (m *Manager) Clear() {
	m.pool.UnsubscribeAll()

	m.mu.Lock()
	for _, sub := range m.subs {
		m.bus.Unsubscribe(sub)
	}
	m.accounts = nil
	m.subs = nil
	m.keypairs = make(map[string]*wallet.Keypair)
	m.mu.Unlock()

	m.bus.Publish(bus.KindSwarmCleared, nil)
}

// ExportSecrets writes one base58 secret per line for re-import.
func (m *Manager) ExportSecrets(w io.Writer) error {
	for _, acct := range m.Accounts() {
		if _, err := fmt.Fprintln(w, acct.SecretKey); err != nil {
			return err
		}
	}
	return nil
}
