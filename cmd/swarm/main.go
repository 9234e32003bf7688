package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"solana-swarm-lab/internal/broker"
	"solana-swarm-lab/internal/bus"
	"solana-swarm-lab/internal/distribution"
	"solana-swarm-lab/internal/domain"
	"solana-swarm-lab/internal/endpoint"
	"solana-swarm-lab/internal/journal"
	"solana-swarm-lab/internal/orchestrator"
	"solana-swarm-lab/internal/storage"
	chstore "solana-swarm-lab/internal/storage/clickhouse"
	"solana-swarm-lab/internal/storage/memory"
	"solana-swarm-lab/internal/storage/migrations"
	pgstore "solana-swarm-lab/internal/storage/postgres"
	"solana-swarm-lab/internal/swarm"
	"solana-swarm-lab/internal/wallet"
)

func main() {
	// Parse flags
	op := flag.String("op", "", "Operation: buy, sell, buy-runout, sell-runout, distribute, chain, collect")
	rpcEndpoints := flag.String("rpc-endpoints", "", "Comma-separated RPC HTTP endpoints")
	wsEndpoint := flag.String("ws-endpoint", "", "Streaming WebSocket endpoint")
	mint := flag.String("mint", "", "Traded asset mint address")
	secretsFile := flag.String("secrets-file", "", "File with one base58 account secret per line")
	generate := flag.Int("generate", 0, "Generate this many fresh swarm accounts instead of importing")
	amounts := flag.String("amounts", "", "Comma-separated lamport amounts for buys")
	sellPercents := flag.String("sell-percents", "100", "Comma-separated percentages of holdings for sells")
	useRandomAmount := flag.Bool("random-amount", false, "Pick a random list entry per account")
	delay := flag.Duration("delay", 0, "Delay between accounts")
	slippageBps := flag.Uint64("slippage-bps", 500, "Slippage tolerance in basis points")
	priorityFee := flag.Uint64("priority-fee", 100_000, "Priority fee budget in lamports")
	useJito := flag.Bool("jito", false, "Submit sells as one atomic bundle through the tip relay")
	tipRelay := flag.String("tip-relay", "", "Tip relay URL for bundled sells")
	tipLamports := flag.Uint64("tip-lamports", 1_000_000, "Tip amount for bundled sells")
	total := flag.Uint64("total", 0, "Total lamports to distribute (distribute/chain)")
	hops := flag.Int("hops", 2, "Intermediate hops per chain destination")
	collector := flag.String("collector", "", "Destination account for collect")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string for the trade log")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for balance events")

	flag.Parse()

	logger := log.New(os.Stdout, "[swarm] ", log.LstdFlags|log.Lshortfile)

	if *op == "" {
		logger.Fatal("No operation specified. Use -op")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventBus := bus.New(logger)

	// Handle shutdown signals: first signal stops running operations
	// cooperatively, second forces exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, stopping operations...", sig)
		eventBus.Publish(bus.KindStopSignal, &bus.StopRequest{})
		cancel()

		sig = <-sigCh
		logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
		os.Exit(1)
	}()

	if err := run(ctx, logger, eventBus, options{
		op:              *op,
		rpcEndpoints:    splitList(*rpcEndpoints),
		wsEndpoint:      *wsEndpoint,
		mint:            *mint,
		secretsFile:     *secretsFile,
		generate:        *generate,
		buyAmounts:      parseAmounts(logger, *amounts),
		sellPercents:    parseAmounts(logger, *sellPercents),
		useRandomAmount: *useRandomAmount,
		delay:           *delay,
		slippageBps:     *slippageBps,
		priorityFee:     *priorityFee,
		useJito:         *useJito,
		tipRelay:        *tipRelay,
		tipLamports:     *tipLamports,
		total:           *total,
		hops:            *hops,
		collector:       *collector,
		postgresDSN:     *postgresDSN,
		clickhouseDSN:   *clickhouseDSN,
	}); err != nil {
		logger.Fatalf("Operation failed: %v", err)
	}
}

type options struct {
	op              string
	rpcEndpoints    []string
	wsEndpoint      string
	mint            string
	secretsFile     string
	generate        int
	buyAmounts      []uint64
	sellPercents    []uint64
	useRandomAmount bool
	delay           time.Duration
	slippageBps     uint64
	priorityFee     uint64
	useJito         bool
	tipRelay        string
	tipLamports     uint64
	total           uint64
	hops            int
	collector       string
	postgresDSN     string
	clickhouseDSN   string
}

func run(ctx context.Context, logger *log.Logger, eventBus *bus.Bus, opts options) error {
	pool := endpoint.New(logger)
	if err := pool.Configure(ctx, opts.rpcEndpoints, opts.wsEndpoint); err != nil {
		return err
	}
	defer pool.Close()

	recorder, err := setupJournal(ctx, logger, eventBus, opts)
	if err != nil {
		return err
	}
	defer recorder.Close()

	manager := swarm.NewManager(logger, pool, eventBus)
	if err := populate(manager, opts); err != nil {
		return err
	}
	defer manager.Clear()

	if err := manager.Refresh(ctx, opts.mint); err != nil {
		return err
	}
	if err := manager.Watch(ctx); err != nil {
		return err
	}

	fetcher := broker.NewStateFetcher(pool)
	selector := broker.NewSelector(logger, fetcher,
		broker.NewCurveBroker(logger, pool, eventBus, fetcher),
		broker.NewAMMBroker(logger, pool, eventBus, fetcher),
		broker.NewLaunchpadBroker(logger, pool, eventBus, fetcher),
	)
	orch := orchestrator.New(logger, eventBus, selector, pool)
	dist := distribution.New(logger, pool, eventBus)

	switch opts.op {
	case "buy", "sell":
		res, err := orch.RunPass(ctx, tradeParams(manager, opts))
		if err != nil {
			return err
		}
		logger.Printf("Pass complete: %d submitted, %d failed", res.Submitted, res.Failed)

	case "buy-runout", "sell-runout":
		res, err := orch.RunToExhaustion(ctx, "swarm-cli", tradeParams(manager, opts))
		if err != nil {
			return err
		}
		logger.Printf("Run-out complete: %s after %d rounds, %d submitted, %d failed",
			res.State, res.Rounds, res.Submitted, res.Failed)

	case "distribute":
		source, destinations, err := splitSwarm(manager)
		if err != nil {
			return err
		}
		addrs := make([]string, len(destinations))
		for i, kp := range destinations {
			addrs[i] = kp.PublicKey()
		}
		return dist.FanOut(ctx, source, addrs, opts.total, opts.useRandomAmount)

	case "chain":
		source, destinations, err := splitSwarm(manager)
		if err != nil {
			return err
		}
		return dist.Chain(ctx, source, destinations, opts.total, opts.hops)

	case "collect":
		if opts.collector == "" {
			return fmt.Errorf("collect requires -collector")
		}
		sources, err := selectedKeypairs(manager)
		if err != nil {
			return err
		}
		return dist.Collect(ctx, sources, opts.collector)

	default:
		return fmt.Errorf("unknown operation %q", opts.op)
	}
	return nil
}

// setupJournal wires trade and balance persistence. Both stores default
// to in-memory when no DSN is given, so the journal always runs.
func setupJournal(ctx context.Context, logger *log.Logger, eventBus *bus.Bus, opts options) (*journal.Recorder, error) {
	var trades storage.TradeLogStore = memory.NewTradeLogStore()
	if opts.postgresDSN != "" {
		pgPool, err := pgstore.NewPool(ctx, opts.postgresDSN)
		if err != nil {
			return nil, err
		}
		if err := migrations.RunPostgresMigrations(ctx, pgPool); err != nil {
			return nil, err
		}
		trades = pgstore.NewTradeLogStore(pgPool)
	}

	var events storage.BalanceEventStore = memory.NewBalanceEventStore()
	if opts.clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, opts.clickhouseDSN)
		if err != nil {
			return nil, err
		}
		events = chstore.NewBalanceEventStore(conn)
	}

	return journal.NewRecorder(logger, eventBus, trades, events), nil
}

func populate(manager *swarm.Manager, opts options) error {
	if opts.generate > 0 {
		return manager.Populate(opts.generate)
	}
	if opts.secretsFile == "" {
		return fmt.Errorf("either -secrets-file or -generate is required")
	}
	f, err := os.Open(opts.secretsFile)
	if err != nil {
		return err
	}
	defer f.Close()
	return manager.Import(f)
}

func tradeParams(manager *swarm.Manager, opts options) orchestrator.Params {
	side := domain.TradeBuy
	if strings.HasPrefix(opts.op, "sell") {
		side = domain.TradeSell
	}
	return orchestrator.Params{
		Accounts:            manager.Selected(),
		Mint:                opts.mint,
		Side:                side,
		BuyAmounts:          opts.buyAmounts,
		SellPercents:        opts.sellPercents,
		UseRandomAmount:     opts.useRandomAmount,
		Delay:               opts.delay,
		SlippageBps:         opts.slippageBps,
		PriorityFeeLamports: opts.priorityFee,
		UseJitoBundle:       opts.useJito,
		TipLamports:         opts.tipLamports,
		TipRelayURL:         opts.tipRelay,
	}
}

// splitSwarm uses the first selected account as the source and the rest
// as destinations.
func splitSwarm(manager *swarm.Manager) (*wallet.Keypair, []*wallet.Keypair, error) {
	pairs, err := selectedKeypairs(manager)
	if err != nil {
		return nil, nil, err
	}
	if len(pairs) < 2 {
		return nil, nil, fmt.Errorf("need at least a source and one destination")
	}
	return pairs[0], pairs[1:], nil
}

func selectedKeypairs(manager *swarm.Manager) ([]*wallet.Keypair, error) {
	accounts := manager.Selected()
	if len(accounts) == 0 {
		return nil, orchestrator.ErrInvalidSelection
	}
	pairs := make([]*wallet.Keypair, 0, len(accounts))
	for _, acct := range accounts {
		kp, ok := manager.Keypair(acct.PublicKey)
		if !ok {
			return nil, fmt.Errorf("no signer for %s", acct.PublicKey)
		}
		pairs = append(pairs, kp)
	}
	return pairs, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseAmounts(logger *log.Logger, s string) []uint64 {
	var out []uint64
	for _, part := range splitList(s) {
		v, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			logger.Fatalf("invalid amount %q: %v", part, err)
		}
		out = append(out, v)
	}
	return out
}
