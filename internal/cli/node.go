package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/LeJamon/goDCA/internal/config"
	"github.com/LeJamon/goDCA/internal/core/governance"
	"github.com/LeJamon/goDCA/internal/core/ledger"
	"github.com/LeJamon/goDCA/internal/core/oracle"
	"github.com/LeJamon/goDCA/internal/core/tx"
	"github.com/LeJamon/goDCA/internal/core/tx/market"
	"github.com/LeJamon/goDCA/internal/grpc"
	"github.com/LeJamon/goDCA/internal/metrics"
	"github.com/LeJamon/goDCA/internal/rpc"
	"github.com/LeJamon/goDCA/internal/rpc/rpc_types"
	"github.com/LeJamon/goDCA/internal/storage"
	"github.com/LeJamon/goDCA/internal/storage/database"
	"github.com/LeJamon/goDCA/internal/storage/database/bbolt"
	"github.com/LeJamon/goDCA/internal/storage/journal"
	"github.com/LeJamon/goDCA/internal/storage/ledgerstore"
	"github.com/LeJamon/goDCA/internal/swapper"
)

// Node is a wired daemon: the ledger with its engine and every enabled
// service around it.
type Node struct {
	cfg *config.Config
	log *slog.Logger

	registry *prometheus.Registry
	metrics  *metrics.Metrics

	engine     *tx.Engine
	feed       oracle.Feed
	market     *market.Market
	dispatcher *swapper.Dispatcher
	journal    *journal.Journal

	http *http.Server
	ws   *rpc.WebSocketServer
	grpc *grpc.Server

	// managers are closed in reverse order by Close
	managers []database.Manager
}

// NewNode opens storage, bootstraps the ledger on first start and builds
// the enabled services. Close releases what it opened.
func NewNode(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Node, error) {
	n := &Node{cfg: cfg, log: logger}
	if err := n.build(ctx); err != nil {
		_ = n.Close()
		return nil, err
	}
	return n, nil
}

func (n *Node) build(ctx context.Context) (err error) {
	cfg, logger := n.cfg, n.log
	if cfg.Metrics.Enabled {
		n.registry = prometheus.NewRegistry()
		n.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		if n.metrics, err = metrics.New(n.registry, cfg.Metrics.Namespace); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	view, err := n.openLedger()
	if err != nil {
		return err
	}

	if n.feed, err = cfg.NewOracle(oracle.SystemClock); err != nil {
		return fmt.Errorf("oracle: %w", err)
	}

	opts := []tx.Option{tx.WithLogger(logger)}
	if n.metrics != nil {
		opts = append(opts, tx.WithRecorder(n.metrics), tx.WithEventSink(n.metrics))
	}
	if cfg.Journal.Enabled() {
		if n.journal, err = journal.Open(ctx, cfg.Journal, logger); err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		last, err := n.journal.LastSequence(ctx)
		if err != nil {
			return fmt.Errorf("journal: %w", err)
		}
		opts = append(opts, tx.WithEventSink(n.journal), tx.WithStartSequence(last))
	}
	n.engine = tx.NewEngine(view, n.feed, tx.EngineConfig{
		AllowOneSidedSwaps: cfg.Protocol.AllowOneSidedSwaps,
	}, opts...)

	genesis, err := cfg.ToGenesis()
	if err != nil {
		return err
	}
	fresh, err := n.engine.Bootstrap(ctx, genesis)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if fresh {
		logger.Info("ledger bootstrapped", "tokens", len(genesis.Tokens), "pairs", len(genesis.Pairs))
	}

	if cfg.Market.Enabled {
		if err := n.startMarket(ctx, fresh); err != nil {
			return err
		}
	}
	if cfg.Swapper.Enabled {
		if err := n.startSwapper(ctx); err != nil {
			return err
		}
	}

	n.buildServers()
	if cfg.GRPC.Enabled {
		if n.grpc, err = grpc.NewServer(&grpc.ServerConfig{
			Address:        cfg.GRPC.Address,
			MaxRecvMsgSize: cfg.GRPC.MaxRecvMsgSize,
			MaxSendMsgSize: cfg.GRPC.MaxSendMsgSize,
		}, n.engine, grpc.WithLogger(logger), grpc.WithMetrics(n.metrics)); err != nil {
			return fmt.Errorf("grpc: %w", err)
		}
	}
	return nil
}

// openLedger returns the configured ledger view. Persistent backends keep
// the state in the "ledger" database.
func (n *Node) openLedger() (ledger.View, error) {
	sc := n.cfg.Storage
	if !sc.IsPersistent() {
		n.log.Warn("ledger state is kept in memory and lost on exit")
		return ledger.NewMemoryView(), nil
	}
	mgr, err := storage.OpenManager(sc.Backend, sc.Path)
	if err != nil {
		return nil, err
	}
	n.managers = append(n.managers, mgr)
	db, err := mgr.OpenDB("ledger")
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}
	store, err := ledgerstore.New(db, ledgerstore.Config{
		Compression: sc.Compression,
		CacheSize:   sc.CacheSize,
	}, n.log)
	if err != nil {
		return nil, err
	}
	n.log.Info("ledger opened", "backend", sc.Backend, "path", sc.Path)
	return store, nil
}

// startMarket registers the market and, on a fresh ledger, seeds the
// configured pools.
func (n *Node) startMarket(ctx context.Context, fresh bool) error {
	m, err := market.New(n.engine, common.HexToAddress(n.cfg.Market.Address), n.log)
	if err != nil {
		return fmt.Errorf("market: %w", err)
	}
	n.market = m
	if !fresh {
		return nil
	}
	pools, err := n.cfg.Pools()
	if err != nil {
		return err
	}
	for _, p := range pools {
		if _, err := n.engine.Submit(ctx, p.Provider, p.Create); err != nil {
			return fmt.Errorf("create pool %s/%s: %w", p.Create.TokenA, p.Create.TokenB, err)
		}
	}
	return nil
}

// startSwapper builds the dispatcher and watches the configured pairs.
func (n *Node) startSwapper(ctx context.Context) error {
	sc := n.cfg.Swapper
	gov, err := governance.New(n.cfg.SwapperGovernor())
	if err != nil {
		return fmt.Errorf("swapper governor: %w", err)
	}

	dcfg := swapper.DefaultConfig(common.HexToAddress(sc.Account))
	dcfg.PollInterval = sc.PollInterval
	dcfg.QuoteCacheSize = sc.QuoteCacheSize
	dcfg.QuoteTTL = sc.QuoteTTL
	dcfg.MaxConcurrentQuotes = sc.MaxConcurrentQuotes

	opts := []swapper.Option{swapper.WithLogger(n.log), swapper.WithMetrics(n.metrics)}
	if sc.WatchDB != "" {
		mgr := bbolt.NewManager(sc.WatchDB)
		n.managers = append(n.managers, mgr)
		db, err := mgr.OpenDB("watchlist")
		if err != nil {
			return fmt.Errorf("open watch list: %w", err)
		}
		w, err := swapper.NewWatchList(ctx, db)
		if err != nil {
			return err
		}
		opts = append(opts, swapper.WithWatchList(w))
	}

	var quotes swapper.QuoteProvider
	if n.market != nil {
		quotes = n.market
	} else {
		n.log.Warn("swapper has no quote provider; only swaps with supplied quotes can execute")
	}
	d, err := swapper.New(n.engine, quotes, gov, dcfg, opts...)
	if err != nil {
		return fmt.Errorf("swapper: %w", err)
	}
	n.dispatcher = d

	pairs, err := n.cfg.WatchedPairs()
	if err != nil {
		return err
	}
	if len(pairs) > 0 {
		if err := d.StartWatching(ctx, n.cfg.SwapperGovernor(), pairs); err != nil {
			return fmt.Errorf("watch configured pairs: %w", err)
		}
	}
	return nil
}

func (n *Node) buildServers() {
	sc := n.cfg.Server
	services := &rpc_types.ServiceContainer{
		Engine:     n.engine,
		Feed:       n.feed,
		Dispatcher: n.dispatcher,
		Market:     n.market,
		Journal:    n.journal,
		Version:    rootCmd.Version,
	}
	server := rpc.NewServer(services, sc.WriteTimeout,
		rpc.WithAdmin(sc.Admin),
		rpc.WithLogger(n.log),
		rpc.WithMetrics(n.metrics),
	)
	n.ws = rpc.NewWebSocketServer(server, sc.SendQueueLimit, sc.WebsocketPingFrequency)
	n.engine.Subscribe(rpc.NewPublisher(n.ws))

	hc := rpc.HandlerConfig{RPC: server, WebSocket: n.ws}
	if n.registry != nil {
		hc.MetricsPath = n.cfg.Metrics.Path
		hc.Gatherer = n.registry
	}
	n.http = &http.Server{
		Addr:         sc.Address,
		Handler:      rpc.NewHandler(hc),
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
	}
}

// Run serves until ctx is done or a service fails.
func (n *Node) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n.log.Info("rpc server listening", "address", n.http.Addr)
		if err := n.http.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("rpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), n.cfg.Server.ShutdownTimeout)
		defer cancel()
		n.ws.Close()
		return n.http.Shutdown(sctx)
	})
	if n.grpc != nil {
		g.Go(func() error { return n.grpc.Run(ctx) })
	}
	if n.dispatcher != nil {
		g.Go(func() error { return n.dispatcher.Run(ctx) })
	}
	return g.Wait()
}

// Close releases the journal and every opened database.
func (n *Node) Close() error {
	var errs []error
	if n.journal != nil {
		errs = append(errs, n.journal.Close())
	}
	for i := len(n.managers) - 1; i >= 0; i-- {
		errs = append(errs, n.managers[i].Close())
	}
	n.managers = nil
	return errors.Join(errs...)
}
