// Package swapper runs the keeper that swaps due pairs. It sells each
// pair's reward on an external venue and only swaps when the venue returns
// at least what the pair needs.
package swapper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/holiman/uint256"
	"golang.org/x/sync/errgroup"

	"github.com/LeJamon/goDCA/internal/core/governance"
	"github.com/LeJamon/goDCA/internal/core/tx"
	"github.com/LeJamon/goDCA/internal/metrics"
)

// Config holds configuration for the dispatcher
type Config struct {
	// Account submits swaps. It keeps the reward of swaps that need nothing
	// provided.
	Account common.Address

	// PollInterval is how often Run looks for due pairs
	PollInterval time.Duration

	// QuoteCacheSize bounds the number of cached quotes
	QuoteCacheSize int

	// QuoteTTL is how long a quote is reused
	QuoteTTL time.Duration

	// MaxConcurrentQuotes bounds parallel provider calls
	MaxConcurrentQuotes int
}

// DefaultConfig returns the dispatcher defaults for account.
func DefaultConfig(account common.Address) Config {
	return Config{
		Account:             account,
		PollInterval:        15 * time.Second,
		QuoteCacheSize:      256,
		QuoteTTL:            10 * time.Second,
		MaxConcurrentQuotes: 8,
	}
}

// Status is the outcome of one pair in a batch.
type Status string

const (
	StatusSwapped          Status = "swapped"
	StatusSkipNotDue       Status = "skip_not_due"
	StatusSkipUnprofitable Status = "skip_unprofitable"
	StatusFailed           Status = "failed"
)

// PairQuote names a pair to swap. Quote is used instead of asking the
// provider when set.
type PairQuote struct {
	Pair  common.Address `json:"pair"`
	Quote *Quote         `json:"quote,omitempty"`
}

// PairOutcome is what happened to one pair of a batch.
type PairOutcome struct {
	Pair    common.Address  `json:"pair"`
	Status  Status          `json:"status"`
	Info    *tx.SwapInfo    `json:"info,omitempty"`
	Quote   *Quote          `json:"quote,omitempty"`
	Result  *tx.ApplyResult `json:"result,omitempty"`
	Err     error           `json:"-"`
	Message string          `json:"message,omitempty"`
}

type quoteKey struct {
	sell, buy common.Address
	amount    uint256.Int
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// WithMetrics sets the collectors the dispatcher reports to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithWatchList replaces the in-memory watch list.
func WithWatchList(w *WatchList) Option {
	return func(d *Dispatcher) { d.watch = w }
}

// Dispatcher keeps the watch list and swaps its pairs through the engine.
type Dispatcher struct {
	engine  *tx.Engine
	quotes  QuoteProvider
	gov     *governance.Governor
	watch   *WatchList
	cache   *expirable.LRU[quoteKey, *Quote]
	cfg     Config
	metrics *metrics.Metrics
	log     *slog.Logger
}

// New creates a dispatcher governed by gov. quotes may be nil when every
// batch carries its own quotes.
func New(engine *tx.Engine, quotes QuoteProvider, gov *governance.Governor, cfg Config, opts ...Option) (*Dispatcher, error) {
	if cfg.Account == (common.Address{}) {
		return nil, tx.Errorf(tx.ZeroAddress, "swapper account")
	}
	if gov == nil {
		return nil, errors.New("swapper: nil governor")
	}
	def := DefaultConfig(cfg.Account)
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.QuoteCacheSize <= 0 {
		cfg.QuoteCacheSize = def.QuoteCacheSize
	}
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = def.QuoteTTL
	}
	if cfg.MaxConcurrentQuotes <= 0 {
		cfg.MaxConcurrentQuotes = def.MaxConcurrentQuotes
	}

	d := &Dispatcher{
		engine: engine,
		quotes: quotes,
		gov:    gov,
		cfg:    cfg,
		cache:  expirable.NewLRU[quoteKey, *Quote](cfg.QuoteCacheSize, nil, cfg.QuoteTTL),
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.watch == nil {
		d.watch, _ = NewWatchList(context.Background(), nil)
	}
	d.log = d.log.With("component", "swapper")
	d.metrics.SetWatchedPairs(d.watch.Len())
	return d, nil
}

// Config returns the dispatcher configuration
func (d *Dispatcher) Config() Config { return d.cfg }

// Governance returns the dispatcher's governor state.
func (d *Dispatcher) Governance() governance.State { return d.gov.State() }

// Watched returns the watched pairs in address order.
func (d *Dispatcher) Watched() []common.Address { return d.watch.List() }

func (d *Dispatcher) publish(typ tx.EventType, data any) {
	d.engine.Publish(tx.Event{
		Type:     typ,
		Sequence: d.engine.Sequence(),
		Time:     d.engine.Now(),
		Data:     data,
	})
}

func (d *Dispatcher) checkPairs(caller common.Address, pairs []common.Address) error {
	if err := tx.GovernanceError(d.gov.OnlyGovernor(caller)); err != nil {
		return err
	}
	for i, p := range pairs {
		if p == (common.Address{}) {
			return tx.Errorf(tx.ZeroAddress, "pair %d", i)
		}
	}
	return nil
}

// StartWatching adds pairs to the watch list. Adding a watched pair is a
// no-op; a zero address anywhere in pairs rejects the whole call.
func (d *Dispatcher) StartWatching(ctx context.Context, caller common.Address, pairs []common.Address) error {
	if err := d.checkPairs(caller, pairs); err != nil {
		return err
	}
	added, err := d.watch.Add(ctx, pairs)
	if err != nil {
		return tx.Wrap(tx.Internal, err, "start watching")
	}
	d.metrics.SetWatchedPairs(d.watch.Len())
	d.log.Info("watching pairs", "requested", len(pairs), "added", len(added))
	d.publish(tx.EventWatchingNewPairs, &tx.WatchEvent{Pairs: pairs})
	return nil
}

// StopWatching removes pairs from the watch list.
func (d *Dispatcher) StopWatching(ctx context.Context, caller common.Address, pairs []common.Address) error {
	if err := d.checkPairs(caller, pairs); err != nil {
		return err
	}
	removed, err := d.watch.Remove(ctx, pairs)
	if err != nil {
		return tx.Wrap(tx.Internal, err, "stop watching")
	}
	d.metrics.SetWatchedPairs(d.watch.Len())
	d.log.Info("stopped watching pairs", "requested", len(pairs), "removed", len(removed))
	d.publish(tx.EventStoppedWatchingPairs, &tx.WatchEvent{Pairs: pairs})
	return nil
}

// SetPendingGovernor starts a handoff of the dispatcher's governance.
func (d *Dispatcher) SetPendingGovernor(caller, pending common.Address) error {
	if err := tx.GovernanceError(d.gov.SetPendingGovernor(caller, pending)); err != nil {
		return err
	}
	st := d.gov.State()
	d.publish(tx.EventPendingGovernorSet, &tx.GovernorEvent{Governor: st.Governor, PendingGovernor: st.PendingGovernor})
	return nil
}

// AcceptPendingGovernor completes a handoff started by SetPendingGovernor.
func (d *Dispatcher) AcceptPendingGovernor(caller common.Address) error {
	if err := tx.GovernanceError(d.gov.AcceptPendingGovernor(caller)); err != nil {
		return err
	}
	st := d.gov.State()
	d.publish(tx.EventPendingGovernorAccepted, &tx.GovernorEvent{Governor: st.Governor})
	return nil
}

// quote returns a cached quote for req or asks the provider.
func (d *Dispatcher) quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	key := quoteKey{sell: req.SellToken, buy: req.BuyToken, amount: *req.SellAmount}
	if q, ok := d.cache.Get(key); ok {
		d.metrics.ObserveQuoteCache(true)
		return q, nil
	}
	d.metrics.ObserveQuoteCache(false)
	if d.quotes == nil {
		return nil, errors.New("no quote provider")
	}

	start := time.Now()
	q, err := d.quotes.Quote(ctx, req)
	d.metrics.ObserveQuote(time.Since(start))
	if err != nil {
		return nil, err
	}
	if q == nil || q.BuyAmount == nil {
		return nil, fmt.Errorf("empty quote for %s", req.SellToken)
	}
	d.cache.Add(key, q)
	return q, nil
}

func (d *Dispatcher) forget(q *Quote, info *tx.SwapInfo) {
	if q == nil || q.SellAmount == nil {
		return
	}
	d.cache.Remove(quoteKey{
		sell:   info.TokenToRewardSwapperWith,
		buy:    info.TokenToBeProvidedBySwapper,
		amount: *q.SellAmount,
	})
}

// ExecuteSwaps swaps every pair of reqs that is due and profitable. Each
// pair is its own transaction; one pair failing leaves the others alone.
// Outcomes are returned in the order of reqs.
func (d *Dispatcher) ExecuteSwaps(ctx context.Context, reqs []PairQuote) []PairOutcome {
	outcomes := make([]PairOutcome, len(reqs))
	pending := make([]bool, len(reqs))

	for i, r := range reqs {
		o := &outcomes[i]
		o.Pair, o.Quote = r.Pair, r.Quote
		if err := ctx.Err(); err != nil {
			o.Status, o.Err = StatusFailed, err
			continue
		}
		secs, err := d.engine.SecondsUntilNextSwap(r.Pair)
		if err != nil {
			o.Status, o.Err = StatusFailed, err
			continue
		}
		if secs != 0 {
			o.Status = StatusSkipNotDue
			continue
		}
		if o.Info, err = d.engine.NextSwapInfo(ctx, r.Pair); err != nil {
			o.Status, o.Err = StatusFailed, err
			continue
		}
		pending[i] = true
	}

	g := new(errgroup.Group)
	g.SetLimit(d.cfg.MaxConcurrentQuotes)
	for i := range outcomes {
		o := &outcomes[i]
		if !pending[i] || o.Quote != nil || o.Info.AmountToBeProvidedBySwapper.IsZero() {
			continue
		}
		g.Go(func() error {
			q, err := d.quote(ctx, QuoteRequest{
				SellToken:  o.Info.TokenToRewardSwapperWith,
				BuyToken:   o.Info.TokenToBeProvidedBySwapper,
				SellAmount: o.Info.AmountToRewardSwapperWith,
			})
			if err != nil {
				o.Status, o.Err = StatusFailed, fmt.Errorf("quote: %w", err)
				return nil
			}
			o.Quote = q
			return nil
		})
	}
	_ = g.Wait()

	for i := range outcomes {
		o := &outcomes[i]
		if pending[i] && o.Err == nil {
			d.swap(ctx, o)
		}
		if o.Err != nil {
			o.Message = o.Err.Error()
		}
		d.metrics.ObserveSwapOutcome(string(o.Status))
		d.log.Debug("pair outcome", "pair", o.Pair, "status", o.Status, "err", o.Err)
	}
	return outcomes
}

// swap submits the swap of one due pair.
func (d *Dispatcher) swap(ctx context.Context, o *PairOutcome) {
	info := o.Info
	t := &tx.Swap{Pair: o.Pair}
	if !info.AmountToBeProvidedBySwapper.IsZero() {
		q := o.Quote
		if q.BuyAmount == nil || q.BuyAmount.Lt(info.AmountToBeProvidedBySwapper) {
			o.Status = StatusSkipUnprofitable
			return
		}
		// the venue would sell more than the pair rewards
		if q.SellAmount != nil && q.SellAmount.Gt(info.AmountToRewardSwapperWith) {
			o.Status = StatusSkipUnprofitable
			return
		}
		t.Callee, t.Data, t.MinReward = q.Executor, q.Payload, q.SellAmount
	}

	res, err := d.engine.Submit(ctx, d.cfg.Account, t)
	o.Result = res
	if err != nil {
		o.Status, o.Err = StatusFailed, err
		d.forget(o.Quote, info)
		d.log.Warn("swap failed", "pair", o.Pair, "err", err)
		return
	}
	o.Status = StatusSwapped
	d.log.Info("swapped pair",
		"pair", o.Pair,
		"sequence", res.Sequence,
		"provided", info.AmountToBeProvidedBySwapper,
		"reward", info.AmountToRewardSwapperWith,
	)
}

// SwapDuePairs swaps the watched pairs that are due now.
func (d *Dispatcher) SwapDuePairs(ctx context.Context) []PairOutcome {
	var due []PairQuote
	for _, p := range d.watch.List() {
		secs, err := d.engine.SecondsUntilNextSwap(p)
		if err != nil {
			d.log.Warn("cannot check pair", "pair", p, "err", err)
			continue
		}
		if secs == 0 {
			due = append(due, PairQuote{Pair: p})
		}
	}
	if len(due) == 0 {
		return nil
	}
	return d.ExecuteSwaps(ctx, due)
}

// Run swaps due pairs every poll interval until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
	d.log.Info("dispatcher started", "account", d.cfg.Account, "interval", d.cfg.PollInterval, "watched", d.watch.Len())
	for {
		select {
		case <-ctx.Done():
			d.log.Info("dispatcher stopped")
			return nil
		case <-ticker.C:
			outcomes := d.SwapDuePairs(ctx)
			if len(outcomes) == 0 {
				continue
			}
			counts := make(map[Status]int)
			for _, o := range outcomes {
				counts[o.Status]++
			}
			d.log.Info("swap pass",
				"swapped", counts[StatusSwapped],
				"unprofitable", counts[StatusSkipUnprofitable],
				"failed", counts[StatusFailed],
			)
		}
	}
}
