package tx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/LeJamon/goDCA/internal/core/ledger"
	"github.com/LeJamon/goDCA/internal/core/oracle"
)

// EngineConfig holds configuration for the transaction engine
type EngineConfig struct {
	// AllowOneSidedSwaps lets a swap run when only one side of an interval
	// has a rate. The swapper then funds the whole opposite side.
	AllowOneSidedSwaps bool
}

// Recorder observes every submitted transaction.
type Recorder interface {
	ObserveTransaction(txType, result string, elapsed time.Duration)
}

// ApplyResult is the outcome of Submit
type ApplyResult struct {
	// Type is the submitted transaction type
	Type Type `json:"type"`

	// Result is the result code
	Result Result `json:"result"`

	// Applied indicates whether the transaction changed the ledger
	Applied bool `json:"applied"`

	// Sequence is the engine sequence assigned to an applied transaction
	Sequence uint64 `json:"sequence,omitempty"`

	// Message is a human-readable description of the failure
	Message string `json:"message,omitempty"`

	// Output is the value the transaction returned, such as a position ID
	Output any `json:"output,omitempty"`

	// Metadata lists the changed ledger entries
	Metadata *ledger.Metadata `json:"metadata,omitempty"`

	// Events are the notifications the transaction published
	Events []Event `json:"events,omitempty"`
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock the engine reads the current time from.
func WithClock(c oracle.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithEventSink adds a receiver for committed events.
func WithEventSink(s EventSink) Option {
	return func(e *Engine) { e.sinks = append(e.sinks, s) }
}

// WithRecorder sets the transaction recorder, typically metrics.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithStartSequence resumes sequence numbering after a restart.
func WithStartSequence(seq uint64) Option {
	return func(e *Engine) { e.seq = seq }
}

// Engine applies transactions to a ledger view one at a time. Each
// submission runs against a fresh StateTable; changes reach the base view
// only when the whole transaction, including every callback it made,
// succeeds.
type Engine struct {
	mu sync.Mutex

	view   ledger.View
	oracle oracle.Oracle
	config EngineConfig
	clock  oracle.Clock
	log    *slog.Logger

	guard *pairGuard
	seq   uint64

	calleeMu sync.RWMutex
	callees  map[common.Address]any

	sinkMu   sync.RWMutex
	sinks    []EventSink
	recorder Recorder
}

// NewEngine creates an engine over view priced by o.
func NewEngine(view ledger.View, o oracle.Oracle, cfg EngineConfig, opts ...Option) *Engine {
	e := &Engine{
		view:    view,
		oracle:  o,
		config:  cfg,
		clock:   oracle.SystemClock,
		log:     slog.Default(),
		guard:   newPairGuard(),
		callees: make(map[common.Address]any),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("component", "engine")
	return e
}

// Config returns the engine configuration
func (e *Engine) Config() EngineConfig { return e.config }

// Sequence returns the sequence of the last applied transaction.
func (e *Engine) Sequence() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seq
}

// Now returns the engine clock as unix seconds.
func (e *Engine) Now() int64 { return e.clock.Now().Unix() }

// RegisterCallee makes impl reachable as the swap or loan callee at addr.
// impl implements SwapCallee, LoanCallee or both.
func (e *Engine) RegisterCallee(addr common.Address, impl any) error {
	if addr == (common.Address{}) {
		return ErrZeroAddress
	}
	_, isSwap := impl.(SwapCallee)
	_, isLoan := impl.(LoanCallee)
	if !isSwap && !isLoan {
		return fmt.Errorf("callee %s implements neither SwapCallee nor LoanCallee", addr)
	}
	e.calleeMu.Lock()
	defer e.calleeMu.Unlock()
	e.callees[addr] = impl
	return nil
}

func (e *Engine) callee(addr common.Address) (any, bool) {
	e.calleeMu.RLock()
	defer e.calleeMu.RUnlock()
	impl, ok := e.callees[addr]
	return impl, ok
}

// Subscribe adds a receiver for committed events.
func (e *Engine) Subscribe(s EventSink) {
	e.sinkMu.Lock()
	defer e.sinkMu.Unlock()
	e.sinks = append(e.sinks, s)
}

// Publish hands events that did not come from a transaction, such as
// swapper watch-list changes, to the subscribers.
func (e *Engine) Publish(events ...Event) {
	e.sinkMu.RLock()
	sinks := e.sinks
	e.sinkMu.RUnlock()
	for _, ev := range events {
		for _, s := range sinks {
			s.HandleEvent(ev)
		}
	}
}

// Submit applies t on behalf of from. It returns the result together with
// the transaction's error, which is a *Error for every rejection.
//
// Submit must not be called from a callback; use ApplyContext.Call.
func (e *Engine) Submit(ctx context.Context, from common.Address, t Transaction) (*ApplyResult, error) {
	start := time.Now()

	e.mu.Lock()
	result, events, err := e.submit(ctx, from, t)
	e.mu.Unlock()

	if e.recorder != nil {
		e.recorder.ObserveTransaction(t.TxType().String(), result.Result.String(), time.Since(start))
	}
	if err != nil {
		e.log.Debug("transaction rejected",
			"type", t.TxType(),
			"from", from,
			"result", result.Result,
			"err", err,
		)
		return result, err
	}

	e.log.Debug("transaction applied",
		"type", t.TxType(),
		"from", from,
		"sequence", result.Sequence,
		"events", len(events),
	)
	e.Publish(events...)
	return result, nil
}

func (e *Engine) submit(ctx context.Context, from common.Address, t Transaction) (*ApplyResult, []Event, error) {
	result := &ApplyResult{Type: t.TxType()}
	fail := func(err error) (*ApplyResult, []Event, error) {
		result.Result = CodeOf(err)
		result.Message = err.Error()
		return result, nil, err
	}

	if err := ctx.Err(); err != nil {
		return fail(Wrap(Internal, err, "submit"))
	}
	if from == (common.Address{}) {
		return fail(Errorf(ZeroAddress, "caller"))
	}

	table := ledger.NewStateTable(e.view)
	frame := newRootContext(ctx, e, table, from, e.Now())
	err := frame.apply(t)
	if err == nil && frame.root.reentered {
		// A callee swallowed the refusal; the transaction still fails.
		err = Errorf(ReentrancyDetected, "nested call into a locked pair")
	}
	if err != nil {
		var txErr *Error
		if !errors.As(err, &txErr) {
			err = Wrap(Internal, err, t.TxType().String())
		}
		return fail(err)
	}

	meta, err := table.Apply()
	if err != nil {
		e.log.Error("commit failed", "type", t.TxType(), "err", err)
		return fail(Wrap(Internal, err, "commit"))
	}

	e.seq++
	events := *frame.events
	for i := range events {
		events[i].Sequence = e.seq
		events[i].Time = frame.now
	}

	result.Result = Success
	result.Applied = true
	result.Sequence = e.seq
	result.Output = frame.root.output
	result.Metadata = meta
	result.Events = events
	return result, events, nil
}
