package tx

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/LeJamon/goDCA/internal/core/ledger"
	"github.com/LeJamon/goDCA/internal/core/ledger/entry"
	"github.com/LeJamon/goDCA/internal/core/ledger/keylet"
)

// rootState is shared by every frame of one submission.
type rootState struct {
	// reentered is set when any frame is refused a pair lock, even if the
	// refusal was later swallowed by a callee.
	reentered bool
	output    any
}

// ApplyContext provides all the state and helpers needed to apply a
// transaction. Callbacks receive an ApplyContext whose Caller is the callee
// address; it shares the View of the transaction that invoked them.
type ApplyContext struct {
	// View provides read/write access to ledger state
	View *ledger.StateTable

	// Caller is the account the current frame acts for
	Caller common.Address

	// Engine provides the oracle, callees and configuration
	Engine *Engine

	ctx    context.Context
	now    int64
	depth  int
	events *[]Event
	root   *rootState

	// callback frames may only move the funds of their own Caller
	callback bool
}

func newRootContext(ctx context.Context, e *Engine, table *ledger.StateTable, caller common.Address, now int64) *ApplyContext {
	return &ApplyContext{
		View:   table,
		Caller: caller,
		Engine: e,
		ctx:    ctx,
		now:    now,
		events: new([]Event),
		root:   &rootState{},
	}
}

// Context returns the context of the submission.
func (c *ApplyContext) Context() context.Context { return c.ctx }

// Now returns the submission time in unix seconds. It does not change while
// a transaction applies.
func (c *ApplyContext) Now() int64 { return c.now }

// Emit queues an event. Events are published only if the transaction
// commits.
func (c *ApplyContext) Emit(typ EventType, pair common.Address, data any) {
	*c.events = append(*c.events, Event{Type: typ, Pair: pair, Data: data})
}

// SetOutput sets the value returned in ApplyResult.Output. Frames below the
// submitted transaction cannot set it.
func (c *ApplyContext) SetOutput(v any) {
	if c.depth == 0 {
		c.root.output = v
	}
}

// Call applies t as a nested transaction on behalf of Caller. Its changes
// are kept only if it succeeds, so a caller may recover from the error.
func (c *ApplyContext) Call(t Transaction) error {
	child := &ApplyContext{
		View:   ledger.NewStateTable(c.View),
		Caller: c.Caller,
		Engine: c.Engine,
		ctx:    c.ctx,
		now:    c.now,
		depth:  c.depth + 1,
		events: new([]Event),
		root:   c.root,

		callback: c.callback && !registered(t),
	}
	if err := child.apply(t); err != nil {
		return err
	}
	if _, err := child.View.Apply(); err != nil {
		return Wrap(Internal, err, "nested commit")
	}
	*c.events = append(*c.events, *child.events...)
	return nil
}

// as returns a frame acting for caller over the same view.
func (c *ApplyContext) as(caller common.Address) *ApplyContext {
	cp := *c
	cp.Caller = caller
	cp.depth = c.depth + 1
	cp.callback = true
	return &cp
}

func (c *ApplyContext) apply(t Transaction) error {
	if err := t.Validate(); err != nil {
		var txErr *Error
		if errors.As(err, &txErr) {
			return err
		}
		return Wrap(Malformed, err, t.TxType().String())
	}
	if pt, ok := t.(PairTransaction); ok {
		release, ok := c.Engine.guard.enter(pt.PairAddress())
		if !ok {
			c.root.reentered = true
			return Errorf(ReentrancyDetected, "pair %s is locked", pt.PairAddress())
		}
		defer release()
	}
	return t.Apply(c)
}

// Parameters returns the protocol parameters.
func (c *ApplyContext) Parameters() (*entry.Parameters, error) {
	return loadParameters(c.View)
}

// BalanceOf returns holder's balance of token.
func (c *ApplyContext) BalanceOf(token, holder common.Address) (*uint256.Int, error) {
	return readBalance(c.View, token, holder)
}

// Transfer moves amount of token from Caller to to.
func (c *ApplyContext) Transfer(token, to common.Address, amount *uint256.Int) error {
	return c.Move(token, c.Caller, to, amount)
}

// Move moves amount of token between two holders. It is meant for
// transactions that custody funds at an address they control, such as a
// pair or a market pool; user-facing code uses Transfer. A callee's frame,
// and any transaction type it defines itself, can only move from Caller.
func (c *ApplyContext) Move(token, from, to common.Address, amount *uint256.Int) error {
	if c.callback && from != c.Caller {
		return Errorf(Unauthorized, "%s cannot move funds held by %s", c.Caller, from)
	}
	return move(c.View, token, from, to, amount)
}

// NextSwapInfo computes what a swap of pair would do right now. Callbacks
// use it instead of Engine.NextSwapInfo.
func (c *ApplyContext) NextSwapInfo(pair common.Address) (*SwapInfo, error) {
	plan, err := planSwap(c.ctx, c.View, c.Engine, pair, c.now)
	if err != nil {
		return nil, err
	}
	return plan.info, nil
}

func loadParameters(v ledger.View) (*entry.Parameters, error) {
	var p entry.Parameters
	found, err := ledger.Get(v, keylet.Parameters(), &p)
	if err != nil {
		return nil, Wrap(Internal, err, "read parameters")
	}
	if !found {
		return nil, Errorf(Internal, "ledger has no parameters; bootstrap it first")
	}
	return &p, nil
}

func saveParameters(v ledger.View, p *entry.Parameters) error {
	if err := ledger.Put(v, keylet.Parameters(), p); err != nil {
		return Wrap(Internal, err, "write parameters")
	}
	return nil
}
