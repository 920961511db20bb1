package testing

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/LeJamon/goDCA/internal/core/ledger"
	"github.com/LeJamon/goDCA/internal/core/ledger/entry"
	"github.com/LeJamon/goDCA/internal/core/oracle"
	"github.com/LeJamon/goDCA/internal/core/tx"
)

// Common swap intervals in seconds.
const (
	Hour uint32 = 3600
	Day  uint32 = 86400
	Week uint32 = 604800
)

// EnvConfig configures a TestEnv.
type EnvConfig struct {
	SwapFee            uint32
	LoanFee            uint32
	Intervals          []uint32
	AllowOneSidedSwaps bool

	// View is the base ledger view. A fresh MemoryView is used when nil.
	View ledger.View
}

// DefaultEnvConfig returns the protocol defaults with hourly, daily and
// weekly intervals allowed.
func DefaultEnvConfig() EnvConfig {
	return EnvConfig{
		SwapFee:   tx.DefaultSwapFee,
		LoanFee:   tx.DefaultLoanFee,
		Intervals: []uint32{Hour, Day, Week},
	}
}

// TestEnv manages a test ledger environment for transaction testing.
// It provides a simplified interface for creating tokens and pairs,
// submitting transactions, and verifying results.
type TestEnv struct {
	t        *testing.T
	engine   *tx.Engine
	view     ledger.View
	clock    *ManualClock
	oracle   *oracle.Static
	accounts map[string]*Account

	governor     *Account
	feeRecipient *Account

	events []tx.Event
}

// NewTestEnv creates a new test environment with the default configuration.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	return NewTestEnvWithConfig(t, DefaultEnvConfig())
}

// NewTestEnvWithConfig creates a new test environment bootstrapped with a
// governor and a fee recipient.
func NewTestEnvWithConfig(t *testing.T, cfg EnvConfig) *TestEnv {
	t.Helper()

	view := cfg.View
	if view == nil {
		view = ledger.NewMemoryView()
	}
	env := &TestEnv{
		t:            t,
		view:         view,
		clock:        NewManualClock(),
		oracle:       oracle.NewStatic(),
		accounts:     make(map[string]*Account),
		governor:     NewAccount("governor"),
		feeRecipient: NewAccount("feeRecipient"),
	}
	env.accounts[env.governor.Name] = env.governor
	env.accounts[env.feeRecipient.Name] = env.feeRecipient

	env.engine = tx.NewEngine(view, env.oracle,
		tx.EngineConfig{AllowOneSidedSwaps: cfg.AllowOneSidedSwaps},
		tx.WithClock(env.clock),
		tx.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		tx.WithEventSink(tx.EventSinkFunc(func(ev tx.Event) {
			env.events = append(env.events, ev)
		})),
	)

	genesis := tx.DefaultGenesis(env.governor.Address)
	genesis.FeeRecipient = env.feeRecipient.Address
	genesis.SwapFee = cfg.SwapFee
	genesis.LoanFee = cfg.LoanFee
	genesis.AllowedIntervals = cfg.Intervals
	if _, err := env.engine.Bootstrap(context.Background(), genesis); err != nil {
		t.Fatalf("Failed to bootstrap ledger: %v", err)
	}
	return env
}

// Engine returns the transaction engine.
func (e *TestEnv) Engine() *tx.Engine { return e.engine }

// View returns the base ledger view.
func (e *TestEnv) View() ledger.View { return e.view }

// Oracle returns the static price oracle.
func (e *TestEnv) Oracle() *oracle.Static { return e.oracle }

// Governor returns the protocol governor account.
func (e *TestEnv) Governor() *Account { return e.governor }

// FeeRecipient returns the account that receives protocol fees.
func (e *TestEnv) FeeRecipient() *Account { return e.feeRecipient }

// Account returns the account with the given name, creating it on first use.
func (e *TestEnv) Account(name string) *Account {
	if acc, ok := e.accounts[name]; ok {
		return acc
	}
	acc := NewAccount(name)
	e.accounts[name] = acc
	return acc
}

// Now returns the current test time.
func (e *TestEnv) Now() time.Time { return e.clock.Now() }

// Clock returns the manual clock driving the engine.
func (e *TestEnv) Clock() *ManualClock { return e.clock }

// AdvanceTime moves the clock forward.
func (e *TestEnv) AdvanceTime(d time.Duration) { e.clock.Advance(d) }

// AdvanceSeconds moves the clock forward by n seconds.
func (e *TestEnv) AdvanceSeconds(n int64) { e.clock.Advance(time.Duration(n) * time.Second) }

// SetTime sets the clock.
func (e *TestEnv) SetTime(t time.Time) { e.clock.Set(t) }

// TokenAddress returns the deterministic address of a test token.
func TokenAddress(symbol string) common.Address {
	hash := crypto.Keccak256([]byte("token:" + symbol))
	return common.BytesToAddress(hash[12:])
}

// CreateToken registers a token with the ledger and the oracle.
func (e *TestEnv) CreateToken(symbol string, decimals uint8) common.Address {
	e.t.Helper()
	addr := TokenAddress(symbol)
	result := e.Submit(e.governor, &tx.TokenCreate{Token: addr, Symbol: symbol, Decimals: decimals})
	RequireTxSuccess(e.t, result)
	e.oracle.SetToken(addr, decimals)
	return addr
}

// Mint credits value of token to acc.
func (e *TestEnv) Mint(token common.Address, acc *Account, value *uint256.Int) {
	e.t.Helper()
	result := e.Submit(e.governor, &tx.TokenMint{Token: token, To: acc.Address, Amount: value})
	RequireTxSuccess(e.t, result)
}

// CreatePair creates the DCA pair of two tokens and returns its address.
func (e *TestEnv) CreatePair(a, b common.Address) common.Address {
	e.t.Helper()
	result := e.Submit(e.governor, &tx.CreatePair{TokenA: a, TokenB: b})
	RequireTxSuccess(e.t, result)
	return result.Output.(common.Address)
}

// SetPrice sets how many whole quote tokens one whole base token is worth.
func (e *TestEnv) SetPrice(base, quote common.Address, price string) {
	e.t.Helper()
	if err := e.oracle.SetPrice(base, quote, decimal.RequireFromString(price)); err != nil {
		e.t.Fatalf("Failed to set price: %v", err)
	}
}

// Submit applies a transaction on behalf of from.
func (e *TestEnv) Submit(from *Account, t tx.Transaction) TxResult {
	e.t.Helper()
	res, err := e.engine.Submit(context.Background(), from.Address, t)
	return resultFrom(res, err)
}

// Balance returns holder's balance of token.
func (e *TestEnv) Balance(token common.Address, holder common.Address) *uint256.Int {
	e.t.Helper()
	bal, err := e.engine.Balance(token, holder)
	if err != nil {
		e.t.Fatalf("Failed to read balance: %v", err)
	}
	return bal
}

// BalanceOf returns an account's balance of token.
func (e *TestEnv) BalanceOf(token common.Address, acc *Account) *uint256.Int {
	e.t.Helper()
	return e.Balance(token, acc.Address)
}

// Pair returns a pair entry.
func (e *TestEnv) Pair(pair common.Address) *entry.Pair {
	e.t.Helper()
	p, err := e.engine.Pair(pair)
	if err != nil {
		e.t.Fatalf("Failed to read pair: %v", err)
	}
	return p
}

// Position returns a position and its claimable amounts.
func (e *TestEnv) Position(pair common.Address, id uint64) *tx.PositionInfo {
	e.t.Helper()
	p, err := e.engine.Position(pair, id)
	if err != nil {
		e.t.Fatalf("Failed to read position %d: %v", id, err)
	}
	return p
}

// NextSwapInfo returns what swapping pair would do now.
func (e *TestEnv) NextSwapInfo(pair common.Address) *tx.SwapInfo {
	e.t.Helper()
	info, err := e.engine.NextSwapInfo(context.Background(), pair)
	if err != nil {
		e.t.Fatalf("Failed to compute swap info: %v", err)
	}
	return info
}

// SecondsUntilNextSwap returns how long until pair can be swapped.
func (e *TestEnv) SecondsUntilNextSwap(pair common.Address) int64 {
	e.t.Helper()
	secs, err := e.engine.SecondsUntilNextSwap(pair)
	if err != nil {
		e.t.Fatalf("Failed to read next swap time: %v", err)
	}
	return secs
}

// RegisterCallee registers a swap or loan callee at addr.
func (e *TestEnv) RegisterCallee(addr common.Address, impl any) {
	e.t.Helper()
	if err := e.engine.RegisterCallee(addr, impl); err != nil {
		e.t.Fatalf("Failed to register callee: %v", err)
	}
}

// Events returns every event published so far.
func (e *TestEnv) Events() []tx.Event { return e.events }
