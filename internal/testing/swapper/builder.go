// Package swapper provides helpers and tests for the swap dispatcher.
package swapper

import (
	"io"
	"log/slog"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/LeJamon/goDCA/internal/core/governance"
	dsp "github.com/LeJamon/goDCA/internal/swapper"
	jtx "github.com/LeJamon/goDCA/internal/testing"
)

// KeeperName is the account the test dispatcher submits swaps from.
const KeeperName = "keeper"

// NewDispatcher creates a dispatcher over env governed by env's governor.
func NewDispatcher(t *testing.T, env *jtx.TestEnv, quotes dsp.QuoteProvider, opts ...dsp.Option) *dsp.Dispatcher {
	t.Helper()
	return NewDispatcherWithConfig(t, env, quotes, dsp.DefaultConfig(env.Account(KeeperName).Address), opts...)
}

// NewDispatcherWithConfig creates a dispatcher with cfg.
func NewDispatcherWithConfig(t *testing.T, env *jtx.TestEnv, quotes dsp.QuoteProvider, cfg dsp.Config, opts ...dsp.Option) *dsp.Dispatcher {
	t.Helper()
	gov, err := governance.New(env.Governor().Address)
	if err != nil {
		t.Fatalf("Failed to create governor: %v", err)
	}
	opts = append([]dsp.Option{dsp.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	d, err := dsp.New(env.Engine(), quotes, gov, cfg, opts...)
	if err != nil {
		t.Fatalf("Failed to create dispatcher: %v", err)
	}
	return d
}

// Pairs builds a batch that asks the provider for every quote.
func Pairs(pairs ...common.Address) []dsp.PairQuote {
	out := make([]dsp.PairQuote, len(pairs))
	for i, p := range pairs {
		out[i] = dsp.PairQuote{Pair: p}
	}
	return out
}

// Venue registers a swap callee that pays each pair exactly what it is owed
// and funds it with stock of token.
func Venue(env *jtx.TestEnv, name string, token common.Address, stock *uint256.Int) *jtx.Account {
	acc := env.Account(name)
	env.RegisterCallee(acc.Address, &jtx.FuncCallee{Swap: jtx.ProvideExact()})
	env.Mint(token, acc, stock)
	return acc
}

// QuoteFrom is a quote of venue buying buy for sell.
func QuoteFrom(venue *jtx.Account, sell, buy *uint256.Int) *dsp.Quote {
	return &dsp.Quote{SellAmount: sell, BuyAmount: buy, Executor: venue.Address}
}

// Outcome returns the outcome for pair, or nil.
func Outcome(outcomes []dsp.PairOutcome, pair common.Address) *dsp.PairOutcome {
	for i := range outcomes {
		if outcomes[i].Pair == pair {
			return &outcomes[i]
		}
	}
	return nil
}
