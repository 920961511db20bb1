package tx

import (
	"context"
	"fmt"
	"slices"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/LeJamon/goDCA/internal/core/amount"
	"github.com/LeJamon/goDCA/internal/core/governance"
	"github.com/LeJamon/goDCA/internal/core/ledger"
	"github.com/LeJamon/goDCA/internal/core/ledger/entry"
	"github.com/LeJamon/goDCA/internal/core/ledger/keylet"
)

// GenesisToken is a token created at bootstrap with its initial holders.
type GenesisToken struct {
	Address  common.Address
	Symbol   string
	Decimals uint8
	Balances map[common.Address]*uint256.Int
}

// Genesis is the initial ledger state.
type Genesis struct {
	Governor         common.Address
	FeeRecipient     common.Address
	SwapFee          uint32
	LoanFee          uint32
	AllowedIntervals []uint32
	Paused           bool
	Tokens           []GenesisToken
	Pairs            [][2]common.Address
}

// DefaultGenesis returns a genesis governed by governor, which also
// receives the fees, with the default fees and hourly, daily and weekly
// intervals.
func DefaultGenesis(governor common.Address) Genesis {
	return Genesis{
		Governor:         governor,
		FeeRecipient:     governor,
		SwapFee:          DefaultSwapFee,
		LoanFee:          DefaultLoanFee,
		AllowedIntervals: []uint32{3600, 86400, 604800},
	}
}

// Validate checks the genesis parameters.
func (g *Genesis) Validate() error {
	if g.Governor == (common.Address{}) || g.FeeRecipient == (common.Address{}) {
		return Errorf(ZeroAddress, "governor and fee recipient")
	}
	if err := validateFee(g.SwapFee); err != nil {
		return err
	}
	if err := validateFee(g.LoanFee); err != nil {
		return err
	}
	return validateIntervals(g.AllowedIntervals)
}

// Bootstrap writes g into an empty ledger. It does nothing, and reports
// false, when the ledger already has parameters.
func (e *Engine) Bootstrap(ctx context.Context, g Genesis) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := g.Validate(); err != nil {
		return false, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	exists, err := e.view.Exists(keylet.Parameters())
	if err != nil {
		return false, fmt.Errorf("read parameters: %w", err)
	}
	if exists {
		e.log.Info("ledger already bootstrapped")
		return false, nil
	}

	gov, err := governance.NewState(g.Governor)
	if err != nil {
		return false, GovernanceError(err)
	}
	intervals := slices.Clone(g.AllowedIntervals)
	slices.Sort(intervals)
	intervals = slices.Compact(intervals)

	table := ledger.NewStateTable(e.view)
	params := &entry.Parameters{
		Governance:       gov,
		FeeRecipient:     g.FeeRecipient,
		SwapFee:          g.SwapFee,
		LoanFee:          g.LoanFee,
		AllowedIntervals: intervals,
		Paused:           g.Paused,
	}
	if err := saveParameters(table, params); err != nil {
		return false, err
	}

	for _, tok := range g.Tokens {
		if tok.Address == (common.Address{}) {
			return false, Errorf(ZeroAddress, "genesis token")
		}
		t := &entry.Token{Address: tok.Address, Symbol: tok.Symbol, Decimals: tok.Decimals}
		if err := ledger.Put(table, keylet.Token(tok.Address), t); err != nil {
			return false, fmt.Errorf("write token %s: %w", tok.Symbol, err)
		}
		for holder, bal := range tok.Balances {
			if err := writeBalance(table, tok.Address, holder, amount.OrZero(bal)); err != nil {
				return false, err
			}
		}
	}

	for _, pr := range g.Pairs {
		if _, err := createPair(table, pr[0], pr[1]); err != nil {
			return false, err
		}
	}

	if _, err := table.Apply(); err != nil {
		return false, fmt.Errorf("commit genesis: %w", err)
	}
	e.log.Info("ledger bootstrapped",
		"governor", g.Governor,
		"tokens", len(g.Tokens),
		"pairs", len(g.Pairs),
	)
	return true, nil
}
