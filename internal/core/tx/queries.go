package tx

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/LeJamon/goDCA/internal/core/ledger"
	"github.com/LeJamon/goDCA/internal/core/ledger/entry"
)

// The read-only queries below take the engine lock and must not be called
// from a callback. Callbacks use the equivalent ApplyContext methods.

// NextSwapInfo computes what swapping pair would do now. It changes nothing,
// so repeated calls return the same result while state and price are
// unchanged.
func (e *Engine) NextSwapInfo(ctx context.Context, pair common.Address) (*SwapInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	plan, err := planSwap(ctx, e.view, e, pair, e.Now())
	if err != nil {
		return nil, err
	}
	return plan.info, nil
}

// SecondsUntilNextSwap returns 0 when some interval of pair is due, the
// shortest wait among intervals with demand otherwise, and NeverDue when no
// interval has demand.
func (e *Engine) SecondsUntilNextSwap(pair common.Address) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return secondsUntilNextSwap(e.view, e, pair, e.Now())
}

// Position returns a position and what it can claim.
func (e *Engine) Position(pair common.Address, id uint64) (*PositionInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	ps, err := loadPosition(e.view, pair, id)
	if err != nil {
		return nil, err
	}
	return ps.info()
}

// Pair returns a pair entry.
func (e *Engine) Pair(pair common.Address) (*entry.Pair, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return loadPair(e.view, pair)
}

// Pairs returns every pair in the ledger.
func (e *Engine) Pairs() ([]*entry.Pair, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	var (
		pairs []*entry.Pair
		err   error
	)
	iterErr := e.view.ForEach(func(_ common.Hash, data []byte) bool {
		typ, terr := entry.TypeOf(data)
		if terr != nil || typ != entry.TypePair {
			return true
		}
		var p entry.Pair
		if err = entry.Decode(data, &p); err != nil {
			return false
		}
		pairs = append(pairs, &p)
		return true
	})
	if iterErr != nil {
		return nil, Wrap(Internal, iterErr, "iterate ledger")
	}
	if err != nil {
		return nil, Wrap(Internal, err, "decode pair")
	}
	return pairs, nil
}

// Token returns a token entry.
func (e *Engine) Token(token common.Address) (*entry.Token, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return loadToken(e.view, token)
}

// Balance returns holder's balance of token.
func (e *Engine) Balance(token, holder common.Address) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return readBalance(e.view, token, holder)
}

// Parameters returns the protocol parameters.
func (e *Engine) Parameters() (*entry.Parameters, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return loadParameters(e.view)
}

// Read runs fn against the base view while holding the engine lock. fn
// must not write to the view or submit transactions.
func (e *Engine) Read(fn func(v ledger.View) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.view)
}
