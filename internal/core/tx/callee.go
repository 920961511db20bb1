package tx

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// SwapCallback is passed to a swap callee after it received the reward.
type SwapCallback struct {
	Info *SwapInfo
	// Swapper is the account that submitted the swap
	Swapper common.Address
	Data    []byte
}

// SwapCallee is invoked in the middle of a swap. Before it returns, the
// pair must hold AmountToBeProvidedBySwapper more of the provided token, or
// the swapper must hold enough for the pair to pull.
type SwapCallee interface {
	OnSwap(ctx *ApplyContext, cb *SwapCallback) error
}

// LoanCallback is passed to a loan callee after it received the loan.
type LoanCallback struct {
	Pair     common.Address
	TokenA   common.Address
	TokenB   common.Address
	AmountA  *uint256.Int
	AmountB  *uint256.Int
	FeeA     *uint256.Int
	FeeB     *uint256.Int
	Borrower common.Address
	Data     []byte
}

// LoanCallee is invoked with a pair's funds. It must transfer the amounts
// plus fees back to the pair before it returns.
type LoanCallee interface {
	OnLoan(ctx *ApplyContext, cb *LoanCallback) error
}

func (c *ApplyContext) swapCallee(addr common.Address) (SwapCallee, error) {
	impl, ok := c.Engine.callee(addr)
	if !ok {
		return nil, Errorf(UnknownCallee, "no callee at %s", addr)
	}
	sc, ok := impl.(SwapCallee)
	if !ok {
		return nil, Errorf(UnknownCallee, "callee %s does not take swaps", addr)
	}
	return sc, nil
}

func (c *ApplyContext) loanCallee(addr common.Address) (LoanCallee, error) {
	impl, ok := c.Engine.callee(addr)
	if !ok {
		return nil, Errorf(UnknownCallee, "no callee at %s", addr)
	}
	lc, ok := impl.(LoanCallee)
	if !ok {
		return nil, Errorf(UnknownCallee, "callee %s does not take loans", addr)
	}
	return lc, nil
}
