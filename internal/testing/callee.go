package testing

import (
	"errors"

	"github.com/LeJamon/goDCA/internal/core/tx"
)

// FuncCallee adapts functions to tx.SwapCallee and tx.LoanCallee. A nil
// function fails the callback.
type FuncCallee struct {
	Swap func(ctx *tx.ApplyContext, cb *tx.SwapCallback) error
	Loan func(ctx *tx.ApplyContext, cb *tx.LoanCallback) error
}

func (c *FuncCallee) OnSwap(ctx *tx.ApplyContext, cb *tx.SwapCallback) error {
	if c.Swap == nil {
		return errors.New("callee does not take swaps")
	}
	return c.Swap(ctx, cb)
}

func (c *FuncCallee) OnLoan(ctx *tx.ApplyContext, cb *tx.LoanCallback) error {
	if c.Loan == nil {
		return errors.New("callee does not take loans")
	}
	return c.Loan(ctx, cb)
}

// ProvideExact returns a swap callback that pays the pair exactly what it
// asks for out of the callee's balance.
func ProvideExact() func(*tx.ApplyContext, *tx.SwapCallback) error {
	return func(ctx *tx.ApplyContext, cb *tx.SwapCallback) error {
		return ctx.Transfer(cb.Info.TokenToBeProvidedBySwapper, cb.Info.Pair, cb.Info.AmountToBeProvidedBySwapper)
	}
}

// RepayWithFee returns a loan callback that returns the loan plus fees out of
// the callee's balance.
func RepayWithFee() func(*tx.ApplyContext, *tx.LoanCallback) error {
	return func(ctx *tx.ApplyContext, cb *tx.LoanCallback) error {
		if err := ctx.Transfer(cb.TokenA, cb.Pair, addAmounts(cb.AmountA, cb.FeeA)); err != nil {
			return err
		}
		return ctx.Transfer(cb.TokenB, cb.Pair, addAmounts(cb.AmountB, cb.FeeB))
	}
}
