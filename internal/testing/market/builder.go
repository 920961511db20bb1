// Package market provides builders and tests for the simulation market.
package market

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/LeJamon/goDCA/internal/core/tx"
	"github.com/LeJamon/goDCA/internal/core/tx/market"
)

// PoolCreateBuilder provides a fluent interface for building PoolCreate transactions.
type PoolCreateBuilder struct {
	tokenA  common.Address
	tokenB  common.Address
	amountA *uint256.Int
	amountB *uint256.Int
	fee     uint32
}

// PoolCreate creates a PoolCreateBuilder for the pool of tokenA and tokenB.
// The fee defaults to 0.3%.
func PoolCreate(tokenA, tokenB common.Address) *PoolCreateBuilder {
	return &PoolCreateBuilder{tokenA: tokenA, tokenB: tokenB, fee: 30}
}

// Reserves sets the initial reserves, in the builder's token order.
func (b *PoolCreateBuilder) Reserves(amountA, amountB *uint256.Int) *PoolCreateBuilder {
	b.amountA = amountA
	b.amountB = amountB
	return b
}

// Fee sets the trading fee in basis points.
func (b *PoolCreateBuilder) Fee(bps uint32) *PoolCreateBuilder {
	b.fee = bps
	return b
}

// Build constructs the PoolCreate transaction.
func (b *PoolCreateBuilder) Build() tx.Transaction {
	return &market.PoolCreate{
		TokenA:  b.tokenA,
		TokenB:  b.tokenB,
		AmountA: b.amountA,
		AmountB: b.amountB,
		FeeBps:  b.fee,
	}
}

// PoolDeposit builds a PoolDeposit adding amountA of tokenA and amountB of
// tokenB.
func PoolDeposit(tokenA, tokenB common.Address, amountA, amountB *uint256.Int) tx.Transaction {
	return &market.PoolDeposit{
		TokenA:  tokenA,
		TokenB:  tokenB,
		AmountA: amountA,
		AmountB: amountB,
	}
}

// PoolSwapBuilder provides a fluent interface for building PoolSwap transactions.
type PoolSwapBuilder struct {
	tokenIn   common.Address
	tokenOut  common.Address
	amountIn  *uint256.Int
	minOut    *uint256.Int
	recipient common.Address
}

// PoolSwap creates a PoolSwapBuilder selling amountIn of tokenIn for tokenOut.
func PoolSwap(tokenIn, tokenOut common.Address, amountIn *uint256.Int) *PoolSwapBuilder {
	return &PoolSwapBuilder{tokenIn: tokenIn, tokenOut: tokenOut, amountIn: amountIn}
}

// MinOut sets the smallest acceptable output.
func (b *PoolSwapBuilder) MinOut(v *uint256.Int) *PoolSwapBuilder {
	b.minOut = v
	return b
}

// Recipient sends the output to addr instead of the caller.
func (b *PoolSwapBuilder) Recipient(addr common.Address) *PoolSwapBuilder {
	b.recipient = addr
	return b
}

// Build constructs the PoolSwap transaction.
func (b *PoolSwapBuilder) Build() tx.Transaction {
	return &market.PoolSwap{
		TokenIn:      b.tokenIn,
		TokenOut:     b.tokenOut,
		AmountIn:     b.amountIn,
		MinAmountOut: b.minOut,
		Recipient:    b.recipient,
	}
}
