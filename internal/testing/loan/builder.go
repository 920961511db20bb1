// Package loan provides builders and tests for flash loans.
package loan

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/LeJamon/goDCA/internal/core/tx"
)

// LoanBuilder provides a fluent interface for building Loan transactions.
type LoanBuilder struct {
	pair    common.Address
	callee  common.Address
	amountA *uint256.Int
	amountB *uint256.Int
	data    []byte
}

// Loan creates a LoanBuilder lending from pair to callee.
func Loan(pair, callee common.Address) *LoanBuilder {
	return &LoanBuilder{pair: pair, callee: callee}
}

// AmountA sets the amount of token A to borrow.
func (b *LoanBuilder) AmountA(v *uint256.Int) *LoanBuilder {
	b.amountA = v
	return b
}

// AmountB sets the amount of token B to borrow.
func (b *LoanBuilder) AmountB(v *uint256.Int) *LoanBuilder {
	b.amountB = v
	return b
}

// Data sets the bytes passed to the callee.
func (b *LoanBuilder) Data(data []byte) *LoanBuilder {
	b.data = data
	return b
}

// Build constructs the Loan transaction.
func (b *LoanBuilder) Build() tx.Transaction {
	return &tx.Loan{
		Pair:    b.pair,
		AmountA: b.amountA,
		AmountB: b.amountB,
		Callee:  b.callee,
		Data:    b.data,
	}
}
