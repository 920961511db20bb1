// Package swap provides builders and tests for swap execution.
package swap

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/LeJamon/goDCA/internal/core/tx"
)

// SwapBuilder provides a fluent interface for building Swap transactions.
type SwapBuilder struct {
	pair      common.Address
	provided  *uint256.Int
	minReward *uint256.Int
	callee    common.Address
	data      []byte
}

// Swap creates a SwapBuilder for pair.
func Swap(pair common.Address) *SwapBuilder {
	return &SwapBuilder{pair: pair}
}

// Provided sets the amount pulled from the swapper after the callback.
func (b *SwapBuilder) Provided(v *uint256.Int) *SwapBuilder {
	b.provided = v
	return b
}

// MinReward sets the smallest reward the swapper accepts.
func (b *SwapBuilder) MinReward(v *uint256.Int) *SwapBuilder {
	b.minReward = v
	return b
}

// Callee routes the reward through a registered callee.
func (b *SwapBuilder) Callee(addr common.Address) *SwapBuilder {
	b.callee = addr
	return b
}

// Data sets the bytes passed to the callee.
func (b *SwapBuilder) Data(data []byte) *SwapBuilder {
	b.data = data
	return b
}

// Build constructs the Swap transaction.
func (b *SwapBuilder) Build() tx.Transaction {
	return &tx.Swap{
		Pair:      b.pair,
		Provided:  b.provided,
		MinReward: b.minReward,
		Callee:    b.callee,
		Data:      b.data,
	}
}
