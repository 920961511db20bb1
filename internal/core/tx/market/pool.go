// Package market implements the simulation venue swap rewards are sold
// into: constant-product pools kept in the ledger next to the pairs, and a
// Market that quotes and fills orders against them.
package market

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/LeJamon/goDCA/internal/core/amount"
	"github.com/LeJamon/goDCA/internal/core/ledger"
	"github.com/LeJamon/goDCA/internal/core/ledger/entry"
	"github.com/LeJamon/goDCA/internal/core/ledger/keylet"
	"github.com/LeJamon/goDCA/internal/core/tx"
)

const (
	// FeeBasis is the denominator of a pool fee. A fee of 30 is 0.3%.
	FeeBasis uint32 = 10000

	// MaxPoolFee caps a pool's trading fee at 10%.
	MaxPoolFee uint32 = 1000
)

func loadPool(v ledger.View, addr common.Address) (*entry.Pool, error) {
	var p entry.Pool
	found, err := ledger.Get(v, keylet.Pool(addr), &p)
	if err != nil {
		return nil, tx.Wrap(tx.Internal, err, "read pool")
	}
	if !found {
		return nil, tx.Errorf(tx.PoolNotFound, "pool %s", addr)
	}
	return &p, nil
}

func savePool(v ledger.View, p *entry.Pool) error {
	if err := ledger.Put(v, keylet.Pool(p.Address), p); err != nil {
		return tx.Wrap(tx.Internal, err, "write pool")
	}
	return nil
}

// reserves returns the pool's reserves ordered for selling tokenIn.
func reserves(p *entry.Pool, tokenIn, tokenOut common.Address) (in, out *uint256.Int, err error) {
	switch {
	case tokenIn == p.TokenA && tokenOut == p.TokenB:
		return p.ReserveA, p.ReserveB, nil
	case tokenIn == p.TokenB && tokenOut == p.TokenA:
		return p.ReserveB, p.ReserveA, nil
	default:
		return nil, nil, tx.Errorf(tx.InvalidToken, "pool %s does not trade %s for %s", p.Address, tokenIn, tokenOut)
	}
}

// AmountOut returns what selling amountIn into a pool with the given
// reserves yields after the pool fee. The constant product never decreases.
func AmountOut(amountIn, reserveIn, reserveOut *uint256.Int, feeBps uint32) (*uint256.Int, error) {
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, tx.Errorf(tx.InsufficientLiquidity, "empty pool")
	}
	inWithFee, err := amount.Mul(amountIn, uint256.NewInt(uint64(FeeBasis-feeBps)))
	if err != nil {
		return nil, tx.Wrap(tx.InvalidAmount, err, "amount in")
	}
	scaledReserve, err := amount.Mul(reserveIn, uint256.NewInt(uint64(FeeBasis)))
	if err != nil {
		return nil, tx.Wrap(tx.InvalidAmount, err, "reserve in")
	}
	den, err := amount.Add(scaledReserve, inWithFee)
	if err != nil {
		return nil, tx.Wrap(tx.InvalidAmount, err, "reserve in")
	}
	out, err := amount.MulDiv(inWithFee, reserveOut, den)
	if err != nil {
		return nil, tx.Wrap(tx.InvalidAmount, err, "amount out")
	}
	return out, nil
}
