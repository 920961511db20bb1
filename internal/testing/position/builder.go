// Package position provides builders and tests for position transactions.
package position

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/LeJamon/goDCA/internal/core/tx"
	"github.com/LeJamon/goDCA/internal/testing"
)

// DepositBuilder provides a fluent interface for building Deposit transactions.
type DepositBuilder struct {
	pair     common.Address
	from     common.Address
	rate     *uint256.Int
	swaps    uint32
	interval uint32
}

// Deposit creates a DepositBuilder selling from on pair. It defaults to a
// daily interval.
func Deposit(pair, from common.Address) *DepositBuilder {
	return &DepositBuilder{
		pair:     pair,
		from:     from,
		interval: testing.Day,
	}
}

// Rate sets the amount sold at each swap.
func (b *DepositBuilder) Rate(rate *uint256.Int) *DepositBuilder {
	b.rate = rate
	return b
}

// Swaps sets the number of swaps.
func (b *DepositBuilder) Swaps(n uint32) *DepositBuilder {
	b.swaps = n
	return b
}

// Interval sets the swap interval in seconds.
func (b *DepositBuilder) Interval(seconds uint32) *DepositBuilder {
	b.interval = seconds
	return b
}

// Build constructs the Deposit transaction.
func (b *DepositBuilder) Build() tx.Transaction {
	return &tx.Deposit{
		Pair:     b.pair,
		From:     b.from,
		Rate:     b.rate,
		Swaps:    b.swaps,
		Interval: b.interval,
	}
}

// Withdraw builds a WithdrawSwapped sending to recipient.
func Withdraw(pair common.Address, id uint64, recipient *testing.Account) tx.Transaction {
	return &tx.WithdrawSwapped{Pair: pair, PositionID: id, Recipient: recipient.Address}
}

// WithdrawMany builds a WithdrawSwappedMany sending to recipient.
func WithdrawMany(pair common.Address, recipient *testing.Account, ids ...uint64) tx.Transaction {
	return &tx.WithdrawSwappedMany{Pair: pair, PositionIDs: ids, Recipient: recipient.Address}
}

// Terminate builds a Terminate sending to recipient.
func Terminate(pair common.Address, id uint64, recipient *testing.Account) tx.Transaction {
	return &tx.Terminate{Pair: pair, PositionID: id, Recipient: recipient.Address}
}

// ModifyRate builds a ModifyRate.
func ModifyRate(pair common.Address, id uint64, rate *uint256.Int) tx.Transaction {
	return &tx.ModifyRate{Pair: pair, PositionID: id, NewRate: rate}
}

// ModifySwaps builds a ModifySwaps.
func ModifySwaps(pair common.Address, id uint64, swaps uint32) tx.Transaction {
	return &tx.ModifySwaps{Pair: pair, PositionID: id, NewSwaps: swaps}
}

// ModifyRateAndSwaps builds a ModifyRateAndSwaps.
func ModifyRateAndSwaps(pair common.Address, id uint64, rate *uint256.Int, swaps uint32) tx.Transaction {
	return &tx.ModifyRateAndSwaps{Pair: pair, PositionID: id, NewRate: rate, NewSwaps: swaps}
}

// AddFunds builds an AddFunds.
func AddFunds(pair common.Address, id uint64, value *uint256.Int, swaps uint32) tx.Transaction {
	return &tx.AddFunds{Pair: pair, PositionID: id, Amount: value, NewSwaps: swaps}
}

// DepositID returns the position ID a successful Deposit returned.
func DepositID(result testing.TxResult) uint64 {
	id, _ := result.Output.(uint64)
	return id
}
