// Package oracle provides the price sources the swap engine treats as
// authoritative.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

//go:generate mockgen -source=oracle.go -destination=mock_oracle.go -package=oracle

// Oracle converts an amount of one token into another at the current price.
type Oracle interface {
	Quote(ctx context.Context, tokenIn common.Address, amountIn *uint256.Int, tokenOut common.Address) (*uint256.Int, error)
}

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

var (
	ErrUnknownToken    = errors.New("oracle: unknown token")
	ErrUnsupportedPair = errors.New("oracle: unsupported pair")
	ErrNoObservations  = errors.New("oracle: no observations in window")
	ErrInvalidPrice    = errors.New("oracle: price must be positive")
	ErrOverflow        = errors.New("oracle: quote overflow")
)

type pairKey struct {
	base  common.Address
	quote common.Address
}

// convert returns amountIn of a token with decIn decimals, priced at price
// units of a token with decOut decimals, in base units of the latter. The
// result is rounded down.
func convert(amountIn *uint256.Int, decIn, decOut uint8, price decimal.Decimal) (*uint256.Int, error) {
	whole := decimal.NewFromBigInt(amountIn.ToBig(), -int32(decIn))
	out := whole.Mul(price).Shift(int32(decOut)).Floor()
	z, overflow := uint256.FromBig(out.BigInt())
	if overflow {
		return nil, fmt.Errorf("%w: %s", ErrOverflow, out)
	}
	return z, nil
}

// invert returns 1/price with enough precision for 256-bit amounts.
func invert(price decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).DivRound(price, 80)
}
